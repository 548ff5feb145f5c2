package domain

import "time"

// Deployment statuses
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Attachment is a file attached to a brief as a base64 data URI.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// TaskRequest is the submission payload for a build or revision round.
type TaskRequest struct {
	Email         string       `json:"email" binding:"required"`
	Secret        string       `json:"secret" binding:"required"`
	Task          string       `json:"task" binding:"required"`
	Round         int          `json:"round" binding:"required"`
	Nonce         string       `json:"nonce" binding:"required"`
	Brief         string       `json:"brief" binding:"required"`
	Checks        []string     `json:"checks"`
	EvaluationURL string       `json:"evaluation_url" binding:"required"`
	Attachments   []Attachment `json:"attachments"`
}

// EvaluationPayload is the completion callback sent to the evaluation server.
type EvaluationPayload struct {
	Email     string `json:"email"`
	Task      string `json:"task"`
	Round     int    `json:"round"`
	Nonce     string `json:"nonce"`
	RepoURL   string `json:"repo_url"`
	CommitSHA string `json:"commit_sha"`
	PagesURL  string `json:"pages_url"`
}

// ArtifactSet maps repository file paths to generated file contents.
type ArtifactSet map[string]string

// Deployment is the record tracked for one deployment run.
type Deployment struct {
	ID          string    `json:"id"`
	Task        string    `json:"task"`
	Round       int       `json:"round"`
	Nonce       string    `json:"nonce"`
	Email       string    `json:"email"`
	Status      string    `json:"status"`
	RepoURL     string    `json:"repo_url,omitempty"`
	CommitSHA   string    `json:"commit_sha,omitempty"`
	PagesURL    string    `json:"pages_url,omitempty"`
	Error       string    `json:"error,omitempty"`
	NotifyError string    `json:"notify_error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Terminal reports whether the deployment reached a final state.
func (d *Deployment) Terminal() bool {
	return d.Status == StatusCompleted || d.Status == StatusFailed
}
