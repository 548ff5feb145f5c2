package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/llm-code-deploy/deploy-backend/internal/deploy/domain"
	"github.com/llm-code-deploy/deploy-backend/internal/gitops"
)

// indexFile is the artifact the generator produces and the revise flow reads back.
const indexFile = "index.html"

// Generator produces artifact sets from a brief.
type Generator interface {
	Generate(ctx context.Context, brief string, checks []string, attachments []domain.Attachment) (domain.ArtifactSet, error)
	Revise(ctx context.Context, brief string, checks []string, existingCode string) (domain.ArtifactSet, error)
}

// Publisher pushes artifact sets to the hosting provider.
type Publisher interface {
	CreateAndPush(ctx context.Context, repoName string, artifacts domain.ArtifactSet) (*gitops.PushResult, error)
	Update(ctx context.Context, repoName string, artifacts domain.ArtifactSet) (*gitops.PushResult, error)
	FetchFile(ctx context.Context, repoName, path string) (string, error)
}

// PagesEnabler toggles static-site hosting on a pushed repository.
type PagesEnabler interface {
	Enable(ctx context.Context, repoName string) error
}

// Notifier delivers the completion callback.
type Notifier interface {
	Notify(ctx context.Context, evaluationURL string, payload domain.EvaluationPayload) error
}

// RecordStore persists deployment records.
type RecordStore interface {
	ClaimNonce(ctx context.Context, nonce, deploymentID string) error
	Create(ctx context.Context, d *domain.Deployment) error
	Get(ctx context.Context, id string) (*domain.Deployment, error)
	Update(ctx context.Context, d *domain.Deployment) error
	ListByTask(ctx context.Context, task string) ([]*domain.Deployment, error)
}

// DeployService orchestrates the deployment workflow:
// generate -> publish -> enable hosting -> notify, strictly in sequence.
type DeployService struct {
	generator Generator
	publisher Publisher
	pages     PagesEnabler
	notifier  Notifier
	records   RecordStore
	pagesWait time.Duration
}

// NewDeployService creates a new deploy service
func NewDeployService(generator Generator, publisher Publisher, pages PagesEnabler, notifier Notifier, records RecordStore, pagesWait time.Duration) *DeployService {
	return &DeployService{
		generator: generator,
		publisher: publisher,
		pages:     pages,
		notifier:  notifier,
		records:   records,
		pagesWait: pagesWait,
	}
}

// Accept claims the request nonce and creates a pending deployment record.
// A replayed nonce returns domain.ErrDuplicateNonce and nothing is processed.
func (s *DeployService) Accept(ctx context.Context, req *domain.TaskRequest) (*domain.Deployment, error) {
	d := &domain.Deployment{
		ID:     uuid.New().String(),
		Task:   req.Task,
		Round:  req.Round,
		Nonce:  req.Nonce,
		Email:  req.Email,
		Status: domain.StatusPending,
	}

	// Claim the nonce before writing anything so a replayed submission
	// leaves no record behind.
	if err := s.records.ClaimNonce(ctx, req.Nonce, d.ID); err != nil {
		return nil, err
	}

	if err := s.records.Create(ctx, d); err != nil {
		return nil, err
	}

	return d, nil
}

// Process runs the full deployment sequence for an accepted request.
// Any step failure marks the record failed and aborts; there is no rollback
// of already-created repositories.
func (s *DeployService) Process(ctx context.Context, req *domain.TaskRequest, d *domain.Deployment) {
	logger := NewLogger(ctx)
	logger.LogInfof("process", "processing round %d for task %s", req.Round, req.Task)

	d.Status = domain.StatusRunning
	if err := s.records.Update(ctx, d); err != nil {
		logger.LogError("process", err)
	}

	var result *gitops.PushResult
	var err error
	if req.Round == 1 {
		result, err = s.processCreate(ctx, req)
	} else {
		result, err = s.processRevise(ctx, req)
	}
	if err != nil {
		s.fail(ctx, d, err)
		return
	}

	d.RepoURL = result.RepoURL
	d.CommitSHA = result.CommitSHA
	d.PagesURL = result.PagesURL
	if err := s.records.Update(ctx, d); err != nil {
		logger.LogError("process", err)
	}

	logger.LogInfof("process", "pushed %s at commit %s", result.RepoURL, result.CommitSHA)

	// Give GitHub Pages time to deploy before the evaluation server fetches it.
	if err := s.waitForPages(ctx); err != nil {
		s.fail(ctx, d, err)
		return
	}

	payload := domain.EvaluationPayload{
		Email:     req.Email,
		Task:      req.Task,
		Round:     req.Round,
		Nonce:     req.Nonce,
		RepoURL:   result.RepoURL,
		CommitSHA: result.CommitSHA,
		PagesURL:  result.PagesURL,
	}
	if err := s.notifier.Notify(ctx, req.EvaluationURL, payload); err != nil {
		// Delivery is best-effort: the deployment itself is live.
		logger.LogError("notify", err)
		d.NotifyError = err.Error()
	}

	d.Status = domain.StatusCompleted
	if err := s.records.Update(ctx, d); err != nil {
		logger.LogError("process", err)
	}
}

// processCreate handles a round-1 build: generate fresh code, create the
// repository, push and enable Pages.
func (s *DeployService) processCreate(ctx context.Context, req *domain.TaskRequest) (*gitops.PushResult, error) {
	artifacts, err := s.generator.Generate(ctx, req.Brief, req.Checks, req.Attachments)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	result, err := s.publisher.CreateAndPush(ctx, req.Task, artifacts)
	if err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}

	if err := s.pages.Enable(ctx, req.Task); err != nil {
		return nil, fmt.Errorf("enable pages: %w", err)
	}

	return result, nil
}

// processRevise handles round >= 2: fetch the existing code, ask the LLM to
// revise it and push to the existing repository. No new repository is created.
func (s *DeployService) processRevise(ctx context.Context, req *domain.TaskRequest) (*gitops.PushResult, error) {
	existing, err := s.publisher.FetchFile(ctx, req.Task, indexFile)
	if err != nil {
		return nil, fmt.Errorf("fetch existing code: %w", err)
	}

	artifacts, err := s.generator.Revise(ctx, req.Brief, req.Checks, existing)
	if err != nil {
		return nil, fmt.Errorf("revise: %w", err)
	}

	result, err := s.publisher.Update(ctx, req.Task, artifacts)
	if err != nil {
		return nil, fmt.Errorf("publish update: %w", err)
	}

	// Pages is normally enabled in round 1 already; re-enabling is a no-op (409).
	if err := s.pages.Enable(ctx, req.Task); err != nil {
		return nil, fmt.Errorf("enable pages: %w", err)
	}

	return result, nil
}

func (s *DeployService) waitForPages(ctx context.Context) error {
	if s.pagesWait <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.pagesWait):
		return nil
	}
}

func (s *DeployService) fail(ctx context.Context, d *domain.Deployment, err error) {
	logger := NewLogger(ctx)
	logger.LogError("process", err)

	d.Status = domain.StatusFailed
	d.Error = err.Error()
	if uerr := s.records.Update(ctx, d); uerr != nil {
		logger.LogError("process", uerr)
	}
}

// GetDeployment returns one deployment record.
func (s *DeployService) GetDeployment(ctx context.Context, id string) (*domain.Deployment, error) {
	return s.records.Get(ctx, id)
}

// ListDeployments returns all deployment records for a task.
func (s *DeployService) ListDeployments(ctx context.Context, task string) ([]*domain.Deployment, error) {
	return s.records.ListByTask(ctx, task)
}
