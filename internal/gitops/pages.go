package gitops

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

const defaultAPIBase = "https://api.github.com"

// PagesEnabler toggles GitHub Pages on a repository via the REST API.
type PagesEnabler struct {
	APIBase string
	user    string
	client  *http.Client
}

// NewPagesEnabler creates a Pages enabler authorized with the given token.
func NewPagesEnabler(user, token string) *PagesEnabler {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := oauth2.NewClient(context.Background(), ts)
	client.Timeout = 30 * time.Second

	return &PagesEnabler{
		APIBase: defaultAPIBase,
		user:    user,
		client:  client,
	}
}

type pagesSource struct {
	Branch string `json:"branch"`
	Path   string `json:"path"`
}

type pagesRequest struct {
	Source pagesSource `json:"source"`
}

// Enable turns on GitHub Pages serving main from the repository root.
// An already-enabled repository (409) is not an error.
func (e *PagesEnabler) Enable(ctx context.Context, repoName string) error {
	body, err := json.Marshal(pagesRequest{
		Source: pagesSource{Branch: "main", Path: "/"},
	})
	if err != nil {
		return fmt.Errorf("marshal pages request: %w", err)
	}

	reqURL := fmt.Sprintf("%s/repos/%s/%s/pages", e.APIBase, e.user, repoName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("enable pages for %s: %w", repoName, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		return nil
	case http.StatusConflict:
		// Pages already enabled from a previous round
		return nil
	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("enable pages for %s failed (status %d): %s", repoName, resp.StatusCode, detail)
	}
}
