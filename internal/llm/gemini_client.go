package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/llm-code-deploy/deploy-backend/internal/deploy/domain"
)

const (
	// GenerateTimeout covers a full generateContent round trip
	GenerateTimeout = 120 * time.Second

	// IndexFile is the single artifact the generator is asked to produce
	IndexFile = "index.html"
)

// GeminiClient calls the Gemini generateContent REST API.
type GeminiClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewGeminiClient creates a Gemini client for the given API key and model.
func NewGeminiClient(baseURL, apiKey, model string) *GeminiClient {
	return &GeminiClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client: &http.Client{
			Timeout: GenerateTimeout,
		},
	}
}

type generatePart struct {
	Text string `json:"text"`
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
}

type generateRequest struct {
	Contents []generateContent `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []generatePart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate produces the artifact set for a fresh build round.
func (c *GeminiClient) Generate(ctx context.Context, brief string, checks []string, attachments []domain.Attachment) (domain.ArtifactSet, error) {
	prompt := buildGeneratePrompt(brief, checks, attachments)
	return c.generateContent(ctx, prompt)
}

// Revise produces the updated artifact set for a revision round.
func (c *GeminiClient) Revise(ctx context.Context, brief string, checks []string, existingCode string) (domain.ArtifactSet, error) {
	prompt := buildRevisePrompt(brief, checks, existingCode)
	return c.generateContent(ctx, prompt)
}

func (c *GeminiClient) generateContent(ctx context.Context, prompt string) (domain.ArtifactSet, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []generateContent{
			{Parts: []generatePart{{Text: prompt}}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	reqURL := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.baseURL, c.model, url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if out.Error != nil {
			return nil, fmt.Errorf("gemini error (status %d): %s", resp.StatusCode, out.Error.Message)
		}
		return nil, fmt.Errorf("gemini error (status %d)", resp.StatusCode)
	}

	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	code := stripFences(out.Candidates[0].Content.Parts[0].Text)
	if code == "" {
		return nil, fmt.Errorf("gemini returned empty output")
	}

	return domain.ArtifactSet{IndexFile: code}, nil
}
