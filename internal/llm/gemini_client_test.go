package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llm-code-deploy/deploy-backend/internal/deploy/domain"
)

func geminiServer(t *testing.T, output string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing api key in query: %s", r.URL.RawQuery)
		}

		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Contents) == 0 || len(req.Contents[0].Parts) == 0 {
			t.Error("request has no prompt parts")
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": output}}}},
			},
		})
	}))
}

func TestGeminiClient_Generate(t *testing.T) {
	server := geminiServer(t, "<!DOCTYPE html><html><body>hi</body></html>")
	defer server.Close()

	client := NewGeminiClient(server.URL, "test-key", "gemini-flash-lite-latest")

	artifacts, err := client.Generate(context.Background(), "a counter app", []string{"has a button"}, nil)
	require.NoError(t, err)

	assert.Equal(t, "<!DOCTYPE html><html><body>hi</body></html>", artifacts[IndexFile])
}

func TestGeminiClient_Generate_StripsFences(t *testing.T) {
	server := geminiServer(t, "```html\n<!DOCTYPE html><html></html>\n```")
	defer server.Close()

	client := NewGeminiClient(server.URL, "test-key", "gemini-flash-lite-latest")

	artifacts, err := client.Generate(context.Background(), "brief", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "<!DOCTYPE html><html></html>", artifacts[IndexFile])
}

func TestGeminiClient_Generate_NoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates": []}`))
	}))
	defer server.Close()

	client := NewGeminiClient(server.URL, "test-key", "gemini-flash-lite-latest")

	_, err := client.Generate(context.Background(), "brief", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no candidates")
}

func TestGeminiClient_Generate_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"code": 429, "message": "quota exceeded"}}`))
	}))
	defer server.Close()

	client := NewGeminiClient(server.URL, "test-key", "gemini-flash-lite-latest")

	_, err := client.Generate(context.Background(), "brief", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestGeminiClient_Revise_IncludesExistingCode(t *testing.T) {
	var prompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		json.NewDecoder(r.Body).Decode(&req)
		prompt = req.Contents[0].Parts[0].Text

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "<html>v2</html>"}}}},
			},
		})
	}))
	defer server.Close()

	client := NewGeminiClient(server.URL, "test-key", "gemini-flash-lite-latest")

	_, err := client.Revise(context.Background(), "make it blue", []string{"is blue"}, "<html>v1</html>")
	require.NoError(t, err)

	assert.Contains(t, prompt, "<html>v1</html>")
	assert.Contains(t, prompt, "make it blue")
	assert.Contains(t, prompt, "is blue")
}

func TestBuildGeneratePrompt_DecodesAttachments(t *testing.T) {
	data := base64.StdEncoding.EncodeToString([]byte("sample,csv,data"))
	attachments := []domain.Attachment{
		{Name: "data.csv", URL: "data:text/csv;base64," + data},
	}

	prompt := buildGeneratePrompt("brief", []string{"check one"}, attachments)

	assert.Contains(t, prompt, "sample,csv,data")
	assert.Contains(t, prompt, "--- Attachment: data.csv ---")
	assert.Contains(t, prompt, "check one")
}

func TestBuildGeneratePrompt_SkipsBadAttachments(t *testing.T) {
	attachments := []domain.Attachment{
		{Name: "broken", URL: "not-a-data-uri"},
	}

	prompt := buildGeneratePrompt("brief", nil, attachments)

	assert.NotContains(t, prompt, "--- Attachment: broken ---")
}

func TestStripFences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "<html></html>", "<html></html>"},
		{"html fence", "```html\n<html></html>\n```", "<html></html>"},
		{"bare fence", "```\n<html></html>\n```", "<html></html>"},
		{"leading whitespace", "  \n<html></html>  ", "<html></html>"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, stripFences(tc.in))
		})
	}
}
