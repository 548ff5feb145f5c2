package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llm-code-deploy/deploy-backend/internal/deploy/domain"
)

func testPayload() domain.EvaluationPayload {
	return domain.EvaluationPayload{
		Email:     "dev@example.com",
		Task:      "task-1",
		Round:     1,
		Nonce:     "nonce-1",
		RepoURL:   "https://github.com/octocat/task-1",
		CommitSHA: "abc123",
		PagesURL:  "https://octocat.github.io/task-1/",
	}
}

func TestNotify_Success(t *testing.T) {
	var got domain.EvaluationPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewEvaluationNotifier(3)
	n.baseDelay = time.Millisecond

	err := n.Notify(context.Background(), server.URL, testPayload())
	require.NoError(t, err)
	assert.Equal(t, "abc123", got.CommitSHA)
	assert.Equal(t, "task-1", got.Task)
}

func TestNotify_RetriesThenSucceeds(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewEvaluationNotifier(5)
	n.baseDelay = time.Millisecond

	err := n.Notify(context.Background(), server.URL, testPayload())
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestNotify_GivesUpAfterMaxRetries(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	n := NewEvaluationNotifier(3)
	n.baseDelay = time.Millisecond

	err := n.Notify(context.Background(), server.URL, testPayload())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestNotify_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	n := NewEvaluationNotifier(5)
	n.baseDelay = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := n.Notify(ctx, server.URL, testPayload())
	assert.ErrorIs(t, err, context.Canceled)
}
