package gitops

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pagesTestServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(`{}`))
	}))
}

func TestPagesEnabler_Enable(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody pagesRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	e := NewPagesEnabler("octocat", "ghp_token")
	e.APIBase = server.URL

	err := e.Enable(context.Background(), "task-1")
	require.NoError(t, err)

	assert.Equal(t, "/repos/octocat/task-1/pages", gotPath)
	assert.Equal(t, "Bearer ghp_token", gotAuth)
	assert.Equal(t, "main", gotBody.Source.Branch)
	assert.Equal(t, "/", gotBody.Source.Path)
}

func TestPagesEnabler_AlreadyEnabled(t *testing.T) {
	server := pagesTestServer(t, http.StatusConflict)
	defer server.Close()

	e := NewPagesEnabler("octocat", "ghp_token")
	e.APIBase = server.URL

	err := e.Enable(context.Background(), "task-1")
	assert.NoError(t, err, "409 means pages is already on")
}

func TestPagesEnabler_Failure(t *testing.T) {
	server := pagesTestServer(t, http.StatusNotFound)
	defer server.Close()

	e := NewPagesEnabler("octocat", "ghp_token")
	e.APIBase = server.URL

	err := e.Enable(context.Background(), "task-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
