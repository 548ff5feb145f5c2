package repository

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llm-code-deploy/deploy-backend/internal/deploy/domain"
)

func newTestRepo(t *testing.T) (*DeploymentRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewDeploymentRepository(client), mr
}

func TestDeploymentRepository_CreateAndGet(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	d := &domain.Deployment{
		Task:   "task-1",
		Round:  1,
		Nonce:  "nonce-1",
		Email:  "dev@example.com",
		Status: domain.StatusPending,
	}
	require.NoError(t, repo.Create(ctx, d))
	assert.NotEmpty(t, d.ID)
	assert.False(t, d.CreatedAt.IsZero())

	got, err := repo.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "task-1", got.Task)
	assert.Equal(t, domain.StatusPending, got.Status)
}

func TestDeploymentRepository_GetNotFound(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrDeploymentNotFound)
}

func TestDeploymentRepository_Update(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	d := &domain.Deployment{Task: "task-1", Round: 1, Status: domain.StatusPending}
	require.NoError(t, repo.Create(ctx, d))

	d.Status = domain.StatusCompleted
	d.RepoURL = "https://github.com/octocat/task-1"
	d.CommitSHA = "abc123"
	require.NoError(t, repo.Update(ctx, d))

	got, err := repo.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, "abc123", got.CommitSHA)
}

func TestDeploymentRepository_ClaimNonce(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.ClaimNonce(ctx, "nonce-1", "dep-1"))

	err := repo.ClaimNonce(ctx, "nonce-1", "dep-2")
	assert.ErrorIs(t, err, domain.ErrDuplicateNonce)

	// A different nonce is fine
	assert.NoError(t, repo.ClaimNonce(ctx, "nonce-2", "dep-2"))
}

func TestDeploymentRepository_ListByTask(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	for _, round := range []int{1, 2} {
		d := &domain.Deployment{Task: "task-1", Round: round, Status: domain.StatusCompleted}
		require.NoError(t, repo.Create(ctx, d))
	}
	other := &domain.Deployment{Task: "task-2", Round: 1, Status: domain.StatusPending}
	require.NoError(t, repo.Create(ctx, other))

	list, err := repo.ListByTask(ctx, "task-1")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = repo.ListByTask(ctx, "task-2")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestDeploymentRepository_GetLatestByTask(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	first := &domain.Deployment{Task: "task-1", Round: 1, Status: domain.StatusCompleted}
	require.NoError(t, repo.Create(ctx, first))

	second := &domain.Deployment{Task: "task-1", Round: 2, Status: domain.StatusRunning}
	require.NoError(t, repo.Create(ctx, second))
	second.Status = domain.StatusCompleted
	require.NoError(t, repo.Update(ctx, second))

	latest, err := repo.GetLatestByTask(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
}

func TestDeploymentRepository_ScanRecords(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d := &domain.Deployment{Task: "task-1", Round: 1, Status: domain.StatusCompleted}
		require.NoError(t, repo.Create(ctx, d))
	}

	records, err := repo.ScanRecords(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}
