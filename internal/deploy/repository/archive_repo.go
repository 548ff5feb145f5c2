package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/llm-code-deploy/deploy-backend/internal/deploy/domain"
)

// ArchiveRepository persists terminal deployments to Postgres so history
// survives the Redis TTL. It is optional; the deploy path never depends on it.
type ArchiveRepository struct {
	db *pgxpool.Pool
}

// NewArchiveRepository creates a new ArchiveRepository
func NewArchiveRepository(db *pgxpool.Pool) *ArchiveRepository {
	return &ArchiveRepository{db: db}
}

// EnsureSchema creates the deployments table if it does not exist.
func (r *ArchiveRepository) EnsureSchema(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS deployments (
    id           TEXT PRIMARY KEY,
    task         TEXT NOT NULL,
    round        INT  NOT NULL,
    nonce        TEXT NOT NULL,
    email        TEXT NOT NULL,
    status       TEXT NOT NULL,
    repo_url     TEXT,
    commit_sha   TEXT,
    pages_url    TEXT,
    error        TEXT,
    notify_error TEXT,
    created_at   TIMESTAMPTZ NOT NULL,
    updated_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS deployments_task_idx ON deployments (task);
`
	if _, err := r.db.Exec(ctx, q); err != nil {
		return fmt.Errorf("ensure deployments schema: %w", err)
	}
	return nil
}

// Archive upserts a terminal deployment record.
func (r *ArchiveRepository) Archive(ctx context.Context, d *domain.Deployment) error {
	const q = `
INSERT INTO deployments
    (id, task, round, nonce, email, status, repo_url, commit_sha, pages_url, error, notify_error, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (id) DO UPDATE SET
    status       = EXCLUDED.status,
    repo_url     = EXCLUDED.repo_url,
    commit_sha   = EXCLUDED.commit_sha,
    pages_url    = EXCLUDED.pages_url,
    error        = EXCLUDED.error,
    notify_error = EXCLUDED.notify_error,
    updated_at   = EXCLUDED.updated_at;
`
	_, err := r.db.Exec(ctx, q,
		d.ID, d.Task, d.Round, d.Nonce, d.Email, d.Status,
		d.RepoURL, d.CommitSHA, d.PagesURL, d.Error, d.NotifyError,
		d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("archive deployment %s: %w", d.ID, err)
	}
	return nil
}

// ListByTask returns archived deployments for a task, newest first.
func (r *ArchiveRepository) ListByTask(ctx context.Context, task string) ([]*domain.Deployment, error) {
	const q = `
SELECT id, task, round, nonce, email, status, repo_url, commit_sha, pages_url, error, notify_error, created_at, updated_at
FROM deployments
WHERE task = $1
ORDER BY updated_at DESC;
`
	rows, err := r.db.Query(ctx, q, task)
	if err != nil {
		return nil, fmt.Errorf("list archived deployments: %w", err)
	}
	defer rows.Close()

	var out []*domain.Deployment
	for rows.Next() {
		var d domain.Deployment
		if err := rows.Scan(&d.ID, &d.Task, &d.Round, &d.Nonce, &d.Email, &d.Status,
			&d.RepoURL, &d.CommitSHA, &d.PagesURL, &d.Error, &d.NotifyError,
			&d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan archived deployment: %w", err)
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}
