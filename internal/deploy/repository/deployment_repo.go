package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/llm-code-deploy/deploy-backend/internal/deploy/domain"
)

const (
	recordKeyPrefix = "deploy:record:" // Key for deployment data: deploy:record:{id}
	taskSetPrefix   = "deploy:task:"   // Set of deployment IDs per task: deploy:task:{task}
	nonceKeyPrefix  = "deploy:nonce:"  // Idempotency claim per nonce: deploy:nonce:{nonce} -> id
	recordTTL       = 7 * 24 * time.Hour
)

// DeploymentRepository handles Redis operations for deployment records
type DeploymentRepository struct {
	client *redis.Client
}

// NewDeploymentRepository creates a new DeploymentRepository
func NewDeploymentRepository(client *redis.Client) *DeploymentRepository {
	return &DeploymentRepository{client: client}
}

// ClaimNonce atomically claims a submission nonce for the given deployment ID.
// A nonce that is already claimed returns ErrDuplicateNonce, which makes
// replayed submissions no-ops.
func (r *DeploymentRepository) ClaimNonce(ctx context.Context, nonce, deploymentID string) error {
	ok, err := r.client.SetNX(ctx, r.nonceKey(nonce), deploymentID, recordTTL).Result()
	if err != nil {
		return fmt.Errorf("claim nonce: %w", err)
	}
	if !ok {
		return domain.ErrDuplicateNonce
	}
	return nil
}

// Create stores a new deployment record and indexes it under its task.
func (r *DeploymentRepository) Create(ctx context.Context, d *domain.Deployment) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	now := time.Now()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal deployment: %w", err)
	}

	taskKey := r.taskSetKey(d.Task)

	pipe := r.client.Pipeline()
	pipe.Set(ctx, r.recordKey(d.ID), data, recordTTL)
	pipe.SAdd(ctx, taskKey, d.ID)
	pipe.Expire(ctx, taskKey, recordTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("create deployment: %w", err)
	}
	return nil
}

// Get retrieves a deployment record by ID.
func (r *DeploymentRepository) Get(ctx context.Context, id string) (*domain.Deployment, error) {
	data, err := r.client.Get(ctx, r.recordKey(id)).Result()
	if err == redis.Nil {
		return nil, domain.ErrDeploymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get deployment: %w", err)
	}

	var d domain.Deployment
	if err := json.Unmarshal([]byte(data), &d); err != nil {
		return nil, fmt.Errorf("unmarshal deployment: %w", err)
	}
	return &d, nil
}

// Update overwrites a deployment record.
func (r *DeploymentRepository) Update(ctx context.Context, d *domain.Deployment) error {
	d.UpdatedAt = time.Now()

	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal deployment: %w", err)
	}

	if err := r.client.Set(ctx, r.recordKey(d.ID), data, recordTTL).Err(); err != nil {
		return fmt.Errorf("update deployment: %w", err)
	}
	return nil
}

// ListByTask retrieves all deployment records for a task.
func (r *DeploymentRepository) ListByTask(ctx context.Context, task string) ([]*domain.Deployment, error) {
	ids, err := r.client.SMembers(ctx, r.taskSetKey(task)).Result()
	if err != nil {
		return nil, fmt.Errorf("list deployments for task: %w", err)
	}

	out := make([]*domain.Deployment, 0, len(ids))
	for _, id := range ids {
		d, err := r.Get(ctx, id)
		if err == domain.ErrDeploymentNotFound {
			// record expired out from under the index
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// GetLatestByTask returns the most recently updated record for a task.
func (r *DeploymentRepository) GetLatestByTask(ctx context.Context, task string) (*domain.Deployment, error) {
	all, err := r.ListByTask(ctx, task)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, domain.ErrDeploymentNotFound
	}

	latest := all[0]
	for _, d := range all[1:] {
		if d.UpdatedAt.After(latest.UpdatedAt) {
			latest = d
		}
	}
	return latest, nil
}

// ScanRecords iterates every stored deployment record. Used by the janitor
// to archive terminal deployments.
func (r *DeploymentRepository) ScanRecords(ctx context.Context) ([]*domain.Deployment, error) {
	var out []*domain.Deployment

	iter := r.client.Scan(ctx, 0, recordKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := r.client.Get(ctx, iter.Val()).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("scan deployments: %w", err)
		}

		var d domain.Deployment
		if err := json.Unmarshal([]byte(data), &d); err != nil {
			return nil, fmt.Errorf("unmarshal deployment: %w", err)
		}
		out = append(out, &d)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan deployments: %w", err)
	}
	return out, nil
}

// Helper methods for key generation
func (r *DeploymentRepository) recordKey(id string) string {
	return recordKeyPrefix + id
}

func (r *DeploymentRepository) taskSetKey(task string) string {
	return taskSetPrefix + task
}

func (r *DeploymentRepository) nonceKey(nonce string) string {
	return nonceKeyPrefix + nonce
}
