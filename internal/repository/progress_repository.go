package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/escolare/portal-api/internal/models"
	appErrors "github.com/escolare/portal-api/pkg/errors"
)

// ProgressRepository stores live import progress snapshots in Redis so the
// admin screens can poll a run while it executes. A nil client disables the
// feature without affecting the import itself.
type ProgressRepository struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewProgressRepository constructs a progress repository.
func NewProgressRepository(client *redis.Client, ttl time.Duration, logger *zap.Logger) *ProgressRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ProgressRepository{client: client, logger: logger, ttl: ttl}
}

func progressKey(logID string) string {
	return fmt.Sprintf("import:progress:%s", logID)
}

// Set stores the snapshot under the run's log id.
func (r *ProgressRepository) Set(ctx context.Context, progress models.ImportProgress) error {
	if r.client == nil {
		return nil
	}

	payload, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("marshal import progress: %w", err)
	}

	key := progressKey(progress.LogID)
	if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	return nil
}

// Get retrieves the snapshot of a run, or ErrCacheMiss when absent.
func (r *ProgressRepository) Get(ctx context.Context, logID string) (*models.ImportProgress, error) {
	if r.client == nil {
		return nil, appErrors.ErrCacheMiss
	}

	key := progressKey(logID)
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	var progress models.ImportProgress
	if err := json.Unmarshal(raw, &progress); err != nil {
		return nil, fmt.Errorf("unmarshal import progress: %w", err)
	}

	return &progress, nil
}
