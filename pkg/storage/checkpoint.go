package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/pucklines/nhl-ingest/pkg/logging"
)

// checkpointKey is the singleton key holding ingestion progress.
const checkpointKey = "scraper:checkpoint"

// Checkpoint is the durable ingestion cursor. The zero value is the starting
// state of a fresh run.
type Checkpoint struct {
	LastTeamIndex    int       `json:"lastTeamIndex"`
	ProcessedTeamIDs []int     `json:"processedTeamIds"`
	Timestamp        time.Time `json:"timestamp"`
}

// CheckpointStore persists the singleton checkpoint.
type CheckpointStore struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewCheckpointStore creates a checkpoint store on the given Redis client.
func NewCheckpointStore(redisClient *redis.Client) *CheckpointStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &CheckpointStore{
		redis:  redisClient,
		logger: logging.NewLogger("storage"),
	}
}

// Get loads the checkpoint, or the zero value when none has been written
// (first run, or the previous run finished cleanly).
func (s *CheckpointStore) Get(ctx context.Context) (Checkpoint, error) {
	data, err := s.redis.Get(ctx, checkpointKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return Checkpoint{}, nil
		}
		storageErrorsTotal.WithLabelValues("checkpoint_get").Inc()
		return Checkpoint{}, fmt.Errorf("redis get checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, fmt.Errorf("unmarshal checkpoint: %w", err)
	}
	return cp, nil
}

// Put atomically replaces the checkpoint.
func (s *CheckpointStore) Put(ctx context.Context, cp Checkpoint) error {
	cp.Timestamp = time.Now()

	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	if err := s.redis.Set(ctx, checkpointKey, data, 0).Err(); err != nil {
		storageErrorsTotal.WithLabelValues("checkpoint_put").Inc()
		return fmt.Errorf("redis set checkpoint: %w", err)
	}

	s.logger.Debug().
		Int("last_team_index", cp.LastTeamIndex).
		Int("processed_teams", len(cp.ProcessedTeamIDs)).
		Msg("Checkpoint persisted")

	return nil
}

// Clear deletes the checkpoint, marking a clean run completion. Absence is
// not an error.
func (s *CheckpointStore) Clear(ctx context.Context) error {
	if err := s.redis.Del(ctx, checkpointKey).Err(); err != nil {
		storageErrorsTotal.WithLabelValues("checkpoint_clear").Inc()
		return fmt.Errorf("redis del checkpoint: %w", err)
	}
	return nil
}
