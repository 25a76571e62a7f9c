// Package storage persists player documents and ingestion progress in Redis.
// Player records are JSON values keyed by player id, with a set-based id
// index for the startup dedup load; the checkpoint is a singleton key. All
// writes are idempotent replace-or-insert by id.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/pucklines/nhl-ingest/pkg/logging"
	"github.com/pucklines/nhl-ingest/pkg/model"
)

// Prometheus metrics for storage operations.
var (
	playersUpsertedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storage_players_upserted_total",
		Help: "Player documents written by outcome",
	}, []string{"outcome"})

	storageErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storage_errors_total",
		Help: "Storage operation errors by operation",
	}, []string{"operation"})
)

// Redis keys for the player collection.
const (
	playerKeyPrefix = "player:"
	playerIDSetKey  = "players:ids"
)

// ErrNotFound indicates the requested player id has no document.
var ErrNotFound = errors.New("player not found")

// UpsertResult reports how a batch write landed.
type UpsertResult struct {
	Inserted int
	Modified int
}

// PlayerStore reads and writes player documents.
type PlayerStore struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewPlayerStore creates a player store on the given Redis client.
func NewPlayerStore(redisClient *redis.Client) *PlayerStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &PlayerStore{
		redis:  redisClient,
		logger: logging.NewLogger("storage"),
	}
}

func playerKey(id int) string {
	return playerKeyPrefix + strconv.Itoa(id)
}

// UpsertMany writes each record independently keyed by its id, stamping the
// ingestion time. Records are replaced wholesale; re-writing an identical
// record is harmless. Not a transaction: a crash mid-batch leaves some
// records written, which the id-keyed upserts make safe to redo.
func (s *PlayerStore) UpsertMany(ctx context.Context, records []model.PlayerRecord) (UpsertResult, error) {
	if len(records) == 0 {
		return UpsertResult{}, nil
	}

	now := time.Now()

	pipe := s.redis.Pipeline()
	existsCmds := make([]*redis.IntCmd, len(records))
	for i := range records {
		records[i].LastUpdated = now
		records[i].LastScraped = now

		data, err := json.Marshal(records[i])
		if err != nil {
			storageErrorsTotal.WithLabelValues("upsert").Inc()
			return UpsertResult{}, fmt.Errorf("marshal player %d: %w", records[i].ID, err)
		}

		key := playerKey(records[i].ID)
		existsCmds[i] = pipe.Exists(ctx, key)
		pipe.Set(ctx, key, data, 0)
		pipe.SAdd(ctx, playerIDSetKey, records[i].ID)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		storageErrorsTotal.WithLabelValues("upsert").Inc()
		return UpsertResult{}, fmt.Errorf("redis upsert pipeline: %w", err)
	}

	var result UpsertResult
	for _, cmd := range existsCmds {
		if cmd.Val() == 0 {
			result.Inserted++
		} else {
			result.Modified++
		}
	}

	playersUpsertedTotal.WithLabelValues("inserted").Add(float64(result.Inserted))
	playersUpsertedTotal.WithLabelValues("modified").Add(float64(result.Modified))

	s.logger.Info().
		Int("inserted", result.Inserted).
		Int("modified", result.Modified).
		Msg("Bulk upsert completed")

	return result, nil
}

// AllIDs returns every player id present in storage. Loaded once at startup
// to seed the dedup set.
func (s *PlayerStore) AllIDs(ctx context.Context) ([]int, error) {
	members, err := s.redis.SMembers(ctx, playerIDSetKey).Result()
	if err != nil {
		storageErrorsTotal.WithLabelValues("all_ids").Inc()
		return nil, fmt.Errorf("redis smembers %s: %w", playerIDSetKey, err)
	}

	ids := make([]int, 0, len(members))
	for _, m := range members {
		id, err := strconv.Atoi(m)
		if err != nil {
			return nil, fmt.Errorf("corrupt player id %q in index: %w", m, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Get retrieves one player document. Returns ErrNotFound when absent.
func (s *PlayerStore) Get(ctx context.Context, id int) (*model.PlayerRecord, error) {
	data, err := s.redis.Get(ctx, playerKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		storageErrorsTotal.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get player %d: %w", id, err)
	}

	var record model.PlayerRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("unmarshal player %d: %w", id, err)
	}
	return &record, nil
}
