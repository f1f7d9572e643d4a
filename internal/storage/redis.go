package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/novel-engine/pkg/session"
	"github.com/jwebster45206/novel-engine/pkg/state"
	"github.com/jwebster45206/novel-engine/pkg/storage"
	"github.com/jwebster45206/novel-engine/pkg/story"
)

// Session records expire after a day of inactivity; checkpoints are the
// player's long-term saves and never expire.
const sessionTTL = 24 * time.Hour

// RedisStore implements the Store interface using Redis for sessions and
// checkpoints, and the filesystem for story documents.
type RedisStore struct {
	client  *redis.Client
	stories *storyDir
	logger  *slog.Logger
}

// Ensure RedisStore implements Store interface
var _ storage.Store = (*RedisStore)(nil)

// NewRedisStore creates a Redis store from a redis:// URL.
func NewRedisStore(redisURL string, dataDir string, logger *slog.Logger) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return &RedisStore{
		client:  redis.NewClient(opt),
		stories: newStoryDir(dataDir, logger),
		logger:  logger,
	}, nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStore) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

func sessionKey(id uuid.UUID) string {
	return "session:" + id.String()
}

func checkpointKey(sessionID uuid.UUID, act int) string {
	return fmt.Sprintf("checkpoint:%s:%d", sessionID, act)
}

func (r *RedisStore) SaveSession(ctx context.Context, s *session.Session) error {
	s.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := r.client.Set(ctx, sessionKey(s.ID), data, sessionTTL).Err(); err != nil {
		r.logger.Error("Failed to save session", "session_id", s.ID, "error", err)
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *RedisStore) LoadSession(ctx context.Context, id uuid.UUID) (*session.Session, error) {
	data, err := r.client.Get(ctx, sessionKey(id)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var s session.Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &s, nil
}

func (r *RedisStore) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *RedisStore) SaveCheckpoint(ctx context.Context, sessionID uuid.UUID, act int, snapshot *state.PlayerState) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	if err := r.client.Set(ctx, checkpointKey(sessionID, act), data, 0).Err(); err != nil {
		r.logger.Error("Failed to save checkpoint", "session_id", sessionID, "act", act, "error", err)
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

func (r *RedisStore) LoadCheckpoint(ctx context.Context, sessionID uuid.UUID, act int) (*state.PlayerState, error) {
	data, err := r.client.Get(ctx, checkpointKey(sessionID, act)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	var snap state.PlayerState
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return &snap, nil
}

func (r *RedisStore) ListStories(ctx context.Context) ([]string, error) {
	return r.stories.List(ctx)
}

func (r *RedisStore) GetStory(ctx context.Context, filename string) (*story.Graph, error) {
	return r.stories.Get(ctx, filename)
}
