package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrLockHeld is returned when another instance is working on the session.
var ErrLockHeld = errors.New("session lock already held")

// CheckpointStore persists auto-save records keyed by session id.
type CheckpointStore interface {
	Save(ctx context.Context, sessionID string, cp Checkpoint) error
	Load(ctx context.Context, sessionID string) (*Checkpoint, error)
	Delete(ctx context.Context, sessionID string) error
}

// Locker serializes session starts across API instances.
type Locker interface {
	Lock(ctx context.Context, sessionID string) (func() error, error)
}

// Leaser records which API instance owns a live session. Claim takes or
// extends ownership and returns ErrLockHeld while another owner holds an
// unexpired lease. Release gives up ownership if owner still holds it.
type Leaser interface {
	Claim(ctx context.Context, sessionID, owner string, ttl time.Duration) error
	Release(ctx context.Context, sessionID, owner string) error
}

// RedisStore keeps checkpoints in Redis with a TTL slightly past the
// freshness window, so stale records expire on their own.
type RedisStore struct {
	redis  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

var (
	_ CheckpointStore = (*RedisStore)(nil)
	_ Locker          = (*RedisStore)(nil)
	_ Leaser          = (*RedisStore)(nil)
)

// NewRedisStore creates a checkpoint store backed by Redis.
func NewRedisStore(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultFreshness + time.Hour
	}
	return &RedisStore{
		redis:  client,
		ttl:    ttl,
		logger: logger.With().Str("component", "checkpoint_store").Logger(),
	}
}

func checkpointKey(sessionID string) string {
	return fmt.Sprintf("session:checkpoint:%s", sessionID)
}

// Save writes the checkpoint, replacing any previous one.
func (s *RedisStore) Save(ctx context.Context, sessionID string, cp Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	return s.redis.Set(ctx, checkpointKey(sessionID), data, s.ttl).Err()
}

// Load returns the checkpoint, or nil when none exists.
func (s *RedisStore) Load(ctx context.Context, sessionID string) (*Checkpoint, error) {
	data, err := s.redis.Get(ctx, checkpointKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		// an unreadable record cannot be restored; treat it as absent
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("discarding corrupted checkpoint")
		return nil, nil
	}
	return &cp, nil
}

// Delete removes the checkpoint.
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return s.redis.Del(ctx, checkpointKey(sessionID)).Err()
}

// Lock acquires a distributed lock for a session. The lock expires after 30s.
func (s *RedisStore) Lock(ctx context.Context, sessionID string) (func() error, error) {
	key := fmt.Sprintf("session:lock:%s", sessionID)
	lockValue := uuid.New().String()

	acquired, err := s.redis.SetNX(ctx, key, lockValue, 30*time.Second).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !acquired {
		return nil, ErrLockHeld
	}

	unlock := func() error {
		// only delete our own lock
		script := `
			if redis.call("get", KEYS[1]) == ARGV[1] then
				return redis.call("del", KEYS[1])
			else
				return 0
			end
		`
		return s.redis.Eval(context.Background(), script, []string{key}, lockValue).Err()
	}
	return unlock, nil
}

func ownerKey(sessionID string) string {
	return fmt.Sprintf("session:owner:%s", sessionID)
}

var claimScript = redis.NewScript(`
	local v = redis.call("get", KEYS[1])
	if v == false or v == ARGV[1] then
		redis.call("set", KEYS[1], ARGV[1], "PX", ARGV[2])
		return 1
	end
	return 0
`)

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`)

// Claim takes or renews the ownership lease of a session.
func (s *RedisStore) Claim(ctx context.Context, sessionID, owner string, ttl time.Duration) error {
	ok, err := claimScript.Run(ctx, s.redis, []string{ownerKey(sessionID)}, owner, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("claim session: %w", err)
	}
	if ok == 0 {
		return ErrLockHeld
	}
	return nil
}

// Release drops the lease when owner still holds it.
func (s *RedisStore) Release(ctx context.Context, sessionID, owner string) error {
	return releaseScript.Run(ctx, s.redis, []string{ownerKey(sessionID)}, owner).Err()
}
