package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"game-builder/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	redisKeyPrefix   = "gamebuilder:"
	redisProfilesKey = redisKeyPrefix + "profiles"    // sorted set, score = creation sequence
	redisSequenceKey = redisKeyPrefix + "profile_seq" // creation counter
	maxTxRetries     = 5
)

var _ UserStore = (*RedisUserStore)(nil)

// RedisUserStore keeps one JSON profile per key. Every mutation is an
// optimistic transaction on the profile key, so concurrent builders can
// share the store.
type RedisUserStore struct {
	client *redis.Client
	now    func() time.Time
	logger *zap.Logger
}

// NewRedisUserStore wraps an existing client.
func NewRedisUserStore(client *redis.Client, logger *zap.Logger) *RedisUserStore {
	return &RedisUserStore{
		client: client,
		now:    time.Now,
		logger: logger.Named("RedisUserStore"),
	}
}

// OpenRedisUserStore connects to addr and checks the connection.
func OpenRedisUserStore(ctx context.Context, opts *redis.Options, logger *zap.Logger) (*RedisUserStore, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: connect to redis at %s: %v", domain.ErrPersistence, opts.Addr, err)
	}
	return NewRedisUserStore(client, logger), nil
}

func profileKey(username string) string {
	return redisKeyPrefix + "profile:" + username
}

// GetOrCreate implements UserStore.
func (r *RedisUserStore) GetOrCreate(ctx context.Context, username string) (*domain.UserProfile, error) {
	name := domain.NormalizeUsername(username)
	if name == "" {
		return nil, domain.ErrInvalidUsername
	}
	key := profileKey(name)

	var profile *domain.UserProfile
	txf := func(tx *redis.Tx) error {
		existing, err := r.load(ctx, tx, key)
		if err == nil {
			profile = existing
			return nil
		}
		if !errors.Is(err, domain.ErrUserNotFound) {
			return err
		}

		created := domain.NewUserProfile(name, displayName(name), r.now())
		data, err := json.Marshal(created)
		if err != nil {
			return err
		}
		seq, err := tx.Incr(ctx, redisSequenceKey).Result()
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.ZAdd(ctx, redisProfilesKey, redis.Z{Score: float64(seq), Member: name})
			return nil
		})
		if err == nil {
			profile = created
			r.logger.Info("Profile created", zap.String("username", name))
		}
		return err
	}

	if err := r.watch(ctx, txf, key); err != nil {
		return nil, err
	}
	return profile, nil
}

// RecordResult implements UserStore.
func (r *RedisUserStore) RecordResult(ctx context.Context, username string, result domain.GameResult) (*domain.UserProfile, error) {
	name := domain.NormalizeUsername(username)
	if name == "" {
		return nil, domain.ErrInvalidUsername
	}
	key := profileKey(name)
	result = stampResult(result, r.now())

	var profile *domain.UserProfile
	txf := func(tx *redis.Tx) error {
		current, err := r.load(ctx, tx, key)
		if err != nil {
			return err
		}
		current.Apply(result)
		data, err := json.Marshal(current)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		if err == nil {
			profile = current
		}
		return err
	}

	if err := r.watch(ctx, txf, key); err != nil {
		return nil, err
	}
	r.logger.Debug("Result recorded", zap.String("username", name), zap.Int("score", result.Score))
	return profile, nil
}

// TopLeaderboard implements UserStore.
func (r *RedisUserStore) TopLeaderboard(ctx context.Context, n int) ([]domain.LeaderboardEntry, error) {
	names, err := r.client.ZRange(ctx, redisProfilesKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: list profiles: %v", domain.ErrPersistence, err)
	}
	if len(names) == 0 {
		return []domain.LeaderboardEntry{}, nil
	}

	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = profileKey(name)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: load profiles: %v", domain.ErrPersistence, err)
	}

	profiles := make([]*domain.UserProfile, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var p domain.UserProfile
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			r.logger.Warn("Skipping corrupt profile", zap.String("key", keys[i]), zap.Error(err))
			continue
		}
		profiles = append(profiles, &p)
	}
	return domain.RankLeaderboard(profiles, n), nil
}

// Close implements UserStore.
func (r *RedisUserStore) Close() error {
	return r.client.Close()
}

func (r *RedisUserStore) load(ctx context.Context, tx *redis.Tx, key string) (*domain.UserProfile, error) {
	raw, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUserNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	var p domain.UserProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", key, err)
	}
	if p.GamesHistory == nil {
		p.GamesHistory = []domain.GameResult{}
	}
	return &p, nil
}

// watch runs txf under WATCH on keys, retrying when another client wins the race.
func (r *RedisUserStore) watch(ctx context.Context, txf func(*redis.Tx) error, keys ...string) error {
	for attempt := 1; attempt <= maxTxRetries; attempt++ {
		err := r.client.Watch(ctx, txf, keys...)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			r.logger.Debug("Profile transaction conflict, retrying", zap.Strings("keys", keys), zap.Int("attempt", attempt))
			continue
		}
		if errors.Is(err, domain.ErrUserNotFound) {
			return err
		}
		r.logger.Error("Profile transaction failed", zap.Strings("keys", keys), zap.Error(err))
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return fmt.Errorf("%w: too many conflicting updates on %v", domain.ErrPersistence, keys)
}
