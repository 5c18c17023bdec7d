package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jrsteele09/go-course-client/internal/config"
	"github.com/jrsteele09/go-course-client/sessions"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	sessionKeyPrefix = "session:"
	userIndexPrefix  = "user_sessions:"
)

// RedisRecordRepo stores session records in Redis, one JSON value per session
// token plus a per-user index set used by revoke-all.
type RedisRecordRepo struct {
	client *redis.Client
}

var _ RecordRepo = (*RedisRecordRepo)(nil)

// NewRedisRecordRepo connects to the configured Redis instance. Fails fast
// when the instance is unreachable rather than surfacing errors per call.
func NewRedisRecordRepo(cfg config.RedisConfig) (*RedisRecordRepo, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.GetRedisPassword(),
		DB:       0,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, errors.Wrap(err, "[NewRedisRecordRepo] ping")
	}

	return &RedisRecordRepo{client: client}, nil
}

// NewRedisRecordRepoWithClient wraps an existing client (primarily for testing).
func NewRedisRecordRepoWithClient(client *redis.Client) *RedisRecordRepo {
	return &RedisRecordRepo{client: client}
}

func (r *RedisRecordRepo) Get(ctx context.Context, token string) (sessions.Session, bool, error) {
	raw, err := r.client.Get(ctx, sessionKeyPrefix+token).Result()
	if err == redis.Nil {
		return sessions.Session{}, false, nil
	}
	if err != nil {
		log.Error().Err(err).Msg("Redis GET for session record failed")
		return sessions.Session{}, false, errors.Wrap(err, "[RedisRecordRepo.Get] GET")
	}

	var session sessions.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return sessions.Session{}, false, errors.Wrap(err, "[RedisRecordRepo.Get] unmarshal")
	}
	return session, true, nil
}

func (r *RedisRecordRepo) Put(ctx context.Context, token string, session sessions.Session, ttl time.Duration) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return errors.Wrap(err, "[RedisRecordRepo.Put] marshal")
	}

	if err := r.client.Set(ctx, sessionKeyPrefix+token, raw, ttl).Err(); err != nil {
		log.Error().Err(err).Dur("ttl", ttl).Msg("Redis SET for session record failed")
		return errors.Wrap(err, "[RedisRecordRepo.Put] SET")
	}

	if session.User != nil {
		indexKey := userIndexPrefix + session.User.ID
		if err := r.client.SAdd(ctx, indexKey, token).Err(); err != nil {
			return errors.Wrap(err, "[RedisRecordRepo.Put] SADD")
		}
		if err := r.client.Expire(ctx, indexKey, ttl).Err(); err != nil {
			return errors.Wrap(err, "[RedisRecordRepo.Put] EXPIRE")
		}
	}
	return nil
}

func (r *RedisRecordRepo) Delete(ctx context.Context, token string) error {
	return r.client.Del(ctx, sessionKeyPrefix+token).Err()
}

func (r *RedisRecordRepo) DeleteByUser(ctx context.Context, userID string) error {
	indexKey := userIndexPrefix + userID
	tokens, err := r.client.SMembers(ctx, indexKey).Result()
	if err != nil && err != redis.Nil {
		return errors.Wrap(err, "[RedisRecordRepo.DeleteByUser] SMEMBERS")
	}

	for _, token := range tokens {
		if err := r.client.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
			return errors.Wrap(err, "[RedisRecordRepo.DeleteByUser] DEL")
		}
	}
	return r.client.Del(ctx, indexKey).Err()
}

// Close closes the Redis connection
func (r *RedisRecordRepo) Close() error {
	return r.client.Close()
}
