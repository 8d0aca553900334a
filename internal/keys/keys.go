// Package keys validates API keys against the master secret and the api_key
// table, caching hits in-process and in redis.
package keys

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"encoding/json"
	"errors"

	"classifier-api/internal/shared"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Key is the identity behind a valid API key.
type Key struct {
	ID    string `json:"id"`
	Owner string `json:"owner"`
}

const masterOwner = "master"

type Validator interface {
	Validate(ctx context.Context, apiKey string) (*Key, error)
}

// Store checks keys. The database and redis are optional; without a
// database only the master key is accepted.
type Store struct {
	master string
	db     *sql.DB
	redis  *redis.Client
	local  *expirable.LRU[string, *Key]
	log    *zap.SugaredLogger
}

func NewStore(master string, db *sql.DB, redisClient *redis.Client, log *zap.SugaredLogger) *Store {
	return &Store{
		master: master,
		db:     db,
		redis:  redisClient,
		local:  expirable.NewLRU[string, *Key](shared.APIKeyLocalSize, nil, shared.APIKeyLocalTTL),
		log:    log,
	}
}

func (s *Store) Validate(ctx context.Context, apiKey string) (*Key, error) {
	if apiKey == "" {
		return nil, shared.ErrUnauthorized
	}
	if s.master != "" && subtle.ConstantTimeCompare([]byte(apiKey), []byte(s.master)) == 1 {
		return &Key{ID: masterOwner, Owner: masterOwner}, nil
	}
	if key, ok := s.local.Get(apiKey); ok {
		return key, nil
	}
	if s.db == nil {
		return nil, shared.ErrUnauthorized
	}

	cacheKey := shared.APIKeyCachePrefix + apiKey
	if s.redis != nil {
		cached, err := s.redis.Get(ctx, cacheKey).Result()
		switch {
		case err == nil:
			var key Key
			if err := json.Unmarshal([]byte(cached), &key); err == nil {
				s.local.Add(apiKey, &key)
				return &key, nil
			}
			s.log.Errorw("Error unmarshalling api key cache", "error", err)
		case !errors.Is(err, redis.Nil):
			s.log.Warnw("Redis lookup failed", "error", err)
		}
		s.log.Debugw("API key cache miss", "key", cacheKey)
	}

	var key Key
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner
		FROM api_key
		WHERE id = ? AND revoked = 0
	`, apiKey).Scan(&key.ID, &key.Owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.log.Warnw("Invalid or revoked API key")
			return nil, shared.ErrUnauthorized
		}
		s.log.Errorw("Database error during API key validation", "error", err)
		return nil, shared.ErrUnauthorized
	}
	s.local.Add(apiKey, &key)

	if s.redis != nil {
		go func() {
			payload, err := json.Marshal(key)
			if err != nil {
				s.log.Errorw("Error marshalling api key", "error", err)
				return
			}
			if err := s.redis.Set(context.Background(), cacheKey, payload, shared.APIKeyCacheTTL).Err(); err != nil {
				s.log.Warnw("Failed caching api key", "error", err)
			}
		}()
	}
	return &key, nil
}
