package keys

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"classifier-api/internal/shared"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestValidateMasterKey(t *testing.T) {
	s := NewStore("secret", nil, nil, zap.NewNop().Sugar())

	key, err := s.Validate(context.Background(), "secret")
	require.NoError(t, err)
	assert.Equal(t, "master", key.Owner)

	_, err = s.Validate(context.Background(), "secreT")
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestValidateEmptyKey(t *testing.T) {
	// an unset master secret never matches an empty key
	s := NewStore("", nil, nil, zap.NewNop().Sugar())
	_, err := s.Validate(context.Background(), "")
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestValidateLocalCache(t *testing.T) {
	s := NewStore("secret", nil, nil, zap.NewNop().Sugar())
	s.local.Add("team-key", &Key{ID: "team-key", Owner: "research"})

	key, err := s.Validate(context.Background(), "team-key")
	require.NoError(t, err)
	assert.Equal(t, "research", key.Owner)
}

const keyQuery = "SELECT id, owner FROM api_key WHERE id = ? AND revoked = 0"

func newBackedStore(t *testing.T) (*Store, sqlmock.Sqlmock, *miniredis.Miniredis) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return NewStore("secret", db, rdb, zap.NewNop().Sugar()), mock, mr
}

func expectKeyRow(mock sqlmock.Sqlmock, id, owner string) {
	mock.ExpectQuery(regexp.QuoteMeta(keyQuery)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner"}).AddRow(id, owner))
}

func TestValidateBackedLookup(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		setup func(t *testing.T, mock sqlmock.Sqlmock, mr *miniredis.Miniredis)
		owner string
		err   error
	}{
		{
			name: "redis hit skips the database",
			key:  "team-key",
			setup: func(t *testing.T, _ sqlmock.Sqlmock, mr *miniredis.Miniredis) {
				require.NoError(t, mr.Set(shared.APIKeyCachePrefix+"team-key", `{"id":"team-key","owner":"research"}`))
			},
			owner: "research",
		},
		{
			name: "redis miss falls through to mysql",
			key:  "team-key",
			setup: func(_ *testing.T, mock sqlmock.Sqlmock, _ *miniredis.Miniredis) {
				expectKeyRow(mock, "team-key", "research")
			},
			owner: "research",
		},
		{
			name: "corrupt cache entry falls through to mysql",
			key:  "team-key",
			setup: func(t *testing.T, mock sqlmock.Sqlmock, mr *miniredis.Miniredis) {
				require.NoError(t, mr.Set(shared.APIKeyCachePrefix+"team-key", "not json"))
				expectKeyRow(mock, "team-key", "research")
			},
			owner: "research",
		},
		{
			name: "revoked or unknown key",
			key:  "gone-key",
			setup: func(_ *testing.T, mock sqlmock.Sqlmock, _ *miniredis.Miniredis) {
				mock.ExpectQuery(regexp.QuoteMeta(keyQuery)).
					WithArgs("gone-key").
					WillReturnRows(sqlmock.NewRows([]string{"id", "owner"}))
			},
			err: shared.ErrUnauthorized,
		},
		{
			name: "database error",
			key:  "team-key",
			setup: func(_ *testing.T, mock sqlmock.Sqlmock, _ *miniredis.Miniredis) {
				mock.ExpectQuery(regexp.QuoteMeta(keyQuery)).
					WithArgs("team-key").
					WillReturnError(errors.New("connection refused"))
			},
			err: shared.ErrUnauthorized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock, mr := newBackedStore(t)
			tt.setup(t, mock, mr)

			key, err := s.Validate(context.Background(), tt.key)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				assert.Nil(t, key)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.owner, key.Owner)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestValidateCachesDatabaseHit(t *testing.T) {
	s, mock, mr := newBackedStore(t)
	expectKeyRow(mock, "team-key", "research")

	key, err := s.Validate(context.Background(), "team-key")
	require.NoError(t, err)
	assert.Equal(t, &Key{ID: "team-key", Owner: "research"}, key)

	cacheKey := shared.APIKeyCachePrefix + "team-key"
	require.Eventually(t, func() bool { return mr.Exists(cacheKey) }, time.Second, 10*time.Millisecond)
	cached, err := mr.Get(cacheKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"team-key","owner":"research"}`, cached)
	assert.Equal(t, shared.APIKeyCacheTTL, mr.TTL(cacheKey))

	// served from the in-process LRU: no query is expected and redis is empty
	mr.FlushAll()
	again, err := s.Validate(context.Background(), "team-key")
	require.NoError(t, err)
	assert.Equal(t, key, again)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateRedisDown(t *testing.T) {
	s, mock, mr := newBackedStore(t)
	mr.Close()
	expectKeyRow(mock, "team-key", "research")

	key, err := s.Validate(context.Background(), "team-key")
	require.NoError(t, err)
	assert.Equal(t, "research", key.Owner)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateWithoutRedis(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := NewStore("secret", db, nil, zap.NewNop().Sugar())
	expectKeyRow(mock, "team-key", "research")

	key, err := s.Validate(context.Background(), "team-key")
	require.NoError(t, err)
	assert.Equal(t, "research", key.Owner)
	assert.NoError(t, mock.ExpectationsWereMet())
}
