package lease

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisAcquire(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client)

	mock.ExpectSetNX("lease:pool:1", "holder-a", 30*time.Second).SetVal(true)
	held, err := store.Acquire(context.Background(), "pool:1", "holder-a", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, held)

	mock.ExpectSetNX("lease:pool:1", "holder-b", 30*time.Second).SetVal(false)
	held, err = store.Acquire(context.Background(), "pool:1", "holder-b", 30*time.Second)
	require.NoError(t, err)
	assert.False(t, held)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisReleaseMatchingHolder(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client)

	mock.ExpectEvalSha(releaseScript.Hash(), []string{"lease:pool:1"}, "holder-a").SetVal(int64(1))
	require.NoError(t, store.Release(context.Background(), "pool:1", "holder-a"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisReleaseMismatchedHolder(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client)

	// The script leaves the key alone and reports zero deletions.
	mock.ExpectEvalSha(releaseScript.Hash(), []string{"lease:pool:1"}, "holder-b").SetVal(int64(0))
	require.NoError(t, store.Release(context.Background(), "pool:1", "holder-b"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisSweepIsNoop(t *testing.T) {
	client, _ := redismock.NewClientMock()
	store := NewRedisStore(client)

	removed, err := store.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, removed)
}
