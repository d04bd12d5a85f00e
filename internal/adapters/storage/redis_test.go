package storage_test

import (
	"context"
	"testing"

	"github.com/alejandrodnm/memesim/internal/adapters/storage"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore_Contract(t *testing.T) {
	mr := miniredis.RunT(t)

	r, err := storage.NewRedisStore(storage.WithRedisAddr(mr.Addr()))
	require.NoError(t, err)
	defer r.Close()

	exerciseStore(t, r)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr := miniredis.RunT(t)

	r, err := storage.NewRedisStore(
		storage.WithRedisAddr(mr.Addr()),
		storage.WithRedisPrefix("memesim"),
	)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Put(context.Background(), "state", []byte("blob")))

	got, err := mr.Get("memesim:state")
	require.NoError(t, err)
	assert.Equal(t, "blob", got)
}

func TestRedisStore_PingFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := storage.NewRedisStore(storage.WithRedisAddr(addr))
	assert.Error(t, err)
}

func TestRedisStore_ServerGoneReturnsError(t *testing.T) {
	mr := miniredis.RunT(t)

	r, err := storage.NewRedisStore(storage.WithRedisAddr(mr.Addr()))
	require.NoError(t, err)
	defer r.Close()

	mr.Close()
	assert.Error(t, r.Put(context.Background(), "state", []byte("x")))
}
