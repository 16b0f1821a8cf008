package localstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, KeyDemoSession)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, KeyDemoSession, []byte(`{"id":2}`)))
	got, err := s.Get(ctx, KeyDemoSession)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":2}`, string(got))

	require.NoError(t, s.Set(ctx, KeyDemoSession, []byte(`{"id":3}`)))
	got, err = s.Get(ctx, KeyDemoSession)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":3}`, string(got))

	require.NoError(t, s.Delete(ctx, KeyDemoSession))
	require.NoError(t, s.Delete(ctx, KeyDemoSession))
	_, err = s.Get(ctx, KeyDemoSession)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, s.Set(ctx, "../escape", []byte("x")))
}

func TestFileStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	exerciseStore(t, s)

	require.NoError(t, s.Set(context.Background(), KeyAuthSession, []byte("tok")))
	info, err := os.Stat(filepath.Join(dir, KeyAuthSession+".json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStoreWithClient(client, "")
	t.Cleanup(func() { _ = s.Close() })

	exerciseStore(t, s)

	require.NoError(t, s.Set(context.Background(), KeyAuthSession, []byte("tok")))
	v, err := mr.Get("salesctl:" + KeyAuthSession)
	require.NoError(t, err)
	assert.Equal(t, "tok", v)
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisStore(context.Background(), RedisConfig{Addr: addr})
	assert.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}
