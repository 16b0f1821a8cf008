package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/localstore"
)

func TestHub_PublishOrderAndUnsubscribe(t *testing.T) {
	var h Hub
	var got []string
	unsubA := h.Subscribe(func(e Event) { got = append(got, "a:"+string(e.Kind)) })
	h.Subscribe(func(e Event) { got = append(got, "b:"+string(e.Kind)) })

	h.Publish(Event{Kind: SignedIn})
	unsubA()
	unsubA()
	h.Publish(Event{Kind: SignedOut})

	assert.Equal(t, []string{"a:signed_in", "b:signed_in", "b:signed_out"}, got)
}

func TestHub_ListenerMayUnsubscribeItself(t *testing.T) {
	var h Hub
	calls := 0
	var unsub func()
	unsub = h.Subscribe(func(Event) {
		calls++
		unsub()
	})
	h.Publish(Event{Kind: TokenRefreshed})
	h.Publish(Event{Kind: TokenRefreshed})
	assert.Equal(t, 1, calls)
}

func TestSession_Expired(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s := &Session{ExpiresAt: now.Add(time.Minute)}
	assert.False(t, s.Expired(now, 0))
	assert.True(t, s.Expired(now, time.Minute))
	var none *Session
	assert.True(t, none.Expired(now, 0))
}

func TestSessionPersistence(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemoryStore()

	got, err := LoadSession(ctx, store)
	require.NoError(t, err)
	assert.Nil(t, got)

	s := &Session{AccessToken: "a", RefreshToken: "r", UserID: "7", Email: "ana@empresa.com",
		ExpiresAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	require.NoError(t, SaveSession(ctx, store, s))
	got, err = LoadSession(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, s, got)

	require.NoError(t, ClearSession(ctx, store))
	got, err = LoadSession(ctx, store)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLoadSession_DropsCorruptRecord(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemoryStore()
	require.NoError(t, store.Set(ctx, localstore.KeyAuthSession, []byte("{not json")))

	got, err := LoadSession(ctx, store)
	require.NoError(t, err)
	assert.Nil(t, got)
	_, err = store.Get(ctx, localstore.KeyAuthSession)
	assert.ErrorIs(t, err, localstore.ErrNotFound)
}
