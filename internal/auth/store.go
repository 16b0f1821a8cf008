package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/localstore"
)

// LoadSession reads the persisted session. Returns (nil, nil) when none is stored.
// A record that does not decode is deleted and reported as absent.
func LoadSession(ctx context.Context, store localstore.Store) (*Session, error) {
	raw, err := store.Get(ctx, localstore.KeyAuthSession)
	if errors.Is(err, localstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load auth session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil || s.AccessToken == "" {
		_ = store.Delete(ctx, localstore.KeyAuthSession)
		return nil, nil
	}
	return &s, nil
}

// SaveSession persists s under localstore.KeyAuthSession.
func SaveSession(ctx context.Context, store localstore.Store, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := store.Set(ctx, localstore.KeyAuthSession, raw); err != nil {
		return fmt.Errorf("save auth session: %w", err)
	}
	return nil
}

// ClearSession removes the persisted session.
func ClearSession(ctx context.Context, store localstore.Store) error {
	return store.Delete(ctx, localstore.KeyAuthSession)
}
