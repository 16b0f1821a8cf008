// Package localstore persists small client-side records (the demo session, auth tokens)
// that must survive between salesctl invocations.
package localstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// Keys used by the session layer.
const (
	// KeyDemoSession holds the JSON identity+tenant record of a demo login.
	KeyDemoSession = "demo_user_session"
	// KeyAuthSession holds the auth provider's token pair.
	KeyAuthSession = "auth_session"
)

// ErrNotFound is returned by Get when no record exists for the key.
var ErrNotFound = errors.New("local record not found")

// Store is a byte-oriented key/value store local to the user.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes the record; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

var validKey = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

func checkKey(key string) error {
	if !validKey.MatchString(key) || key == "." || key == ".." {
		return fmt.Errorf("localstore: invalid key %q", key)
	}
	return nil
}
