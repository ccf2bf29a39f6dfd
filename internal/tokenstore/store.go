// Package tokenstore persists the bearer token and the derived patient id across restarts.
//
// The store is byte-transparent: it never inspects what it holds. Put and Snapshot move
// both keys in one step so the token and the id flag cannot drift apart.
package tokenstore

import (
	"context"
	"errors"
)

// ErrAbsent is returned by reads when the key is not stored.
var ErrAbsent = errors.New("not stored")

const (
	KeyToken  = "token"
	KeyUserID = "id"
)

// Flags is the full persisted client state. An empty field means the key is absent.
type Flags struct {
	Token  string
	UserID string
}

func (f Flags) HasToken() bool  { return f.Token != "" }
func (f Flags) HasUserID() bool { return f.UserID != "" }

type Store interface {
	// Save overwrites the token; the id flag is left untouched.
	Save(ctx context.Context, token string) error
	Load(ctx context.Context) (string, error)
	// Clear removes the token and the id flag.
	Clear(ctx context.Context) error

	SaveUserID(ctx context.Context, id string) error
	LoadUserID(ctx context.Context) (string, error)

	// Put replaces both keys atomically; an empty field deletes its key.
	Put(ctx context.Context, flags Flags) error
	Snapshot(ctx context.Context) (Flags, error)

	Close() error
}
