package contracts

import (
	"context"
	"errors"
)

// SessionStore yields the bearer credential of the current session. It is
// consulted on every request because tokens can be refreshed or revoked
// between calls. ok is false when there is no session.
type SessionStore interface {
	CurrentToken(ctx context.Context) (token string, ok bool, err error)
}

// ErrNoSession is returned by stores that distinguish "never logged in".
var ErrNoSession = errors.New("no active session")
