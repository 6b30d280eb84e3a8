// Package session provides the credential sources consulted by the API
// client on every request.
package session

import (
	"context"

	"inspectsync/domain/contracts"
)

// StaticStore always yields the same token. An empty token means no session.
type StaticStore struct {
	Token string
}

// NewStaticStore returns a store for a fixed token, e.g. from INSPECT_ACCESS_TOKEN.
func NewStaticStore(token string) *StaticStore {
	return &StaticStore{Token: token}
}

func (s *StaticStore) CurrentToken(ctx context.Context) (string, bool, error) {
	return s.Token, s.Token != "", nil
}

var _ contracts.SessionStore = (*StaticStore)(nil)
