package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/oauth2"

	"inspectsync/domain/contracts"
	"inspectsync/logging"
)

// OAuth2Store yields tokens from an oauth2.TokenSource. Expiry and refresh
// are handled by the source.
type OAuth2Store struct {
	source oauth2.TokenSource
	logger *logging.Logger
}

// NewOAuth2Store wraps src. The source is expected to cache its own tokens,
// as those from oauth2.Config.TokenSource and oauth2.ReuseTokenSource do.
func NewOAuth2Store(src oauth2.TokenSource, logger *logging.Logger) *OAuth2Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &OAuth2Store{source: src, logger: logger.WithComponent("oauth2_session")}
}

// CurrentToken implements contracts.SessionStore.
func (s *OAuth2Store) CurrentToken(ctx context.Context) (string, bool, error) {
	tok, err := s.source.Token()
	if err != nil {
		var retrieve *oauth2.RetrieveError
		if errors.As(err, &retrieve) && retrieve.Response != nil {
			s.logger.Warn("Token refresh rejected", "status", retrieve.Response.StatusCode, "error_code", retrieve.ErrorCode)
		}
		return "", false, fmt.Errorf("obtain token: %w", err)
	}
	if tok == nil || tok.AccessToken == "" {
		return "", false, nil
	}
	return tok.AccessToken, true, nil
}

// RefreshConfig describes the identity provider's refresh-token grant.
type RefreshConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// Enabled reports whether enough settings are present to refresh tokens.
func (c RefreshConfig) Enabled() bool {
	return c.TokenURL != "" && c.ClientID != ""
}

// NewRefreshingStore builds an OAuth2Store seeded from the persisted session.
// Refreshed tokens are written back to sessions so other processes pick them up.
func NewRefreshingStore(ctx context.Context, cfg RefreshConfig, sessions *SQLiteStore, logger *logging.Logger) (*OAuth2Store, error) {
	if !cfg.Enabled() {
		return nil, errors.New("oauth2 refresh is not configured")
	}
	sess, err := sessions.Load(ctx)
	if err != nil {
		return nil, err
	}
	if sess.RefreshToken == "" {
		return nil, errors.New("stored session has no refresh token")
	}

	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       cfg.Scopes,
		Endpoint:     oauth2.Endpoint{TokenURL: cfg.TokenURL},
	}
	seed := &oauth2.Token{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		TokenType:    sess.TokenType,
	}
	if sess.ExpiresAt != nil {
		seed.Expiry = *sess.ExpiresAt
	}

	src := &persistingSource{
		ctx:      context.WithoutCancel(ctx),
		base:     conf.TokenSource(ctx, seed),
		sessions: sessions,
		template: *sess,
		last:     seed.AccessToken,
	}
	return NewOAuth2Store(src, logger), nil
}

// persistingSource saves every newly issued access token.
type persistingSource struct {
	ctx      context.Context
	base     oauth2.TokenSource
	sessions *SQLiteStore
	template Session

	mu   sync.Mutex
	last string
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken == p.last {
		return tok, nil
	}

	sess := p.template
	sess.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		sess.RefreshToken = tok.RefreshToken
	}
	if tok.TokenType != "" {
		sess.TokenType = tok.TokenType
	}
	sess.ExpiresAt = nil
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry
		sess.ExpiresAt = &expiry
	}
	if err := p.sessions.Save(p.ctx, sess); err != nil {
		// The fresh token is still usable for this process.
		p.sessions.logger.Warn("Failed to persist refreshed token", "error", err)
	} else {
		p.template = sess
	}
	p.last = tok.AccessToken
	return tok, nil
}

var _ contracts.SessionStore = (*OAuth2Store)(nil)
