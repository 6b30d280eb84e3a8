package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"inspectsync/database"
	"inspectsync/domain/contracts"
	"inspectsync/logging"
)

// Session is the persisted credential of the signed-in user.
type Session struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Subject      string
	APIURL       string
	ExpiresAt    *time.Time // nil means the token does not expire
}

// Expired reports whether the access token is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}

// SQLiteStore keeps the session in the local sqlite database. It reads the
// row on every lookup so a logout or refresh from another process is seen on
// the next request.
type SQLiteStore struct {
	db     *database.Database
	now    func() time.Time
	logger *logging.Logger
}

// NewSQLiteStore creates a store over an opened database.
func NewSQLiteStore(db *database.Database, logger *logging.Logger) *SQLiteStore {
	if logger == nil {
		logger = logging.Default()
	}
	return &SQLiteStore{db: db, now: time.Now, logger: logger.WithComponent("session_store")}
}

// Save replaces the stored session.
func (s *SQLiteStore) Save(ctx context.Context, sess Session) error {
	if strings.TrimSpace(sess.AccessToken) == "" {
		return errors.New("save session: access token is required")
	}
	if sess.TokenType == "" {
		sess.TokenType = "Bearer"
	}

	var expires sql.NullInt64
	if sess.ExpiresAt != nil {
		expires = sql.NullInt64{Int64: sess.ExpiresAt.Unix(), Valid: true}
	}
	now := s.now().Unix()

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sessions (id, access_token, refresh_token, token_type, subject, api_url, expires_at, created_at, updated_at)
			VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				access_token = excluded.access_token,
				refresh_token = excluded.refresh_token,
				token_type = excluded.token_type,
				subject = excluded.subject,
				api_url = excluded.api_url,
				expires_at = excluded.expires_at,
				updated_at = excluded.updated_at`,
			sess.AccessToken, nullString(sess.RefreshToken), sess.TokenType,
			nullString(sess.Subject), nullString(sess.APIURL), expires, now, now)
		return err
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	s.logger.Database("Session saved", "subject", sess.Subject, "expires", sess.ExpiresAt != nil)
	return nil
}

// Clear removes the stored session. Clearing an empty store is not an error.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.WriteDB().ExecContext(ctx, "DELETE FROM sessions WHERE id = 1"); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.logger.Database("Session cleared")
	return nil
}

// Load returns the stored session, or contracts.ErrNoSession.
func (s *SQLiteStore) Load(ctx context.Context) (*Session, error) {
	var (
		sess                     Session
		refresh, subject, apiURL sql.NullString
		expires                  sql.NullInt64
	)
	err := s.db.ReadDB().QueryRowContext(ctx, `
		SELECT access_token, refresh_token, token_type, subject, api_url, expires_at
		FROM sessions WHERE id = 1`).
		Scan(&sess.AccessToken, &refresh, &sess.TokenType, &subject, &apiURL, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contracts.ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	sess.RefreshToken = refresh.String
	sess.Subject = subject.String
	sess.APIURL = apiURL.String
	if expires.Valid {
		t := time.Unix(expires.Int64, 0).UTC()
		sess.ExpiresAt = &t
	}
	return &sess, nil
}

// CurrentToken implements contracts.SessionStore. Missing and expired
// sessions both read as "no session".
func (s *SQLiteStore) CurrentToken(ctx context.Context) (string, bool, error) {
	sess, err := s.Load(ctx)
	if errors.Is(err, contracts.ErrNoSession) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if sess.Expired(s.now()) {
		s.logger.Debug("Stored session expired", "subject", sess.Subject)
		return "", false, nil
	}
	return sess.AccessToken, true, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

var _ contracts.SessionStore = (*SQLiteStore)(nil)
