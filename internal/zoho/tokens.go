package zoho

import (
	"context"
	"database/sql"
	"errors"
	"sync"
)

// ErrNoToken means no unexpired access token exists for any user.
// Callers treat this as "enrichment unavailable", never as a hard failure.
var ErrNoToken = errors.New("no valid zoho token")

// TokenSource yields an access token usable against the Zoho APIs.
// The interactive OAuth flow that produces the stored tokens is external;
// this only reads them.
type TokenSource interface {
	// AccessToken returns a token for the given Zoho user. When the user
	// has no token of their own, any unexpired token is returned so a
	// popup can still go out. Empty zohoUserID skips straight to the
	// fallback.
	AccessToken(ctx context.Context, zohoUserID string) (string, error)
}

// PostgresTokenSource reads the zoho_tokens table populated by the OAuth
// connect flow.
type PostgresTokenSource struct {
	db *sql.DB
}

func NewPostgresTokenSource(db *sql.DB) *PostgresTokenSource {
	return &PostgresTokenSource{db: db}
}

func (s *PostgresTokenSource) AccessToken(ctx context.Context, zohoUserID string) (string, error) {
	if zohoUserID != "" {
		const q = `
SELECT access_token FROM zoho_tokens
WHERE zoho_user_id = $1 AND expires_at > now()
ORDER BY updated_at DESC
LIMIT 1
`
		var tok string
		err := s.db.QueryRowContext(ctx, q, zohoUserID).Scan(&tok)
		if err == nil {
			return tok, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return "", err
		}
	}

	const fallback = `
SELECT access_token FROM zoho_tokens
WHERE expires_at > now()
ORDER BY updated_at DESC
LIMIT 1
`
	var tok string
	err := s.db.QueryRowContext(ctx, fallback).Scan(&tok)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", err
	}
	return tok, nil
}

// StaticTokenSource serves fixed tokens; used in tests.
type StaticTokenSource struct {
	mu       sync.Mutex
	Tokens   map[string]string
	Fallback string
}

func (s *StaticTokenSource) AccessToken(ctx context.Context, zohoUserID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok, ok := s.Tokens[zohoUserID]; ok && tok != "" {
		return tok, nil
	}
	if s.Fallback != "" {
		return s.Fallback, nil
	}
	return "", ErrNoToken
}
