// ABOUTME: TTL-cached bearer token source for the CRM API
// ABOUTME: Implements oauth2.TokenSource over a secret provider
package secrets

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// DefaultTokenTTL matches the deployment default of five minutes.
const DefaultTokenTTL = 5 * time.Minute

// TokenSource caches a bearer token fetched from a Provider for a TTL. The
// cache is process-local. A stale-but-unexpired token is reused as-is; the
// provider is only consulted once the TTL elapses.
type TokenSource struct {
	provider Provider
	name     string
	ttl      time.Duration
	now      func() time.Time

	mu        sync.Mutex
	token     string
	fetchedAt time.Time
}

var _ oauth2.TokenSource = (*TokenSource)(nil)

// NewTokenSource builds a cached token source for the named secret. A
// non-positive ttl falls back to DefaultTokenTTL.
func NewTokenSource(provider Provider, name string, ttl time.Duration) *TokenSource {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenSource{
		provider: provider,
		name:     name,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Token returns the cached bearer token, refreshing from the provider when
// the TTL has elapsed. The HUBSPOT_TOKEN env var bypasses the provider
// entirely (local development override).
func (s *TokenSource) Token() (*oauth2.Token, error) {
	if env := os.Getenv("HUBSPOT_TOKEN"); env != "" {
		return &oauth2.Token{AccessToken: env, TokenType: "Bearer"}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Sub(s.fetchedAt) < s.ttl {
		return &oauth2.Token{AccessToken: s.token, TokenType: "Bearer"}, nil
	}

	raw, err := s.provider.GetSecret(context.Background(), s.name)
	if err != nil {
		return nil, fmt.Errorf("credential fetch failed: %w", err)
	}
	token := ExtractToken(raw)
	if token == "" {
		return nil, fmt.Errorf("secret %s resolved to an empty token", s.name)
	}

	s.token = token
	s.fetchedAt = now
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
}
