// ABOUTME: Tests for secret providers and the cached token source
// ABOUTME: Covers TTL caching, secret shapes, and env override
package secrets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type countingProvider struct {
	value string
	err   error
	calls int
}

func (p *countingProvider) GetSecret(_ context.Context, _ string) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return p.value, nil
}

func TestExtractToken(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"pat-na1-abc123", "pat-na1-abc123"},
		{`{"HUBSPOT_TOKEN":"from-json"}`, "from-json"},
		{`{"token":"lower-key"}`, "lower-key"},
		{`{"other":"x"}`, `{"other":"x"}`},
		{"  padded  ", "padded"},
		{"", ""},
	}
	for _, c := range cases {
		if got := ExtractToken(c.in); got != c.want {
			t.Errorf("ExtractToken(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTokenCachedWithinTTL(t *testing.T) {
	t.Setenv("HUBSPOT_TOKEN", "")

	provider := &countingProvider{value: "secret-token"}
	src := NewTokenSource(provider, "HUBSPOT", time.Minute)

	clock := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	src.now = func() time.Time { return clock }

	tok, err := src.Token()
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if tok.AccessToken != "secret-token" {
		t.Errorf("Expected secret-token, got %s", tok.AccessToken)
	}

	// Second call inside the TTL reuses the cache.
	clock = clock.Add(30 * time.Second)
	if _, err := src.Token(); err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if provider.calls != 1 {
		t.Errorf("Expected 1 provider call, got %d", provider.calls)
	}

	// After the TTL the provider is consulted again.
	clock = clock.Add(45 * time.Second)
	if _, err := src.Token(); err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if provider.calls != 2 {
		t.Errorf("Expected 2 provider calls, got %d", provider.calls)
	}
}

func TestTokenFirstFetchFailureIsFatal(t *testing.T) {
	t.Setenv("HUBSPOT_TOKEN", "")

	provider := &countingProvider{err: fmt.Errorf("access denied")}
	src := NewTokenSource(provider, "HUBSPOT", time.Minute)

	if _, err := src.Token(); err == nil {
		t.Fatal("Expected error when the first fetch fails")
	}
}

func TestTokenEnvOverride(t *testing.T) {
	t.Setenv("HUBSPOT_TOKEN", "env-token")

	provider := &countingProvider{value: "unused"}
	src := NewTokenSource(provider, "HUBSPOT", time.Minute)

	tok, err := src.Token()
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if tok.AccessToken != "env-token" {
		t.Errorf("Expected env-token, got %s", tok.AccessToken)
	}
	if provider.calls != 0 {
		t.Errorf("Provider should not be called with env override, got %d calls", provider.calls)
	}
}

func TestFileProvider(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "HUBSPOT"), []byte("file-token\n"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	p := FileProvider{Dir: dir}
	got, err := p.GetSecret(context.Background(), "HUBSPOT")
	if err != nil {
		t.Fatalf("GetSecret failed: %v", err)
	}
	if got != "file-token" {
		t.Errorf("Expected file-token, got %q", got)
	}

	if _, err := p.GetSecret(context.Background(), "MISSING"); err == nil {
		t.Error("Expected error for missing secret file")
	}
}
