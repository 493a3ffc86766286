package auth

import (
	"errors"
	"testing"
	"time"
)

func TestTokenProviderValidateAccess(t *testing.T) {
	provider := newTestProvider(time.Minute, time.Hour)

	token, expiresAt, err := provider.IssueAccess("user-1")
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	if !expiresAt.After(time.Now()) {
		t.Fatalf("expected future expiry, got %v", expiresAt)
	}

	userID, err := provider.ValidateAccess(token)
	if err != nil {
		t.Fatalf("validate access: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("expected user-1, got %q", userID)
	}
}

func TestTokenProviderRejectsTamperedToken(t *testing.T) {
	provider := newTestProvider(time.Minute, time.Hour)

	token, _, err := provider.IssueAccess("user-1")
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}

	if _, err := provider.ValidateAccess(token + "x"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}

	other := NewTokenProvider([]byte("other-access"), []byte("other-refresh"), time.Minute, time.Hour)
	if _, err := other.ValidateAccess(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for foreign signature, got %v", err)
	}
}

func TestTokenProviderRejectsExpiredToken(t *testing.T) {
	provider := newTestProvider(-time.Minute, time.Hour)

	token, _, err := provider.IssueAccess("user-1")
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}

	if _, err := provider.ValidateAccess(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenProviderSecretsAreDistinct(t *testing.T) {
	provider := newTestProvider(time.Minute, time.Hour)

	refresh, _, err := provider.IssueRefresh("user-1")
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}

	if _, err := provider.ValidateAccess(refresh); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected refresh token to fail access validation, got %v", err)
	}
}

func TestTokenProviderTokensAreUnique(t *testing.T) {
	provider := newTestProvider(time.Minute, time.Hour)

	first, _, err := provider.IssueRefresh("user-1")
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	second, _, err := provider.IssueRefresh("user-1")
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}

	if first == second {
		t.Fatal("expected two refresh tokens minted back to back to differ")
	}
}
