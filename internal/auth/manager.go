package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/cliptube/backend/internal/models"
)

// ErrStaleRefreshToken indicates the presented refresh token no longer equals
// the value stored on the account. Concurrent rotation and forgery both land
// here; the two cases are deliberately indistinguishable.
var ErrStaleRefreshToken = errors.New("refresh token stale or tampered")

// CredentialStore persists the single currently-valid refresh token per
// account.
type CredentialStore interface {
	// SetRefreshToken unconditionally overwrites the stored value.
	SetRefreshToken(ctx context.Context, userID, token string) error
	// SwapRefreshToken writes next only if the stored value still equals
	// current, failing with ErrStaleRefreshToken otherwise.
	SwapRefreshToken(ctx context.Context, userID, current, next string) error
	// ClearRefreshToken removes the stored value. Idempotent.
	ClearRefreshToken(ctx context.Context, userID string) error
}

// Manager manages the session-credential lifecycle: issuing token pairs,
// rotating refresh tokens, and invalidating sessions.
type Manager struct {
	tokens *TokenProvider
	creds  CredentialStore
}

// NewManager constructs a Manager backed by the provided token provider and
// credential store.
func NewManager(tokens *TokenProvider, creds CredentialStore) *Manager {
	if tokens == nil {
		panic("auth: token provider must not be nil")
	}
	if creds == nil {
		panic("auth: credential store must not be nil")
	}
	return &Manager{tokens: tokens, creds: creds}
}

// Issue mints a new access/refresh pair for the user and persists the refresh
// token onto the account, overwriting any prior value. Overwriting implicitly
// revokes the previous session line.
func (m *Manager) Issue(ctx context.Context, userID string) (models.SessionTokens, error) {
	if userID == "" {
		return models.SessionTokens{}, errors.New("user id must be provided")
	}

	pair, err := m.mint(userID)
	if err != nil {
		return models.SessionTokens{}, err
	}

	if err := m.creds.SetRefreshToken(ctx, userID, pair.RefreshToken); err != nil {
		return models.SessionTokens{}, fmt.Errorf("persist refresh token: %w", err)
	}

	return pair, nil
}

// ValidateAccess verifies an access token and returns the authenticated user
// id.
func (m *Manager) ValidateAccess(token string) (string, error) {
	return m.tokens.ValidateAccess(token)
}

// Rotate exchanges a refresh token for a fresh pair. The stored value is
// swapped with a compare-and-set conditioned on the presented token, so of two
// concurrent rotations with the same token exactly one succeeds and the other
// fails with ErrStaleRefreshToken.
func (m *Manager) Rotate(ctx context.Context, presented string) (models.SessionTokens, error) {
	if presented == "" {
		return models.SessionTokens{}, ErrTokenInvalid
	}

	userID, err := m.tokens.ValidateRefresh(presented)
	if err != nil {
		return models.SessionTokens{}, err
	}

	pair, err := m.mint(userID)
	if err != nil {
		return models.SessionTokens{}, err
	}

	if err := m.creds.SwapRefreshToken(ctx, userID, presented, pair.RefreshToken); err != nil {
		if errors.Is(err, ErrStaleRefreshToken) {
			return models.SessionTokens{}, ErrStaleRefreshToken
		}
		return models.SessionTokens{}, fmt.Errorf("rotate refresh token: %w", err)
	}

	return pair, nil
}

// Invalidate clears the stored refresh token, unconditionally ending the
// session line. Safe to call repeatedly.
func (m *Manager) Invalidate(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	return m.creds.ClearRefreshToken(ctx, userID)
}

func (m *Manager) mint(userID string) (models.SessionTokens, error) {
	access, accessExp, err := m.tokens.IssueAccess(userID)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("issue access token: %w", err)
	}

	refresh, refreshExp, err := m.tokens.IssueRefresh(userID)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("issue refresh token: %w", err)
	}

	return models.SessionTokens{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}
