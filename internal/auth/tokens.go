package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrTokenInvalid indicates a malformed token or a signature mismatch.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired indicates the token was well-formed but past its expiry.
	ErrTokenExpired = errors.New("token expired")
)

var signingMethods = []string{jwt.SigningMethodHS256.Alg()}

// TokenProvider signs and verifies the two JWT flavours used by sessions.
// Access and refresh tokens are signed with distinct secrets so one can never
// be presented in place of the other.
type TokenProvider struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration

	now func() time.Time
}

// NewTokenProvider constructs a provider issuing access tokens valid for
// accessTTL and refresh tokens valid for refreshTTL.
func NewTokenProvider(accessSecret, refreshSecret []byte, accessTTL, refreshTTL time.Duration) *TokenProvider {
	if len(accessSecret) == 0 || len(refreshSecret) == 0 {
		panic("auth: token secrets must not be empty")
	}
	if string(accessSecret) == string(refreshSecret) {
		panic("auth: access and refresh secrets must differ")
	}
	return &TokenProvider{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// IssueAccess mints a short-lived access token carrying the user identity.
func (p *TokenProvider) IssueAccess(userID string) (string, time.Time, error) {
	return p.sign(userID, p.accessSecret, p.accessTTL)
}

// IssueRefresh mints a long-lived refresh token carrying the user identity.
func (p *TokenProvider) IssueRefresh(userID string) (string, time.Time, error) {
	return p.sign(userID, p.refreshSecret, p.refreshTTL)
}

func (p *TokenProvider) sign(userID string, secret []byte, ttl time.Duration) (string, time.Time, error) {
	now := p.now().UTC()
	expiresAt := now.Add(ttl)
	// The jti keeps two tokens minted within the same second from being
	// byte-identical; rotation compares token values exactly.
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// ValidateAccess verifies an access token and returns the user id it was
// issued for.
func (p *TokenProvider) ValidateAccess(token string) (string, error) {
	return p.verify(token, p.accessSecret)
}

// ValidateRefresh verifies a refresh token and returns the user id it claims
// to belong to. The caller must still compare the token against the stored
// per-account value before trusting it.
func (p *TokenProvider) ValidateRefresh(token string) (string, error) {
	return p.verify(token, p.refreshSecret)
}

func (p *TokenProvider) verify(token string, secret []byte) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods(signingMethods))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrTokenInvalid
	}
	return claims.Subject, nil
}
