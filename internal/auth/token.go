package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/maintenance-portal/internal/domain"
)

const (
	tokenIssuer = "maintenance-portal"
	defaultTTL  = time.Hour
)

// AccountClaims is the access token payload. The account id is the standard
// subject. Role records what the account held at login; middleware reloads
// the account and authorizes against the stored role.
type AccountClaims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// AccountID returns the account the token was issued to.
func (c *AccountClaims) AccountID() string {
	return c.Subject
}

// TokenManager signs and checks HS256 access tokens for portal accounts.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager builds a manager whose tokens live ttlMinutes, or an hour
// when ttlMinutes is not positive.
func NewTokenManager(secret string, ttlMinutes int) *TokenManager {
	ttl := defaultTTL
	if ttlMinutes > 0 {
		ttl = time.Duration(ttlMinutes) * time.Minute
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for account and reports when it expires.
func (tm *TokenManager) Issue(account *domain.Account) (string, time.Time, error) {
	if account == nil || account.ID == "" {
		return "", time.Time{}, errors.New("token needs an account id")
	}
	issuedAt := tm.now()
	expiresAt := issuedAt.Add(tm.ttl)
	claims := AccountClaims{
		Role: account.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   account.ID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify checks signature, issuer and expiry of raw and returns its claims.
func (tm *TokenManager) Verify(raw string) (*AccountClaims, error) {
	claims := &AccountClaims{}
	key := func(*jwt.Token) (any, error) { return tm.secret, nil }
	_, err := jwt.ParseWithClaims(raw, claims, key,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		return nil, err
	}
	if claims.AccountID() == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}
