package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrOpaqueToken is returned for bearer tokens that are not JWTs. Such
// tokens are still sent; they just cannot be inspected locally.
var ErrOpaqueToken = errors.New("token is not a JWT")

// TokenInfo is what can be read from a bearer token without the signing
// key.
type TokenInfo struct {
	Subject   string
	Username  string
	Role      string
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token carries an expiry before now.
func (t *TokenInfo) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}

// Remaining returns the time left before expiry, or 0 when expired or
// when the token never expires.
func (t *TokenInfo) Remaining(now time.Time) time.Duration {
	if t.ExpiresAt.IsZero() || t.Expired(now) {
		return 0
	}
	return t.ExpiresAt.Sub(now)
}

// InspectToken decodes the claims of a JWT bearer token. The signature is
// not verified; the backend does that on every request.
func InspectToken(raw string) (*TokenInfo, error) {
	if raw == "" {
		return nil, fmt.Errorf("no token configured")
	}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	tok, _, err := parser.ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, ErrOpaqueToken
		}
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	info := &TokenInfo{}
	info.Subject, _ = claims.GetSubject()
	info.Issuer, _ = claims.GetIssuer()
	info.Username, _ = claims["username"].(string)
	if info.Role, _ = claims["role"].(string); info.Role == "" {
		if roles, ok := claims["roles"].([]interface{}); ok && len(roles) > 0 {
			info.Role, _ = roles[0].(string)
		}
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		info.IssuedAt = iat.Time
	}
	return info, nil
}
