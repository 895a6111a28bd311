package token

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// DefaultTTL is the bearer token lifetime. There is no refresh path; expiry
// requires a fresh login.
const DefaultTTL = 7 * 24 * time.Hour

// acceptableSkew is the clock-skew tolerance on exp/iat during verification.
const acceptableSkew = 30 * time.Second

// ErrInvalidToken is the single failure kind surfaced by Verify. Callers
// must not let a client distinguish "expired" from "tampered".
var ErrInvalidToken = errors.New("invalid token")

// Claims are the verified contents of a bearer token.
type Claims struct {
	UserID     string
	DeviceID   string
	JwtID      string
	IssuedAt   time.Time
	Expiration time.Time
}

// Issuer mints and validates bearer tokens bound to (user, device), signed
// HS256 with a process-wide secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer creates an Issuer with the given secret and token TTL.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

// Issue signs a new token for the given user and device. The jti is random
// and exists for uniqueness only; it is not tracked in a replay cache.
func (i *Issuer) Issue(userID, deviceID string) (string, error) {
	now := time.Now()

	tok, err := jwt.NewBuilder().
		IssuedAt(now).
		Expiration(now.Add(i.ttl)).
		JwtID(uuid.NewString()).
		Claim("userId", userID).
		Claim("deviceId", deviceID).
		Build()
	if err != nil {
		return "", err
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256(), i.secret))
	if err != nil {
		return "", err
	}
	return string(signed), nil
}

// Verify parses and validates a token. The algorithm is pinned to HS256, so
// "none" and asymmetric algorithms are rejected outright. Every failure
// (bad signature, expired, malformed claims) collapses to ErrInvalidToken.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	tok, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKey(jwa.HS256(), i.secret),
		jwt.WithValidate(true),
		jwt.WithAcceptableSkew(acceptableSkew),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	if err := tok.Get("userId", &claims.UserID); err != nil || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	if err := tok.Get("deviceId", &claims.DeviceID); err != nil || claims.DeviceID == "" {
		return nil, ErrInvalidToken
	}
	claims.JwtID, _ = tok.JwtID()
	claims.IssuedAt, _ = tok.IssuedAt()
	claims.Expiration, _ = tok.Expiration()
	return claims, nil
}
