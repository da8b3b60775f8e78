package helpers

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token failure reasons, for server-side logs only.
const (
	ReasonMalformed = "malformed"
	ReasonSignature = "signature"
	ReasonExpired   = "expired"
	ReasonClaims    = "claims"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenError wraps a verification failure. It matches ErrInvalidToken and the
// underlying jwt error with errors.Is.
type TokenError struct {
	Reason string
	Err    error
}

func (e *TokenError) Error() string {
	return "invalid token (" + e.Reason + "): " + e.Err.Error()
}

func (e *TokenError) Unwrap() []error { return []error{ErrInvalidToken, e.Err} }

// Claims is the verified payload of an access token.
// Subject (sub) is the user's email; scopes are a snapshot taken at issuance.
type Claims struct {
	UserID string   `json:"uid"`
	Scopes []string `json:"scopes"`
	jwt.RegisteredClaims
}

// AccessToken is an issued, signed token plus the facts it binds.
type AccessToken struct {
	Token     string
	Subject   string
	Scopes    []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenManager issues and verifies HS256 access tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

type TokenOption func(*TokenManager)

// WithClock overrides the time source used for issuing and verifying.
func WithClock(now func() time.Time) TokenOption {
	return func(m *TokenManager) { m.now = now }
}

func NewTokenManager(secret string, ttl time.Duration, issuer string, opts ...TokenOption) *TokenManager {
	m := &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTL returns the access token lifetime.
func (m *TokenManager) TTL() time.Duration { return m.ttl }

// Issue signs a token for subject carrying scopes, valid for the configured TTL.
func (m *TokenManager) Issue(subject, userID string, scopes []string) (AccessToken, error) {
	now := m.now().Truncate(time.Second)
	exp := now.Add(m.ttl)
	snapshot := make([]string, len(scopes))
	copy(snapshot, scopes)

	claims := &Claims{
		UserID: userID,
		Scopes: snapshot,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(m.secret)
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: s, Subject: subject, Scopes: snapshot, IssuedAt: now, ExpiresAt: exp}, nil
}

// Verify checks the signature, then the time-based claims, and returns the
// payload. jwt/v5 verifies the signature before validating exp, so a forged
// token is reported as a signature failure whether or not it has expired.
func (m *TokenManager) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return m.secret, nil
	}, m.parserOptions()...)
	if err != nil {
		return nil, &TokenError{Reason: reasonFor(err), Err: err}
	}
	if !tkn.Valid {
		return nil, &TokenError{Reason: ReasonClaims, Err: errors.New("token not valid")}
	}
	if claims.Subject == "" {
		return nil, &TokenError{Reason: ReasonClaims, Err: errors.New("missing subject")}
	}
	return claims, nil
}

func (m *TokenManager) parserOptions() []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	return opts
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ReasonMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ReasonSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ReasonExpired
	default:
		return ReasonClaims
	}
}
