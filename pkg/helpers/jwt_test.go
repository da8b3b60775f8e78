package helpers

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestManager(clock *fakeClock) *TokenManager {
	return NewTokenManager(testSecret, 30*time.Minute, "scopeguard", WithClock(clock.Now))
}

func tamperSignature(t *testing.T, token string) string {
	t.Helper()
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	i := len(sig) / 2
	if sig[i] == 'A' {
		sig[i] = 'B'
	} else {
		sig[i] = 'A'
	}
	parts[2] = string(sig)
	return strings.Join(parts, ".")
}

func TestIssueAndVerify(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	m := newTestManager(clock)

	tok, err := m.Issue("a@example.com", "u-1", []string{"read", "write"})
	require.NoError(t, err)
	assert.Equal(t, clock.t.Add(30*time.Minute), tok.ExpiresAt)

	claims, err := m.Verify(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", claims.Subject)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, []string{"read", "write"}, claims.Scopes)
	assert.Equal(t, "scopeguard", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestVerify_BeforeAndAfterExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	m := newTestManager(clock)

	tok, err := m.Issue("a@example.com", "u-1", []string{"read"})
	require.NoError(t, err)

	clock.Advance(29 * time.Minute)
	_, err = m.Verify(tok.Token)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	_, err = m.Verify(tok.Token)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	var te *TokenError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, ReasonExpired, te.Reason)
}

func TestVerify_TamperedSignature(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	m := newTestManager(clock)

	tok, err := m.Issue("a@example.com", "u-1", []string{"read"})
	require.NoError(t, err)
	forged := tamperSignature(t, tok.Token)

	tests := []struct {
		name    string
		advance time.Duration
	}{
		{name: "fresh", advance: 0},
		{name: "expired", advance: time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock.Advance(tt.advance)
			_, err := m.Verify(forged)
			require.Error(t, err)
			var te *TokenError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, ReasonSignature, te.Reason, "signature must be checked before expiry")
		})
	}
}

func TestVerify_TamperedPayload(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	m := newTestManager(clock)

	tok, err := m.Issue("a@example.com", "u-1", []string{"read"})
	require.NoError(t, err)

	parts := strings.Split(tok.Token, ".")
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload))
	payload["scopes"] = []string{"read", "admin"}
	raw, err = json.Marshal(payload)
	require.NoError(t, err)
	parts[1] = base64.RawURLEncoding.EncodeToString(raw)

	_, err = m.Verify(strings.Join(parts, "."))
	var te *TokenError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, ReasonSignature, te.Reason)
}

func TestVerify_WrongSecret(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	issuer := NewTokenManager("another-secret-another-secret-xx", time.Minute, "scopeguard", WithClock(clock.Now))
	tok, err := issuer.Issue("a@example.com", "u-1", nil)
	require.NoError(t, err)

	_, err = newTestManager(clock).Verify(tok.Token)
	var te *TokenError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, ReasonSignature, te.Reason)
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	claims := &Claims{
		Scopes: []string{"admin"},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "a@example.com",
			Issuer:    "scopeguard",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	m := NewTokenManager(testSecret, time.Minute, "scopeguard")
	for _, tok := range []string{none, hs512} {
		_, err := m.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}

func TestVerify_IssuerAndSubject(t *testing.T) {
	clock := &fakeClock{t: time.Now()}

	other := NewTokenManager(testSecret, time.Minute, "someone-else", WithClock(clock.Now))
	tok, err := other.Issue("a@example.com", "u-1", nil)
	require.NoError(t, err)
	_, err = newTestManager(clock).Verify(tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	anon, err := newTestManager(clock).Issue("", "u-1", nil)
	require.NoError(t, err)
	_, err = newTestManager(clock).Verify(anon.Token)
	var te *TokenError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, ReasonClaims, te.Reason)
}

func TestVerify_Malformed(t *testing.T) {
	m := NewTokenManager(testSecret, time.Minute, "")
	_, err := m.Verify("not.a.jwt")
	var te *TokenError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, ReasonMalformed, te.Reason)
}

func TestIssue_ScopesAreSnapshot(t *testing.T) {
	m := NewTokenManager(testSecret, time.Minute, "")
	scopes := []string{"read"}
	tok, err := m.Issue("a@example.com", "u-1", scopes)
	require.NoError(t, err)
	scopes[0] = "admin"
	assert.Equal(t, []string{"read"}, tok.Scopes)
}
