package jwt

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/doclens/identity"
)

const secret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return tok
}

func TestVerify_Valid(t *testing.T) {
	v := NewVerifier(identity.WithSecret(secret))

	tok := sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{
		"sub":   "acct-42",
		"email": "counsel@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	p, err := v.Verify(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "acct-42", p.AccountID)
	assert.Equal(t, "counsel@example.com", p.Email)
}

func TestVerify_Rejects(t *testing.T) {
	v := NewVerifier(identity.WithSecret(secret), identity.WithIssuer("doclens"))
	future := time.Now().Add(time.Hour).Unix()

	cases := map[string]string{
		"garbage": "not-a-token",
		"wrong secret": sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{
			"sub": "a", "iss": "doclens", "exp": future,
		}),
		"expired": sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{
			"sub": "a", "iss": "doclens", "exp": time.Now().Add(-time.Hour).Unix(),
		}),
		"missing exp": sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{
			"sub": "a", "iss": "doclens",
		}),
		"wrong issuer": sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{
			"sub": "a", "iss": "elsewhere", "exp": future,
		}),
		"missing subject": sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{
			"iss": "doclens", "exp": future,
		}),
		"none algorithm": sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.MapClaims{
			"sub": "a", "iss": "doclens", "exp": future,
		}),
	}

	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tok)
			require.ErrorIs(t, err, identity.ErrInvalidCredential)
		})
	}
}

func TestNewVerifier_RequiresSecret(t *testing.T) {
	assert.Panics(t, func() { NewVerifier() })
}
