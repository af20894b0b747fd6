package security

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricefeed/internal/config"
)

func writeTestKey(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "pub.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: der,
	}), 0o600))

	return priv, path
}

func signToken(t *testing.T, priv *rsa.PrivateKey, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(priv)
	require.NoError(t, err)
	return token
}

func baseClaims() jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		Subject:   "svc-backtester",
		Issuer:    "auth.internal",
		Audience:  jwt.ClaimStrings{"pricefeed"},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}
}

func testVerifier(t *testing.T, path string) *RS256Verifier {
	t.Helper()
	v, err := NewRS256Verifier(&config.JWTConfig{
		PublicKeyPath: path,
		Audience:      "pricefeed",
		Issuer:        "auth.internal",
		Leeway:        30 * time.Second,
	})
	require.NoError(t, err)
	return v
}

func TestVerifyBearer_ValidToken(t *testing.T) {
	priv, path := writeTestKey(t)
	v := testVerifier(t, path)

	token := signToken(t, priv, baseClaims())
	claims, err := v.VerifyBearer("Bearer " + token)

	require.NoError(t, err)
	assert.Equal(t, "svc-backtester", claims.Subject)
}

func TestVerifyBearer_MissingHeader(t *testing.T) {
	_, path := writeTestKey(t)
	v := testVerifier(t, path)

	_, err := v.VerifyBearer("")
	assert.ErrorIs(t, err, ErrNoBearerToken)

	_, err = v.VerifyBearer("Basic abc")
	assert.ErrorIs(t, err, ErrNoBearerToken)
}

func TestVerifyBearer_ExpiredToken(t *testing.T) {
	priv, path := writeTestKey(t)
	v := testVerifier(t, path)

	claims := baseClaims()
	claims.IssuedAt = jwt.NewNumericDate(time.Now().Add(-2 * time.Hour))
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	_, err := v.VerifyBearer("Bearer " + signToken(t, priv, claims))
	assert.Error(t, err)
}

func TestVerifyBearer_WrongAudience(t *testing.T) {
	priv, path := writeTestKey(t)
	v := testVerifier(t, path)

	claims := baseClaims()
	claims.Audience = jwt.ClaimStrings{"someone-else"}

	_, err := v.VerifyBearer("Bearer " + signToken(t, priv, claims))
	assert.Error(t, err)
}

func TestVerifyBearer_WrongKey(t *testing.T) {
	_, path := writeTestKey(t)
	v := testVerifier(t, path)

	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	_, err = v.VerifyBearer("Bearer " + signToken(t, other, baseClaims()))
	assert.Error(t, err)
}

func TestNewRS256Verifier_MissingKeyFile(t *testing.T) {
	_, err := NewRS256Verifier(&config.JWTConfig{PublicKeyPath: "/nonexistent/pub.pem"})
	assert.Error(t, err)
}
