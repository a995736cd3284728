package jwtinfra

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-community-notifier/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeKeys(t *testing.T, withPrivate bool) *config.Config {
	t.Helper()
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	cfg := &config.Config{
		JWTPrivateKeyPath: filepath.Join(dir, "private.pem"),
		JWTPublicKeyPath:  filepath.Join(dir, "public.pem"),
		JWTExpiry:         time.Hour,
	}
	if withPrivate {
		privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privKey)})
		require.NoError(t, os.WriteFile(cfg.JWTPrivateKeyPath, privPEM, 0600))
	}
	pubBytes, err := x509.MarshalPKIXPublicKey(&privKey.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	require.NoError(t, os.WriteFile(cfg.JWTPublicKeyPath, pubPEM, 0600))
	return cfg
}

func TestProvider_SignVerifyRoundTrip(t *testing.T) {
	p, err := NewProvider(writeKeys(t, true))
	require.NoError(t, err)

	signed, err := p.Sign("svc-feed", "service")
	require.NoError(t, err)
	claims, err := p.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "svc-feed", claims.UserID)
	assert.Equal(t, "service", claims.Role)
}

func TestProvider_VerifyOnly(t *testing.T) {
	p, err := NewProvider(writeKeys(t, false))
	require.NoError(t, err)

	_, err = p.Sign("u1", "user")
	assert.ErrorIs(t, err, ErrNoSigningKey)
}

func TestProvider_MissingPublicKey(t *testing.T) {
	_, err := NewProvider(&config.Config{JWTPublicKeyPath: filepath.Join(t.TempDir(), "nope.pem")})
	assert.Error(t, err)
}
