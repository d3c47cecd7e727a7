package auth

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskchat/pkg/config"
	"deskchat/pkg/models"
)

func setSecrets(t *testing.T, secrets ...string) {
	t.Helper()
	config.SetRuntime(&config.RuntimeConfig{TokenSecrets: secrets, TokenTTL: time.Hour})
	t.Cleanup(func() { config.SetRuntime(nil) })
}

func TestTokenRoundTrip(t *testing.T) {
	setSecrets(t, "s3cret")
	u := models.User{ID: "u-1", Username: "alice", IsAdmin: true}

	tok, err := MintToken(u)
	require.NoError(t, err)

	claims, err := VerifyToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.True(t, claims.IsAdmin)
	assert.Greater(t, claims.Exp, time.Now().Unix())
}

func TestTokenRotatedSecretStillVerifies(t *testing.T) {
	setSecrets(t, "old-secret")
	tok, err := MintToken(models.User{ID: "u-1", Username: "alice"})
	require.NoError(t, err)

	// rotate: new primary, old kept for verification
	setSecrets(t, "new-secret", "old-secret")
	_, err = VerifyToken(tok)
	assert.NoError(t, err)
}

func TestTokenWrongSecret(t *testing.T) {
	setSecrets(t, "one")
	tok, err := MintToken(models.User{ID: "u-1", Username: "alice"})
	require.NoError(t, err)

	setSecrets(t, "another")
	_, err = VerifyToken(tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenTampered(t *testing.T) {
	setSecrets(t, "s3cret")
	tok, err := MintToken(models.User{ID: "u-1", Username: "alice"})
	require.NoError(t, err)

	payload, _ := json.Marshal(Claims{UserID: "u-1", Username: "alice", IsAdmin: true, Exp: time.Now().Add(time.Hour).Unix()})
	forged := base64.RawURLEncoding.EncodeToString(payload) + tok[len(tok)-65:]
	_, err = VerifyToken(forged)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenExpired(t *testing.T) {
	config.SetRuntime(&config.RuntimeConfig{TokenSecrets: []string{"s"}, TokenTTL: -time.Minute})
	t.Cleanup(func() { config.SetRuntime(nil) })

	tok, err := MintToken(models.User{ID: "u-1", Username: "alice"})
	require.NoError(t, err)
	_, err = VerifyToken(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenMalformed(t *testing.T) {
	setSecrets(t, "s3cret")
	for _, tok := range []string{"", "no-dot", ".leading", "trailing.", "!!.deadbeef"} {
		_, err := VerifyToken(tok)
		assert.Error(t, err, "token %q", tok)
	}
}

func TestMintWithoutSecrets(t *testing.T) {
	config.SetRuntime(nil)
	_, err := MintToken(models.User{ID: "u-1"})
	assert.Error(t, err)
}
