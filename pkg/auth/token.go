package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"deskchat/pkg/config"
	"deskchat/pkg/models"
)

// Claims is the payload carried inside a bearer token.
type Claims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
	Exp      int64  `json:"exp"`
}

var (
	// ErrTokenInvalid covers malformed tokens and bad signatures.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is returned for well-formed tokens past their exp.
	ErrTokenExpired = errors.New("token expired")
)

func sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// MintToken issues a signed token for the user using the primary
// configured secret.
func MintToken(u models.User) (string, error) {
	secrets := config.GetTokenSecrets()
	if len(secrets) == 0 {
		return "", errors.New("no token secrets configured")
	}
	c := Claims{
		UserID:   u.ID,
		Username: u.Username,
		IsAdmin:  u.IsAdmin,
		Exp:      time.Now().Add(config.GetTokenTTL()).Unix(),
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	enc := base64.RawURLEncoding.EncodeToString(payload)
	return enc + "." + sign([]byte(enc), secrets[0]), nil
}

// VerifyToken checks a token against every configured secret and returns
// its claims. Verification against all secrets keeps tokens valid across
// secret rotation.
func VerifyToken(token string) (Claims, error) {
	var c Claims
	i := strings.LastIndex(token, ".")
	if i <= 0 || i == len(token)-1 {
		return c, ErrTokenInvalid
	}
	enc, sig := token[:i], token[i+1:]

	ok := false
	for _, secret := range config.GetTokenSecrets() {
		if hmac.Equal([]byte(sign([]byte(enc), secret)), []byte(sig)) {
			ok = true
			break
		}
	}
	if !ok {
		return c, ErrTokenInvalid
	}
	payload, err := base64.RawURLEncoding.DecodeString(enc)
	if err != nil {
		return c, ErrTokenInvalid
	}
	if err := json.Unmarshal(payload, &c); err != nil {
		return c, ErrTokenInvalid
	}
	if c.Exp != 0 && time.Now().Unix() > c.Exp {
		return c, ErrTokenExpired
	}
	return c, nil
}
