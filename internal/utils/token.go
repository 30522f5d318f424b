package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/rand"   // secure random number generation
	"encoding/hex"  // hex encoding of random bytes
	"time"          // expiration handling

	"github.com/golang-jwt/jwt/v5" // JWT library for the signed realm cookie
)

// RealmCookieTTL is the max age of the realm-identifying cookie set on a
// successful login.
const RealmCookieTTL = 14 * 24 * time.Hour

// NewResetToken returns a hex-encoded random token for the password-reset
// flow: 20 bytes of secure random data, 40 hex characters. Only this value
// is mailed to the user; the row stores it verbatim so the link can be
// resolved back to the account.
func NewResetToken() (string, error) {
	return randomHex(20)
}

// NewRealmCookieValue builds the value of the realm cookie set on login: an
// HS256-signed token carrying the account name and realm. Signing keeps the
// browser-visible principal tamper-evident; the server-side session remains
// the source of truth for authentication.
func NewRealmCookieValue(secret, account, realm string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":   account,
		"realm": realm,
		"exp":   now.Add(RealmCookieTTL).Unix(),
		"iat":   now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// ParseRealmCookieValue verifies the signature on a realm cookie value and
// returns the account and realm it carries. Tokens signed with a different
// algorithm or secret are rejected.
func ParseRealmCookieValue(secret, value string) (account, realm string, err error) {
	tok, err := jwt.Parse(value, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		if err == nil {
			err = jwt.ErrTokenUnverifiable
		}
		return "", "", err
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", jwt.ErrTokenInvalidClaims
	}
	account, _ = claims["sub"].(string)
	realm, _ = claims["realm"].(string)
	return account, realm, nil
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
