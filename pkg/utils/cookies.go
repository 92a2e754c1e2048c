package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
)

// Session cookies carry only a signed session identifier in the form
// "{id}.{signature}" where the signature is an HMAC-SHA256 of the id
// under the configured session secret. The session payload itself lives
// server-side; a tampered cookie simply fails verification and is
// treated as no session.

// SignSessionID returns the cookie value for a session identifier:
// the id plus its HMAC-SHA256 signature, dot-separated.
func SignSessionID(id string, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(id))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return id + "." + sig
}

// VerifySessionCookie validates a signed cookie value and returns the
// embedded session identifier. Returns false for malformed values and
// for signatures that do not verify (constant-time comparison).
func VerifySessionCookie(value string, secret []byte) (string, bool) {
	idx := strings.LastIndexByte(value, '.')
	if idx <= 0 || idx == len(value)-1 {
		return "", false
	}
	id, sig := value[:idx], value[idx+1:]

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(id))
	expected := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return "", false
	}
	return id, true
}

// SetSessionCookie sets the signed session cookie with the security
// settings required by the auth flow: httpOnly always, SameSite=Lax,
// Secure in production.
func SetSessionCookie(w http.ResponseWriter, name, signedValue string, maxAge int, isProduction bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    signedValue,
		Path:     "/",
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// ClearSessionCookie instructs the browser to delete the session cookie
// immediately.
func ClearSessionCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
