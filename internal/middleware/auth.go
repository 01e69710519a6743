package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// HashToken returns the bcrypt hash to store in ROUTINE_API_TOKEN_HASH.
func HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// tokenVerifier checks tokens against a bcrypt hash and remembers the digest
// of the last token that matched, so repeat requests skip bcrypt.
type tokenVerifier struct {
	hash    []byte
	compare func(hash, token []byte) error

	mu       sync.Mutex
	verified [sha256.Size]byte
	ok       bool
}

func newTokenVerifier(hash string) *tokenVerifier {
	return &tokenVerifier{hash: []byte(hash), compare: bcrypt.CompareHashAndPassword}
}

func (v *tokenVerifier) verify(token string) bool {
	digest := sha256.Sum256([]byte(token))

	v.mu.Lock()
	hit := v.ok && subtle.ConstantTimeCompare(digest[:], v.verified[:]) == 1
	v.mu.Unlock()
	if hit {
		return true
	}

	if v.compare(v.hash, []byte(token)) != nil {
		return false
	}
	v.mu.Lock()
	v.verified, v.ok = digest, true
	v.mu.Unlock()
	return true
}

// RequireToken rejects requests whose bearer token does not match the bcrypt
// hash. An empty hash disables the check.
func RequireToken(hash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if hash == "" {
			return next
		}
		v := newTokenVerifier(hash)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="routine"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if !v.verify(token) {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken reads the token from the Authorization header, or from the
// "token" query parameter for WebSocket upgrades, which browsers cannot
// send custom headers with.
func bearerToken(r *http.Request) (string, bool) {
	if scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " "); ok && strings.EqualFold(scheme, "Bearer") {
		token = strings.TrimSpace(token)
		return token, token != ""
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		token := r.URL.Query().Get("token")
		return token, token != ""
	}
	return "", false
}
