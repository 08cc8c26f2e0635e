// Package auth verifies the desk's Bearer token on relay and registry routes.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/soocke/sigdesk-go/server/problem"
)

var (
	// ErrMissingToken is returned when no Bearer token is present.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken is returned when the token does not verify.
	ErrInvalidToken = errors.New("invalid bearer token")
)

// Verifier checks Bearer tokens. With a JWT secret, tokens must be HS256 JWTs
// signed with it; otherwise they must equal the static token. A Verifier with
// neither accepts every request.
type Verifier struct {
	static string
	secret []byte
}

// NewVerifier returns a verifier for the static token and/or HS256 secret.
func NewVerifier(staticToken, jwtSecret string) *Verifier {
	v := &Verifier{static: staticToken}
	if jwtSecret != "" {
		v.secret = []byte(jwtSecret)
	}
	return v
}

// Enabled reports whether requests are checked at all.
func (v *Verifier) Enabled() bool {
	return v != nil && (v.static != "" || len(v.secret) > 0)
}

// Verify validates the Authorization header value.
func (v *Verifier) Verify(header string) error {
	if !v.Enabled() {
		return nil
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return ErrMissingToken
	}
	token = strings.TrimSpace(token)
	if v.static != "" && subtle.ConstantTimeCompare([]byte(token), []byte(v.static)) == 1 {
		return nil
	}
	if len(v.secret) == 0 {
		return ErrInvalidToken
	}
	parsed, err := jwt.Parse(token, func(*jwt.Token) (any, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return ErrInvalidToken
	}
	return nil
}

// Middleware rejects unverified requests with a 401 problem.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := v.Verify(r.Header.Get("Authorization")); err != nil {
			if errors.Is(err, ErrMissingToken) {
				problem.Unauthorized(w, r, "Missing Authorization header (expected 'Bearer <token>')")
				return
			}
			problem.Unauthorized(w, r, "Invalid or expired token")
			return
		}
		next.ServeHTTP(w, r)
	})
}
