// internal/auth/auth.go

// Package auth turns session tokens into an authenticated principal and
// issues the signed state carried through the app install flow.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	custom_errors "github-ai-attribution/internal/errors"
)

// SessionCookie is read when no Authorization header is present.
const SessionCookie = "session"

// Principal is the authenticated caller.
type Principal struct {
	UserID string
}

type principalKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal placed by Middleware.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.UserID != ""
}

// Authenticator verifies HS256 session tokens.
type Authenticator struct {
	secret []byte
	now    func() time.Time
}

// NewAuthenticator creates an Authenticator for secret.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret), now: time.Now}
}

// IssueSession signs a session token for userID, used by the CLI and tests.
func (a *Authenticator) IssueSession(userID string, ttl time.Duration) (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Authenticate verifies a session token and returns its principal.
func (a *Authenticator) Authenticate(token string) (Principal, error) {
	const op = "authenticate"
	if token == "" {
		return Principal{}, custom_errors.Ef(custom_errors.Unauthorized, op, "missing session token")
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, a.keyFunc,
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired())
	if err != nil {
		return Principal{}, custom_errors.E(custom_errors.Unauthorized, op, err)
	}
	if claims.Subject == "" {
		return Principal{}, custom_errors.Ef(custom_errors.Unauthorized, op, "token has no subject")
	}
	return Principal{UserID: claims.Subject}, nil
}

func (a *Authenticator) keyFunc(t *jwt.Token) (interface{}, error) {
	if err := requireHS256(t); err != nil {
		return nil, err
	}
	return a.secret, nil
}

// Middleware rejects requests without a valid session, passing the principal
// on in the request context. onError writes the failure response.
func (a *Authenticator) Middleware(onError func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := a.Authenticate(tokenFromRequest(r))
			if err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, found := strings.Cut(h, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

var errWrongSigner = errors.New("unexpected signing method")

func requireHS256(t *jwt.Token) error {
	if t.Method != jwt.SigningMethodHS256 {
		return fmt.Errorf("%w: %v", errWrongSigner, t.Header["alg"])
	}
	return nil
}
