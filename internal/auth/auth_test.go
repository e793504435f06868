// internal/auth/auth_test.go
package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	custom_errors "github-ai-attribution/internal/errors"
	"github-ai-attribution/internal/kv"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestAuthenticator(t *testing.T) {
	a := NewAuthenticator(secret)

	t.Run("round trips a session", func(t *testing.T) {
		token, err := a.IssueSession("user-a", time.Hour)
		require.NoError(t, err)

		p, err := a.Authenticate(token)
		require.NoError(t, err)
		assert.Equal(t, "user-a", p.UserID)
	})

	t.Run("rejects expired tokens", func(t *testing.T) {
		old := NewAuthenticator(secret)
		old.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, err := old.IssueSession("user-a", time.Hour)
		require.NoError(t, err)

		_, err = a.Authenticate(token)
		assert.True(t, custom_errors.IsKind(err, custom_errors.Unauthorized))
	})

	t.Run("rejects other secrets and algorithms", func(t *testing.T) {
		token, err := NewAuthenticator("another-secret-another-secret-xx").IssueSession("user-a", time.Hour)
		require.NoError(t, err)
		_, err = a.Authenticate(token)
		assert.True(t, custom_errors.IsKind(err, custom_errors.Unauthorized))

		none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "user-a"}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = a.Authenticate(none)
		assert.True(t, custom_errors.IsKind(err, custom_errors.Unauthorized))
	})

	t.Run("rejects empty token", func(t *testing.T) {
		_, err := a.Authenticate("")
		assert.True(t, custom_errors.IsKind(err, custom_errors.Unauthorized))
	})
}

func TestMiddleware(t *testing.T) {
	a := NewAuthenticator(secret)
	token, err := a.IssueSession("user-a", time.Hour)
	require.NoError(t, err)

	var seen Principal
	h := a.Middleware(func(w http.ResponseWriter, _ *http.Request, err error) {
		w.WriteHeader(custom_errors.HTTPStatus(custom_errors.KindOf(err)))
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	testCases := []struct {
		name   string
		setup  func(r *http.Request)
		status int
	}{
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, http.StatusNoContent},
		{"session cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookie, Value: token}) }, http.StatusNoContent},
		{"no credentials", func(*http.Request) {}, http.StatusUnauthorized},
		{"wrong scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic "+token) }, http.StatusUnauthorized},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			seen = Principal{}
			req := httptest.NewRequest(http.MethodPost, "/api/sync", nil)
			tc.setup(req)
			rr := httptest.NewRecorder()

			h.ServeHTTP(rr, req)

			assert.Equal(t, tc.status, rr.Code)
			if tc.status == http.StatusNoContent {
				assert.Equal(t, "user-a", seen.UserID)
			}
		})
	}
}

func TestStateIssuer(t *testing.T) {
	ctx := context.Background()

	t.Run("consumes a state once", func(t *testing.T) {
		s := NewStateIssuer(secret, 15*time.Minute, kv.NewMemoryStore())
		token, err := s.Issue("admin", 9)
		require.NoError(t, err)

		st, err := s.Consume(ctx, token, "admin")
		require.NoError(t, err)
		assert.Equal(t, int64(9), st.OrganizationID)
		assert.Equal(t, "admin", st.UserID)
		assert.NotEmpty(t, st.Nonce)

		_, err = s.Consume(ctx, token, "admin")
		assert.True(t, custom_errors.IsKind(err, custom_errors.Unauthorized))
	})

	t.Run("rejects another user's state", func(t *testing.T) {
		s := NewStateIssuer(secret, 15*time.Minute, kv.NewMemoryStore())
		token, err := s.Issue("admin", 9)
		require.NoError(t, err)

		_, err = s.Consume(ctx, token, "intruder")
		assert.True(t, custom_errors.IsKind(err, custom_errors.Forbidden))
	})

	t.Run("rejects expired state", func(t *testing.T) {
		s := NewStateIssuer(secret, 15*time.Minute, kv.NewMemoryStore())
		s.now = func() time.Time { return time.Now().Add(-time.Hour) }
		token, err := s.Issue("admin", 9)
		require.NoError(t, err)
		s.now = time.Now

		_, err = s.Consume(ctx, token, "admin")
		assert.True(t, custom_errors.IsKind(err, custom_errors.Unauthorized))
	})

	t.Run("rejects state signed with another secret", func(t *testing.T) {
		forged, err := NewStateIssuer("another-secret-another-secret-xx", 15*time.Minute, kv.NewMemoryStore()).Issue("admin", 9)
		require.NoError(t, err)
		s := NewStateIssuer(secret, 15*time.Minute, kv.NewMemoryStore())

		_, err = s.Consume(ctx, forged, "admin")
		assert.True(t, custom_errors.IsKind(err, custom_errors.Unauthorized))
	})
}
