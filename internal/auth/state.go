// internal/auth/state.go
package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	custom_errors "github-ai-attribution/internal/errors"
	"github-ai-attribution/internal/kv"
)

const stateNoncePrefix = "org-state:"

// OrgState is the intent to connect an installation to an organization.
type OrgState struct {
	UserID         string
	OrganizationID int64
	Nonce          string
}

type orgStateClaims struct {
	OrganizationID int64 `json:"org_id"`
	jwt.RegisteredClaims
}

// StateIssuer signs org-connect state and consumes it exactly once.
type StateIssuer struct {
	secret []byte
	ttl    time.Duration
	nonces kv.Store
	now    func() time.Time
}

// NewStateIssuer creates a StateIssuer whose tokens live for ttl.
func NewStateIssuer(secret string, ttl time.Duration, nonces kv.Store) *StateIssuer {
	return &StateIssuer{secret: []byte(secret), ttl: ttl, nonces: nonces, now: time.Now}
}

// Issue signs a state token for userID connecting organizationID.
func (s *StateIssuer) Issue(userID string, organizationID int64) (string, error) {
	now := s.now()
	claims := orgStateClaims{
		OrganizationID: organizationID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Consume verifies token, checks it was issued to userID and burns its
// nonce. A replayed token fails with Unauthorized.
func (s *StateIssuer) Consume(ctx context.Context, token, userID string) (OrgState, error) {
	const op = "consume org state"
	var claims orgStateClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if err := requireHS256(t); err != nil {
			return nil, err
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return OrgState{}, custom_errors.E(custom_errors.Unauthorized, op, err)
	}
	if claims.Subject != userID {
		return OrgState{}, custom_errors.Ef(custom_errors.Forbidden, op, "state was issued to another user")
	}
	if claims.OrganizationID <= 0 {
		return OrgState{}, custom_errors.Ef(custom_errors.Invalid, op, "state carries no organization")
	}
	if _, err := uuid.Parse(claims.ID); err != nil {
		return OrgState{}, custom_errors.E(custom_errors.Invalid, op, err)
	}

	// Keep the nonce at least as long as the token could still verify.
	ttl := s.ttl
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Sub(s.now()) + time.Minute
	}
	fresh, err := s.nonces.SetNX(ctx, stateNoncePrefix+claims.ID, []byte(userID), ttl)
	if err != nil {
		return OrgState{}, custom_errors.E(custom_errors.Internal, op, err)
	}
	if !fresh {
		return OrgState{}, custom_errors.Ef(custom_errors.Unauthorized, op, "state already used")
	}
	return OrgState{UserID: claims.Subject, OrganizationID: claims.OrganizationID, Nonce: claims.ID}, nil
}
