// internal/github/app.go
package github

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	custom_errors "github-ai-attribution/internal/errors"
	"github-ai-attribution/internal/model"
)

const (
	// GitHub rejects app JWTs living longer than ten minutes.
	appJWTLifetime = 9 * time.Minute
	// clockSkew backdates iat for servers slightly ahead of us.
	clockSkew = 60 * time.Second

	tokenExchangeTimeout = 30 * time.Second
)

// AppClient authenticates as the GitHub App and exchanges its credential for
// short-lived installation tokens.
type AppClient struct {
	appID  int64
	key    *rsa.PrivateKey
	gh     *github.Client
	opts   options
	logger *slog.Logger

	mu      sync.Mutex
	sources map[int64]oauth2.TokenSource
}

// NewAppClient parses the app's PEM private key and builds an app-authenticated client.
func NewAppClient(appID int64, privateKeyPEM []byte, logger *slog.Logger, opts ...Option) (*AppClient, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse app private key: %w", err)
	}
	a := &AppClient{
		appID:   appID,
		key:     key,
		opts:    buildOptions(opts),
		logger:  logger,
		sources: make(map[int64]oauth2.TokenSource),
	}
	ts := oauth2.ReuseTokenSource(nil, &appTokenSource{appID: appID, key: key})
	a.gh, err = newGithub(oauth2.NewClient(context.Background(), ts), a.opts.baseURL)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetInstallation returns the platform account an installation belongs to.
func (a *AppClient) GetInstallation(ctx context.Context, installationID int64) (model.Account, error) {
	var inst *github.Installation
	err := retry(ctx, a.logger, "get installation", func() (*github.Response, error) {
		var resp *github.Response
		var err error
		inst, resp, err = a.gh.Apps.GetInstallation(ctx, installationID)
		return resp, err
	})
	if err != nil {
		var er *github.ErrorResponse
		if errors.As(err, &er) && er.Response != nil && er.Response.StatusCode == http.StatusNotFound {
			return model.Account{}, custom_errors.E(custom_errors.NotFound, "github: get installation", err)
		}
		return model.Account{}, custom_errors.E(custom_errors.UpstreamFailure, "github: get installation", err)
	}
	if inst.GetAccount().GetID() == 0 || inst.GetAccount().GetLogin() == "" {
		return model.Account{}, custom_errors.Ef(custom_errors.UpstreamFailure, "github: get installation", "%w: missing account", ErrUnexpectedResponse)
	}
	return model.Account{
		ID:    inst.GetAccount().GetID(),
		Login: inst.GetAccount().GetLogin(),
		Type:  inst.GetAccount().GetType(),
	}, nil
}

// ForInstallation returns a client acting as the given installation. Token
// sources are cached per installation and refresh before expiry.
func (a *AppClient) ForInstallation(_ context.Context, installationID int64) (*Client, error) {
	a.mu.Lock()
	ts, ok := a.sources[installationID]
	if !ok {
		ts = oauth2.ReuseTokenSource(nil, &installationTokenSource{app: a, installationID: installationID})
		a.sources[installationID] = ts
	}
	a.mu.Unlock()
	return newClient(ts, a.logger, a.opts)
}

// appTokenSource mints RS256 JWTs identifying the app.
type appTokenSource struct {
	appID int64
	key   *rsa.PrivateKey
	now   func() time.Time
}

func (s *appTokenSource) Token() (*oauth2.Token, error) {
	now := time.Now()
	if s.now != nil {
		now = s.now()
	}
	exp := now.Add(appJWTLifetime)
	claims := jwt.RegisteredClaims{
		Issuer:    strconv.FormatInt(s.appID, 10),
		IssuedAt:  jwt.NewNumericDate(now.Add(-clockSkew)),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.key)
	if err != nil {
		return nil, fmt.Errorf("sign app jwt: %w", err)
	}
	return &oauth2.Token{AccessToken: signed, TokenType: "Bearer", Expiry: exp}, nil
}

// installationTokenSource exchanges the app JWT for an installation token.
type installationTokenSource struct {
	app            *AppClient
	installationID int64
}

func (s *installationTokenSource) Token() (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(context.Background(), tokenExchangeTimeout)
	defer cancel()

	tok, _, err := s.app.gh.Apps.CreateInstallationToken(ctx, s.installationID, nil)
	if err != nil {
		return nil, custom_errors.E(custom_errors.UpstreamFailure, "github: create installation token", err)
	}
	if tok.GetToken() == "" {
		return nil, custom_errors.Ef(custom_errors.UpstreamFailure, "github: create installation token", "%w: empty token", ErrUnexpectedResponse)
	}
	s.app.logger.Debug("Obtained installation token", "installation_id", s.installationID, "expires_at", tok.GetExpiresAt().Time)
	return &oauth2.Token{AccessToken: tok.GetToken(), TokenType: "Bearer", Expiry: tok.GetExpiresAt().Time}, nil
}
