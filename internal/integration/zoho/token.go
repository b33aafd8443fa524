package zoho

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/orderrelay/orderrelay/internal/config"
	ierr "github.com/orderrelay/orderrelay/internal/errors"
	"github.com/orderrelay/orderrelay/internal/httpclient"
	"github.com/orderrelay/orderrelay/internal/logger"
)

// refreshSafetyMargin is how long before expiry a cached token stops being
// served. A token within this window forces a refresh so API calls never run
// with a credential about to lapse mid-flight.
const refreshSafetyMargin = 60 * time.Second

// TokenSource yields a valid Zoho access token, refreshing the cached one
// via the OAuth refresh-token grant when needed. Safe for concurrent use:
// simultaneous callers with an expired cache share one in-flight exchange.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type accessToken struct {
	value     string
	expiresAt time.Time
}

func (t *accessToken) valid(now time.Time) bool {
	return t != nil && t.value != "" && now.Before(t.expiresAt.Add(-refreshSafetyMargin))
}

type tokenSource struct {
	cfg        config.ZohoConfig
	httpClient httpclient.Client
	logger     *logger.Logger

	mu     sync.RWMutex
	cached *accessToken
	group  singleflight.Group

	// now is swappable for tests
	now func() time.Time
}

// NewTokenSource creates a TokenSource backed by the Zoho accounts endpoint
func NewTokenSource(cfg config.ZohoConfig, httpClient httpclient.Client, logger *logger.Logger) TokenSource {
	return &tokenSource{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger,
		now:        time.Now,
	}
}

// Token returns the cached access token when it is still outside the safety
// margin, otherwise performs a refresh exchange and swaps the cache.
func (s *tokenSource) Token(ctx context.Context) (string, error) {
	s.mu.RLock()
	cached := s.cached
	s.mu.RUnlock()

	if cached.valid(s.now()) {
		return cached.value, nil
	}

	// Collapse concurrent refreshers into a single exchange; every waiter
	// receives the token produced by the one in-flight request.
	value, err, _ := s.group.Do("refresh", func() (interface{}, error) {
		// A waiter queued behind a finished refresh sees a fresh cache here
		s.mu.RLock()
		cached := s.cached
		s.mu.RUnlock()
		if cached.valid(s.now()) {
			return cached.value, nil
		}

		token, err := s.refresh(ctx)
		if err != nil {
			return "", err
		}

		s.mu.Lock()
		s.cached = token
		s.mu.Unlock()

		return token.value, nil
	})
	if err != nil {
		return "", err
	}

	return value.(string), nil
}

// refresh exchanges the long-lived refresh token for a new access token.
// Failure propagates: no retry, no fallback to the stale token.
func (s *tokenSource) refresh(ctx context.Context) (*accessToken, error) {
	form := url.Values{}
	form.Set("refresh_token", s.cfg.RefreshToken)
	form.Set("client_id", s.cfg.ClientID)
	form.Set("client_secret", s.cfg.ClientSecret)
	form.Set("grant_type", "refresh_token")

	req := &httpclient.Request{
		Method: http.MethodPost,
		URL:    fmt.Sprintf("%s/oauth/v2/token", s.cfg.AccountsURL),
		Headers: map[string]string{
			"Content-Type": "application/x-www-form-urlencoded",
		},
		Body: []byte(form.Encode()),
	}

	resp, err := s.httpClient.Send(ctx, req)
	if err != nil {
		if httpErr, ok := httpclient.IsHTTPError(err); ok {
			s.logger.Errorw("zoho token exchange rejected",
				"status", httpErr.StatusCode,
				"body", string(httpErr.Response))
			return nil, ierr.NewError("zoho token exchange rejected").
				WithHintf("Zoho accounts returned status %d", httpErr.StatusCode).
				Mark(ierr.ErrHTTPClient)
		}
		return nil, ierr.WithError(err).
			WithHint("Network error reaching the Zoho accounts endpoint").
			Mark(ierr.ErrHTTPClient)
	}

	var tr tokenResponse
	if err := json.Unmarshal(resp.Body, &tr); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Zoho returned an invalid token response").
			Mark(ierr.ErrInternal)
	}

	// Zoho reports credential problems with a 200 and an error field
	if tr.Error != "" || tr.AccessToken == "" {
		s.logger.Errorw("zoho token exchange failed", "error", tr.Error)
		return nil, ierr.NewError("zoho token exchange failed").
			WithHint("Check the Zoho client id, client secret and refresh token").
			Mark(ierr.ErrHTTPClient)
	}

	token := &accessToken{
		value:     tr.AccessToken,
		expiresAt: s.now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}

	s.logger.Debugw("refreshed zoho access token", "expires_in", tr.ExpiresIn)

	return token, nil
}
