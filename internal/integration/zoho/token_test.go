package zoho

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderrelay/orderrelay/internal/config"
	"github.com/orderrelay/orderrelay/internal/logger"
	"github.com/orderrelay/orderrelay/internal/testutil"
)

func newTestTokenSource(client *testutil.MockHTTPClient) *tokenSource {
	return &tokenSource{
		cfg: config.ZohoConfig{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RefreshToken: "refresh-token",
			AccountsURL:  "https://accounts.example.com",
		},
		httpClient: client,
		logger:     logger.NewNop(),
		now:        time.Now,
	}
}

func registerTokenExchange(client *testutil.MockHTTPClient, token string) {
	client.RegisterResponse(http.MethodPost, "/oauth/v2/token", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       []byte(`{"access_token":"` + token + `","expires_in":3600}`),
	})
}

func TestTokenCachedOutsideSafetyMargin(t *testing.T) {
	client := testutil.NewMockHTTPClient()
	ts := newTestTokenSource(client)
	ts.cached = &accessToken{value: "cached-token", expiresAt: time.Now().Add(120 * time.Second)}

	token, err := ts.Token(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "cached-token", token)
	assert.Zero(t, client.CallCount(http.MethodPost, "/oauth/v2/token"),
		"a token outside the safety margin must be served without a network call")
}

func TestTokenWithinSafetyMarginRefreshes(t *testing.T) {
	client := testutil.NewMockHTTPClient()
	registerTokenExchange(client, "fresh-token")
	ts := newTestTokenSource(client)
	ts.cached = &accessToken{value: "stale-token", expiresAt: time.Now().Add(30 * time.Second)}

	token, err := ts.Token(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token)
	assert.Equal(t, 1, client.CallCount(http.MethodPost, "/oauth/v2/token"))
}

func TestTokenFirstCallRefreshes(t *testing.T) {
	client := testutil.NewMockHTTPClient()
	registerTokenExchange(client, "first-token")
	ts := newTestTokenSource(client)

	token, err := ts.Token(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "first-token", token)

	req := client.LastRequest(http.MethodPost, "/oauth/v2/token")
	require.NotNil(t, req)
	body := string(req.Body)
	assert.Contains(t, body, "grant_type=refresh_token")
	assert.Contains(t, body, "refresh_token=refresh-token")
	assert.Contains(t, body, "client_id=client-id")
	assert.Contains(t, body, "client_secret=client-secret")
	assert.Equal(t, "application/x-www-form-urlencoded", req.Headers["Content-Type"])

	// expiry honors expires_in
	require.NotNil(t, ts.cached)
	assert.WithinDuration(t, time.Now().Add(time.Hour), ts.cached.expiresAt, 5*time.Second)
}

func TestTokenRefreshFailurePropagates(t *testing.T) {
	client := testutil.NewMockHTTPClient()
	client.RegisterResponse(http.MethodPost, "/oauth/v2/token", testutil.MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       []byte(`{"error":"server_error"}`),
	})
	ts := newTestTokenSource(client)

	_, err := ts.Token(context.Background())
	require.Error(t, err)
	assert.Nil(t, ts.cached, "a failed exchange must not populate the cache")
}

func TestTokenInvalidGrantPropagates(t *testing.T) {
	// Zoho reports bad credentials with a 200 and an error field
	client := testutil.NewMockHTTPClient()
	client.RegisterResponse(http.MethodPost, "/oauth/v2/token", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       []byte(`{"error":"invalid_code"}`),
	})
	ts := newTestTokenSource(client)

	_, err := ts.Token(context.Background())
	require.Error(t, err)
}

func TestConcurrentCallersShareOneRefresh(t *testing.T) {
	client := testutil.NewMockHTTPClient()
	registerTokenExchange(client, "shared-token")
	ts := newTestTokenSource(client)

	const callers = 16
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = ts.Token(context.Background())
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "shared-token", tokens[i])
	}
	assert.Equal(t, 1, client.CallCount(http.MethodPost, "/oauth/v2/token"),
		"concurrent callers must share a single in-flight exchange")
}
