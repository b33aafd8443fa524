package v1

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderrelay/orderrelay/internal/config"
	"github.com/orderrelay/orderrelay/internal/idempotency"
	"github.com/orderrelay/orderrelay/internal/integration/zoho"
	"github.com/orderrelay/orderrelay/internal/logger"
	"github.com/orderrelay/orderrelay/internal/service"
	"github.com/orderrelay/orderrelay/internal/testutil"
	"github.com/orderrelay/orderrelay/internal/webhook"
)

const testSecret = "wc-shared-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type fixedTokenSource struct{}

func (fixedTokenSource) Token(context.Context) (string, error) { return "test-token", nil }

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func newTestRouter(httpClient *testutil.MockHTTPClient, auditStore *testutil.InMemoryAuditStore) *gin.Engine {
	log := logger.NewNop()
	cfg := config.GetDefaultConfig()
	crm := zoho.NewClient(cfg.Zoho, fixedTokenSource{}, httpClient, log)
	sync := service.NewSyncService(cfg, crm, auditStore, idempotency.NewNoopTracker(), log)
	handler := NewWebhookHandler(webhook.NewVerifier(testSecret, log), sync, log)

	r := gin.New()
	r.POST("/webhook", handler.HandleOrderWebhook)
	r.GET("/health", HealthHandler)
	return r
}

func postWebhook(r *gin.Engine, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookMissingSignature(t *testing.T) {
	httpClient := testutil.NewMockHTTPClient()
	r := newTestRouter(httpClient, testutil.NewInMemoryAuditStore())

	// Malformed body on purpose: the 400 must fire before any JSON parsing
	w := postWebhook(r, []byte(`{"id":`), nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, httpClient.Requests(), "no CRM call may happen without a signature")
}

func TestWebhookInvalidSignature(t *testing.T) {
	httpClient := testutil.NewMockHTTPClient()
	r := newTestRouter(httpClient, testutil.NewInMemoryAuditStore())

	body := []byte(`{"id":1001,"billing":{"email":"a@b.com"},"total":"25.00"}`)
	w := postWebhook(r, body, map[string]string{
		SignatureHeader: sign("wrong-secret", body),
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, httpClient.Requests(), "no CRM call may happen on a bad signature")
}

func TestWebhookEndToEnd(t *testing.T) {
	httpClient := testutil.NewMockHTTPClient()
	httpClient.RegisterResponse(http.MethodGet, "/Contacts/search", testutil.MockResponse{
		StatusCode: http.StatusNoContent,
	})
	httpClient.RegisterResponse(http.MethodPost, "/Contacts", testutil.MockResponse{
		StatusCode: http.StatusCreated,
		Body:       []byte(`{"data":[{"code":"SUCCESS","status":"success","details":{"id":"c-9"}}]}`),
	})
	httpClient.RegisterResponse(http.MethodPost, "/Deals", testutil.MockResponse{
		StatusCode: http.StatusCreated,
		Body:       []byte(`{"data":[{"code":"SUCCESS","status":"success","details":{"id":"d-9"}}]}`),
	})
	auditStore := testutil.NewInMemoryAuditStore()
	r := newTestRouter(httpClient, auditStore)

	body := []byte(`{"id":1001,"billing":{"email":"a@b.com","first_name":"A","last_name":"B"},"total":"25.00"}`)
	w := postWebhook(r, body, map[string]string{
		SignatureHeader: sign(testSecret, body),
		EventHeader:     "order.created",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())

	assert.Equal(t, 1, httpClient.CallCount(http.MethodPost, "/Contacts"))
	assert.Equal(t, 1, httpClient.CallCount(http.MethodPost, "/Deals"))

	contactReq := httpClient.LastRequest(http.MethodPost, "/Contacts")
	require.NotNil(t, contactReq)
	var contactPayload struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(contactReq.Body, &contactPayload))
	assert.Equal(t, "B", contactPayload.Data[0]["Last_Name"])

	dealReq := httpClient.LastRequest(http.MethodPost, "/Deals")
	require.NotNil(t, dealReq)
	var dealPayload struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(dealReq.Body, &dealPayload))
	assert.Contains(t, dealPayload.Data[0]["Deal_Name"], "1001")
	assert.Equal(t, 25.0, dealPayload.Data[0]["Amount"])

	entries := auditStore.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "1001", entries[0].OrderID)
}

func TestWebhookDownstreamFailureIsGeneric500(t *testing.T) {
	httpClient := testutil.NewMockHTTPClient()
	httpClient.RegisterResponse(http.MethodGet, "/Contacts/search", testutil.MockResponse{
		StatusCode: http.StatusBadGateway,
		Body:       []byte(`{"message":"upstream exploded with secret detail"}`),
	})
	r := newTestRouter(httpClient, testutil.NewInMemoryAuditStore())

	body := []byte(`{"id":1001,"billing":{"email":"a@b.com"},"total":"25.00"}`)
	w := postWebhook(r, body, map[string]string{
		SignatureHeader: sign(testSecret, body),
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "secret detail",
		"internal error detail must not leak to the webhook caller")
}

func TestHealth(t *testing.T) {
	r := newTestRouter(testutil.NewMockHTTPClient(), testutil.NewInMemoryAuditStore())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
