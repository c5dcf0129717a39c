package store

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarlsen/equiploan/internal/platform/config"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(&Config{
		BaseURL: server.URL,
		Name:    "document-store",
		Timeout: 5 * time.Second,
		Transport: config.TransportConfig{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     30 * time.Second,
		},
	})
	require.NoError(t, err)

	return client
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New(&Config{BaseURL: "http://localhost"})
	assert.Error(t, err, "name is required")
}

func TestClient_Do_Success(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/collections/equipment/documents/eq-1", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"eq-1","name":"Canon EOS R6"}`))
	}))

	doc, err := Get[equipmentDoc](context.Background(), client, "/v1/collections/equipment/documents/eq-1")

	require.NoError(t, err)
	assert.Equal(t, "eq-1", doc.ID)
	assert.Equal(t, "Canon EOS R6", doc.Name)
}

func TestClient_Do_DecodesRemoteError(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":"resource-exhausted","message":"write limit reached"}}`))
	}))

	_, err := client.Do(context.Background(), http.MethodPost, "/v1/collections/loans/documents", map[string]string{})

	require.Error(t, err)

	var rerr *RemoteError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "resource-exhausted", rerr.Code)
	assert.Equal(t, http.StatusTooManyRequests, rerr.Status)
	assert.Equal(t, "write limit reached", rerr.Message)
	assert.Equal(t, "resource-exhausted", rerr.ErrorCode())
}

func TestClient_Do_StatusFallbackCodes(t *testing.T) {
	tests := []struct {
		status int
		code   string
	}{
		{http.StatusNotFound, CodeNotFound},
		{http.StatusConflict, CodeConflict},
		{http.StatusForbidden, CodePermissionDenied},
		{http.StatusUnauthorized, CodeUnauthenticated},
		{http.StatusTooManyRequests, CodeResourceExhausted},
		{http.StatusPreconditionFailed, CodeFailedPrecondition},
		{http.StatusBadRequest, CodeInvalidArgument},
		{http.StatusServiceUnavailable, CodeUnavailable},
		{http.StatusBadGateway, CodeUnavailable},
		{http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))

			_, err := client.Do(context.Background(), http.MethodGet, "/v1/ping", nil)

			var rerr *RemoteError
			require.ErrorAs(t, err, &rerr)
			assert.Equal(t, tt.code, rerr.Code)
		})
	}
}

func TestClient_Do_SingleAttempt(t *testing.T) {
	calls := 0
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := client.Do(context.Background(), http.MethodGet, "/v1/ping", nil)

	require.Error(t, err)
	assert.Equal(t, 1, calls, "transport must not retry on its own")
}

func TestClient_Do_InjectsAuth(t *testing.T) {
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(server.Close)

	client, err := New(&Config{
		BaseURL: server.URL,
		Name:    "document-store",
		AuthFunc: func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer token-1")
		},
	})
	require.NoError(t, err)

	_, err = client.Do(context.Background(), http.MethodGet, "/v1/ping", nil)

	require.NoError(t, err)
	assert.Equal(t, "Bearer token-1", gotAuth)
}

func TestClient_Check(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			_, _ = w.Write([]byte(`{"status":"ok"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	assert.Equal(t, "document-store", client.Name())
	assert.NoError(t, client.Check(context.Background()))
}

func TestClient_Do_TransportError(t *testing.T) {
	client, err := New(&Config{
		BaseURL: "http://127.0.0.1:1", // nothing listens here
		Name:    "document-store",
		Timeout: time.Second,
	})
	require.NoError(t, err)

	_, err = client.Do(context.Background(), http.MethodGet, "/v1/ping", nil)

	require.Error(t, err)

	var rerr *RemoteError
	assert.False(t, errors.As(err, &rerr), "transport failures are not remote errors")
}
