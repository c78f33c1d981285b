package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/smallbiznis/kassa/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testProviderConfig(baseURL string) config.ProviderConfig {
	return config.ProviderConfig{
		BaseURL:        baseURL,
		Username:       "merchant",
		Password:       "sharedsecret",
		APIVariant:     config.APIVariantStandard,
		TimeoutSeconds: 5,
		CacheTTLSecs:   60,
	}
}

func TestNewClient_ConfigFaults(t *testing.T) {
	log := zap.NewNop()

	cfg := testProviderConfig("https://api.example.com")
	cfg.Username = ""
	_, err := NewClient(cfg, log)
	assert.ErrorIs(t, err, ErrMissingCredentials)

	cfg = testProviderConfig("not a url")
	_, err = NewClient(cfg, log)
	assert.ErrorIs(t, err, ErrInvalidBaseURL)

	cfg = testProviderConfig("https://api.example.com")
	cfg.APIVariant = "bogus"
	_, err = NewClient(cfg, log)
	assert.ErrorIs(t, err, ErrUnknownVariant)
}

func TestCreateSession_SendsBasicAuth(t *testing.T) {
	var gotUser, gotPass string
	var gotAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, gotAuth = r.BasicAuth()
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/checkout/v1/sessions", r.URL.Path)

		var req SessionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(12500), req.OrderAmount)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Session{ID: "sess-1", Status: StatusIncomplete, HTMLSnippet: "<div>checkout</div>"})
	}))
	defer srv.Close()

	client, err := NewClient(testProviderConfig(srv.URL), zap.NewNop())
	require.NoError(t, err)

	resp, err := client.CreateSession(context.Background(), &SessionRequest{OrderAmount: 12500})
	require.NoError(t, err)
	require.True(t, resp.IsSuccessful())
	assert.Equal(t, "sess-1", resp.Session.ID)
	assert.Equal(t, "<div>checkout</div>", resp.Session.HTMLSnippet)

	assert.True(t, gotAuth)
	assert.Equal(t, "merchant", gotUser)
	assert.Equal(t, "sharedsecret", gotPass)
}

func TestGetSession_ServedFromCache(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		json.NewEncoder(w).Encode(Session{ID: "sess-1", Status: StatusComplete})
	}))
	defer srv.Close()

	client, err := NewClient(testProviderConfig(srv.URL), zap.NewNop())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		resp, err := client.GetSession(context.Background(), "sess-1")
		require.NoError(t, err)
		require.True(t, resp.IsSuccessful())
		assert.Equal(t, "sess-1", resp.Session.ID)
	}

	assert.Equal(t, int64(1), atomic.LoadInt64(&hits))
}

// Order-management reads must always see the current remote state; a cached
// order status would feed stale data into reconciliation.
func TestGetOrder_NeverCached(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		json.NewEncoder(w).Encode(RemoteOrder{ID: "order-1", Status: "AUTHORIZED"})
	}))
	defer srv.Close()

	client, err := NewClient(testProviderConfig(srv.URL), zap.NewNop())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		resp, err := client.GetOrder(context.Background(), "order-1")
		require.NoError(t, err)
		require.True(t, resp.IsSuccessful())
		assert.Equal(t, "order-1", resp.Order.ID)
	}

	assert.Equal(t, int64(3), atomic.LoadInt64(&hits))
}

func TestUpdateSession_InvalidatesCache(t *testing.T) {
	var gets int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			atomic.AddInt64(&gets, 1)
		}
		json.NewEncoder(w).Encode(Session{ID: "sess-1", Status: StatusIncomplete})
	}))
	defer srv.Close()

	client, err := NewClient(testProviderConfig(srv.URL), zap.NewNop())
	require.NoError(t, err)

	_, err = client.GetSession(context.Background(), "sess-1")
	require.NoError(t, err)
	_, err = client.UpdateSession(context.Background(), "sess-1", &SessionRequest{})
	require.NoError(t, err)
	_, err = client.GetSession(context.Background(), "sess-1")
	require.NoError(t, err)

	// The write dropped the cached read, so the second GET hit the server.
	assert.Equal(t, int64(2), atomic.LoadInt64(&gets))
}

func TestSessionCall_BusinessFailureIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]any{
			"error_code":     ErrCodeReadOnlyOrder,
			"error_messages": []string{"Order is in read only state"},
		})
	}))
	defer srv.Close()

	client, err := NewClient(testProviderConfig(srv.URL), zap.NewNop())
	require.NoError(t, err)

	resp, err := client.UpdateSession(context.Background(), "sess-1", &SessionRequest{})
	require.NoError(t, err)
	assert.False(t, resp.IsSuccessful())
	assert.True(t, resp.ReadOnly())
	assert.False(t, resp.Ambiguous())
	assert.Equal(t, http.StatusForbidden, resp.HTTPStatus)
	assert.Equal(t, []string{"Order is in read only state"}, resp.ErrorMessages)
}

func TestSessionCall_EmptyErrorBodyIsAmbiguous(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client, err := NewClient(testProviderConfig(srv.URL), zap.NewNop())
	require.NoError(t, err)

	resp, err := client.GetSession(context.Background(), "gone")
	require.NoError(t, err)
	assert.False(t, resp.IsSuccessful())
	assert.True(t, resp.Ambiguous())
}

func TestDo_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client, err := NewClient(testProviderConfig(srv.URL), zap.NewNop())
	require.NoError(t, err)

	_, err = client.GetSession(context.Background(), "sess-1")
	assert.ErrorIs(t, err, ErrTransport)
}

func TestOrderManagement_Acknowledge(t *testing.T) {
	var path, method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, method = r.URL.Path, r.Method
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client, err := NewClient(testProviderConfig(srv.URL), zap.NewNop())
	require.NoError(t, err)

	resp, err := client.Acknowledge(context.Background(), "order-1")
	require.NoError(t, err)
	assert.True(t, resp.IsSuccessful())
	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "/ordermanagement/v1/orders/order-1/acknowledge", path)
}
