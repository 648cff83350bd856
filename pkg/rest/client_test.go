package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nakula/internal/keyring"
	"nakula/internal/secret"
	"nakula/pkg/core"
)

func testConfig(baseURL string) *core.Config {
	return core.DefaultConfig("testvenue", baseURL).
		WithCircuitBreaker(false).
		WithRateLimit(1000, time.Minute)
}

func testCreds() *core.Credentials {
	return &core.Credentials{
		APIKey:    secret.New("test-key"),
		APISecret: secret.New("test-secret"),
	}
}

// headerAuth is a minimal signing hook for tests.
func headerAuth(req *core.Request, creds core.Credentials) error {
	req.SetHeader("X-API-KEY", creds.APIKey.Expose())
	return nil
}

func TestClient_SendPublic_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"serverTime":1700000000000}`))
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL))
	require.NoError(t, err)
	defer client.Close()

	var out struct {
		ServerTime int64 `json:"serverTime"`
	}
	req := core.NewRequest(http.MethodGet, "/api/v3/time")
	require.NoError(t, client.SendPublic(context.Background(), req, &out))
	assert.Equal(t, int64(1700000000000), out.ServerTime)
}

func TestClient_RateLimitResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"code":-1003,"msg":"Too many requests."}`))
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL))
	require.NoError(t, err)
	defer client.Close()

	err = client.SendPublic(context.Background(), core.NewRequest(http.MethodGet, "/x"), nil)
	require.Error(t, err)
	assert.True(t, core.IsRateLimitError(err))
	assert.Equal(t, 5*time.Second, core.RetryAfter(err))
}

func TestClient_DecodeFailureIsTypedNotPanic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>definitely not json</html>`))
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL))
	require.NoError(t, err)
	defer client.Close()

	var out struct {
		Price string `json:"price"`
	}
	err = client.SendPublic(context.Background(), core.NewRequest(http.MethodGet, "/x"), &out)
	require.Error(t, err)
	assert.True(t, core.IsDecodeError(err))
}

func TestClient_MappedVenueCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-1022,"msg":"Signature for this request is not valid."}`))
	}))
	defer server.Close()

	mapper := func(code string) (core.ErrorType, bool) {
		if code == "-1022" {
			return core.ErrorTypeUnauthorized, true
		}
		return core.ErrorTypeUnknown, false
	}

	client, err := New(testConfig(server.URL), WithCodeMapper(mapper))
	require.NoError(t, err)
	defer client.Close()

	err = client.SendPublic(context.Background(), core.NewRequest(http.MethodGet, "/x"), nil)
	require.Error(t, err)

	var apiErr *core.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, core.ErrorTypeUnauthorized, apiErr.Type)
	assert.Equal(t, "-1022", apiErr.VenueCode)
}

func TestClient_UnmappedVenueCodePreserved(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-9999,"msg":"Some brand new error."}`))
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL))
	require.NoError(t, err)
	defer client.Close()

	err = client.SendPublic(context.Background(), core.NewRequest(http.MethodGet, "/x"), nil)
	require.Error(t, err)

	var apiErr *core.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, core.ErrorTypeVenue, apiErr.Type)
	assert.Equal(t, "-9999", apiErr.VenueCode)
	assert.Equal(t, "Some brand new error.", apiErr.Message)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestClient_UnauthorizedStatusFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":"401","message":"bad key"}`))
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL))
	require.NoError(t, err)
	defer client.Close()

	err = client.SendPublic(context.Background(), core.NewRequest(http.MethodGet, "/x"), nil)
	assert.True(t, core.IsAuthError(err))
}

func TestClient_PrivateWithoutCredentials(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL), WithAuth(headerAuth))
	require.NoError(t, err)
	defer client.Close()

	err = client.SendPrivate(context.Background(), core.NewRequest(http.MethodGet, "/account"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNoCredentials)
	assert.True(t, core.IsAuthError(err))
	assert.Equal(t, int32(0), hits.Load(), "no network call may be attempted")
}

func TestClient_PrivateSigns(t *testing.T) {
	var gotKey atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey.Store(r.Header.Get("X-API-KEY"))
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL),
		WithAuth(headerAuth),
		WithCredentials(testCreds()),
	)
	require.NoError(t, err)
	defer client.Close()

	req := core.NewRequest(http.MethodGet, "/account")
	require.NoError(t, client.SendPrivate(context.Background(), req, nil))
	assert.Equal(t, "test-key", gotKey.Load())
}

func TestClient_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	config := testConfig(server.URL)
	server.Close()

	client, err := New(config)
	require.NoError(t, err)
	defer client.Close()

	err = client.SendPublic(context.Background(), core.NewRequest(http.MethodGet, "/x"), nil)
	assert.True(t, core.IsTransportError(err))
}

func TestClient_WeightExceedsBudget(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	client, err := New(testConfig(server.URL).WithRateLimit(10, time.Minute))
	require.NoError(t, err)
	defer client.Close()

	req := core.NewRequest(http.MethodGet, "/x").SetWeight(11)
	err = client.SendPublic(context.Background(), req, nil)
	require.Error(t, err)
	assert.True(t, core.IsValidationError(err))
}

func TestClient_RateLimitEndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	window := 300 * time.Millisecond
	client, err := New(testConfig(server.URL).WithRateLimit(10, window))
	require.NoError(t, err)
	defer client.Close()

	start := time.Now()
	for i := 0; i < 3; i++ {
		req := core.NewRequest(http.MethodGet, "/x").
			SetClassification(core.ClassAccount).
			SetWeight(4)
		require.NoError(t, client.SendPublic(context.Background(), req, nil))
	}

	// 3 * 4 = 12 > 10: the third call must wait out the window.
	assert.GreaterOrEqual(t, time.Since(start), window-50*time.Millisecond)
}

func TestClient_RateInfoHook(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-MBX-USED-WEIGHT-1M", "850")
		w.Header().Set("X-MBX-ORDER-COUNT-10S", "3")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	var got RateLimitInfo
	client, err := New(testConfig(server.URL), WithRateInfoHook(func(info RateLimitInfo) {
		got = info
	}))
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.SendPublic(context.Background(), core.NewRequest(http.MethodGet, "/x"), nil))
	assert.Equal(t, 850, got.UsedWeight["1m"])
	assert.Equal(t, 3, got.OrderCount["10s"])
}

func TestClient_CircuitBreakerOpens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"code":500,"msg":"boom"}`))
	}))
	defer server.Close()

	config := testConfig(server.URL)
	config.CircuitBreakerEnabled = true
	config.CircuitBreakerFailThreshold = 2
	config.CircuitBreakerSuccessThreshold = 1
	config.CircuitBreakerTimeout = time.Minute

	client, err := New(config)
	require.NoError(t, err)
	defer client.Close()

	for i := 0; i < 2; i++ {
		require.Error(t, client.SendPublic(context.Background(), core.NewRequest(http.MethodGet, "/x"), nil))
	}

	err = client.SendPublic(context.Background(), core.NewRequest(http.MethodGet, "/x"), nil)
	assert.ErrorIs(t, err, core.ErrCircuitOpen)
}

func TestClient_CircuitBreakerIgnoresCallerErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":"-1121","msg":"Invalid symbol."}`))
	}))
	defer server.Close()

	config := testConfig(server.URL)
	config.CircuitBreakerEnabled = true
	config.CircuitBreakerFailThreshold = 2
	config.CircuitBreakerSuccessThreshold = 1
	config.CircuitBreakerTimeout = time.Minute

	client, err := New(config, WithCodeMapper(func(code string) (core.ErrorType, bool) {
		if code == "-1121" {
			return core.ErrorTypeValidation, true
		}
		return core.ErrorTypeUnknown, false
	}))
	require.NoError(t, err)
	defer client.Close()

	// Caller mistakes are not venue ill-health: the circuit must stay
	// closed no matter how often a bad request is rejected.
	for i := 0; i < 5; i++ {
		err := client.SendPublic(context.Background(), core.NewRequest(http.MethodGet, "/x"), nil)
		require.Error(t, err)
		assert.True(t, core.IsValidationError(err))
	}
	assert.Equal(t, int32(5), hits.Load(), "every request reaches the server")
}

func TestClient_KeyRingRotatesOnRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	ring := keyring.New([]*keyring.Entry{
		{ID: "a", Credentials: *testCreds()},
		{ID: "b", Credentials: core.Credentials{
			APIKey:    secret.New("second-key"),
			APISecret: secret.New("second-secret"),
		}},
	}, keyring.RotationOnRateLimit)

	client, err := New(testConfig(server.URL),
		WithAuth(headerAuth),
		WithKeyRing(ring),
	)
	require.NoError(t, err)
	defer client.Close()

	require.Equal(t, "a", ring.Current().ID)

	err = client.SendPrivate(context.Background(), core.NewRequest(http.MethodGet, "/account"), nil)
	require.True(t, core.IsRateLimitError(err))

	assert.Equal(t, "b", ring.Current().ID, "rate-limited key should rotate out")
}

func TestClient_Closed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	client, err := New(testConfig(server.URL))
	require.NoError(t, err)
	require.NoError(t, client.Close())

	err = client.SendPublic(context.Background(), core.NewRequest(http.MethodGet, "/x"), nil)
	assert.ErrorIs(t, err, core.ErrClientClosed)
}
