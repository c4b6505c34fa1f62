package traffilog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientAuthenticate(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantToken  string
		wantErr    bool
		wantStatus int
	}{
		{
			name:      "top-level token field",
			status:    http.StatusOK,
			body:      `{"token":"tok-top"}`,
			wantToken: "tok-top",
		},
		{
			name:      "nested response.properties.session_token",
			status:    http.StatusOK,
			body:      `{"response":{"properties":{"session_token":"tok-nested"}}}`,
			wantToken: "tok-nested",
		},
		{
			name:      "result.session_token",
			status:    http.StatusOK,
			body:      `{"result":{"session_token":"tok-result"}}`,
			wantToken: "tok-result",
		},
		{
			name:      "top-level token has priority",
			status:    http.StatusOK,
			body:      `{"token":"tok-top","response":{"properties":{"session_token":"tok-nested"}}}`,
			wantToken: "tok-top",
		},
		{
			name:      "whitespace token falls through to next shape",
			status:    http.StatusOK,
			body:      `{"token":"  ","response":{"properties":{"session_token":"tok-nested"}}}`,
			wantToken: "tok-nested",
		},
		{
			name:    "no token in response",
			status:  http.StatusOK,
			body:    `{"response":{"properties":{}}}`,
			wantErr: true,
		},
		{
			name:       "login rejected",
			status:     http.StatusUnauthorized,
			body:       `{"error":"bad credentials"}`,
			wantErr:    true,
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.Client(), NewTokenCache(time.Hour), Config{
				LoginURL: server.URL,
				Username: "fleet-user",
				Password: "fleet-pass",
			})

			token, err := client.Authenticate(context.Background())

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrAuth)
				if tt.wantStatus != 0 {
					var upstream *UpstreamError
					require.ErrorAs(t, err, &upstream)
					assert.Equal(t, tt.wantStatus, upstream.StatusCode)
				}
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantToken, token)
		})
	}
}

func TestClientAuthenticate_LoginPayload(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte(`{"token":"tok"}`))
	}))
	defer server.Close()

	client := NewClient(server.Client(), NewTokenCache(time.Hour), Config{
		LoginURL: server.URL,
		Username: "fleet-user",
		Password: "fleet-pass",
	})

	_, err := client.Authenticate(context.Background())
	require.NoError(t, err)

	action, ok := captured["action"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "user_login", action["name"])

	params, ok := action["parameters"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "fleet-user", params["login_name"])
	assert.Equal(t, "fleet-pass", params["password"])
}

func TestClientAuthenticate_TokenCaching(t *testing.T) {
	loginCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		loginCalls++
		_, _ = w.Write([]byte(`{"token":"tok"}`))
	}))
	defer server.Close()

	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache := NewTokenCache(6 * time.Hour)
	cache.now = func() time.Time { return clock }

	client := NewClient(server.Client(), cache, Config{LoginURL: server.URL})

	// Two calls within the TTL window share one login.
	_, err := client.Authenticate(context.Background())
	require.NoError(t, err)
	_, err = client.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, loginCalls)

	// After expiry a new login is issued.
	clock = clock.Add(6 * time.Hour)
	_, err = client.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, loginCalls)
}

func dataBody(items string) string {
	return `{"response":{"properties":{"data":[` + items + `]}}}`
}

func TestClientLastPosition(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantLat float64
		wantLon float64
		wantErr error
	}{
		{
			name:    "standard field names",
			body:    dataBody(`{"latitude":32.0853,"longitude":34.7818}`),
			wantLat: 32.0853,
			wantLon: 34.7818,
		},
		{
			name:    "localized field names",
			body:    dataBody(`{"latitud":32.0853,"longitud":34.7818}`),
			wantLat: 32.0853,
			wantLon: 34.7818,
		},
		{
			name:    "string-valued coordinates",
			body:    dataBody(`{"latitude":"32.0853","longitude":"34.7818"}`),
			wantLat: 32.0853,
			wantLon: 34.7818,
		},
		{
			name:    "empty string falls through to localized spelling",
			body:    dataBody(`{"latitude":"","longitude":"","latitud":32.0853,"longitud":34.7818}`),
			wantLat: 32.0853,
			wantLon: 34.7818,
		},
		{
			name:    "empty data list",
			body:    dataBody(``),
			wantErr: ErrNoPosition,
		},
		{
			name:    "error_code record",
			body:    dataBody(`{"error_code":403}`),
			wantErr: ErrVehicleNotFound,
		},
		{
			name:    "unparseable coordinate",
			body:    dataBody(`{"latitude":"north-ish","longitude":34.7818}`),
			wantErr: ErrBadCoordinates,
		},
		{
			name:    "missing longitude",
			body:    dataBody(`{"latitude":32.0853}`),
			wantErr: ErrBadCoordinates,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.Client(), NewTokenCache(time.Hour), Config{DataURL: server.URL})

			coords, err := client.LastPosition(context.Background(), "tok", "12-345-67")

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantLat, coords.Latitude)
			assert.Equal(t, tt.wantLon, coords.Longitude)
		})
	}
}

func TestClientLastPosition_RawValuesInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(dataBody(`{"latitude":"not-a-number","longitude":"34.78"}`)))
	}))
	defer server.Close()

	client := NewClient(server.Client(), NewTokenCache(time.Hour), Config{DataURL: server.URL})

	_, err := client.LastPosition(context.Background(), "tok", "12-345-67")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadCoordinates)
	assert.Contains(t, err.Error(), "not-a-number")
}

func TestClientLastPosition_DataPayload(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte(dataBody(`{"latitude":1,"longitude":2}`)))
	}))
	defer server.Close()

	client := NewClient(server.Client(), NewTokenCache(time.Hour), Config{DataURL: server.URL})

	_, err := client.LastPosition(context.Background(), "sess-tok", "12-345-67")
	require.NoError(t, err)

	action, ok := captured["action"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "api_get_data", action["name"])

	paramList, ok := action["parameters"].([]any)
	require.True(t, ok)
	require.Len(t, paramList, 1)

	params, ok := paramList[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "12-345-67", params["license_nmbr"])
	assert.Equal(t, "sess-tok", params["session_token"])
	assert.Equal(t, "", params["last_time"])
	assert.Equal(t, "4", params["version"])
}

func TestClientLastPosition_RelaxedRetry(t *testing.T) {
	t.Run("disabled by default", func(t *testing.T) {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			_, _ = w.Write([]byte(`{"response":{"properties":{"data":[]}}}`))
		}))
		defer server.Close()

		client := NewClient(server.Client(), NewTokenCache(time.Hour), Config{DataURL: server.URL})

		_, err := client.LastPosition(context.Background(), "tok", "12-345-67")
		assert.ErrorIs(t, err, ErrNoPosition)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries once without the time filter", func(t *testing.T) {
		calls := 0
		var secondParams map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 1 {
				_, _ = w.Write([]byte(`{"response":{"properties":{"data":[]}}}`))
				return
			}
			var payload map[string]any
			_ = json.NewDecoder(r.Body).Decode(&payload)
			secondParams = payload["action"].(map[string]any)["parameters"].([]any)[0].(map[string]any)
			_, _ = w.Write([]byte(dataBody(`{"latitude":32.0853,"longitude":34.7818}`)))
		}))
		defer server.Close()

		client := NewClient(server.Client(), NewTokenCache(time.Hour), Config{
			DataURL:                server.URL,
			RetryWithoutTimeFilter: true,
		})

		coords, err := client.LastPosition(context.Background(), "tok", "12-345-67")
		require.NoError(t, err)
		assert.Equal(t, 32.0853, coords.Latitude)
		assert.Equal(t, 2, calls)
		assert.NotContains(t, secondParams, "last_time")
	})

	t.Run("gives up after a single retry", func(t *testing.T) {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			_, _ = w.Write([]byte(`{"response":{"properties":{"data":[]}}}`))
		}))
		defer server.Close()

		client := NewClient(server.Client(), NewTokenCache(time.Hour), Config{
			DataURL:                server.URL,
			RetryWithoutTimeFilter: true,
		})

		_, err := client.LastPosition(context.Background(), "tok", "12-345-67")
		assert.ErrorIs(t, err, ErrNoPosition)
		assert.Equal(t, 2, calls)
	})
}

func TestClientLastPosition_UpstreamStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"expired session"}`))
	}))
	defer server.Close()

	client := NewClient(server.Client(), NewTokenCache(time.Hour), Config{DataURL: server.URL})

	_, err := client.LastPosition(context.Background(), "tok", "12-345-67")
	require.Error(t, err)

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusForbidden, upstream.StatusCode)
	assert.Contains(t, upstream.Body, "expired session")
}
