package analytics

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

// newTestClient creates a client pointed at a test server.
func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := New("123456789", server.Client())
	client.baseURL = server.URL
	return client, server
}

func TestSessionsForDate_Success(t *testing.T) {
	var receivedBody map[string]any

	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/properties/123456789:runReport", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		err := json.NewDecoder(r.Body).Decode(&receivedBody)
		require.NoError(t, err)

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"rows":[{"metricValues":[{"value":"1234"}]}]}`))
	})
	defer server.Close()

	day := time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)
	sessions, err := client.SessionsForDate(context.Background(), day)

	require.NoError(t, err)
	assert.Equal(t, int64(1234), sessions)

	dateRanges := receivedBody["dateRanges"].([]any)
	require.Len(t, dateRanges, 1)
	dr := dateRanges[0].(map[string]any)
	assert.Equal(t, "2024-01-06", dr["startDate"])
	assert.Equal(t, "2024-01-06", dr["endDate"])

	metrics := receivedBody["metrics"].([]any)
	require.Len(t, metrics, 1)
	assert.Equal(t, "sessions", metrics[0].(map[string]any)["name"])
}

func TestSessionsForDate_NoRowsMeansZero(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	})
	defer server.Close()

	sessions, err := client.SessionsForDate(context.Background(), time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	assert.Equal(t, int64(0), sessions)
}

func TestSessionsForDate_APIError(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"User does not have sufficient permissions","status":"PERMISSION_DENIED"}}`))
	})
	defer server.Close()

	_, err := client.SessionsForDate(context.Background(), time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC))

	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "User does not have sufficient permissions", apiErr.Message)
}

func TestSessionsForDate_UnstructuredErrorBody(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`upstream unavailable`))
	})
	defer server.Close()

	_, err := client.SessionsForDate(context.Background(), time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream unavailable", apiErr.Message)
}

func TestSessionsForDate_InvalidMetricValue(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"rows":[{"metricValues":[{"value":"not-a-number"}]}]}`))
	})
	defer server.Close()

	_, err := client.SessionsForDate(context.Background(), time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid session count")
}
