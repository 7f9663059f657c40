package fetch

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

func TestJSON_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))

		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "ping", in["msg"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"msg":"pong"}`))
	}))
	defer server.Close()

	client := NewClient(&Options{Headers: map[string]string{"x-api-key": "secret"}})

	var out map[string]string
	status, err := client.JSON(context.Background(), http.MethodPost, server.URL, map[string]string{"msg": "ping"}, &out)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "pong", out["msg"])
}

func TestJSON_InvalidURL(t *testing.T) {
	_, err := NewClient(nil).JSON(context.Background(), http.MethodGet, "not-a-valid-url", nil, nil)
	require.Error(t, err)

	var fetchErr *Error
	assert.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, err.Error(), "invalid URL")
}

func TestJSON_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"slow down"}`))
	}))
	defer server.Close()

	status, err := NewClient(nil).JSON(context.Background(), http.MethodGet, server.URL, nil, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusTooManyRequests, status)

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusTooManyRequests, fetchErr.StatusCode)
	assert.Contains(t, fetchErr.Body, "slow down")
	assert.Contains(t, err.Error(), "429")
}

func TestJSON_DecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	var out map[string]any
	_, err := NewClient(nil).JSON(context.Background(), http.MethodGet, server.URL, nil, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode response")
}

func TestJSON_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	status, err := NewClient(&Options{Timeout: 20 * time.Millisecond}).JSON(context.Background(), http.MethodGet, server.URL, nil, nil)
	require.Error(t, err)
	assert.Zero(t, status)
	assert.Contains(t, err.Error(), "HTTP request failed")
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(&Options{})
	assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)
	assert.Equal(t, DefaultUserAgent, c.opts.UserAgent)
}
