package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/farlance/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(config.NotifyConfig{
		APIConfig: config.APIConfig{
			BaseURL: server.URL + "/",
			APIKey:  "test-key",
			Timeout: config.Duration(time.Second),
		},
	})
}

func deliveryHandler(status string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sendRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		fid := int64(0)
		if len(req.TargetFIDs) > 0 {
			fid = req.TargetFIDs[0]
		}
		_, _ = fmt.Fprintf(w, `{"notification_deliveries":[{"fid":%d,"status":%q}]}`, fid, status)
	}
}

func TestSend_Request(t *testing.T) {
	var got sendRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, notificationsPath, r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"notification_deliveries":[{"fid":42,"status":"success"}]}`))
	})

	n := Notification{Title: "New job: Logo", Body: "Need a logo", TargetURL: "https://app/jobs/1", UUID: "1"}
	outcome, err := client.Send(context.Background(), 42, n)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, outcome)
	assert.Equal(t, []int64{42}, got.TargetFIDs)
	assert.Equal(t, n, got.Notification)
}

func TestSend_Outcomes(t *testing.T) {
	tests := []struct {
		status string
		want   Outcome
	}{
		{"success", OutcomeSuccess},
		{"no_token", OutcomeNoToken},
		{"token_disabled", OutcomeNoToken},
		{"invalid_token", OutcomeNoToken},
		{"rate_limited", OutcomeRateLimited},
		{"failed", OutcomeError},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			client := newTestClient(t, deliveryHandler(tt.status))
			outcome, err := client.Send(context.Background(), 7, Notification{Title: "t"})
			assert.Equal(t, tt.want, outcome)
			if tt.want == OutcomeSuccess {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSend_HTTPStatus(t *testing.T) {
	t.Run("429 is rate limited", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
		outcome, err := client.Send(context.Background(), 1, Notification{})
		assert.Equal(t, OutcomeRateLimited, outcome)
		assert.Error(t, err)
	})

	t.Run("500 is error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		outcome, err := client.Send(context.Background(), 1, Notification{})
		assert.Equal(t, OutcomeError, outcome)
		assert.Error(t, err)
	})
}

func TestSend_MissingRecipient(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"notification_deliveries":[]}`))
	})
	outcome, err := client.Send(context.Background(), 5, Notification{})
	assert.Equal(t, OutcomeError, outcome)
	assert.Error(t, err)
}

func TestSend_Unreachable(t *testing.T) {
	client := NewClient(config.NotifyConfig{
		APIConfig: config.APIConfig{BaseURL: "http://127.0.0.1:1", Timeout: config.Duration(time.Second)},
	})
	outcome, err := client.Send(context.Background(), 5, Notification{})
	assert.Equal(t, OutcomeError, outcome)
	assert.Error(t, err)
}
