package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDispatchSuccess(t *testing.T) {
	var received pushMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"status":"ok"}}`))
	}))
	defer server.Close()

	d := NewPushDispatcher(server.URL, 2*time.Second, zap.NewNop())
	result := d.Dispatch(context.Background(), "ExponentPushToken[abc]", "Parking reminder", "Expiring soon", map[string]string{"type": "parking_reminder"})

	assert.True(t, result.OK)
	assert.Equal(t, "ok", result.Status)
	assert.Empty(t, result.Error)
	assert.Equal(t, "ExponentPushToken[abc]", received.To)
	assert.Equal(t, "Parking reminder", received.Title)
	assert.Equal(t, "parking_reminder", received.Data["type"])
}

func TestDispatchGatewayRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	d := NewPushDispatcher(server.URL, 2*time.Second, zap.NewNop())
	result := d.Dispatch(context.Background(), "token", "title", "body", nil)

	assert.False(t, result.OK)
	assert.Contains(t, result.Error, "502")
}

func TestDispatchGatewayReportedError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"status":"error","message":"DeviceNotRegistered"}}`))
	}))
	defer server.Close()

	d := NewPushDispatcher(server.URL, 2*time.Second, zap.NewNop())
	result := d.Dispatch(context.Background(), "token", "title", "body", nil)

	assert.False(t, result.OK)
	assert.Equal(t, "DeviceNotRegistered", result.Error)
}

func TestDispatchTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	d := NewPushDispatcher(server.URL, time.Second, zap.NewNop())
	result := d.Dispatch(context.Background(), "token", "title", "body", nil)

	assert.False(t, result.OK)
	assert.NotEmpty(t, result.Error)
}

func TestDispatchTimeoutIsAFailedSend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer server.Close()

	d := NewPushDispatcher(server.URL, 50*time.Millisecond, zap.NewNop())
	result := d.Dispatch(context.Background(), "token", "title", "body", nil)

	assert.False(t, result.OK)
	assert.NotEmpty(t, result.Error)
}

func TestTruncateToken(t *testing.T) {
	assert.Equal(t, "short", truncateToken("short"))
	assert.Equal(t, "ExponentPush...", truncateToken("ExponentPushToken[abcdef]"))
}
