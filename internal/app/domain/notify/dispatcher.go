package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/FACorreiaa/parkspot/internal/app/models"
)

// Dispatcher delivers one push message to one device. Implementations never
// return an error; every transport outcome is folded into DeliveryResult so
// callers aggregate results for observability only, never for control flow.
type Dispatcher interface {
	Dispatch(ctx context.Context, deviceToken, title, body string, data map[string]string) models.DeliveryResult
}

// Ensure PushDispatcher implements the Dispatcher interface
var _ Dispatcher = (*PushDispatcher)(nil)

// PushDispatcher sends notifications through an Expo-compatible push gateway.
type PushDispatcher struct {
	logger     *zap.Logger
	client     *http.Client
	gatewayURL string
}

// NewPushDispatcher creates a dispatcher with a bounded per-send timeout.
func NewPushDispatcher(gatewayURL string, sendTimeout time.Duration, logger *zap.Logger) *PushDispatcher {
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}
	return &PushDispatcher{
		logger:     logger,
		client:     &http.Client{Timeout: sendTimeout},
		gatewayURL: gatewayURL,
	}
}

type pushMessage struct {
	To    string            `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// gatewayReply is the minimal slice of the gateway response we inspect.
// Everything else in the reply is treated as opaque.
type gatewayReply struct {
	Data struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"data"`
}

// Dispatch sends a single push. A timed-out send is classified the same as
// any other failed send.
func (d *PushDispatcher) Dispatch(ctx context.Context, deviceToken, title, body string, data map[string]string) models.DeliveryResult {
	result := models.DeliveryResult{DeviceToken: deviceToken}

	payload, err := json.Marshal(pushMessage{
		To:    deviceToken,
		Title: title,
		Body:  body,
		Data:  data,
	})
	if err != nil {
		result.Error = fmt.Sprintf("encode push payload: %v", err)
		d.logger.Warn("Failed to encode push payload", zap.Error(err))
		return result
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.gatewayURL, bytes.NewReader(payload))
	if err != nil {
		result.Error = fmt.Sprintf("build push request: %v", err)
		d.logger.Warn("Failed to build push request", zap.Error(err))
		return result
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		result.Error = fmt.Sprintf("push send failed: %v", err)
		d.logger.Warn("Push send failed",
			zap.String("deviceToken", truncateToken(deviceToken)),
			zap.Error(err))
		return result
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		result.Status = resp.Status
		result.Error = fmt.Sprintf("gateway returned %s", resp.Status)
		d.logger.Warn("Push gateway rejected send",
			zap.String("deviceToken", truncateToken(deviceToken)),
			zap.Int("status", resp.StatusCode))
		return result
	}

	var reply gatewayReply
	if err := json.Unmarshal(raw, &reply); err == nil && reply.Data.Status == "error" {
		result.Status = reply.Data.Status
		result.Error = reply.Data.Message
		d.logger.Warn("Push gateway reported delivery error",
			zap.String("deviceToken", truncateToken(deviceToken)),
			zap.String("message", reply.Data.Message))
		return result
	}

	result.OK = true
	result.Status = "ok"
	return result
}

// truncateToken keeps push tokens out of logs.
func truncateToken(token string) string {
	if len(token) <= 12 {
		return token
	}
	return token[:12] + "..."
}
