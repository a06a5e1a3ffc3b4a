// Package push delivers device notifications through an Expo-compatible
// push relay. Delivery is best effort: callers log failures and move on.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultEndpoint is Expo's push send API.
const DefaultEndpoint = "https://exp.host/--/api/v2/push/send"

// Title is shown on every push sent by the app.
const Title = "Ranked"

type Message struct {
	To    string `json:"to"`
	Title string `json:"title"`
	Body  string `json:"body"`
	Data  Data   `json:"data"`
}

// Data is the payload the app reads when the user taps a notification.
type Data struct {
	Type         string `json:"type"`
	FromUserID   string `json:"fromUserId"`
	RankingID    string `json:"rankingId,omitempty"`
	RankingTitle string `json:"rankingTitle,omitempty"`
	Reaction     string `json:"reaction,omitempty"`
	CommentText  string `json:"commentText,omitempty"`
}

// Relay sends a message to a single device.
type Relay interface {
	Send(ctx context.Context, msg Message) error
}

// HTTPRelay posts messages as JSON to a relay endpoint.
type HTTPRelay struct {
	endpoint string
	client   *http.Client
}

func NewHTTPRelay(endpoint string, timeout time.Duration) *HTTPRelay {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &HTTPRelay{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (r *HTTPRelay) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("push relay responded %s", resp.Status)
	}
	return nil
}

// Discard is a Relay that drops every message. Used when push is disabled.
type Discard struct{}

func (Discard) Send(context.Context, Message) error { return nil }

var (
	_ Relay = (*HTTPRelay)(nil)
	_ Relay = Discard{}
)
