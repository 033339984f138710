package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Pusher delivers a push notification to one user. Best effort: the relay
// isolates failures per recipient and never blocks a room broadcast on it.
type Pusher interface {
	Notify(ctx context.Context, userID, title, body, typ string, data map[string]string) error
}

// FCMPusher posts to the FCM HTTP v1 endpoint. Device-token resolution
// lives server-side behind the endpoint; the relay only knows user ids.
type FCMPusher struct {
	Endpoint string
	Key      string
	Client   *http.Client
}

func NewFCMPusher(endpoint, key string) *FCMPusher {
	return &FCMPusher{Endpoint: endpoint, Key: key, Client: &http.Client{Timeout: 3 * time.Second}}
}

func (f *FCMPusher) Notify(ctx context.Context, userID, title, body, typ string, data map[string]string) error {
	payload := map[string]interface{}{
		"message": map[string]interface{}{
			"user_id": userID,
			"notification": map[string]string{
				"title": title,
				"body":  body,
			},
			"data": merged(typ, data),
		},
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.Endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if f.Key != "" {
		req.Header.Set("Authorization", "Bearer "+f.Key)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return fmt.Errorf("push %s: %w", userID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("push %s: status %d", userID, resp.StatusCode)
	}
	return nil
}

func merged(typ string, data map[string]string) map[string]string {
	out := map[string]string{"type": typ}
	for k, v := range data {
		out[k] = v
	}
	return out
}
