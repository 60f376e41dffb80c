// Package sender is the outbound send collaborator: it performs the
// actual network call for domain messages. Retry and delivery policy
// live with the platform, not here.
package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const sendPath = "/v1/messages/send"

// Client posts message payloads to the platform API.
type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

// New builds a sender for the given API base URL.
func New(baseURL string, log *slog.Logger) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("api base url is required")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log.With("component", "sender.client"),
	}, nil
}

// Send posts one payload authorized by token.
func (c *Client) Send(ctx context.Context, token string, payload any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(token) == "" {
		return errors.New("token is required")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+sendPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("send message: unexpected status %d", resp.StatusCode)
	}

	c.log.Debug("Message sent", "status", resp.StatusCode)

	return nil
}
