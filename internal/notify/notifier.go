package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client delivers titled messages to a human through the message-hub
// service. Delivery is best-effort: callers log a failed send and move on,
// it never affects ledger state.
type Client struct {
	host       string
	recipient  string
	httpClient *http.Client
}

type sendMessageRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func NewClient(httpClient *http.Client, host, recipient string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &Client{
		host:       strings.TrimRight(host, "/"),
		recipient:  recipient,
		httpClient: httpClient,
	}
}

// Send posts one notification to the configured recipient.
func (c *Client) Send(ctx context.Context, title, content string) error {
	if c.recipient == "" {
		return fmt.Errorf("missing recipient")
	}
	endpoint := c.host + "/send/user/" + url.PathEscape(c.recipient)
	b, err := json.Marshal(sendMessageRequest{Title: title, Content: content})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("message-hub http %d", resp.StatusCode)
	}
	return nil
}
