package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Market status values reported by the trading-data service.
const (
	MarketOpen   = "MarketOpen"
	MarketClosed = "MarketClosed"
)

// Client talks to the trading-data service for stock prices and exchange
// market status. Every payload arrives in a {code, data, msg} envelope;
// a non-zero code is the only error signal the caller acts on.
type Client struct {
	host       string
	httpClient *http.Client
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Body)
}

// StatusError is a well-formed envelope with a non-zero business code.
type StatusError struct {
	Code int
	Msg  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("trading-data error (%d): %s", e.Code, e.Msg)
}

func NewClient(httpClient *http.Client, host string) *Client {
	host = strings.TrimRight(host, "/")
	return &Client{
		host:       host,
		httpClient: httpClient,
	}
}

func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.host + path
	if len(query) > 0 {
		fullURL = fullURL + "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// GetPrice fetches the current quote for one stock code.
func (c *Client) GetPrice(ctx context.Context, stockCode string) (*StockPrice, error) {
	if stockCode == "" {
		return nil, fmt.Errorf("stock code is required")
	}
	query := url.Values{}
	query.Set("code", stockCode)
	body, err := c.doRequest(ctx, "/stock/price", query)
	if err != nil {
		return nil, err
	}
	var env priceEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode price response: %w", err)
	}
	if env.Code != 0 {
		return nil, &StatusError{Code: env.Code, Msg: env.Msg}
	}
	if env.Data == nil {
		return nil, fmt.Errorf("price response has no data")
	}
	return env.Data, nil
}

// GetMarketStatus reports whether an exchange is currently trading.
func (c *Client) GetMarketStatus(ctx context.Context, exchange string) (string, error) {
	if exchange == "" {
		return "", fmt.Errorf("exchange is required")
	}
	body, err := c.doRequest(ctx, "/exchange/"+url.PathEscape(exchange)+"/market/status", nil)
	if err != nil {
		return "", err
	}
	var env marketStatusEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", fmt.Errorf("failed to decode market status response: %w", err)
	}
	if env.Code != 0 {
		return "", &StatusError{Code: env.Code, Msg: env.Msg}
	}
	return env.Data, nil
}
