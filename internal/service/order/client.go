package order

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const submitTimeout = 10 * time.Second

// Order is the payload handed off to the fulfillment backend once all
// delivery details are collected.
type Order struct {
	Name    string `json:"name"`
	City    string `json:"city"`
	Address string `json:"address"`
}

// Sink receives completed orders.
type Sink interface {
	Submit(ctx context.Context, order Order) error
}

// Client posts completed orders to an HTTP fulfillment backend.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a client for the given backend endpoint URL.
func NewClient(url string) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: submitTimeout},
	}
}

// Submit posts the order as JSON. Any non-2xx status is an error.
func (c *Client) Submit(ctx context.Context, order Order) error {
	payload, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to encode order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach order backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("order backend returned %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// LogSink records completed orders in the process log. It stands in for the
// HTTP client when no backend URL is configured.
type LogSink struct{}

// Submit writes the order to the log and always succeeds.
func (LogSink) Submit(_ context.Context, order Order) error {
	log.Printf("[order] no backend configured, logging order: name=%q city=%q address=%q", order.Name, order.City, order.Address)
	return nil
}
