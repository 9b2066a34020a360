// Package notify is the client for the hosted send-email-notification
// function. Sends are best-effort: callers fire them from a goroutine
// and only log failures, a lost notification never fails the action it
// was attached to.
package notify

import (
	"context"
	"fmt"
	"time"

	"resty.dev/v3"
)

type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Content string `json:"content"`
}

type Client struct {
	client      *resty.Client
	functionURL string
	apiKey      string
}

func NewClient(functionURL, apiKey string) *Client {
	client := resty.NewWithTransportSettings(&resty.TransportSettings{
		DialerTimeout:         2 * time.Second,
		IdleConnTimeout:       2 * time.Second,
		TLSHandshakeTimeout:   2 * time.Second,
		ResponseHeaderTimeout: 5 * time.Second,
	})

	return &Client{
		client:      client,
		functionURL: functionURL,
		apiKey:      apiKey,
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// SendEmail invokes the remote function with the message payload.
func (c *Client) SendEmail(ctx context.Context, to, subject, content string) error {
	res, err := c.client.R().
		WithContext(ctx).
		SetHeader("Authorization", "Bearer "+c.apiKey).
		SetBody(&Email{To: to, Subject: subject, Content: content}).
		Post(c.functionURL)
	if err != nil {
		return err
	}
	if res.IsError() {
		return fmt.Errorf("send-email-notification: %s", res.Status())
	}
	return nil
}
