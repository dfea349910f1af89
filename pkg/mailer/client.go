package mailer

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/onurcolak/recurring-mailing-service/environments"
	"github.com/onurcolak/recurring-mailing-service/pkg/logger"
)

// TransportError is a delivery failure reported by the mail gateway. It is the
// only error class the send executor records and swallows; anything else
// propagates.
type TransportError struct {
	Message string
}

func (e *TransportError) Error() string {
	return "mail transport error: " + e.Message
}

// Sender is the outbound mail capability consumed by the send executor.
type Sender interface {
	Send(ctx context.Context, subject, body, from string, recipients []string) error
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}

type sendResponse struct {
	Message   string `json:"message"`
	MessageID string `json:"messageId"`
}

// Client talks to the HTTP mail gateway.
type Client struct {
	httpClient *resty.Client
	url        string
}

func NewClient(cfg environments.MailerConfig) *Client {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(0). // failed sends are recorded, not retried
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("x-mailer-auth-key", cfg.AuthKey)

	return &Client{
		httpClient: client,
		url:        cfg.URL,
	}
}

func (c *Client) Send(ctx context.Context, subject, body, from string, recipients []string) error {
	payload := sendRequest{
		From:    from,
		To:      recipients,
		Subject: subject,
		Body:    body,
	}

	var gatewayResp sendResponse

	startTime := time.Now()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&gatewayResp).
		Post(c.url)
	if err != nil {
		return &TransportError{Message: err.Error()}
	}

	logger.Debugf("Mail gateway request to %s completed in %v (status: %d)",
		c.url, time.Since(startTime), resp.StatusCode())

	if resp.StatusCode() != http.StatusAccepted && resp.StatusCode() != http.StatusOK {
		return &TransportError{
			Message: fmt.Sprintf("unexpected status code %d: %s", resp.StatusCode(), resp.String()),
		}
	}

	logger.Infof("Mail accepted by gateway (messageId: %s, recipients: %d)", gatewayResp.MessageID, len(recipients))

	return nil
}

func (c *Client) URL() string {
	return c.url
}
