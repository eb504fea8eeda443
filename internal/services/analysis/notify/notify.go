// Package notify delivers run notices to operators
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	perr "claimguard/internal/platform/errors"
	"claimguard/internal/platform/logger"
	"claimguard/internal/services/analysis/domain"
)

// Log writes notices to the structured log
type Log struct{}

// Notify logs title and body at info level
func (Log) Notify(ctx context.Context, title, body string) error {
	logger.C(ctx).Info().Str("title", title).Str("body", body).Msg("analysis: notify")
	return nil
}

// Payload is the webhook body
type Payload struct {
	Title string    `json:"title"`
	Body  string    `json:"body"`
	RunID string    `json:"run_id,omitempty"`
	At    time.Time `json:"at"`
}

// Webhook posts notices as JSON to a fixed URL
type Webhook struct {
	URL    string
	Client *http.Client

	// RunID extracts the run id from ctx for the payload, optional
	RunID func(context.Context) string
}

// NewWebhook returns a Webhook with a bounded client timeout
func NewWebhook(url string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Webhook{URL: url, Client: &http.Client{Timeout: timeout}}
}

// Notify posts the payload, any non 2xx answer is an error
func (w *Webhook) Notify(ctx context.Context, title, body string) error {
	p := Payload{Title: title, Body: body, At: time.Now().UTC()}
	if w.RunID != nil {
		p.RunID = w.RunID(ctx)
	}
	buf, err := json.Marshal(p)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(buf))
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "notify: build request")
	}
	req.Header.Set("Content-Type", "application/json")

	c := w.Client
	if c == nil {
		c = http.DefaultClient
	}
	resp, err := c.Do(req)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "notify: post webhook")
	}
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return perr.Newf(perr.ErrorCodeUnavailable, "notify: webhook answered %d", resp.StatusCode)
	}
	return nil
}

// Multi fans a notice out to every notifier and joins their errors
type Multi []domain.Notifier

// Notify calls every notifier even when an earlier one fails
func (m Multi) Notify(ctx context.Context, title, body string) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, title, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
