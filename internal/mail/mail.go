// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

// Package mail delivers transactional email. HTTPMailer posts to a JSON
// email API and LogMailer writes messages to the log for development.
package mail

import (
	"context"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/harborlight/harborlight/internal/auth"
)

// Defaults for HTTPMailer.
const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxAttempts = 3
	defaultBackoffBase = 200 * time.Millisecond
)

// Recorder receives one call per delivery attempt sequence.
// *observability.Metrics satisfies it.
type Recorder interface {
	RecordMailDelivery(success bool)
}

// Config configures an HTTPMailer.
type Config struct {
	Endpoint    string
	APIKey      string
	From        string
	Timeout     time.Duration
	MaxAttempts uint64
	// BackoffBase is the first retry delay; later delays grow exponentially.
	BackoffBase time.Duration
}

type message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// HTTPMailer sends email through an HTTP API with bearer authentication.
type HTTPMailer struct {
	client   *resty.Client
	from     string
	attempts uint64
	backoff  time.Duration
	recorder Recorder
}

// NewHTTPMailer validates cfg and creates an HTTPMailer. recorder may be nil.
func NewHTTPMailer(cfg Config, recorder Recorder) (*HTTPMailer, error) {
	if cfg.Endpoint == "" {
		return nil, oops.Code(auth.CodeConfiguration).Errorf("mail endpoint is required")
	}
	if cfg.APIKey == "" {
		return nil, oops.Code(auth.CodeConfiguration).Errorf("mail api key is required")
	}
	if _, err := mail.ParseAddress(cfg.From); err != nil {
		return nil, oops.Code(auth.CodeConfiguration).With("from", cfg.From).Wrapf(err, "invalid sender address")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = defaultBackoffBase
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.Endpoint, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetAuthToken(cfg.APIKey)

	return &HTTPMailer{
		client:   client,
		from:     cfg.From,
		attempts: cfg.MaxAttempts,
		backoff:  cfg.BackoffBase,
		recorder: recorder,
	}, nil
}

// Send posts one message, retrying network failures, 429 and 5xx responses
// with exponential backoff. Other 4xx responses fail immediately.
func (m *HTTPMailer) Send(ctx context.Context, to, subject, body string) error {
	payload := message{From: m.from, To: to, Subject: subject, Text: body}
	backoff := retry.WithMaxRetries(m.attempts-1, retry.NewExponential(m.backoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := m.client.R().SetContext(ctx).SetBody(payload).Post("")
		if err != nil {
			return retry.RetryableError(oops.Code("MAIL_SEND_FAILED").Wrap(err))
		}
		status := resp.StatusCode()
		switch {
		case status >= 200 && status < 300:
			return nil
		case status == http.StatusTooManyRequests || status >= 500:
			return retry.RetryableError(oops.Code("MAIL_SEND_FAILED").
				With("status", status).
				Errorf("mail api returned %d", status))
		default:
			return oops.Code("MAIL_REJECTED").
				With("status", status).
				Errorf("mail api rejected message with %d", status)
		}
	})

	if m.recorder != nil {
		m.recorder.RecordMailDelivery(err == nil)
	}
	return err
}

// LogMailer logs messages instead of sending them.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a LogMailer. A nil logger uses slog.Default.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

// Send logs the message, including its body, at info level.
func (m *LogMailer) Send(ctx context.Context, to, subject, body string) error {
	m.logger.InfoContext(ctx, "mail not sent (log transport)",
		"to", to,
		"subject", subject,
		"body", body,
	)
	return nil
}

var (
	_ auth.Mailer = (*HTTPMailer)(nil)
	_ auth.Mailer = (*LogMailer)(nil)
)
