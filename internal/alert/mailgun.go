package alert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Simplici0/dealfinder/internal/retry"
)

const defaultMailgunBaseURL = "https://api.mailgun.net/v3"

// ErrNoCredentials is returned when the Mailgun API key or domain is missing.
var ErrNoCredentials = errors.New("mailgun credentials not configured (MAILGUN_API_KEY / MAILGUN_DOMAIN)")

// MailgunOptions configures a Mailgun notifier.
type MailgunOptions struct {
	APIKey     string
	Domain     string
	BaseURL    string
	HTTPClient *http.Client
	Retry      retry.Config
	Logger     *zap.Logger
}

// Mailgun sends messages through the Mailgun HTTP API.
type Mailgun struct {
	apiKey  string
	domain  string
	baseURL string
	http    *http.Client
	retry   retry.Config
	logger  *zap.Logger
}

// NewMailgun returns a Mailgun notifier or ErrNoCredentials.
func NewMailgun(opts MailgunOptions) (*Mailgun, error) {
	if opts.APIKey == "" || opts.Domain == "" {
		return nil, ErrNoCredentials
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("mailgun")

	m := &Mailgun{
		apiKey:  opts.APIKey,
		domain:  opts.Domain,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    opts.HTTPClient,
		retry:   opts.Retry,
		logger:  logger,
	}
	if m.baseURL == "" {
		m.baseURL = defaultMailgunBaseURL
	}
	if m.http == nil {
		m.http = &http.Client{Timeout: 15 * time.Second}
	}
	if m.retry.MaxAttempts == 0 {
		m.retry = retry.Default(logger)
	}
	if m.retry.Logger == nil {
		m.retry.Logger = logger
	}
	return m, nil
}

// Send posts m to the domain's messages endpoint. An empty sender becomes
// "Homelab Deal Finder <alerts@DOMAIN>".
func (m *Mailgun) Send(ctx context.Context, msg Message) error {
	form := url.Values{}
	from := msg.From
	if from == "" {
		from = fmt.Sprintf("Homelab Deal Finder <alerts@%s>", m.domain)
	}
	form.Set("from", from)
	for _, to := range msg.To {
		form.Add("to", to)
	}
	form.Set("subject", msg.Subject)
	form.Set("text", msg.Text)
	if msg.HTML != "" {
		form.Set("html", msg.HTML)
	}
	endpoint := fmt.Sprintf("%s/%s/messages", m.baseURL, url.PathEscape(m.domain))

	return m.retry.Do(ctx, "send mailgun message", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return retry.Permanent(fmt.Errorf("build mailgun request: %w", err))
		}
		req.SetBasicAuth("api", m.apiKey)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := m.http.Do(req)
		if err != nil {
			return fmt.Errorf("post mailgun message: %w", err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		switch {
		case resp.StatusCode >= 500:
			return fmt.Errorf("mailgun returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		case resp.StatusCode >= 300:
			return retry.Permanent(fmt.Errorf("mailgun returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
		}
		m.logger.Info("mailgun accepted message", zap.String("response", strings.TrimSpace(string(body))))
		return nil
	})
}
