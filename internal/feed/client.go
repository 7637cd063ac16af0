package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Simplici0/dealfinder/internal/results"
	"github.com/Simplici0/dealfinder/internal/retry"
	"github.com/Simplici0/dealfinder/internal/tco"
)

// ErrSearchFailed is returned when the remote reports an error status.
var ErrSearchFailed = errors.New("remote search failed")

// ClientOptions configures a Client.
type ClientOptions struct {
	URL        string
	HTTPClient *http.Client
	Retry      retry.Config
	Fallback   tco.Assumptions
	Logger     *zap.Logger
}

// Client fetches search payloads over HTTP. It implements results.Feed.
type Client struct {
	url      string
	http     *http.Client
	retry    retry.Config
	fallback tco.Assumptions
	logger   *zap.Logger
}

// NewClient returns a Client for the payload at opts.URL.
func NewClient(opts ClientOptions) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("feed")

	c := &Client{
		url:      opts.URL,
		http:     opts.HTTPClient,
		retry:    opts.Retry,
		fallback: opts.Fallback,
		logger:   logger,
	}
	if c.http == nil {
		// Full searches on the remote side can take a while.
		c.http = &http.Client{Timeout: 5 * time.Minute}
	}
	if c.retry.MaxAttempts == 0 {
		c.retry = retry.Default(logger)
	}
	if c.retry.Logger == nil {
		c.retry.Logger = logger
	}
	return c
}

// Search fetches and decodes one payload.
func (c *Client) Search(ctx context.Context) (results.Batch, error) {
	var payload Payload
	err := c.retry.Do(ctx, "fetch search feed", func(ctx context.Context) error {
		p, err := c.fetch(ctx)
		if err != nil {
			return err
		}
		payload = p
		return nil
	})
	if err != nil {
		return results.Batch{}, err
	}

	c.logger.Debug("search feed fetched",
		zap.Int("listings", len(payload.Listings)),
		zap.Int("total_found", payload.TotalFound),
	)
	return payload.Batch(c.fallback), nil
}

func (c *Client) fetch(ctx context.Context) (Payload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Payload{}, retry.Permanent(fmt.Errorf("build feed request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Payload{}, fmt.Errorf("request search feed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return Payload{}, fmt.Errorf("read search feed: %w", err)
	}

	var p Payload
	decodeErr := json.Unmarshal(body, &p)

	if p.Status == StatusError {
		return Payload{}, retry.Permanent(fmt.Errorf("%w: %s", ErrSearchFailed, p.Message))
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return Payload{}, fmt.Errorf("search feed returned status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return Payload{}, retry.Permanent(fmt.Errorf("search feed returned status %d", resp.StatusCode))
	}
	if decodeErr != nil {
		return Payload{}, retry.Permanent(fmt.Errorf("decode search feed: %w", decodeErr))
	}
	if p.Status != StatusSuccess {
		return Payload{}, retry.Permanent(fmt.Errorf("unexpected search feed status %q", p.Status))
	}
	return p, nil
}
