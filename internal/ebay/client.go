// Package ebay is a client for the eBay Browse API item search.
package ebay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Simplici0/dealfinder/internal/retry"
)

const (
	productionAPI   = "https://api.ebay.com/buy/browse/v1"
	sandboxAPI      = "https://api.sandbox.ebay.com/buy/browse/v1"
	productionToken = "https://api.ebay.com/identity/v1/oauth2/token"
	sandboxToken    = "https://api.sandbox.ebay.com/identity/v1/oauth2/token"

	oauthScope     = "https://api.ebay.com/oauth/api_scope"
	marketplaceID  = "EBAY_US"
	pageLimit      = 200
	maxPages       = 50
	tokenLeeway    = time.Minute
	defaultExpires = 7200
)

var (
	// ErrUnauthorized is returned when eBay rejects the credentials or token.
	ErrUnauthorized = errors.New("ebay: unauthorized")
	// ErrNoCredentials is returned by NewClient without an app id and cert id.
	ErrNoCredentials = errors.New("ebay: app id and cert id are required")
)

// Options configures a Client. BaseURL and TokenURL default to the
// production or sandbox endpoints.
type Options struct {
	AppID      string
	CertID     string
	Sandbox    bool
	BaseURL    string
	TokenURL   string
	HTTPClient *http.Client
	Retry      retry.Config
	Logger     *zap.Logger
}

// Client searches eBay listings. It is safe for concurrent use.
type Client struct {
	appID    string
	certID   string
	baseURL  string
	tokenURL string
	http     *http.Client
	retry    retry.Config
	logger   *zap.Logger
	now      func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// NewClient returns a Client for opts.
func NewClient(opts Options) (*Client, error) {
	if opts.AppID == "" || opts.CertID == "" {
		return nil, ErrNoCredentials
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("ebay")

	c := &Client{
		appID:    opts.AppID,
		certID:   opts.CertID,
		baseURL:  opts.BaseURL,
		tokenURL: opts.TokenURL,
		http:     opts.HTTPClient,
		retry:    opts.Retry,
		logger:   logger,
		now:      time.Now,
	}
	if c.baseURL == "" {
		c.baseURL = productionAPI
		if opts.Sandbox {
			c.baseURL = sandboxAPI
		}
	}
	if c.tokenURL == "" {
		c.tokenURL = productionToken
		if opts.Sandbox {
			c.tokenURL = sandboxToken
		}
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}
	if c.retry.MaxAttempts == 0 {
		c.retry = retry.Default(logger)
	}
	if c.retry.Logger == nil {
		c.retry.Logger = logger
	}
	return c, nil
}

// Token returns a bearer token, fetching a new one through the client
// credentials grant when the cached token expires within a minute.
func (c *Client) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.expiry.Sub(c.now()) > tokenLeeway {
		return c.token, nil
	}

	form := url.Values{
		"grant_type": {"client_credentials"},
		"scope":      {oauthScope},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.appID, c.certID)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("request oauth token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", fmt.Errorf("request oauth token: %w", ErrUnauthorized)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("request oauth token: %s: %s", resp.Status, snippet(resp.Body))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode oauth token: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("decode oauth token: empty access token")
	}
	if tr.ExpiresIn <= 0 {
		tr.ExpiresIn = defaultExpires
	}

	c.token = tr.AccessToken
	c.expiry = c.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	c.logger.Info("obtained access token", zap.Time("expires", c.expiry))
	return c.token, nil
}

// Search fetches the listings matching q. Only the first page is read unless
// q.FullSearch is set, in which case the API's next links are followed for at
// most 50 pages.
func (c *Client) Search(ctx context.Context, q Query) (Result, error) {
	params := url.Values{
		"q":      {q.Keywords},
		"limit":  {strconv.Itoa(pageLimit)},
		"offset": {"0"},
	}
	if q.CategoryID != "" {
		params.Set("category_ids", q.CategoryID)
	}
	if q.MaxPrice > 0 {
		params.Set("filter", fmt.Sprintf("price:[..%s],priceCurrency:USD", strconv.FormatFloat(q.MaxPrice, 'f', -1, 64)))
	}

	var res Result
	offset := 0
	for page := 1; ; page++ {
		params.Set("offset", strconv.Itoa(offset))
		c.logger.Info("fetching page", zap.String("keywords", q.Keywords), zap.Int("page", page), zap.Int("offset", offset))

		var body searchResponse
		op := fmt.Sprintf("search %q page %d", q.Keywords, page)
		err := c.retry.Do(ctx, op, func(ctx context.Context) error {
			var err error
			body, err = c.fetchPage(ctx, params)
			return err
		})
		if err != nil {
			return Result{}, err
		}

		if page == 1 {
			res.Total = body.Total
			if body.Total == 0 {
				break
			}
		}
		if len(body.ItemSummaries) == 0 {
			break
		}
		res.Items = append(res.Items, body.ItemSummaries...)

		if !q.FullSearch || page >= maxPages {
			break
		}
		next, ok := nextOffset(body.Next)
		if !ok || next <= offset {
			if body.Next != "" {
				c.logger.Warn("stopping pagination on unusable next link", zap.String("next", body.Next))
			}
			break
		}
		offset = next
	}

	c.logger.Info("search complete", zap.String("keywords", q.Keywords), zap.Int("items", len(res.Items)), zap.Int("total", res.Total))
	return res, nil
}

func (c *Client) fetchPage(ctx context.Context, params url.Values) (searchResponse, error) {
	token, err := c.Token(ctx)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return searchResponse{}, retry.Permanent(err)
		}
		return searchResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/item_summary/search?"+params.Encode(), nil)
	if err != nil {
		return searchResponse{}, retry.Permanent(fmt.Errorf("build search request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-EBAY-C-MARKETPLACE-ID", marketplaceID)

	resp, err := c.http.Do(req)
	if err != nil {
		return searchResponse{}, fmt.Errorf("search items: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.invalidateToken()
		return searchResponse{}, retry.Permanent(fmt.Errorf("search items: %w", ErrUnauthorized))
	case resp.StatusCode != http.StatusOK:
		return searchResponse{}, fmt.Errorf("search items: %s: %s", resp.Status, snippet(resp.Body))
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return searchResponse{}, fmt.Errorf("decode search response: %w", err)
	}
	return body, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
}

func nextOffset(next string) (int, bool) {
	if next == "" {
		return 0, false
	}
	u, err := url.Parse(next)
	if err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(u.Query().Get("offset"))
	if err != nil {
		return 0, false
	}
	return n, true
}

func snippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	return strings.TrimSpace(string(b))
}
