package ebay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Simplici0/dealfinder/internal/retry"
)

type fakeEBay struct {
	t            *testing.T
	tokenCalls   atomic.Int32
	searchCalls  atomic.Int32
	failFirst    int32
	searchStatus int
	total        int
	pages        int
}

func (f *fakeEBay) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "app" || pass != "cert" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.NoError(f.t, r.ParseForm())
		assert.Equal(f.t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(f.t, oauthScope, r.PostForm.Get("scope"))
		_ = json.NewEncoder(w).Encode(tokenResponse{AccessToken: "tok", ExpiresIn: 7200})
	})
	mux.HandleFunc("/browse/item_summary/search", func(w http.ResponseWriter, r *http.Request) {
		n := f.searchCalls.Add(1)
		if n <= f.failFirst {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		if f.searchStatus != 0 {
			w.WriteHeader(f.searchStatus)
			return
		}
		assert.Equal(f.t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(f.t, marketplaceID, r.Header.Get("X-EBAY-C-MARKETPLACE-ID"))
		assert.Equal(f.t, "200", r.URL.Query().Get("limit"))

		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		page := offset/pageLimit + 1
		resp := searchResponse{Total: f.total}
		if page <= f.pages {
			resp.ItemSummaries = []ItemSummary{{ItemID: fmt.Sprintf("item-%d", page), Title: "page " + strconv.Itoa(page)}}
			if page < f.pages {
				resp.Next = fmt.Sprintf("https://api.ebay.com/buy/browse/v1/item_summary/search?offset=%d&limit=200", offset+pageLimit)
			}
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	return mux
}

func newTestClient(t *testing.T, fake *fakeEBay) *Client {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	c, err := NewClient(Options{
		AppID:    "app",
		CertID:   "cert",
		BaseURL:  srv.URL + "/browse",
		TokenURL: srv.URL + "/token",
		Retry:    retry.Config{MaxAttempts: 3, BaseDelay: time.Millisecond},
		Logger:   zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(Options{AppID: "app"})
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestSearchFirstPageOnlyByDefault(t *testing.T) {
	fake := &fakeEBay{t: t, total: 3, pages: 3}
	c := newTestClient(t, fake)

	res, err := c.Search(context.Background(), Query{Keywords: "optiplex", CategoryID: "179", MaxPrice: 250})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Total)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "item-1", res.Items[0].ItemID)
	assert.EqualValues(t, 1, fake.searchCalls.Load())
}

func TestSearchFollowsNextLinksWhenFull(t *testing.T) {
	fake := &fakeEBay{t: t, total: 600, pages: 3}
	c := newTestClient(t, fake)

	res, err := c.Search(context.Background(), Query{Keywords: "elitedesk", FullSearch: true})
	require.NoError(t, err)

	require.Len(t, res.Items, 3)
	assert.Equal(t, "item-3", res.Items[2].ItemID)
	assert.EqualValues(t, 1, fake.tokenCalls.Load(), "token is cached between pages")
}

func TestSearchZeroTotalStops(t *testing.T) {
	fake := &fakeEBay{t: t, total: 0, pages: 2}
	c := newTestClient(t, fake)

	res, err := c.Search(context.Background(), Query{Keywords: "nothing", FullSearch: true})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}

func TestSearchRetriesTransientErrors(t *testing.T) {
	fake := &fakeEBay{t: t, total: 1, pages: 1, failFirst: 2}
	c := newTestClient(t, fake)

	res, err := c.Search(context.Background(), Query{Keywords: "tiny"})
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)
	assert.EqualValues(t, 3, fake.searchCalls.Load())
}

func TestSearchUnauthorizedIsNotRetried(t *testing.T) {
	fake := &fakeEBay{t: t, searchStatus: http.StatusForbidden}
	c := newTestClient(t, fake)

	_, err := c.Search(context.Background(), Query{Keywords: "tiny"})
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.EqualValues(t, 1, fake.searchCalls.Load())
}

func TestTokenRejectedCredentials(t *testing.T) {
	fake := &fakeEBay{t: t}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	c, err := NewClient(Options{AppID: "app", CertID: "wrong", TokenURL: srv.URL + "/token", BaseURL: srv.URL + "/browse"})
	require.NoError(t, err)

	_, err = c.Search(context.Background(), Query{Keywords: "x"})
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.EqualValues(t, 1, fake.tokenCalls.Load())
}

func TestTokenRefreshedNearExpiry(t *testing.T) {
	fake := &fakeEBay{t: t}
	c := newTestClient(t, fake)

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_, err := c.Token(context.Background())
	require.NoError(t, err)
	now = now.Add(7200*time.Second - 30*time.Second)
	_, err = c.Token(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 2, fake.tokenCalls.Load())
}

func TestFlagDecodesStringsAndBools(t *testing.T) {
	var opts []ShippingOption
	require.NoError(t, json.Unmarshal([]byte(`[{"freeShipping":true},{"freeShipping":"True"},{"freeShipping":"no"},{}]`), &opts))

	got := []bool{bool(opts[0].FreeShipping), bool(opts[1].FreeShipping), bool(opts[2].FreeShipping), bool(opts[3].FreeShipping)}
	assert.Equal(t, []bool{true, true, false, false}, got)
}
