package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Simplici0/dealfinder/internal/results"
)

const (
	tableCookieName  = "dealfinder_table"
	adminCookieName  = "dealfinder_admin"
	tableIdleTimeout = 12 * time.Hour
)

// signer produces and checks "payload.signature" cookie values.
type signer struct {
	secret []byte
}

func (s signer) sign(value string) string {
	payload := base64.RawURLEncoding.EncodeToString([]byte(value))
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	signature := hex.EncodeToString(mac.Sum(nil))
	return payload + "." + signature
}

func (s signer) verify(value string) (string, bool) {
	parts := strings.Split(value, ".")
	if len(parts) != 2 {
		return "", false
	}

	payload := parts[0]
	signature := parts[1]

	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	expected := mac.Sum(nil)

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return "", false
	}
	if !hmac.Equal(provided, expected) {
		return "", false
	}

	decoded, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return "", false
	}
	if len(decoded) == 0 {
		return "", false
	}

	return string(decoded), true
}

type tableEntry struct {
	ctrl     *results.Controller
	lastSeen time.Time
}

// tableSessions maps browser sessions to their own results table.
type tableSessions struct {
	signer        signer
	newController func(ctx context.Context) *results.Controller
	now           func() time.Time

	mu     sync.Mutex
	tables map[string]*tableEntry
}

func newTableSessions(s signer, newController func(ctx context.Context) *results.Controller) *tableSessions {
	return &tableSessions{
		signer:        s,
		newController: newController,
		now:           time.Now,
		tables:        map[string]*tableEntry{},
	}
}

// controller returns the table of the request's session, issuing a new
// session cookie when the cookie is missing or its signature does not match.
func (t *tableSessions) controller(w http.ResponseWriter, r *http.Request) *results.Controller {
	id := ""
	if cookie, err := r.Cookie(tableCookieName); err == nil {
		if v, ok := t.signer.verify(cookie.Value); ok {
			if _, err := uuid.Parse(v); err == nil {
				id = v
			}
		}
	}
	if id == "" {
		id = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     tableCookieName,
			Value:    t.signer.sign(id),
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	if ctrl, ok := t.touch(id); ok {
		return ctrl
	}

	// Building a table reads the stored defaults; other sessions must not
	// wait on that.
	ctrl := t.newController(r.Context())

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if entry, ok := t.tables[id]; ok {
		entry.lastSeen = now
		return entry.ctrl
	}
	t.purgeLocked(now)
	t.tables[id] = &tableEntry{ctrl: ctrl, lastSeen: now}
	return ctrl
}

func (t *tableSessions) touch(id string) (*results.Controller, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.tables[id]
	if !ok {
		return nil, false
	}
	entry.lastSeen = t.now()
	return entry.ctrl, true
}

func (t *tableSessions) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tables)
}

func (t *tableSessions) purgeLocked(now time.Time) {
	for id, e := range t.tables {
		if now.Sub(e.lastSeen) > tableIdleTimeout {
			delete(t.tables, id)
		}
	}
}

// adminAuth guards the stored defaults pages with the configured admin
// credentials.
type adminAuth struct {
	email    string
	password string
	signer   signer
}

func (a *adminAuth) enabled() bool {
	return a.email != "" && a.password != ""
}

func (a *adminAuth) validateCredentials(email, password string) bool {
	if !a.enabled() {
		return false
	}
	emailOK := subtle.ConstantTimeCompare([]byte(strings.ToLower(strings.TrimSpace(email))), []byte(strings.ToLower(a.email))) == 1
	passwordOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) == 1
	return emailOK && passwordOK
}

func (a *adminAuth) authenticated(r *http.Request) bool {
	if !a.enabled() {
		return false
	}
	cookie, err := r.Cookie(adminCookieName)
	if err != nil {
		return false
	}
	email, ok := a.signer.verify(cookie.Value)
	return ok && strings.EqualFold(email, a.email)
}

func (a *adminAuth) setSessionCookie(w http.ResponseWriter, email string) {
	http.SetCookie(w, &http.Cookie{
		Name:     adminCookieName,
		Value:    a.signer.sign(strings.ToLower(email)),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *adminAuth) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     adminCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
