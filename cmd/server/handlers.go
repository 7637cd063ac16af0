package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Simplici0/dealfinder/internal/config"
	"github.com/Simplici0/dealfinder/internal/feed"
	"github.com/Simplici0/dealfinder/internal/filter"
	"github.com/Simplici0/dealfinder/internal/render"
	"github.com/Simplici0/dealfinder/internal/repository"
	"github.com/Simplici0/dealfinder/internal/results"
	"github.com/Simplici0/dealfinder/internal/sorting"
	"github.com/Simplici0/dealfinder/internal/tco"
)

type server struct {
	cfg      config.Config
	logger   *zap.Logger
	renderer *render.Renderer
	engine   *tco.Engine
	feed     results.Feed
	defaults *repository.Defaults
	tables   *tableSessions
	admin    *adminAuth
}

type serverDeps struct {
	Config   config.Config
	Logger   *zap.Logger
	Feed     results.Feed
	Defaults *repository.Defaults
}

func newServer(d serverDeps) (*server, error) {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	renderer, err := render.New()
	if err != nil {
		return nil, err
	}

	secret := []byte(d.Config.Server.SessionSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
		logger.Warn("SESSION_SECRET not set, sessions will not survive a restart")
	}
	sign := signer{secret: secret}

	s := &server{
		cfg:      d.Config,
		logger:   logger,
		renderer: renderer,
		engine:   tco.NewEngine(logger),
		feed:     d.Feed,
		defaults: d.Defaults,
		admin: &adminAuth{
			email:    strings.ToLower(strings.TrimSpace(d.Config.Server.AdminEmail)),
			password: d.Config.Server.AdminPassword,
			signer:   sign,
		},
	}
	s.tables = newTableSessions(sign, func(ctx context.Context) *results.Controller {
		return results.NewController(s.engine, s.storedDefaults(ctx), logger)
	})
	return s, nil
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleTable)
	r.Post("/search", s.handleSearch)
	r.Post("/assumptions", s.handleAssumptions)
	r.Post("/items/{itemID}", s.handleItem)
	r.Post("/filter", s.handleFilter)
	r.Post("/sort/{column}", s.handleSort)
	r.Get("/api/search", feed.Handler(s.feed, s.engine, s.logger))

	r.Get("/login", s.handleLoginForm)
	r.Post("/login", s.handleLoginSubmit)
	r.Post("/logout", s.handleLogout)
	r.Route("/admin", func(r chi.Router) {
		r.Use(s.requireAdmin)
		r.Get("/assumptions", s.handleAdminAssumptionsForm)
		r.Post("/assumptions", s.handleAdminAssumptionsSubmit)
	})
	return r
}

func (s *server) handleTable(w http.ResponseWriter, r *http.Request) {
	ctrl := s.tables.controller(w, r)
	page := render.NewTablePage(ctrl.View())
	page.Admin = s.admin.authenticated(r)
	s.renderHTML(w, http.StatusOK, render.PageTable, page)
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctrl := s.tables.controller(w, r)
	if err := ctrl.Search(r.Context(), s.feed); err != nil && !errors.Is(err, results.ErrStaleGeneration) {
		// The failure is kept in the table state and shown after the redirect.
		s.logger.Debug("search request failed", zap.Error(err))
	}
	redirectHome(w, r)
}

func (s *server) handleAssumptions(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	ctrl := s.tables.controller(w, r)
	a, _ := tco.ParseAssumptions(r.PostForm.Get)
	ctrl.RecalculateAll(a)
	redirectHome(w, r)
}

func (s *server) handleItem(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	itemID, err := itemParam(r)
	if err != nil || itemID == "" {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}

	ctrl := s.tables.controller(w, r)
	o := tco.ParseOverrides(r.PostForm.Get("ac_adapter_included") != "", r.PostForm.Get("shipping"))
	if _, ok := ctrl.RecalculateOne(itemID, o); !ok {
		http.NotFound(w, r)
		return
	}
	redirectHome(w, r)
}

func (s *server) handleFilter(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	ctrl := s.tables.controller(w, r)
	ctrl.SetCriteria(filter.ParseCriteria(r.PostForm.Get))
	redirectHome(w, r)
}

func (s *server) handleSort(w http.ResponseWriter, r *http.Request) {
	column, err := sorting.ParseColumn(chi.URLParam(r, "column"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctrl := s.tables.controller(w, r)
	ctrl.SortBy(column)
	redirectHome(w, r)
}

func (s *server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if s.admin.authenticated(r) {
		http.Redirect(w, r, "/admin/assumptions", http.StatusSeeOther)
		return
	}
	page := render.LoginPage{}
	if !s.admin.enabled() {
		page.Error = "Admin login is not configured."
	}
	s.renderHTML(w, http.StatusOK, render.PageLogin, page)
}

func (s *server) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	email := r.PostForm.Get("email")
	if !s.admin.validateCredentials(email, r.PostForm.Get("password")) {
		s.logger.Warn("admin login rejected", zap.String("email", email))
		s.renderHTML(w, http.StatusUnauthorized, render.PageLogin, render.LoginPage{Error: "Invalid credentials. Try again."})
		return
	}

	s.admin.setSessionCookie(w, email)
	http.Redirect(w, r, "/admin/assumptions", http.StatusSeeOther)
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.admin.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *server) handleAdminAssumptionsForm(w http.ResponseWriter, r *http.Request) {
	page := render.AdminPage{Assumptions: render.AssumptionFields(s.storedDefaults(r.Context()))}
	if r.URL.Query().Get("saved") == "1" {
		page.Success = "Default assumptions saved."
	}
	s.renderHTML(w, http.StatusOK, render.PageAdminAssumptions, page)
}

func (s *server) handleAdminAssumptionsSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	a, invalid := tco.ParseAssumptions(r.PostForm.Get)
	if len(invalid) > 0 {
		s.renderHTML(w, http.StatusBadRequest, render.PageAdminAssumptions, render.AdminPage{
			Error:       "Invalid value for: " + strings.Join(invalid, ", "),
			Assumptions: render.AssumptionFields(a),
		})
		return
	}
	if s.defaults == nil {
		http.Error(w, "default assumptions are not persisted", http.StatusServiceUnavailable)
		return
	}

	changed, err := s.defaults.Update(r.Context(), a)
	if err != nil {
		s.logger.Error("save default assumptions", zap.Error(err))
		http.Error(w, "failed to save default assumptions", http.StatusInternalServerError)
		return
	}
	if changed {
		s.logger.Info("default assumptions updated", zap.Any("assumptions", a))
	}
	http.Redirect(w, r, "/admin/assumptions?saved=1", http.StatusSeeOther)
}

func (s *server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.admin.authenticated(r) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// storedDefaults returns the persisted default assumptions, or the configured
// ones when nothing is stored.
func (s *server) storedDefaults(ctx context.Context) tco.Assumptions {
	if s.defaults == nil {
		return s.cfg.TCOAssumptions
	}
	a, found, err := s.defaults.Get(ctx)
	if err != nil {
		s.logger.Warn("read stored default assumptions", zap.Error(err))
		return s.cfg.TCOAssumptions
	}
	if !found {
		return s.cfg.TCOAssumptions
	}
	return a
}

func (s *server) renderHTML(w http.ResponseWriter, status int, page string, data any) {
	if err := s.renderer.HTML(w, status, page, data); err != nil {
		s.logger.Error("render page", zap.String("page", page), zap.Error(err))
	}
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// itemParam returns the decoded item id. chi matches on RawPath when the
// request carried escapes the plain path cannot represent, and only then is
// the parameter still encoded.
func itemParam(r *http.Request) (string, error) {
	id := chi.URLParam(r, "itemID")
	if r.URL.RawPath == "" {
		return id, nil
	}
	return url.PathUnescape(id)
}
