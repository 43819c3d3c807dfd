// cmd/web/main.go
//
// Adept Admin – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Console logger for the lines emitted before config is known.
//
//  2. Config: conf/.env → conf/global.yaml → ADMIN_* env, with `vault:`
//     references resolved through a lazily built Vault client.
//
//  3. File logger under <root>/logs (tees to console when in a TTY).
//
//  4. Durable browser storage (memory, Redis, MySQL, or Postgres), the
//     backend client, and the per-browser auth registry on top of both.
//
//  5. Router:
//
//     • request ID → access log → panic recovery → security headers
//     • browser ID cookie → request info (UA, geo)
//     • /metrics, /healthz, /admin/static/*  – no auth Manager needed
//     • every component, behind the auth Manager middleware
//     • /, /admin, and unknown paths        – 303 to the landing route
//
//  6. Serve until SIGINT/SIGTERM, then drain in-flight requests.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/adept-admin/internal/acl"
	"github.com/yanizio/adept-admin/internal/auth"
	"github.com/yanizio/adept-admin/internal/backend"
	"github.com/yanizio/adept-admin/internal/component"
	"github.com/yanizio/adept-admin/internal/config"
	"github.com/yanizio/adept-admin/internal/form"
	"github.com/yanizio/adept-admin/internal/logger"
	"github.com/yanizio/adept-admin/internal/middleware"
	"github.com/yanizio/adept-admin/internal/requestinfo"
	"github.com/yanizio/adept-admin/internal/server"
	"github.com/yanizio/adept-admin/internal/session"
	"github.com/yanizio/adept-admin/internal/storage"
	"github.com/yanizio/adept-admin/internal/vault"
	"github.com/yanizio/adept-admin/internal/view"

	_ "github.com/yanizio/adept-admin/components/admins"
	_ "github.com/yanizio/adept-admin/components/analytics"
	_ "github.com/yanizio/adept-admin/components/assistant"
	_ "github.com/yanizio/adept-admin/components/auth"
	_ "github.com/yanizio/adept-admin/components/businesses"
	_ "github.com/yanizio/adept-admin/components/forms"
	_ "github.com/yanizio/adept-admin/components/settings"
	_ "github.com/yanizio/adept-admin/components/submissions"
	_ "github.com/yanizio/adept-admin/components/ui"
)

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	boot := logger.Bootstrap()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//
	// ── 1.  Config ──────────────────────────────────────────────────────
	//
	cfg, err := config.Load(ctx, config.Options{
		Resolver: func() (config.Resolver, error) {
			c, err := vault.New(ctx, zap.S())
			if err != nil {
				return nil, err
			}
			return c, nil
		},
	})
	if err != nil {
		boot.Fatalw("load config", "err", err)
	}

	log, err := logger.New(cfg.Paths.Root, runningInTTY(), cfg.Log.Level)
	if err != nil {
		boot.Fatalw("start logger", "err", err)
	}
	defer func() { _ = log.Sync() }()

	//
	// ── 2.  Storage, backend, auth registry ─────────────────────────────
	//
	store, closeStore, err := storage.Open(ctx, storage.Options{
		Driver:   cfg.Storage.Driver,
		RedisURL: cfg.Storage.RedisURL,
		DSN:      cfg.Storage.DSN,
		TTL:      cfg.Storage.TTL,
	})
	if err != nil {
		log.Fatalw("open storage", "driver", cfg.Storage.Driver, "err", err)
	}
	defer func() { _ = closeStore() }()
	log.Infow("storage online", "driver", cfg.Storage.Driver)

	client, err := backend.New(backend.Config{
		BaseURL:  cfg.Backend.BaseURL,
		Timeout:  cfg.Backend.Timeout,
		RetryMax: cfg.Backend.RetryMax,
	}, log)
	if err != nil {
		log.Fatalw("backend client", "err", err)
	}

	reg := auth.NewRegistry(store,
		func(s storage.Store) auth.AuthAPI { return client.Bind(s) },
		auth.RegistryOptions{
			KeyPrefix:     cfg.Registry.KeyPrefix,
			MaxEntries:    cfg.Registry.MaxEntries,
			IdleTTL:       cfg.Registry.IdleTTL,
			SweepInterval: cfg.Registry.SweepInterval,
		}, log)
	defer reg.Close()

	//
	// ── 3.  Views, CSRF, request info ───────────────────────────────────
	//
	csrf, ephemeral := form.NewCSRF(cfg.Security.CSRFKey)
	if ephemeral {
		log.Warnw("security.csrf_key is empty; using a per-process key, forms will not survive restarts or cross replicas")
	}

	engine, err := view.New(log)
	if err != nil {
		log.Fatalw("view engine", "err", err)
	}

	geo, err := requestinfo.OpenGeo(cfg.Geo.CityDB)
	if err != nil {
		log.Warnw("geo database unavailable; continuing without geo", "path", cfg.Geo.CityDB, "err", err)
		geo = nil
	}
	defer func() { _ = geo.Close() }()

	//
	// ── 4.  Guards and components ───────────────────────────────────────
	//
	guard := &acl.Guard{
		LoginPath:   cfg.Routes.Login,
		LandingPath: cfg.Routes.Landing,
		Resolve:     auth.GuardState,
	}
	deps := &component.Deps{
		Client: client,
		Guard:  guard,
		CSRF:   csrf,
		View:   engine,
		Routes: component.Routes{Login: cfg.Routes.Login, Landing: cfg.Routes.Landing},
		Assistant: component.AssistantLimits{
			RatePerMinute: cfg.Assistant.RatePerMinute,
			Burst:         cfg.Assistant.Burst,
		},
		Log: log,
	}
	guard.Loading = deps.LoadingHandler()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recoverer(log))
	r.Use(middleware.Security(cfg.HTTP.ForceHTTPS))
	r.Use(session.Middleware(session.Options{
		CookieName: cfg.Session.CookieName,
		MaxAge:     cfg.Session.MaxAge,
		Secure:     cfg.Session.Secure,
	}))
	r.Use(requestinfo.Enrich(geo, cfg.HTTP.TrustProxy))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/admin/static/*", http.StripPrefix("/admin/static/", view.Static()))

	var mountErr error
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(reg))
		mountErr = component.MountAll(r, deps)
	})
	if mountErr != nil {
		log.Fatalw("mount components", "err", mountErr)
	}

	toLanding := func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, cfg.Routes.Landing, http.StatusSeeOther)
	}
	r.Get("/", toLanding)
	r.Get("/admin", toLanding)
	r.NotFound(toLanding)

	var root http.Handler = r
	if cfg.HTTP.ForceHTTPS {
		root = middleware.ForceHTTPS(root)
	}

	//
	// ── 5.  Serve ───────────────────────────────────────────────────────
	//
	log.Infow("components mounted", "count", len(component.All()))
	if err := server.Run(ctx, server.New(cfg.HTTP.ListenAddr, root, log), log); err != nil {
		log.Errorw("http server", "err", err)
		stop()
		os.Exit(1)
	}
	log.Infow("bye")
}
