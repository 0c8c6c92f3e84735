package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appconfig "github.com/paperdesk/paperdesk/config"
	"github.com/paperdesk/paperdesk/internal/relations"
	"github.com/paperdesk/paperdesk/internal/runtime"
	"github.com/paperdesk/paperdesk/internal/search"
	"github.com/paperdesk/paperdesk/internal/store"
	"github.com/paperdesk/paperdesk/internal/textindex"
)

type deps struct {
	cfg   *appconfig.Config
	store *store.Store
	index *textindex.Index
}

// openDeps loads config and opens the shared store and index. The CLI
// entrypoints and Run all start here.
func openDeps(ctx context.Context) (*deps, error) {
	cfg := appconfig.LoadConfig("")
	dsn, err := cfg.Databases.Postgres.DSN()
	if err != nil {
		return nil, err
	}
	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		return nil, err
	}
	ix, err := textindex.Open(cfg.Index.Dir)
	if err != nil {
		st.DB.Close()
		return nil, err
	}
	return &deps{cfg: cfg, store: st, index: ix}, nil
}

// Run starts the HTTP API on addr; an empty addr falls back to the
// configured listen address.
func Run(addr string) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, HTTPError{Error: msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie", "Authorization"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	ctx := context.Background()
	d, err := openDeps(ctx)
	if err != nil {
		return err
	}
	cfg := d.cfg

	if err := Migrate("file://migrations", "", "up", 0); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	secret := cfg.General.JWTSecret
	if secret == "" {
		return fmt.Errorf("jwt secret not configured (general.jwt_secret)")
	}

	searcher := search.NewSearcher(d.index, d.store, search.Limits{
		PerKind: cfg.Search.PerKindLimit,
		Scoped:  cfg.Search.ScopeLimit,
	}, log.New(log.Writer(), "[SEARCH] ", log.LstdFlags))

	builderLogger := log.New(log.Writer(), "[RELATE] ", log.LstdFlags)
	builder := relations.NewBuilder(d.store, cfg.Relations.TopN, builderLogger)

	api := e.Group("/api")
	auth := &AuthHandler{Store: d.store, Secret: []byte(secret)}
	auth.Register(api.Group("/auth"))

	protected := api.Group("")
	protected.Use(runtime.EchoAuthMiddleware(auth.Secret))

	sh := &SearchHandler{Searcher: searcher, History: d.store}
	sh.Register(protected.Group("/search"))

	ph := &PapersHandler{Store: d.store, Index: d.index, Logger: baseLogger}
	ph.Register(protected)

	mh := &MemosHandler{
		Store:          d.store,
		Index:          d.index,
		Builder:        builder,
		RebuildOnWrite: cfg.Relations.RebuildOnWrite,
		Logger:         builderLogger,
	}
	mh.Register(protected)

	if cfg.Relations.RebuildCron != "" {
		sched := &Scheduler{
			Builder: builder,
			Cron:    cfg.Relations.RebuildCron,
			Stop:    make(chan struct{}),
			Logger:  log.New(log.Writer(), "[SCHED] ", log.LstdFlags),
		}
		sched.Start()
	}

	if addr == "" {
		addr = cfg.General.Listen
		if addr != "" && addr[0] != ':' {
			addr = ":" + addr
		}
		if addr == "" {
			addr = ":8080"
		}
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}

// Reindex rebuilds the full-text index from the store and returns how many
// documents were indexed.
func Reindex(ctx context.Context) (int, error) {
	d, err := openDeps(ctx)
	if err != nil {
		return 0, err
	}
	defer d.store.DB.Close()
	logger := log.New(log.Writer(), "[SEARCH] ", log.LstdFlags)
	return d.index.ReindexAll(ctx, d.store, logger)
}

// RebuildRelations recomputes memo relations: one memo's edges when memoID
// is set, a full sweep otherwise. Returns edges written (single memo) or
// memos swept (full).
func RebuildRelations(ctx context.Context, memoID string) (int, error) {
	d, err := openDeps(ctx)
	if err != nil {
		return 0, err
	}
	defer d.store.DB.Close()
	builder := relations.NewBuilder(d.store, d.cfg.Relations.TopN, nil)
	if memoID != "" {
		return builder.Rebuild(ctx, memoID)
	}
	return builder.RebuildAll(ctx)
}
