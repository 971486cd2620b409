// Package server exposes the HTTP API: auth, chat, document management, and
// operational endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/docuchat/docuchat/config"
	"github.com/docuchat/docuchat/internal/docs"
	"github.com/docuchat/docuchat/internal/index"
	"github.com/docuchat/docuchat/internal/pipeline"
	"github.com/docuchat/docuchat/internal/store"
	"github.com/docuchat/docuchat/models"
	"github.com/docuchat/docuchat/provider"
)

func Run(cfg *config.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
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
		AllowHeaders:     []string{"Content-Type", "Cookie"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	if cfg.Telemetry.Enabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	if err := Migrate("file://migrations", cfg.Storage.Postgres.DSN(), "up", 0); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate: %w", err)
	}

	ctx := context.Background()
	st, err := store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
	if err != nil {
		return err
	}

	prov, err := provider.NewProvider(cfg.LLM.Provider)
	if err != nil {
		return err
	}

	var embedder index.Embedder
	if cfg.Retrieval.Embeddings {
		embedder = prov
	}
	ix, err := index.Open(cfg.Retrieval.IndexPath, embedder)
	if err != nil {
		return err
	}

	docsLogger := log.New(log.Writer(), "[DOCS] ", log.LstdFlags)
	manager := docs.NewManager(st, ix, embedder, cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap, docsLogger)
	if cfg.Retrieval.RebuildOnStartup {
		n, err := manager.Rebuild(ctx)
		if err != nil {
			return fmt.Errorf("rebuild index: %w", err)
		}
		log.Printf("index rebuilt with %d chunks", n)
	}

	// Redis is optional: without it, session locking is process-local and
	// retention runs without a distributed lock.
	var rdb *redis.Client
	var locker pipeline.Locker
	if cfg.Storage.Redis.Enabled() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.Redis.Addr(),
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed (%s): %w", cfg.Storage.Redis.Addr(), err)
		}
		locker = pipeline.NewRedisLocker(rdb, 30*time.Second)
	} else {
		locker = pipeline.NewLocalLocker()
	}

	orchLogger := log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	orch := pipeline.New(
		st,
		ix,
		pipeline.NewReformulator(prov, cfg.LLM.Routing.Reformulate),
		pipeline.NewSynthesizer(prov, pipeline.FallbackPerProcess),
		locker,
		cfg.Retrieval.TopK,
		orchLogger,
	)
	orch.OnAppendFailure = logAppendFailures.Inc

	secret := []byte(cfg.Server.JWTSecret)
	api := e.Group("/api")

	auth := &AuthHandler{Store: st, Secret: secret}
	auth.Register(api.Group("/auth"))

	me := api.Group("/me")
	me.Use(func(next echo.HandlerFunc) echo.HandlerFunc { return withAuth(next, secret) })
	me.GET("", func(c echo.Context) error {
		return c.JSON(200, MeResponse{UserID: c.Get("user_id").(string)})
	})

	ch := &ChatHandler{
		Pipeline:     orch,
		Logger:       baseLogger,
		DefaultModel: models.ModelName(cfg.LLM.Routing.Synthesis),
	}
	ch.Register(api.Group("/chat"), secret)

	dh := &DocumentsHandler{Docs: manager}
	dh.Register(api.Group("/documents"), secret)

	if cfg.Retention.Enabled {
		ret := &Retention{
			Store: st,
			Rdb:   rdb,
			Days:  cfg.Retention.Days,
			Spec:  cfg.Retention.CronSpec,
			Stop:  make(chan struct{}),
		}
		ret.Start()
	}

	addr := cfg.Server.Address
	if addr == "" {
		addr = ":8080"
	}
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}
