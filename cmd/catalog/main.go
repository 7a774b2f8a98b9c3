package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/matst80/slask-catalog/pkg/catalog"
	"github.com/matst80/slask-catalog/pkg/category"
	"github.com/matst80/slask-catalog/pkg/common"
	"github.com/matst80/slask-catalog/pkg/config"
	"github.com/matst80/slask-catalog/pkg/facet"
	"github.com/matst80/slask-catalog/pkg/filter"
	"github.com/matst80/slask-catalog/pkg/logger"
	"github.com/matst80/slask-catalog/pkg/messaging"
	"github.com/matst80/slask-catalog/pkg/server"
	"github.com/matst80/slask-catalog/pkg/store"
)

var configPath = flag.String("config", "", "path to a config file")

type app struct {
	cfg      *config.Config
	log      *zap.Logger
	cache    *server.Cache
	conn     *amqp.Connection
	listener *messaging.CategoryListener
	closers  []func() error
}

func loadConfig() (*config.Config, error) {
	if *configPath != "" {
		return config.LoadFromFile(*configPath)
	}
	return config.Load()
}

func (a *app) connectCache(ctx context.Context) {
	if !a.cfg.Cache.Enabled {
		return
	}
	a.cache = server.NewCache(a.cfg.Cache)
	if err := a.cache.Ping(ctx); err != nil {
		a.log.Warn("response cache unavailable, continuing without it", zap.String("address", a.cfg.Cache.Address), zap.Error(err))
		_ = a.cache.Close()
		a.cache = nil
		return
	}
	a.closers = append(a.closers, a.cache.Close)
	a.log.Info("response cache connected", zap.String("address", a.cfg.Cache.Address))
}

func (a *app) connectAmqp(trees *category.TreeCache, ws *server.WebServer) {
	if !a.cfg.AMQP.Enabled {
		return
	}
	conn, err := amqp.DialConfig(a.cfg.AMQP.URL, amqp.Config{
		Properties: amqp.NewConnectionProperties(),
	})
	if err != nil {
		a.log.Warn("failed to connect to RabbitMQ, category changes rely on cache expiry", zap.Error(err))
		return
	}
	a.conn = conn
	a.listener = messaging.NewCategoryListener(func(changes []messaging.CategoryChange) {
		trees.Invalidate()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ws.InvalidateCache(ctx); err != nil {
			a.log.Warn("failed to invalidate response cache", zap.Error(err))
		}
	}, time.Second, a.log)
	if err := a.listener.Listen(conn, a.cfg.AMQP.Prefix); err != nil {
		a.log.Warn("failed to listen for category changes", zap.Error(err))
		return
	}
	a.log.Info("listening for category changes", zap.String("prefix", a.cfg.AMQP.Prefix))
}

func (a *app) shutdown(ctx context.Context) error {
	if a.listener != nil {
		a.listener.Close()
	}
	if a.conn != nil {
		_ = a.conn.Close()
	}
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.log.Warn("close failed", zap.Error(err))
		}
	}
	return nil
}

func run() error {
	flag.Parse()
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer func() { _ = log.Sync() }()

	a := &app{cfg: cfg, log: log}
	s, closeStore, err := store.Open(cfg.Store, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	a.closers = append(a.closers, closeStore)

	trees := category.NewTreeCache(cfg.Engine.TreeCacheTTL, catalog.NewTreeLoader(s))
	engine := catalog.NewEngine(s, trees, catalog.Options{
		Facets: facet.Options{
			Workers: cfg.Engine.FacetWorkers,
			Timeout: cfg.Engine.FacetTimeout,
			Logger:  log,
		},
		Limits: filter.PageLimits{
			DefaultSize: cfg.Engine.DefaultPageSize,
			MaxSize:     cfg.Engine.MaxPageSize,
		},
		Logger: log,
	})

	ctx := context.Background()
	a.connectCache(ctx)
	ws := server.NewWebServer(engine, server.Options{
		Cache:     a.cache,
		Profiling: cfg.Server.Profiling,
		Logger:    log,
	})
	a.connectAmqp(trees, ws)

	timeouts := common.TimeoutsFromConfig(cfg.Server)
	srv := common.NewServerWithTimeouts(&http.Server{
		Addr:    cfg.Server.ListenAddress,
		Handler: ws.Handle(),
	}, timeouts)
	return common.RunServerWithShutdown(ctx, srv, log, "catalog api", timeouts, a.shutdown)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
