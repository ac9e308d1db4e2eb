// Command server wires the connection and suggestion domains behind one
// HTTP listener. Business logic lives in the internal packages; main only
// builds dependencies and owns the process lifecycle.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"linkup/internal/connection/cache"
	connhandler "linkup/internal/connection/handler"
	connmetrics "linkup/internal/connection/metrics"
	"linkup/internal/connection/service"
	"linkup/internal/connection/store"
	jwttoken "linkup/internal/jwt_token"
	"linkup/internal/platform/config"
	"linkup/internal/platform/logger"
	"linkup/internal/platform/middleware"
	"linkup/internal/platform/redis"
	"linkup/internal/profile"
	"linkup/internal/profile/httpdir"
	"linkup/internal/suggestion/engine"
	sugghandler "linkup/internal/suggestion/handler"
	suggmetrics "linkup/internal/suggestion/metrics"
	"linkup/internal/suggestion/strategy"
	"linkup/migrations"
	"linkup/pkg/platform/events/kafka"
	eventsmemory "linkup/pkg/platform/events/store/memory"
	eventspostgres "linkup/pkg/platform/events/store/postgres"
	"linkup/pkg/platform/events/publisher"
	"linkup/pkg/platform/events/worker"
	"linkup/pkg/platform/tx"
)

const (
	strategyWeightMutual   = 1.0
	strategyWeightIndustry = 0.6
	strategyWeightLocation = 0.5
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Postgres is optional so the service can run fully in-memory for
	// local development and demos.
	var db *sql.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		if err := migrations.Apply(ctx, db); err != nil {
			return err
		}
		log.Info("postgres connected")
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return err
	}
	var rawRedis *goredis.Client
	if redisClient != nil {
		defer redisClient.Close()
		rawRedis = redisClient.Client
		log.Info("redis connected", "url", cfg.Redis.URL)
	}

	// Relationship events go through the transactional outbox when a
	// database is present; otherwise they stay in memory.
	var (
		eventPublisher *publisher.Publisher
		outboxWorker   *worker.Worker
	)
	if db != nil {
		eventPublisher = publisher.NewPublisher(eventspostgres.New(db), publisher.WithLogger(log))
		if len(cfg.Kafka.Brokers) > 0 {
			sink, err := kafka.NewSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
			if err != nil {
				return err
			}
			defer sink.Close()
			if err := sink.EnsureTopic(ctx, 3, 1); err != nil {
				return err
			}
			outboxWorker = worker.NewWorker(db, sink, log, worker.WithListener(cfg.DatabaseURL))
			log.Info("outbox relay enabled", "topic", cfg.Kafka.Topic)
		}
	} else {
		eventPublisher = publisher.NewPublisher(eventsmemory.NewInMemoryStore(), publisher.WithLogger(log))
	}
	defer eventPublisher.Close()

	var (
		connStore   service.Store
		graphSource cache.GraphSource
		reader      strategy.ConnectionReader
	)
	if db != nil {
		pg := store.NewPostgres(db)
		connStore, graphSource, reader = pg, pg, pg
	} else {
		mem := store.NewInMemory()
		connStore, graphSource, reader = mem, mem, mem
	}
	graphCache := cache.New(graphSource, rawRedis, cache.WithLogger(log))

	var directory profile.Directory
	if cfg.Profile.BaseURL != "" {
		directory = httpdir.New(cfg.Profile.BaseURL, httpdir.WithTimeout(cfg.Profile.Timeout))
	} else {
		log.Warn("PROFILE_DIRECTORY_URL not set, using in-memory directory")
		directory = profile.NewInMemoryDirectory()
	}

	serviceOpts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(connmetrics.New()),
		service.WithPublisher(eventPublisher),
		service.WithGraphReader(graphCache),
		service.WithCacheInvalidator(graphCache),
	}
	if db != nil {
		serviceOpts = append(serviceOpts, service.WithTxRunner(tx.NewSQLRunner(db)))
	}
	connService := service.New(connStore, directory, serviceOpts...)

	// Graph reads inside strategies need the pending lists too, so they
	// go to the store directly rather than through the cache.
	suggEngine := engine.New(
		[]strategy.Strategy{
			strategy.NewMutualConnections(reader, strategyWeightMutual),
			strategy.NewSameIndustry(reader, directory, strategyWeightIndustry),
			strategy.NewSameLocation(reader, directory, strategyWeightLocation),
		},
		engine.WithLogger(log),
		engine.WithMetrics(suggmetrics.New()),
		engine.WithStrategyTimeout(cfg.Suggestion.StrategyTimeout),
		engine.WithLimits(cfg.Suggestion.DefaultLimit, cfg.Suggestion.MaxLimit),
	)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "linkup", "linkup-api")

	router := newRouter(cfg, log, db, redisClient, jwtService, connService, suggEngine)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting linkup server", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if outboxWorker != nil {
		g.Go(func() error {
			if err := outboxWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newRouter(
	cfg config.Server,
	log *slog.Logger,
	db *sql.DB,
	redisClient *redis.Client,
	jwtService *jwttoken.JWTService,
	connService *service.Service,
	suggEngine *engine.Engine,
) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)

	r.Get("/healthz", healthHandler(db, redisClient))

	// The metrics endpoint is open in development; setting an admin token
	// hash puts it behind bearer auth.
	if cfg.AdminTokenHash != "" {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdminToken(cfg.AdminTokenHash, log))
			r.Method(http.MethodGet, "/metrics", promhttp.Handler())
		})
	} else {
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(jwtService, log))
		connhandler.New(connService, log).Register(r)
		sugghandler.New(suggEngine, log).Register(r)
	})
	return r
}

func healthHandler(db *sql.DB, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := `{"status":"ok"}`
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				status, body = http.StatusServiceUnavailable, `{"status":"degraded","component":"postgres"}`
			}
		}
		if status == http.StatusOK && redisClient != nil {
			if err := redisClient.Health(ctx); err != nil {
				status, body = http.StatusServiceUnavailable, `{"status":"degraded","component":"redis"}`
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}
