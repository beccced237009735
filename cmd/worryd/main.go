// Command worryd runs the worry service HTTP server.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	app "github.com/greenpen-app/worry-service/internal/app"
	"github.com/greenpen-app/worry-service/internal/app/httpapi"
	"github.com/greenpen-app/worry-service/internal/app/metrics"
	"github.com/greenpen-app/worry-service/internal/app/services/letters"
	"github.com/greenpen-app/worry-service/internal/app/storage/postgres"
	"github.com/greenpen-app/worry-service/internal/config"
	"github.com/greenpen-app/worry-service/internal/middleware"
	"github.com/greenpen-app/worry-service/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("WORRY_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/worry.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("worryd", cfg.LogLevel)
	if err := run(cfg, log); err != nil {
		log.WithError(err).Error("worryd exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	stores, cleanup, err := buildStores(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	application, err := app.New(stores, log)
	if err != nil {
		return fmt.Errorf("build application: %w", err)
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			log.WithError(err).Warn("redis unreachable; cooldown cache disabled")
		} else {
			application.Letters.WithCooldownCache(letters.NewRedisCooldown(client, ""))
			log.WithField("addr", cfg.RedisAddr).Info("redis cooldown cache enabled")
		}
		defer client.Close()
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, log)
	if err := application.Attach(limiter); err != nil {
		return fmt.Errorf("attach rate limiter: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("start application: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := application.Stop(stopCtx); err != nil {
			log.WithError(err).Warn("application stop")
		}
	}()

	cors := middleware.NewCORSMiddleware(cfg.Origins())
	handler := cors.Handler(limiter.Handler(metrics.InstrumentHandler(httpapi.NewHandler(application))))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("worry service listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// buildStores opens PostgreSQL when DATABASE_URL is configured, falling back
// to the in-memory store for local development.
func buildStores(cfg *config.Config, log *logger.Logger) (app.Stores, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set; using in-memory store (data is not persisted)")
		return app.Stores{}, func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return app.Stores{}, nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return app.Stores{}, nil, fmt.Errorf("ping database: %w", err)
	}
	if err := postgres.Migrate(db); err != nil {
		db.Close()
		return app.Stores{}, nil, fmt.Errorf("migrate database: %w", err)
	}

	store := postgres.New(db)
	log.Info("postgres store initialised")
	return app.Stores{Users: store, Letters: store, Comments: store}, func() { db.Close() }, nil
}
