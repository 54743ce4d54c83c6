package main // Entry point package

import (
	"context"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/achrefelouafi/evently-booking/internal/config"
	"github.com/achrefelouafi/evently-booking/internal/database"
	"github.com/achrefelouafi/evently-booking/internal/handler"
	"github.com/achrefelouafi/evently-booking/internal/lock"
	"github.com/achrefelouafi/evently-booking/internal/logger"
	"github.com/achrefelouafi/evently-booking/internal/middleware"
	"github.com/achrefelouafi/evently-booking/internal/queue"
	"github.com/achrefelouafi/evently-booking/internal/repository"
	"github.com/achrefelouafi/evently-booking/internal/router"
	"github.com/achrefelouafi/evently-booking/internal/service"
)

func main() {
	_ = godotenv.Load() // optional .env
	cfg := config.Load()

	log, err := logger.New(cfg.Env)
	if err != nil {
		stdlog.Fatalf("logger: %v", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The pool is opened on the first request that needs it.
	db := database.NewLazy(func(ctx context.Context) (*sqlx.DB, error) {
		ctx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
		defer cancel()
		return database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	})
	store := repository.NewMySQLStore(db, cfg.StoreTimeout)

	rdb, err := config.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable: response cache and login rate limit disabled", zap.Error(err))
	}

	var locker lock.Locker = lock.NewLocal()
	if cfg.LockBackend == "redis" {
		if rdb == nil {
			log.Fatal("LOCK_BACKEND=redis but redis is unreachable")
		}
		locker = lock.NewRedis(rdb, cfg.LockTTL)
	}

	cache := middleware.NewRedisCache(cfg.Cache, rdb)
	opts := []service.BookingOption{service.WithCacheInvalidator(cache)}

	var publisher *queue.Publisher
	consumerDone := make(chan struct{})
	if cfg.EventsEnabled {
		publisher = queue.NewPublisher(cfg.RabbitURL)
		opts = append(opts, service.WithEvents(publisher))
		go func() {
			defer close(consumerDone)
			if err := queue.StartBookingConsumer(ctx, cfg.RabbitURL, cfg.BookingLogPath, log); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("booking consumer stopped", zap.Error(err))
			}
		}()
	} else {
		close(consumerDone)
	}

	sessions := service.NewSessionService(store, log)
	bookings := service.NewBookingService(store, locker, log, opts...)
	errs := handler.Errors{ConflictStatus: cfg.ConflictStatus}

	e := echo.New()
	allowHeaders := "Content-Type"
	if cfg.SessionSecret != "" {
		allowHeaders += ", Authorization"
	}
	router.Configure(e, cfg.AllowedOrigins, allowHeaders,
		echomw.Recover(),
		echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}),
		middleware.RequestLogger(log),
	)

	routes := router.Routes{
		Auth: &handler.AuthHandler{
			Sessions: sessions,
			Secret:   cfg.SessionSecret,
			TTLMin:   cfg.SessionTTLMin,
			Errors:   errs,
			Log:      log,
		},
		Bookings: &handler.BookingHandler{
			Bookings:        bookings,
			Errors:          errs,
			SessionRequired: cfg.SessionRequired,
		},
		ListCache: cache.Middleware(),
		LoginRate: middleware.NewTokenBucket(cfg.RateLimit, rdb, log),
	}
	if cfg.SessionRequired {
		routes.Session = middleware.SessionAuth(cfg.SessionSecret)
	}
	router.RegisterRoutes(e, routes)

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("locks", cfg.LockBackend))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	<-consumerDone
	if publisher != nil {
		publisher.Close()
	}
	if err := db.Close(); err != nil {
		log.Error("close store", zap.Error(err))
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}
