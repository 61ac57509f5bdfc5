package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"restaurant-api/config"
	"restaurant-api/events"
	"restaurant-api/handlers"
	"restaurant-api/middleware"
	"restaurant-api/routes"
	"restaurant-api/services"
)

func main() {
	cfg, err := config.Load(false)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	lg, err := config.NewLogger(cfg.Env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(2)
	}
	defer func() { _ = lg.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, lg, cfg); err != nil {
		lg.Error("Server failed", zap.Error(err))
		os.Exit(1)
	}
}

// run wires the store, services and HTTP server, and blocks until ctx is
// cancelled and the server has drained.
func run(ctx context.Context, lg *zap.Logger, cfg *config.Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("env", cfg.Env),
		zap.String("database", cfg.Database.Driver),
	)

	store, err := config.OpenStore(ctx, cfg.Database, lg)
	if err != nil {
		return errors.Wrap(err, "open store")
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			lg.Warn("Store close failed", zap.Error(err))
		}
	}()

	var publisher events.Publisher = events.NopPublisher{}
	if brokers := events.ParseBrokers(cfg.Kafka.Brokers); len(brokers) > 0 {
		publisher = events.NewKafkaPublisher(brokers, cfg.Kafka.Topic)
		lg.Info("Publishing order events", zap.Strings("brokers", brokers), zap.String("topic", cfg.Kafka.Topic))
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			lg.Warn("Event publisher close failed", zap.Error(err))
		}
	}()

	orderSvc := services.NewOrderService(store.Menu, store.Orders, publisher, lg)
	menuSvc := services.NewMenuService(store.Menu, lg)
	userSvc := services.NewUserService(store.Users, lg)

	if cfg.Admin.Email != "" {
		changed, err := userSvc.EnsureAdmin(ctx, cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password)
		if err != nil {
			return errors.Wrap(err, "bootstrap admin")
		}
		if changed {
			lg.Info("Bootstrap admin ready", zap.String("email", cfg.Admin.Email))
		}
	}

	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	jwt := middleware.NewJWT(cfg.JWT.Secret, cfg.JWT.TTL)
	h := handlers.New(orderSvc, menuSvc, userSvc, jwt, store, lg)
	router := routes.NewRouter(h, middleware.NewAuthenticator(jwt, userSvc), lg, cfg.IsDevelopment())

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Shutdown))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
