package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/ghostnote/ghost-note/backend/internal/config"
	"github.com/ghostnote/ghost-note/backend/internal/handler"
	"github.com/ghostnote/ghost-note/backend/internal/middleware"
	"github.com/ghostnote/ghost-note/backend/internal/model/user"
	"github.com/ghostnote/ghost-note/backend/internal/service/account"
	"github.com/ghostnote/ghost-note/backend/internal/service/ai"
	"github.com/ghostnote/ghost-note/backend/internal/service/analytics"
	"github.com/ghostnote/ghost-note/backend/internal/service/live"
	"github.com/ghostnote/ghost-note/backend/internal/service/mail"
	"github.com/ghostnote/ghost-note/backend/internal/service/message"
	"github.com/ghostnote/ghost-note/backend/internal/store/mongostore"
	"github.com/ghostnote/ghost-note/backend/internal/store/sqlstore"
	"github.com/ghostnote/ghost-note/backend/internal/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		logrus.Warnf("failed to load .env file: %v", err)
		logrus.Info("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load configuration: %v", err)
	}

	logCloser, err := telemetry.InitLogger(cfg.Log)
	if err != nil {
		logrus.Fatalf("failed to initialize logger: %v", err)
	}
	defer logCloser.Close()

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		logrus.Warnf("failed to initialize telemetry: %v", err)
		shutdownTelemetry = func() {}
	}
	defer shutdownTelemetry()

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		logrus.Fatalf("failed to open %s store: %v", cfg.Store.Driver, err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logrus.Warnf("failed to close store: %v", err)
		}
	}()
	logrus.Infof("user store ready (driver=%s)", cfg.Store.Driver)

	mailer := mail.New(cfg.Mail)
	if !mailer.Configured() {
		logrus.Warn("mail credentials not configured, verification and reset e-mails will fail")
	}

	tokens := middleware.NewTokenManager(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	hub := live.NewHub()

	suggestions, err := ai.NewService(ctx, cfg.AI)
	if err != nil {
		logrus.Warnf("failed to initialize AI service: %v", err)
		logrus.Info("continuing with default suggestions only")
		suggestions = &ai.Service{}
	} else if suggestions.Enabled() {
		logrus.Info("AI suggestion service initialized successfully")
	}

	router := handler.NewRouter(handler.Dependencies{
		Accounts:       account.NewService(store, mailer, tokens),
		Messages:       message.NewService(store, hub),
		Analytics:      analytics.NewService(store, cfg.Analytics.Location),
		Suggestions:    suggestions,
		Hub:            hub,
		Tokens:         tokens,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	startServer(ctx, cfg.Server, router)
}

func openStore(ctx context.Context, cfg config.StoreConfig) (user.Store, error) {
	switch cfg.Driver {
	case config.StoreMongo:
		return mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case config.StoreSQLite:
		return sqlstore.Open(ctx, cfg.SQLitePath)
	case config.StoreMemory:
		return user.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logrus.Infof("Ghost Note backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		logrus.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
