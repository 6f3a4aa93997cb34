package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"finitefield.org/agricred-web/internal/chat"
	"finitefield.org/agricred-web/internal/config"
	"finitefield.org/agricred-web/internal/httpserver"
	"finitefield.org/agricred-web/internal/observability"
	"finitefield.org/agricred-web/internal/scoring"
	"finitefield.org/agricred-web/internal/session"
)

// devTemplatesDir is reparsed on every request in dev mode when present.
const devTemplatesDir = "internal/httpserver/ui/templates"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Session.Ephemeral {
		logger.Warn("session keys generated at startup; sessions will not survive a restart")
	}

	sessions, err := session.NewManager(session.Config{
		HashKey:      cfg.Session.HashKey,
		BlockKey:     cfg.Session.BlockKey,
		CookieSecure: !cfg.IsLocal(),
		IdleTimeout:  cfg.Session.IdleTimeout,
		Lifetime:     cfg.Session.Lifetime,
	})
	if err != nil {
		logger.Fatal("session manager", zap.Error(err))
	}

	upstream := &http.Client{Timeout: cfg.Upstream.Timeout}

	srv, err := httpserver.New(httpserver.Config{
		Address:      cfg.Server.Addr,
		Sessions:     sessions,
		Scoring:      buildScoring(cfg.Upstream, upstream, logger),
		Chat:         buildChat(cfg.Upstream, upstream, logger),
		Logger:       logger,
		TemplatesDir: templatesDir(cfg.Server.Dev),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	})
	if err != nil {
		logger.Fatal("http server", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	logger.Info("web server listening",
		zap.String("addr", cfg.Server.Addr),
		zap.String("env", cfg.Server.Environment),
		zap.Bool("dev", cfg.Server.Dev),
	)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		cancel()
		stop()
		os.Exit(1)
	}
}

func buildScoring(cfg config.UpstreamConfig, client *http.Client, logger *zap.Logger) scoring.Service {
	if cfg.ScoringURL == "" {
		logger.Info("AGRICRED_WEB_SCORING_API_URL not set; using in-memory scoring service")
		return scoring.NewStaticService()
	}
	svc, err := scoring.NewHTTPService(cfg.ScoringURL, client)
	if err != nil {
		logger.Fatal("scoring client", zap.Error(err))
	}
	logger.Info("scoring API enabled", zap.String("url", cfg.ScoringURL))
	return svc
}

func buildChat(cfg config.UpstreamConfig, client *http.Client, logger *zap.Logger) chat.Responder {
	if cfg.ChatURL == "" {
		logger.Info("AGRICRED_WEB_CHAT_API_URL not set; using canned chat replies")
		return chat.StaticResponder{}
	}
	c, err := chat.NewClient(cfg.ChatURL, client)
	if err != nil {
		logger.Fatal("chat client", zap.Error(err))
	}
	logger.Info("chat API enabled", zap.String("url", cfg.ChatURL))
	return c
}

func templatesDir(dev bool) string {
	if !dev {
		return ""
	}
	if info, err := os.Stat(devTemplatesDir); err == nil && info.IsDir() {
		return devTemplatesDir
	}
	return ""
}
