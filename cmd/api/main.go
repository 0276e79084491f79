package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/delordemm1/refshare-api/internal/cache"
	"github.com/delordemm1/refshare-api/internal/config"
	"github.com/delordemm1/refshare-api/internal/database"
	"github.com/delordemm1/refshare-api/internal/httpx"
	"github.com/delordemm1/refshare-api/internal/modules/company"
	"github.com/delordemm1/refshare-api/internal/modules/ref"
	"github.com/delordemm1/refshare-api/internal/modules/user"
	"github.com/delordemm1/refshare-api/internal/notification"
	"github.com/delordemm1/refshare-api/internal/notification/templates"
	"github.com/delordemm1/refshare-api/internal/server"
	"github.com/delordemm1/refshare-api/internal/session"
	"github.com/delordemm1/refshare-api/internal/verification"
)

// Options for the CLI.
type Options struct {
	Port int `help:"Port to listen on (overrides SERVER_PORT)" short:"p"`
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, options *Options) {
		cfg := config.Load()

		var level slog.Level
		if err := level.UnmarshalText([]byte(cfg.Server.LogLevel)); err != nil {
			level = slog.LevelInfo
		}
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
		logger.Info("configuration loaded successfully", "env", cfg.Server.Env)

		// --- Database & Cache ---
		dbPool, err := database.Connect(context.Background(), database.PoolConfig{
			URL:      cfg.Database.URL,
			MaxConns: cfg.Database.MaxConns,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		logger.Info("successfully connected to postgres database")
		redisClient, err := cache.Connect(context.Background(), cfg.Redis.URL)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		logger.Info("successfully connected to redis")

		reaper := database.NewReaper(dbPool, logger, cfg.Reaper.Interval)

		// --- Notifications & Verification ---
		var sender notification.Sender
		if cfg.SMTP.Host == "" {
			logger.Warn("SMTP_HOST is not set, emails will only be logged")
			sender = notification.NewLogSender(logger)
		} else {
			sender = notification.NewSMTPSender(notification.SMTPConfig{
				Host:     cfg.SMTP.Host,
				Port:     cfg.SMTP.Port,
				Username: cfg.SMTP.Username,
				Password: cfg.SMTP.Password,
				From:     cfg.SMTP.From,
			}, logger)
		}
		notifier := notification.NewService(logger, sender)
		mailer := notification.NewCodeMailer(notifier, templates.NewEngine(templates.Config{}, logger), cfg.App.Name)

		policy, err := verification.ParsePolicy(cfg.Verification.Policy)
		if err != nil {
			logger.Error("invalid verification policy", "error", err)
			os.Exit(1)
		}
		codes := verification.NewLedger(verification.NewPostgresStore(dbPool), mailer, logger, verification.Config{
			Policy:          policy,
			CodeLength:      cfg.Verification.CodeLength,
			TTL:             cfg.Verification.TTL,
			ConfirmedWindow: cfg.Verification.ConfirmedWindow,
		})

		// --- Sessions & OAuth ---
		tokens, err := session.NewTokens(session.TokenConfig{
			AccessSecret:  cfg.Auth.AccessSecret,
			RefreshSecret: cfg.Auth.RefreshSecret,
			AccessTTL:     cfg.Auth.AccessTTL,
			RefreshTTL:    cfg.Auth.RefreshTTL,
		})
		if err != nil {
			logger.Error("failed to configure tokens", "error", err)
			os.Exit(1)
		}
		providers, err := user.NewOAuthProviders(cfg)
		if err != nil {
			logger.Error("failed to configure oauth providers", "error", err)
			os.Exit(1)
		}
		cookies := httpx.CookieJar{Domain: cfg.Auth.CookieDomain, Secure: !cfg.IsDevelopment()}

		// --- Module Initialization (Bottom-Up) ---
		userService := user.NewService(&user.Config{
			Repo:      user.NewRepository(dbPool),
			Sessions:  session.NewPostgresStore(dbPool),
			Tokens:    tokens,
			Codes:     codes,
			States:    cache.NewStateStore(redisClient, "oauth:state:", 5*time.Minute),
			Providers: providers,
			Logger:    logger,
			Config:    cfg,
		})
		companyService := company.NewService(company.NewRepository(dbPool), logger)
		refService := ref.NewService(ref.NewRepository(dbPool), companyService, logger)

		router := server.New(cfg, logger, tokens, dbPool,
			user.NewHandler(userService, cookies, logger),
			company.NewHandler(companyService, logger),
			ref.NewHandler(refService, logger),
		)

		port := cfg.Server.Port
		if options.Port != 0 {
			port = fmt.Sprint(options.Port)
		}
		srv := &http.Server{
			Addr:              ":" + port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		hooks.OnStart(func() {
			reaper.Start(context.Background())
			logger.Info("starting server", "port", port)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("server failed to start", "error", err)
				os.Exit(1)
			}
		})
		hooks.OnStop(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("graceful shutdown failed", "error", err)
			}
			reaper.Stop()
			notifier.Wait()
			_ = redisClient.Close()
			dbPool.Close()
			logger.Info("server stopped")
		})
	})
	cli.Run()
}
