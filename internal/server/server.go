// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package server wires configuration, database, services and HTTP routes
// together and runs the process until shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/urfave/cli/v3"

	"codeberg.org/oliverandrich/counselling-backend/internal/config"
	"codeberg.org/oliverandrich/counselling-backend/internal/database"
	"codeberg.org/oliverandrich/counselling-backend/internal/handlers"
	"codeberg.org/oliverandrich/counselling-backend/internal/middleware"
	"codeberg.org/oliverandrich/counselling-backend/internal/models"
	"codeberg.org/oliverandrich/counselling-backend/internal/pii"
	"codeberg.org/oliverandrich/counselling-backend/internal/repository"
	"codeberg.org/oliverandrich/counselling-backend/internal/services/auth"
	"codeberg.org/oliverandrich/counselling-backend/internal/services/delivery"
	"codeberg.org/oliverandrich/counselling-backend/internal/services/otp"
	"codeberg.org/oliverandrich/counselling-backend/internal/services/reset"
	"codeberg.org/oliverandrich/counselling-backend/internal/token"
)

const cleanupInterval = time.Hour

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	slog.Info("starting server",
		"env", cfg.Env,
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	// Phone encryption. Production refuses to start without a key; in
	// development an ephemeral key keeps the flows working, at the cost
	// of stored ciphertexts not surviving a restart.
	codec, err := buildCodec(cfg)
	if err != nil {
		return fmt.Errorf("failed to set up phone encryption: %w", err)
	}

	// Database
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	// Repository
	repo := repository.New(db, codec)

	// Services
	tokens := token.NewService(token.Config{
		Secret:       jwtSecret(cfg),
		TTL:          cfg.JWT.TTL,
		LongLivedTTL: cfg.JWT.LongLivedTTL,
		CookieName:   cfg.JWT.CookieName,
		CookieSecure: cfg.JWT.CookieSecure,
	})

	email := buildEmailChannel(cfg)
	sms := delivery.NewSMSChannel(delivery.SMSConfig{
		Enabled:    cfg.SMS.Enabled,
		AccountSID: cfg.SMS.AccountSID,
		AuthToken:  cfg.SMS.AuthToken,
		FromNumber: cfg.SMS.FromNumber,
	})

	otpEngine := otp.NewEngine(repo)
	resetFlow := reset.NewFlow(repo, email, cfg.Reset.Expiry, cfg.Reset.URL, cfg.Auth.BcryptCost)
	authService := auth.NewService(repo, tokens, otpEngine, resetFlow, email, sms, cfg.Phone.OtpExpiry, cfg.Auth.BcryptCost)

	// Background cleanup of expired OTP rows and reset tokens
	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	defer stopCleanup()
	go runCleanup(cleanupCtx, repo)

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(requestLogger())
	e.Use(echomw.Secure())
	e.Use(echomw.BodyLimit("1M"))

	setupRoutes(e, repo, tokens, authService)

	return startWithGracefulShutdown(e, cfg)
}

func setupRoutes(e *echo.Echo, repo *repository.Repository, tokens *token.Service, authService *auth.Service) {
	authHandler := handlers.NewAuth(authService, tokens)
	adminHandler := handlers.NewAdmins(repo, authService)
	authenticated := middleware.Authenticate(tokens, repo)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})

	api := e.Group("/api")

	a := api.Group("/auth")
	a.POST("/register", authHandler.Register)
	a.POST("/login", authHandler.Login)
	a.POST("/two-factor/verify", authHandler.VerifyTwoFactor)
	a.POST("/password/request-reset", authHandler.RequestPasswordReset)
	a.POST("/password/reset", authHandler.ResetPassword)
	a.POST("/logout", authHandler.Logout, authenticated)
	a.GET("/me", authHandler.Me, authenticated)
	a.POST("/password/change", authHandler.ChangePassword, authenticated)
	a.POST("/phone/send-verification", authHandler.SendPhoneVerification, authenticated)
	a.POST("/phone/verify", authHandler.VerifyPhone, authenticated)

	admins := api.Group("/admins", authenticated)
	admins.GET("", adminHandler.List, middleware.RequireRole(models.RoleAdmin))
	admins.PATCH("/me", adminHandler.UpdateProfile)
	admins.PUT("/me/two-factor", adminHandler.SetTwoFactor)
}

// requestLogger returns middleware that logs requests using slog.
func requestLogger() echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			}

			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
				slog.LogAttrs(c.Request().Context(), slog.LevelError, "request", attrs...)
			} else {
				slog.LogAttrs(c.Request().Context(), slog.LevelInfo, "request", attrs...)
			}

			return nil
		},
	})
}

func buildCodec(cfg *config.Config) (*pii.Codec, error) {
	if cfg.Phone.EncryptionKey != "" {
		return pii.New(cfg.Phone.EncryptionKey)
	}
	slog.Warn("phone-encryption-key not set, using ephemeral key; stored phone numbers will be unreadable after restart")
	return pii.NewEphemeral()
}

func jwtSecret(cfg *config.Config) string {
	if cfg.JWT.Secret != "" {
		return cfg.JWT.Secret
	}
	slog.Warn("jwt-secret not set, using ephemeral secret; sessions will not survive a restart")
	key, err := pii.GenerateKey()
	if err != nil {
		// crypto/rand failing means the process cannot do anything useful
		panic(err)
	}
	return key
}

func buildEmailChannel(cfg *config.Config) delivery.Channel {
	if cfg.SMTP.Host == "" {
		slog.Warn("SMTP not configured, email delivery will be logged only")
		return delivery.NewLogChannel("email")
	}
	email, err := delivery.NewEmailChannel(delivery.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		FromName: cfg.SMTP.FromName,
		TLS:      cfg.SMTP.TLS,
	})
	if err != nil {
		slog.Warn("SMTP configuration invalid, email delivery will be logged only", "error", err)
		return delivery.NewLogChannel("email")
	}
	return email
}

// runCleanup periodically deletes expired OTP challenges and reset tokens.
// Expiry is always re-checked at verification time, so the sweep only keeps
// the tables from growing.
func runCleanup(ctx context.Context, repo *repository.Repository) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := repo.DeleteExpiredOtpChallenges(ctx); err != nil {
				slog.Error("otp_cleanup_failed", "error", err)
			}
			if err := repo.DeleteExpiredPasswordResetTokens(ctx); err != nil {
				slog.Error("reset_cleanup_failed", "error", err)
			}
		}
	}
}

func startWithGracefulShutdown(e *echo.Echo, cfg *config.Config) error {
	errChan := make(chan error, 1)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		slog.Info("server running", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}
