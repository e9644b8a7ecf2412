package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/fastform/fastform-api/internal/config"
	"github.com/fastform/fastform-api/internal/domain/credit"
	"github.com/fastform/fastform-api/internal/domain/form"
	"github.com/fastform/fastform-api/internal/domain/metering"
	"github.com/fastform/fastform-api/internal/domain/payment"
	"github.com/fastform/fastform-api/internal/middleware"
	"github.com/fastform/fastform-api/internal/pkg/database"
	"github.com/fastform/fastform-api/internal/pkg/formservice"
	"github.com/fastform/fastform-api/internal/pkg/jwt"
	"github.com/fastform/fastform-api/internal/pkg/logger"
	"github.com/fastform/fastform-api/internal/pkg/mercadopago"
	pkgresponse "github.com/fastform/fastform-api/internal/pkg/response"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting FastForm API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	// ---------- Collaborators ----------
	gateway := mercadopago.NewClient(mercadopago.Config{
		BaseURL:     cfg.MPBaseURL,
		AccessToken: cfg.MPAccessToken,
		Timeout:     time.Duration(cfg.MPTimeoutSeconds) * time.Second,
	})

	formClient := formservice.NewClient(formservice.Config{
		BaseURL: cfg.FormServiceBaseURL,
		Token:   cfg.FormServiceToken,
		Timeout: time.Duration(cfg.FormServiceTimeoutSeconds) * time.Second,
	})

	// ---------- Services ----------
	policy := metering.Config{
		ChatFreeMessages:   cfg.ChatFreeMessages,
		ChatMessageCost:    cfg.ChatMessageCost,
		GenerateCost:       cfg.GenerateCost,
		PublishCost:        cfg.PublishCost,
		ExtraQuestionsCost: cfg.ExtraQuestionsCost,
		SignupBonus:        cfg.SignupBonus,
	}

	creditService := credit.NewService(db, policy.SignupBonus)
	paymentService := payment.NewService(gateway, creditService, payment.Config{
		FrontendURL: cfg.FrontendURL,
		BackendURL:  cfg.BackendURL,
	})
	sessionStore := form.NewRedisSessionStore(redis)
	formService := form.NewService(creditService, policy, formClient, sessionStore)

	// ---------- Handlers ----------
	creditHandler := credit.NewHandler(creditService)
	paymentHandler := payment.NewHandler(paymentService)
	formHandler := form.NewHandler(formService)

	authMiddleware := middleware.Auth(jwtService)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))
	r.Use(chimw.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/credits", creditHandler.Routes(authMiddleware))
		r.Mount("/payments", paymentHandler.Routes(authMiddleware))
		r.Mount("/forms", formHandler.Routes(authMiddleware))
	})

	r.Mount("/webhooks", paymentHandler.WebhookRoutes())

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}
