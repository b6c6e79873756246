package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/yenharbor/payment-core/internal/application"
	"github.com/yenharbor/payment-core/internal/application/services"
	"github.com/yenharbor/payment-core/internal/config"
	"github.com/yenharbor/payment-core/internal/infrastructure/notify"
	"github.com/yenharbor/payment-core/internal/infrastructure/paygate"
	"github.com/yenharbor/payment-core/internal/infrastructure/persistence/postgres"
	"github.com/yenharbor/payment-core/internal/infrastructure/ratelimit"
	"github.com/yenharbor/payment-core/internal/interfaces/rest/handlers"
	"github.com/yenharbor/payment-core/internal/interfaces/rest/middleware"
	"github.com/yenharbor/payment-core/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting payment core",
		"port", cfg.Server.Port,
		"log_level", cfg.Logger.Level,
	)

	ctx := context.Background()
	db, err := postgres.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ledgerRepo := postgres.NewLedgerRepository(db)
	bookingStore := postgres.NewBookingStore(db)
	attemptRepo := postgres.NewAttemptRepository(db)

	gateClient := paygate.NewClient(cfg.PayGate)
	notifier := notify.NewClient(cfg.Notify)

	reconcileService := services.NewReconcileService(ledgerRepo, bookingStore, notifier, logger)
	paymentURLService := services.NewPaymentURLService(gateClient, attemptRepo, logger)

	limiter := newLimiter(cfg, logger)

	webhookHandler := handlers.NewWebhookHandler(reconcileService, cfg.Webhook, logger)
	checkoutHandler := handlers.NewCheckoutHandler(bookingStore, paymentURLService, logger)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/webhooks/transactions",
		middleware.RateLimit(limiter, logger)(
			middleware.APIKeyAuth(cfg.Webhook.APIKey, logger)(webhookHandler)))
	mux.Handle("/api/v1/checkout", checkoutHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler := http.Handler(mux)
	handler = middleware.Timeout(cfg.Server.ReadTimeout)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Recovery(logger)(handler)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	statusWorker := worker.NewStatusWorker(
		attemptRepo,
		gateClient,
		reconcileService,
		cfg.Worker,
		logger,
	)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	go statusWorker.Start(workerCtx)

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}

// newLimiter picks the shared Redis window when an address is configured,
// otherwise the in-process one.
func newLimiter(cfg *config.Config, logger *slog.Logger) application.RateLimiter {
	if cfg.Redis.Addr == "" {
		return ratelimit.NewMemoryLimiter(cfg.Webhook.RateLimit, cfg.Webhook.RateWindow)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return ratelimit.NewRedisLimiter(client, cfg.Webhook.RateLimit, cfg.Webhook.RateWindow, "webhook", logger)
}
