package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"

	"github.com/foodkeeper/foodkeeper/internal/auth"
	"github.com/foodkeeper/foodkeeper/internal/config"
	"github.com/foodkeeper/foodkeeper/internal/database"
	"github.com/foodkeeper/foodkeeper/internal/handlers"
	"github.com/foodkeeper/foodkeeper/internal/logger"
	"github.com/foodkeeper/foodkeeper/internal/middleware"
	"github.com/foodkeeper/foodkeeper/internal/notify"
	"github.com/foodkeeper/foodkeeper/internal/queue"
	"github.com/foodkeeper/foodkeeper/internal/services/google"
	"github.com/foodkeeper/foodkeeper/internal/telemetry"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := newLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		if syncErr := logger.Sync(zapLogger); syncErr != nil {
			_ = syncErr
		}
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// Initialize OpenTelemetry if enabled
	var tracerProvider interface{ Shutdown(context.Context) error }
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), "foodkeeper-api", cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				tracerProvider = tp
				zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	// Connect to database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_database")

	// Connect to Redis for rate limiting
	redisClient, err := middleware.NewRedisClient(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_redis")

	// Connect to RabbitMQ for the email job queue, with backoff to ride
	// out broker startup delays
	jobQueue, err := connectQueue(cfg.RabbitMQURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_rabbitmq")

	// Initialize repositories
	userRepo := database.NewUserRepository(db)
	otpRepo := database.NewOTPRepository(db)
	foodRepo := database.NewFoodItemRepository(db)

	// Initialize auth components
	hasher := auth.NewBcryptHasher(0)
	otpManager := auth.NewOTPManager(otpRepo)
	reconciler := auth.NewReconciler(userRepo)
	tokens := auth.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.JWTLifetime)
	notifier := notify.NewQueueNotifier(jobQueue, auth.OTPLifetime)
	authService := auth.NewService(userRepo, otpManager, reconciler, hasher, tokens, notifier, zapLogger)

	// Google federated login is optional; routes are only mounted when
	// the client is configured
	var googleClient *google.Client
	if cfg.GoogleClientID != "" {
		googleClient, err = google.New(cfg.GoogleClientID, cfg.GoogleSecret, cfg.BaseURL+"/oauth2/callback/google")
		if err != nil {
			zapLogger.Fatal("failed_to_configure_google_oauth", zap.Error(err))
		}
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	foodHandler := handlers.NewFoodItemHandler(foodRepo)
	healthChecker := handlers.NewHealthChecker(db, jobQueue)

	// Setup router
	r := mux.NewRouter()

	if cfg.OTELEnabled && tracerProvider != nil {
		r.Use(otelmux.Middleware("foodkeeper-api"))
		zapLogger.Info("otel_middleware_enabled")
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.CORS(cfg.FrontendURL))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	// Rate limit middleware, applied selectively to auth routes
	rateLimitMW, err := middleware.RateLimit(redisClient, "10-M")
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limiter", zap.Error(err))
	}

	// Public routes
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")
	r.HandleFunc("/version", versionInfo).Methods("GET")

	// OpenAPI spec (public)
	openAPIHandler := handlers.NewOpenAPIHandler(filepath.Join("api", "openapi", "openapi.yaml"))
	openAPIHandler.RegisterRoutes(r)

	// API v1 routes
	apiRouter := r.PathPrefix("/api/v1").Subrouter()

	// Auth routes, rate limited: these endpoints take credentials and codes
	authRouter := apiRouter.PathPrefix("/auth").Subrouter()
	authRouter.Use(rateLimitMW)
	authHandler.RegisterRoutes(authRouter)

	// Google federated login
	if googleClient != nil {
		oauthHandler := handlers.NewOAuthHandler(authService, googleClient, cfg.FrontendURL, zapLogger)
		oauthRouter := r.PathPrefix("/oauth2").Subrouter()
		oauthRouter.Use(rateLimitMW)
		oauthHandler.RegisterRoutes(oauthRouter)
	} else {
		zapLogger.Warn("google_oauth_not_configured_federated_login_disabled")
	}

	// Protected routes
	authMW := middleware.Auth(tokens, userRepo)

	meRouter := apiRouter.PathPrefix("/auth/me").Subrouter()
	meRouter.Use(authMW)
	meRouter.HandleFunc("", authHandler.Me).Methods("GET")

	foodRouter := apiRouter.PathPrefix("/food-items").Subrouter()
	foodRouter.Use(authMW)
	foodHandler.RegisterRoutes(foodRouter)

	// Catch-all OPTIONS handler for preflight requests
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// Periodically delete expired codes
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	sweeper := auth.NewOTPSweeper(otpManager, cfg.OTPSweepInterval, zapLogger)
	go func() {
		if err := sweeper.Start(sweepCtx); err != nil && err != context.Canceled {
			zapLogger.Error("otp_sweeper_stopped_with_error", zap.Error(err))
		}
	}()
	zapLogger.Info("started_otp_sweeper", zap.Duration("interval", cfg.OTPSweepInterval))

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	sweepCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// newLogger picks console encoding in debug mode, JSON otherwise
func newLogger(debugMode bool) (*zap.Logger, error) {
	if debugMode {
		return logger.NewDevelopmentLogger(true)
	}
	return logger.NewProductionLogger(false)
}

// connectQueue dials RabbitMQ with capped exponential backoff
func connectQueue(url string, zapLogger *zap.Logger) (queue.JobQueue, error) {
	const maxRetries = 10
	const initialDelay = 2 * time.Second

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		jobQueue, err := queue.NewRabbitMQQueue(url)
		if err == nil {
			return jobQueue, nil
		}

		lastErr = err
		delay := initialDelay * time.Duration(1<<uint(attempt))
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		time.Sleep(delay)
	}
	return nil, lastErr
}

func versionInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprintf(w, `{"version":"1.0.0","timestamp":"%s"}`, time.Now().UTC().Format(time.RFC3339)); err != nil {
		_ = err
	}
}
