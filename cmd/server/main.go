package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/diegcard-arep/arep-microservicios/internal/database"
	"github.com/diegcard-arep/arep-microservicios/internal/handlers"
	"github.com/diegcard-arep/arep-microservicios/internal/middleware"
	"github.com/diegcard-arep/arep-microservicios/internal/services"
	"github.com/diegcard-arep/arep-microservicios/internal/upstream"
	"github.com/diegcard-arep/arep-microservicios/pkg/cache"
	"github.com/diegcard-arep/arep-microservicios/pkg/config"
	"github.com/diegcard-arep/arep-microservicios/pkg/utils"
)

func main() {
	// Initialize logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().
		Str("env", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Str("issuer", cfg.OIDC.IssuerURL).
		Msg("Starting gateway")

	// Initialize Redis (session store, rate limiting, profile cache)
	redisDB, err := database.NewRedisDB(&cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisDB.Close()

	var profileCache *cache.Cache
	if cfg.Cache.Enabled {
		profileCache = cache.NewCache(redisDB.Client())
	}

	// Initialize services
	oidcService := services.NewOIDCService(&cfg.OIDC)
	sessionService := services.NewSessionService(redisDB, cfg.Session.TTL)

	// Downstream clients
	userClient := upstream.NewUserClient(cfg.Upstream.UserServiceURL, cfg.Upstream.Timeout)
	postClient := upstream.NewPostClient(cfg.Upstream.PostServiceURL, cfg.Upstream.Timeout)
	streamClient := upstream.NewStreamClient(cfg.Upstream.StreamServiceURL, cfg.Upstream.Timeout)

	resolver := services.NewUserResolver(sessionService, userClient)

	// Provider discovery runs in the background so the server can come
	// up and serve health checks while the provider is slow or
	// unreachable. Login answers 503 until discovery succeeds.
	discoveryCtx, cancelDiscovery := context.WithCancel(context.Background())
	defer cancelDiscovery()
	go func() {
		err := utils.Retry(discoveryCtx, utils.DiscoveryRetryConfig(), func() error {
			return oidcService.Initialize(discoveryCtx)
		})
		if err != nil {
			log.Error().Err(err).Msg("OIDC discovery abandoned")
		}
	}()

	// Initialize handlers
	isProduction := cfg.Server.IsProduction()
	authHandler := handlers.NewAuthHandler(oidcService, sessionService, resolver, &cfg.Session, isProduction)
	userHandler := handlers.NewUserHandler(userClient, resolver, profileCache, cfg.Cache.ProfileTTL)
	postHandler := handlers.NewPostHandler(postClient, resolver)
	timelineHandler := handlers.NewTimelineHandler(streamClient, resolver)
	healthHandler := handlers.NewHealthHandler(redisDB, oidcService)
	staticHandler := handlers.NewStaticHandler(&cfg.Server)

	// Initialize middleware
	auth := middleware.NewAuth(sessionService, &cfg.Session)
	rateLimiter := middleware.NewRateLimiter(redisDB, cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.WindowDuration)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recoverer())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	r.Use(chimiddleware.Compress(5))
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(auth.Attach)

	// Health check endpoints
	r.Get("/health", healthHandler.Health)
	r.Get("/api/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", middleware.MetricsHandler())

	// Auth flow. The callback is registered at the exact path of the
	// configured redirect URI, plus /callback for compatibility.
	r.With(rateLimiter.Limit("login")).Get("/login", authHandler.Login)
	r.With(rateLimiter.Limit("login")).Get("/api/auth/login", authHandler.Login)
	r.Get("/api/auth/status", authHandler.Status)
	r.Get("/logout", authHandler.Logout)
	r.Get("/api/auth/logout", authHandler.Logout)
	if callbackPath := cfg.OIDC.CallbackPath(); callbackPath != "/callback" {
		r.Get(callbackPath, authHandler.Callback)
	}
	r.Get("/callback", authHandler.Callback)

	// Proxied API (session required)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)

		r.Route("/api/users", func(r chi.Router) {
			r.Get("/current", userHandler.Current)
			r.With(rateLimiter.Limit("register")).Post("/register", userHandler.Register)
			r.Get("/username/{username}", userHandler.ByUsername)
		})

		r.Route("/api/posts", func(r chi.Router) {
			r.Post("/", postHandler.Create)
			r.Post("/{id}/like", postHandler.Like)
			r.Post("/{id}/unlike", postHandler.Unlike)
			r.Post("/{id}/comments", postHandler.AddComment)
			r.Get("/{id}/comments", postHandler.ListComments)
		})

		r.Route("/api/timeline", func(r chi.Router) {
			r.Get("/personal", timelineHandler.Personal)
			r.Get("/global", timelineHandler.Global)
			r.Get("/user/{userId}", timelineHandler.User)
		})
	})

	// Everything else is the frontend
	r.NotFound(staticHandler.Serve)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", server.Addr).Msg("Server started")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("Shutting down server...")
	cancelDiscovery()

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped gracefully")
}
