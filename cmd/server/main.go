package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aidesk/internal/config"
	"aidesk/internal/database"
	"aidesk/internal/handlers"
	"aidesk/internal/repository"
	"aidesk/internal/security"
	"aidesk/internal/service"

	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"
)

func main() {
	// Load configuration
	cfg := config.Load()

	ctx := context.Background()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	// Run migrations
	if err := db.RunMigrations(ctx, cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	// Initialize repositories
	accountRepo := repository.NewAccountRepository(db)
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	resetRepo := repository.NewResetRepository(db)

	// Initialize email delivery
	emailService, err := service.NewEmailService(cfg.SESRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}

	// Initialize services
	authService := service.NewAuthService(accountRepo, userRepo, sessionRepo,
		cfg.SessionDuration, cfg.BcryptCost, cfg.PasswordMinLength)
	resetService := service.NewResetService(userRepo, resetRepo, sessionRepo, emailService,
		cfg.ResetTokenTTL, cfg.BcryptCost, cfg.PasswordMinLength)
	identityService := service.NewIdentityService(accountRepo, userRepo, sessionRepo, cfg.SessionDuration)

	// Abuse guards: Redis-backed when REDIS_URL is set so budgets hold
	// across replicas, otherwise per-process in-memory windows
	authLimiter, sensitiveLimiter := buildLimiters(cfg)

	oauthProviders := map[string]handlers.OAuthProvider{
		"google": {
			Name:  "google",
			Label: "Google",
			Config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				Endpoint:     google.Endpoint,
				Scopes:       []string{"openid", "email", "profile"},
			},
			UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		},
		"facebook": {
			Name:  "facebook",
			Label: "Facebook",
			Config: &oauth2.Config{
				ClientID:     cfg.FacebookClientID,
				ClientSecret: cfg.FacebookClientSecret,
				Endpoint:     facebook.Endpoint,
				Scopes:       []string{"email", "public_profile"},
			},
			UserInfoURL: "https://graph.facebook.com/me?fields=id,name,email,picture",
		},
		"apple": {
			Name:  "apple",
			Label: "Apple",
			Config: &oauth2.Config{
				ClientID:     cfg.AppleClientID,
				ClientSecret: cfg.AppleClientSecret,
				Endpoint: oauth2.Endpoint{
					AuthURL:  "https://appleid.apple.com/auth/authorize",
					TokenURL: "https://appleid.apple.com/auth/token",
				},
				Scopes: []string{"name", "email"},
			},
			AuthParams: map[string]string{
				"response_mode": "query",
			},
		},
		"discord": {
			Name:  "discord",
			Label: "Discord",
			Config: &oauth2.Config{
				ClientID:     cfg.DiscordClientID,
				ClientSecret: cfg.DiscordClientSecret,
				Endpoint: oauth2.Endpoint{
					AuthURL:  "https://discord.com/oauth2/authorize",
					TokenURL: "https://discord.com/api/oauth2/token",
				},
				Scopes: []string{"identify", "email"},
			},
			UserInfoURL: "https://discord.com/api/users/@me",
		},
		"slack": {
			Name:  "slack",
			Label: "Slack",
			Config: &oauth2.Config{
				ClientID:     cfg.SlackClientID,
				ClientSecret: cfg.SlackClientSecret,
				Endpoint: oauth2.Endpoint{
					AuthURL:  "https://slack.com/openid/connect/authorize",
					TokenURL: "https://slack.com/api/openid.connect.token",
				},
				Scopes: []string{"openid", "email", "profile"},
			},
			UserInfoURL: "https://slack.com/api/openid.connect.userInfo",
		},
	}

	// Initialize handlers
	middleware := handlers.NewMiddleware(authService)
	authHandler := handlers.NewAuthHandler(authService, resetService, identityService, emailService,
		oauthProviders, cfg.OAuthRedirectBaseURL, cfg.AppBaseURL)

	// Setup routes
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/register", handlers.RateLimit(authLimiter, authHandler.Register))
	mux.HandleFunc("POST /api/auth/login", handlers.RateLimit(authLimiter, authHandler.Login))
	mux.HandleFunc("GET /api/auth/me", middleware.RequireAuth(authHandler.Me))
	mux.HandleFunc("POST /api/auth/logout", middleware.RequireAuth(authHandler.Logout))

	mux.HandleFunc("POST /api/auth/forgot-password", handlers.RateLimit(authLimiter, authHandler.ForgotPassword))
	mux.HandleFunc("GET /api/auth/verify-reset-token", authHandler.VerifyResetToken)
	mux.HandleFunc("POST /api/auth/reset-password", handlers.RateLimit(sensitiveLimiter, authHandler.ResetPassword))

	mux.HandleFunc("POST /api/user/password", middleware.RequireAuth(handlers.RateLimit(sensitiveLimiter, authHandler.ChangePassword)))
	mux.HandleFunc("PUT /api/user/profile", middleware.RequireAuth(authHandler.UpdateProfile))

	mux.HandleFunc("GET /auth/{provider}/start", authHandler.StartOAuth)
	mux.HandleFunc("GET /auth/{provider}/callback", authHandler.OAuthCallback)

	// Wrap with logging middleware
	handler := handlers.Logging(mux)

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start background cleanup of expired sessions and reset requests
	go cleanupExpired(authService, resetService)

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

// buildLimiters returns the auth and sensitive-operation rate limiters
func buildLimiters(cfg *config.Config) (security.Limiter, security.Limiter) {
	if cfg.RedisURL == "" {
		return security.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow),
			security.NewRateLimiter(cfg.SensitiveRateLimit, cfg.SensitiveRateWindow)
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Invalid REDIS_URL: %v", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	log.Println("Rate limiting backed by Redis")
	return security.NewRedisRateLimiter(client, "rl:auth", cfg.AuthRateLimit, cfg.AuthRateWindow),
		security.NewRedisRateLimiter(client, "rl:sensitive", cfg.SensitiveRateLimit, cfg.SensitiveRateWindow)
}

// cleanupExpired periodically removes expired sessions and reset requests
func cleanupExpired(authService *service.AuthService, resetService *service.ResetService) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)

		if err := authService.CleanupExpiredSessions(ctx); err != nil {
			log.Printf("Error cleaning up expired sessions: %v", err)
		}
		if err := resetService.CleanupExpiredRequests(ctx); err != nil {
			log.Printf("Error cleaning up expired reset requests: %v", err)
		}

		cancel()
	}
}
