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

	"learntrack/internal/cache"
	"learntrack/internal/config"
	"learntrack/internal/database"
	"learntrack/internal/handlers"
	"learntrack/internal/repository"
	"learntrack/internal/service"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	// Run migrations
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	// Optional Redis summary cache
	statsCache := cache.NewStatsCache(cfg.RedisAddr, cfg.RedisPassword, cfg.StatsCacheTTL)
	if statsCache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := statsCache.Ping(ctx); err != nil {
			log.Printf("Warning: Redis unreachable, stats caching degraded: %v", err)
		} else {
			log.Printf("Stats cache enabled (redis: %s)", cfg.RedisAddr)
		}
		cancel()
		defer statsCache.Close()
	}

	// Initialize repository and services
	progressRepo := repository.NewProgressRepository(db)
	statsService := service.NewStatsService(progressRepo)
	achievementService := service.NewAchievementService(progressRepo)
	progressService := service.NewProgressService(progressRepo, statsService, achievementService)

	// Initialize handlers
	progressHandler := handlers.NewProgressHandler(progressService, statsCache)

	// Setup routes
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", progressHandler.Health)
	mux.HandleFunc("POST /api/sessions", progressHandler.CreateSession)

	mux.HandleFunc("GET /api/user-progress/{sessionId}", progressHandler.GetProgress)
	mux.HandleFunc("POST /api/user-progress/{sessionId}/{date}/{infoIndex}", progressHandler.UpdateProgress)
	mux.HandleFunc("POST /api/user-progress/term-progress/{sessionId}", progressHandler.UpdateTermProgress)
	mux.HandleFunc("GET /api/user-progress/stats/{sessionId}", progressHandler.GetStats)
	mux.HandleFunc("POST /api/user-progress/stats/{sessionId}", progressHandler.UpdateStats)
	mux.HandleFunc("POST /api/user-progress/quiz-score/{sessionId}", progressHandler.UpdateQuizScore)
	mux.HandleFunc("GET /api/user-progress/achievements/{sessionId}", progressHandler.GetAchievements)

	// Wrap with middleware
	handler := handlers.CORS(cfg.AllowedOrigins)(handlers.Logging(handlers.Recover(mux)))

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Serve until interrupted, then drain in-flight requests
	go func() {
		log.Printf("Server starting on port %s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
