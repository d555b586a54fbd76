package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"

	"github.com/playmatatu/ballpit/internal/api"
	"github.com/playmatatu/ballpit/internal/config"
	"github.com/playmatatu/ballpit/internal/redis"
	"github.com/playmatatu/ballpit/internal/sandbox"
	"github.com/playmatatu/ballpit/internal/ws"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()
	if err := cfg.Simulation().Validate(); err != nil {
		log.Fatalf("Invalid simulation settings: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Redis (optional outside production)
	var rdb *goredis.Client
	if cfg.RedisURL != "" {
		client, err := redis.Connect(cfg.RedisURL)
		if err != nil {
			if cfg.Environment == "production" {
				log.Fatalf("Failed to connect to Redis: %v", err)
			}
			log.Printf("[REDIS] Failed to connect (%v); continuing without Redis", err)
		} else {
			rdb = client
			defer rdb.Close()
			log.Println("[REDIS] Connected")
		}
	} else {
		log.Println("[REDIS] REDIS_URL not set; events stay local and idle reaping scans memory")
	}

	// Initialize Sandbox Manager and route its output into the WS hub
	sandbox.InitializeManager(rdb, cfg)
	defer sandbox.Manager.Close()
	ws.SetRedisClient(rdb, cfg)
	ws.AttachManager(sandbox.Manager)
	ws.StartEventSubscriber(ctx)

	// Start idle worker (reaps abandoned sandboxes)
	sandbox.StartIdleWorker(ctx, rdb, cfg)

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Initialize API handlers
	api.SetupRoutes(router, cfg)

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{Addr: ":" + port, Handler: router}
	go func() {
		log.Printf("Starting Ballpit server on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
