package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paidsearchnav/attribution-service/internal/api"
	"github.com/paidsearchnav/attribution-service/internal/attribution"
	"github.com/paidsearchnav/attribution-service/internal/cache"
	"github.com/paidsearchnav/attribution-service/internal/config"
	"github.com/paidsearchnav/attribution-service/internal/domain"
	"github.com/paidsearchnav/attribution-service/internal/mlscoring"
	"github.com/paidsearchnav/attribution-service/internal/pkg/distlock"
	"github.com/paidsearchnav/attribution-service/internal/repository/postgres"
	"github.com/paidsearchnav/attribution-service/internal/worker"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v", port, addr, err)
	}
	ln.Close()
	return nil
}

func main() {
	log.Println("PaidSearchNav attribution service starting")

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("DATABASE_URL") != "" {
		log.Println("[config] DATABASE_URL env override active")
	}

	if err := checkPortAvailable(cfg.Server.Host, cfg.Server.Port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}

	// Database
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Minute)
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	journeyRepo := postgres.NewJourneyRepo(db)
	resultRepo := postgres.NewResultRepo(db)

	// Attribution engine, with the ML scoring collaborator when configured
	engine := attribution.NewEngine()
	if cfg.MLScoring.Enabled && cfg.MLScoring.BaseURL != "" {
		predictor := mlscoring.NewClient(
			cfg.MLScoring.BaseURL,
			cfg.MLScoring.APIKey,
			time.Duration(cfg.MLScoring.TimeoutSeconds)*time.Second,
			cfg.MLScoring.MaxRetries,
		)
		engine.SetPredictor(predictor)
		engine.SetPredictorTimeout(time.Duration(cfg.MLScoring.TimeoutSeconds) * time.Second)
		log.Printf("ML scoring enabled: %s", cfg.MLScoring.BaseURL)
		if info, err := predictor.ModelInfo(context.Background()); err != nil {
			log.Printf("ML scoring model info unavailable: %v", err)
		} else {
			log.Printf("ML scoring serving model %s version %s (trained %s)",
				info.ModelID, info.Version, info.TrainedAt.Format(time.RFC3339))
		}
	} else {
		log.Println("ML scoring disabled; data-driven models fall back to time decay")
	}

	// Optional Redis result cache
	var resultCache *cache.ResultCache
	var redisClient *redis.Client
	if cfg.Redis.Enabled && cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Printf("Redis unavailable, continuing without cache: %v", err)
			redisClient = nil
		} else {
			resultCache = cache.NewResultCache(redisClient, time.Duration(cfg.Redis.TTLMinutes)*time.Minute)
			log.Printf("Redis result cache enabled: %s", cfg.Redis.Addr)
		}
	}

	// Batch worker computing the standard model set
	var attributionWorker *worker.AttributionWorker
	if cfg.Worker.Enabled {
		models, err := standardModels(cfg.Attribution)
		if err != nil {
			log.Fatalf("Failed to build model set: %v", err)
		}
		attributionWorker = worker.NewAttributionWorker(
			journeyRepo,
			resultRepo,
			engine,
			models,
			time.Duration(cfg.Worker.PollIntervalSeconds)*time.Second,
			cfg.Worker.BatchSize,
		)
		if resultCache != nil {
			attributionWorker.SetCache(resultCache)
		}
		lockTTL := 2 * time.Duration(cfg.Worker.PollIntervalSeconds) * time.Second
		attributionWorker.SetLock(distlock.New(redisClient, db, "attribution-worker", lockTTL))
		attributionWorker.Start()
		log.Printf("Attribution worker started (poll %ds, batch %d)", cfg.Worker.PollIntervalSeconds, cfg.Worker.BatchSize)
	}

	// HTTP API
	handlers := api.NewHandlers(engine, journeyRepo, resultRepo)
	if resultCache != nil {
		handlers.SetResultCache(resultCache)
	}
	router := api.SetupRoutes(handlers)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")

	if attributionWorker != nil {
		attributionWorker.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}

// standardModels is the model set the batch worker keeps current for every
// journey. Engine defaults come from the attribution config section.
func standardModels(cfg config.AttributionConfig) ([]*attribution.Model, error) {
	timeDecay, err := attribution.NewTimeDecayModel(string(domain.ModelTimeDecay), cfg.DefaultHalfLifeDays)
	if err != nil {
		return nil, err
	}
	positionBased, err := attribution.NewPositionBasedModel(string(domain.ModelPositionBased), cfg.PositionBasedFirstWeight, cfg.PositionBasedLastWeight)
	if err != nil {
		return nil, err
	}
	return []*attribution.Model{
		attribution.NewFirstTouchModel(string(domain.ModelFirstTouch)),
		attribution.NewLastTouchModel(string(domain.ModelLastTouch)),
		attribution.NewLinearModel(string(domain.ModelLinear)),
		timeDecay,
		positionBased,
	}, nil
}
