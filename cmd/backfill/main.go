// Backfill runs one attribution pass over every pending journey and exits.
// Useful after loading historical journeys or adding a model to the standard
// set; the long-running worker in cmd/server picks up new journeys on its own.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"time"

	"github.com/paidsearchnav/attribution-service/internal/attribution"
	"github.com/paidsearchnav/attribution-service/internal/config"
	"github.com/paidsearchnav/attribution-service/internal/domain"
	"github.com/paidsearchnav/attribution-service/internal/export"
	"github.com/paidsearchnav/attribution-service/internal/mlscoring"
	"github.com/paidsearchnav/attribution-service/internal/repository/postgres"
	"github.com/paidsearchnav/attribution-service/internal/worker"

	_ "github.com/lib/pq" // PostgreSQL driver
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	summaryDays := flag.Int("summary-days", 30, "trailing window for the exported summary")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	journeyRepo := postgres.NewJourneyRepo(db)
	resultRepo := postgres.NewResultRepo(db)

	engine := attribution.NewEngine()
	if cfg.MLScoring.Enabled && cfg.MLScoring.BaseURL != "" {
		engine.SetPredictor(mlscoring.NewClient(
			cfg.MLScoring.BaseURL,
			cfg.MLScoring.APIKey,
			time.Duration(cfg.MLScoring.TimeoutSeconds)*time.Second,
			cfg.MLScoring.MaxRetries,
		))
	}

	models, err := backfillModels(cfg.Attribution)
	if err != nil {
		log.Fatalf("Failed to build model set: %v", err)
	}

	w := worker.NewAttributionWorker(journeyRepo, resultRepo, engine, models,
		time.Duration(cfg.Worker.PollIntervalSeconds)*time.Second, cfg.Worker.BatchSize)

	ctx := context.Background()
	total := 0
	for {
		processed := w.RunOnce(ctx)
		total += processed
		if processed == 0 {
			break
		}
		log.Printf("Backfill pass complete: %d journeys processed", processed)
	}
	log.Printf("Backfill finished: %d journeys processed", total)

	if cfg.Export.Enabled && cfg.Export.S3Bucket != "" {
		if err := exportSummaries(ctx, cfg, resultRepo, engine, models, *summaryDays); err != nil {
			log.Fatalf("Summary export failed: %v", err)
		}
	}

	os.Exit(0)
}

// exportSummaries writes one trailing-window summary per model to S3.
func exportSummaries(ctx context.Context, cfg *config.Config, resultRepo *postgres.ResultRepo, engine *attribution.Engine, models []*attribution.Model, days int) error {
	exporter, err := export.NewS3Exporter(ctx, cfg.Export.S3Bucket, cfg.Export.S3Region, cfg.Export.S3Prefix, cfg.Export.AWSProfile)
	if err != nil {
		return err
	}

	since := time.Now().AddDate(0, 0, -days)
	for _, model := range models {
		results, err := resultRepo.ListSince(ctx, model.ModelType, since, 10000)
		if err != nil {
			return err
		}
		if err := exporter.ExportSummary(ctx, model.ModelType, time.Now().UTC(), engine.Summarize(results)); err != nil {
			return err
		}
		log.Printf("Exported %s summary (%d results)", model.ModelType, len(results))
	}
	return nil
}

func backfillModels(cfg config.AttributionConfig) ([]*attribution.Model, error) {
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
