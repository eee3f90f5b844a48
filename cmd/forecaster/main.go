// Command forecaster runs the full forecasting pipeline once: load the raw
// observation window, clean it to an hourly cadence, fit a SARIMA model per
// tracked variable by exhaustive order search, and publish the forecast
// documents plus a run index. It is designed to be invoked from a scheduled
// runner; the process exit code is the only contract with the scheduler.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/majito0703/measure-data-logger/internal/config"
	"github.com/majito0703/measure-data-logger/internal/forecast"
	"github.com/majito0703/measure-data-logger/internal/loader"
	"github.com/majito0703/measure-data-logger/internal/logger"
	"github.com/majito0703/measure-data-logger/internal/publish"
	"github.com/majito0703/measure-data-logger/internal/report"
	"github.com/majito0703/measure-data-logger/internal/search"
	"github.com/majito0703/measure-data-logger/internal/timeseries"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	// A .env file is optional; it only exists on developer machines.
	_ = godotenv.Load()

	var cfg *config.Config
	if _, err := os.Stat(*configPath); os.IsNotExist(err) {
		cfg = config.Default()
	} else {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Printf("Failed to load config: %v", err)
			return 1
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("Invalid configuration: %v", err)
		return 1
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)

	runID := uuid.NewString()
	logger.Info("Starting forecast run %s (%d variables)", runID, len(cfg.Variables))

	ctx := context.Background()
	now := time.Now()

	// Stage 1: acquire the raw window. The chain never fails outright.
	chain := loader.NewChain(cfg.Source, cfg.Series, cfg.Variables)
	table := chain.Load(ctx)
	if table == nil {
		logger.Error("Every loading strategy failed")
		return 1
	}

	// Stage 2: clean to a gap-free hourly frame. An empty result is fatal;
	// nothing downstream can run without a usable series.
	frame, err := timeseries.Clean(table, cfg.Series, cfg.Variables)
	if err != nil {
		logger.Error("Cleaning failed: %v", err)
		return 1
	}
	logger.Info("Cleaned series spans %d hourly rows (%s to %s)",
		frame.Len(),
		frame.Times[0].Format(time.DateTime),
		frame.Times[frame.Len()-1].Format(time.DateTime))

	token := os.Getenv(cfg.Publish.TokenEnvVar)
	if token == "" {
		logger.Warn("%s is not set; documents will be saved locally only", cfg.Publish.TokenEnvVar)
	}
	publisher := publish.New(cfg.Publish, token, runID)

	// Stages 3-6, per variable: search, report, export, publish. Each
	// variable runs to completion before the next begins; a failed variable
	// is skipped, not fatal.
	var exported []config.Variable
	published := 0
	for _, variable := range cfg.Variables {
		logger.Info("Processing %s", variable.Name)

		series, err := frame.Column(variable.Name)
		if err != nil {
			logger.Error("No cleaned series for %s: %v", variable.Name, err)
			continue
		}

		result, err := search.Run(series, cfg.Search)
		if err != nil {
			logger.Error("Order search for %s: %v", variable.Name, err)
			continue
		}
		logger.Info("Order search for %s evaluated %d candidates (%d failed)",
			variable.Name, result.Evaluated, result.Failed)

		report.Print(variable.Name, result.Model)

		doc, err := forecast.Export(variable, result.Model, series, now, cfg.Series, cfg.Forecast)
		if err != nil {
			logger.Error("Export for %s failed: %v", variable.Name, err)
			continue
		}
		exported = append(exported, variable)

		outcome, err := publisher.Publish(ctx, variable.Filename, doc)
		logPublish(variable.Filename, outcome, err)
		if outcome == publish.OutcomeRemotePublished {
			published++
		}
	}

	if len(exported) == 0 {
		logger.Error("No variable produced a forecast; nothing to index")
		return 1
	}

	// Stage 7: the run index, published the same way.
	index := forecast.BuildIndex(exported, now)
	outcome, err := publisher.Publish(ctx, cfg.Publish.IndexFile, index)
	logPublish(cfg.Publish.IndexFile, outcome, err)
	if outcome == publish.OutcomeRemotePublished {
		published++
	}

	logger.Info("Run %s complete: %d/%d variables exported, %d documents published remotely",
		runID, len(exported), len(cfg.Variables), published)
	return 0
}

func logPublish(name string, outcome publish.Outcome, err error) {
	switch outcome {
	case publish.OutcomeLocalOnly:
		logger.Info("%s saved locally (no write credential)", name)
	case publish.OutcomeRemotePublished:
		logger.Info("%s published", name)
	case publish.OutcomeRemoteFailed:
		logger.Error("%s failed to publish: %v", name, err)
	default:
		logger.Warn("%s finished in unexpected state %q: %v", name, outcome, err)
	}
}
