package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"churn-pipeline/internal/config"
	"churn-pipeline/internal/dataset"
	"churn-pipeline/internal/pipeline"
	"churn-pipeline/internal/report"
)

func main() {
	var exitCode int
	defer func() {
		os.Exit(exitCode)
	}()

	configPath := flag.String("config", "config.yaml", "path to the run configuration")
	sourceName := flag.String("source", "", "dataset source (csv, postgres, mysql, or mongo; overrides config)")
	cutoffDate := flag.String("cutoff", "", "cutoff date override (YYYY-MM-DD)")
	modelName := flag.String("model", "", "model override (random_forest, logistic_regression, gradient_boosting)")
	rebalanceName := flag.String("rebalance", "", "rebalance override (none, oversample, smote)")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		exitCode = 1
		return
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config", zap.Error(err))
		exitCode = 1
		return
	}
	if *cutoffDate != "" {
		cfg.Training.CutoffDate = *cutoffDate
	}
	if *modelName != "" {
		cfg.Training.Model = *modelName
	}
	if *rebalanceName != "" {
		cfg.Training.Rebalance = *rebalanceName
	}

	trainingCfg, err := cfg.Validate()
	if err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		exitCode = 1
		return
	}

	sources := map[string]dataset.Source{
		"csv":      &dataset.CSVSource{},
		"postgres": &dataset.PostgresSource{},
		"mysql":    &dataset.MySQLSource{},
		"mongo":    &dataset.MongoSource{},
	}

	name := cfg.Datasets.Source
	if *sourceName != "" {
		name = *sourceName
	}
	src, ok := sources[name]
	if !ok {
		logger.Error("unsupported dataset source", zap.String("source", name))
		exitCode = 1
		return
	}

	var dsn string
	switch name {
	case "csv":
		dsn = cfg.Datasets.CSVDir
	case "postgres":
		dsn = cfg.Datasets.Postgres
	case "mysql":
		dsn = cfg.Datasets.MySQL
	case "mongo":
		dsn = cfg.Datasets.Mongo
	}
	if err := src.Connect(dsn); err != nil {
		logger.Error("failed to connect dataset source", zap.String("source", name), zap.Error(err))
		exitCode = 1
		return
	}
	defer src.Close()

	result, err := pipeline.Run(context.Background(), src, trainingCfg, cfg.Datasets.CachePath, logger)
	if err != nil {
		logger.Error("run failed", zap.Error(err))
		exitCode = 1
		return
	}

	reportDir := cfg.Output.ReportDir
	if reportDir == "" {
		reportDir = "reports"
	}
	reportPath, err := report.WriteFile(reportDir, result)
	if err != nil {
		logger.Error("failed to write report", zap.Error(err))
		exitCode = 1
		return
	}
	logger.Info("wrote report", zap.String("path", reportPath))

	modelDir := cfg.Output.ModelDir
	if modelDir == "" {
		modelDir = "models"
	}
	modelPath, err := report.SaveModel(modelDir, &report.Artifact{
		Columns: result.Matrix.Columns,
		Scaler:  result.Scaler,
		Model:   result.Model,
	})
	if err != nil {
		logger.Error("failed to save model", zap.Error(err))
		exitCode = 1
		return
	}
	logger.Info("saved model", zap.String("path", modelPath))

	jsonOutput, err := json.MarshalIndent(result.Metrics, "", "  ")
	if err != nil {
		logger.Error("failed to marshal metrics", zap.Error(err))
		exitCode = 1
		return
	}
	fmt.Println(string(jsonOutput))
}
