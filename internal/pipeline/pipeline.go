// Package pipeline runs the full churn batch: load, consolidate, label,
// featurize, rebalance, train, evaluate. One call in, one result or one
// error out.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"churn-pipeline/internal/churn"
	"churn-pipeline/internal/config"
	"churn-pipeline/internal/consolidate"
	"churn-pipeline/internal/dataset"
	"churn-pipeline/internal/evaluate"
	"churn-pipeline/internal/features"
	"churn-pipeline/internal/model"
	"churn-pipeline/internal/rebalance"
)

// Result is everything a run produces: the feature table for downstream
// display, the fitted model and scaler, and the evaluation material the
// report writer serializes.
type Result struct {
	RunID            string
	StartedAt        time.Time
	Config           *config.TrainingConfig
	Distribution     churn.Distribution
	Correlations     []evaluate.Correlation
	Metrics          *evaluate.Metrics
	Importances      []evaluate.Importance
	Matrix           *features.Matrix
	Model            model.Classifier
	Scaler           *model.StandardScaler
	AppliedRebalance config.RebalanceStrategy
	TrainRows        int
	HoldoutRows      int
}

// Run executes the batch end to end. cachePath, when set, reuses (or
// produces) a consolidated-record artifact so repeat runs with different
// cutoffs skip the join. Stages are strictly sequential; each consumes
// the previous stage's full output.
func Run(ctx context.Context, src dataset.Source, cfg *config.TrainingConfig, cachePath string, logger *zap.Logger) (*Result, error) {
	result := &Result{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
		Config:    cfg,
	}
	logger.Info("starting run",
		zap.String("run_id", result.RunID),
		zap.Time("cutoff", cfg.Cutoff),
		zap.String("model", cfg.Model.String()),
		zap.String("rebalance", cfg.Rebalance.String()),
		zap.String("class_weight", cfg.ClassWeight.String()),
	)

	records, err := loadRecords(ctx, src, cachePath, logger)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("pipeline: no consolidated records to process")
	}

	labels := churn.LabelCustomers(records, cfg.Cutoff, cfg.RecencyThresholdDays, cfg.NeverPurchased)
	if len(labels) == 0 {
		return nil, fmt.Errorf("pipeline: no customers labeled before cutoff %s", cfg.Cutoff.Format("2006-01-02"))
	}
	result.Distribution = churn.Distribute(labels)
	logger.Info("labeled customers",
		zap.Int("total", result.Distribution.TotalCount),
		zap.Int("churned", result.Distribution.Churned),
		zap.Int("retained", result.Distribution.Retained),
		zap.Float64("churn_rate", result.Distribution.ChurnRate),
	)

	matrix, err := features.Build(records, labels, cfg.Cutoff)
	if err != nil {
		return nil, err
	}
	result.Matrix = matrix
	result.Correlations = evaluate.FeatureCorrelations(matrix)

	train, holdout, err := evaluate.StratifiedSplit(matrix, cfg.TestSize, cfg.Seed)
	if err != nil {
		return nil, err
	}
	result.HoldoutRows = holdout.Rows()

	scaler := &model.StandardScaler{}
	scaledTrain, err := scaler.FitTransform(train.X)
	if err != nil {
		return nil, err
	}
	train.X = scaledTrain
	holdoutX := scaler.Transform(holdout.X)
	result.Scaler = scaler

	train, applied, err := rebalanceTrain(train, cfg, logger)
	if err != nil {
		return nil, err
	}
	result.AppliedRebalance = applied
	result.TrainRows = train.Rows()

	clf := model.New(cfg.Model, model.Options{Seed: cfg.Seed, ClassWeight: cfg.ClassWeight})
	fitStart := time.Now()
	if err := clf.Fit(train.X, train.Y); err != nil {
		return nil, err
	}
	logger.Info("fitted model",
		zap.String("model", cfg.Model.String()),
		zap.Int("train_rows", train.Rows()),
		zap.Duration("elapsed", time.Since(fitStart)),
	)
	result.Model = clf

	yPred := clf.Predict(holdoutX)
	proba := clf.Proba(holdoutX)
	metrics, err := evaluate.Compute(holdout.Y, yPred, proba)
	if err != nil {
		return nil, err
	}
	result.Metrics = metrics
	result.Importances = evaluate.RankImportances(matrix.Columns, clf.Importances())

	logger.Info("run complete",
		zap.String("run_id", result.RunID),
		zap.Float64("accuracy", metrics.Accuracy),
		zap.Float64("roc_auc", metrics.ROCAUC),
		zap.Float64("f1_macro", metrics.F1Macro),
	)
	return result, nil
}

func loadRecords(ctx context.Context, src dataset.Source, cachePath string, logger *zap.Logger) ([]consolidate.Record, error) {
	if cachePath != "" {
		if _, err := os.Stat(cachePath); err == nil {
			records, err := consolidate.ReadCache(cachePath)
			if err != nil {
				return nil, err
			}
			logger.Info("loaded consolidated records from cache",
				zap.String("path", cachePath), zap.Int("records", len(records)))
			return records, nil
		}
	}

	loadStart := time.Now()
	tables, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("loaded raw tables",
		zap.Int("orders", len(tables.Orders)),
		zap.Int("order_items", len(tables.OrderItems)),
		zap.Int("customers", len(tables.Customers)),
		zap.Duration("elapsed", time.Since(loadStart)),
	)

	records, err := consolidate.Consolidate(tables)
	if err != nil {
		return nil, err
	}
	logger.Info("consolidated records", zap.Int("records", len(records)))

	if cachePath != "" {
		if err := consolidate.WriteCache(cachePath, records); err != nil {
			return nil, err
		}
		logger.Info("wrote consolidated cache", zap.String("path", cachePath))
	}
	return records, nil
}

// rebalanceTrain applies the configured strategy to the training split
// only. When smote cannot run and a fallback is configured, the fallback
// is applied instead; without one the error surfaces to the caller.
func rebalanceTrain(train *features.Matrix, cfg *config.TrainingConfig, logger *zap.Logger) (*features.Matrix, config.RebalanceStrategy, error) {
	rng := rand.New(rand.NewSource(cfg.Seed))
	out, err := rebalance.Apply(train, cfg.Rebalance, cfg.TargetRatio, cfg.SMOTENeighbors, rng)
	if err == nil {
		return out, cfg.Rebalance, nil
	}
	if !errors.Is(err, rebalance.ErrInsufficientMinoritySamples) || !cfg.HasFallback {
		return nil, cfg.Rebalance, err
	}

	logger.Warn("rebalance fell back",
		zap.String("requested", cfg.Rebalance.String()),
		zap.String("fallback", cfg.RebalanceFallback.String()),
		zap.Error(err),
	)
	rng = rand.New(rand.NewSource(cfg.Seed))
	out, err = rebalance.Apply(train, cfg.RebalanceFallback, cfg.TargetRatio, cfg.SMOTENeighbors, rng)
	if err != nil {
		return nil, cfg.RebalanceFallback, err
	}
	return out, cfg.RebalanceFallback, nil
}
