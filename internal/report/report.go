// Package report serializes a completed run into its downstream
// artifacts: the human-readable evaluation report and the model file.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"churn-pipeline/internal/pipeline"
)

// Write renders the evaluation report. The layout is the run's full
// story: configuration, label distribution, correlations, metrics,
// per-class report, confusion matrix, importances.
func Write(w io.Writer, res *pipeline.Result) error {
	cfg := res.Config
	metrics := res.Metrics

	fmt.Fprintf(w, "Churn Analysis\n")
	fmt.Fprintf(w, "Run ID: %s\n", res.RunID)
	fmt.Fprintf(w, "Executed at: %s\n\n", res.StartedAt.Format("2006-01-02 15:04:05"))

	fmt.Fprintf(w, "Configuration:\n")
	fmt.Fprintf(w, "Cutoff date: %s\n", cfg.Cutoff.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Recency threshold: %d days\n", cfg.RecencyThresholdDays)
	if res.AppliedRebalance != cfg.Rebalance {
		fmt.Fprintf(w, "Rebalance strategy: %s (fell back to %s)\n", cfg.Rebalance, res.AppliedRebalance)
	} else {
		fmt.Fprintf(w, "Rebalance strategy: %s\n", cfg.Rebalance)
	}
	fmt.Fprintf(w, "Model: %s\n", cfg.Model)
	fmt.Fprintf(w, "Class weight: %s\n", cfg.ClassWeight)
	fmt.Fprintf(w, "Never-purchased policy: %s\n", cfg.NeverPurchased)
	fmt.Fprintf(w, "Test size: %.2f\n", cfg.TestSize)
	fmt.Fprintf(w, "Seed: %d\n\n", cfg.Seed)

	dist := res.Distribution
	fmt.Fprintf(w, "Label distribution:\n")
	fmt.Fprintf(w, "Retained (0): %d\n", dist.Retained)
	fmt.Fprintf(w, "Churned (1): %d\n", dist.Churned)
	fmt.Fprintf(w, "Churn rate: %.2f%%\n\n", dist.ChurnRate*100)

	fmt.Fprintf(w, "Top correlations with churn:\n")
	for _, c := range res.Correlations {
		fmt.Fprintf(w, "%s: %.4f\n", c.Feature, c.Value)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Performance metrics:\n")
	fmt.Fprintf(w, "Accuracy: %.4f\n", metrics.Accuracy)
	fmt.Fprintf(w, "Precision (weighted): %.4f\n", metrics.PrecisionWeighted)
	fmt.Fprintf(w, "Recall (weighted): %.4f\n", metrics.RecallWeighted)
	fmt.Fprintf(w, "F1 (macro): %.4f\n", metrics.F1Macro)
	fmt.Fprintf(w, "F1 (weighted): %.4f\n", metrics.F1Weighted)
	fmt.Fprintf(w, "AUC-ROC: %.4f\n", metrics.ROCAUC)
	fmt.Fprintf(w, "Average precision: %.4f\n", metrics.AveragePrecision)
	fmt.Fprintf(w, "Score quantiles: p50=%.4f p90=%.4f p99=%.4f\n\n",
		metrics.ScoreQuantiles["p50"], metrics.ScoreQuantiles["p90"], metrics.ScoreQuantiles["p99"])

	fmt.Fprintf(w, "Classification report:\n")
	fmt.Fprintf(w, "%-12s %9s %9s %9s %9s\n", "class", "precision", "recall", "f1-score", "support")
	for _, class := range []int{0, 1} {
		cm := metrics.PerClass[class]
		fmt.Fprintf(w, "%-12d %9.4f %9.4f %9.4f %9d\n", class, cm.Precision, cm.Recall, cm.F1, cm.Support)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Confusion matrix:\n")
	fmt.Fprintf(w, "[[%d %d]\n", metrics.Confusion[0][0], metrics.Confusion[0][1])
	fmt.Fprintf(w, " [%d %d]]\n\n", metrics.Confusion[1][0], metrics.Confusion[1][1])

	fmt.Fprintf(w, "Feature importances:\n")
	for _, imp := range res.Importances {
		fmt.Fprintf(w, "%s: %.4f\n", imp.Feature, imp.Weight)
	}
	return nil
}

// WriteFile writes the report into dir as report_<run id>.txt.
func WriteFile(dir string, res *pipeline.Result) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("report_%s.txt", res.RunID))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := Write(f, res); err != nil {
		return "", err
	}
	return path, nil
}
