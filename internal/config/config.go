package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Datasets Datasets `yaml:"datasets"`
	Training Training `yaml:"training"`
	Output   Output   `yaml:"output"`
}

type Datasets struct {
	Source    string `yaml:"source"`
	CSVDir    string `yaml:"csv_dir"`
	Postgres  string `yaml:"postgres"`
	MySQL     string `yaml:"mysql"`
	Mongo     string `yaml:"mongo"`
	CachePath string `yaml:"cache_path"`
}

type Training struct {
	CutoffDate           string  `yaml:"cutoff_date"`
	RecencyThresholdDays int     `yaml:"recency_threshold_days"`
	Rebalance            string  `yaml:"rebalance"`
	RebalanceFallback    string  `yaml:"rebalance_fallback"`
	Model                string  `yaml:"model"`
	ClassWeight          string  `yaml:"class_weight"`
	NeverPurchased       string  `yaml:"never_purchased"`
	TestSize             float64 `yaml:"test_size"`
	Seed                 int64   `yaml:"seed"`
	TargetRatio          float64 `yaml:"target_ratio"`
	SMOTENeighbors       int     `yaml:"smote_neighbors"`
}

type Output struct {
	ReportDir string `yaml:"report_dir"`
	ModelDir  string `yaml:"model_dir"`
}

func LoadConfig(path string) (*Config, error) {
	config := &Config{}

	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	err = yaml.Unmarshal(file, config)
	if err != nil {
		return nil, err
	}

	return config, nil
}

// ConfigurationError reports an invalid or unknown configuration value.
// It is returned before any data is loaded so bad runs fail immediately.
type ConfigurationError struct {
	Field string
	Value string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config: invalid value %q for %s", e.Value, e.Field)
}

type RebalanceStrategy int

const (
	RebalanceNone RebalanceStrategy = iota
	RebalanceOversample
	RebalanceSMOTE
)

func (s RebalanceStrategy) String() string {
	switch s {
	case RebalanceOversample:
		return "oversample"
	case RebalanceSMOTE:
		return "smote"
	default:
		return "none"
	}
}

type ModelType int

const (
	ModelRandomForest ModelType = iota
	ModelLogisticRegression
	ModelGradientBoosting
)

func (m ModelType) String() string {
	switch m {
	case ModelLogisticRegression:
		return "logistic_regression"
	case ModelGradientBoosting:
		return "gradient_boosting"
	default:
		return "random_forest"
	}
}

type ClassWeight int

const (
	ClassWeightNone ClassWeight = iota
	ClassWeightBalanced
)

func (w ClassWeight) String() string {
	if w == ClassWeightBalanced {
		return "balanced"
	}
	return "none"
}

// NeverPurchasedPolicy decides what happens to customers that exist in the
// dataset but have no order at or before the cutoff. The historical data
// folds them into the churned class; "exclude" drops them from the labeled
// set instead.
type NeverPurchasedPolicy int

const (
	NeverPurchasedChurn NeverPurchasedPolicy = iota
	NeverPurchasedExclude
)

func (p NeverPurchasedPolicy) String() string {
	if p == NeverPurchasedExclude {
		return "exclude"
	}
	return "churn"
}

// TrainingConfig is the validated, immutable form of the training section.
// One value is built per run and passed through every pipeline stage.
type TrainingConfig struct {
	Cutoff               time.Time
	RecencyThresholdDays int
	Rebalance            RebalanceStrategy
	RebalanceFallback    RebalanceStrategy
	HasFallback          bool
	Model                ModelType
	ClassWeight          ClassWeight
	NeverPurchased       NeverPurchasedPolicy
	TestSize             float64
	Seed                 int64
	TargetRatio          float64
	SMOTENeighbors       int
}

const (
	defaultRecencyThresholdDays = 90
	defaultTestSize             = 0.3
	defaultSeed                 = 42
	defaultTargetRatio          = 1.0
	defaultSMOTENeighbors       = 5
)

var cutoffLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339}

func parseCutoff(value string) (time.Time, error) {
	for _, layout := range cutoffLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &ConfigurationError{Field: "training.cutoff_date", Value: value}
}

func parseRebalance(value string) (RebalanceStrategy, error) {
	switch value {
	case "", "none":
		return RebalanceNone, nil
	case "oversample":
		return RebalanceOversample, nil
	case "smote":
		return RebalanceSMOTE, nil
	}
	return RebalanceNone, &ConfigurationError{Field: "training.rebalance", Value: value}
}

// Validate checks the training section and returns its typed form.
// Every enum is resolved here; downstream stages never see raw strings.
func (c *Config) Validate() (*TrainingConfig, error) {
	if c.Training.CutoffDate == "" {
		return nil, &ConfigurationError{Field: "training.cutoff_date", Value: ""}
	}
	cutoff, err := parseCutoff(c.Training.CutoffDate)
	if err != nil {
		return nil, err
	}

	tc := &TrainingConfig{
		Cutoff:               cutoff,
		RecencyThresholdDays: c.Training.RecencyThresholdDays,
		TestSize:             c.Training.TestSize,
		Seed:                 c.Training.Seed,
		TargetRatio:          c.Training.TargetRatio,
		SMOTENeighbors:       c.Training.SMOTENeighbors,
	}
	if tc.RecencyThresholdDays == 0 {
		tc.RecencyThresholdDays = defaultRecencyThresholdDays
	}
	if tc.RecencyThresholdDays < 0 {
		return nil, &ConfigurationError{Field: "training.recency_threshold_days", Value: fmt.Sprint(tc.RecencyThresholdDays)}
	}
	if tc.TestSize == 0 {
		tc.TestSize = defaultTestSize
	}
	if tc.TestSize <= 0 || tc.TestSize >= 1 {
		return nil, &ConfigurationError{Field: "training.test_size", Value: fmt.Sprint(tc.TestSize)}
	}
	if tc.Seed == 0 {
		tc.Seed = defaultSeed
	}
	if tc.TargetRatio == 0 {
		tc.TargetRatio = defaultTargetRatio
	}
	if tc.TargetRatio < 0 || tc.TargetRatio > 1 {
		return nil, &ConfigurationError{Field: "training.target_ratio", Value: fmt.Sprint(tc.TargetRatio)}
	}
	if tc.SMOTENeighbors == 0 {
		tc.SMOTENeighbors = defaultSMOTENeighbors
	}
	if tc.SMOTENeighbors < 1 {
		return nil, &ConfigurationError{Field: "training.smote_neighbors", Value: fmt.Sprint(tc.SMOTENeighbors)}
	}

	if tc.Rebalance, err = parseRebalance(c.Training.Rebalance); err != nil {
		return nil, err
	}
	if c.Training.RebalanceFallback != "" {
		fallback, err := parseRebalance(c.Training.RebalanceFallback)
		if err != nil {
			return nil, &ConfigurationError{Field: "training.rebalance_fallback", Value: c.Training.RebalanceFallback}
		}
		if fallback == RebalanceSMOTE {
			// smote cannot recover from its own failure
			return nil, &ConfigurationError{Field: "training.rebalance_fallback", Value: c.Training.RebalanceFallback}
		}
		tc.RebalanceFallback = fallback
		tc.HasFallback = true
	}

	switch c.Training.Model {
	case "", "random_forest":
		tc.Model = ModelRandomForest
	case "logistic_regression":
		tc.Model = ModelLogisticRegression
	case "gradient_boosting":
		tc.Model = ModelGradientBoosting
	default:
		return nil, &ConfigurationError{Field: "training.model", Value: c.Training.Model}
	}

	switch c.Training.ClassWeight {
	case "", "none":
		tc.ClassWeight = ClassWeightNone
	case "balanced":
		tc.ClassWeight = ClassWeightBalanced
	default:
		return nil, &ConfigurationError{Field: "training.class_weight", Value: c.Training.ClassWeight}
	}

	switch c.Training.NeverPurchased {
	case "", "churn":
		tc.NeverPurchased = NeverPurchasedChurn
	case "exclude":
		tc.NeverPurchased = NeverPurchasedExclude
	default:
		return nil, &ConfigurationError{Field: "training.never_purchased", Value: c.Training.NeverPurchased}
	}

	return tc, nil
}
