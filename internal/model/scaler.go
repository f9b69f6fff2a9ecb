package model

import (
	"fmt"

	"github.com/montanaflynn/stats"
)

// StandardScaler centers each feature at zero mean and unit variance.
// Fit on the training partition only; the holdout is transformed with
// the training statistics.
type StandardScaler struct {
	Mean []float64
	Std  []float64
}

func (s *StandardScaler) Fit(X [][]float64) error {
	if len(X) == 0 {
		return fmt.Errorf("scaler: empty matrix")
	}
	features := len(X[0])
	s.Mean = make([]float64, features)
	s.Std = make([]float64, features)

	col := make([]float64, len(X))
	for j := 0; j < features; j++ {
		for i := range X {
			col[i] = X[i][j]
		}
		mean, err := stats.Mean(col)
		if err != nil {
			return err
		}
		std, err := stats.StandardDeviationPopulation(col)
		if err != nil {
			return err
		}
		if std == 0 {
			// constant feature, leave it centered only
			std = 1
		}
		s.Mean[j] = mean
		s.Std[j] = std
	}
	return nil
}

func (s *StandardScaler) Transform(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - s.Mean[j]) / s.Std[j]
		}
		out[i] = scaled
	}
	return out
}

func (s *StandardScaler) FitTransform(X [][]float64) ([][]float64, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X), nil
}
