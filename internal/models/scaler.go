package models

import (
	"encoding/json"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

const (
	KindStandardScaler = "standard_scaler"
	KindMinMaxScaler   = "min_max_scaler"
)

// Scaler is a fitted column-wise transform shared by every model.
type Scaler struct {
	Kind         string    `json:"kind"`
	Features     int       `json:"n_features_in"`
	FeatureNames []string  `json:"feature_names_in,omitempty"`
	Mean         []float64 `json:"mean,omitempty"`
	Scale        []float64 `json:"scale,omitempty"`
	Min          []float64 `json:"min,omitempty"`
	WithMean     *bool     `json:"with_mean,omitempty"`
	WithStd      *bool     `json:"with_std,omitempty"`

	apply func(j int, v float64) float64
}

// DecodeScaler parses a scaler artifact.
func DecodeScaler(data []byte) (*Scaler, error) {
	var s Scaler
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("invalid scaler artifact: %w", err)
	}
	if s.Features <= 0 {
		return nil, errors.New("scaler n_features_in must be positive")
	}
	if len(s.FeatureNames) > 0 && len(s.FeatureNames) != s.Features {
		return nil, fmt.Errorf("scaler lists %d feature names for %d features", len(s.FeatureNames), s.Features)
	}
	if len(s.Scale) != s.Features {
		return nil, fmt.Errorf("scaler scale has %d values, want %d", len(s.Scale), s.Features)
	}

	switch s.Kind {
	case KindStandardScaler:
		if len(s.Mean) != s.Features {
			return nil, fmt.Errorf("scaler mean has %d values, want %d", len(s.Mean), s.Features)
		}
		withMean := s.WithMean == nil || *s.WithMean
		withStd := s.WithStd == nil || *s.WithStd
		scale := make([]float64, s.Features)
		for j, v := range s.Scale {
			// constant columns were fitted with a zero scale
			if v == 0 {
				v = 1
			}
			scale[j] = v
		}
		s.apply = func(j int, v float64) float64 {
			if withMean {
				v -= s.Mean[j]
			}
			if withStd {
				v /= scale[j]
			}
			return v
		}
	case KindMinMaxScaler:
		if len(s.Min) != s.Features {
			return nil, fmt.Errorf("scaler min has %d values, want %d", len(s.Min), s.Features)
		}
		s.apply = func(j int, v float64) float64 {
			return v*s.Scale[j] + s.Min[j]
		}
	default:
		return nil, fmt.Errorf("unknown scaler kind: %s", s.Kind)
	}
	return &s, nil
}

func (s *Scaler) NumFeatures() int {
	return s.Features
}

// Transform returns a scaled copy of X; X itself is left untouched.
func (s *Scaler) Transform(X mat.Matrix) (*mat.Dense, error) {
	_, c := X.Dims()
	if c != s.Features {
		return nil, fmt.Errorf("scaler expects %d features, got %d", s.Features, c)
	}
	out := mat.DenseCopyOf(X)
	out.Apply(func(_, j int, v float64) float64 {
		return s.apply(j, v)
	}, out)
	return out, nil
}
