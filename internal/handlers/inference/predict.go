package inference

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"classifier-api/internal/metrics"
	"classifier-api/internal/models"
	"classifier-api/internal/shared"

	"gonum.org/v1/gonum/mat"
)

// Predict resolves modelName, aligns the batch and classifies every row.
// Alignment errors are returned unchanged; failures inside the model come
// back as *InferenceError.
func (ih *InferenceHandler) Predict(ctx context.Context, modelName string, batch []map[string]any) (*shared.PredictionResponse, error) {
	start := time.Now()
	resp, err := ih.predict(ctx, modelName, batch)
	label := ih.metricLabel(modelName)
	if err != nil {
		metrics.ErrorCount.WithLabelValues(label, ErrorKind(err)).Inc()
		metrics.RequestCount.WithLabelValues(label, "error").Inc()
		return nil, err
	}
	metrics.PredictionDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	metrics.BatchSize.WithLabelValues(label).Observe(float64(len(batch)))
	metrics.RequestCount.WithLabelValues(label, "success").Inc()
	for _, p := range resp.Predictions {
		metrics.Predictions.WithLabelValues(label, strconv.Itoa(p.PredictedClass)).Inc()
	}
	return resp, nil
}

// metricLabel keeps label cardinality bounded by the registered names.
func (ih *InferenceHandler) metricLabel(modelName string) string {
	entry, err := ih.Registry.GetModel(modelName)
	if err != nil {
		return "unknown"
	}
	return entry.Name
}

func (ih *InferenceHandler) predict(ctx context.Context, modelName string, batch []map[string]any) (*shared.PredictionResponse, error) {
	entry, err := ih.Registry.GetModel(modelName)
	if err != nil {
		return nil, err
	}
	X, err := ih.Aligner.Align(batch, ih.Registry.GetScaler())
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	labels, proba, err := run(entry.Model, X)
	if err != nil {
		return nil, &InferenceError{Model: entry.Name, Err: err}
	}
	rows, _ := X.Dims()
	if len(labels) != rows {
		return nil, &InferenceError{Model: entry.Name, Err: fmt.Errorf("model returned %d labels for %d rows", len(labels), rows)}
	}
	if proba != nil {
		if r, _ := proba.Dims(); r != rows {
			return nil, &InferenceError{Model: entry.Name, Err: fmt.Errorf("model returned %d probability rows for %d rows", r, rows)}
		}
	}

	out := make([]shared.PredictionResult, rows)
	for i := range out {
		out[i] = shared.PredictionResult{InputIndex: i, PredictedClass: labels[i]}
		if proba != nil {
			out[i].Probabilities = mat.Row(nil, i, proba)
		}
	}
	return &shared.PredictionResponse{Predictions: out}, nil
}

// run calls into the model, turning a panic into an error.
func run(m *models.Model, X *mat.Dense) (labels []int, proba *mat.Dense, err error) {
	defer func() {
		if r := recover(); r != nil {
			labels, proba, err = nil, nil, fmt.Errorf("model panicked: %v", r)
		}
	}()
	labels, err = m.Predict(X)
	if err != nil {
		return nil, nil, err
	}
	if m.Capability() == models.ClassifierWithProbabilities {
		proba, err = m.PredictProba(X)
		if err != nil {
			return nil, nil, err
		}
	}
	return labels, proba, nil
}

// ListModels describes every registered model in name order.
func (ih *InferenceHandler) ListModels() []shared.ModelInfo {
	entries := ih.Registry.Entries()
	out := make([]shared.ModelInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, shared.ModelInfo{
			Name:          e.Name,
			Kind:          e.Model.Kind(),
			Capability:    e.Model.Capability().String(),
			Probabilities: e.Model.Capability() == models.ClassifierWithProbabilities,
			Classes:       e.Model.Classes(),
			NumFeatures:   e.Model.NumFeatures(),
		})
	}
	return out
}
