// Package inference runs a named model over an aligned batch and assembles
// the per-sample results.
package inference

import (
	"classifier-api/internal/features"
	"classifier-api/internal/registry"

	"go.uber.org/zap"
)

type InferenceHandler struct {
	Registry *registry.Registry
	Aligner  *features.Aligner
	Log      *zap.SugaredLogger
}

func NewInferenceHandler(reg *registry.Registry, aligner *features.Aligner, log *zap.SugaredLogger) *InferenceHandler {
	if aligner == nil {
		aligner = features.NewAligner(features.IgnoreUnknown)
	}
	return &InferenceHandler{
		Registry: reg,
		Aligner:  aligner,
		Log:      log,
	}
}
