// Package registry loads the fitted models and the shared scaler once at
// startup and serves them read-only afterwards.
package registry

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"classifier-api/internal/features"
	"classifier-api/internal/models"

	"github.com/manifold-inc/manifold-sdk/lib/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RegistryLoadError is fatal: the service must not start without every artifact.
type RegistryLoadError struct {
	Location string
	Err      error
}

func (e *RegistryLoadError) Error() string {
	return fmt.Sprintf("failed loading artifact %s: %v", e.Location, e.Err)
}

func (e *RegistryLoadError) Unwrap() error {
	return e.Err
}

// ModelNotFoundError lists the names that would have resolved.
type ModelNotFoundError struct {
	Name      string
	Available []string
}

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("model %q not found, available models: %s", e.Name, strings.Join(e.Available, ", "))
}

// Entry is one registered model under its configured name.
type Entry struct {
	Name  string
	Model *models.Model
}

// Registry is immutable once built and safe to share across goroutines.
type Registry struct {
	entries map[string]Entry
	names   []string
	scaler  *models.Scaler
}

// New builds a registry from already decoded artifacts. Names are matched
// case-insensitively, so two names differing only in case are rejected.
func New(scaler *models.Scaler, named map[string]*models.Model) (*Registry, error) {
	if scaler == nil {
		return nil, &RegistryLoadError{Location: "scaler", Err: fmt.Errorf("no scaler")}
	}
	if len(named) == 0 {
		return nil, &RegistryLoadError{Location: "models", Err: fmt.Errorf("no models")}
	}
	r := &Registry{
		entries: make(map[string]Entry, len(named)),
		scaler:  scaler,
	}
	for name, m := range named {
		key := strings.ToLower(name)
		if prev, dup := r.entries[key]; dup {
			return nil, &RegistryLoadError{Location: name, Err: fmt.Errorf("name collides with %q", prev.Name)}
		}
		r.entries[key] = Entry{Name: name, Model: m}
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r, nil
}

// LoadRegistry fetches and decodes the scaler and every model concurrently.
// Any failure aborts the whole load; a partial registry is never returned.
func LoadRegistry(ctx context.Context, log *zap.SugaredLogger, src Source, artifactPaths map[string]string, scalerPath string) (*Registry, error) {
	var (
		mu     sync.Mutex
		named  = make(map[string]*models.Model, len(artifactPaths))
		scaler *models.Scaler
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := src.Fetch(gctx, scalerPath)
		if err != nil {
			return &RegistryLoadError{Location: scalerPath, Err: utils.Wrap("failed reading scaler", err)}
		}
		s, err := models.DecodeScaler(data)
		if err != nil {
			return &RegistryLoadError{Location: scalerPath, Err: err}
		}
		scaler = s
		return nil
	})
	for name, loc := range artifactPaths {
		g.Go(func() error {
			data, err := src.Fetch(gctx, loc)
			if err != nil {
				return &RegistryLoadError{Location: loc, Err: utils.Wrap("failed reading model "+name, err)}
			}
			m, err := models.Decode(data)
			if err != nil {
				return &RegistryLoadError{Location: loc, Err: err}
			}
			mu.Lock()
			named[name] = m
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := checkScalerSchema(scaler); err != nil {
		return nil, &RegistryLoadError{Location: scalerPath, Err: err}
	}
	r, err := New(scaler, named)
	if err != nil {
		return nil, err
	}
	r.warnMismatches(log)
	return r, nil
}

// checkScalerSchema rejects a 10-wide scaler whose recorded column names
// disagree with the canonical order. Width mismatches surface per request.
func checkScalerSchema(s *models.Scaler) error {
	if len(s.FeatureNames) == 0 || s.Features != features.NumFeatures {
		return nil
	}
	if !slices.Equal(s.FeatureNames, features.Names()) {
		return fmt.Errorf("scaler was fitted on columns %v, expected %v", s.FeatureNames, features.Names())
	}
	return nil
}

func (r *Registry) warnMismatches(log *zap.SugaredLogger) {
	if log == nil {
		return
	}
	if w := r.scaler.NumFeatures(); w != features.NumFeatures {
		log.Warnw("Scaler width differs from feature schema", "scaler_features", w, "schema_features", features.NumFeatures)
	}
	for _, name := range r.names {
		e := r.entries[strings.ToLower(name)]
		if w := e.Model.NumFeatures(); w != r.scaler.NumFeatures() {
			log.Warnw("Model width differs from scaler", "model", name, "model_features", w, "scaler_features", r.scaler.NumFeatures())
		}
	}
	log.Infow("Registry loaded", "models", r.names)
}

// GetModel resolves name case-insensitively.
func (r *Registry) GetModel(name string) (Entry, error) {
	e, ok := r.entries[strings.ToLower(name)]
	if !ok {
		return Entry{}, &ModelNotFoundError{Name: name, Available: r.Names()}
	}
	return e, nil
}

func (r *Registry) GetScaler() *models.Scaler {
	return r.scaler
}

// Names returns the registered model names, sorted.
func (r *Registry) Names() []string {
	return slices.Clone(r.names)
}

// Entries returns every registered model in name order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.entries[strings.ToLower(name)])
	}
	return out
}
