package registry

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

// Manifest lists the artifacts a registry is loaded from.
//
//	scaler: assets/scaler.json
//	models:
//	  logistic: assets/logistic.json
//	  svm: s3://models/svm.json
type Manifest struct {
	Scaler string            `yaml:"scaler"`
	Models map[string]string `yaml:"models"`
}

// DefaultManifest is the stock model set under dir.
func DefaultManifest(dir string) *Manifest {
	return &Manifest{
		Scaler: filepath.Join(dir, "scaler.json"),
		Models: map[string]string{
			"logistic":      filepath.Join(dir, "logistic.json"),
			"knn":           filepath.Join(dir, "knn.json"),
			"random_forest": filepath.Join(dir, "random_forest.json"),
			"svm":           filepath.Join(dir, "svm.json"),
		},
	}
}

// ParseManifest decodes a YAML manifest. Relative local paths are resolved
// against baseDir.
func ParseManifest(data []byte, baseDir string) (*Manifest, error) {
	var m Manifest
	if err := yaml.UnmarshalStrict(data, &m); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	if m.Scaler == "" {
		return nil, errors.New("manifest has no scaler")
	}
	if len(m.Models) == 0 {
		return nil, errors.New("manifest lists no models")
	}
	m.Scaler = resolve(baseDir, m.Scaler)
	for name, loc := range m.Models {
		if strings.TrimSpace(name) == "" {
			return nil, errors.New("manifest has a model with an empty name")
		}
		m.Models[name] = resolve(baseDir, loc)
	}
	return &m, nil
}

// LoadManifest fetches and parses a manifest through src.
func LoadManifest(ctx context.Context, src Source, location string) (*Manifest, error) {
	data, err := src.Fetch(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed reading manifest %s: %w", location, err)
	}
	baseDir := ""
	if !strings.HasPrefix(location, s3Scheme) {
		baseDir = filepath.Dir(location)
	}
	return ParseManifest(data, baseDir)
}

func resolve(baseDir, loc string) string {
	if baseDir == "" || strings.HasPrefix(loc, s3Scheme) || filepath.IsAbs(loc) {
		return loc
	}
	return filepath.Join(baseDir, loc)
}
