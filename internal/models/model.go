// Package models decodes fitted classifier and scaler artifacts and runs them.
//
// Artifacts are JSON documents with a "kind" tag selecting the decoder. The
// training side exports fitted parameters only; nothing here fits a model.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Classifier produces one class label per input row.
type Classifier interface {
	Kind() string
	Classes() []int
	NumFeatures() int
	Predict(X mat.Matrix) ([]int, error)
}

// ProbabilityEstimator produces one probability row per input row, columns
// ordered like Classes().
type ProbabilityEstimator interface {
	PredictProba(X mat.Matrix) (*mat.Dense, error)
}

// Capability is fixed when the artifact is decoded and never re-inspected.
type Capability int

const (
	ClassifierOnly Capability = iota
	ClassifierWithProbabilities
)

func (c Capability) String() string {
	if c == ClassifierWithProbabilities {
		return "classifier_with_probabilities"
	}
	return "classifier_only"
}

// Model wraps a decoded classifier with its probability capability.
type Model struct {
	Classifier
	capability Capability
	proba      ProbabilityEstimator
}

// NewModel tags c with its capability.
func NewModel(c Classifier) *Model {
	m := &Model{Classifier: c, capability: ClassifierOnly}
	if p, ok := c.(ProbabilityEstimator); ok {
		m.capability = ClassifierWithProbabilities
		m.proba = p
	}
	return m
}

func (m *Model) Capability() Capability {
	return m.capability
}

// PredictProba fails for classifier-only models.
func (m *Model) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	if m.proba == nil {
		return nil, fmt.Errorf("%s does not support probability estimates", m.Kind())
	}
	return m.proba.PredictProba(X)
}

// Decoder builds a classifier from an artifact payload.
type Decoder func(data []byte) (Classifier, error)

var decoders = map[string]Decoder{
	KindLogisticRegression: func(d []byte) (Classifier, error) { return decodeLogistic(d) },
	KindKNN:                func(d []byte) (Classifier, error) { return decodeKNN(d) },
	KindDecisionTree:       func(d []byte) (Classifier, error) { return decodeDecisionTree(d) },
	KindRandomForest:       func(d []byte) (Classifier, error) { return decodeForest(d) },
	KindSVM:                decodeSVM,
}

// Kinds lists the classifier kinds this build can decode.
func Kinds() []string {
	out := make([]string, 0, len(decoders))
	for k := range decoders {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type envelope struct {
	Kind string `json:"kind"`
}

// Decode reads the kind tag and hands the payload to the matching decoder.
func Decode(data []byte) (*Model, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("invalid artifact: %w", err)
	}
	if env.Kind == "" {
		return nil, errors.New("artifact has no kind")
	}
	dec, ok := decoders[env.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown classifier kind: %s", env.Kind)
	}
	c, err := dec(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", env.Kind, err)
	}
	return NewModel(c), nil
}

// base carries the fields every classifier artifact shares.
type base struct {
	ClassLabels []int `json:"classes"`
	Features    int   `json:"n_features_in"`
}

func (b *base) Classes() []int {
	out := make([]int, len(b.ClassLabels))
	copy(out, b.ClassLabels)
	return out
}

func (b *base) NumFeatures() int {
	return b.Features
}

func (b *base) validate() error {
	if len(b.ClassLabels) < 2 {
		return fmt.Errorf("need at least 2 classes, got %d", len(b.ClassLabels))
	}
	seen := make(map[int]struct{}, len(b.ClassLabels))
	for _, c := range b.ClassLabels {
		if _, dup := seen[c]; dup {
			return fmt.Errorf("duplicate class label %d", c)
		}
		seen[c] = struct{}{}
	}
	if b.Features <= 0 {
		return errors.New("n_features_in must be positive")
	}
	return nil
}

func (b *base) checkInput(X mat.Matrix) error {
	_, c := X.Dims()
	if c != b.Features {
		return fmt.Errorf("model expects %d features, got %d", b.Features, c)
	}
	return nil
}

func (b *base) classIndex() map[int]int {
	idx := make(map[int]int, len(b.ClassLabels))
	for i, c := range b.ClassLabels {
		idx[c] = i
	}
	return idx
}

// argmaxLabels maps each row of scores to the label of its largest column.
// Ties resolve to the first column.
func argmaxLabels(scores mat.Matrix, labels []int) []int {
	r, c := scores.Dims()
	out := make([]int, r)
	for i := 0; i < r; i++ {
		best := 0
		for j := 1; j < c; j++ {
			if scores.At(i, j) > scores.At(i, best) {
				best = j
			}
		}
		out[i] = labels[best]
	}
	return out
}
