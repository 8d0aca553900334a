package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const KindKNN = "knn"

// KNN is a fitted k-nearest-neighbours classifier: the stored training
// points, their labels and the vote settings.
type KNN struct {
	base
	FitX      [][]float64 `json:"fit_x"`
	FitY      []int       `json:"fit_y"`
	Neighbors int         `json:"n_neighbors"`
	Weights   string      `json:"weights"`
	P         float64     `json:"p"`

	labelIdx []int
}

func decodeKNN(data []byte) (*KNN, error) {
	var m KNN
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if err := m.base.validate(); err != nil {
		return nil, err
	}
	if len(m.FitX) == 0 {
		return nil, errors.New("fit_x is empty")
	}
	if len(m.FitX) != len(m.FitY) {
		return nil, fmt.Errorf("fit_x has %d rows but fit_y has %d", len(m.FitX), len(m.FitY))
	}
	if m.Neighbors <= 0 {
		m.Neighbors = 5
	}
	if m.Neighbors > len(m.FitX) {
		return nil, fmt.Errorf("n_neighbors %d exceeds %d stored samples", m.Neighbors, len(m.FitX))
	}
	switch m.Weights {
	case "":
		m.Weights = "uniform"
	case "uniform", "distance":
	default:
		return nil, fmt.Errorf("unsupported weights %q", m.Weights)
	}
	if m.P == 0 {
		m.P = 2
	}
	if m.P < 1 {
		return nil, fmt.Errorf("minkowski p must be >= 1, got %v", m.P)
	}
	idx := m.classIndex()
	m.labelIdx = make([]int, len(m.FitY))
	for i, y := range m.FitY {
		ci, ok := idx[y]
		if !ok {
			return nil, fmt.Errorf("fit_y[%d] = %d is not a known class", i, y)
		}
		m.labelIdx[i] = ci
		if len(m.FitX[i]) != m.Features {
			return nil, fmt.Errorf("fit_x row %d has %d values, want %d", i, len(m.FitX[i]), m.Features)
		}
	}
	return &m, nil
}

func (m *KNN) Kind() string {
	return KindKNN
}

type neighbor struct {
	idx  int
	dist float64
}

// nearest returns the k closest stored samples, ties broken by storage order.
func (m *KNN) nearest(x []float64) []neighbor {
	all := make([]neighbor, len(m.FitX))
	for i, row := range m.FitX {
		all[i] = neighbor{idx: i, dist: floats.Distance(x, row, m.P)}
	}
	sort.SliceStable(all, func(a, b int) bool {
		return all[a].dist < all[b].dist
	})
	return all[:m.Neighbors]
}

func (m *KNN) votes(x []float64) []float64 {
	v := make([]float64, len(m.ClassLabels))
	nn := m.nearest(x)
	if m.Weights == "distance" {
		// exact matches take all of the weight
		exact := false
		for _, n := range nn {
			if n.dist == 0 {
				exact = true
				v[m.labelIdx[n.idx]]++
			}
		}
		if exact {
			return v
		}
		for _, n := range nn {
			v[m.labelIdx[n.idx]] += 1 / n.dist
		}
		return v
	}
	for _, n := range nn {
		v[m.labelIdx[n.idx]]++
	}
	return v
}

func (m *KNN) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	if err := m.checkInput(X); err != nil {
		return nil, err
	}
	r, _ := X.Dims()
	out := mat.NewDense(r, len(m.ClassLabels), nil)
	for i := 0; i < r; i++ {
		v := m.votes(mat.Row(nil, i, X))
		normalize(v)
		out.SetRow(i, v)
	}
	return out, nil
}

func (m *KNN) Predict(X mat.Matrix) ([]int, error) {
	p, err := m.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return argmaxLabels(p, m.ClassLabels), nil
}
