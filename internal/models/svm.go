package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const KindSVM = "svm"

// SVC is a fitted support vector classifier in libsvm layout: support vectors
// grouped by class, DualCoef with n_classes-1 rows and one intercept per
// class pair (one-vs-one). A positive pair decision votes for the first class
// of the pair.
type SVC struct {
	base
	SupportVectors [][]float64 `json:"support_vectors"`
	NSupport       []int       `json:"n_support"`
	DualCoef       [][]float64 `json:"dual_coef"`
	Intercept      []float64   `json:"intercept"`
	Kernel         string      `json:"kernel"`
	Gamma          float64     `json:"gamma"`
	Coef0          float64     `json:"coef0"`
	Degree         int         `json:"degree"`
	ProbA          []float64   `json:"prob_a,omitempty"`
	ProbB          []float64   `json:"prob_b,omitempty"`

	start  []int
	kernel func(u, v []float64) float64
}

// PlattSVC is a binary SVC fitted with probability calibration.
type PlattSVC struct {
	*SVC
}

func decodeSVM(data []byte) (Classifier, error) {
	var m SVC
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if err := m.init(); err != nil {
		return nil, err
	}
	if len(m.ProbA) == 0 && len(m.ProbB) == 0 {
		return &m, nil
	}
	if len(m.ClassLabels) != 2 {
		return nil, errors.New("probability calibration is only supported for binary models")
	}
	if len(m.ProbA) != 1 || len(m.ProbB) != 1 {
		return nil, errors.New("binary model needs exactly one prob_a and prob_b")
	}
	return &PlattSVC{SVC: &m}, nil
}

func (m *SVC) init() error {
	if err := m.base.validate(); err != nil {
		return err
	}
	k := len(m.ClassLabels)
	if len(m.NSupport) != k {
		return fmt.Errorf("n_support has %d entries, want %d", len(m.NSupport), k)
	}
	total := 0
	m.start = make([]int, k)
	for i, n := range m.NSupport {
		if n < 0 {
			return fmt.Errorf("n_support[%d] is negative", i)
		}
		m.start[i] = total
		total += n
	}
	if len(m.SupportVectors) != total {
		return fmt.Errorf("got %d support vectors, n_support sums to %d", len(m.SupportVectors), total)
	}
	for i, sv := range m.SupportVectors {
		if len(sv) != m.Features {
			return fmt.Errorf("support vector %d has %d values, want %d", i, len(sv), m.Features)
		}
	}
	if len(m.DualCoef) != k-1 {
		return fmt.Errorf("dual_coef has %d rows, want %d", len(m.DualCoef), k-1)
	}
	for i, row := range m.DualCoef {
		if len(row) != total {
			return fmt.Errorf("dual_coef row %d has %d values, want %d", i, len(row), total)
		}
	}
	if pairs := k * (k - 1) / 2; len(m.Intercept) != pairs {
		return fmt.Errorf("intercept has %d entries, want %d", len(m.Intercept), pairs)
	}
	if m.Degree == 0 {
		m.Degree = 3
	}
	switch m.Kernel {
	case "linear":
		m.kernel = floats.Dot
	case "", "rbf":
		m.Kernel = "rbf"
		m.kernel = func(u, v []float64) float64 {
			d := floats.Distance(u, v, 2)
			return math.Exp(-m.Gamma * d * d)
		}
	case "poly":
		m.kernel = func(u, v []float64) float64 {
			return math.Pow(m.Gamma*floats.Dot(u, v)+m.Coef0, float64(m.Degree))
		}
	case "sigmoid":
		m.kernel = func(u, v []float64) float64 {
			return math.Tanh(m.Gamma*floats.Dot(u, v) + m.Coef0)
		}
	default:
		return fmt.Errorf("unsupported kernel %q", m.Kernel)
	}
	return nil
}

func (m *SVC) Kind() string {
	return KindSVM
}

// decisions returns the one-vs-one decision values for x, pairs ordered
// (0,1), (0,2), ..., (1,2), ...
func (m *SVC) decisions(x []float64) []float64 {
	kv := make([]float64, len(m.SupportVectors))
	for i, sv := range m.SupportVectors {
		kv[i] = m.kernel(sv, x)
	}
	k := len(m.ClassLabels)
	out := make([]float64, 0, k*(k-1)/2)
	p := 0
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			sum := 0.0
			si, sj := m.start[i], m.start[j]
			ci, cj := m.NSupport[i], m.NSupport[j]
			for s := 0; s < ci; s++ {
				sum += m.DualCoef[j-1][si+s] * kv[si+s]
			}
			for s := 0; s < cj; s++ {
				sum += m.DualCoef[i][sj+s] * kv[sj+s]
			}
			out = append(out, sum+m.Intercept[p])
			p++
		}
	}
	return out
}

func (m *SVC) Predict(X mat.Matrix) ([]int, error) {
	if err := m.checkInput(X); err != nil {
		return nil, err
	}
	r, _ := X.Dims()
	k := len(m.ClassLabels)
	out := make([]int, r)
	for row := 0; row < r; row++ {
		dec := m.decisions(mat.Row(nil, row, X))
		votes := make([]int, k)
		p := 0
		for i := 0; i < k; i++ {
			for j := i + 1; j < k; j++ {
				if dec[p] > 0 {
					votes[i]++
				} else {
					votes[j]++
				}
				p++
			}
		}
		best := 0
		for c := 1; c < k; c++ {
			if votes[c] > votes[best] {
				best = c
			}
		}
		out[row] = m.ClassLabels[best]
	}
	return out, nil
}

// PredictProba applies Platt scaling to the binary decision value.
func (m *PlattSVC) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	if err := m.checkInput(X); err != nil {
		return nil, err
	}
	r, _ := X.Dims()
	out := mat.NewDense(r, 2, nil)
	for i := 0; i < r; i++ {
		dec := m.decisions(mat.Row(nil, i, X))[0]
		p := plattProbability(dec, m.ProbA[0], m.ProbB[0])
		out.Set(i, 0, p)
		out.Set(i, 1, 1-p)
	}
	return out, nil
}

// plattProbability is libsvm's sigmoid_predict, computed without overflow.
func plattProbability(dec, a, b float64) float64 {
	fApB := dec*a + b
	if fApB >= 0 {
		return math.Exp(-fApB) / (1 + math.Exp(-fApB))
	}
	return 1 / (1 + math.Exp(fApB))
}
