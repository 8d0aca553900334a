package models

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const KindLogisticRegression = "logistic_regression"

// LogisticRegression holds a fitted linear model. Binary models carry a single
// coefficient row; multiclass models carry one row per class.
type LogisticRegression struct {
	base
	Coef       [][]float64 `json:"coef"`
	Intercept  []float64   `json:"intercept"`
	MultiClass string      `json:"multi_class"`

	coef *mat.Dense
}

func decodeLogistic(data []byte) (*LogisticRegression, error) {
	var m LogisticRegression
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if err := m.base.validate(); err != nil {
		return nil, err
	}
	rows := len(m.ClassLabels)
	if rows == 2 {
		rows = 1
	}
	if len(m.Coef) != rows {
		return nil, fmt.Errorf("coef has %d rows, want %d", len(m.Coef), rows)
	}
	if len(m.Intercept) != rows {
		return nil, fmt.Errorf("intercept has %d entries, want %d", len(m.Intercept), rows)
	}
	flat := make([]float64, 0, rows*m.Features)
	for i, row := range m.Coef {
		if len(row) != m.Features {
			return nil, fmt.Errorf("coef row %d has %d values, want %d", i, len(row), m.Features)
		}
		flat = append(flat, row...)
	}
	switch m.MultiClass {
	case "", "multinomial", "ovr":
	default:
		return nil, fmt.Errorf("unsupported multi_class %q", m.MultiClass)
	}
	m.coef = mat.NewDense(rows, m.Features, flat)
	return &m, nil
}

func (m *LogisticRegression) Kind() string {
	return KindLogisticRegression
}

// decision returns X·coefᵀ + intercept.
func (m *LogisticRegression) decision(X mat.Matrix) (*mat.Dense, error) {
	if err := m.checkInput(X); err != nil {
		return nil, err
	}
	var d mat.Dense
	d.Mul(X, m.coef.T())
	r, c := d.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			d.Set(i, j, d.At(i, j)+m.Intercept[j])
		}
	}
	return &d, nil
}

func (m *LogisticRegression) Predict(X mat.Matrix) ([]int, error) {
	d, err := m.decision(X)
	if err != nil {
		return nil, err
	}
	r, c := d.Dims()
	if c == 1 {
		out := make([]int, r)
		for i := 0; i < r; i++ {
			if d.At(i, 0) > 0 {
				out[i] = m.ClassLabels[1]
			} else {
				out[i] = m.ClassLabels[0]
			}
		}
		return out, nil
	}
	return argmaxLabels(d, m.ClassLabels), nil
}

func (m *LogisticRegression) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	d, err := m.decision(X)
	if err != nil {
		return nil, err
	}
	r, c := d.Dims()
	out := mat.NewDense(r, len(m.ClassLabels), nil)
	for i := 0; i < r; i++ {
		switch {
		case c == 1:
			p := sigmoid(d.At(i, 0))
			out.Set(i, 0, 1-p)
			out.Set(i, 1, p)
		case m.MultiClass == "ovr":
			row := make([]float64, c)
			for j := range row {
				row[j] = sigmoid(d.At(i, j))
			}
			normalize(row)
			out.SetRow(i, row)
		default:
			out.SetRow(i, softmax(mat.Row(nil, i, d)))
		}
	}
	return out, nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func softmax(z []float64) []float64 {
	out := make([]float64, len(z))
	maxZ := floats.Max(z)
	for i, v := range z {
		out[i] = math.Exp(v - maxZ)
	}
	normalize(out)
	return out
}

// normalize scales v in place to sum to one. An all-zero row becomes uniform.
func normalize(v []float64) {
	sum := floats.Sum(v)
	if sum == 0 {
		for i := range v {
			v[i] = 1 / float64(len(v))
		}
		return
	}
	floats.Scale(1/sum, v)
}
