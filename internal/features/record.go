package features

import (
	"errors"
	"math"
	"sort"

	"github.com/spf13/cast"
	"gonum.org/v1/gonum/mat"
)

// Record is one validated sample with every schema field present.
type Record struct {
	PerimeterMean            float64 `json:"perimeter_mean"`
	AreaMean                 float64 `json:"area_mean"`
	ConcavityMean            float64 `json:"concavity_mean"`
	ConcavePointsMean        float64 `json:"concave points_mean"`
	RadiusWorst              float64 `json:"radius_worst"`
	TextureWorst             float64 `json:"texture_worst"`
	PerimeterWorst           float64 `json:"perimeter_worst"`
	AreaWorst                float64 `json:"area_worst"`
	ConcavePointsWorst       float64 `json:"concave points_worst"`
	RadiusTextureInteraction float64 `json:"radius_texture_interaction"`
}

func (r *Record) slots() [NumFeatures]*float64 {
	return [NumFeatures]*float64{
		&r.PerimeterMean,
		&r.AreaMean,
		&r.ConcavityMean,
		&r.ConcavePointsMean,
		&r.RadiusWorst,
		&r.TextureWorst,
		&r.PerimeterWorst,
		&r.AreaWorst,
		&r.ConcavePointsWorst,
		&r.RadiusTextureInteraction,
	}
}

// Vector returns the record's values in canonical order.
func (r Record) Vector() []float64 {
	out := make([]float64, NumFeatures)
	for i, p := range r.slots() {
		out[i] = *p
	}
	return out
}

// Transformer is the fitted scaler as seen by the aligner.
type Transformer interface {
	NumFeatures() int
	Transform(X mat.Matrix) (*mat.Dense, error)
}

// Aligner validates raw records against the schema and builds the model
// input matrix. It holds no per-request state and is safe for concurrent use.
type Aligner struct {
	Unknown UnknownPolicy
}

func NewAligner(policy UnknownPolicy) *Aligner {
	return &Aligner{Unknown: policy}
}

// Records validates every raw record and returns them as typed Records, in
// batch order. The first offending record determines the error.
func (a *Aligner) Records(batch []map[string]any) ([]Record, error) {
	if len(batch) == 0 {
		return nil, &EmptyBatchError{}
	}
	records := make([]Record, len(batch))
	for i, raw := range batch {
		rec, err := a.record(i, raw)
		if err != nil {
			return nil, err
		}
		records[i] = rec
	}
	return records, nil
}

func (a *Aligner) record(idx int, raw map[string]any) (Record, error) {
	normalized := make(map[string]any, len(raw))
	for key, val := range raw {
		name := NormalizeKey(key)
		if name != key {
			// an explicit canonical key takes precedence over its alias
			if _, dup := raw[name]; dup {
				continue
			}
		}
		normalized[name] = val
	}

	var missing []string
	for _, name := range canonical {
		if _, ok := normalized[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return Record{}, &MissingFeatureError{Index: idx, Fields: missing}
	}

	if a.Unknown == RejectUnknown {
		var unknown []string
		for key := range raw {
			if !IsCanonical(NormalizeKey(key)) {
				unknown = append(unknown, key)
			}
		}
		if len(unknown) > 0 {
			sort.Strings(unknown)
			return Record{}, &UnknownFeatureError{Index: idx, Fields: unknown}
		}
	}

	var rec Record
	slots := rec.slots()
	for i, name := range canonical {
		v := normalized[name]
		f, ok := toFloat(v)
		if !ok {
			return Record{}, &TypeMismatchError{Index: idx, Field: name, Value: v}
		}
		*slots[i] = f
	}
	return rec, nil
}

// Matrix stacks records into an (n x NumFeatures) matrix, canonical column order.
func Matrix(records []Record) *mat.Dense {
	data := make([]float64, 0, len(records)*NumFeatures)
	for _, rec := range records {
		data = append(data, rec.Vector()...)
	}
	return mat.NewDense(len(records), NumFeatures, data)
}

// Align runs the full validation, projection and scaling pipeline.
func (a *Aligner) Align(batch []map[string]any, scaler Transformer) (*mat.Dense, error) {
	records, err := a.Records(batch)
	if err != nil {
		return nil, err
	}
	X := Matrix(records)
	if want := scaler.NumFeatures(); want != NumFeatures {
		return nil, &ScalingError{Got: NumFeatures, Want: want}
	}
	scaled, err := scaler.Transform(X)
	if err != nil {
		var serr *ScalingError
		if errors.As(err, &serr) {
			return nil, serr
		}
		return nil, &ScalingError{Got: NumFeatures, Want: scaler.NumFeatures(), Err: err}
	}
	return scaled, nil
}

func toFloat(v any) (float64, bool) {
	switch v.(type) {
	case nil, bool, map[string]any, []any:
		return 0, false
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
