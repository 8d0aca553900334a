// Package features owns the training-time feature schema and turns request
// records into the dense, scaled matrix the classifiers were fitted on.
package features

import (
	"fmt"
	"strings"
)

// Canonical feature names, exactly as the scaler and models were fitted.
// Two of them carry a space rather than an underscore.
const (
	PerimeterMean            = "perimeter_mean"
	AreaMean                 = "area_mean"
	ConcavityMean            = "concavity_mean"
	ConcavePointsMean        = "concave points_mean"
	RadiusWorst              = "radius_worst"
	TextureWorst             = "texture_worst"
	PerimeterWorst           = "perimeter_worst"
	AreaWorst                = "area_worst"
	ConcavePointsWorst       = "concave points_worst"
	RadiusTextureInteraction = "radius_texture_interaction"
)

// NumFeatures is the width of every aligned row.
const NumFeatures = 10

var canonical = [NumFeatures]string{
	PerimeterMean,
	AreaMean,
	ConcavityMean,
	ConcavePointsMean,
	RadiusWorst,
	TextureWorst,
	PerimeterWorst,
	AreaWorst,
	ConcavePointsWorst,
	RadiusTextureInteraction,
}

var canonicalIndex = func() map[string]int {
	m := make(map[string]int, NumFeatures)
	for i, name := range canonical {
		m[name] = i
	}
	return m
}()

// aliases maps the underscore spelling clients tend to send onto the
// canonical spelling. Only these exact keys are renamed.
var aliases = map[string]string{
	"concave_points_mean":  ConcavePointsMean,
	"concave_points_worst": ConcavePointsWorst,
}

// Names returns the canonical feature names in model input order.
func Names() []string {
	out := make([]string, NumFeatures)
	copy(out, canonical[:])
	return out
}

// NormalizeKey rewrites the underscore variant of a "concave points" field to
// its canonical form and returns every other key untouched.
func NormalizeKey(key string) string {
	if name, ok := aliases[key]; ok {
		return name
	}
	return key
}

// IsCanonical reports whether name is one of the schema's features.
func IsCanonical(name string) bool {
	_, ok := canonicalIndex[name]
	return ok
}

// UnknownPolicy decides what happens to fields outside the schema.
type UnknownPolicy int

const (
	// IgnoreUnknown drops extra fields; only the schema columns are selected.
	IgnoreUnknown UnknownPolicy = iota
	// RejectUnknown fails the batch with an UnknownFeatureError.
	RejectUnknown
)

func (p UnknownPolicy) String() string {
	switch p {
	case RejectUnknown:
		return "reject"
	default:
		return "ignore"
	}
}

// ParseUnknownPolicy accepts "ignore" (or empty) and "reject".
func ParseUnknownPolicy(s string) (UnknownPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ignore":
		return IgnoreUnknown, nil
	case "reject":
		return RejectUnknown, nil
	default:
		return IgnoreUnknown, fmt.Errorf("unknown feature policy %q, expected ignore or reject", s)
	}
}
