package features

import (
	"fmt"
	"strings"
)

// EmptyBatchError is returned when a request carries no records.
type EmptyBatchError struct{}

func (e *EmptyBatchError) Error() string {
	return "inputs must contain at least one sample"
}

// MissingFeatureError names the schema fields absent from one record.
type MissingFeatureError struct {
	Index  int
	Fields []string
}

func (e *MissingFeatureError) Error() string {
	return fmt.Sprintf("input %d is missing required features: %s", e.Index, strings.Join(e.Fields, ", "))
}

// UnknownFeatureError names fields outside the schema when the reject policy
// is active.
type UnknownFeatureError struct {
	Index  int
	Fields []string
}

func (e *UnknownFeatureError) Error() string {
	return fmt.Sprintf("input %d has unknown features: %s", e.Index, strings.Join(e.Fields, ", "))
}

// TypeMismatchError is returned for a feature value that is not a finite number.
type TypeMismatchError struct {
	Index int
	Field string
	Value any
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("input %d: feature %q must be a number, got %s", e.Index, e.Field, describe(e.Value))
}

// ScalingError means the aligned matrix and the fitted scaler disagree on
// width. It points at an artifact/schema mismatch, not at the caller.
type ScalingError struct {
	Got  int
	Want int
	Err  error
}

func (e *ScalingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("scaling failed: %v", e.Err)
	}
	return fmt.Sprintf("scaler expects %d features, aligned matrix has %d", e.Want, e.Got)
}

func (e *ScalingError) Unwrap() error {
	return e.Err
}

func describe(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return fmt.Sprintf("string %q", t)
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return fmt.Sprintf("%v", t)
	}
}
