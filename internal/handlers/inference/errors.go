package inference

import (
	"errors"
	"fmt"

	"classifier-api/internal/features"
	"classifier-api/internal/registry"
	"classifier-api/internal/shared"
)

// InferenceError wraps a failure raised by the model itself. The detail is
// for logs only; callers get a generic message.
type InferenceError struct {
	Model string
	Err   error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed for model %s: %v", e.Model, e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// ErrorKind names the error for response bodies and metric labels.
func ErrorKind(err error) string {
	var (
		notFound *registry.ModelNotFoundError
		empty    *features.EmptyBatchError
		missing  *features.MissingFeatureError
		unknown  *features.UnknownFeatureError
		mismatch *features.TypeMismatchError
		scaling  *features.ScalingError
		infer    *InferenceError
	)
	switch {
	case errors.As(err, &notFound):
		return shared.KindModelNotFound
	case errors.As(err, &empty):
		return shared.KindEmptyBatch
	case errors.As(err, &missing):
		return shared.KindMissingFeature
	case errors.As(err, &unknown):
		return shared.KindUnknownFeature
	case errors.As(err, &mismatch):
		return shared.KindTypeMismatch
	case errors.As(err, &scaling):
		return shared.KindScaling
	case errors.As(err, &infer):
		return shared.KindInference
	default:
		return shared.KindInternal
	}
}

// ToRequestError maps an engine error onto the status and the message the
// caller is allowed to see.
func ToRequestError(err error) *shared.RequestError {
	switch ErrorKind(err) {
	case shared.KindModelNotFound:
		return &shared.RequestError{StatusCode: 404, Err: err}
	case shared.KindEmptyBatch, shared.KindMissingFeature, shared.KindUnknownFeature, shared.KindTypeMismatch:
		return &shared.RequestError{StatusCode: 400, Err: err}
	case shared.KindScaling, shared.KindInference:
		return &shared.RequestError{StatusCode: 500, Err: errors.New("prediction failed due to an internal error")}
	default:
		return shared.ErrInternalServerError
	}
}
