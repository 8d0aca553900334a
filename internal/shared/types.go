package shared

// APIError is the body of every non-2xx response.
type APIError struct {
	Detail string `json:"detail"`
	Type   string `json:"type,omitempty"`
}

// Error kinds reported in APIError.Type and as metric labels.
const (
	KindModelNotFound  = "ModelNotFoundError"
	KindEmptyBatch     = "EmptyBatchError"
	KindMissingFeature = "MissingFeatureError"
	KindUnknownFeature = "UnknownFeatureError"
	KindTypeMismatch   = "TypeMismatchError"
	KindScaling        = "ScalingError"
	KindInference      = "InferenceError"
	KindBadRequest     = "BadRequest"
	KindUnauthorized   = "Unauthorized"
	KindInternal       = "InternalError"
)

// AppInfo is the body of GET /.
type AppInfo struct {
	AppName string `json:"app_name"`
	Version string `json:"version"`
	Status  string `json:"status"`
}

// PredictRequest is the body of POST /predict/:model_name.
type PredictRequest struct {
	Inputs []map[string]any `json:"inputs"`
}

// PredictionResult is one row of the response. Probabilities is present for
// every row or for none, depending on the model.
type PredictionResult struct {
	InputIndex     int       `json:"input_index"`
	PredictedClass int       `json:"predicted_class"`
	Probabilities  []float64 `json:"probabilities,omitempty"`
}

type PredictionResponse struct {
	Predictions []PredictionResult `json:"predictions"`
}

// ModelInfo describes a registered model for GET /models.
type ModelInfo struct {
	Name          string `json:"name"`
	Kind          string `json:"kind"`
	Capability    string `json:"capability"`
	Probabilities bool   `json:"probabilities"`
	Classes       []int  `json:"classes"`
	NumFeatures   int    `json:"n_features"`
}

type ModelList struct {
	Data []ModelInfo `json:"data"`
}
