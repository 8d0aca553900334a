package client

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"classifier-api/internal/features"
	"classifier-api/internal/handlers/inference"
	"classifier-api/internal/keys"
	"classifier-api/internal/registry"
	"classifier-api/internal/routers"
	"classifier-api/internal/shared"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testKey = "client-test-key"

func benign() map[string]any {
	return map[string]any{
		"perimeter_mean":             87.46,
		"area_mean":                  566.3,
		"concavity_mean":             0.06664,
		"concave_points_mean":        0.04781,
		"radius_worst":               15.11,
		"texture_worst":              19.26,
		"perimeter_worst":            99.7,
		"area_worst":                 711.2,
		"concave_points_worst":       0.1288,
		"radius_texture_interaction": 215.1,
	}
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := zap.NewNop().Sugar()
	ctx := context.Background()
	m, err := registry.LoadManifest(ctx, registry.FileSource{}, "../../assets/models.yaml")
	require.NoError(t, err)
	reg, err := registry.LoadRegistry(ctx, log, registry.FileSource{}, m.Models, m.Scaler)
	require.NoError(t, err)

	e := echo.New()
	routers.RegisterRoutes(e, routers.Config{
		AppName:   "Breast Cancer Classifier",
		Version:   "1.0.0",
		Keys:      keys.NewStore(testKey, nil, nil, log),
		Inference: inference.NewInferenceHandler(reg, features.NewAligner(features.IgnoreUnknown), log),
		Log:       log,
	})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckStatus(t *testing.T) {
	srv := newServer(t)

	info, err := New(srv.URL+"/", testKey).CheckStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "up & running", info.Status)
	assert.Equal(t, "1.0.0", info.Version)

	_, err = New(srv.URL, "wrong").CheckStatus(context.Background())
	assert.ErrorIs(t, err, ErrInvalidAPIKey)
}

func TestCheckStatusUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, testKey).CheckStatus(context.Background())
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestCheckStatusTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, testKey)
	c.HTTP.Timeout = 50 * time.Millisecond
	_, err := c.CheckStatus(context.Background())
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestPredict(t *testing.T) {
	c := New(newServer(t).URL, testKey)
	resp, err := c.Predict(context.Background(), "logistic", []map[string]any{benign(), benign()})
	require.NoError(t, err)
	require.Len(t, resp.Predictions, 2)
	assert.Equal(t, 1, resp.Predictions[1].InputIndex)
	assert.Equal(t, 0, resp.Predictions[1].PredictedClass)
}

func TestPredictServerError(t *testing.T) {
	c := New(newServer(t).URL, testKey)
	_, err := c.Predict(context.Background(), "xgboost", []map[string]any{benign()})
	var herr *HTTPError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, http.StatusNotFound, herr.StatusCode)
	assert.Equal(t, shared.KindModelNotFound, herr.Type)
}

func TestModels(t *testing.T) {
	list, err := New(newServer(t).URL, testKey).Models(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 4)
}

func TestReadJSONBatch(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"wrapped", `{"inputs": [{"a": 1}, {"a": 2}]}`, 2},
		{"array", `[{"a": 1}]`, 1},
		{"single", `{"a": 1}`, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadJSONBatch(strings.NewReader(tt.in))
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}

	for _, bad := range []string{"", "42", `{"inputs": 3}`, `[1, 2]`, `{`} {
		_, err := ReadJSONBatch(strings.NewReader(bad))
		assert.Error(t, err, bad)
	}
}

func TestReadCSVBatch(t *testing.T) {
	got, err := ReadCSVBatch(strings.NewReader("area_mean, concave_points_mean\n566.3,0.04781\nabc,1\n"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 566.3, got[0]["area_mean"])
	assert.Equal(t, 0.04781, got[0]["concave_points_mean"])
	assert.Equal(t, "abc", got[1]["area_mean"])

	_, err = ReadCSVBatch(strings.NewReader("area_mean\n"))
	assert.Error(t, err)
}

func TestReadCSVBatchKeepsNonFiniteCells(t *testing.T) {
	got, err := ReadCSVBatch(strings.NewReader("area_mean,area_worst\nNaN,Inf\n-inf,1\n"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "NaN", got[0]["area_mean"])
	assert.Equal(t, "Inf", got[0]["area_worst"])
	assert.Equal(t, "-inf", got[1]["area_mean"])
	assert.Equal(t, 1.0, got[1]["area_worst"])
}

func TestPredictNonFiniteCSVIsTypeMismatch(t *testing.T) {
	srv := newServer(t)
	c := New(srv.URL, testKey)

	rec := benign()
	delete(rec, "area_mean")
	var sb strings.Builder
	sb.WriteString("area_mean")
	var row strings.Builder
	row.WriteString("NaN")
	for k, v := range rec {
		sb.WriteString("," + k)
		row.WriteString("," + fmt.Sprint(v))
	}
	batch, err := ReadCSVBatch(strings.NewReader(sb.String() + "\n" + row.String() + "\n"))
	require.NoError(t, err)

	_, err = c.Predict(context.Background(), "logistic", batch)
	var herr *HTTPError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, http.StatusBadRequest, herr.StatusCode)
	assert.Equal(t, shared.KindTypeMismatch, herr.Type)
}

func TestHistory(t *testing.T) {
	h := NewHistory()
	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	h.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	for _, m := range []string{"knn", "svm", "knn", "logistic", "knn", "svm"} {
		h.Add(m, nil, &shared.PredictionResponse{})
	}

	recent := h.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "svm", recent[0].Model)
	assert.Equal(t, "knn", recent[1].Model)
	assert.True(t, recent[0].Time.After(recent[1].Time))
	assert.Len(t, h.Recent(50), 6)

	total, usage := h.Stats()
	assert.Equal(t, 6, total)
	assert.Equal(t, []ModelUsage{{"knn", 3}, {"svm", 2}, {"logistic", 1}}, usage)

	h.Clear()
	total, usage = h.Stats()
	assert.Zero(t, total)
	assert.Empty(t, usage)
	assert.Empty(t, h.Recent(5))
}

func TestShell(t *testing.T) {
	var out bytes.Buffer
	sh := NewShell(New(newServer(t).URL, testKey), "logistic", &out)

	script := strings.Join([]string{
		"status",
		`predict {"inputs": [` + `{"perimeter_mean": 87.46, "area_mean": 566.3, "concavity_mean": 0.06664, "concave_points_mean": 0.04781, "radius_worst": 15.11, "texture_worst": 19.26, "perimeter_worst": 99.7, "area_worst": 711.2, "concave_points_worst": 0.1288, "radius_texture_interaction": 215.1}` + `]}`,
		"use svm",
		"predict {}",
		"stats",
		"bogus",
		"quit",
		"status",
	}, "\n")
	require.NoError(t, sh.Run(context.Background(), strings.NewReader(script)))

	text := out.String()
	assert.Contains(t, text, "Status: up & running")
	assert.Contains(t, text, `"predicted_class": 0`)
	assert.Contains(t, text, "MissingFeatureError")
	assert.Contains(t, text, "Total predictions: 1")
	assert.Contains(t, text, "- logistic: 1 predictions")
	assert.Contains(t, text, `unknown command "bogus"`)
	assert.Equal(t, "svm", sh.Model)
	// nothing after quit runs
	assert.Equal(t, 1, strings.Count(text, "Status: up & running"))
}
