package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const scalerJSON = `{
	"kind": "standard_scaler",
	"n_features_in": 10,
	"mean": [0, 0, 0, 0, 0, 0, 0, 0, 0, 0],
	"scale": [1, 1, 1, 1, 1, 1, 1, 1, 1, 1]
}`

const logisticJSON = `{
	"kind": "logistic_regression",
	"classes": [0, 1],
	"n_features_in": 10,
	"coef": [[1, 0, 0, 0, 0, 0, 0, 0, 0, 0]],
	"intercept": [0]
}`

const svmJSON = `{
	"kind": "svm",
	"classes": [0, 1],
	"n_features_in": 10,
	"kernel": "linear",
	"support_vectors": [[1, 0, 0, 0, 0, 0, 0, 0, 0, 0], [-1, 0, 0, 0, 0, 0, 0, 0, 0, 0]],
	"n_support": [1, 1],
	"dual_coef": [[1, -1]],
	"intercept": [0]
}`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func loadFixture(t *testing.T) *Registry {
	t.Helper()
	dir := t.TempDir()
	r, err := LoadRegistry(context.Background(), zap.NewNop().Sugar(), FileSource{}, map[string]string{
		"Logistic": writeFile(t, dir, "logistic.json", logisticJSON),
		"svm":      writeFile(t, dir, "svm.json", svmJSON),
	}, writeFile(t, dir, "scaler.json", scalerJSON))
	require.NoError(t, err)
	return r
}

func TestLoadRegistry(t *testing.T) {
	r := loadFixture(t)
	assert.Equal(t, []string{"Logistic", "svm"}, r.Names())
	assert.Equal(t, 10, r.GetScaler().NumFeatures())

	entries := r.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "classifier_with_probabilities", entries[0].Model.Capability().String())
	assert.Equal(t, "classifier_only", entries[1].Model.Capability().String())
}

func TestGetModelCaseInsensitive(t *testing.T) {
	r := loadFixture(t)
	for _, name := range []string{"logistic", "LOGISTIC", "Logistic"} {
		e, err := r.GetModel(name)
		require.NoError(t, err, name)
		assert.Equal(t, "Logistic", e.Name)
	}
}

func TestGetModelNotFound(t *testing.T) {
	r := loadFixture(t)
	_, err := r.GetModel("xgboost")
	var nf *ModelNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "xgboost", nf.Name)
	assert.Equal(t, []string{"Logistic", "svm"}, nf.Available)
	assert.Contains(t, err.Error(), "Logistic, svm")
}

func TestNamesReturnsCopy(t *testing.T) {
	r := loadFixture(t)
	names := r.Names()
	names[0] = "changed"
	assert.Equal(t, "Logistic", r.Names()[0])
}

func TestLoadRegistryFailures(t *testing.T) {
	dir := t.TempDir()
	scaler := writeFile(t, dir, "scaler.json", scalerJSON)
	good := writeFile(t, dir, "good.json", logisticJSON)

	tests := []struct {
		name   string
		models map[string]string
		scaler string
	}{
		{"missing model file", map[string]string{"a": good, "b": filepath.Join(dir, "nope.json")}, scaler},
		{"missing scaler", map[string]string{"a": good}, filepath.Join(dir, "nope.json")},
		{"corrupt model", map[string]string{"a": writeFile(t, dir, "bad.json", `{"kind": `)}, scaler},
		{"unknown kind", map[string]string{"a": writeFile(t, dir, "odd.json", `{"kind": "xgboost"}`)}, scaler},
		{"no models", map[string]string{}, scaler},
		{"case collision", map[string]string{"svm": good, "SVM": good}, scaler},
		{"scaler columns", map[string]string{"a": good}, writeFile(t, dir, "named.json", strings.Replace(scalerJSON,
			`"n_features_in": 10,`,
			`"n_features_in": 10, "feature_names_in": ["a", "b", "c", "d", "e", "f", "g", "h", "i", "j"],`, 1))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := LoadRegistry(context.Background(), zap.NewNop().Sugar(), FileSource{}, tt.models, tt.scaler)
			assert.Nil(t, r)
			var lerr *RegistryLoadError
			assert.ErrorAs(t, err, &lerr)
		})
	}
}

func TestLoadRegistryWidthMismatchIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	narrow := `{"kind": "standard_scaler", "n_features_in": 2, "mean": [0, 0], "scale": [1, 1]}`
	r, err := LoadRegistry(context.Background(), zap.NewNop().Sugar(), FileSource{}, map[string]string{
		"logistic": writeFile(t, dir, "logistic.json", logisticJSON),
	}, writeFile(t, dir, "scaler.json", narrow))
	require.NoError(t, err)
	assert.Equal(t, 2, r.GetScaler().NumFeatures())
}

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest([]byte(`
scaler: scaler.json
models:
  logistic: models/logistic.json
  svm: s3://bucket/svm.json
  abs: /srv/abs.json
`), "/etc/classifier")
	require.NoError(t, err)
	assert.Equal(t, "/etc/classifier/scaler.json", m.Scaler)
	assert.Equal(t, "/etc/classifier/models/logistic.json", m.Models["logistic"])
	assert.Equal(t, "s3://bucket/svm.json", m.Models["svm"])
	assert.Equal(t, "/srv/abs.json", m.Models["abs"])
}

func TestParseManifestErrors(t *testing.T) {
	_, err := ParseManifest([]byte("models:\n  a: a.json\n"), "")
	assert.ErrorContains(t, err, "no scaler")

	_, err = ParseManifest([]byte("scaler: s.json\n"), "")
	assert.ErrorContains(t, err, "no models")

	_, err = ParseManifest([]byte("scaler: s.json\nmodels:\n  a: a.json\nextra: 1\n"), "")
	assert.ErrorContains(t, err, "invalid manifest")
}

func TestLoadManifestFromFile(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "models.yaml", "scaler: scaler.json\nmodels:\n  knn: knn.json\n")
	m, err := LoadManifest(context.Background(), FileSource{}, p)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "knn.json"), m.Models["knn"])
}

func TestDefaultManifest(t *testing.T) {
	m := DefaultManifest("assets")
	assert.Equal(t, filepath.Join("assets", "scaler.json"), m.Scaler)
	assert.Len(t, m.Models, 4)
	assert.Contains(t, m.Models, "random_forest")
}

func TestParseS3Location(t *testing.T) {
	bucket, key, err := ParseS3Location("s3://models/prod/svm.json")
	require.NoError(t, err)
	assert.Equal(t, "models", bucket)
	assert.Equal(t, "prod/svm.json", key)

	for _, bad := range []string{"models/svm.json", "s3://models", "s3:///svm.json"} {
		_, _, err := ParseS3Location(bad)
		assert.Error(t, err, bad)
	}
}

type stubSource map[string]string

func (s stubSource) Fetch(_ context.Context, location string) ([]byte, error) {
	body, ok := s[location]
	if !ok {
		return nil, errors.New("not found")
	}
	return []byte(body), nil
}

func TestMultiSourceRouting(t *testing.T) {
	dir := t.TempDir()
	local := writeFile(t, dir, "scaler.json", scalerJSON)
	src := MultiSource{S3: stubSource{"s3://models/logistic.json": logisticJSON}}

	r, err := LoadRegistry(context.Background(), nil, src, map[string]string{
		"logistic": "s3://models/logistic.json",
	}, local)
	require.NoError(t, err)
	assert.Equal(t, []string{"logistic"}, r.Names())

	_, err = MultiSource{}.Fetch(context.Background(), "s3://models/logistic.json")
	assert.ErrorContains(t, err, "no s3 source")
}
