package client

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/spf13/cast"
)

// ReadJSONBatch accepts {"inputs": [...]}, a bare array of records or a
// single record.
func ReadJSONBatch(r io.Reader) ([]map[string]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty input")
	}

	switch data[0] {
	case '[':
		var records []map[string]any
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		return records, nil
	case '{':
		var wrapped struct {
			Inputs []map[string]any `json:"inputs"`
		}
		if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Inputs != nil {
			return wrapped.Inputs, nil
		}
		var record map[string]any
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		if _, ok := record["inputs"]; ok {
			return nil, errors.New(`"inputs" must be an array of records`)
		}
		return []map[string]any{record}, nil
	default:
		return nil, errors.New("expected a JSON object or array")
	}
}

// ReadCSVBatch reads one record per row, keyed by the header row. Finite
// numeric cells become numbers; anything else, NaN and Inf included, is sent
// as-is for the server to judge.
func ReadCSVBatch(r io.Reader) ([]map[string]any, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid CSV: %w", err)
	}
	if len(rows) < 2 {
		return nil, errors.New("CSV needs a header row and at least one data row")
	}
	header := rows[0]
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}
	out := make([]map[string]any, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(map[string]any, len(header))
		for i, cell := range row {
			cell = strings.TrimSpace(cell)
			if f, err := cast.ToFloat64E(cell); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
				rec[header[i]] = f
			} else {
				rec[header[i]] = cell
			}
		}
		out = append(out, rec)
	}
	return out, nil
}
