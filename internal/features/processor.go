// Package features turns raw feature mappings into fixed-width numeric matrices.
package features

import (
	"encoding/json"
	"math"

	"inspection-backend/internal/models"
)

// Validate cleans a raw feature mapping.
// NaN, ±Inf and non-numeric values become 0.0; finite numbers pass through unchanged.
func Validate(raw models.RawFeatures) models.FeatureVector {
	fv := models.NewFeatureVector()
	for _, f := range raw {
		fv.Set(f.Name, toFinite(f.Value))
	}
	return fv
}

// toFinite converts a decoded JSON value to a finite float64, or 0.0
func toFinite(v interface{}) float64 {
	var x float64
	switch n := v.(type) {
	case float64:
		x = n
	case float32:
		x = float64(n)
	case int:
		x = float64(n)
	case int32:
		x = float64(n)
	case int64:
		x = float64(n)
	case uint:
		x = float64(n)
	case uint32:
		x = float64(n)
	case uint64:
		x = float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		x = f
	default:
		return 0
	}

	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}

// BuildMatrix lays out rows as a len(rows) x len(schema) matrix.
//
// With a nil schema the schema is the first-seen union of all row keys and is
// returned. With a schema every row is projected onto it: unknown names are
// dropped and missing names read as 0.0.
func BuildMatrix(rows []models.FeatureVector, schema []string) ([][]float64, []string) {
	if schema == nil {
		schema = unionSchema(rows)
	}

	matrix := make([][]float64, len(rows))
	for i, row := range rows {
		out := make([]float64, len(schema))
		for j, name := range schema {
			if v, ok := row.Get(name); ok {
				out[j] = v
			}
		}
		matrix[i] = out
	}
	return matrix, schema
}

func unionSchema(rows []models.FeatureVector) []string {
	seen := make(map[string]bool)
	schema := []string{}
	for _, row := range rows {
		for _, name := range row.Names() {
			if !seen[name] {
				seen[name] = true
				schema = append(schema, name)
			}
		}
	}
	return schema
}

// ExtractLabels returns the response of every sample; unlabeled samples read as 0
func ExtractLabels(samples []models.LabeledSample) []int {
	labels := make([]int, len(samples))
	for i, s := range samples {
		if s.Response != nil {
			labels[i] = *s.Response
		}
	}
	return labels
}

// ValidateAll validates the features of every labeled sample
func ValidateAll(samples []models.LabeledSample) []models.FeatureVector {
	rows := make([]models.FeatureVector, len(samples))
	for i, s := range samples {
		rows[i] = Validate(s.Features)
	}
	return rows
}
