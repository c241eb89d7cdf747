package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// RawFeature is a single feature entry exactly as it arrived at the boundary.
// Value may be any JSON value (json.Number, string, bool, nil, ...).
type RawFeature struct {
	Name  string
	Value interface{}
}

// RawFeatures is an ordered feature mapping that has not been validated yet.
// Key order from the JSON object is preserved.
type RawFeatures []RawFeature

// RawFeaturesFromMap builds RawFeatures from a map, ordering keys alphabetically
func RawFeaturesFromMap(m map[string]interface{}) RawFeatures {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	raw := make(RawFeatures, 0, len(keys))
	for _, k := range keys {
		raw = append(raw, RawFeature{Name: k, Value: m[k]})
	}
	return raw
}

// UnmarshalJSON decodes a JSON object keeping the order of its keys
func (r *RawFeatures) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*r = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to read features: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("features must be a JSON object")
	}

	out := RawFeatures{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("failed to read feature name: %w", err)
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected feature name token %v", keyTok)
		}

		var value interface{}
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("failed to read feature %q: %w", name, err)
		}
		out = append(out, RawFeature{Name: name, Value: value})
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("failed to read features: %w", err)
	}

	*r = out
	return nil
}

// MarshalJSON encodes the features as a JSON object in their original order
func (r RawFeatures) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal feature %q: %w", f.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FeatureVector is an ordered mapping from feature name to a finite value.
// The zero value is an empty vector ready to use.
type FeatureVector struct {
	names  []string
	values map[string]float64
}

// NewFeatureVector creates an empty feature vector
func NewFeatureVector() FeatureVector {
	return FeatureVector{values: make(map[string]float64)}
}

// FeatureVectorFromMap builds a vector from a map, ordering keys alphabetically
func FeatureVectorFromMap(m map[string]float64) FeatureVector {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fv := NewFeatureVector()
	for _, k := range keys {
		fv.Set(k, m[k])
	}
	return fv
}

// Set assigns a value. A new name is appended to the end of the order.
func (fv *FeatureVector) Set(name string, value float64) {
	if fv.values == nil {
		fv.values = make(map[string]float64)
	}
	if _, exists := fv.values[name]; !exists {
		fv.names = append(fv.names, name)
	}
	fv.values[name] = value
}

// Get returns the value for name and whether it is present
func (fv FeatureVector) Get(name string) (float64, bool) {
	v, ok := fv.values[name]
	return v, ok
}

// Names returns the feature names in insertion order
func (fv FeatureVector) Names() []string {
	out := make([]string, len(fv.names))
	copy(out, fv.names)
	return out
}

// Len returns the number of features
func (fv FeatureVector) Len() int {
	return len(fv.names)
}

// MarshalJSON encodes the vector as an ordered JSON object
func (fv FeatureVector) MarshalJSON() ([]byte, error) {
	raw := make(RawFeatures, 0, len(fv.names))
	for _, name := range fv.names {
		raw = append(raw, RawFeature{Name: name, Value: fv.values[name]})
	}
	return raw.MarshalJSON()
}
