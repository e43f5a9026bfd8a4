// Package domain contains the core entities of the breast cancer diagnosis pipeline:
// clinical feature vectors, patient metadata, diagnosis decisions and stored encounters.
//
// Feature names follow the Wisconsin Diagnostic Breast Cancer (WDBC) naming scheme,
// e.g. "radius_mean", "concave_points_worst".
package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Feature is a single named clinical measurement.
type Feature struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// FeatureVector is an ordered set of clinical measurements. Order is significant:
// it is the order the classifier expects and the order rows appear in reports.
// It serializes to a JSON object whose keys keep that order.
type FeatureVector []Feature

// Get returns the value of the named feature and whether it is present.
func (v FeatureVector) Get(name string) (float64, bool) {
	for _, f := range v {
		if f.Name == name {
			return f.Value, true
		}
	}
	return 0, false
}

// ValueOr returns the named feature or def when it is absent.
func (v FeatureVector) ValueOr(name string, def float64) float64 {
	if val, ok := v.Get(name); ok {
		return val
	}
	return def
}

// Names returns the feature names in vector order.
func (v FeatureVector) Names() []string {
	names := make([]string, len(v))
	for i, f := range v {
		names[i] = f.Name
	}
	return names
}

// Map returns an unordered copy of the vector.
func (v FeatureVector) Map() map[string]float64 {
	m := make(map[string]float64, len(v))
	for _, f := range v {
		m[f.Name] = f.Value
	}
	return m
}

// Clone returns a copy that shares no backing array with v.
func (v FeatureVector) Clone() FeatureVector {
	if v == nil {
		return nil
	}
	out := make(FeatureVector, len(v))
	copy(out, v)
	return out
}

// MarshalJSON encodes the vector as a JSON object, keys in vector order.
func (v FeatureVector) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range v {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("encoding feature %q: %w", f.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of name -> number, keeping key order.
func (v *FeatureVector) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*v = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("feature vector must be a JSON object")
	}

	out := FeatureVector{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected feature key %v", tok)
		}
		var value float64
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("decoding feature %q: %w", name, err)
		}
		out = append(out, Feature{Name: name, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*v = out
	return nil
}
