package model

import (
	"bytes"
	"math"
	"strconv"

	"github.com/goccy/go-json"
)

// FeatureRow is one event's feature vector, aligned column-for-column with
// the artifact bundle's feature_cols. Missing numeric input is NaN.
type FeatureRow struct {
	Columns []string
	Values  []float64
}

// Get returns the value of the named column.
func (r FeatureRow) Get(col string) (float64, bool) {
	for i, c := range r.Columns {
		if c == col {
			return r.Values[i], true
		}
	}
	return 0, false
}

// MarshalJSON writes the row as an object in column order. NaN and
// infinities have no JSON form and are written as null.
func (r FeatureRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if v := r.Values[i]; math.IsNaN(v) || math.IsInf(v, 0) {
			buf.WriteString("null")
		} else {
			buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Enriched pairs an input event with the feature row built for it, for
// tracing a prediction back to its inputs.
type Enriched struct {
	Event    Event      `json:"event"`
	Features FeatureRow `json:"features"`
}
