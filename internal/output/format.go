package output

import (
	"fmt"
	"strings"

	"github.com/crimson-sun/volcast/internal/model"
)

// Verbosity controls how much of each prediction is written.
type Verbosity int

const (
	// Minimal writes the prediction only.
	Minimal Verbosity = iota
	// Full adds the feature row the prediction was made from.
	Full
)

// ParseVerbosity maps "minimal" or "full" to a Verbosity.
func ParseVerbosity(s string) (Verbosity, error) {
	switch strings.ToLower(s) {
	case "", "minimal":
		return Minimal, nil
	case "full":
		return Full, nil
	}
	return Minimal, fmt.Errorf("output: unknown verbosity %q", s)
}

// PredictionLine is the NDJSON shape of one prediction.
type PredictionLine struct {
	model.PredictionResult
	Features *model.FeatureRow `json:"features,omitempty"`
}

// FormatPrediction builds the line for res. At Full the enriched feature
// row is attached.
func FormatPrediction(res model.PredictionResult, enr model.Enriched, v Verbosity) PredictionLine {
	line := PredictionLine{PredictionResult: res}
	if v == Full && len(enr.Features.Columns) > 0 {
		f := enr.Features
		line.Features = &f
	}
	return line
}

// ComparisonLine is the NDJSON shape of a comparison set, including the
// display order with the anchor placed in the middle.
type ComparisonLine struct {
	model.ComparisonSet
	Layout []model.Event `json:"layout"`
}

// FormatComparison builds the line for set.
func FormatComparison(set model.ComparisonSet) ComparisonLine {
	return ComparisonLine{ComparisonSet: set, Layout: set.Layout()}
}
