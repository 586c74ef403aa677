package model

import "math"

// PredictionResult is the caller-facing outcome of predicting one event.
type PredictionResult struct {
	ID              string   `json:"id,omitempty"`
	Title           string   `json:"title"`
	Category        string   `json:"category"`
	PredictedVolume int64    `json:"predicted_volume"`
	RawVolume       float64  `json:"raw_volume"`
	Duration        *float64 `json:"duration"`
	Anomalous       bool     `json:"anomalous,omitempty"` // pipeline produced a negative volume, clamped to 0
}

// RoundVolume rounds a volume estimate to the nearest integer, saturating at
// math.MaxInt64. Rounding is deferred to here so that inversion always works
// on the unrounded value.
func RoundVolume(v float64) int64 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	if v >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(math.Round(v))
}
