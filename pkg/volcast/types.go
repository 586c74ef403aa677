package volcast

import (
	"github.com/crimson-sun/volcast/internal/corpus"
	"github.com/crimson-sun/volcast/internal/engine/artifact"
	"github.com/crimson-sun/volcast/internal/engine/features"
	"github.com/crimson-sun/volcast/internal/engine/predictor"
	"github.com/crimson-sun/volcast/internal/model"
)

type (
	// Event is a prediction-market event. Volume is nil until it settles.
	Event = model.Event
	// PredictionResult is the estimate for one event.
	PredictionResult = model.PredictionResult
	// Enriched pairs an event with the feature row it was predicted from.
	Enriched = model.Enriched
	// FeatureRow is a named, ordered feature vector.
	FeatureRow = model.FeatureRow
	// ComparisonSet is an anchor plus its comparable events.
	ComparisonSet = model.ComparisonSet
)

// Errors returned by Volcast, for use with errors.As.
type (
	ArtifactMismatchError = artifact.MismatchError
	FeatureMismatchError  = features.MismatchError
	PredictionError       = predictor.Error
	CorpusLoadError       = corpus.LoadError
)

// Float returns a pointer to f, for filling Event.Duration and Event.Volume.
func Float(f float64) *float64 { return model.Float(f) }

// Bool returns a pointer to b.
func Bool(b bool) *bool { return model.Bool(b) }
