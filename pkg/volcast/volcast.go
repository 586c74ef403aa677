package volcast

import (
	"fmt"

	"github.com/crimson-sun/volcast/internal/corpus"
	"github.com/crimson-sun/volcast/internal/engine"
	"github.com/crimson-sun/volcast/internal/engine/similarity"
)

// Volcast predicts event volumes and builds comparison sets.
type Volcast struct {
	engine    *engine.Engine
	corpus    []Event
	cap       int
	diversity similarity.DiversityKey
}

// New loads the artifact bundle and both ONNX models. This is expensive:
// create once and reuse.
func New(opts ...Option) (*Volcast, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.err != nil {
		return nil, fmt.Errorf("volcast: %w", o.err)
	}

	eng, err := engine.Load(engine.Config{
		ModelsDir:              o.modelsDir,
		BundleDir:              o.resolvedBundleDir(),
		LibPath:                o.libPath,
		IntraOpThreads:         o.intraOpThreads,
		MissingCloseEarlyAsNaN: o.missingCloseEarly,
	})
	if err != nil {
		return nil, fmt.Errorf("volcast: %w", err)
	}

	events := o.corpus
	if events == nil && o.corpusPath != "" {
		events = corpus.Load(o.corpusPath)
	}
	return &Volcast{engine: eng, corpus: events, cap: o.cap, diversity: o.diversity}, nil
}

// Predict estimates the volume of each event, in order.
func (v *Volcast) Predict(events []Event) ([]PredictionResult, []Enriched, error) {
	return v.engine.Predict(events)
}

// PredictOne estimates the volume of a single event.
func (v *Volcast) PredictOne(ev Event) (PredictionResult, Enriched, error) {
	return v.engine.PredictOne(ev)
}

// Compare picks comparable events for anchor from the configured corpus.
// An anchor without a volume is predicted first.
func (v *Volcast) Compare(anchor Event) (ComparisonSet, error) {
	return v.CompareWith(anchor, v.corpus)
}

// CompareWith is Compare against an explicit corpus.
func (v *Volcast) CompareWith(anchor Event, events []Event) (ComparisonSet, error) {
	return v.engine.Compare(anchor, events, v.cap, similarity.WithDiversity(v.diversity))
}

// Corpus returns the loaded corpus.
func (v *Volcast) Corpus() []Event { return v.corpus }

// FeatureColumns returns the columns the loaded model was trained on.
func (v *Volcast) FeatureColumns() []string {
	return v.engine.Manifest().FeatureCols
}

// Close releases model resources.
func (v *Volcast) Close() error {
	return v.engine.Close()
}
