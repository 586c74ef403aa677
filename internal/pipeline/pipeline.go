// Package pipeline runs batches of events through the engine and writes the
// results to an output.
package pipeline

import (
	"context"
	"fmt"

	"github.com/crimson-sun/volcast/internal/engine/similarity"
	"github.com/crimson-sun/volcast/internal/idalloc"
	"github.com/crimson-sun/volcast/internal/logging"
	"github.com/crimson-sun/volcast/internal/model"
	"github.com/crimson-sun/volcast/internal/output"
)

// DefaultBatchSize is how many events go through the models per call.
const DefaultBatchSize = 64

// Engine is the subset of *engine.Engine the pipeline drives.
type Engine interface {
	Predict(events []model.Event) ([]model.PredictionResult, []model.Enriched, error)
	Compare(anchor model.Event, corpus []model.Event, limit int, opts ...similarity.Option) (model.ComparisonSet, error)
}

// Pipeline connects an engine, an id allocator and an output.
type Pipeline struct {
	engine    Engine
	ids       *idalloc.Allocator
	output    output.Output
	verbosity output.Verbosity
	batchSize int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithVerbosity sets how much of each prediction is written.
func WithVerbosity(v output.Verbosity) Option {
	return func(p *Pipeline) { p.verbosity = v }
}

// WithBatchSize sets the number of events per engine call.
func WithBatchSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// New creates a Pipeline. ids may be nil, in which case events without an
// id are written without one.
func New(eng Engine, ids *idalloc.Allocator, out output.Output, opts ...Option) *Pipeline {
	p := &Pipeline{engine: eng, ids: ids, output: out, batchSize: DefaultBatchSize}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Stats summarizes a Predict run.
type Stats struct {
	Events    int
	Batches   int
	Anomalous int
}

// Predict assigns ids, runs events through the engine in batches and writes
// one line per prediction. Cancellation is checked between batches.
func (p *Pipeline) Predict(ctx context.Context, events []model.Event) (Stats, error) {
	var st Stats
	if err := p.assignIDs(events); err != nil {
		return st, err
	}

	for start := 0; start < len(events); start += p.batchSize {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		batch := events[start:min(start+p.batchSize, len(events))]

		results, enriched, err := p.engine.Predict(batch)
		if err != nil {
			return st, fmt.Errorf("pipeline predict: %w", err)
		}
		for i, res := range results {
			if res.Anomalous {
				st.Anomalous++
			}
			if err := p.output.Write(ctx, output.FormatPrediction(res, enriched[i], p.verbosity)); err != nil {
				return st, fmt.Errorf("pipeline output: %w", err)
			}
		}
		st.Events += len(batch)
		st.Batches++
	}

	logging.Debug().Int("events", st.Events).Int("batches", st.Batches).Int("anomalous", st.Anomalous).Msg("predict run complete")
	return st, nil
}

// Compare builds the comparison set for anchor and writes it.
func (p *Pipeline) Compare(ctx context.Context, anchor model.Event, corpus []model.Event, limit int, opts ...similarity.Option) (model.ComparisonSet, error) {
	if err := ctx.Err(); err != nil {
		return model.ComparisonSet{}, err
	}
	set, err := p.engine.Compare(anchor, corpus, limit, opts...)
	if err != nil {
		return model.ComparisonSet{}, fmt.Errorf("pipeline compare: %w", err)
	}
	if err := p.output.Write(ctx, output.FormatComparison(set)); err != nil {
		return set, fmt.Errorf("pipeline output: %w", err)
	}
	return set, nil
}

func (p *Pipeline) assignIDs(events []model.Event) error {
	if p.ids == nil {
		return nil
	}
	// Submitted ids are reserved first so fresh ids never collide with them.
	for _, ev := range events {
		if ev.ID != "" {
			p.ids.Reserve(ev.ID)
		}
	}
	for i := range events {
		if events[i].ID != "" {
			continue
		}
		id, err := p.ids.Next()
		if err != nil {
			return fmt.Errorf("pipeline: %w", err)
		}
		events[i].ID = id
	}
	return nil
}

// Close shuts down the output.
func (p *Pipeline) Close() error {
	return p.output.Close()
}
