// Package engine wires the artifact bundle, text embedder, feature builder
// and predictor into a single prediction and comparison service.
package engine

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/crimson-sun/volcast/internal/engine/artifact"
	"github.com/crimson-sun/volcast/internal/engine/embedder"
	"github.com/crimson-sun/volcast/internal/engine/features"
	"github.com/crimson-sun/volcast/internal/engine/ortenv"
	"github.com/crimson-sun/volcast/internal/engine/predictor"
	"github.com/crimson-sun/volcast/internal/engine/similarity"
	"github.com/crimson-sun/volcast/internal/logging"
	"github.com/crimson-sun/volcast/internal/metrics"
	"github.com/crimson-sun/volcast/internal/model"
)

// Engine orchestrates the features → predict → compare pipeline.
type Engine struct {
	manifest  artifact.Manifest
	features  *features.Builder
	predictor *predictor.Predictor
	closers   []io.Closer
}

// New creates an Engine from already constructed components. Closers are
// released by Close in order.
func New(m artifact.Manifest, fb *features.Builder, p *predictor.Predictor, closers ...io.Closer) *Engine {
	return &Engine{manifest: m, features: fb, predictor: p, closers: closers}
}

// Config locates the model files an Engine is loaded from.
type Config struct {
	ModelsDir      string // parent of <sentence_model_name>/
	BundleDir      string // bundle.json, reducer and pipeline
	LibPath        string // ONNX Runtime library; searched for when empty
	IntraOpThreads int

	MissingCloseEarlyAsNaN bool
}

// Load reads the bundle and opens both ONNX sessions.
func Load(cfg Config) (*Engine, error) {
	b, err := artifact.Load(cfg.BundleDir, features.SchemaVersion)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	modelDir := filepath.Join(cfg.ModelsDir, b.SentenceModelName)
	lib := cfg.LibPath
	if lib == "" {
		if lib, err = ortenv.FindLibrary(modelDir, cfg.ModelsDir); err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
	}
	if err := ortenv.Init(lib); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	emb, err := embedder.New(embedder.Config{
		ModelDir:       modelDir,
		LibPath:        lib,
		Normalize:      b.NormalizeEmbeddings,
		IntraOpThreads: cfg.IntraOpThreads,
	})
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	reduced, err := embedder.NewReduced(emb, b.Reducer)
	if err != nil {
		emb.Close()
		return nil, fmt.Errorf("engine: %w", err)
	}

	var opts []features.Option
	if cfg.MissingCloseEarlyAsNaN {
		opts = append(opts, features.MissingCloseEarlyAsNaN())
	}
	fb, err := features.New(reduced, b.TitleEmbCols, b.FeatureCols, opts...)
	if err != nil {
		emb.Close()
		return nil, fmt.Errorf("engine: %w", err)
	}

	reg, err := predictor.LoadONNX(b.PipelinePath(), cfg.IntraOpThreads)
	if err != nil {
		emb.Close()
		return nil, fmt.Errorf("engine: %w", err)
	}
	p, err := predictor.New(reg, b.FeatureCols)
	if err != nil {
		reg.Close()
		emb.Close()
		return nil, fmt.Errorf("engine: %w", err)
	}

	logging.Info().
		Str("bundle", cfg.BundleDir).
		Str("sentence_model", b.SentenceModelName).
		Int("features", len(b.FeatureCols)).
		Int("embedding_dim", reduced.Dim()).
		Msg("engine loaded")

	return New(b.Manifest, fb, p, reduced, p), nil
}

// Manifest returns the loaded bundle manifest.
func (e *Engine) Manifest() artifact.Manifest { return e.manifest }

// Predict estimates the volume of each event, in order. The enriched records
// carry the exact feature row each estimate was made from.
func (e *Engine) Predict(events []model.Event) ([]model.PredictionResult, []model.Enriched, error) {
	if len(events) == 0 {
		return nil, nil, nil
	}

	start := time.Now()
	rows, err := e.features.Build(events)
	metrics.ObserveInference("features", start)
	if err != nil {
		metrics.PredictionErrors.WithLabelValues("features").Inc()
		return nil, nil, err
	}

	est, err := e.predictor.Predict(rows)
	if err != nil {
		return nil, nil, err
	}

	results := make([]model.PredictionResult, len(events))
	enriched := make([]model.Enriched, len(events))
	for i, ev := range events {
		results[i] = model.PredictionResult{
			ID:              ev.ID,
			Title:           ev.Title,
			Category:        ev.Category,
			PredictedVolume: model.RoundVolume(est[i].Volume),
			RawVolume:       est[i].Volume,
			Duration:        ev.Duration,
			Anomalous:       est[i].Anomalous,
		}
		enriched[i] = model.Enriched{Event: ev, Features: rows[i]}
	}
	return results, enriched, nil
}

// PredictOne is Predict for a single event.
func (e *Engine) PredictOne(ev model.Event) (model.PredictionResult, model.Enriched, error) {
	res, enr, err := e.Predict([]model.Event{ev})
	if err != nil {
		return model.PredictionResult{}, model.Enriched{}, err
	}
	return res[0], enr[0], nil
}

// Compare selects comparable corpus events for anchor. An anchor without a
// settled volume is predicted first and compared on its estimate.
func (e *Engine) Compare(anchor model.Event, corpus []model.Event, limit int, opts ...similarity.Option) (model.ComparisonSet, error) {
	if !anchor.HasVolume() {
		res, _, err := e.PredictOne(anchor)
		if err != nil {
			return model.ComparisonSet{}, err
		}
		anchor.Volume = model.Float(res.RawVolume)
	}
	return CompareSettled(anchor, corpus, limit, opts...)
}

// CompareSettled selects comparable events for an anchor that already has
// a volume. It needs no models.
func CompareSettled(anchor model.Event, corpus []model.Event, limit int, opts ...similarity.Option) (model.ComparisonSet, error) {
	similar, err := similarity.Select(anchor, corpus, limit, opts...)
	if err != nil {
		return model.ComparisonSet{}, err
	}
	metrics.ComparisonSetSize.Observe(float64(len(similar)))
	return model.ComparisonSet{Anchor: anchor, Similar: similar}, nil
}

// Close releases the underlying ONNX sessions.
func (e *Engine) Close() error {
	var errs []error
	for _, c := range e.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
