// Package predictor runs the trained regression pipeline over feature rows
// and maps its log-scale output back to volumes.
package predictor

import (
	"math"
	"slices"
	"time"

	"github.com/crimson-sun/volcast/internal/logging"
	"github.com/crimson-sun/volcast/internal/metrics"
	"github.com/crimson-sun/volcast/internal/model"
)

// Regressor evaluates a fitted model on a row-major float32 matrix and
// returns one log1p(volume) value per row.
type Regressor interface {
	// Columns returns the fitted column names, or nil when unknown.
	Columns() []string
	Width() int
	Run(x []float32, rows int) ([]float32, error)
	Close() error
}

// Estimate is one volume prediction on the natural scale.
type Estimate struct {
	Volume    float64
	Anomalous bool // the model produced a volume outside [0, MaxVolume]; Volume was clamped
}

// MaxVolume is the largest volume an estimate can carry. Anything above it
// cannot be reported as an integer volume.
const MaxVolume = float64(math.MaxInt64)

// Predictor checks rows against the pipeline schema and inverts the
// log1p training target.
type Predictor struct {
	reg  Regressor
	cols []string
}

// New binds reg to the bundle's feature columns. The pipeline must agree with
// them: by name and order when it carries column metadata, by width
// otherwise.
func New(reg Regressor, featureCols []string) (*Predictor, error) {
	if err := checkSchema(reg, featureCols); err != nil {
		return nil, err
	}
	return &Predictor{reg: reg, cols: slices.Clone(featureCols)}, nil
}

func checkSchema(reg Regressor, cols []string) error {
	if reg.Width() != len(cols) {
		return schemaError("pipeline expects %d features, bundle declares %d", reg.Width(), len(cols))
	}
	if fitted := reg.Columns(); fitted != nil && !slices.Equal(fitted, cols) {
		return schemaError("pipeline columns %v differ from bundle feature_cols %v", fitted, cols)
	}
	return nil
}

// Predict returns one estimate per row, in order. Missing inputs (NaN) are
// passed through for the pipeline's imputer.
func (p *Predictor) Predict(rows []model.FeatureRow) ([]Estimate, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	width := len(p.cols)
	x := make([]float32, 0, len(rows)*width)
	for i, r := range rows {
		if !slices.Equal(r.Columns, p.cols) || len(r.Values) != width {
			err := schemaError("row columns %v do not match pipeline columns %v", r.Columns, p.cols)
			err.Row = i
			return nil, fail(err)
		}
		for _, v := range r.Values {
			x = append(x, float32(v))
		}
	}

	start := time.Now()
	y, err := p.reg.Run(x, len(rows))
	metrics.ObserveInference("regress", start)
	if err != nil {
		return nil, fail(&Error{Kind: KindInference, Row: -1, Msg: "pipeline run failed", Err: err})
	}
	if len(y) != len(rows) {
		return nil, fail(&Error{Kind: KindInference, Row: -1, Msg: "pipeline returned wrong number of outputs"})
	}

	out := make([]Estimate, len(rows))
	for i, v := range y {
		est, err := invert(float64(v))
		if err != nil {
			err.Row = i
			return nil, fail(err)
		}
		if est.Anomalous {
			metrics.AnomalousPredictions.Inc()
			logging.Warn().Int("row", i).Float64("log_volume", float64(v)).Float64("volume", est.Volume).
				Msg("out-of-range volume estimate clamped")
		}
		out[i] = est
	}
	metrics.PredictionsTotal.Add(float64(len(out)))
	return out, nil
}

// invert maps a log1p-scale output back to a volume.
func invert(logVol float64) (Estimate, *Error) {
	v := math.Expm1(logVol)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Estimate{}, &Error{Kind: KindNonFinite, Msg: "pipeline produced a non-finite volume"}
	}
	if v < 0 {
		return Estimate{Volume: 0, Anomalous: true}, nil
	}
	if v > MaxVolume {
		return Estimate{Volume: MaxVolume, Anomalous: true}, nil
	}
	return Estimate{Volume: v}, nil
}

func fail(err *Error) error {
	metrics.PredictionErrors.WithLabelValues(err.Kind).Inc()
	return err
}

// Close releases the underlying pipeline.
func (p *Predictor) Close() error {
	return p.reg.Close()
}
