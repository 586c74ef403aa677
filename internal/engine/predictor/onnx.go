package predictor

import (
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/crimson-sun/volcast/internal/engine/ortenv"
)

// MetaFeatureCols is the custom metadata key holding the JSON array of input
// column names the pipeline was fitted on.
const MetaFeatureCols = "feature_cols"

// ONNXRegressor runs an exported regression pipeline whose single input is a
// [batch, n_features] float32 matrix.
type ONNXRegressor struct {
	session   *ort.DynamicAdvancedSession
	columns   []string
	width     int
	outRank   int
	closeOnce sync.Once
}

// LoadONNX opens the pipeline at path. The ONNX Runtime environment must
// already be initialized (see ortenv.Init).
func LoadONNX(path string, intraOpThreads int) (*ONNXRegressor, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("pipeline: failed to read model info: %w", err)
	}
	if len(inputs) != 1 {
		return nil, fmt.Errorf("pipeline: expected 1 input tensor, got %d", len(inputs))
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("pipeline: model has no outputs")
	}
	in, out := inputs[0], outputs[0]
	if len(in.Dimensions) != 2 {
		return nil, fmt.Errorf("pipeline: expected 2D input, got %v", in.Dimensions)
	}
	if in.DataType != ort.TensorElementDataTypeFloat {
		return nil, fmt.Errorf("pipeline: expected float32 input, got %v", in.DataType)
	}
	rank := len(out.Dimensions)
	if rank != 1 && rank != 2 {
		return nil, fmt.Errorf("pipeline: expected 1D or 2D output, got %v", out.Dimensions)
	}

	cols, err := readFeatureCols(path)
	if err != nil {
		return nil, err
	}

	width := int(in.Dimensions[1])
	switch {
	case width <= 0 && cols == nil:
		return nil, fmt.Errorf("pipeline: input width is dynamic and no %s metadata is present", MetaFeatureCols)
	case width <= 0:
		width = len(cols)
	case cols != nil && len(cols) != width:
		return nil, fmt.Errorf("pipeline: %s lists %d columns but input is %d wide", MetaFeatureCols, len(cols), width)
	}

	opts, err := ortenv.SessionOptions(intraOpThreads)
	if err != nil {
		return nil, err
	}
	defer opts.Destroy()

	session, err := ort.NewDynamicAdvancedSession(path, []string{in.Name}, []string{out.Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("pipeline: failed to create session: %w", err)
	}
	return &ONNXRegressor{session: session, columns: cols, width: width, outRank: rank}, nil
}

func readFeatureCols(path string) ([]string, error) {
	md, err := ort.GetModelMetadata(path)
	if err != nil {
		return nil, fmt.Errorf("pipeline: failed to read metadata: %w", err)
	}
	defer md.Destroy()

	raw, ok, err := md.LookupCustomMetadataMap(MetaFeatureCols)
	if err != nil {
		return nil, fmt.Errorf("pipeline: failed to read metadata: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var cols []string
	if err := json.Unmarshal([]byte(raw), &cols); err != nil {
		return nil, fmt.Errorf("pipeline: bad %s metadata: %w", MetaFeatureCols, err)
	}
	return cols, nil
}

// Columns returns the fitted column names, or nil when the model does not
// carry them.
func (r *ONNXRegressor) Columns() []string { return r.columns }

// Width is the number of input features.
func (r *ONNXRegressor) Width() int { return r.width }

// Run evaluates rows of a flat row-major [rows, Width()] matrix.
func (r *ONNXRegressor) Run(x []float32, rows int) ([]float32, error) {
	in, err := ort.NewTensor(ort.NewShape(int64(rows), int64(r.width)), x)
	if err != nil {
		return nil, fmt.Errorf("pipeline: failed to create input tensor: %w", err)
	}
	defer in.Destroy()

	outShape := ort.NewShape(int64(rows))
	if r.outRank == 2 {
		outShape = ort.NewShape(int64(rows), 1)
	}
	out, err := ort.NewEmptyTensor[float32](outShape)
	if err != nil {
		return nil, fmt.Errorf("pipeline: failed to create output tensor: %w", err)
	}
	defer out.Destroy()

	if err := r.session.Run([]ort.Value{in}, []ort.Value{out}); err != nil {
		return nil, fmt.Errorf("pipeline: inference failed: %w", err)
	}
	return append([]float32(nil), out.GetData()...), nil
}

// Close releases the session. Safe to call more than once.
func (r *ONNXRegressor) Close() error {
	var err error
	r.closeOnce.Do(func() { err = r.session.Destroy() })
	return err
}
