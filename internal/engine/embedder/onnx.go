package embedder

import (
	"fmt"
	"slices"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/crimson-sun/volcast/internal/engine/ortenv"
)

// Preferred output tensors. Plain transformer exports expose token states;
// some sentence-transformers exports also carry an already pooled vector.
const (
	outTokenStates = "last_hidden_state"
	outPooled      = "sentence_embedding"
)

// onnxSession wraps a DynamicAdvancedSession for BERT-style encoders.
type onnxSession struct {
	session    *ort.DynamicAdvancedSession
	inputNames []string
	outputName string
	pooled     bool // output is [batch, dim] rather than [batch, seq, dim]
	dim        int
}

func newONNXSession(modelPath string, intraOpThreads int) (*onnxSession, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to read model info: %w", err)
	}

	inputNames, err := selectInputs(inputs)
	if err != nil {
		return nil, err
	}
	out, err := selectOutput(outputs)
	if err != nil {
		return nil, err
	}
	dims := out.Dimensions
	dim := dims[len(dims)-1]
	if dim <= 0 {
		return nil, fmt.Errorf("onnx: output %q has dynamic hidden size %v", out.Name, dims)
	}

	opts, err := ortenv.SessionOptions(intraOpThreads)
	if err != nil {
		return nil, err
	}
	defer opts.Destroy()

	session, err := ort.NewDynamicAdvancedSession(modelPath, inputNames, []string{out.Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session: %w", err)
	}

	return &onnxSession{
		session:    session,
		inputNames: inputNames,
		outputName: out.Name,
		pooled:     len(dims) == 2,
		dim:        int(dim),
	}, nil
}

// selectInputs requires input_ids and attention_mask. token_type_ids is fed
// only when the graph declares it (DistilBERT-style exports drop it).
func selectInputs(inputs []ort.InputOutputInfo) ([]string, error) {
	have := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		have[in.Name] = true
	}
	names := []string{"input_ids", "attention_mask"}
	for _, name := range names {
		if !have[name] {
			return nil, fmt.Errorf("onnx: model missing required input %q", name)
		}
	}
	if have["token_type_ids"] {
		names = append(names, "token_type_ids")
	}
	return names, nil
}

func selectOutput(outputs []ort.InputOutputInfo) (ort.InputOutputInfo, error) {
	if len(outputs) == 0 {
		return ort.InputOutputInfo{}, fmt.Errorf("onnx: model has no outputs")
	}
	for _, want := range []string{outTokenStates, outPooled} {
		i := slices.IndexFunc(outputs, func(o ort.InputOutputInfo) bool { return o.Name == want })
		if i >= 0 {
			return outputs[i], nil
		}
	}
	out := outputs[0]
	if n := len(out.Dimensions); n != 2 && n != 3 {
		return ort.InputOutputInfo{}, fmt.Errorf("onnx: expected 2D or 3D output tensor, got %v", out.Dimensions)
	}
	return out, nil
}

// infer runs one batch and returns one vector per sequence, pooled over the
// attention mask when the model emits token states.
func (s *onnxSession) infer(b batch) ([][]float32, error) {
	shape := ort.NewShape(b.size, b.seqLen)

	feeds := map[string][]int64{
		"input_ids":      b.inputIDs,
		"attention_mask": b.attentionMask,
		"token_type_ids": b.tokenTypeIDs,
	}
	inputs := make([]ort.Value, 0, len(s.inputNames))
	defer func() {
		for _, v := range inputs {
			v.Destroy()
		}
	}()
	for _, name := range s.inputNames {
		t, err := ort.NewTensor(shape, feeds[name])
		if err != nil {
			return nil, fmt.Errorf("onnx: failed to create %s tensor: %w", name, err)
		}
		inputs = append(inputs, t)
	}

	outShape := ort.NewShape(b.size, b.seqLen, int64(s.dim))
	if s.pooled {
		outShape = ort.NewShape(b.size, int64(s.dim))
	}
	out, err := ort.NewEmptyTensor[float32](outShape)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create output tensor: %w", err)
	}
	defer out.Destroy()

	if err := s.session.Run(inputs, []ort.Value{out}); err != nil {
		return nil, fmt.Errorf("onnx: inference failed: %w", err)
	}

	data := out.GetData()
	if !s.pooled {
		return meanPool(data, b.attentionMask, int(b.size), int(b.seqLen), s.dim), nil
	}
	vecs := make([][]float32, b.size)
	for i := range vecs {
		vecs[i] = slices.Clone(data[i*s.dim : (i+1)*s.dim])
	}
	return vecs, nil
}

func (s *onnxSession) close() error {
	return s.session.Destroy()
}
