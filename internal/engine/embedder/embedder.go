package embedder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/crimson-sun/volcast/internal/engine/ortenv"
)

// Embedder produces vector embeddings from text.
type Embedder interface {
	Embed(text string) ([]float32, error)
	EmbedBatch(texts []string) ([][]float32, error)
	Dim() int
	Close() error
}

// Config locates a sentence-transformers model exported to ONNX.
type Config struct {
	// ModelDir holds model.onnx (or model_quantized.onnx), vocab.txt and an
	// optional 2_Dense/ module.
	ModelDir string
	// LibPath is the ONNX Runtime shared library. When empty it is looked up
	// in ModelDir and then in ModelDir's parent.
	LibPath        string
	Normalize      bool
	MaxSeqLen      int
	IntraOpThreads int
}

// Files are the resolved paths inside a model directory.
type Files struct {
	Model      string
	Vocab      string
	Projection string // empty when the model has no Dense module
}

var modelCandidates = []string{
	"model.onnx",
	"model_quantized.onnx",
	filepath.Join("onnx", "model.onnx"),
	filepath.Join("onnx", "model_quantized.onnx"),
}

// Locate resolves the files of the model in dir.
func Locate(dir string) (Files, error) {
	var f Files
	for _, name := range modelCandidates {
		if p := filepath.Join(dir, name); exists(p) {
			f.Model = p
			break
		}
	}
	if f.Model == "" {
		return f, fmt.Errorf("embedder: no ONNX model in %s", dir)
	}
	f.Vocab = filepath.Join(dir, "vocab.txt")
	if !exists(f.Vocab) {
		return f, fmt.Errorf("embedder: vocab.txt not found in %s", dir)
	}
	if p := filepath.Join(dir, "2_Dense", "model.safetensors"); exists(p) {
		f.Projection = p
	}
	return f, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}

// ONNXEmbedder runs the full sentence-transformers stack locally:
// tokenize → ONNX encoder → mean pool → optional Dense → optional L2 norm.
type ONNXEmbedder struct {
	session   *onnxSession
	tok       *tokenizer
	proj      *projection
	normalize bool
}

// New loads the model described by cfg.
func New(cfg Config) (*ONNXEmbedder, error) {
	files, err := Locate(cfg.ModelDir)
	if err != nil {
		return nil, err
	}

	libPath := cfg.LibPath
	if libPath == "" {
		libPath, err = ortenv.FindLibrary(cfg.ModelDir, filepath.Dir(cfg.ModelDir))
		if err != nil {
			return nil, fmt.Errorf("embedder: %w", err)
		}
	}
	if err := ortenv.Init(libPath); err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	tok, err := newTokenizer(files.Vocab, cfg.MaxSeqLen)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	var proj *projection
	if files.Projection != "" {
		if proj, err = loadProjection(files.Projection); err != nil {
			return nil, fmt.Errorf("embedder: %w", err)
		}
	}

	sess, err := newONNXSession(files.Model, cfg.IntraOpThreads)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	if proj != nil && sess.dim != proj.inDim {
		sess.close()
		return nil, fmt.Errorf("embedder: ONNX output dim %d != projection input dim %d",
			sess.dim, proj.inDim)
	}

	return &ONNXEmbedder{session: sess, tok: tok, proj: proj, normalize: cfg.Normalize}, nil
}

// Dim returns the final embedding width.
func (e *ONNXEmbedder) Dim() int {
	if e.proj != nil {
		return e.proj.outDim
	}
	return e.session.dim
}

// Embed produces a single embedding vector for the given text.
func (e *ONNXEmbedder) Embed(text string) ([]float32, error) {
	vecs, err := e.EmbedBatch([]string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds all texts in a single ONNX call.
func (e *ONNXEmbedder) EmbedBatch(texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vecs, err := e.session.infer(e.tok.encodeBatch(texts))
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	for i, v := range vecs {
		if e.proj != nil {
			v = e.proj.apply(v)
		}
		if e.normalize {
			l2Normalize(v)
		}
		vecs[i] = v
	}
	return vecs, nil
}

// Close releases ONNX Runtime resources.
func (e *ONNXEmbedder) Close() error {
	if e.session != nil {
		return e.session.close()
	}
	return nil
}
