package artifact

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

const (
	// ManifestFile is the bundle's metadata document.
	ManifestFile = "bundle.json"

	defaultReducerFile  = "reducer.safetensors"
	defaultPipelineFile = "pipeline.onnx"
)

// Manifest describes how training-time features were built, so inference can
// rebuild them identically.
type Manifest struct {
	SchemaVersion       int      `json:"schema_version"`
	SentenceModelName   string   `json:"sentence_model_name"`
	NormalizeEmbeddings bool     `json:"normalize_embeddings"`
	TitleEmbCols        []string `json:"title_emb_cols"`
	FeatureCols         []string `json:"feature_cols"`
	ReducerFile         string   `json:"reducer_file,omitempty"`
	PipelineFile        string   `json:"pipeline_file,omitempty"`
}

// Bundle is a loaded artifact bundle. Immutable after Load; safe to share
// across goroutines.
type Bundle struct {
	Manifest
	Dir     string
	Reducer *Reducer
}

// Load reads the bundle in dir and checks it against the schema version the
// running feature builder implements.
func Load(dir string, schemaVersion int) (*Bundle, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("artifact: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("artifact: parse %s: %w", ManifestFile, err)
	}
	if m.SchemaVersion != schemaVersion {
		return nil, &MismatchError{What: "schema version", Want: schemaVersion, Got: m.SchemaVersion}
	}
	if m.ReducerFile == "" {
		m.ReducerFile = defaultReducerFile
	}
	if m.PipelineFile == "" {
		m.PipelineFile = defaultPipelineFile
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("artifact: %w", err)
	}

	red, err := LoadReducer(filepath.Join(dir, m.ReducerFile))
	if err != nil {
		return nil, fmt.Errorf("artifact: %w", err)
	}
	if red.OutDim != len(m.TitleEmbCols) {
		return nil, &MismatchError{What: "reduced embedding columns", Want: red.OutDim, Got: len(m.TitleEmbCols)}
	}

	return &Bundle{Manifest: m, Dir: dir, Reducer: red}, nil
}

// Save writes the manifest and reducer into dir. The regression pipeline is
// produced by training and is not written here.
func (b *Bundle) Save(dir string) error {
	if err := b.validate(); err != nil {
		return fmt.Errorf("artifact: %w", err)
	}
	if b.Reducer == nil {
		return fmt.Errorf("artifact: bundle has no reducer")
	}
	if b.Reducer.OutDim != len(b.TitleEmbCols) {
		return &MismatchError{What: "reduced embedding columns", Want: b.Reducer.OutDim, Got: len(b.TitleEmbCols)}
	}

	m := b.Manifest
	if m.ReducerFile == "" {
		m.ReducerFile = defaultReducerFile
	}
	if m.PipelineFile == "" {
		m.PipelineFile = defaultPipelineFile
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("artifact: %w", err)
	}
	if err := b.Reducer.Save(filepath.Join(dir, m.ReducerFile)); err != nil {
		return fmt.Errorf("artifact: %w", err)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("artifact: marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), data, 0644); err != nil {
		return fmt.Errorf("artifact: %w", err)
	}
	return nil
}

// PipelinePath returns the path of the trained regression pipeline.
func (b *Bundle) PipelinePath() string {
	return filepath.Join(b.Dir, b.PipelineFile)
}

func (m Manifest) validate() error {
	if m.SentenceModelName == "" {
		return fmt.Errorf("sentence_model_name is empty")
	}
	if len(m.FeatureCols) == 0 {
		return fmt.Errorf("feature_cols is empty")
	}
	if dup := firstDuplicate(m.FeatureCols); dup != "" {
		return fmt.Errorf("feature_cols: duplicate column %q", dup)
	}
	if dup := firstDuplicate(m.TitleEmbCols); dup != "" {
		return fmt.Errorf("title_emb_cols: duplicate column %q", dup)
	}
	return nil
}

func firstDuplicate(cols []string) string {
	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		if _, ok := seen[c]; ok {
			return c
		}
		seen[c] = struct{}{}
	}
	return ""
}
