package embedder

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"github.com/crimson-sun/volcast/internal/engine/artifact"
)

// projection is a sentence-transformers Dense module: out = act(W·x + b).
type projection struct {
	weights []float32 // row-major [outDim, inDim]
	bias    []float32 // [outDim] or nil
	tanh    bool
	inDim   int
	outDim  int
}

// denseConfig is the config.json written next to a Dense module's weights.
type denseConfig struct {
	InFeatures         int    `json:"in_features"`
	OutFeatures        int    `json:"out_features"`
	Bias               bool   `json:"bias"`
	ActivationFunction string `json:"activation_function"`
}

// loadProjection reads linear.weight (and linear.bias when present) from a
// safetensors file. The activation comes from config.json in the same
// directory; without one the layer is linear.
func loadProjection(path string) (*projection, error) {
	tensors, _, err := artifact.ReadSafetensors(path)
	if err != nil {
		return nil, fmt.Errorf("projection: %w", err)
	}

	w, ok := tensors["linear.weight"]
	if !ok {
		return nil, fmt.Errorf("projection: tensor 'linear.weight' not found")
	}
	if len(w.Shape) != 2 {
		return nil, fmt.Errorf("projection: expected 2D tensor, got shape %v", w.Shape)
	}

	p := &projection{
		weights: w.Data,
		outDim:  w.Shape[0],
		inDim:   w.Shape[1],
	}
	if b, ok := tensors["linear.bias"]; ok {
		if b.Len() != p.outDim {
			return nil, fmt.Errorf("projection: bias has %d values, want %d", b.Len(), p.outDim)
		}
		p.bias = b.Data
	}

	cfg, err := readDenseConfig(filepath.Join(filepath.Dir(path), "config.json"))
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		switch act := cfg.ActivationFunction; {
		case act == "" || strings.HasSuffix(act, "Identity"):
		case strings.HasSuffix(act, "Tanh"):
			p.tanh = true
		default:
			return nil, fmt.Errorf("projection: unsupported activation %q", act)
		}
	}
	return p, nil
}

func readDenseConfig(path string) (*denseConfig, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("projection: %w", err)
	}
	var cfg denseConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("projection: parse %s: %w", path, err)
	}
	return &cfg, nil
}

// apply projects a single vector from inDim to outDim.
func (p *projection) apply(vec []float32) []float32 {
	out := make([]float32, p.outDim)
	for i := range p.outDim {
		row := p.weights[i*p.inDim : (i+1)*p.inDim]
		var sum float32
		for j, w := range row {
			sum += w * vec[j]
		}
		if p.bias != nil {
			sum += p.bias[i]
		}
		if p.tanh {
			sum = float32(math.Tanh(float64(sum)))
		}
		out[i] = sum
	}
	return out
}
