package embedder

import (
	"fmt"

	"github.com/crimson-sun/volcast/internal/engine/artifact"
)

// Reduced composes an Embedder with the bundle's fitted reducer, yielding
// the low-dimensional title vectors the regression pipeline was trained on.
type Reduced struct {
	base    Embedder
	reducer *artifact.Reducer
}

// NewReduced checks once that the reducer accepts the embedder's output
// width.
func NewReduced(base Embedder, reducer *artifact.Reducer) (*Reduced, error) {
	if reducer.InDim != base.Dim() {
		return nil, &artifact.MismatchError{
			What: "reducer input width",
			Want: reducer.InDim,
			Got:  base.Dim(),
		}
	}
	return &Reduced{base: base, reducer: reducer}, nil
}

// Dim is the reduced width.
func (r *Reduced) Dim() int { return r.reducer.OutDim }

// EmbedTitles embeds every title in one batch and reduces each vector.
func (r *Reduced) EmbedTitles(titles []string) ([][]float64, error) {
	if len(titles) == 0 {
		return nil, nil
	}
	vecs, err := r.base.EmbedBatch(titles)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(titles) {
		return nil, fmt.Errorf("embedder: got %d vectors for %d titles", len(vecs), len(titles))
	}

	out := make([][]float64, len(vecs))
	for i, v := range vecs {
		if out[i], err = r.reducer.Transform(v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Close closes the underlying embedder.
func (r *Reduced) Close() error {
	return r.base.Close()
}
