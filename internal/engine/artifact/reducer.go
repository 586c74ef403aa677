package artifact

import (
	"fmt"
	"math"
	"strconv"
)

// Tensor names inside the reducer safetensors file.
const (
	tensorComponents = "pca.components"
	tensorMean       = "pca.mean"
	tensorVariance   = "pca.explained_variance"
	metaWhiten       = "whiten"
)

// Reducer is a fitted linear dimensionality reduction (PCA):
// out = (x - mean) · componentsᵀ, optionally scaled by 1/sqrt(variance).
type Reducer struct {
	Components []float32 // row-major [OutDim, InDim]
	Mean       []float32 // [InDim]
	Variance   []float32 // [OutDim], only used when Whiten is set
	Whiten     bool
	InDim      int
	OutDim     int
}

// Validate checks that the stored tensors agree with the declared widths.
func (r *Reducer) Validate() error {
	if r.InDim <= 0 || r.OutDim <= 0 {
		return fmt.Errorf("reducer: invalid dimensions %dx%d", r.OutDim, r.InDim)
	}
	if len(r.Components) != r.InDim*r.OutDim {
		return fmt.Errorf("reducer: components has %d values, want %d", len(r.Components), r.InDim*r.OutDim)
	}
	if len(r.Mean) != r.InDim {
		return fmt.Errorf("reducer: mean has %d values, want %d", len(r.Mean), r.InDim)
	}
	if r.Whiten {
		if len(r.Variance) != r.OutDim {
			return fmt.Errorf("reducer: whiten requires %d variances, got %d", r.OutDim, len(r.Variance))
		}
		for i, v := range r.Variance {
			if v <= 0 {
				return fmt.Errorf("reducer: variance[%d] = %v, must be positive", i, v)
			}
		}
	}
	return nil
}

// Transform projects a single vector from InDim to OutDim. Components are
// applied in their fitted order, so output column i is principal component i.
func (r *Reducer) Transform(vec []float32) ([]float64, error) {
	if len(vec) != r.InDim {
		return nil, &MismatchError{What: "reducer input width", Want: r.InDim, Got: len(vec)}
	}

	centered := make([]float64, r.InDim)
	for j, x := range vec {
		centered[j] = float64(x) - float64(r.Mean[j])
	}

	out := make([]float64, r.OutDim)
	for i := 0; i < r.OutDim; i++ {
		row := r.Components[i*r.InDim : (i+1)*r.InDim]
		var sum float64
		for j, w := range row {
			sum += float64(w) * centered[j]
		}
		if r.Whiten {
			sum /= math.Sqrt(float64(r.Variance[i]))
		}
		out[i] = sum
	}
	return out, nil
}

// LoadReducer reads a reducer from a safetensors file.
func LoadReducer(path string) (*Reducer, error) {
	tensors, meta, err := ReadSafetensors(path)
	if err != nil {
		return nil, fmt.Errorf("reducer: %w", err)
	}

	comp, ok := tensors[tensorComponents]
	if !ok {
		return nil, fmt.Errorf("reducer: tensor %q not found", tensorComponents)
	}
	if len(comp.Shape) != 2 {
		return nil, fmt.Errorf("reducer: expected 2D components, got shape %v", comp.Shape)
	}
	mean, ok := tensors[tensorMean]
	if !ok {
		return nil, fmt.Errorf("reducer: tensor %q not found", tensorMean)
	}

	r := &Reducer{
		Components: comp.Data,
		Mean:       mean.Data,
		OutDim:     comp.Shape[0],
		InDim:      comp.Shape[1],
	}
	if v, ok := tensors[tensorVariance]; ok {
		r.Variance = v.Data
	}
	if s, ok := meta[metaWhiten]; ok {
		if r.Whiten, err = strconv.ParseBool(s); err != nil {
			return nil, fmt.Errorf("reducer: bad whiten flag %q", s)
		}
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Save writes the reducer as a safetensors file readable by LoadReducer.
func (r *Reducer) Save(path string) error {
	if err := r.Validate(); err != nil {
		return err
	}
	tensors := map[string]Tensor{
		tensorComponents: {Shape: []int{r.OutDim, r.InDim}, Data: r.Components},
		tensorMean:       {Shape: []int{r.InDim}, Data: r.Mean},
	}
	if len(r.Variance) > 0 {
		tensors[tensorVariance] = Tensor{Shape: []int{len(r.Variance)}, Data: r.Variance}
	}
	meta := map[string]string{metaWhiten: strconv.FormatBool(r.Whiten)}
	return WriteSafetensors(path, tensors, meta)
}
