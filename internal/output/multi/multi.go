package multi

import (
	"context"
	"errors"

	"github.com/crimson-sun/volcast/internal/output"
)

// Multi fans out records to several outputs in order. A failing output does
// not stop delivery to the rest.
type Multi struct {
	outputs []output.Output
}

// New creates a Multi that fans out to the given outputs.
func New(outputs ...output.Output) *Multi {
	return &Multi{outputs: outputs}
}

// Write delivers record to every wrapped output and joins their errors.
func (m *Multi) Write(ctx context.Context, record any) error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Write(ctx, record); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every wrapped output, collecting errors.
func (m *Multi) Close() error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
