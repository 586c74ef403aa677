package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/goccy/go-json"
)

// Output writes JSON records to stdout, one per line.
type Output struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// New creates a stdout Output with optional pretty-printed JSON.
func New(pretty bool) *Output {
	return NewWriter(os.Stdout, pretty)
}

// NewWriter is New for an arbitrary writer.
func NewWriter(w io.Writer, pretty bool) *Output {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return &Output{enc: enc}
}

func (o *Output) Write(_ context.Context, record any) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.enc.Encode(record); err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}
