package output

import (
	"context"
)

// Output is an NDJSON destination. Each Write emits one JSON document per
// line; callers pass prediction lines or comparison sets.
type Output interface {
	Write(ctx context.Context, record any) error
	Close() error
}
