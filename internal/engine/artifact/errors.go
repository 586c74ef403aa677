package artifact

import "fmt"

// MismatchError reports an artifact that is incompatible with the running
// embedder, reducer or feature builder. It is fatal and never retried.
type MismatchError struct {
	What string
	Want any
	Got  any
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("artifact mismatch: %s: want %v, got %v", e.What, e.Want, e.Got)
}
