package features

import (
	"fmt"
	"strings"
)

// MismatchError reports feature columns the model needs but the builder
// cannot produce.
type MismatchError struct {
	Missing []string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("feature mismatch: cannot produce columns [%s]", strings.Join(e.Missing, ", "))
}
