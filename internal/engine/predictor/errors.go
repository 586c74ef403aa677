package predictor

import "fmt"

// Error kinds.
const (
	KindSchema    = "schema"
	KindInference = "inference"
	KindNonFinite = "non_finite"
)

// Error is a failure of the regression stage: a schema disagreement, an
// inference failure, or a non-finite model output.
type Error struct {
	Kind string
	Row  int // offending row for KindNonFinite, -1 otherwise
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := "prediction " + e.Kind + ": " + e.Msg
	if e.Row >= 0 {
		msg = fmt.Sprintf("%s (row %d)", msg, e.Row)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func schemaError(format string, args ...any) *Error {
	return &Error{Kind: KindSchema, Row: -1, Msg: fmt.Sprintf(format, args...)}
}
