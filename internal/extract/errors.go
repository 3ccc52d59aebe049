package extract

import "errors"

var (
	// ErrMalformedIR indicates the model path returned an IR that breaks
	// the contract (wrong request, missing path tag, or kindless clauses).
	ErrMalformedIR = errors.New("extract: malformed ir")
)
