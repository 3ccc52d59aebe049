package inference

import "errors"

var (
	// ErrTimeout indicates the pipeline did not answer within the hard
	// per-request timeout.
	ErrTimeout = errors.New("inference: model timed out")

	// ErrNoSpans indicates the classifier produced no usable role spans
	// for the utterance.
	ErrNoSpans = errors.New("inference: no usable spans")
)
