package utils

// ErrStage indicates a failure of one pipeline stage,
// the status column keeps only the message of the wrapped error
type ErrStage struct {
	Stage string
	err   error
}

// NewErrStage creates new error
func NewErrStage(stage string, err error) error {
	return &ErrStage{Stage: stage, err: err}
}

func (e *ErrStage) Error() string {
	return e.Stage + " failed: " + e.err.Error()
}

func (e *ErrStage) Unwrap() error {
	return e.err
}
