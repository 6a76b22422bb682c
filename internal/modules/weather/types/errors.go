package types

import "errors"

// Error kinds. Wrap them with fmt.Errorf("%w: ...") and test with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrUpstream   = errors.New("upstream fetch failed")
	ErrStorage    = errors.New("storage failure")
)
