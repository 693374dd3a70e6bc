package loader

import "errors"

var (
	ErrNoOffset        = errors.New("offset not covered by any loaded section")
	ErrOutOfRange      = errors.New("offset out of range")
	ErrPeekUnsupported = errors.New("storage does not keep object resident")
)
