package linker

import "errors"

var (
	ErrBadFormat   = errors.New("invalid object format")
	ErrNotWritable = errors.New("cannot patch read-only backed object")
)
