package arch

import "errors"

var (
	ErrUnsupported = errors.New("architecture unsupported")
	ErrMismatch    = errors.New("architecture mismatch")
	ErrOverflow    = errors.New("relocation value overflow")
)
