package extension

import "errors"

var (
	ErrSymbolNotFound    = errors.New("symbol not found")
	ErrExtensionNotFound = errors.New("extension not found")
)
