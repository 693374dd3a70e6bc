package loader

import "golang.org/x/exp/constraints"

// Align rounds a up to the next multiple of b, which must be a power of two.
func Align[I constraints.Integer](a, b I) I {
	return (a + b - 1) &^ (b - 1)
}
