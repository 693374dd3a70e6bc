package loader

// LoadParam carries caller-supplied placement knowledge into a link pass.
type LoadParam struct {
	// PreLocated is set when the extension was built for, and loaded
	// directly at, its final runtime address. No post-placement patching
	// occurred, so the instruction cache needs no invalidation.
	PreLocated bool
	// SectionDetached reports sections tracked outside the main region
	// classes; their caches are synchronized individually. Nil means no
	// detached sections.
	SectionDetached func(*SectionHeader) bool
}
