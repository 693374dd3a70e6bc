package arch

// CacheManager keeps split instruction/data caches coherent after patching.
// Platforms without cache management use no manager at all; the engine
// treats that as a no-op.
type CacheManager interface {
	// DataFlush writes dirty data-cache lines covering the region back to
	// memory.
	DataFlush(addr uint64, data []byte) error
	// InstrInvalidate discards stale instruction-cache lines covering the
	// region.
	InstrInvalidate(addr uint64, data []byte) error
}

// NoopCache is a CacheManager for coherent-cache platforms.
type NoopCache struct{}

func (NoopCache) DataFlush(addr uint64, data []byte) error       { return nil }
func (NoopCache) InstrInvalidate(addr uint64, data []byte) error { return nil }
