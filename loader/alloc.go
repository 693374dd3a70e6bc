package loader

// AllocRegions reserves a backing Region for every non-empty size in sizes,
// honoring the requested alignment. Returned regions are writable; call
// Protect after linking to apply final protections where the platform
// supports it.
func AllocRegions(sizes [MemCount]uint64, alignment uint64) ([MemCount]Region, error) {
	var regions [MemCount]Region
	for m := Mem(0); m < MemCount; m++ {
		if sizes[m] == 0 {
			continue
		}
		r, err := Alloc(Align(sizes[m], alignment))
		if err != nil {
			for f := Mem(0); f < m; f++ {
				if !regions[f].Empty() {
					Free(regions[f])
				}
			}
			return regions, err
		}
		regions[m] = r
	}
	return regions, nil
}
