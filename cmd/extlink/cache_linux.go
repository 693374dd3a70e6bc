//go:build linux

package main

import "github.com/wnxd/extlink/arch"

func cacheFor() arch.CacheManager {
	return arch.SysCache{}
}
