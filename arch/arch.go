// Package arch defines the architecture capability the linking engine
// delegates bit-level patching to, one implementation per target
// architecture.
package arch

type Arch int

const (
	ARCH_UNKNOWN Arch = iota
	ARCH_ARM
	ARCH_ARM64
	ARCH_X86_64
	ARCH_XTENSA
)

func (a Arch) String() string {
	switch a {
	case ARCH_ARM:
		return "arm"
	case ARCH_ARM64:
		return "arm64"
	case ARCH_X86_64:
		return "x86_64"
	case ARCH_XTENSA:
		return "xtensa"
	}
	return "unknown"
}
