// Completion: 100% - Utility module complete
package engine

import (
	"fmt"
	"runtime"
	"strings"
)

// Arch is a CPU architecture. Only x86_64 is emitted; arm64 is
// recognised so it can be rejected by name.
type Arch int

const (
	ArchUnknown Arch = iota
	ArchX86_64
	ArchARM64
)

func (a Arch) String() string {
	switch a {
	case ArchX86_64:
		return "x86_64"
	case ArchARM64:
		return "aarch64"
	default:
		return "unknown"
	}
}

// ParseArch parses an architecture string (like GOARCH values)
func ParseArch(s string) (Arch, error) {
	switch strings.ToLower(s) {
	case "x86_64", "amd64", "x86-64":
		return ArchX86_64, nil
	case "aarch64", "arm64":
		return ArchARM64, nil
	default:
		return ArchUnknown, fmt.Errorf("unknown architecture: %s", s)
	}
}

// OS type
type OS int

const (
	OSUnknown OS = iota
	OSLinux
	OSDarwin
	OSWindows
)

func (o OS) String() string {
	switch o {
	case OSLinux:
		return "linux"
	case OSDarwin:
		return "darwin"
	case OSWindows:
		return "windows"
	default:
		return "unknown"
	}
}

// ParseOS parses an OS string (like GOOS values)
func ParseOS(s string) (OS, error) {
	switch strings.ToLower(s) {
	case "linux":
		return OSLinux, nil
	case "darwin", "macos":
		return OSDarwin, nil
	case "windows", "win":
		return OSWindows, nil
	default:
		return OSUnknown, fmt.Errorf("unknown OS: %s", s)
	}
}

// Platform is a target platform (architecture + OS)
type Platform struct {
	Arch Arch
	OS   OS
}

// Target is the only platform the code generator emits
var Target = Platform{Arch: ArchX86_64, OS: OSLinux}

func (p Platform) String() string {
	return fmt.Sprintf("%s-%s", p.Arch, p.OS)
}

// ParsePlatform parses "arch-os" or "arch/os", like "amd64-linux" or
// "x86_64/linux". A bare architecture implies linux.
func ParsePlatform(s string) (Platform, error) {
	archPart, osPart, found := strings.Cut(s, "/")
	if !found {
		// x86_64 and x86-64 contain separators of their own
		if i := strings.LastIndex(s, "-"); i > 0 {
			if _, err := ParseOS(s[i+1:]); err == nil {
				archPart, osPart, found = s[:i], s[i+1:], true
			}
		}
	}
	if !found {
		osPart = "linux"
	}
	arch, err := ParseArch(archPart)
	if err != nil {
		return Platform{}, err
	}
	os, err := ParseOS(osPart)
	if err != nil {
		return Platform{}, err
	}
	return Platform{Arch: arch, OS: os}, nil
}

// Supported returns an error unless p is a platform the code generator emits
func (p Platform) Supported() error {
	if p != Target {
		return fmt.Errorf("unsupported target %s (supported: %s)", p, Target)
	}
	return nil
}

// Host returns the platform the compiler runs on
func Host() Platform {
	arch, _ := ParseArch(runtime.GOARCH)
	os, _ := ParseOS(runtime.GOOS)
	return Platform{Arch: arch, OS: os}
}

// CanRun reports whether binaries for the target can run on this machine
func CanRun() bool {
	return Host() == Target
}
