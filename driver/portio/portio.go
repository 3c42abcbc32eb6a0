// Package portio provides raw byte/word/dword access to hardware port addresses.
//
// Every access goes to the device; nothing is cached. A write followed by a read of
// the same address reflects whatever state the device is in, not the value written.
// None of the access methods can fail: a hardware fault is not detectable at this
// layer. Failures to obtain access (permissions, missing device nodes) surface when
// the backend is created or a range is claimed.
package portio

import (
	"errors"
	"fmt"
)

// Addr is an opaque hardware address: an I/O port number for I/O space backends,
// a physical address for memory space backends.
type Addr uintptr

// Backend reads and writes hardware registers.
type Backend interface {
	Read8(port Addr) uint8
	Write8(port Addr, value uint8)
	Read16(port Addr) uint16
	Write16(port Addr, value uint16)
	Read32(port Addr) uint32
	Write32(port Addr, value uint32)
}

// Claimer is implemented by backends that need permission from the OS before a
// port range can be touched.
type Claimer interface {
	Claim(base Addr, count int) error
	Unclaim(base Addr, count int)
}

// Kind selects a backend implementation.
type Kind int

const (
	// KindInstruction emits IN/OUT instructions directly.
	KindInstruction Kind = iota
	// KindOS goes through the operating system's port device (/dev/port).
	KindOS
	// KindEmulated routes accesses to software devices registered on a Bus.
	KindEmulated
)

func (k Kind) String() string {
	switch k {
	case KindInstruction:
		return "instruction"
	case KindOS:
		return "os"
	case KindEmulated:
		return "emulated"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a backend name to its Kind.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "instruction", "asm":
		return KindInstruction, nil
	case "os", "devport":
		return KindOS, nil
	case "emulated", "bus":
		return KindEmulated, nil
	}
	return 0, fmt.Errorf("portio: unknown backend %q", name)
}

// ErrUnsupported is returned when a backend is not available on this platform.
var ErrUnsupported = errors.New("portio: backend not supported on this platform")

// DefaultPortDevice is the OS port device used by KindOS.
const DefaultPortDevice = "/dev/port"

// DefaultMemoryDevice is the physical memory device used by MapMemory.
const DefaultMemoryDevice = "/dev/mem"

// floating is what an undriven bus reads as.
const floating = 0xFF

// New creates a hardware backend of the given kind. KindEmulated needs a Bus with
// devices attached, so it is built with NewBus instead.
func New(kind Kind) (Backend, error) {
	switch kind {
	case KindInstruction:
		b, err := NewInstruction()
		if err != nil {
			return nil, err
		}
		return b, nil
	case KindOS:
		b, err := NewOS(DefaultPortDevice)
		if err != nil {
			return nil, err
		}
		return b, nil
	case KindEmulated:
		return nil, fmt.Errorf("portio: emulated backend must be built with NewBus")
	}
	return nil, fmt.Errorf("portio: unknown backend kind %d", int(kind))
}
