//go:build !linux

package portio

// MMIO is unavailable on this platform.
type MMIO struct{}

// MapMemory reports ErrUnsupported: physical memory mapping is Linux only.
func MapMemory(path string, phys Addr, count int) (*MMIO, error) {
	return nil, ErrUnsupported
}

func (m *MMIO) Unmap() error { return nil }

func (m *MMIO) Mapped() bool { return false }

func (m *MMIO) Read8(port Addr) uint8 { return floating }

func (m *MMIO) Write8(port Addr, value uint8) {}

func (m *MMIO) Read16(port Addr) uint16 { return 0xFFFF }

func (m *MMIO) Write16(port Addr, value uint16) {}

func (m *MMIO) Read32(port Addr) uint32 { return 0xFFFFFFFF }

func (m *MMIO) Write32(port Addr, value uint32) {}
