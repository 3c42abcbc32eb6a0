//go:build linux

package portio

import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// MMIO is a window of physical memory mapped into the process. Addresses passed
// to its methods are physical addresses inside the window.
type MMIO struct {
	phys Addr
	mem  []byte
}

// MapMemory maps count bytes of physical memory at phys from the memory device at
// path. The window is rounded out to page boundaries.
func MapMemory(path string, phys Addr, count int) (*MMIO, error) {
	if count <= 0 {
		return nil, fmt.Errorf("portio: map 0x%x: invalid length %d", uintptr(phys), count)
	}
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_SYNC|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("portio: open %s: %w", path, err)
	}
	defer unix.Close(fd)

	page := Addr(os.Getpagesize())
	start := phys &^ (page - 1)
	length := int((phys - start) + Addr(count))
	length = (length + int(page) - 1) &^ (int(page) - 1)

	mem, err := unix.Mmap(fd, int64(start), length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("portio: mmap %s at 0x%x+%d: %w", path, uintptr(start), length, err)
	}
	return &MMIO{phys: start, mem: mem}, nil
}

// Unmap releases the mapping. It is safe to call more than once.
func (m *MMIO) Unmap() error {
	if m.mem == nil {
		return nil
	}
	err := unix.Munmap(m.mem)
	m.mem = nil
	return err
}

// Mapped reports whether the window is still mapped.
func (m *MMIO) Mapped() bool { return m.mem != nil }

func (m *MMIO) ptr(port Addr, size int) unsafe.Pointer {
	off := int(port - m.phys)
	if port < m.phys || off+size > len(m.mem) {
		return nil
	}
	return unsafe.Pointer(&m.mem[off])
}

// Narrow accesses stay out of line so every call is one load or store at the
// register; 32-bit accesses use atomic loads and stores.

//go:noinline
func (m *MMIO) Read8(port Addr) uint8 {
	p := m.ptr(port, 1)
	if p == nil {
		return floating
	}
	return *(*uint8)(p)
}

//go:noinline
func (m *MMIO) Write8(port Addr, value uint8) {
	if p := m.ptr(port, 1); p != nil {
		*(*uint8)(p) = value
	}
}

//go:noinline
func (m *MMIO) Read16(port Addr) uint16 {
	p := m.ptr(port, 2)
	if p == nil {
		return 0xFFFF
	}
	return *(*uint16)(p)
}

//go:noinline
func (m *MMIO) Write16(port Addr, value uint16) {
	if p := m.ptr(port, 2); p != nil {
		*(*uint16)(p) = value
	}
}

func (m *MMIO) Read32(port Addr) uint32 {
	p := m.ptr(port, 4)
	if p == nil {
		return 0xFFFFFFFF
	}
	return atomic.LoadUint32((*uint32)(p))
}

func (m *MMIO) Write32(port Addr, value uint32) {
	if p := m.ptr(port, 4); p != nil {
		atomic.StoreUint32((*uint32)(p), value)
	}
}
