//go:build linux && amd64

package portio

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Implemented in instruction_amd64.s.
func inb(port uint16) uint8
func inw(port uint16) uint16
func inl(port uint16) uint32
func outb(port uint16, value uint8)
func outw(port uint16, value uint16)
func outl(port uint16, value uint32)

// Instruction accesses I/O ports with IN/OUT instructions from user space. The
// process needs CAP_SYS_RAWIO; Claim grants access to a range with ioperm(2).
type Instruction struct{}

// NewInstruction returns the instruction backend.
func NewInstruction() (*Instruction, error) {
	return &Instruction{}, nil
}

// Claim enables user space access to [base, base+count).
func (Instruction) Claim(base Addr, count int) error {
	if err := unix.Ioperm(int(base), count, 1); err != nil {
		return fmt.Errorf("portio: ioperm 0x%x+%d: %w", uintptr(base), count, err)
	}
	return nil
}

// Unclaim drops access to the range. Errors are ignored.
func (Instruction) Unclaim(base Addr, count int) {
	_ = unix.Ioperm(int(base), count, 0)
}

func (Instruction) Read8(port Addr) uint8 { return inb(uint16(port)) }

func (Instruction) Write8(port Addr, value uint8) { outb(uint16(port), value) }

func (Instruction) Read16(port Addr) uint16 { return inw(uint16(port)) }

func (Instruction) Write16(port Addr, value uint16) { outw(uint16(port), value) }

func (Instruction) Read32(port Addr) uint32 { return inl(uint16(port)) }

func (Instruction) Write32(port Addr, value uint32) { outl(uint16(port), value) }
