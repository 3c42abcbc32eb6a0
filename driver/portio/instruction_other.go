//go:build !(linux && amd64)

package portio

// Instruction is unavailable on this platform.
type Instruction struct{}

// NewInstruction reports ErrUnsupported: IN/OUT emission is only built for linux/amd64.
func NewInstruction() (*Instruction, error) {
	return nil, ErrUnsupported
}

func (Instruction) Claim(base Addr, count int) error { return ErrUnsupported }

func (Instruction) Unclaim(base Addr, count int) {}

func (Instruction) Read8(port Addr) uint8 { return floating }

func (Instruction) Write8(port Addr, value uint8) {}

func (Instruction) Read16(port Addr) uint16 { return 0xFFFF }

func (Instruction) Write16(port Addr, value uint16) {}

func (Instruction) Read32(port Addr) uint32 { return 0xFFFFFFFF }

func (Instruction) Write32(port Addr, value uint32) {}
