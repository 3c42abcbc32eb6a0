//go:build !linux

package portio

// OS is unavailable on this platform.
type OS struct{}

// NewOS reports ErrUnsupported: the port device is Linux only.
func NewOS(path string) (*OS, error) {
	return nil, ErrUnsupported
}

func (o *OS) Close() error { return nil }

func (o *OS) Read8(port Addr) uint8 { return floating }

func (o *OS) Write8(port Addr, value uint8) {}

func (o *OS) Read16(port Addr) uint16 { return 0xFFFF }

func (o *OS) Write16(port Addr, value uint16) {}

func (o *OS) Read32(port Addr) uint32 { return 0xFFFFFFFF }

func (o *OS) Write32(port Addr, value uint32) {}
