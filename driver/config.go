package driver

import (
	"fmt"
	"time"

	"example.com/serio/driver/portio"
	"example.com/serio/driver/uart"
)

// Defaults for the transmit poll loop.
const (
	MaxTxAttempts = 100
	TxPollDelay   = 1 * time.Microsecond
)

// DefaultDeviceName is the name a single-port driver publishes its device under.
const DefaultDeviceName = "SerialPort"

// Space says which address space the port registers live in.
type Space int

const (
	MemorySpace Space = 0
	IOSpace     Space = 1
)

func (s Space) String() string {
	switch s {
	case MemorySpace:
		return "memory"
	case IOSpace:
		return "io"
	}
	return fmt.Sprintf("Space(%d)", int(s))
}

// ParseSpace accepts "io" or "memory".
func ParseSpace(name string) (Space, error) {
	switch name {
	case "io", "port":
		return IOSpace, nil
	case "memory", "mem", "mmio":
		return MemorySpace, nil
	}
	return 0, fmt.Errorf("%w: address space %q", ErrInvalidConfig, name)
}

// Config describes one device instance. The line format is recorded in the device
// context but not programmed into the UART.
type Config struct {
	BaseAddress portio.Addr
	PortCount   int
	PortSpace   Space

	BaudRate uint32
	DataBits uint8
	StopBits uint8
	Parity   uart.Parity

	// BackendKind selects the I/O space backend when Backend is nil.
	BackendKind portio.Kind
	// Backend, if set, is used as is for I/O space and never closed by the device.
	Backend portio.Backend
	// MemoryDevice is the device node mapped for memory space registers.
	MemoryDevice string

	// Exclusive allows only one open handle at a time.
	Exclusive bool

	MaxTxAttempts int
	TxPollDelay   time.Duration
	Staller       Staller

	Debug bool
}

// DefaultConfig returns COM1 in I/O space at 9600 8N1, driven by IN/OUT instructions.
func DefaultConfig() Config {
	return Config{
		BaseAddress:   uart.COM1_BASE,
		PortCount:     uart.PORT_COUNT,
		PortSpace:     IOSpace,
		BaudRate:      9600,
		DataBits:      8,
		StopBits:      1,
		Parity:        uart.ParityNone,
		BackendKind:   portio.KindInstruction,
		MemoryDevice:  portio.DefaultMemoryDevice,
		MaxTxAttempts: MaxTxAttempts,
		TxPollDelay:   TxPollDelay,
	}
}

// validate fills unset poll parameters and rejects formats the UART cannot produce.
func (c *Config) validate() error {
	if c.PortCount < uart.PORT_COUNT {
		return fmt.Errorf("%w: port count %d, need %d", ErrInvalidConfig, c.PortCount, uart.PORT_COUNT)
	}
	if c.PortSpace != IOSpace && c.PortSpace != MemorySpace {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, c.PortSpace)
	}
	if c.PortSpace == IOSpace && c.BaseAddress+portio.Addr(c.PortCount) > 0x10000 {
		return fmt.Errorf("%w: I/O range 0x%x+%d exceeds port space", ErrInvalidConfig, uintptr(c.BaseAddress), c.PortCount)
	}
	if _, err := uart.Divisor(c.BaudRate); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := uart.LineControl(c.DataBits, c.StopBits, c.Parity); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.MaxTxAttempts <= 0 {
		c.MaxTxAttempts = MaxTxAttempts
	}
	if c.TxPollDelay < 0 {
		c.TxPollDelay = TxPollDelay
	}
	if c.Staller == nil {
		c.Staller = SpinStaller{}
	}
	if c.MemoryDevice == "" {
		c.MemoryDevice = portio.DefaultMemoryDevice
	}
	return nil
}
