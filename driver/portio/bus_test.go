package portio_test

import (
	"fmt"
	"sync"
	"testing"

	"example.com/serio/driver/portio"
)

// MockDevice records accesses and serves reads from a register file.
type MockDevice struct {
	mu     sync.Mutex
	regs   map[uint16][]byte
	writes []access
	reads  []access
}

type access struct {
	port uint16
	size uint8
	data []byte
}

func NewMockDevice() *MockDevice {
	return &MockDevice{regs: make(map[uint16][]byte)}
}

func (m *MockDevice) HandleIO(port uint16, direction uint8, size uint8, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(data) != int(size) {
		return fmt.Errorf("MockDevice: size %d with %d byte buffer", size, len(data))
	}
	buf := make([]byte, size)
	switch direction {
	case portio.DirectionOut:
		copy(buf, data)
		m.regs[port] = buf
		m.writes = append(m.writes, access{port, size, buf})
	case portio.DirectionIn:
		copy(data, m.regs[port])
		m.reads = append(m.reads, access{port, size, nil})
	default:
		return fmt.Errorf("MockDevice: bad direction %d", direction)
	}
	return nil
}

func (m *MockDevice) Set(port uint16, value ...byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regs[port] = value
}

func (m *MockDevice) Writes() []access {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]access, len(m.writes))
	copy(out, m.writes)
	return out
}

func TestBusRoutesByteAccess(t *testing.T) {
	bus := portio.NewBus()
	dev := NewMockDevice()
	bus.RegisterDevice(0x3F8, 0x3FF, dev)

	dev.Set(0x3FD, 0x60)
	if got := bus.Read8(0x3FD); got != 0x60 {
		t.Fatalf("Read8(0x3FD) = 0x%02x, want 0x60", got)
	}

	bus.Write8(0x3F8, 'A')
	writes := dev.Writes()
	if len(writes) != 1 || writes[0].port != 0x3F8 || writes[0].data[0] != 'A' {
		t.Fatalf("unexpected writes: %+v", writes)
	}

	reads, wr := bus.Accesses()
	if reads != 1 || wr != 1 {
		t.Errorf("Accesses() = %d reads, %d writes; want 1, 1", reads, wr)
	}
	bus.ResetAccesses()
	if reads, wr = bus.Accesses(); reads != 0 || wr != 0 {
		t.Errorf("after reset: %d reads, %d writes", reads, wr)
	}
}

func TestBusWideAccessIsLittleEndian(t *testing.T) {
	bus := portio.NewBus()
	dev := NewMockDevice()
	bus.RegisterDevice(0x100, 0x100, dev)

	bus.Write16(0x100, 0xBEEF)
	if got := dev.Writes()[0].data; got[0] != 0xEF || got[1] != 0xBE {
		t.Errorf("Write16 bytes = % x, want ef be", got)
	}
	if got := bus.Read16(0x100); got != 0xBEEF {
		t.Errorf("Read16 = 0x%04x, want 0xbeef", got)
	}

	bus.Write32(0x100, 0x12345678)
	if got := bus.Read32(0x100); got != 0x12345678 {
		t.Errorf("Read32 = 0x%08x, want 0x12345678", got)
	}
}

func TestBusUnhandledPortFloats(t *testing.T) {
	bus := portio.NewBus()

	if got := bus.Read8(0x2F8); got != 0xFF {
		t.Errorf("Read8 on empty port = 0x%02x, want 0xff", got)
	}
	if got := bus.Read32(0x2F8); got != 0xFFFFFFFF {
		t.Errorf("Read32 on empty port = 0x%08x, want 0xffffffff", got)
	}
	bus.Write8(0x2F8, 1) // must not panic

	if err := bus.HandleIO(0x2F8, portio.DirectionIn, 1, make([]byte, 1)); err == nil {
		t.Error("HandleIO on unregistered port returned nil error")
	}
}

func TestBusNilDeviceIgnored(t *testing.T) {
	bus := portio.NewBus()
	bus.RegisterDevice(0x10, 0x11, nil)
	if got := bus.Read8(0x10); got != 0xFF {
		t.Errorf("Read8 = 0x%02x after nil registration, want 0xff", got)
	}
}

func TestParseKind(t *testing.T) {
	cases := map[string]portio.Kind{
		"instruction": portio.KindInstruction,
		"asm":         portio.KindInstruction,
		"os":          portio.KindOS,
		"devport":     portio.KindOS,
		"emulated":    portio.KindEmulated,
	}
	for name, want := range cases {
		got, err := portio.ParseKind(name)
		if err != nil || got != want {
			t.Errorf("ParseKind(%q) = %v, %v; want %v", name, got, err, want)
		}
	}
	if _, err := portio.ParseKind("dma"); err == nil {
		t.Error("ParseKind(\"dma\") returned nil error")
	}
	if _, err := portio.New(portio.KindEmulated); err == nil {
		t.Error("New(KindEmulated) returned nil error")
	}
}
