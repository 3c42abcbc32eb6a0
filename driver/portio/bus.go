package portio

import (
	"encoding/binary"
	"fmt"
	"log"
	"sync"

	"go.uber.org/atomic"
)

// I/O directions passed to Device.HandleIO.
const (
	DirectionIn  uint8 = 0 // read from device
	DirectionOut uint8 = 1 // write to device
)

// Device is a software device attached to a Bus.
type Device interface {
	HandleIO(port uint16, direction uint8, size uint8, data []byte) error
}

// Bus routes port accesses to registered software devices. It implements Backend,
// so the rest of the stack cannot tell it apart from real hardware.
type Bus struct {
	mu    sync.RWMutex
	ports map[uint16]Device

	reads  atomic.Uint64
	writes atomic.Uint64
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{
		ports: make(map[uint16]Device),
	}
}

// RegisterDevice attaches device to every port in [startPort, endPort].
func (bus *Bus) RegisterDevice(startPort, endPort uint16, device Device) {
	if device == nil {
		log.Printf("Bus: Warning: Attempted to register a nil device for ports 0x%x-0x%x", startPort, endPort)
		return
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	for port := startPort; port <= endPort; port++ {
		if existing, ok := bus.ports[port]; ok {
			log.Printf("Bus: Warning: Port 0x%x already registered to a device (%T). Overwriting with new device (%T).", port, existing, device)
		}
		bus.ports[port] = device
		if port == 0xFFFF {
			break
		}
	}
}

// HandleIO routes one access to the device that owns port.
func (bus *Bus) HandleIO(port uint16, direction uint8, size uint8, data []byte) error {
	bus.mu.RLock()
	device, ok := bus.ports[port]
	bus.mu.RUnlock()
	if !ok {
		return fmt.Errorf("Bus: Unhandled I/O to port 0x%x", port)
	}
	return device.HandleIO(port, direction, size, data)
}

// Accesses reports how many reads and writes reached the bus.
func (bus *Bus) Accesses() (reads, writes uint64) {
	return bus.reads.Load(), bus.writes.Load()
}

// ResetAccesses zeroes the access counters.
func (bus *Bus) ResetAccesses() {
	bus.reads.Store(0)
	bus.writes.Store(0)
}

func (bus *Bus) in(port Addr, size uint8) []byte {
	bus.reads.Inc()
	data := make([]byte, 4)
	if err := bus.HandleIO(uint16(port), DirectionIn, size, data[:size]); err != nil {
		log.Printf("Bus: IN size %d from 0x%x: %v", size, port, err)
		for i := range data {
			data[i] = floating
		}
	}
	return data
}

func (bus *Bus) out(port Addr, size uint8, data []byte) {
	bus.writes.Inc()
	if err := bus.HandleIO(uint16(port), DirectionOut, size, data[:size]); err != nil {
		log.Printf("Bus: OUT size %d to 0x%x: %v", size, port, err)
	}
}

func (bus *Bus) Read8(port Addr) uint8 { return bus.in(port, 1)[0] }

func (bus *Bus) Write8(port Addr, value uint8) { bus.out(port, 1, []byte{value}) }

func (bus *Bus) Read16(port Addr) uint16 {
	return binary.LittleEndian.Uint16(bus.in(port, 2))
}

func (bus *Bus) Write16(port Addr, value uint16) {
	data := make([]byte, 2)
	binary.LittleEndian.PutUint16(data, value)
	bus.out(port, 2, data)
}

func (bus *Bus) Read32(port Addr) uint32 {
	return binary.LittleEndian.Uint32(bus.in(port, 4))
}

func (bus *Bus) Write32(port Addr, value uint32) {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, value)
	bus.out(port, 4, data)
}
