package driver

import (
	"fmt"
	"io"
	"log"
	"sync"

	"example.com/serio/driver/portio"
	"example.com/serio/driver/uart"
)

// DeviceContext is the per-instance hardware state. PortBase and PortWasMapped are
// only written by PrepareHardware and ReleaseHardware, and PortBase is only valid
// between the two.
type DeviceContext struct {
	PortBase      portio.Addr
	PortCount     int
	PortSpace     Space
	PortWasMapped bool

	BaudRate uint32
	DataBits uint8
	StopBits uint8
	Parity   uart.Parity
}

// Device is one serial port instance: its context, its hardware backend and the
// sequential queue that feeds the transmit loop.
type Device struct {
	name string
	cfg  Config

	mu      sync.Mutex
	ctx     DeviceContext
	backend portio.Backend
	mapping *portio.MMIO
	owned   io.Closer // backend opened by the device itself
	claimed portio.Claimer

	prepared bool
	queue    *Queue
	handles  int

	stats stats
}

// NewDevice creates a device from cfg. The hardware is not touched until Start.
func NewDevice(name string, cfg Config) (*Device, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Device{
		name: name,
		cfg:  cfg,
		ctx: DeviceContext{
			PortCount: cfg.PortCount,
			PortSpace: cfg.PortSpace,
			BaudRate:  cfg.BaudRate,
			DataBits:  cfg.DataBits,
			StopBits:  cfg.StopBits,
			Parity:    cfg.Parity,
		},
	}, nil
}

// Name returns the name the device was created with.
func (d *Device) Name() string { return d.name }

// Context returns a copy of the device context.
func (d *Device) Context() DeviceContext {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ctx
}

// PrepareHardware resolves the register base and makes it accessible. I/O space
// ranges are claimed from the backend if it needs that; memory space registers are
// mapped and PortWasMapped is set. Calling it again before ReleaseHardware does
// nothing.
func (d *Device) PrepareHardware() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.prepared {
		return nil
	}

	base := d.cfg.BaseAddress
	switch d.cfg.PortSpace {
	case MemorySpace:
		m, err := portio.MapMemory(d.cfg.MemoryDevice, base, d.cfg.PortCount)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, d.name, err)
		}
		d.mapping = m
		d.backend = m
		d.ctx.PortWasMapped = true
	case IOSpace:
		b := d.cfg.Backend
		if b == nil {
			nb, err := portio.New(d.cfg.BackendKind)
			if err != nil {
				return fmt.Errorf("%w: %s: %v backend: %v", ErrDeviceUnavailable, d.name, d.cfg.BackendKind, err)
			}
			if c, ok := nb.(io.Closer); ok {
				d.owned = c
			}
			b = nb
		}
		if c, ok := b.(portio.Claimer); ok {
			if err := c.Claim(base, d.cfg.PortCount); err != nil {
				d.closeOwned()
				return fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, d.name, err)
			}
			d.claimed = c
		}
		d.backend = b
		d.ctx.PortWasMapped = false
	}
	d.ctx.PortBase = base
	d.prepared = true

	if d.cfg.Debug {
		log.Printf("Device %s: PrepareHardware: serial port at 0x%x (%v space, mapped=%t)", d.name, uintptr(base), d.cfg.PortSpace, d.ctx.PortWasMapped)
	}
	return nil
}

// ReleaseHardware undoes PrepareHardware. The write queue is stopped first, so no
// request reaches the registers once they are released. It unmaps only when
// PortWasMapped is set, never fails, and does nothing when the hardware is not
// prepared.
func (d *Device) ReleaseHardware() error {
	d.stopQueue()

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.prepared {
		return nil
	}
	if d.ctx.PortWasMapped && d.mapping != nil {
		if err := d.mapping.Unmap(); err != nil {
			log.Printf("Device %s: ReleaseHardware: unmap: %v", d.name, err)
		}
	}
	if d.claimed != nil {
		d.claimed.Unclaim(d.ctx.PortBase, d.ctx.PortCount)
		d.claimed = nil
	}
	d.closeOwned()

	d.mapping = nil
	d.backend = nil
	d.ctx.PortBase = 0
	d.ctx.PortWasMapped = false
	d.prepared = false

	if d.cfg.Debug {
		log.Printf("Device %s: ReleaseHardware: cleaned up serial port", d.name)
	}
	return nil
}

func (d *Device) closeOwned() {
	if d.owned == nil {
		return
	}
	if err := d.owned.Close(); err != nil {
		log.Printf("Device %s: closing backend: %v", d.name, err)
	}
	d.owned = nil
}

// Start prepares the hardware and starts the write queue.
func (d *Device) Start() error {
	if err := d.PrepareHardware(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.queue == nil {
		d.queue = newQueue(d.name, d.backend, d.ctx.PortBase, d.cfg, &d.stats)
		d.queue.Start()
	}
	return nil
}

// Stop stops the write queue and releases the hardware.
func (d *Device) Stop() error {
	return d.ReleaseHardware()
}

func (d *Device) stopQueue() {
	d.mu.Lock()
	q := d.queue
	d.queue = nil
	d.mu.Unlock()

	if q != nil {
		q.Close()
	}
}

// Running reports whether the device accepts writes.
func (d *Device) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queue != nil
}

// Queue returns the active write queue, or nil when the device is stopped.
func (d *Device) Queue() *Queue {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queue
}

// Stats returns a snapshot of the transmit counters.
func (d *Device) Stats() Stats {
	return d.stats.snapshot()
}

func (d *Device) open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.queue == nil {
		return fmt.Errorf("%w: %s not started", ErrDeviceUnavailable, d.name)
	}
	if d.cfg.Exclusive && d.handles > 0 {
		return fmt.Errorf("%w: %s", ErrSharingViolation, d.name)
	}
	d.handles++
	return nil
}

func (d *Device) release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.handles > 0 {
		d.handles--
	}
}
