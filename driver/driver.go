// Package driver transmits bytes through a polled 16550 UART.
//
// A Driver holds named devices. Each Device owns a DeviceContext, a portio backend
// and a sequential Queue whose single consumer runs the transmit state machine.
// Writes go through a Handle obtained from Driver.Open:
//
//	drv := driver.NewDriver()
//	dev, _ := drv.AddDevice(driver.DefaultDeviceName, driver.DefaultConfig())
//	_ = dev.Start()
//	h, _ := drv.Open(driver.DefaultDeviceName)
//	n, err := h.Write([]byte("A")) // n is 0 or 1
//
// Each write transmits at most the first byte of its buffer. A return of 0 bytes
// with a nil error means the transmitter never became ready within the poll bound;
// the caller resubmits.
package driver

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"go.uber.org/atomic"
)

// Driver is a registry of serial port devices.
type Driver struct {
	mu      sync.Mutex
	devices map[string]*Device
	Debug   bool
}

// NewDriver creates an empty driver.
func NewDriver() *Driver {
	return &Driver{
		devices: make(map[string]*Device),
	}
}

// AddDevice creates a device under name. It is not started.
func (drv *Driver) AddDevice(name string, cfg Config) (*Device, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty device name", ErrInvalidConfig)
	}
	if drv.Debug {
		cfg.Debug = true
	}
	dev, err := NewDevice(name, cfg)
	if err != nil {
		return nil, err
	}

	drv.mu.Lock()
	defer drv.mu.Unlock()
	if _, ok := drv.devices[name]; ok {
		return nil, fmt.Errorf("%w: device %q already exists", ErrInvalidConfig, name)
	}
	drv.devices[name] = dev
	if drv.Debug {
		log.Printf("Driver: added device %s at 0x%x", name, uintptr(cfg.BaseAddress))
	}
	return dev, nil
}

// Device looks up a device by name.
func (drv *Driver) Device(name string) (*Device, bool) {
	drv.mu.Lock()
	defer drv.mu.Unlock()
	dev, ok := drv.devices[name]
	return dev, ok
}

// Devices returns the registered device names in order.
func (drv *Driver) Devices() []string {
	drv.mu.Lock()
	defer drv.mu.Unlock()
	names := make([]string, 0, len(drv.devices))
	for name := range drv.devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RemoveDevice stops a device and forgets it.
func (drv *Driver) RemoveDevice(name string) error {
	drv.mu.Lock()
	dev, ok := drv.devices[name]
	delete(drv.devices, name)
	drv.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrDeviceUnavailable, name)
	}
	return dev.Stop()
}

// Open returns a handle for writing to the named device. The device must exist and
// be started.
func (drv *Driver) Open(name string) (*Handle, error) {
	dev, ok := drv.Device(name)
	if !ok {
		return nil, fmt.Errorf("%w: no device %q", ErrDeviceUnavailable, name)
	}
	if err := dev.open(); err != nil {
		return nil, err
	}
	return &Handle{dev: dev}, nil
}

// Close stops every device. Errors are logged, not returned.
func (drv *Driver) Close() {
	for _, name := range drv.Devices() {
		if err := drv.RemoveDevice(name); err != nil {
			log.Printf("Driver: stopping %s: %v", name, err)
		}
	}
}

// Handle is an open device. It is safe for concurrent use; writes from several
// handles are serialized by the device's queue.
type Handle struct {
	dev    *Device
	closed atomic.Bool
}

// Write transmits the first byte of p. It returns 1 when the byte went out and 0
// when the transmitter stayed busy; neither is an error. An empty p fails with
// ErrInvalidArgument.
func (h *Handle) Write(p []byte) (int, error) {
	return h.WriteContext(context.Background(), p)
}

// WriteContext is Write with ctx bounding the wait for the device queue.
func (h *Handle) WriteContext(ctx context.Context, p []byte) (int, error) {
	if h.closed.Load() {
		return 0, ErrClosed
	}
	q := h.dev.Queue()
	if q == nil {
		return 0, fmt.Errorf("%w: %s stopped", ErrDeviceUnavailable, h.dev.name)
	}
	req, err := q.Submit(ctx, p)
	if err != nil {
		return 0, err
	}
	return req.BytesCompleted, req.Status
}

// Device returns the device the handle writes to.
func (h *Handle) Device() *Device { return h.dev }

// Close releases the handle. Requests already queued still complete.
func (h *Handle) Close() error {
	if h.closed.CompareAndSwap(false, true) {
		h.dev.release()
	}
	return nil
}
