//go:build linux

package portio

import (
	"encoding/binary"
	"fmt"
	"log"

	"golang.org/x/sys/unix"
)

// OS accesses I/O ports through the kernel's port device, where the file offset is
// the port number. It works on every Linux architecture that exposes /dev/port.
type OS struct {
	path string
	fd   int
}

// NewOS opens the port device at path for reading and writing.
func NewOS(path string) (*OS, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC|unix.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("portio: open %s: %w", path, err)
	}
	return &OS{path: path, fd: fd}, nil
}

// Close releases the port device. It is safe to call more than once.
func (o *OS) Close() error {
	if o.fd < 0 {
		return nil
	}
	err := unix.Close(o.fd)
	o.fd = -1
	return err
}

func (o *OS) in(port Addr, data []byte) {
	n, err := unix.Pread(o.fd, data, int64(port))
	if err != nil || n != len(data) {
		log.Printf("OS: IN size %d from 0x%x on %s: n=%d err=%v", len(data), port, o.path, n, err)
		for i := range data {
			data[i] = floating
		}
	}
}

func (o *OS) out(port Addr, data []byte) {
	n, err := unix.Pwrite(o.fd, data, int64(port))
	if err != nil || n != len(data) {
		log.Printf("OS: OUT size %d to 0x%x on %s: n=%d err=%v", len(data), port, o.path, n, err)
	}
}

func (o *OS) Read8(port Addr) uint8 {
	var data [1]byte
	o.in(port, data[:])
	return data[0]
}

func (o *OS) Write8(port Addr, value uint8) { o.out(port, []byte{value}) }

func (o *OS) Read16(port Addr) uint16 {
	var data [2]byte
	o.in(port, data[:])
	return binary.LittleEndian.Uint16(data[:])
}

func (o *OS) Write16(port Addr, value uint16) {
	var data [2]byte
	binary.LittleEndian.PutUint16(data[:], value)
	o.out(port, data[:])
}

func (o *OS) Read32(port Addr) uint32 {
	var data [4]byte
	o.in(port, data[:])
	return binary.LittleEndian.Uint32(data[:])
}

func (o *OS) Write32(port Addr, value uint32) {
	var data [4]byte
	binary.LittleEndian.PutUint32(data[:], value)
	o.out(port, data[:])
}
