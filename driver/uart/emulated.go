package uart

import (
	"fmt"
	"io"
	"log"
	"sync"

	"example.com/serio/driver/portio"
)

// Emulated16550 is a software 16550A transmitter for a portio.Bus. Its THRE bit can
// be held low for a number of status reads so callers can exercise their polling.
// Receive and interrupts are not emulated.
type Emulated16550 struct {
	lock   sync.Mutex
	base   uint16
	output io.Writer
	Debug  bool

	dll byte
	dlh byte
	ier byte
	fcr byte
	lcr byte
	mcr byte
	scr byte

	busy       int  // status reads left before THRE goes high
	txBusy     int  // busy reads re-armed after each THR write
	neverReady bool // THRE never goes high

	transmitted []byte
	statusReads int
	overruns    int
}

// NewEmulated16550 creates a UART at base that writes transmitted bytes to output.
// output may be nil.
func NewEmulated16550(base portio.Addr, output io.Writer) *Emulated16550 {
	return &Emulated16550{
		base:   uint16(base),
		output: output,
		dll:    0x0C, // 9600 baud
	}
}

// Attach registers the UART's eight registers on bus.
func (s *Emulated16550) Attach(bus *portio.Bus) {
	bus.RegisterDevice(s.base, s.base+PORT_COUNT-1, s)
}

// SetBusy keeps THRE low for the next n status reads.
func (s *Emulated16550) SetBusy(n int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.busy = n
}

// SetBusyAfterWrite keeps THRE low for n status reads after every transmitted byte.
func (s *Emulated16550) SetBusyAfterWrite(n int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.txBusy = n
}

// SetNeverReady holds THRE low until cleared.
func (s *Emulated16550) SetNeverReady(never bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.neverReady = never
}

// Transmitted returns a copy of every byte written to THR.
func (s *Emulated16550) Transmitted() []byte {
	s.lock.Lock()
	defer s.lock.Unlock()
	out := make([]byte, len(s.transmitted))
	copy(out, s.transmitted)
	return out
}

// StatusReads returns how many times LSR was read.
func (s *Emulated16550) StatusReads() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.statusReads
}

// Overruns returns how many bytes were written to THR while it was not empty.
func (s *Emulated16550) Overruns() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.overruns
}

// Reset clears recorded traffic and readiness scripting.
func (s *Emulated16550) Reset() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.transmitted = nil
	s.statusReads = 0
	s.overruns = 0
	s.busy = 0
	s.txBusy = 0
	s.neverReady = false
}

func (s *Emulated16550) dlab() bool { return s.lcr&LCR_DLAB != 0 }

func (s *Emulated16550) thrEmpty() bool { return !s.neverReady && s.busy == 0 }

// lsr samples the Line Status Register; each sample consumes one busy read.
func (s *Emulated16550) lsr() byte {
	s.statusReads++
	if s.neverReady {
		return 0
	}
	if s.busy > 0 {
		s.busy--
		return 0
	}
	return LSR_THRE | LSR_TEMT
}

// HandleIO implements portio.Device.
func (s *Emulated16550) HandleIO(port uint16, direction uint8, size uint8, data []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if size != 1 {
		return fmt.Errorf("Emulated16550: I/O size %d not supported for port 0x%x. Only 1-byte supported", size, port)
	}
	offset := portio.Addr(port - s.base)

	switch direction {
	case portio.DirectionOut:
		val := data[0]
		switch offset {
		case THR:
			if s.dlab() {
				s.dll = val
				break
			}
			if !s.thrEmpty() {
				s.overruns++
			}
			s.transmitted = append(s.transmitted, val)
			if s.output != nil {
				if _, err := s.output.Write([]byte{val}); err != nil {
					log.Printf("Emulated16550: Error writing to output: %v", err)
				}
			}
			if s.Debug {
				log.Printf("Emulated16550: THR <- 0x%02x", val)
			}
			s.busy = s.txBusy
		case IER:
			if s.dlab() {
				s.dlh = val
			} else {
				s.ier = val
			}
		case FCR:
			s.fcr = val
		case LCR:
			s.lcr = val
		case MCR:
			s.mcr = val
		case SCR:
			s.scr = val
		case LSR, MSR:
			// read-only, writes ignored
		default:
			return fmt.Errorf("Emulated16550: Unhandled OUT to port 0x%x (offset 0x%x), value 0x%x", port, offset, val)
		}
	case portio.DirectionIn:
		var val byte
		switch offset {
		case RBR:
			if s.dlab() {
				val = s.dll
			}
		case IER:
			if s.dlab() {
				val = s.dlh
			} else {
				val = s.ier
			}
		case IIR:
			val = IIR_NO_INT_PENDING
			if s.fcr&0x01 != 0 {
				val |= IIR_FIFO_ENABLED
			}
		case LCR:
			val = s.lcr
		case MCR:
			val = s.mcr
		case LSR:
			val = s.lsr()
			if s.Debug {
				log.Printf("Emulated16550: LSR -> 0x%02x", val)
			}
		case MSR:
			val = 0
		case SCR:
			val = s.scr
		default:
			return fmt.Errorf("Emulated16550: Unhandled IN from port 0x%x (offset 0x%x)", port, offset)
		}
		data[0] = val
	default:
		return fmt.Errorf("Emulated16550: Invalid I/O direction %d for port 0x%x", direction, port)
	}
	return nil
}
