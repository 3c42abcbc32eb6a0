package uart

import "example.com/serio/driver/portio"

// Standard PC COM1 resource.
const (
	COM1_BASE  portio.Addr = 0x3F8
	PORT_COUNT             = 8
)

// Register offsets from the port base.
const (
	THR portio.Addr = 0 // Transmitter Holding Register (W)
	RBR portio.Addr = 0 // Receiver Buffer Register (R)
	DLL portio.Addr = 0 // Divisor Latch Low (DLAB=1)
	IER portio.Addr = 1 // Interrupt Enable Register
	DLH portio.Addr = 1 // Divisor Latch High (DLAB=1)
	IIR portio.Addr = 2 // Interrupt Identification Register (R)
	FCR portio.Addr = 2 // FIFO Control Register (W)
	LCR portio.Addr = 3 // Line Control Register
	MCR portio.Addr = 4 // Modem Control Register
	LSR portio.Addr = 5 // Line Status Register
	MSR portio.Addr = 6 // Modem Status Register
	SCR portio.Addr = 7 // Scratch Register
)

// Line Status Register (LSR) bits
const (
	LSR_DR    byte = 0x01 // Data Ready
	LSR_OE    byte = 0x02 // Overrun Error
	LSR_PE    byte = 0x04 // Parity Error
	LSR_FE    byte = 0x08 // Framing Error
	LSR_BI    byte = 0x10 // Break Interrupt
	LSR_THRE  byte = 0x20 // Transmitter Holding Register Empty
	LSR_TEMT  byte = 0x40 // Transmitter (shift register) Empty
	LSR_FIFOE byte = 0x80 // Error in RCVR FIFO
)

// Line Control Register (LCR) bits
const (
	LCR_WLS_5BITS   byte = 0x00
	LCR_WLS_6BITS   byte = 0x01
	LCR_WLS_7BITS   byte = 0x02
	LCR_WLS_8BITS   byte = 0x03
	LCR_STOP_1BIT   byte = 0x00
	LCR_STOP_2BITS  byte = 0x04 // 1.5 stop bits with 5-bit words
	LCR_PARITY_NONE byte = 0x00
	LCR_PARITY_ODD  byte = 0x08
	LCR_PARITY_EVEN byte = 0x18
	LCR_SP          byte = 0x20 // Stick Parity
	LCR_SB          byte = 0x40 // Set Break
	LCR_DLAB        byte = 0x80 // Divisor Latch Access Bit
)

// Modem Control Register (MCR) bits
const (
	MCR_DTR      byte = 0x01
	MCR_RTS      byte = 0x02
	MCR_OUT1     byte = 0x04
	MCR_OUT2     byte = 0x08 // gates the interrupt line on PCs
	MCR_LOOPBACK byte = 0x10
)

// Interrupt Identification Register (IIR) bits (when read)
const (
	IIR_NO_INT_PENDING byte = 0x01
	IIR_FIFO_ENABLED   byte = 0xC0
)

// Interrupt Enable Register (IER) bits. The transmit engine never enables any of
// them; they are listed for the emulated device.
const (
	IER_ERDAI  byte = 0x01 // Received Data Available
	IER_ETHREI byte = 0x02 // Transmitter Holding Register Empty
	IER_ELSI   byte = 0x04 // Receiver Line Status
	IER_EMSI   byte = 0x08 // Modem Status
)
