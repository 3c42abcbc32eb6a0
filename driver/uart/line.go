package uart

import (
	"errors"
	"fmt"
	"strings"
)

// ClockBaud is the baud rate at divisor 1 for the standard 1.8432 MHz crystal.
const ClockBaud = 115200

// ErrLineFormat is returned for a baud rate or frame format the UART cannot produce.
var ErrLineFormat = errors.New("uart: unsupported line format")

// Parity selects the parity bit.
type Parity uint8

const (
	ParityNone Parity = 0
	ParityOdd  Parity = 1
	ParityEven Parity = 2
)

func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "none"
	case ParityOdd:
		return "odd"
	case ParityEven:
		return "even"
	}
	return fmt.Sprintf("Parity(%d)", uint8(p))
}

// ParseParity accepts "none", "odd", "even" or their first letter.
func ParseParity(s string) (Parity, error) {
	switch strings.ToLower(s) {
	case "none", "n", "":
		return ParityNone, nil
	case "odd", "o":
		return ParityOdd, nil
	case "even", "e":
		return ParityEven, nil
	}
	return 0, fmt.Errorf("%w: parity %q", ErrLineFormat, s)
}

// Divisor returns the divisor latch value for baud.
func Divisor(baud uint32) (uint16, error) {
	if baud == 0 || baud > ClockBaud || ClockBaud%baud != 0 {
		return 0, fmt.Errorf("%w: baud rate %d", ErrLineFormat, baud)
	}
	return uint16(ClockBaud / baud), nil
}

// LineControl returns the LCR value (with DLAB clear) for the given frame format.
func LineControl(dataBits, stopBits uint8, parity Parity) (byte, error) {
	var lcr byte
	switch dataBits {
	case 5:
		lcr = LCR_WLS_5BITS
	case 6:
		lcr = LCR_WLS_6BITS
	case 7:
		lcr = LCR_WLS_7BITS
	case 8:
		lcr = LCR_WLS_8BITS
	default:
		return 0, fmt.Errorf("%w: %d data bits", ErrLineFormat, dataBits)
	}
	switch stopBits {
	case 1:
		lcr |= LCR_STOP_1BIT
	case 2:
		lcr |= LCR_STOP_2BITS
	default:
		return 0, fmt.Errorf("%w: %d stop bits", ErrLineFormat, stopBits)
	}
	switch parity {
	case ParityNone:
		lcr |= LCR_PARITY_NONE
	case ParityOdd:
		lcr |= LCR_PARITY_ODD
	case ParityEven:
		lcr |= LCR_PARITY_EVEN
	default:
		return 0, fmt.Errorf("%w: %v", ErrLineFormat, parity)
	}
	return lcr, nil
}
