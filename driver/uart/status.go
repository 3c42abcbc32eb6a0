// Package uart interprets 16550-compatible UART registers on top of a portio
// backend. It does not care which backend is in use.
package uart

import "example.com/serio/driver/portio"

// ReadStatusRegister reads the Line Status Register.
func ReadStatusRegister(b portio.Backend, base portio.Addr) uint8 {
	return b.Read8(base + LSR)
}

// IsTransmitterReady reports whether the holding register is empty.
func IsTransmitterReady(b portio.Backend, base portio.Addr) bool {
	return ReadStatusRegister(b, base)&LSR_THRE != 0
}

// TryTransmitByte writes v to the holding register if the transmitter is ready.
// It never waits; when the transmitter is busy it returns false without writing.
func TryTransmitByte(b portio.Backend, base portio.Addr, v byte) bool {
	sent, _ := TryTransmitByteStatus(b, base, v)
	return sent
}

// TryTransmitByteStatus is TryTransmitByte that also returns the LSR value it
// sampled, for tracing.
func TryTransmitByteStatus(b portio.Backend, base portio.Addr, v byte) (sent bool, lsr uint8) {
	lsr = ReadStatusRegister(b, base)
	if lsr&LSR_THRE == 0 {
		return false, lsr
	}
	b.Write8(base+THR, v)
	return true, lsr
}
