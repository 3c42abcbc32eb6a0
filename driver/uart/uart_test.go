package uart_test

import (
	"bytes"
	"errors"
	"testing"

	"example.com/serio/driver/portio"
	"example.com/serio/driver/uart"
)

func newTestUART(t *testing.T, out *bytes.Buffer) (*portio.Bus, *uart.Emulated16550) {
	t.Helper()
	bus := portio.NewBus()
	var u *uart.Emulated16550
	if out != nil {
		u = uart.NewEmulated16550(uart.COM1_BASE, out)
	} else {
		u = uart.NewEmulated16550(uart.COM1_BASE, nil)
	}
	u.Attach(bus)
	return bus, u
}

func TestReadStatusRegisterReadsLSR(t *testing.T) {
	bus, u := newTestUART(t, nil)

	lsr := uart.ReadStatusRegister(bus, uart.COM1_BASE)
	if lsr&uart.LSR_THRE == 0 || lsr&uart.LSR_TEMT == 0 {
		t.Errorf("idle LSR = 0x%02x, want THRE and TEMT set", lsr)
	}
	if got := u.StatusReads(); got != 1 {
		t.Errorf("StatusReads = %d, want 1", got)
	}
}

func TestIsTransmitterReadyFollowsTHRE(t *testing.T) {
	bus, u := newTestUART(t, nil)

	u.SetBusy(2)
	for i := 0; i < 2; i++ {
		if uart.IsTransmitterReady(bus, uart.COM1_BASE) {
			t.Fatalf("read %d: ready while busy", i+1)
		}
	}
	if !uart.IsTransmitterReady(bus, uart.COM1_BASE) {
		t.Fatal("not ready after busy reads were consumed")
	}

	u.SetNeverReady(true)
	for i := 0; i < 10; i++ {
		if uart.IsTransmitterReady(bus, uart.COM1_BASE) {
			t.Fatal("ready while never-ready is set")
		}
	}
}

func TestTryTransmitByte(t *testing.T) {
	var out bytes.Buffer
	bus, u := newTestUART(t, &out)

	if !uart.TryTransmitByte(bus, uart.COM1_BASE, 'A') {
		t.Fatal("TryTransmitByte on idle UART returned false")
	}
	if got := u.Transmitted(); !bytes.Equal(got, []byte{'A'}) {
		t.Errorf("Transmitted = %q, want \"A\"", got)
	}
	if out.String() != "A" {
		t.Errorf("output = %q, want \"A\"", out.String())
	}

	u.SetNeverReady(true)
	bus.ResetAccesses()
	if uart.TryTransmitByte(bus, uart.COM1_BASE, 'B') {
		t.Fatal("TryTransmitByte on busy UART returned true")
	}
	if reads, writes := bus.Accesses(); reads != 1 || writes != 0 {
		t.Errorf("busy attempt did %d reads, %d writes; want 1, 0", reads, writes)
	}
	if got := u.Transmitted(); len(got) != 1 {
		t.Errorf("busy attempt wrote THR: %q", got)
	}
}

func TestTryTransmitByteStatusReportsLSR(t *testing.T) {
	bus, u := newTestUART(t, nil)
	u.SetBusy(1)

	sent, lsr := uart.TryTransmitByteStatus(bus, uart.COM1_BASE, 'x')
	if sent || lsr&uart.LSR_THRE != 0 {
		t.Errorf("first attempt: sent=%t lsr=0x%02x", sent, lsr)
	}
	sent, lsr = uart.TryTransmitByteStatus(bus, uart.COM1_BASE, 'x')
	if !sent || lsr&uart.LSR_THRE == 0 {
		t.Errorf("second attempt: sent=%t lsr=0x%02x", sent, lsr)
	}
}

func TestTryTransmitByteMatchesStatusVariant(t *testing.T) {
	plainBus, plain := newTestUART(t, nil)
	statusBus, status := newTestUART(t, nil)
	plain.SetBusyAfterWrite(2)
	status.SetBusyAfterWrite(2)

	for i := 0; i < 8; i++ {
		plainBus.ResetAccesses()
		statusBus.ResetAccesses()
		got := uart.TryTransmitByte(plainBus, uart.COM1_BASE, byte('a'+i))
		want, _ := uart.TryTransmitByteStatus(statusBus, uart.COM1_BASE, byte('a'+i))
		if got != want {
			t.Fatalf("attempt %d: TryTransmitByte = %t, status variant = %t", i, got, want)
		}
		pr, pw := plainBus.Accesses()
		sr, sw := statusBus.Accesses()
		if pr != 1 || pr != sr || pw != sw {
			t.Errorf("attempt %d: accesses %d/%d, status variant %d/%d", i, pr, pw, sr, sw)
		}
	}
	if !bytes.Equal(plain.Transmitted(), status.Transmitted()) {
		t.Errorf("Transmitted = %q, status variant %q", plain.Transmitted(), status.Transmitted())
	}
}

func TestEmulatedBusyAfterWrite(t *testing.T) {
	bus, u := newTestUART(t, nil)
	u.SetBusyAfterWrite(3)

	if !uart.TryTransmitByte(bus, uart.COM1_BASE, '1') {
		t.Fatal("first byte not sent")
	}
	polls := 1
	for !uart.TryTransmitByte(bus, uart.COM1_BASE, '2') {
		polls++
		if polls > 10 {
			t.Fatal("second byte never sent")
		}
	}
	if polls != 4 {
		t.Errorf("second byte took %d polls, want 4", polls)
	}
	if u.Overruns() != 0 {
		t.Errorf("Overruns = %d, want 0", u.Overruns())
	}
}

func TestEmulatedDivisorLatch(t *testing.T) {
	bus, u := newTestUART(t, nil)

	bus.Write8(uart.COM1_BASE+uart.LCR, uart.LCR_DLAB|uart.LCR_WLS_8BITS)
	bus.Write8(uart.COM1_BASE+uart.DLL, 0x01)
	bus.Write8(uart.COM1_BASE+uart.DLH, 0x00)
	if got := bus.Read8(uart.COM1_BASE + uart.DLL); got != 0x01 {
		t.Errorf("DLL = 0x%02x, want 0x01", got)
	}
	bus.Write8(uart.COM1_BASE+uart.LCR, uart.LCR_WLS_8BITS)

	if got := u.Transmitted(); len(got) != 0 {
		t.Errorf("divisor writes reached THR: %q", got)
	}
	if got := bus.Read8(uart.COM1_BASE + uart.LCR); got != uart.LCR_WLS_8BITS {
		t.Errorf("LCR = 0x%02x, want 0x03", got)
	}
	bus.Write8(uart.COM1_BASE+uart.SCR, 0x5A)
	if got := bus.Read8(uart.COM1_BASE + uart.SCR); got != 0x5A {
		t.Errorf("SCR = 0x%02x, want 0x5a", got)
	}
}

func TestEmulatedRejectsWideAccess(t *testing.T) {
	_, u := newTestUART(t, nil)
	if err := u.HandleIO(uint16(uart.COM1_BASE), portio.DirectionIn, 2, make([]byte, 2)); err == nil {
		t.Error("2-byte access returned nil error")
	}
}

func TestLineControl(t *testing.T) {
	cases := []struct {
		data, stop uint8
		parity     uart.Parity
		want       byte
	}{
		{8, 1, uart.ParityNone, 0x03},
		{7, 2, uart.ParityEven, 0x1E},
		{5, 1, uart.ParityOdd, 0x08},
		{6, 2, uart.ParityNone, 0x05},
	}
	for _, c := range cases {
		got, err := uart.LineControl(c.data, c.stop, c.parity)
		if err != nil || got != c.want {
			t.Errorf("LineControl(%d, %d, %v) = 0x%02x, %v; want 0x%02x", c.data, c.stop, c.parity, got, err, c.want)
		}
	}

	bad := []struct {
		data, stop uint8
		parity     uart.Parity
	}{
		{9, 1, uart.ParityNone},
		{8, 3, uart.ParityNone},
		{8, 1, uart.Parity(7)},
	}
	for _, c := range bad {
		if _, err := uart.LineControl(c.data, c.stop, c.parity); !errors.Is(err, uart.ErrLineFormat) {
			t.Errorf("LineControl(%d, %d, %v) error = %v, want ErrLineFormat", c.data, c.stop, c.parity, err)
		}
	}
}

func TestDivisor(t *testing.T) {
	for baud, want := range map[uint32]uint16{115200: 1, 9600: 12, 1200: 96, 50: 2304} {
		got, err := uart.Divisor(baud)
		if err != nil || got != want {
			t.Errorf("Divisor(%d) = %d, %v; want %d", baud, got, err, want)
		}
	}
	for _, baud := range []uint32{0, 7, 230400} {
		if _, err := uart.Divisor(baud); !errors.Is(err, uart.ErrLineFormat) {
			t.Errorf("Divisor(%d) error = %v, want ErrLineFormat", baud, err)
		}
	}
}

func TestParseParity(t *testing.T) {
	for s, want := range map[string]uart.Parity{"none": uart.ParityNone, "O": uart.ParityOdd, "even": uart.ParityEven} {
		got, err := uart.ParseParity(s)
		if err != nil || got != want {
			t.Errorf("ParseParity(%q) = %v, %v; want %v", s, got, err, want)
		}
	}
	if _, err := uart.ParseParity("mark"); err == nil {
		t.Error("ParseParity(\"mark\") returned nil error")
	}
}
