// Command write_serial sends a string through the polled serial port driver, one
// byte per write, retrying bytes the driver reports as not sent.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"go.bug.st/serial"

	"example.com/serio/client"
	"example.com/serio/driver"
	"example.com/serio/driver/portio"
	"example.com/serio/driver/uart"
)

func main() {
	os.Exit(run())
}

func run() int {
	deviceName := flag.String("device", driver.DefaultDeviceName, "Device name to open")
	backendName := flag.String("backend", "instruction", "Port backend: instruction, os or emulated")
	spaceName := flag.String("space", "io", "Register address space: io or memory")
	base := flag.Uint64("base", uint64(uart.COM1_BASE), "Register base address")
	count := flag.Int("count", uart.PORT_COUNT, "Number of register addresses")
	baud := flag.Uint("baud", 9600, "Baud rate (recorded, not programmed)")
	dataBits := flag.Uint("databits", 8, "Data bits")
	stopBits := flag.Uint("stopbits", 1, "Stop bits")
	parityName := flag.String("parity", "none", "Parity: none, odd or even")
	tty := flag.String("tty", "", "Write to this serial device through the OS tty layer instead of the driver")
	attempts := flag.Int("attempts", client.MaxAttempts, "Write attempts per byte")
	delay := flag.Duration("delay", client.Delay, "Delay between write attempts")
	busy := flag.Int("busy", 0, "Emulated backend: status reads THRE stays low after each byte")
	debug := flag.Bool("debug", false, "Trace driver activity")

	flag.Parse()

	data := "Hello, Serial Port!"
	if flag.NArg() > 0 {
		data = strings.Join(flag.Args(), " ")
	}

	parity, err := uart.ParseParity(*parityName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	line, err := parseLine(*baud, *dataBits, *stopBits, parity)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	var port client.Port
	if *tty != "" {
		p, err := openTTY(*tty, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Cannot open %s: %v\n", *tty, err)
			return 1
		}
		defer p.Close()
		port = p
	} else {
		cfg := driver.DefaultConfig()
		cfg.BaseAddress = portio.Addr(*base)
		cfg.PortCount = *count
		cfg.BaudRate = line.baud
		cfg.DataBits = line.dataBits
		cfg.StopBits = line.stopBits
		cfg.Parity = line.parity
		cfg.Debug = *debug
		if cfg.PortSpace, err = driver.ParseSpace(*spaceName); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		kind, err := portio.ParseKind(*backendName)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		cfg.BackendKind = kind
		if kind == portio.KindEmulated {
			bus := portio.NewBus()
			u := uart.NewEmulated16550(cfg.BaseAddress, os.Stdout)
			u.Debug = *debug
			u.SetBusyAfterWrite(*busy)
			u.Attach(bus)
			cfg.Backend = bus
		}

		drv := driver.NewDriver()
		defer drv.Close()
		dev, err := drv.AddDevice(*deviceName, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		if err := dev.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: Cannot start device %s: %v\n", *deviceName, err)
			return 1
		}
		h, err := drv.Open(*deviceName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Cannot open device %s: %v\n", *deviceName, err)
			return 1
		}
		defer h.Close()
		port = h
	}
	log.Println("Device opened successfully")

	rep, err := client.Transmit(port, []byte(data), client.Config{
		MaxAttempts: *attempts,
		Delay:       *delay,
		Logger:      log.Default(),
	})
	log.Printf("Transmission complete: %d/%d bytes sent, %d timed out, %d failed, %d writes", rep.Sent, len(data), len(rep.TimedOut), len(rep.Failed), rep.Attempts)
	if err != nil {
		log.Printf("Error: %v", err)
		return 1
	}
	return 0
}

// lineFormat is the validated -baud, -databits, -stopbits and -parity flags.
type lineFormat struct {
	baud     uint32
	dataBits uint8
	stopBits uint8
	parity   uart.Parity
}

func parseLine(baud, dataBits, stopBits uint, parity uart.Parity) (lineFormat, error) {
	if baud == 0 || baud > uart.ClockBaud {
		return lineFormat{}, fmt.Errorf("-baud %d out of range 1..%d", baud, uart.ClockBaud)
	}
	if dataBits < 5 || dataBits > 8 {
		return lineFormat{}, fmt.Errorf("-databits %d out of range 5..8", dataBits)
	}
	if stopBits < 1 || stopBits > 2 {
		return lineFormat{}, fmt.Errorf("-stopbits %d out of range 1..2", stopBits)
	}
	return lineFormat{
		baud:     uint32(baud),
		dataBits: uint8(dataBits),
		stopBits: uint8(stopBits),
		parity:   parity,
	}, nil
}

// openTTY opens a serial device with the same line format the driver records.
func openTTY(name string, line lineFormat) (serial.Port, error) {
	mode := &serial.Mode{
		BaudRate: int(line.baud),
		DataBits: int(line.dataBits),
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	switch line.parity {
	case uart.ParityOdd:
		mode.Parity = serial.OddParity
	case uart.ParityEven:
		mode.Parity = serial.EvenParity
	}
	if line.stopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}
	return serial.Open(name, mode)
}
