// Package client sends a string one byte at a time to a port whose writes may
// come back short, retrying each byte with its own bound and delay.
//
// This loop sits on top of the driver's own poll loop and the two are not
// coordinated. A byte that never goes out costs up to
// MaxAttempts × (driver attempts × driver delay + Delay) before it is given up.
package client

import (
	"fmt"
	"log"
	"time"
)

// Defaults, matching the write_serial tool.
const (
	MaxAttempts = 100
	Delay       = 10 * time.Millisecond
)

// Port accepts single-byte writes and reports how many bytes went out. A short
// count with a nil error means "try again".
type Port interface {
	Write(p []byte) (int, error)
}

// Config bounds the per-byte retry loop.
type Config struct {
	MaxAttempts int
	Delay       time.Duration
	// Sleep waits between attempts; nil means time.Sleep.
	Sleep func(time.Duration)
	// Logger receives per-byte progress; nil disables it.
	Logger *log.Logger
}

// DefaultConfig returns the tool's defaults with progress logged to the standard logger.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: MaxAttempts,
		Delay:       Delay,
		Sleep:       time.Sleep,
		Logger:      log.Default(),
	}
}

// Report summarizes a transmission.
type Report struct {
	Sent     int   // bytes acknowledged
	Attempts int   // writes issued
	TimedOut []int // indexes of bytes given up on
	Failed   []int // indexes of bytes whose write returned an error
}

// Transmit writes data to p one byte at a time. A byte that is not accepted after
// cfg.MaxAttempts writes is skipped and recorded in Report.TimedOut. A byte whose
// write fails is skipped and recorded in Report.Failed; the remaining bytes are
// still sent and the first such error is returned once all of data has been tried.
func Transmit(p Port, data []byte, cfg Config) (Report, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = MaxAttempts
	}
	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}

	var (
		rep      Report
		firstErr error
	)
	for i, b := range data {
		sent, attempts, err := sendByte(p, b, cfg)
		rep.Attempts += attempts
		if err != nil {
			cfg.logf("Error: write failed for byte %d: %v", i, err)
			rep.Failed = append(rep.Failed, i)
			if firstErr == nil {
				firstErr = fmt.Errorf("client: byte %d: %w", i, err)
			}
			continue
		}
		if !sent {
			cfg.logf("Byte %d (0x%02X '%c') transmission timeout (transmitter not ready)", i, b, printable(b))
			rep.TimedOut = append(rep.TimedOut, i)
			continue
		}
		cfg.logf("Byte %d (0x%02X '%c') transmitted successfully", i, b, printable(b))
		rep.Sent++
	}
	if firstErr != nil {
		return rep, fmt.Errorf("%w (%d of %d bytes failed)", firstErr, len(rep.Failed), len(data))
	}
	return rep, nil
}

func sendByte(p Port, b byte, cfg Config) (sent bool, attempts int, err error) {
	buf := []byte{b}
	for attempts < cfg.MaxAttempts {
		n, err := p.Write(buf)
		if err != nil {
			return false, attempts + 1, err
		}
		if n == 1 {
			return true, attempts + 1, nil
		}
		attempts++
		if attempts < cfg.MaxAttempts {
			cfg.Sleep(cfg.Delay)
		}
	}
	return false, attempts, nil
}

func (cfg Config) logf(format string, args ...any) {
	if cfg.Logger != nil {
		cfg.Logger.Printf(format, args...)
	}
}

func printable(b byte) byte {
	if b >= 32 && b < 127 {
		return b
	}
	return '?'
}
