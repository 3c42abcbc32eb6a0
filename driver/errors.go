package driver

import "errors"

var (
	// ErrInvalidArgument is returned for a zero-length write. The hardware is not touched.
	ErrInvalidArgument = errors.New("driver: invalid argument")
	// ErrDeviceUnavailable is returned when the device is absent, not started, or its
	// hardware could not be prepared.
	ErrDeviceUnavailable = errors.New("driver: device unavailable")
	// ErrSharingViolation is returned when an exclusive device is already open.
	ErrSharingViolation = errors.New("driver: device already open")
	// ErrClosed is returned for writes on a closed handle.
	ErrClosed = errors.New("driver: handle closed")
	// ErrInvalidConfig is returned by AddDevice for a configuration the UART cannot use.
	ErrInvalidConfig = errors.New("driver: invalid configuration")
)
