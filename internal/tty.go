package internal

import "runtime"

// DefaultSerialDevice is the usual device node of a USB serial adapter.
func DefaultSerialDevice() string {
	switch runtime.GOOS {
	case `windows`:
		return `COM3`
	case `darwin`:
		return `/dev/cu.SLAB_USBtoUART`
	default:
		return `/dev/ttyUSB0`
	}
}

// IsStdout reports whether device names standard output instead of a port.
func IsStdout(device string) bool { return device == `-` || device == `/dev/stdout` }
