package printer

import (
	"context"
	"errors"
)

var (
	// ErrNotConnected is returned for writes without an open link.
	ErrNotConnected = errors.New("printer not connected")
	// ErrDeviceNotFound is returned when discovery finds no matching
	// peripheral before the context expires.
	ErrDeviceNotFound = errors.New("printer device not found")
)

// Target selects which peripheral to connect to. An empty DeviceID
// means "first peripheral that looks like a printer" (service UUID or
// known name prefix); a non-empty one demands that exact device, which
// is the silent-reconnect path.
type Target struct {
	DeviceID string
}

// DeviceInfo identifies a connected peripheral; ID is stable across
// sessions and is what gets persisted for reconnection.
type DeviceInfo struct {
	ID   string
	Name string
}

// Transport is the byte pipe to the printer. Implementations must keep
// Connected derived from the live link, not from a cached flag, because
// BLE links drop silently.
type Transport interface {
	Connect(ctx context.Context, target Target) (DeviceInfo, error)

	// Write sends one bounded chunk. Calls are strictly sequential;
	// the caller never issues parallel writes.
	Write(p []byte) error

	Connected() bool

	Close() error

	// OnDisconnect registers a callback fired when the peripheral side
	// drops the link. At most one callback is kept.
	OnDisconnect(fn func())
}

// Chunks splits buf into slices of at most size bytes, preserving
// order. The returned slices alias buf.
func Chunks(buf []byte, size int) [][]byte {
	if size <= 0 || len(buf) == 0 {
		return nil
	}
	out := make([][]byte, 0, (len(buf)+size-1)/size)
	for len(buf) > size {
		out = append(out, buf[:size])
		buf = buf[size:]
	}
	return append(out, buf)
}
