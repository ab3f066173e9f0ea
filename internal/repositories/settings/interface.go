// Package settings stores the single per-collector settings row: sync
// watermark, auto-sync flag, and last known printer device.
package settings

import (
	"context"
	"time"
)

// Settings is device-local state that survives restarts but is never
// uploaded.
type Settings struct {
	CollectorID string

	// LastFullSync is the watermark of the last completed sync call,
	// shown in the UI; it is not a correctness gate.
	LastFullSync time.Time

	AutoSync    bool
	PrintFormat string

	// Last paired printer, so reconnection can skip the device picker.
	PrinterDeviceID   string
	PrinterDeviceName string
}

type Repository interface {
	// Get returns the row for the collector, creating defaults if none
	// exists yet.
	Get(ctx context.Context, collectorID string) (*Settings, error)

	SetLastFullSync(ctx context.Context, collectorID string, at time.Time) error
	SetAutoSync(ctx context.Context, collectorID string, on bool) error
	SetPrinterDevice(ctx context.Context, collectorID, deviceID, deviceName string) error
}
