package printer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"
)

// Generic BLE printer profile. Most ESC/POS thermal printers expose a
// write characteristic under this service.
var (
	printerServiceUUID = bluetooth.New16BitUUID(0x18f0)
	printerWriteUUID   = bluetooth.New16BitUUID(0x2af1)
)

// printerNamePrefixes matches peripherals that advertise a name but
// not the printer service UUID.
var printerNamePrefixes = []string{"MTP-", "PT-", "POS-", "Printer"}

const connectTimeout = 10 * time.Second

// BLETransport drives a thermal printer through the system Bluetooth
// adapter. Liveness comes from the adapter's connect handler, which is
// the only place the stack reports a dropped link.
type BLETransport struct {
	adapter *bluetooth.Adapter

	enableOnce sync.Once
	enableErr  error

	mu           sync.Mutex
	device       bluetooth.Device
	char         bluetooth.DeviceCharacteristic
	connected    bool
	onDisconnect func()
}

func NewBLETransport() *BLETransport {
	return &BLETransport{adapter: bluetooth.DefaultAdapter}
}

func (t *BLETransport) enable() error {
	t.enableOnce.Do(func() {
		t.adapter.SetConnectHandler(func(_ bluetooth.Device, connected bool) {
			t.mu.Lock()
			t.connected = connected
			fn := t.onDisconnect
			t.mu.Unlock()
			if !connected && fn != nil {
				fn()
			}
		})
		t.enableErr = t.adapter.Enable()
	})
	return t.enableErr
}

func (t *BLETransport) Connect(ctx context.Context, target Target) (DeviceInfo, error) {
	if err := t.enable(); err != nil {
		return DeviceInfo{}, fmt.Errorf("enabling bluetooth adapter: %w", err)
	}

	result, err := t.discover(ctx, target)
	if err != nil {
		return DeviceInfo{}, err
	}

	dev, err := t.adapter.Connect(result.Address, bluetooth.ConnectionParams{
		ConnectionTimeout: bluetooth.NewDuration(connectTimeout),
	})
	if err != nil {
		return DeviceInfo{}, fmt.Errorf("connecting to %s: %w", result.Address.String(), err)
	}

	svcs, err := dev.DiscoverServices([]bluetooth.UUID{printerServiceUUID})
	if err != nil || len(svcs) == 0 {
		_ = dev.Disconnect()
		return DeviceInfo{}, fmt.Errorf("printer service not found on %s: %w", result.Address.String(), err)
	}
	chars, err := svcs[0].DiscoverCharacteristics([]bluetooth.UUID{printerWriteUUID})
	if err != nil || len(chars) == 0 {
		_ = dev.Disconnect()
		return DeviceInfo{}, fmt.Errorf("write characteristic not found on %s: %w", result.Address.String(), err)
	}

	t.mu.Lock()
	t.device = dev
	t.char = chars[0]
	t.connected = true
	t.mu.Unlock()

	return DeviceInfo{ID: result.Address.String(), Name: result.LocalName()}, nil
}

// discover scans until a matching peripheral advertises or ctx expires.
func (t *BLETransport) discover(ctx context.Context, target Target) (bluetooth.ScanResult, error) {
	found := make(chan bluetooth.ScanResult, 1)
	scanErr := make(chan error, 1)

	go func() {
		err := t.adapter.Scan(func(a *bluetooth.Adapter, r bluetooth.ScanResult) {
			if !matchesTarget(r, target) {
				return
			}
			select {
			case found <- r:
			default:
			}
			_ = a.StopScan()
		})
		if err != nil {
			scanErr <- err
		}
	}()

	select {
	case r := <-found:
		return r, nil
	case err := <-scanErr:
		return bluetooth.ScanResult{}, fmt.Errorf("bluetooth scan: %w", err)
	case <-ctx.Done():
		_ = t.adapter.StopScan()
		return bluetooth.ScanResult{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, ctx.Err())
	}
}

func matchesTarget(r bluetooth.ScanResult, target Target) bool {
	if target.DeviceID != "" {
		return r.Address.String() == target.DeviceID
	}
	if r.HasServiceUUID(printerServiceUUID) {
		return true
	}
	name := r.LocalName()
	for _, p := range printerNamePrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

func (t *BLETransport) Write(p []byte) error {
	t.mu.Lock()
	connected := t.connected
	char := t.char
	t.mu.Unlock()
	if !connected {
		return ErrNotConnected
	}
	if _, err := char.WriteWithoutResponse(p); err != nil {
		return fmt.Errorf("characteristic write: %w", err)
	}
	return nil
}

func (t *BLETransport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

func (t *BLETransport) Close() error {
	t.mu.Lock()
	dev := t.device
	connected := t.connected
	t.connected = false
	t.mu.Unlock()
	if !connected {
		return nil
	}
	return dev.Disconnect()
}

func (t *BLETransport) OnDisconnect(fn func()) {
	t.mu.Lock()
	t.onDisconnect = fn
	t.mu.Unlock()
}
