package manager

import (
	"errors"
	"fmt"
	"sync"

	"github.com/openbreeze/breezer-core/internal/breezer"
)

// Sentinel errors for manager operations.
var (
	// ErrDeviceExists indicates a device with the same id is already managed.
	ErrDeviceExists = errors.New("manager: device already exists")

	// ErrDeviceNotFound indicates no managed device has the given id.
	ErrDeviceNotFound = errors.New("manager: device not found")
)

// Logger defines the logging interface used by the Manager.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Manager owns the set of running breezer devices, keyed by device id
// (MAC address). It starts each device on Add, stops it on Remove, and
// tears the whole set down on Close.
//
// All public methods are thread-safe.
type Manager struct {
	mu      sync.RWMutex
	devices map[string]*breezer.Device
	closed  bool
	logger  Logger
}

// New creates an empty device manager.
func New() *Manager {
	return &Manager{
		devices: make(map[string]*breezer.Device),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// Add registers a device and starts its state synchronization.
// The manager owns the device from this point; a failed Start leaves
// the device unregistered and stopped.
func (m *Manager) Add(device *breezer.Device) error {
	if device == nil {
		return fmt.Errorf("manager: device is nil")
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return fmt.Errorf("manager: closed")
	}
	if _, ok := m.devices[device.ID()]; ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDeviceExists, device.ID())
	}
	m.devices[device.ID()] = device
	m.mu.Unlock()

	if err := device.Start(); err != nil {
		device.Stop()
		m.mu.Lock()
		delete(m.devices, device.ID())
		m.mu.Unlock()
		return fmt.Errorf("starting device %s: %w", device.ID(), err)
	}

	m.logger.Info("device added", "device", device.ID(), "name", device.Name())
	return nil
}

// Get retrieves a managed device by id.
func (m *Manager) Get(id string) (*breezer.Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	device, ok := m.devices[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	return device, nil
}

// List returns all managed devices. The slice is a snapshot; the
// devices themselves are shared.
func (m *Manager) List() []*breezer.Device {
	m.mu.RLock()
	defer m.mu.RUnlock()

	devices := make([]*breezer.Device, 0, len(m.devices))
	for _, d := range m.devices {
		devices = append(devices, d)
	}
	return devices
}

// Count returns the number of managed devices.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.devices)
}

// Remove stops a device and removes it from the manager.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	device, ok := m.devices[id]
	if ok {
		delete(m.devices, id)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}

	device.Stop()
	m.logger.Info("device removed", "device", id)
	return nil
}

// Close stops every managed device and marks the manager closed.
// Further Add calls fail. Idempotent.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	devices := make([]*breezer.Device, 0, len(m.devices))
	for _, d := range m.devices {
		devices = append(devices, d)
	}
	m.devices = make(map[string]*breezer.Device)
	m.mu.Unlock()

	for _, d := range devices {
		d.Stop()
	}
	m.logger.Info("all devices stopped", "count", len(devices))
}
