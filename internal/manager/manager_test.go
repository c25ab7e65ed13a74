package manager

import (
	"errors"
	"fmt"
	"testing"

	"github.com/openbreeze/breezer-core/internal/breezer"
	"github.com/openbreeze/breezer-core/internal/infrastructure/mqtt"
)

// stubMQTT satisfies breezer.MQTTClient with no broker behind it.
type stubMQTT struct {
	subscribeErr error
}

func (s *stubMQTT) PublishString(topic string, payload string, qos byte, retained bool) error {
	return nil
}

func (s *stubMQTT) Subscribe(pattern string, qos byte, handler mqtt.MessageHandler) error {
	return s.subscribeErr
}

func (s *stubMQTT) IsConnected() bool {
	return true
}

func newTestDevice(t *testing.T, mac string, transport breezer.MQTTClient) *breezer.Device {
	t.Helper()

	d, err := breezer.NewDevice(breezer.DeviceOptions{
		MAC:    mac,
		Name:   "test unit",
		Topics: breezer.NewTopicSet("rusclimate", "69", "client-"+mac),
		MQTT:   transport,
	})
	if err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}
	return d
}

func TestAddAndGet(t *testing.T) {
	m := New()
	defer m.Close()

	d := newTestDevice(t, "aabbccddeeff", &stubMQTT{})
	if err := m.Add(d); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	got, err := m.Get("aabbccddeeff")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != d {
		t.Error("Get() returned a different device")
	}
	if m.Count() != 1 {
		t.Errorf("Count() = %d, want 1", m.Count())
	}
}

func TestAddDuplicate(t *testing.T) {
	m := New()
	defer m.Close()

	transport := &stubMQTT{}
	if err := m.Add(newTestDevice(t, "aabbccddeeff", transport)); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	err := m.Add(newTestDevice(t, "aabbccddeeff", transport))
	if !errors.Is(err, ErrDeviceExists) {
		t.Errorf("Add() duplicate error = %v, want ErrDeviceExists", err)
	}
	if m.Count() != 1 {
		t.Errorf("Count() = %d after duplicate Add, want 1", m.Count())
	}
}

func TestAddNil(t *testing.T) {
	m := New()
	defer m.Close()

	if err := m.Add(nil); err == nil {
		t.Error("Add(nil) succeeded, want error")
	}
}

func TestAddStartFailureUnregisters(t *testing.T) {
	m := New()
	defer m.Close()

	transport := &stubMQTT{subscribeErr: fmt.Errorf("broker rejected subscription")}
	err := m.Add(newTestDevice(t, "aabbccddeeff", transport))
	if err == nil {
		t.Fatal("Add() succeeded with failing Start, want error")
	}
	if m.Count() != 0 {
		t.Errorf("Count() = %d after failed Add, want 0", m.Count())
	}
}

func TestGetUnknown(t *testing.T) {
	m := New()
	defer m.Close()

	_, err := m.Get("000000000000")
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Get() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestRemove(t *testing.T) {
	m := New()
	defer m.Close()

	if err := m.Add(newTestDevice(t, "aabbccddeeff", &stubMQTT{})); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if err := m.Remove("aabbccddeeff"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if m.Count() != 0 {
		t.Errorf("Count() = %d after Remove, want 0", m.Count())
	}

	if err := m.Remove("aabbccddeeff"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("second Remove() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestList(t *testing.T) {
	m := New()
	defer m.Close()

	transport := &stubMQTT{}
	m.Add(newTestDevice(t, "aabbccddeeff", transport))
	m.Add(newTestDevice(t, "112233445566", transport))

	devices := m.List()
	if len(devices) != 2 {
		t.Fatalf("List() len = %d, want 2", len(devices))
	}

	seen := make(map[string]bool)
	for _, d := range devices {
		seen[d.ID()] = true
	}
	if !seen["aabbccddeeff"] || !seen["112233445566"] {
		t.Errorf("List() ids = %v", seen)
	}
}

func TestClose(t *testing.T) {
	m := New()

	m.Add(newTestDevice(t, "aabbccddeeff", &stubMQTT{}))
	m.Close()

	if m.Count() != 0 {
		t.Errorf("Count() = %d after Close, want 0", m.Count())
	}

	// Closed manager rejects new devices
	if err := m.Add(newTestDevice(t, "112233445566", &stubMQTT{})); err == nil {
		t.Error("Add() after Close succeeded, want error")
	}

	// Second close is a no-op
	m.Close()
}
