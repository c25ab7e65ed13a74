package breezer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/openbreeze/breezer-core/internal/infrastructure/mqtt"
)

// =============================================================================
// Test Fakes
// =============================================================================

type publishRecord struct {
	topic   string
	payload string
}

// fakeMQTT records publishes and lets tests deliver inbound messages to
// registered handlers directly.
type fakeMQTT struct {
	mu         sync.Mutex
	published  []publishRecord
	handlers   map[string]mqtt.MessageHandler
	publishErr error
}

func newFakeMQTT() *fakeMQTT {
	return &fakeMQTT{handlers: make(map[string]mqtt.MessageHandler)}
}

func (f *fakeMQTT) PublishString(topic string, payload string, qos byte, retained bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, publishRecord{topic: topic, payload: payload})
	return nil
}

func (f *fakeMQTT) Subscribe(pattern string, qos byte, handler mqtt.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[pattern] = handler
	return nil
}

func (f *fakeMQTT) IsConnected() bool {
	return true
}

// deliver invokes the handler registered for topic, as the relay would.
func (f *fakeMQTT) deliver(t *testing.T, topic string, payload string) error {
	t.Helper()
	f.mu.Lock()
	handler, ok := f.handlers[topic]
	f.mu.Unlock()
	if !ok {
		t.Fatalf("no handler registered for %q", topic)
	}
	return handler(topic, payload)
}

func (f *fakeMQTT) publishes() []publishRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]publishRecord, len(f.published))
	copy(out, f.published)
	return out
}

func (f *fakeMQTT) clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = nil
}

type historyEntry struct {
	deviceID string
	state    State
	source   string
}

type fakeHistory struct {
	mu      sync.Mutex
	entries []historyEntry
}

func (h *fakeHistory) RecordStateChange(ctx context.Context, deviceID string, state State, source string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, historyEntry{deviceID: deviceID, state: state, source: source})
	return nil
}

func (h *fakeHistory) all() []historyEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]historyEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

type telemetryPoint struct {
	deviceID    string
	measurement string
	value       float64
}

type fakeTelemetry struct {
	mu     sync.Mutex
	points []telemetryPoint
}

func (f *fakeTelemetry) WriteTemperature(deviceID string, measurement string, value float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points = append(f.points, telemetryPoint{deviceID: deviceID, measurement: measurement, value: value})
}

func (f *fakeTelemetry) all() []telemetryPoint {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]telemetryPoint, len(f.points))
	copy(out, f.points)
	return out
}

const (
	testMAC      = "aabbccddeeff"
	testClientID = "bb2791f30a28776d6fe45943f1b68928"
)

func newTestDevice(t *testing.T, transport *fakeMQTT, opts DeviceOptions) *Device {
	t.Helper()

	opts.MAC = testMAC
	opts.Topics = NewTopicSet("rusclimate", "69", testClientID)
	opts.MQTT = transport

	d, err := NewDevice(opts)
	if err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}
	t.Cleanup(d.Stop)
	return d
}

// =============================================================================
// Lifecycle Tests
// =============================================================================

func TestNewDeviceValidation(t *testing.T) {
	if _, err := NewDevice(DeviceOptions{MQTT: newFakeMQTT()}); err == nil {
		t.Error("NewDevice() without MAC succeeded, want error")
	}
	if _, err := NewDevice(DeviceOptions{MAC: testMAC}); err == nil {
		t.Error("NewDevice() without MQTT client succeeded, want error")
	}
}

func TestStartSubscribesAndProbes(t *testing.T) {
	transport := newFakeMQTT()
	d := newTestDevice(t, transport, DeviceOptions{})

	if err := d.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	for _, topic := range d.topics.StateTopics() {
		transport.mu.Lock()
		_, ok := transport.handlers[topic]
		transport.mu.Unlock()
		if !ok {
			t.Errorf("no subscription for %q", topic)
		}
	}

	// The probe publishes an empty payload to each control topic.
	probes := transport.publishes()
	want := d.topics.ControlTopics()
	if len(probes) != len(want) {
		t.Fatalf("probe count = %d, want %d", len(probes), len(want))
	}
	for i, p := range probes {
		if p.topic != want[i] {
			t.Errorf("probe[%d].topic = %q, want %q", i, p.topic, want[i])
		}
		if p.payload != "" {
			t.Errorf("probe[%d].payload = %q, want empty", i, p.payload)
		}
	}
}

func TestStopIdempotent(t *testing.T) {
	d := newTestDevice(t, newFakeMQTT(), DeviceOptions{})

	d.Stop()
	d.Stop()
}

// =============================================================================
// Inbound Event Tests
// =============================================================================

func TestInboundModeUpdatesState(t *testing.T) {
	transport := newFakeMQTT()
	d := newTestDevice(t, transport, DeviceOptions{})
	if err := d.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := transport.deliver(t, d.topics.StateMode(), "2"); err != nil {
		t.Fatalf("deliver mode error = %v", err)
	}

	if !d.Power() {
		t.Error("Power() = false after mode 2")
	}
	if d.Preset() != PresetAuto {
		t.Errorf("Preset() = %q, want %q", d.Preset(), PresetAuto)
	}
}

func TestInboundDecodeFailurePropagates(t *testing.T) {
	transport := newFakeMQTT()
	d := newTestDevice(t, transport, DeviceOptions{})
	if err := d.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	err := transport.deliver(t, d.topics.StateMode(), "garbage")
	if !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("deliver error = %v, want ErrInvalidPayload", err)
	}
	if d.Power() {
		t.Error("Power() changed by undecodable payload")
	}
}

func TestInboundUnknownTopic(t *testing.T) {
	d := newTestDevice(t, newFakeMQTT(), DeviceOptions{})

	err := d.handleMessage("some/other/topic", "1")
	if !errors.Is(err, ErrUnknownTopic) {
		t.Fatalf("handleMessage() error = %v, want ErrUnknownTopic", err)
	}
}

func TestInboundFullSynchronization(t *testing.T) {
	transport := newFakeMQTT()
	d := newTestDevice(t, transport, DeviceOptions{})
	if err := d.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	transport.deliver(t, d.topics.StateMode(), "1")
	transport.deliver(t, d.topics.StateSpeed(), "3")
	transport.deliver(t, d.topics.StateTemperature(), "19")
	if d.Ready() {
		t.Error("Ready() = true with the measured temperature still unknown")
	}

	transport.deliver(t, d.topics.StateSensorTemperature(), "20.5")
	if !d.Ready() {
		t.Error("Ready() = false after all four state topics delivered")
	}

	s := d.Snapshot()
	if s.Preset != PresetComfort || s.FanMode != "S3" || s.TargetTemperature != 19 {
		t.Errorf("Snapshot() = %+v", s)
	}
	if s.MeasuredTemperature == nil || *s.MeasuredTemperature != 20.5 {
		t.Errorf("Snapshot().MeasuredTemperature = %v, want 20.5", s.MeasuredTemperature)
	}
}

// =============================================================================
// Command Tests
// =============================================================================

func TestSetPowerPublishesMode(t *testing.T) {
	transport := newFakeMQTT()
	d := newTestDevice(t, transport, DeviceOptions{})
	if err := d.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	transport.deliver(t, d.topics.StateMode(), "5")
	transport.clear()

	if err := d.SetPower(false); err != nil {
		t.Fatalf("SetPower(false) error = %v", err)
	}
	if err := d.SetPower(true); err != nil {
		t.Fatalf("SetPower(true) error = %v", err)
	}

	got := transport.publishes()
	if len(got) != 2 {
		t.Fatalf("publish count = %d, want 2", len(got))
	}
	if got[0].topic != d.topics.ControlMode() || got[0].payload != "0" {
		t.Errorf("off publish = %+v, want mode topic payload \"0\"", got[0])
	}
	// Power-on restores the last observed non-zero mode.
	if got[1].topic != d.topics.ControlMode() || got[1].payload != "5" {
		t.Errorf("on publish = %+v, want mode topic payload \"5\"", got[1])
	}
}

func TestSetPresetPublishesModeCode(t *testing.T) {
	transport := newFakeMQTT()
	d := newTestDevice(t, transport, DeviceOptions{})

	if err := d.SetPreset(PresetSleep); err != nil {
		t.Fatalf("SetPreset() error = %v", err)
	}

	got := transport.publishes()
	if len(got) != 1 || got[0].topic != d.topics.ControlMode() || got[0].payload != "3" {
		t.Fatalf("publishes = %+v, want one mode publish with payload \"3\"", got)
	}
	if d.Preset() != PresetSleep {
		t.Errorf("Preset() = %q, want %q (optimistic update)", d.Preset(), PresetSleep)
	}
}

func TestSetFanSpeedPublishesCode(t *testing.T) {
	transport := newFakeMQTT()
	d := newTestDevice(t, transport, DeviceOptions{})

	if err := d.SetFanSpeed("S4"); err != nil {
		t.Fatalf("SetFanSpeed() error = %v", err)
	}

	got := transport.publishes()
	if len(got) != 1 || got[0].topic != d.topics.ControlSpeed() || got[0].payload != "4" {
		t.Fatalf("publishes = %+v, want one speed publish with payload \"4\"", got)
	}
	if d.FanMode() != "S4" {
		t.Errorf("FanMode() = %q, want \"S4\"", d.FanMode())
	}
}

func TestSetTargetTemperatureClamps(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		wantWire string
		wantTemp float64
	}{
		{name: "in range", value: 21, wantWire: "21", wantTemp: 21},
		{name: "below minimum", value: 2, wantWire: "5", wantTemp: 5},
		{name: "above maximum", value: 40, wantWire: "25", wantTemp: 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := newFakeMQTT()
			d := newTestDevice(t, transport, DeviceOptions{})

			if err := d.SetTargetTemperature(tt.value); err != nil {
				t.Fatalf("SetTargetTemperature(%v) error = %v", tt.value, err)
			}

			got := transport.publishes()
			if len(got) != 1 || got[0].topic != d.topics.ControlTemperature() || got[0].payload != tt.wantWire {
				t.Fatalf("publishes = %+v, want %q on temperature topic", got, tt.wantWire)
			}
			if d.TargetTemperature() != tt.wantTemp {
				t.Errorf("TargetTemperature() = %v, want %v", d.TargetTemperature(), tt.wantTemp)
			}
		})
	}
}

func TestCommandPublishFailureKeepsOptimisticState(t *testing.T) {
	transport := newFakeMQTT()
	transport.publishErr = errors.New("broker unreachable")
	d := newTestDevice(t, transport, DeviceOptions{})

	err := d.SetPreset(PresetEco)
	if err == nil {
		t.Fatal("SetPreset() succeeded with failing transport, want error")
	}

	// The caller sees the error but the local state moved anyway; an
	// inbound event will reconcile it later.
	if d.Preset() != PresetEco {
		t.Errorf("Preset() = %q, want %q", d.Preset(), PresetEco)
	}
}

// =============================================================================
// Observer / History / Telemetry Tests
// =============================================================================

func TestObserverNotified(t *testing.T) {
	transport := newFakeMQTT()
	d := newTestDevice(t, transport, DeviceOptions{})
	if err := d.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	notified := 0
	d.SetObserver(func() { notified++ })

	transport.deliver(t, d.topics.StateMode(), "1")
	d.SetFanSpeed("S2")

	if notified != 2 {
		t.Errorf("observer notified %d times, want 2", notified)
	}
}

func TestHistoryRecordsSource(t *testing.T) {
	transport := newFakeMQTT()
	history := &fakeHistory{}
	d := newTestDevice(t, transport, DeviceOptions{History: history})
	if err := d.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	transport.deliver(t, d.topics.StateMode(), "2")
	d.SetFanSpeed("S1")

	entries := history.all()
	if len(entries) != 2 {
		t.Fatalf("history entries = %d, want 2", len(entries))
	}
	if entries[0].source != SourceMQTT || entries[0].deviceID != testMAC {
		t.Errorf("entries[0] = %+v, want mqtt source for %s", entries[0], testMAC)
	}
	if entries[1].source != SourceCommand {
		t.Errorf("entries[1].source = %q, want %q", entries[1].source, SourceCommand)
	}
	if entries[1].state.FanMode != "S1" {
		t.Errorf("entries[1].state.FanMode = %q, want \"S1\"", entries[1].state.FanMode)
	}
}

func TestTelemetryWrittenForTemperatures(t *testing.T) {
	transport := newFakeMQTT()
	telemetry := &fakeTelemetry{}
	d := newTestDevice(t, transport, DeviceOptions{Telemetry: telemetry})
	if err := d.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	transport.deliver(t, d.topics.StateMode(), "1") // no telemetry
	transport.deliver(t, d.topics.StateTemperature(), "19")
	transport.deliver(t, d.topics.StateSensorTemperature(), "21.5")

	points := telemetry.all()
	if len(points) != 2 {
		t.Fatalf("telemetry points = %d, want 2", len(points))
	}
	if points[0].measurement != "target_temperature_c" || points[0].value != 19 {
		t.Errorf("points[0] = %+v", points[0])
	}
	if points[1].measurement != "measured_temperature_c" || points[1].value != 21.5 {
		t.Errorf("points[1] = %+v", points[1])
	}
}
