package breezer

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Target temperature bounds supported by the appliance, degrees Celsius.
const (
	MinTargetTemperature = 5
	MaxTargetTemperature = 25

	// defaultTargetTemperature is assumed until the device reports one.
	defaultTargetTemperature = 20
)

// ReceivedFields tracks which state fields have been reported by the
// device at least once since this Machine was created. Each flag starts
// false and becomes permanently true on the first inbound message for its
// field. Purely informational: commands are accepted regardless.
type ReceivedFields struct {
	Mode     bool
	Speed    bool
	Target   bool
	Measured bool
}

// State is a point-in-time snapshot of the semantic appliance state.
// Used for observers and the state-change history.
type State struct {
	Power               bool     `json:"power"`
	Mode                int      `json:"mode"`
	Preset              Preset   `json:"preset"`
	Speed               int      `json:"speed"`
	FanMode             string   `json:"fan_mode"`
	TargetTemperature   float64  `json:"target_temperature"`
	MeasuredTemperature *float64 `json:"measured_temperature,omitempty"`
}

// Machine owns the semantic state of one breezer unit and the
// bidirectional mapping between wire codes and that state.
//
// Inbound wire events enter through the Ingest* operations; locally issued
// commands go through the Issue* operations, which update state
// optimistically and return the wire payload to publish. When a command
// and an inbound event race, last-write-by-arrival wins: whichever reaches
// the Machine later overwrites the field.
//
// Thread Safety: all methods are safe for concurrent use. In practice the
// Ingest* operations run on the relay consumer goroutine and the Issue*
// operations on the host's application goroutine.
type Machine struct {
	mu sync.RWMutex

	power    bool
	modeCode int
	// lastActiveMode is the most recent non-zero mode observed or issued.
	// Power-on re-issues it rather than hardcoding manual mode.
	lastActiveMode int

	speedCode int

	targetTemp    float64
	measuredTemp  float64
	measuredKnown bool

	received ReceivedFields
}

// NewMachine creates a Machine in the "state not yet known" condition:
// powered off, no preset, fan off, default target temperature, measured
// temperature unknown, all received flags false.
func NewMachine() *Machine {
	return &Machine{
		targetTemp: defaultTargetTemperature,
	}
}

// =============================================================================
// Inbound (wire → semantic)
// =============================================================================

// IngestMode applies a state/mode payload.
//
// The payload is an ASCII decimal operating code. A non-numeric payload is
// a handled decode failure: the previous state is retained and
// ErrInvalidPayload is returned for logging. A numeric code outside the
// 0-5 vocabulary is stored as-is (power derives from code != 0) so the
// caller can warn without losing information.
func (m *Machine) IngestMode(payload string) error {
	code, err := strconv.Atoi(strings.TrimSpace(payload))
	if err != nil {
		return fmt.Errorf("%w: mode %q", ErrInvalidPayload, payload)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.modeCode = code
	m.power = code != ModeOff
	if code != ModeOff {
		m.lastActiveMode = code
	}
	m.received.Mode = true

	return nil
}

// IngestSpeed applies a state/speed payload.
//
// Accepts the bare digit form ("3") and the labelled form ("S3").
// Unrecognised values fall back to SpeedOff rather than being rejected.
func (m *Machine) IngestSpeed(payload string) error {
	code := SpeedForLabel(strings.TrimSpace(payload))

	m.mu.Lock()
	defer m.mu.Unlock()

	m.speedCode = code
	m.received.Speed = true

	return nil
}

// IngestTargetTemperature applies a state/temperature payload.
// Non-numeric payloads retain the previous value and return ErrInvalidPayload.
func (m *Machine) IngestTargetTemperature(payload string) error {
	value, err := strconv.ParseFloat(strings.TrimSpace(payload), 64)
	if err != nil {
		return fmt.Errorf("%w: target temperature %q", ErrInvalidPayload, payload)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.targetTemp = value
	m.received.Target = true

	return nil
}

// IngestMeasuredTemperature applies a state/sensor/temperature payload.
// Non-numeric payloads retain the previous value and return ErrInvalidPayload.
func (m *Machine) IngestMeasuredTemperature(payload string) error {
	value, err := strconv.ParseFloat(strings.TrimSpace(payload), 64)
	if err != nil {
		return fmt.Errorf("%w: measured temperature %q", ErrInvalidPayload, payload)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.measuredTemp = value
	m.measuredKnown = true
	m.received.Measured = true

	return nil
}

// =============================================================================
// Outbound (semantic → wire)
// =============================================================================

// IssuePower encodes a power command and applies it optimistically.
//
// Off encodes mode 0. On re-issues the last non-zero mode observed or
// issued, defaulting to manual mode if none has ever been seen.
// Returns the wire payload for control/mode.
func (m *Machine) IssuePower(on bool) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !on {
		m.power = false
		m.modeCode = ModeOff
		return strconv.Itoa(ModeOff)
	}

	mode := m.lastActiveMode
	if mode == ModeOff {
		mode = ModeManual
	}

	m.power = true
	m.modeCode = mode
	m.lastActiveMode = mode

	return strconv.Itoa(mode)
}

// IssuePreset encodes a preset command and applies it optimistically.
// Unrecognised preset names map to manual mode.
// Returns the wire payload for control/mode.
func (m *Machine) IssuePreset(preset Preset) string {
	code := ModeForPreset(preset)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.power = true
	m.modeCode = code
	m.lastActiveMode = code

	return strconv.Itoa(code)
}

// IssueFanSpeed encodes a fan speed command and applies it optimistically.
// Unrecognised labels map to SpeedOff.
// Returns the wire payload for control/speed.
func (m *Machine) IssueFanSpeed(label string) string {
	code := SpeedForLabel(label)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.speedCode = code

	return strconv.Itoa(code)
}

// IssueTargetTemperature encodes a target temperature command and applies
// it optimistically. The wire form is an integer, so the stored value is
// the integer actually sent; range clamping is the caller's policy (see
// Device.SetTargetTemperature). Returns the wire payload for
// control/temperature.
func (m *Machine) IssueTargetTemperature(value float64) string {
	wire := int(value)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.targetTemp = float64(wire)

	return strconv.Itoa(wire)
}

// =============================================================================
// Accessors
// =============================================================================

// Power reports whether the unit is on.
func (m *Machine) Power() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.power
}

// Mode returns the current operating mode code.
func (m *Machine) Mode() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.modeCode
}

// Preset returns the externally visible preset for the current mode.
func (m *Machine) Preset() Preset {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return PresetForMode(m.modeCode)
}

// Speed returns the current fan speed code.
func (m *Machine) Speed() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.speedCode
}

// FanMode returns the current fan speed label, kept in lock-step with the
// speed code.
func (m *Machine) FanMode() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return LabelForSpeed(m.speedCode)
}

// TargetTemperature returns the target temperature in degrees Celsius.
func (m *Machine) TargetTemperature() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.targetTemp
}

// MeasuredTemperature returns the measured temperature and whether one has
// been reported yet.
func (m *Machine) MeasuredTemperature() (float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.measuredTemp, m.measuredKnown
}

// Received returns the per-field first-value-received flags.
func (m *Machine) Received() ReceivedFields {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.received
}

// Ready reports whether all four state fields have been received at least
// once. Diagnostic only: commands are accepted before the state is fully
// known, per the optimistic-update policy.
func (m *Machine) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.received.Mode && m.received.Speed && m.received.Target && m.received.Measured
}

// Snapshot returns a copy of the full semantic state.
func (m *Machine) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := State{
		Power:             m.power,
		Mode:              m.modeCode,
		Preset:            PresetForMode(m.modeCode),
		Speed:             m.speedCode,
		FanMode:           LabelForSpeed(m.speedCode),
		TargetTemperature: m.targetTemp,
	}
	if m.measuredKnown {
		measured := m.measuredTemp
		s.MeasuredTemperature = &measured
	}
	return s
}
