package breezer

import (
	"context"
	"fmt"
	"sync"

	"github.com/openbreeze/breezer-core/internal/infrastructure/mqtt"
)

// State-change sources recorded in the history.
const (
	SourceMQTT    = "mqtt"
	SourceCommand = "command"
)

// MQTTClient is the transport interface the device needs.
// Satisfied by *mqtt.Client; narrowed for testing with fakes.
type MQTTClient interface {
	// PublishString sends a string payload to a topic.
	PublishString(topic string, payload string, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(pattern string, qos byte, handler mqtt.MessageHandler) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// HistoryRecorder persists state snapshots.
// This interface is satisfied by *history.Repository.
// It is optional - if nil, the device operates without state history.
type HistoryRecorder interface {
	RecordStateChange(ctx context.Context, deviceID string, state State, source string) error
}

// TelemetryWriter records temperature telemetry.
// This interface is satisfied by *influxdb.Client.
// It is optional - if nil, the device operates without telemetry.
type TelemetryWriter interface {
	WriteTemperature(deviceID string, measurement string, value float64)
}

// Logger is the structured logger interface used by the device.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Telemetry measurement names.
const (
	measurementMeasured = "measured_temperature_c"
	measurementTarget   = "target_temperature_c"
)

// Device wires one breezer unit's state machine to the MQTT transport and
// exposes it to the host: read accessors for the semantic state, four
// commands, and a change-notification observer.
//
// Inbound events reach handleMessage on the relay consumer goroutine;
// commands arrive from the host's application goroutine. Both funnel into
// the Machine, which is the only holder of mutable state.
type Device struct {
	id      string
	name    string
	topics  TopicSet
	machine *Machine
	mqtt    MQTTClient

	history   HistoryRecorder // optional
	telemetry TelemetryWriter // optional

	// observer is notified after every applied state change.
	observer   func()
	observerMu sync.RWMutex

	ctx       context.Context
	ctxCancel context.CancelFunc
	stopOnce  sync.Once

	logger Logger
}

// DeviceOptions holds configuration for creating a device.
type DeviceOptions struct {
	// MAC identifies the unit (12 hex characters); used as the device id.
	MAC string

	// Name is the human-readable unit name.
	Name string

	// Topics is the topic set built from namespace/deviceType/clientID.
	Topics TopicSet

	// MQTT is the transport client.
	MQTT MQTTClient

	// History is optional state-change persistence.
	History HistoryRecorder

	// Telemetry is optional temperature telemetry.
	Telemetry TelemetryWriter

	// Logger is optional structured logging.
	Logger Logger
}

// NewDevice creates a device instance. Call Start() to begin synchronizing.
func NewDevice(opts DeviceOptions) (*Device, error) {
	if opts.MAC == "" {
		return nil, fmt.Errorf("device MAC is required")
	}
	if opts.MQTT == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}

	ctx, ctxCancel := context.WithCancel(context.Background())

	return &Device{
		id:        opts.MAC,
		name:      opts.Name,
		topics:    opts.Topics,
		machine:   NewMachine(),
		mqtt:      opts.MQTT,
		history:   opts.History,
		telemetry: opts.Telemetry,
		ctx:       ctx,
		ctxCancel: ctxCancel,
		logger:    opts.Logger,
	}, nil
}

// Start subscribes the device's state topics and probes the unit for its
// current state.
//
// The probe publishes an empty payload to each control topic; the firmware
// answers by re-emitting its retained state on the corresponding state
// topics. A probe failure is logged but not fatal: the retained messages
// delivered on subscribe usually cover the same ground.
func (d *Device) Start() error {
	for _, topic := range d.topics.StateTopics() {
		if err := d.mqtt.Subscribe(topic, 0, d.handleMessage); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}
	d.logInfo("subscribed to state topics", "prefix", d.topics.Prefix())

	d.RequestCurrentState()

	return nil
}

// Stop releases the device's background context. Idempotent.
func (d *Device) Stop() {
	d.stopOnce.Do(func() {
		d.ctxCancel()
		d.logInfo("device stopped")
	})
}

// RequestCurrentState asks the unit to re-emit its current state by
// publishing empty payloads to the three control topics. This is a probe,
// not a command: the firmware treats an empty payload as a state request.
func (d *Device) RequestCurrentState() {
	for _, topic := range d.topics.ControlTopics() {
		if err := d.mqtt.PublishString(topic, "", 0, false); err != nil {
			d.logWarn("state request probe failed", "topic", topic, "error", err)
		}
	}
}

// handleMessage routes one inbound event into the state machine.
//
// Decode failures are handled here: the previous state is retained and the
// error is returned so the relay logs it as a warning. They never
// propagate further.
func (d *Device) handleMessage(topic string, payload string) error {
	var err error

	switch topic {
	case d.topics.StateMode():
		err = d.machine.IngestMode(payload)
		if err == nil && !KnownMode(d.machine.Mode()) {
			d.logWarn("unrecognised operating mode code", "code", d.machine.Mode())
		}
	case d.topics.StateSpeed():
		err = d.machine.IngestSpeed(payload)
	case d.topics.StateTemperature():
		err = d.machine.IngestTargetTemperature(payload)
		if err == nil && d.telemetry != nil {
			d.telemetry.WriteTemperature(d.id, measurementTarget, d.machine.TargetTemperature())
		}
	case d.topics.StateSensorTemperature():
		err = d.machine.IngestMeasuredTemperature(payload)
		if err == nil && d.telemetry != nil {
			if measured, ok := d.machine.MeasuredTemperature(); ok {
				d.telemetry.WriteTemperature(d.id, measurementMeasured, measured)
			}
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}

	if err != nil {
		return err
	}

	if d.machine.Ready() {
		d.logDebugStateSynchronized()
	}

	d.stateChanged(SourceMQTT)
	return nil
}

// logDebugStateSynchronized logs the full state once all fields are known.
func (d *Device) logDebugStateSynchronized() {
	if d.logger == nil {
		return
	}
	s := d.machine.Snapshot()
	d.logger.Info("state synchronized",
		"device", d.id,
		"mode", s.Mode,
		"fan", s.FanMode,
		"target", s.TargetTemperature,
	)
}

// stateChanged records the new snapshot and notifies the observer.
func (d *Device) stateChanged(source string) {
	if d.history != nil {
		if err := d.history.RecordStateChange(d.ctx, d.id, d.machine.Snapshot(), source); err != nil {
			d.logWarn("recording state change failed", "error", err)
		}
	}

	d.observerMu.RLock()
	observer := d.observer
	d.observerMu.RUnlock()
	if observer != nil {
		observer()
	}
}

// =============================================================================
// Commands
// =============================================================================

// SetPower turns the unit on or off.
//
// Off publishes mode 0; on re-issues the last active mode (default
// manual). Local state is updated optimistically: a failed publish is
// reported to the caller but the optimistic update stands, and the
// device's next inbound event overwrites it either way.
func (d *Device) SetPower(on bool) error {
	wire := d.machine.IssuePower(on)
	err := d.publishCommand(d.topics.ControlMode(), wire)
	d.stateChanged(SourceCommand)
	return err
}

// SetPreset selects a named operating mode. Unrecognised names fall back
// to manual mode.
func (d *Device) SetPreset(preset Preset) error {
	wire := d.machine.IssuePreset(preset)
	err := d.publishCommand(d.topics.ControlMode(), wire)
	d.stateChanged(SourceCommand)
	return err
}

// SetFanSpeed selects a fan speed by label ("Off", "S1".."S7").
// Unrecognised labels fall back to Off.
func (d *Device) SetFanSpeed(label string) error {
	wire := d.machine.IssueFanSpeed(label)
	err := d.publishCommand(d.topics.ControlSpeed(), wire)
	d.stateChanged(SourceCommand)
	return err
}

// SetTargetTemperature sets the target temperature, clamped to the
// supported range before encoding.
func (d *Device) SetTargetTemperature(value float64) error {
	if value < MinTargetTemperature {
		value = MinTargetTemperature
	}
	if value > MaxTargetTemperature {
		value = MaxTargetTemperature
	}

	wire := d.machine.IssueTargetTemperature(value)
	err := d.publishCommand(d.topics.ControlTemperature(), wire)
	d.stateChanged(SourceCommand)
	return err
}

// publishCommand performs the outbound publish for a command, logging
// transport faults without treating them as fatal.
func (d *Device) publishCommand(topic string, payload string) error {
	if err := d.mqtt.PublishString(topic, payload, 0, false); err != nil {
		d.logWarn("command publish failed", "topic", topic, "error", err)
		return err
	}
	return nil
}

// =============================================================================
// Host-facing accessors
// =============================================================================

// ID returns the device identifier (MAC).
func (d *Device) ID() string {
	return d.id
}

// Name returns the configured device name.
func (d *Device) Name() string {
	return d.name
}

// Power reports whether the unit is on.
func (d *Device) Power() bool {
	return d.machine.Power()
}

// Preset returns the current preset.
func (d *Device) Preset() Preset {
	return d.machine.Preset()
}

// FanMode returns the current fan label.
func (d *Device) FanMode() string {
	return d.machine.FanMode()
}

// TargetTemperature returns the target temperature.
func (d *Device) TargetTemperature() float64 {
	return d.machine.TargetTemperature()
}

// MeasuredTemperature returns the measured temperature and whether one has
// been reported.
func (d *Device) MeasuredTemperature() (float64, bool) {
	return d.machine.MeasuredTemperature()
}

// Ready reports whether all four state fields have been received at least once.
func (d *Device) Ready() bool {
	return d.machine.Ready()
}

// Snapshot returns the full semantic state.
func (d *Device) Snapshot() State {
	return d.machine.Snapshot()
}

// SetObserver registers the host's change-notification callback.
// The observer is invoked after every applied state change, from the
// goroutine that applied it. Pass nil to remove.
func (d *Device) SetObserver(observer func()) {
	d.observerMu.Lock()
	d.observer = observer
	d.observerMu.Unlock()
}

// =============================================================================
// Logging helpers
// =============================================================================

func (d *Device) logInfo(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Info(msg, append([]any{"device", d.id}, args...)...)
	}
}

func (d *Device) logWarn(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Warn(msg, append([]any{"device", d.id}, args...)...)
	}
}
