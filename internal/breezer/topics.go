package breezer

import "fmt"

// TopicSet builds the MQTT topic names for one breezer unit.
//
// All topics share the prefix {namespace}/{deviceType}/{clientID}, e.g.
// rusclimate/69/bb2791f30a28776d6fe45943f1b68928. The device publishes its
// state on state/* and accepts commands on control/*.
type TopicSet struct {
	prefix string
}

// NewTopicSet creates the topic set for one unit.
func NewTopicSet(namespace, deviceType, clientID string) TopicSet {
	return TopicSet{
		prefix: fmt.Sprintf("%s/%s/%s", namespace, deviceType, clientID),
	}
}

// Prefix returns the shared topic prefix.
func (t TopicSet) Prefix() string {
	return t.prefix
}

// StateMode returns the inbound operating mode topic.
func (t TopicSet) StateMode() string {
	return t.prefix + "/state/mode"
}

// StateSpeed returns the inbound fan speed topic.
func (t TopicSet) StateSpeed() string {
	return t.prefix + "/state/speed"
}

// StateTemperature returns the inbound target temperature topic.
func (t TopicSet) StateTemperature() string {
	return t.prefix + "/state/temperature"
}

// StateSensorTemperature returns the inbound measured temperature topic.
func (t TopicSet) StateSensorTemperature() string {
	return t.prefix + "/state/sensor/temperature"
}

// ControlMode returns the outbound operating mode topic.
func (t TopicSet) ControlMode() string {
	return t.prefix + "/control/mode"
}

// ControlSpeed returns the outbound fan speed topic.
func (t TopicSet) ControlSpeed() string {
	return t.prefix + "/control/speed"
}

// ControlTemperature returns the outbound target temperature topic.
func (t TopicSet) ControlTemperature() string {
	return t.prefix + "/control/temperature"
}

// StateTopics returns all four inbound topics, in subscription order.
func (t TopicSet) StateTopics() []string {
	return []string{
		t.StateMode(),
		t.StateSpeed(),
		t.StateTemperature(),
		t.StateSensorTemperature(),
	}
}

// ControlTopics returns all three outbound topics.
//
// Publishing an empty payload to each of these triggers the device to
// re-emit its current state; see Device.RequestCurrentState.
func (t TopicSet) ControlTopics() []string {
	return []string{
		t.ControlMode(),
		t.ControlSpeed(),
		t.ControlTemperature(),
	}
}
