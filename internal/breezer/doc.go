// Package breezer implements the climate state machine and device facade
// for the Ballu ONEAIR ASP-100 ventilation unit.
//
// The unit speaks a compact wire protocol over MQTT: small ASCII decimal
// codes on state/* topics for its current state, the same codes on
// control/* topics for commands. This package owns the translation between
// those codes and the semantic appliance state (power, preset, fan speed,
// target and measured temperature).
//
// # Wire protocol
//
// Operating mode (state/mode, control/mode):
//
//	0 off    1 manual    2 auto (CO2)    3 night    4 turbo    5 eco
//
// Fan speed (state/speed, control/speed): 0 (off) through 7, labelled
// "Off" and "S1".."S7". Temperatures (state/temperature,
// state/sensor/temperature, control/temperature) are ASCII decimals;
// the target range is 5-25 C and the outbound wire form is an integer.
//
// # State-not-yet-known
//
// Immediately after (re)connect nothing is known about the unit. The
// Machine tracks a first-value-received flag per field; Device.Start
// publishes an empty payload to each control topic as a probe, prompting
// the firmware to re-emit its retained state.
//
// # Update policy
//
// Commands update local state optimistically before the broker round-trip
// completes. When a command races with an inbound event for the same
// field, whichever reaches the Machine later wins.
package breezer
