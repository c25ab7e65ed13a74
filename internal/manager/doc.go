// Package manager owns the lifecycle of the configured breezer devices.
//
// Each configured unit becomes one breezer.Device sharing the single
// MQTT connection. The manager starts devices as they are added, lets
// the host look them up by MAC, and stops everything on shutdown.
package manager
