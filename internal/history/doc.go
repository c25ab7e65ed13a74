// Package history persists unit state changes to SQLite.
//
// Every applied state change, whether observed on MQTT or issued as a
// command, is recorded as a JSON snapshot with its source and timestamp.
// The table gives a local audit trail that works offline and survives
// restarts; long-term temperature trends live in InfluxDB instead.
package history
