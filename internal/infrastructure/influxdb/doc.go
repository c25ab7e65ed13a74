// Package influxdb records temperature telemetry in InfluxDB v2.
//
// Every target and measured temperature observed from a breezer unit is
// written as a point in the breezer_telemetry measurement, tagged by
// device and reading kind. Writes are batched and asynchronous so a
// slow or unavailable InfluxDB never blocks message handling; the
// integration is optional and the service runs fine without it.
package influxdb
