// Package influxdb records SmartHome device telemetry in InfluxDB v2.
//
// Sensor readings and bulb power changes are written as device_metrics
// points tagged with device_id. Writes never block the caller; the
// official client batches them and flushes on an interval.
package influxdb
