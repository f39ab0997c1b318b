package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement and field names written by SmartHome Core.
const (
	MeasurementDeviceMetrics = "device_metrics"

	MetricTemperature = "temperature_c"
	MetricPowerState  = "power_state"
)

// WriteDeviceMetric records one numeric device measurement now.
//
// Example:
//
//	client.WriteDeviceMetric(sensorID, influxdb.MetricTemperature, 21.5)
func (c *Client) WriteDeviceMetric(deviceID, metric string, value float64) {
	c.WriteDeviceMetricAt(deviceID, metric, value, time.Now())
}

// WriteDeviceMetricAt records a device measurement with an explicit
// timestamp, as reported by the device.
func (c *Client) WriteDeviceMetricAt(deviceID, metric string, value float64, at time.Time) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(
		MeasurementDeviceMetrics,
		map[string]string{
			"device_id":   deviceID,
			"measurement": metric,
		},
		map[string]interface{}{
			"value": value,
		},
		at,
	))
}

// WriteTemperature records a sensor reading in degrees Celsius.
func (c *Client) WriteTemperature(deviceID string, celsius float64, at time.Time) {
	c.WriteDeviceMetricAt(deviceID, MetricTemperature, celsius, at)
}

// WritePowerState records a light bulb switching, as 1 for on and 0 for off.
func (c *Client) WritePowerState(deviceID string, on bool) {
	v := 0.0
	if on {
		v = 1
	}
	c.WriteDeviceMetric(deviceID, MetricPowerState, v)
}
