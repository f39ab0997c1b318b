// Package mqtt provides MQTT connectivity for SmartHome Core.
//
// The broker carries two flows: sensors publish temperature readings on
// smarthome/device/{id}/temp, and Core publishes RefreshDevices events on
// smarthome/events/devices after device state changes. A retained status
// message with a matching Last Will lets observers see when Core is offline.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllDeviceTemperatures(), 1, handler)
package mqtt
