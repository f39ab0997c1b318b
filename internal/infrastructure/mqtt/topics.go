package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the root of every SmartHome topic.
const TopicPrefix = "smarthome"

// Topics builds SmartHome MQTT topic names.
//
//	topics := mqtt.Topics{}
//	topics.DeviceTemperature("livingroom") // smarthome/device/livingroom/temp
type Topics struct{}

// DeviceTemperature is where sensors publish readings. The segment is a
// device UUID or a free-form location name.
func (Topics) DeviceTemperature(segment string) string {
	return fmt.Sprintf("%s/device/%s/temp", TopicPrefix, segment)
}

// AllDeviceTemperatures matches every DeviceTemperature topic.
func (Topics) AllDeviceTemperatures() string {
	return TopicPrefix + "/device/+/temp"
}

// DeviceEvents carries RefreshDevices change signals.
func (Topics) DeviceEvents() string {
	return TopicPrefix + "/events/devices"
}

// SystemStatus carries the retained online/offline status and LWT.
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// WildcardValues matches topic against a subscription pattern and returns
// the levels matched by each "+" wildcard, in order. A trailing "#" matches
// any remainder and contributes no values.
//
//	WildcardValues("smarthome/device/+/temp", "smarthome/device/abc/temp") // ["abc"], true
func WildcardValues(pattern, topic string) ([]string, bool) {
	pp := strings.Split(pattern, "/")
	tp := strings.Split(topic, "/")

	var values []string
	for i, p := range pp {
		if p == "#" {
			return values, i == len(pp)-1
		}
		if i >= len(tp) {
			return nil, false
		}
		switch p {
		case "+":
			values = append(values, tp[i])
		default:
			if p != tp[i] {
				return nil, false
			}
		}
	}
	if len(tp) != len(pp) {
		return nil, false
	}
	return values, true
}
