package remote

import (
	"fmt"
	"strings"

	"github.com/nerrad567/smarthome-core/internal/device"
)

// Status renders the kind-specific status tag of a device. A device that
// is not a bulb is a sensor.
func Status(d *device.Device) string {
	if b := d.Bulb; b != nil {
		if b.On {
			return "[ON] 💡"
		}
		return "[OFF] 🌑"
	}
	if d.Sensor == nil || d.Sensor.Reading == nil {
		return "[TEMP: --°C] 🌡️"
	}
	return fmt.Sprintf("[TEMP: %.1f°C] 🌡️", *d.Sensor.Reading)
}

// DeviceLine renders one LIST entry: "{id} | {name} ({room}) {status}".
func DeviceLine(d *device.Device) string {
	return fmt.Sprintf("%s | %s (%s) %s", d.ID, d.Name, d.RoomLabel(), Status(d))
}

// Listing renders the LIST reply for userID.
func Listing(userID string, devices []device.Device) string {
	if len(devices) == 0 {
		return msgNoDevices
	}

	var b strings.Builder
	fmt.Fprintf(&b, msgListHeaderFormat, userID)
	for i := range devices {
		b.WriteByte('\n')
		b.WriteString(DeviceLine(&devices[i]))
	}
	return b.String()
}
