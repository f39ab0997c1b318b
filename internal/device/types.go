package device

import (
	"fmt"
	"strings"
	"time"
)

// Kind is the closed set of device kinds.
type Kind string

const (
	KindLightBulb         Kind = "light_bulb"
	KindTemperatureSensor Kind = "temperature_sensor"
)

// DefaultReading is the temperature a new sensor reports until telemetry
// arrives, in degrees Celsius.
const DefaultReading = 21.0

// ParseKind matches s against the known kinds ignoring case, spaces,
// underscores and hyphens, so "LightBulb", "lightbulb" and "light_bulb"
// are all accepted.
func ParseKind(s string) (Kind, error) {
	key := strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', ' ':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))

	switch key {
	case "lightbulb", "bulb", "light":
		return KindLightBulb, nil
	case "temperaturesensor", "sensor", "thermometer":
		return KindTemperatureSensor, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

// Label returns the display name used on the HTTP API.
func (k Kind) Label() string {
	switch k {
	case KindLightBulb:
		return "LightBulb"
	case KindTemperatureSensor:
		return "TemperatureSensor"
	default:
		return string(k)
	}
}

// BulbState is the state of a light bulb.
type BulbState struct {
	On bool
}

// SensorState is the state of a temperature sensor. Reading is nil while
// the value is unknown.
type SensorState struct {
	Reading *float64
}

// Device is a light bulb or temperature sensor owned by one user.
//
// Exactly one of Bulb and Sensor is set, matching Kind. Use New to build
// one; the repository only returns devices of a known kind.
type Device struct {
	ID     string
	Name   string
	RoomID string

	// RoomName is resolved on read and empty when the room is gone.
	RoomName string
	UserID   string
	Kind     Kind

	Bulb   *BulbState
	Sensor *SensorState

	CreatedAt time.Time
	UpdatedAt time.Time
}

// New returns a device of kind k with its initial state: a bulb that is
// off, or a sensor reading DefaultReading.
func New(k Kind) (*Device, error) {
	d := &Device{Kind: k}
	switch k {
	case KindLightBulb:
		d.Bulb = &BulbState{}
	case KindTemperatureSensor:
		reading := DefaultReading
		d.Sensor = &SensorState{Reading: &reading}
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, string(k))
	}
	return d, nil
}

// IsBulb reports whether d is a light bulb.
func (d *Device) IsBulb() bool { return d.Bulb != nil }

// IsSensor reports whether d is a temperature sensor.
func (d *Device) IsSensor() bool { return d.Sensor != nil }

// RoomLabel returns the room name, or the room ID when the room no
// longer resolves.
func (d *Device) RoomLabel() string {
	if d.RoomName != "" {
		return d.RoomName
	}
	return d.RoomID
}

// Clone returns an independent copy of d.
func (d *Device) Clone() *Device {
	if d == nil {
		return nil
	}
	cpy := *d
	if d.Bulb != nil {
		b := *d.Bulb
		cpy.Bulb = &b
	}
	if d.Sensor != nil {
		sensor := SensorState{}
		if d.Sensor.Reading != nil {
			v := *d.Sensor.Reading
			sensor.Reading = &v
		}
		cpy.Sensor = &sensor
	}
	return &cpy
}
