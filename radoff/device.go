package radoff

// Domain prefixes every unique id issued by this integration.
const Domain = "radoff"

const Manufacturer = "Radoff"

// NormalizeFunc converts a raw device reading into its display value.
type NormalizeFunc func(raw float64) float64

type Sensor struct {
	// metric identifier, e.g. tvoc, pm25, relative_humidity
	Name         string
	FriendlyName string

	// raw reading as reported by the device
	Value float64

	// optional
	Unit        string
	DeviceClass string
	Normalize   NormalizeFunc
}

// NormalizedValue applies Normalize when set.
func (s Sensor) NormalizedValue() float64 {
	if s.Normalize != nil {
		return s.Normalize(s.Value)
	}
	return s.Value
}

type Device struct {
	DeviceID   string
	DeviceType string
	Serial     string
	Name       string

	// keyed by sensor name
	Sensors map[string]Sensor
}

// Snapshot is the coordinator's view of all devices after one refresh.
type Snapshot struct {
	Devices       []Device
	GenerateIndex bool
}
