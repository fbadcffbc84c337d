package snapshot

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/alepar/radoff/radoff"
)

// File is the on-disk layout written by whatever fetches the device data.
type File struct {
	Devices []DeviceEntry `yaml:"devices"`
}

type DeviceEntry struct {
	DeviceID   string        `yaml:"device_id"`
	DeviceType string        `yaml:"device_type"`
	Serial     string        `yaml:"serial"`
	Name       string        `yaml:"name"`
	Sensors    []SensorEntry `yaml:"sensors"`
}

type SensorEntry struct {
	Name         string  `yaml:"name"`
	FriendlyName string  `yaml:"friendly_name"`
	Value        float64 `yaml:"value"`
	Unit         string  `yaml:"unit"`
	DeviceClass  string  `yaml:"device_class"`

	// normalized = value*scale + offset; a missing scale means no normalization
	Scale  *float64 `yaml:"scale"`
	Offset float64  `yaml:"offset"`
}

// Load reads the snapshot file at path and converts it into devices.
func Load(path string) ([]radoff.Device, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read snapshot")
	}
	return Parse(data)
}

func Parse(data []byte) ([]radoff.Device, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "failed to parse snapshot")
	}

	devices := make([]radoff.Device, 0, len(f.Devices))
	seen := map[[2]string]bool{}
	for i, d := range f.Devices {
		if d.DeviceID == "" {
			return nil, errors.Errorf("devices[%d]: device_id is required", i)
		}
		id := [2]string{d.DeviceType, d.DeviceID}
		if seen[id] {
			return nil, errors.Errorf("devices[%d]: duplicate device %s/%s", i, d.DeviceType, d.DeviceID)
		}
		seen[id] = true

		device := radoff.Device{
			DeviceID:   d.DeviceID,
			DeviceType: d.DeviceType,
			Serial:     d.Serial,
			Name:       d.Name,
			Sensors:    make(map[string]radoff.Sensor, len(d.Sensors)),
		}
		for j, s := range d.Sensors {
			if s.Name == "" {
				return nil, errors.Errorf("devices[%d].sensors[%d]: name is required", i, j)
			}
			device.Sensors[s.Name] = s.toSensor()
		}
		devices = append(devices, device)
	}
	return devices, nil
}

func (s SensorEntry) toSensor() radoff.Sensor {
	sensor := radoff.Sensor{
		Name:         s.Name,
		FriendlyName: s.FriendlyName,
		Value:        s.Value,
		Unit:         s.Unit,
		DeviceClass:  s.DeviceClass,
	}
	if s.Scale != nil {
		scale, offset := *s.Scale, s.Offset
		sensor.Normalize = func(raw float64) float64 { return raw*scale + offset }
	}
	return sensor
}
