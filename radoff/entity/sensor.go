package entity

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/alepar/radoff/radoff"
	"github.com/alepar/radoff/radoff/index"
)

// StateClassMeasurement marks value entities as continuously measured.
const StateClassMeasurement = "measurement"

var (
	ErrUnavailable = errors.New("entity unavailable")
	ErrNotIndex    = errors.New("entity has no index")
)

type Kind int

const (
	KindValue Kind = iota
	KindIndex
)

func (k Kind) String() string {
	if k == KindIndex {
		return "index"
	}
	return "value"
}

// DeviceInfo groups entities of one physical device.
type DeviceInfo struct {
	Identifiers  [][2]string `json:"identifiers"`
	Name         string      `json:"name"`
	Manufacturer string      `json:"manufacturer"`
	Model        string      `json:"model"`
}

// Sensor is one entity exposed for a (device, sensor) pair. Index entities
// carry the rule of their metric and report its category instead of the reading.
type Sensor struct {
	coordinator radoff.Coordinator
	key         string
	kind        Kind
	rule        index.Rule

	mu        sync.RWMutex
	device    radoff.Device
	available bool
}

func newSensor(coordinator radoff.Coordinator, device radoff.Device, key string) *Sensor {
	return &Sensor{
		coordinator: coordinator,
		device:      device,
		key:         key,
		kind:        KindValue,
		available:   true,
	}
}

func newIndexSensor(coordinator radoff.Coordinator, device radoff.Device, key string, rule index.Rule) *Sensor {
	s := newSensor(coordinator, device, key)
	s.kind = KindIndex
	s.rule = rule
	return s
}

func (s *Sensor) Kind() Kind {
	return s.kind
}

func (s *Sensor) Key() string {
	return s.key
}

func (s *Sensor) Device() radoff.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.device
}

func (s *Sensor) Available() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.available
}

func (s *Sensor) UniqueID() string {
	d := s.Device()
	id := fmt.Sprintf("%s-%s-%s", radoff.Domain, d.DeviceID, s.key)
	if s.kind == KindIndex {
		return id + "-index"
	}
	return id
}

func (s *Sensor) TranslationKey() string {
	if s.kind == KindIndex {
		return s.key + "_index"
	}
	return s.key
}

func (s *Sensor) Name() string {
	d := s.Device()
	name := s.key
	if sensor, ok := d.Sensors[s.key]; ok && sensor.FriendlyName != "" {
		name = sensor.FriendlyName
	}
	if s.kind == KindIndex {
		return name + " index"
	}
	return name
}

func (s *Sensor) Unit() string {
	if s.kind == KindIndex {
		return ""
	}
	return s.Device().Sensors[s.key].Unit
}

func (s *Sensor) DeviceClass() string {
	if s.kind == KindIndex {
		return ""
	}
	return s.Device().Sensors[s.key].DeviceClass
}

func (s *Sensor) StateClass() string {
	if s.kind == KindIndex {
		return ""
	}
	return StateClassMeasurement
}

func (s *Sensor) DeviceInfo() DeviceInfo {
	d := s.Device()
	return DeviceInfo{
		Identifiers:  [][2]string{{radoff.Domain, d.Serial}},
		Name:         d.Name,
		Manufacturer: radoff.Manufacturer,
		Model:        d.DeviceType,
	}
}

// Options lists the categories an index entity can report, best first.
func (s *Sensor) Options() []index.Category {
	if s.kind != KindIndex {
		return nil
	}
	return s.rule.Categories()
}

// Value returns the normalized reading of the underlying sensor.
func (s *Sensor) Value() (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.available {
		return 0, ErrUnavailable
	}
	sensor, ok := s.device.Sensors[s.key]
	if !ok {
		return 0, ErrUnavailable
	}
	return sensor.NormalizedValue(), nil
}

// Category classifies the normalized reading. Only index entities have one.
func (s *Sensor) Category() (index.Category, error) {
	if s.kind != KindIndex {
		return "", ErrNotIndex
	}
	v, err := s.Value()
	if err != nil {
		return "", err
	}
	return s.rule.Classify(v), nil
}

// State renders the entity's current state the way hosts display it.
func (s *Sensor) State() (string, error) {
	if s.kind == KindIndex {
		c, err := s.Category()
		if err != nil {
			return "", err
		}
		return c.String(), nil
	}
	v, err := s.Value()
	if err != nil {
		return "", err
	}
	return strconv.FormatFloat(v, 'f', -1, 64), nil
}

// HandleCoordinatorUpdate re-reads the entity's device from the coordinator.
// A device or sensor that vanished makes the entity unavailable until it returns.
func (s *Sensor) HandleCoordinatorUpdate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	device, ok := s.coordinator.DeviceByID(s.device.DeviceType, s.device.DeviceID)
	if !ok {
		if s.available {
			log.Warnf("device %s (%s) missing from coordinator data", s.device.DeviceID, s.device.DeviceType)
		}
		s.available = false
		return
	}
	log.Debugf("device %s refreshed for %s", device.DeviceID, s.key)

	s.device = device
	_, s.available = device.Sensors[s.key]
}
