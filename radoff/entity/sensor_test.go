package entity

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"

	"github.com/alepar/radoff/radoff"
	"github.com/alepar/radoff/radoff/index"
)

type fakeCoordinator struct {
	mu        sync.Mutex
	snapshot  radoff.Snapshot
	listeners map[int]func()
	nextID    int
}

func newFakeCoordinator(snapshot radoff.Snapshot) *fakeCoordinator {
	return &fakeCoordinator{snapshot: snapshot, listeners: map[int]func(){}}
}

func (c *fakeCoordinator) Snapshot() radoff.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

func (c *fakeCoordinator) DeviceByID(deviceType, deviceID string) (radoff.Device, bool) {
	for _, d := range c.Snapshot().Devices {
		if d.DeviceType == deviceType && d.DeviceID == deviceID {
			return d, true
		}
	}
	return radoff.Device{}, false
}

func (c *fakeCoordinator) Subscribe(fn func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *fakeCoordinator) set(snapshot radoff.Snapshot) {
	c.mu.Lock()
	c.snapshot = snapshot
	var fns []func()
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func testDevice(tvoc float64) radoff.Device {
	return radoff.Device{
		DeviceID:   "d1",
		DeviceType: "radoff_air",
		Serial:     "RD-0001",
		Name:       "Living room",
		Sensors: map[string]radoff.Sensor{
			"tvoc": {Name: "tvoc", FriendlyName: "TVOC", Value: tvoc, Unit: "ppb", DeviceClass: "volatile_organic_compounds_parts"},
			"internal_temperature": {
				Name:        "internal_temperature",
				Value:       2150,
				Unit:        "°C",
				DeviceClass: "temperature",
				Normalize:   func(raw float64) float64 { return raw / 100 },
			},
			"co2_absolute": {Name: "co2_absolute", Value: 412, Unit: "ppm"},
		},
	}
}

func findSensor(t *testing.T, sensors []*Sensor, uniqueID string) *Sensor {
	t.Helper()
	for _, s := range sensors {
		if s.UniqueID() == uniqueID {
			return s
		}
	}
	t.Fatalf("no entity %s", uniqueID)
	return nil
}

func TestSetup_Entities(t *testing.T) {
	coord := newFakeCoordinator(radoff.Snapshot{Devices: []radoff.Device{testDevice(150)}, GenerateIndex: true})
	table := index.DefaultTable()

	sensors := Setup(coord, table)

	want := []string{
		"radoff-d1-co2_absolute",
		"radoff-d1-internal_temperature",
		"radoff-d1-internal_temperature-index",
		"radoff-d1-tvoc",
		"radoff-d1-tvoc-index",
	}
	if len(sensors) != len(want) {
		t.Fatalf("got %d entities, want %d", len(sensors), len(want))
	}
	for i, s := range sensors {
		if s.UniqueID() != want[i] {
			t.Errorf("entity %d = %s, want %s", i, s.UniqueID(), want[i])
		}
		if s.Kind() == KindIndex && !table.Has(s.Key()) {
			t.Errorf("index entity for unclassified metric %s", s.Key())
		}
	}
}

func TestSetup_IndexDisabled(t *testing.T) {
	coord := newFakeCoordinator(radoff.Snapshot{Devices: []radoff.Device{testDevice(150)}})

	for _, s := range Setup(coord, index.DefaultTable()) {
		if s.Kind() == KindIndex {
			t.Errorf("unexpected index entity %s", s.UniqueID())
		}
	}
}

func TestSensor_Attributes(t *testing.T) {
	coord := newFakeCoordinator(radoff.Snapshot{Devices: []radoff.Device{testDevice(150)}, GenerateIndex: true})
	sensors := Setup(coord, index.DefaultTable())

	value := findSensor(t, sensors, "radoff-d1-tvoc")
	idx := findSensor(t, sensors, "radoff-d1-tvoc-index")

	testCases := []struct {
		name string
		got  string
		want string
	}{
		{"value translation key", value.TranslationKey(), "tvoc"},
		{"index translation key", idx.TranslationKey(), "tvoc_index"},
		{"value unit", value.Unit(), "ppb"},
		{"index unit", idx.Unit(), ""},
		{"value device class", value.DeviceClass(), "volatile_organic_compounds_parts"},
		{"index device class", idx.DeviceClass(), ""},
		{"value state class", value.StateClass(), StateClassMeasurement},
		{"index state class", idx.StateClass(), ""},
		{"value name", value.Name(), "TVOC"},
		{"index name", idx.Name(), "TVOC index"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("got %q, want %q", tc.got, tc.want)
			}
		})
	}

	info := idx.DeviceInfo()
	if info.Manufacturer != "Radoff" || info.Model != "radoff_air" || info.Name != "Living room" {
		t.Errorf("device info = %+v", info)
	}
	if len(info.Identifiers) != 1 || info.Identifiers[0] != [2]string{"radoff", "RD-0001"} {
		t.Errorf("identifiers = %v", info.Identifiers)
	}
}

func TestSensor_State(t *testing.T) {
	coord := newFakeCoordinator(radoff.Snapshot{Devices: []radoff.Device{testDevice(150)}, GenerateIndex: true})
	sensors := Setup(coord, index.DefaultTable())

	testCases := []struct {
		uniqueID string
		want     string
	}{
		{"radoff-d1-tvoc", "150"},
		{"radoff-d1-tvoc-index", "good"},
		{"radoff-d1-internal_temperature", "21.5"},
		{"radoff-d1-internal_temperature-index", "good"},
		{"radoff-d1-co2_absolute", "412"},
	}
	for _, tc := range testCases {
		got, err := findSensor(t, sensors, tc.uniqueID).State()
		if err != nil {
			t.Fatalf("%s: %v", tc.uniqueID, err)
		}
		if got != tc.want {
			t.Errorf("%s: state %q, want %q", tc.uniqueID, got, tc.want)
		}
	}

	if _, err := findSensor(t, sensors, "radoff-d1-tvoc").Category(); errors.Cause(err) != ErrNotIndex {
		t.Errorf("Category on value entity: err = %v", err)
	}
}

func TestSensor_HandleCoordinatorUpdate(t *testing.T) {
	coord := newFakeCoordinator(radoff.Snapshot{Devices: []radoff.Device{testDevice(150)}, GenerateIndex: true})
	idx := findSensor(t, Setup(coord, index.DefaultTable()), "radoff-d1-tvoc-index")

	coord.set(radoff.Snapshot{Devices: []radoff.Device{testDevice(450)}, GenerateIndex: true})
	idx.HandleCoordinatorUpdate()
	if c, err := idx.Category(); err != nil || c != index.Terrible {
		t.Errorf("after update: %s, %v", c, err)
	}

	coord.set(radoff.Snapshot{GenerateIndex: true})
	idx.HandleCoordinatorUpdate()
	if idx.Available() {
		t.Error("entity should be unavailable once its device is gone")
	}
	if _, err := idx.State(); errors.Cause(err) != ErrUnavailable {
		t.Errorf("State err = %v", err)
	}

	coord.set(radoff.Snapshot{Devices: []radoff.Device{testDevice(50)}, GenerateIndex: true})
	idx.HandleCoordinatorUpdate()
	if c, err := idx.Category(); err != nil || c != index.Excellent {
		t.Errorf("after device returned: %s, %v", c, err)
	}
}

type recordingPublisher struct {
	mu         sync.Mutex
	registered int
	states     map[string]string
}

func (p *recordingPublisher) Register(_ context.Context, sensors []*Sensor) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registered = len(sensors)
	return nil
}

func (p *recordingPublisher) Publish(_ context.Context, s *Sensor) error {
	state, err := s.State()
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.states == nil {
		p.states = map[string]string{}
	}
	p.states[s.UniqueID()] = state
	return nil
}

func (p *recordingPublisher) state(id string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.states[id]
}

func TestPlatform_RepublishesOnUpdate(t *testing.T) {
	coord := newFakeCoordinator(radoff.Snapshot{Devices: []radoff.Device{testDevice(150)}, GenerateIndex: true})
	pub := &recordingPublisher{}
	platform := NewPlatform(coord, index.DefaultTable(), pub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := platform.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if pub.registered != 5 {
		t.Errorf("registered %d entities, want 5", pub.registered)
	}
	if got := pub.state("radoff-d1-tvoc-index"); got != "good" {
		t.Errorf("initial index state %q", got)
	}

	coord.set(radoff.Snapshot{Devices: []radoff.Device{testDevice(350)}, GenerateIndex: true})
	if got := pub.state("radoff-d1-tvoc-index"); got != "medium" {
		t.Errorf("index state after update %q, want medium", got)
	}
	if got := pub.state("radoff-d1-tvoc"); got != "350" {
		t.Errorf("value state after update %q, want 350", got)
	}

	platform.Stop()
	coord.set(radoff.Snapshot{Devices: []radoff.Device{testDevice(50)}, GenerateIndex: true})
	if got := pub.state("radoff-d1-tvoc"); got != "350" {
		t.Errorf("state changed after Stop: %q", got)
	}
}

func TestSensor_Options(t *testing.T) {
	coord := newFakeCoordinator(radoff.Snapshot{Devices: []radoff.Device{testDevice(150)}, GenerateIndex: true})
	sensors := Setup(coord, index.DefaultTable())

	testCases := []struct {
		uniqueID string
		want     int
	}{
		{"radoff-d1-tvoc-index", 5},
		{"radoff-d1-internal_temperature-index", 3},
		{"radoff-d1-tvoc", 0},
	}
	for _, tc := range testCases {
		if got := len(findSensor(t, sensors, tc.uniqueID).Options()); got != tc.want {
			t.Errorf("%s: %d options, want %d", tc.uniqueID, got, tc.want)
		}
	}
}
