package entity

import (
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/alepar/radoff/radoff"
	"github.com/alepar/radoff/radoff/index"
)

// Setup builds the entities for the coordinator's current snapshot: a value
// entity for every sensor, plus an index entity when index generation is on
// and table has a rule for the sensor's metric.
func Setup(coordinator radoff.Coordinator, table index.Table) []*Sensor {
	snapshot := coordinator.Snapshot()
	log.Debugf("setting up entities for %d devices", len(snapshot.Devices))

	var sensors []*Sensor
	for _, device := range snapshot.Devices {
		for _, key := range sortedKeys(device.Sensors) {
			sensors = append(sensors, newSensor(coordinator, device, key))

			if !snapshot.GenerateIndex {
				continue
			}
			if rule, ok := table[key]; ok {
				sensors = append(sensors, newIndexSensor(coordinator, device, key, rule))
			}
		}
	}
	return sensors
}

func sortedKeys(sensors map[string]radoff.Sensor) []string {
	keys := make([]string, 0, len(sensors))
	for k := range sensors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
