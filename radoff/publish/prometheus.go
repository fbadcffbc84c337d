package publish

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/alepar/radoff/radoff/entity"
	"github.com/alepar/radoff/radoff/index"
)

// Prometheus exposes entity states as gauges.
type Prometheus struct {
	value *prometheus.GaugeVec
	index *prometheus.GaugeVec

	mu sync.Mutex
	// value labels last set per unique id
	series map[string]prometheus.Labels
}

func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		series: map[string]prometheus.Labels{},
		value: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "radoff_sensor_value",
				Help: "Normalized sensor reading (units: see unit label)",
			},
			[]string{"device_id", "serial", "sensor", "unit"},
		),
		index: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "radoff_sensor_index",
				Help: "Index category of a sensor reading, 1 for the current category",
			},
			[]string{"device_id", "serial", "sensor", "category"},
		),
	}
	for _, c := range []prometheus.Collector{p.value, p.index} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prometheus) Register(context.Context, []*entity.Sensor) error {
	return nil
}

// Publish sets the entity's gauges. Unavailable entities are removed so that
// scrapes show missing data instead of a stale reading.
func (p *Prometheus) Publish(_ context.Context, s *entity.Sensor) error {
	if s.Kind() == entity.KindIndex {
		p.publishIndex(s)
		return nil
	}

	d := s.Device()
	labels := prometheus.Labels{"device_id": d.DeviceID, "serial": d.Serial, "sensor": s.Key(), "unit": s.Unit()}

	p.mu.Lock()
	defer p.mu.Unlock()

	// the unit can change or vanish with the sensor, so delete by what was set last
	if prev, ok := p.series[s.UniqueID()]; ok && !equalLabels(prev, labels) {
		p.value.Delete(prev)
	}

	v, err := s.Value()
	if err != nil {
		p.value.Delete(labels)
		delete(p.series, s.UniqueID())
		return nil
	}
	p.value.With(labels).Set(v)
	p.series[s.UniqueID()] = labels
	return nil
}

func (p *Prometheus) publishIndex(s *entity.Sensor) {
	d := s.Device()
	c, err := s.Category()
	for _, known := range index.Categories {
		labels := prometheus.Labels{"device_id": d.DeviceID, "serial": d.Serial, "sensor": s.Key(), "category": known.String()}
		switch {
		case err != nil:
			p.index.Delete(labels)
		case known == c:
			p.index.With(labels).Set(1)
		default:
			p.index.With(labels).Set(0)
		}
	}
}

func equalLabels(a, b prometheus.Labels) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
