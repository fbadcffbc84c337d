package entity

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/alepar/radoff/radoff"
	"github.com/alepar/radoff/radoff/index"
)

// Publisher makes entities visible to a host under their unique ids.
type Publisher interface {

	// announces entities once, before any state is published
	Register(ctx context.Context, sensors []*Sensor) error

	// writes the current state of one entity
	Publish(ctx context.Context, sensor *Sensor) error
}

// Platform keeps a set of entities in sync with a coordinator.
type Platform struct {
	coordinator radoff.Coordinator
	publishers  []Publisher

	mu      sync.Mutex
	sensors []*Sensor
	cancel  func()
}

func NewPlatform(coordinator radoff.Coordinator, table index.Table, publishers ...Publisher) *Platform {
	return &Platform{
		coordinator: coordinator,
		publishers:  publishers,
		sensors:     Setup(coordinator, table),
	}
}

func (p *Platform) Sensors() []*Sensor {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Sensor(nil), p.sensors...)
}

// Start registers the entities with every publisher, publishes their initial
// state and republishes on each coordinator refresh until ctx is done.
func (p *Platform) Start(ctx context.Context) error {
	sensors := p.Sensors()
	for _, pub := range p.publishers {
		if err := pub.Register(ctx, sensors); err != nil {
			return errors.Wrap(err, "failed to register entities")
		}
	}
	log.Infof("registered %d entities", len(sensors))

	p.publishAll(ctx)

	p.mu.Lock()
	p.cancel = p.coordinator.Subscribe(func() { p.update(ctx) })
	p.mu.Unlock()

	go func() {
		<-ctx.Done()
		p.Stop()
	}()
	return nil
}

func (p *Platform) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func (p *Platform) update(ctx context.Context) {
	for _, s := range p.Sensors() {
		s.HandleCoordinatorUpdate()
	}
	p.publishAll(ctx)
}

func (p *Platform) publishAll(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, s := range p.sensors {
		for _, pub := range p.publishers {
			if err := pub.Publish(ctx, s); err != nil {
				log.Errorf("failed to publish %s: %s", s.UniqueID(), err)
			}
		}
	}
}
