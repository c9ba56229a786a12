// Package simulation advances the road network in discrete ticks. Each tick
// first moves every vehicle and then runs every intersection's controller,
// so intersections always see the queues as kinematics left them.
package simulation

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ardalan-sia/queue-traffic/pkg/agent"
	"github.com/ardalan-sia/queue-traffic/pkg/graph"
	"github.com/ardalan-sia/queue-traffic/pkg/traffic"
)

// ErrRunning is returned by edits attempted while ticks are being executed.
var ErrRunning = errors.New("simulation is running; pause it before editing")

// Params are the tunable constants of the engine.
type Params struct {
	Kinematics agent.Kinematics
	// ReleaseEvery is how often, in green ticks, a signal lets one car through.
	ReleaseEvery int
	// AllRedTicks is the pause between two green phases.
	AllRedTicks int
	// QueueCapacity is used by Connect.
	QueueCapacity int
	Seed          uint64
	Interval      time.Duration
}

func DefaultParams() Params {
	return Params{
		Kinematics:    agent.DefaultKinematics(),
		ReleaseEvery:  10,
		AllRedTicks:   5,
		QueueCapacity: 30,
		Seed:          1,
		Interval:      32 * time.Millisecond,
	}
}

// Simulator owns the network, the vehicles and the run telemetry.
type Simulator struct {
	mu sync.Mutex

	net      *graph.Network
	params   Params
	src      *rand.PCG
	rng      *rand.Rand
	vehicles []*agent.Vehicle
	counters traffic.Counters
	tick     uint64

	control       map[graph.VertexID]*controller
	routes        map[graph.VertexID][][]*graph.Road
	routesVersion uint64

	selected    graph.VertexID
	hasSelected bool

	running  atomic.Bool
	interval atomic.Int64

	observers []Observer
}

// NewSimulator wraps net. A nil net starts from an empty network.
func NewSimulator(net *graph.Network, p Params) *Simulator {
	if net == nil {
		net = graph.New()
	}
	if p.ReleaseEvery < 1 {
		p.ReleaseEvery = 1
	}
	if p.AllRedTicks < 0 {
		p.AllRedTicks = 0
	}
	if p.QueueCapacity < 1 {
		p.QueueCapacity = DefaultParams().QueueCapacity
	}
	if p.Interval <= 0 {
		p.Interval = DefaultParams().Interval
	}
	src := rand.NewPCG(p.Seed, p.Seed^0x9e3779b97f4a7c15)
	s := &Simulator{
		net:     net,
		params:  p,
		src:     src,
		rng:     rand.New(src),
		control: make(map[graph.VertexID]*controller),
	}
	s.interval.Store(int64(p.Interval))
	return s
}

// AddObserver registers o to be told about every completed tick.
func (s *Simulator) AddObserver(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Network exposes the graph for read access. Callers must not mutate it
// directly; use the Simulator's edit methods.
func (s *Simulator) Network() *graph.Network { return s.net }

func (s *Simulator) Tick() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

func (s *Simulator) Counters() traffic.Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters
}

// Vehicles returns a copy of the live vehicle list in update order.
func (s *Simulator) Vehicles() []*agent.Vehicle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.vehicles)
}

// Step runs exactly one tick regardless of the running flag.
func (s *Simulator) Step() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.step(); err != nil {
		return err
	}
	s.notify()
	return nil
}

// StepN runs n ticks.
func (s *Simulator) StepN(n int) error {
	for i := 0; i < n; i++ {
		if err := s.Step(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulator) step() error {
	s.tick++

	for _, v := range s.vehicles {
		if err := v.Advance(&s.counters); err != nil {
			return fmt.Errorf("tick %d: vehicle %s: %w", s.tick, v.ID, err)
		}
	}

	roles := s.net.Roles()
	for _, in := range slices.Clone(s.net.Intersections()) {
		if err := s.updateIntersection(in, roles[in.ID]); err != nil {
			return fmt.Errorf("tick %d: intersection %d: %w", s.tick, in.ID, err)
		}
	}
	return nil
}

// Spawn creates a vehicle at the start of road.
func (s *Simulator) Spawn(road graph.RoadID) (*agent.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.net.Road(road)
	if err != nil {
		return nil, err
	}
	return s.spawn(r)
}

func (s *Simulator) spawn(r *graph.Road) (*agent.Vehicle, error) {
	v, err := agent.New(r, s.tick, s.params.Kinematics, s.rng)
	if err != nil {
		return nil, err
	}
	s.vehicles = append(s.vehicles, v)
	traffic.Inc(&s.counters.Spawned)
	return v, nil
}

func (s *Simulator) despawn(v *agent.Vehicle) {
	if i := slices.Index(s.vehicles, v); i >= 0 {
		s.vehicles = slices.Delete(s.vehicles, i, i+1)
	}
}

// dropStranded forgets vehicles whose road no longer exists.
func (s *Simulator) dropStranded() {
	s.vehicles = slices.DeleteFunc(s.vehicles, func(v *agent.Vehicle) bool {
		return v.Road == nil || v.Road.Removed()
	})
}

// Running reports whether the pacing loop executes ticks.
func (s *Simulator) Running() bool { return s.running.Load() }

func (s *Simulator) SetRunning(on bool) { s.running.Store(on) }

// Toggle flips the running flag and returns the new value.
func (s *Simulator) Toggle() bool {
	for {
		old := s.running.Load()
		if s.running.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// Load replaces the network and resets vehicles, controllers and telemetry.
func (s *Simulator) Load(net *graph.Network) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running.Load() {
		return ErrRunning
	}
	if err := net.Validate(); err != nil {
		return fmt.Errorf("load network: %w", err)
	}
	s.net = net
	s.vehicles = nil
	s.counters = traffic.Counters{}
	s.tick = 0
	s.control = make(map[graph.VertexID]*controller)
	s.routes = nil
	s.hasSelected = false
	return nil
}
