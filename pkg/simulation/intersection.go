package simulation

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ardalan-sia/queue-traffic/pkg/agent"
	"github.com/ardalan-sia/queue-traffic/pkg/graph"
	"github.com/ardalan-sia/queue-traffic/pkg/traffic"
)

// controller is the per-vertex state carried between ticks. It is reset
// whenever the vertex changes role.
type controller struct {
	role      graph.Role
	countdown int
	active    int
	allRed    bool
}

// Phase is the externally visible state of a signalized intersection.
type Phase struct {
	Role      graph.Role
	Active    int
	AllRed    bool
	Countdown int
}

// Phase reports the controller state of a vertex.
func (s *Simulator) Phase(id graph.VertexID) (Phase, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.control[id]
	if !ok {
		return Phase{}, false
	}
	return Phase{Role: c.role, Active: c.active, AllRed: c.allRed, Countdown: c.countdown}, true
}

func (s *Simulator) updateIntersection(in *graph.Intersection, role graph.Role) error {
	c, ok := s.control[in.ID]
	if !ok || c.role != role {
		c = s.newController(in, role)
		s.control[in.ID] = c
	}

	switch role {
	case graph.RoleTerminal:
		return s.updateTerminal(in, c)
	case graph.RolePassThrough:
		return s.updatePassThrough(in)
	case graph.RoleSignalized:
		return s.updateSignalized(in, c)
	default:
		return nil
	}
}

func (s *Simulator) newController(in *graph.Intersection, role graph.Role) *controller {
	c := &controller{role: role, countdown: -1}
	switch role {
	case graph.RoleTerminal:
		c.countdown = s.arrivalDelay(in.N)
	case graph.RoleSignalized:
		c.countdown = greenTicks(in.N)
	}
	return c
}

// arrivalDelay draws the ticks until the next arrival from an exponential
// distribution with rate n/3600. Non-positive n means no arrivals (-1).
func (s *Simulator) arrivalDelay(n float64) int {
	if n <= 0 {
		return -1
	}
	d := distuv.Exponential{Rate: n / 3600, Src: s.src}
	ticks := math.Round(d.Rand())
	if ticks > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(ticks)
}

func greenTicks(n float64) int {
	if n < 1 {
		return 1
	}
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}

// updateTerminal spawns onto the outgoing roads when the arrival countdown
// expires and consumes the front vehicle of every non-empty incoming road.
func (s *Simulator) updateTerminal(in *graph.Intersection, c *controller) error {
	switch {
	case in.N <= 0:
		c.countdown = -1
	case c.countdown < 0:
		c.countdown = s.arrivalDelay(in.N)
	}

	if c.countdown == 0 {
		for _, r := range s.net.Outgoing(in.ID) {
			if _, err := s.spawn(r); err != nil {
				return fmt.Errorf("spawn on road %d: %w", r.ID, err)
			}
		}
		c.countdown = s.arrivalDelay(in.N)
	} else if c.countdown > 0 {
		c.countdown--
	}

	for _, r := range s.net.Incoming(in.ID) {
		v, err := pop(r)
		if err != nil {
			return err
		}
		if v == nil {
			continue
		}
		s.despawn(v)
		traffic.Inc(&s.counters.Throughput)
		traffic.Inc(&in.Throughput)
	}
	return nil
}

// updatePassThrough crosses the two lanes: the first incoming road feeds the
// second outgoing road and the second incoming feeds the first outgoing.
func (s *Simulator) updatePassThrough(in *graph.Intersection) error {
	ins := s.net.Incoming(in.ID)
	outs := s.net.Outgoing(in.ID)
	if len(ins) < 2 {
		return nil
	}
	if err := transfer(ins[0], nth(outs, 1)); err != nil {
		return err
	}
	return transfer(ins[1], nth(outs, 0))
}

// updateSignalized runs one tick of the round-robin light. The active
// approach is green for n ticks, releasing one car every ReleaseEvery ticks,
// and then every approach is red for AllRedTicks before the next one turns
// green.
func (s *Simulator) updateSignalized(in *graph.Intersection, c *controller) error {
	ins := s.net.Incoming(in.ID)
	for _, r := range ins {
		traffic.Add(&in.WaitTime, uint64(r.QueueLen()))
	}
	if c.active >= len(ins) {
		c.active = 0
	}

	if c.allRed {
		c.countdown--
		if c.countdown <= 0 {
			s.nextPhase(in, c, len(ins))
		}
		return nil
	}

	if c.countdown%s.params.ReleaseEvery == 0 {
		if err := s.release(in, c.active, ins[c.active]); err != nil {
			return err
		}
	}
	c.countdown--
	if c.countdown <= 0 {
		if s.params.AllRedTicks == 0 {
			s.nextPhase(in, c, len(ins))
			return nil
		}
		c.allRed = true
		c.countdown = s.params.AllRedTicks
	}
	return nil
}

func (s *Simulator) nextPhase(in *graph.Intersection, c *controller, inDegree int) {
	c.allRed = false
	c.countdown = greenTicks(in.N)
	c.active = (c.active + 1) % inDegree
}

// release lets the front car of the active approach through onto one of the
// roads it may turn into.
func (s *Simulator) release(in *graph.Intersection, active int, from *graph.Road) error {
	permitted := s.routeTable(in.ID)[active]
	if len(permitted) == 0 {
		return nil
	}
	v, err := pop(from)
	if err != nil || v == nil {
		return err
	}
	to := permitted[agent.ChooseDirection(s.rng, len(permitted))-1]
	if err := v.Bind(to); err != nil {
		return err
	}
	traffic.Inc(&in.Throughput)
	return nil
}

// routeTable lists, per incoming road in scan order, the outgoing roads a
// released car may take: everything except the U-turn back to where it came
// from. A dead end falls back to allowing the U-turn. Tables are rebuilt only
// when the network changed since they were last computed.
func (s *Simulator) routeTable(id graph.VertexID) [][]*graph.Road {
	if s.routes == nil || s.routesVersion != s.net.Version() {
		s.routes = make(map[graph.VertexID][][]*graph.Road)
		s.routesVersion = s.net.Version()
	}
	if t, ok := s.routes[id]; ok {
		return t
	}
	outs := s.net.Outgoing(id)
	ins := s.net.Incoming(id)
	table := make([][]*graph.Road, len(ins))
	for i, r := range ins {
		for _, o := range outs {
			if o.To != r.From {
				table[i] = append(table[i], o)
			}
		}
		if len(table[i]) == 0 {
			table[i] = outs
		}
	}
	s.routes[id] = table
	return table
}

// transfer moves the front car of from onto to. A missing target leaves the
// car queued.
func transfer(from, to *graph.Road) error {
	if to == nil {
		return nil
	}
	v, err := pop(from)
	if err != nil || v == nil {
		return err
	}
	return v.Bind(to)
}

// pop dequeues the front vehicle, returning nil when the queue is empty.
func pop(r *graph.Road) (*agent.Vehicle, error) {
	o, err := r.Dequeue()
	if errors.Is(err, traffic.ErrQueueEmpty) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	v, ok := o.(*agent.Vehicle)
	if !ok {
		return nil, fmt.Errorf("road %d: unexpected occupant %T", r.ID, o)
	}
	return v, nil
}

func nth(roads []*graph.Road, i int) *graph.Road {
	if i < len(roads) {
		return roads[i]
	}
	return nil
}
