// Package graph holds the road network: intersections, the directed roads
// between them and the queue each road owns.
//
// Intersections and roads are addressed by stable IDs. Their positional index
// (scan order) is still available but is renumbered whenever something before
// it is removed; the network keeps an id→slot table so that a stale ID fails
// with ErrUnknownIntersection or ErrUnknownRoad instead of aliasing whatever
// now occupies the old slot.
package graph

import (
	"fmt"
	"math"

	"github.com/tidwall/btree"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ardalan-sia/queue-traffic/pkg/traffic"
)

// VertexID identifies an intersection for its whole lifetime.
type VertexID uint64

// RoadID identifies a road for its whole lifetime.
type RoadID uint64

// Intersection is a vertex of the network.
type Intersection struct {
	ID  VertexID
	Pos r2.Vec
	// N is the arrival rate in vehicles/hour for terminals and the green
	// duration in ticks for signalized intersections.
	N float64

	WaitTime   uint64
	Throughput uint64
}

// Network is a directed graph of intersections and roads.
type Network struct {
	layout traffic.Layout

	intersections []*Intersection
	roads         []*Road

	vertexSlots btree.Map[VertexID, int]
	roadSlots   btree.Map[RoadID, int]

	nextVertex VertexID
	nextRoad   RoadID
	version    uint64
}

// Option configures a Network.
type Option func(*Network)

// WithLayout sets the queue spacing used by every road.
func WithLayout(l traffic.Layout) Option {
	return func(n *Network) { n.layout = l }
}

// New returns an empty network.
func New(opts ...Option) *Network {
	n := &Network{layout: traffic.DefaultLayout()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *Network) Layout() traffic.Layout { return n.layout }

// Version changes on every structural mutation. Derived tables (routing,
// degree caches) can compare it to decide whether to rebuild.
func (n *Network) Version() uint64 { return n.version }

// AddIntersection appends a vertex at pos.
func (n *Network) AddIntersection(pos r2.Vec, rate float64) (*Intersection, error) {
	if !finite(pos.X) || !finite(pos.Y) {
		return nil, fmt.Errorf("intersection position %v: %w", pos, ErrInvalidParameter)
	}
	if rate < 0 || !finite(rate) {
		return nil, fmt.Errorf("intersection n=%v: %w", rate, ErrInvalidParameter)
	}
	n.nextVertex++
	in := &Intersection{ID: n.nextVertex, Pos: pos, N: rate}
	n.vertexSlots.Set(in.ID, len(n.intersections))
	n.intersections = append(n.intersections, in)
	n.version++
	return in, nil
}

// AddRoad appends a directed road from → to with the given queue capacity.
func (n *Network) AddRoad(from, to VertexID, capacity int) (*Road, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("road capacity %d: %w", capacity, ErrInvalidParameter)
	}
	src, err := n.Intersection(from)
	if err != nil {
		return nil, fmt.Errorf("road source: %w", err)
	}
	dst, err := n.Intersection(to)
	if err != nil {
		return nil, fmt.Errorf("road destination: %w", err)
	}
	if from == to || src.Pos == dst.Pos {
		return nil, fmt.Errorf("road %d→%d: %w", from, to, ErrDegenerateRoad)
	}
	n.nextRoad++
	r := &Road{
		ID:    n.nextRoad,
		From:  from,
		To:    to,
		net:   n,
		queue: traffic.NewQueue(capacity, n.layout),
	}
	n.roadSlots.Set(r.ID, len(n.roads))
	n.roads = append(n.roads, r)
	n.version++
	return r, nil
}

// Intersection resolves a vertex ID.
func (n *Network) Intersection(id VertexID) (*Intersection, error) {
	slot, ok := n.vertexSlots.Get(id)
	if !ok {
		return nil, fmt.Errorf("intersection %d: %w", id, ErrUnknownIntersection)
	}
	return n.intersections[slot], nil
}

// Index returns the current positional index of a vertex.
func (n *Network) Index(id VertexID) (int, error) {
	slot, ok := n.vertexSlots.Get(id)
	if !ok {
		return -1, fmt.Errorf("intersection %d: %w", id, ErrUnknownIntersection)
	}
	return slot, nil
}

// IntersectionAt returns the vertex at index i, or nil when out of range.
func (n *Network) IntersectionAt(i int) *Intersection {
	if i < 0 || i >= len(n.intersections) {
		return nil
	}
	return n.intersections[i]
}

// Intersections returns the vertices in scan order. The slice must not be
// modified.
func (n *Network) Intersections() []*Intersection { return n.intersections }

func (n *Network) IntersectionCount() int { return len(n.intersections) }

// Road resolves a road ID.
func (n *Network) Road(id RoadID) (*Road, error) {
	slot, ok := n.roadSlots.Get(id)
	if !ok {
		return nil, fmt.Errorf("road %d: %w", id, ErrUnknownRoad)
	}
	return n.roads[slot], nil
}

// RoadIndex returns the current positional index of a road.
func (n *Network) RoadIndex(id RoadID) (int, error) {
	slot, ok := n.roadSlots.Get(id)
	if !ok {
		return -1, fmt.Errorf("road %d: %w", id, ErrUnknownRoad)
	}
	return slot, nil
}

// RoadAt returns the road at index i, or nil when out of range.
func (n *Network) RoadAt(i int) *Road {
	if i < 0 || i >= len(n.roads) {
		return nil
	}
	return n.roads[i]
}

// Roads returns the roads in scan order. The slice must not be modified.
func (n *Network) Roads() []*Road { return n.roads }

func (n *Network) RoadCount() int { return len(n.roads) }

// Endpoints returns the positional indices of r's source and destination.
func (n *Network) Endpoints(r *Road) (from, to int, err error) {
	if from, err = n.Index(r.From); err != nil {
		return -1, -1, err
	}
	if to, err = n.Index(r.To); err != nil {
		return -1, -1, err
	}
	return from, to, nil
}

// Incoming returns the roads ending at id, in scan order.
func (n *Network) Incoming(id VertexID) []*Road {
	var out []*Road
	for _, r := range n.roads {
		if r.To == id {
			out = append(out, r)
		}
	}
	return out
}

// Outgoing returns the roads starting at id, in scan order.
func (n *Network) Outgoing(id VertexID) []*Road {
	var out []*Road
	for _, r := range n.roads {
		if r.From == id {
			out = append(out, r)
		}
	}
	return out
}

func (n *Network) InDegree(id VertexID) int {
	count := 0
	for _, r := range n.roads {
		if r.To == id {
			count++
		}
	}
	return count
}

func (n *Network) OutDegree(id VertexID) int {
	count := 0
	for _, r := range n.roads {
		if r.From == id {
			count++
		}
	}
	return count
}

// MoveIntersection relocates a vertex. Queues on incident roads are
// restacked; vehicles already moving keep their cached destination until they
// are rebound.
func (n *Network) MoveIntersection(id VertexID, pos r2.Vec) error {
	in, err := n.Intersection(id)
	if err != nil {
		return err
	}
	if !finite(pos.X) || !finite(pos.Y) {
		return fmt.Errorf("intersection position %v: %w", pos, ErrInvalidParameter)
	}
	in.Pos = pos
	for _, r := range n.roads {
		if r.From == id || r.To == id {
			r.restack()
		}
	}
	return nil
}

// SetN changes the arrival rate / green duration of a vertex.
func (n *Network) SetN(id VertexID, rate float64) error {
	in, err := n.Intersection(id)
	if err != nil {
		return err
	}
	if rate < 0 || !finite(rate) {
		return fmt.Errorf("intersection n=%v: %w", rate, ErrInvalidParameter)
	}
	in.N = rate
	return nil
}

// Validate checks that every road endpoint resolves to a live intersection
// and that the slot tables agree with scan order.
func (n *Network) Validate() error {
	if n.vertexSlots.Len() != len(n.intersections) {
		return fmt.Errorf("vertex table has %d entries for %d intersections", n.vertexSlots.Len(), len(n.intersections))
	}
	for i, in := range n.intersections {
		if slot, ok := n.vertexSlots.Get(in.ID); !ok || slot != i {
			return fmt.Errorf("intersection %d at index %d has slot %d", in.ID, i, slot)
		}
	}
	if n.roadSlots.Len() != len(n.roads) {
		return fmt.Errorf("road table has %d entries for %d roads", n.roadSlots.Len(), len(n.roads))
	}
	for i, r := range n.roads {
		if slot, ok := n.roadSlots.Get(r.ID); !ok || slot != i {
			return fmt.Errorf("road %d at index %d has slot %d", r.ID, i, slot)
		}
		from, to, err := n.Endpoints(r)
		if err != nil {
			return fmt.Errorf("road %d: %w", r.ID, err)
		}
		if from >= len(n.intersections) || to >= len(n.intersections) {
			return fmt.Errorf("road %d endpoints %d→%d out of range", r.ID, from, to)
		}
	}
	return nil
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
