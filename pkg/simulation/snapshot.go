package simulation

import (
	"image/color"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ardalan-sia/queue-traffic/pkg/graph"
	"github.com/ardalan-sia/queue-traffic/pkg/traffic"
)

// Snapshot is a read-only copy of the simulation for renderers and
// reporters. Endpoints and selection are positional indices.
type Snapshot struct {
	Tick     uint64
	Running  bool
	Interval time.Duration
	Counters traffic.Counters
	Selected int

	Intersections []IntersectionView
	Roads         []RoadView
	Vehicles      []VehicleView
}

type IntersectionView struct {
	ID         graph.VertexID
	Index      int
	Pos        r2.Vec
	N          float64
	InDegree   int
	OutDegree  int
	Role       graph.Role
	WaitTime   uint64
	Throughput uint64
}

type RoadView struct {
	ID       graph.RoadID
	Index    int
	From     int
	To       int
	QueueLen  int
	Capacity  int
	Occupancy float64
}

type VehicleView struct {
	ID       uuid.UUID
	Pos      r2.Vec
	Color    color.RGBA
	Road     int
	Queued   bool
	WaitTime uint64
}

// Snapshot copies the current state.
func (s *Simulator) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Simulator) snapshot() Snapshot {
	snap := Snapshot{
		Tick:     s.tick,
		Running:  s.running.Load(),
		Interval: s.Interval(),
		Counters: s.counters,
		Selected: -1,
	}
	if s.hasSelected {
		if i, err := s.net.Index(s.selected); err == nil {
			snap.Selected = i
		}
	}

	in := make(map[graph.VertexID]int)
	out := make(map[graph.VertexID]int)
	for i, r := range s.net.Roads() {
		in[r.To]++
		out[r.From]++
		from, to, _ := s.net.Endpoints(r)
		snap.Roads = append(snap.Roads, RoadView{
			ID:        r.ID,
			Index:     i,
			From:      from,
			To:        to,
			QueueLen:  r.QueueLen(),
			Capacity:  r.Capacity(),
			Occupancy: r.Occupancy(),
		})
	}
	for i, v := range s.net.Intersections() {
		snap.Intersections = append(snap.Intersections, IntersectionView{
			ID:         v.ID,
			Index:      i,
			Pos:        v.Pos,
			N:          v.N,
			InDegree:   in[v.ID],
			OutDegree:  out[v.ID],
			Role:       graph.RoleOf(in[v.ID]),
			WaitTime:   v.WaitTime,
			Throughput: v.Throughput,
		})
	}
	for _, v := range s.vehicles {
		road, _ := s.net.RoadIndex(v.Road.ID)
		snap.Vehicles = append(snap.Vehicles, VehicleView{
			ID:       v.ID,
			Pos:      v.Pos,
			Color:    v.Color,
			Road:     road,
			Queued:   v.Queued,
			WaitTime: v.WaitTime,
		})
	}
	return snap
}
