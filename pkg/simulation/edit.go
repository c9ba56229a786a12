package simulation

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ardalan-sia/queue-traffic/pkg/graph"
)

// AddIntersection appends a vertex and selects it. Like every edit it fails
// with ErrRunning while the running flag is set.
func (s *Simulator) AddIntersection(pos r2.Vec, n float64) (graph.VertexID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running.Load() {
		return 0, ErrRunning
	}
	in, err := s.net.AddIntersection(pos, n)
	if err != nil {
		return 0, err
	}
	s.selected, s.hasSelected = in.ID, true
	return in.ID, nil
}

// AddRoad appends a single directed road. It fails with ErrRunning while
// running.
func (s *Simulator) AddRoad(from, to graph.VertexID, capacity int) (graph.RoadID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running.Load() {
		return 0, ErrRunning
	}
	r, err := s.net.AddRoad(from, to, capacity)
	if err != nil {
		return 0, err
	}
	return r.ID, nil
}

// Connect links a and b with a road in each direction using the default
// queue capacity. It fails with ErrRunning while running.
func (s *Simulator) Connect(a, b graph.VertexID) (graph.RoadID, graph.RoadID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running.Load() {
		return 0, 0, ErrRunning
	}
	// validate both directions before adding either
	if _, err := s.net.Intersection(a); err != nil {
		return 0, 0, err
	}
	if _, err := s.net.Intersection(b); err != nil {
		return 0, 0, err
	}
	there, err := s.net.AddRoad(a, b, s.params.QueueCapacity)
	if err != nil {
		return 0, 0, err
	}
	back, err := s.net.AddRoad(b, a, s.params.QueueCapacity)
	if err != nil {
		if _, rerr := s.net.RemoveRoad(there.ID); rerr != nil {
			return 0, 0, fmt.Errorf("%w (rollback: %v)", err, rerr)
		}
		return 0, 0, err
	}
	return there.ID, back.ID, nil
}

// RemoveRoad deletes a road and every vehicle on it. It fails with
// ErrRunning while running.
func (s *Simulator) RemoveRoad(id graph.RoadID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running.Load() {
		return ErrRunning
	}
	if _, err := s.net.RemoveRoad(id); err != nil {
		return err
	}
	s.dropStranded()
	return nil
}

// MoveIntersection drags a vertex to pos. It fails with ErrRunning while
// running.
func (s *Simulator) MoveIntersection(id graph.VertexID, pos r2.Vec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running.Load() {
		return ErrRunning
	}
	return s.net.MoveIntersection(id, pos)
}

// SetN changes a vertex's arrival rate or green duration. It fails with
// ErrRunning while running.
func (s *Simulator) SetN(id graph.VertexID, n float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running.Load() {
		return ErrRunning
	}
	return s.net.SetN(id, n)
}

// Select marks a vertex as the target of DeleteSelected. It fails with
// ErrRunning while running.
func (s *Simulator) Select(id graph.VertexID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running.Load() {
		return ErrRunning
	}
	if _, err := s.net.Intersection(id); err != nil {
		return err
	}
	s.selected, s.hasSelected = id, true
	return nil
}

func (s *Simulator) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasSelected = false
}

// Selected returns the selected vertex, if any.
func (s *Simulator) Selected() (graph.VertexID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected, s.hasSelected
}

// DeleteSelected removes the selected vertex, its roads and the vehicles on
// them, then clears the selection. Without a selection it does nothing.
// It fails with ErrRunning while running.
func (s *Simulator) DeleteSelected() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running.Load() {
		return ErrRunning
	}
	if !s.hasSelected {
		return nil
	}
	id := s.selected
	if _, err := s.net.RemoveIntersection(id); err != nil {
		return err
	}
	delete(s.control, id)
	s.dropStranded()
	s.hasSelected = false
	return nil
}
