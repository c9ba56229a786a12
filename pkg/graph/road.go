package graph

import (
	"fmt"

	"github.com/ardalan-sia/queue-traffic/pkg/traffic"
)

// Road is a directed edge owning the queue at its destination end.
type Road struct {
	ID   RoadID
	From VertexID
	To   VertexID

	net     *Network
	queue   *traffic.Queue
	removed bool
}

// Segment resolves the current endpoint coordinates.
func (r *Road) Segment() (traffic.Segment, error) {
	if r.removed {
		return traffic.Segment{}, fmt.Errorf("road %d: %w", r.ID, ErrRoadRemoved)
	}
	src, err := r.net.Intersection(r.From)
	if err != nil {
		return traffic.Segment{}, err
	}
	dst, err := r.net.Intersection(r.To)
	if err != nil {
		return traffic.Segment{}, err
	}
	return traffic.Segment{From: src.Pos, To: dst.Pos}, nil
}

// Enqueue joins o to the back of the queue and returns its slot.
// traffic.ErrQueueFull means the caller should try again on a later tick.
func (r *Road) Enqueue(o traffic.Occupant) (int, error) {
	seg, err := r.Segment()
	if err != nil {
		return -1, err
	}
	return r.queue.Enqueue(o, seg)
}

// Dequeue pops the front of the queue. traffic.ErrQueueEmpty means nothing is
// waiting.
func (r *Road) Dequeue() (traffic.Occupant, error) {
	seg, err := r.Segment()
	if err != nil {
		return nil, err
	}
	return r.queue.Dequeue(seg)
}

func (r *Road) QueueLen() int      { return r.queue.Len() }
func (r *Road) Capacity() int      { return r.queue.Capacity() }
func (r *Road) Occupancy() float64 { return r.queue.Occupancy() }
func (r *Road) Removed() bool      { return r.removed }

// retire marks the road removed and releases everything waiting on it.
func (r *Road) retire() {
	r.removed = true
	r.queue.Drain()
}

func (r *Road) restack() {
	if seg, err := r.Segment(); err == nil {
		r.queue.Restack(seg)
	}
}

// Layout is the queue spacing shared by every road of the network.
func (r *Road) Layout() traffic.Layout { return r.net.layout }
