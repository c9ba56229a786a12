package traffic

import (
	"errors"

	"gonum.org/v1/gonum/spatial/r2"
)

var (
	// ErrQueueFull is returned by Enqueue when the queue is at capacity.
	ErrQueueFull = errors.New("queue is full")
	// ErrQueueEmpty is returned by Dequeue when nothing is waiting.
	ErrQueueEmpty = errors.New("queue is empty")
)

// Occupant is anything that can wait in a road queue.
type Occupant interface {
	// Park marks the occupant queued and places it at pos.
	Park(pos r2.Vec)
	// Release clears the queued flag.
	Release()
}

// Segment is the geometry of the road a queue belongs to.
type Segment struct {
	From r2.Vec
	To   r2.Vec
}

// Direction returns the unit vector from From to To, or the zero vector for
// a zero-length segment.
func (s Segment) Direction() r2.Vec {
	d := r2.Sub(s.To, s.From)
	if r2.Norm(d) == 0 {
		return r2.Vec{}
	}
	return r2.Unit(d)
}

// Layout describes how queued vehicles stack back from the stop line.
type Layout struct {
	StopLine float64 `yaml:"stop_line"`
	Gap      float64 `yaml:"gap"`
}

// DefaultLayout matches the spacing vehicles use when braking into a queue.
func DefaultLayout() Layout { return Layout{StopLine: 16, Gap: 9} }

// Offset is the distance of slot i behind the destination.
func (l Layout) Offset(i int) float64 { return l.StopLine + l.Gap*float64(i) }

// Queue is the bounded FIFO waiting at the destination end of a road.
// Membership only changes through Enqueue and Dequeue.
type Queue struct {
	capacity  int
	layout    Layout
	occupants []Occupant
}

// NewQueue allocates an empty queue. capacity must be positive.
func NewQueue(capacity int, layout Layout) *Queue {
	return &Queue{
		capacity:  capacity,
		layout:    layout,
		occupants: make([]Occupant, 0, min(capacity, 64)),
	}
}

func (q *Queue) Len() int       { return len(q.occupants) }
func (q *Queue) Capacity() int  { return q.capacity }
func (q *Queue) Layout() Layout { return q.layout }

// Occupancy = queued / capacity.
func (q *Queue) Occupancy() float64 {
	if q.capacity == 0 {
		return 0
	}
	return float64(len(q.occupants)) / float64(q.capacity)
}

// Enqueue appends o and returns its 0-based slot.
func (q *Queue) Enqueue(o Occupant, seg Segment) (int, error) {
	if len(q.occupants) >= q.capacity {
		return -1, ErrQueueFull
	}
	slot := len(q.occupants)
	q.occupants = append(q.occupants, o)
	q.Restack(seg)
	return slot, nil
}

// Dequeue removes and returns the front occupant.
func (q *Queue) Dequeue(seg Segment) (Occupant, error) {
	if len(q.occupants) == 0 {
		return nil, ErrQueueEmpty
	}
	front := q.occupants[0]
	q.occupants[0] = nil
	q.occupants = q.occupants[1:]
	front.Release()
	q.Restack(seg)
	return front, nil
}

// Drain empties the queue and returns what was waiting, front first.
func (q *Queue) Drain() []Occupant {
	out := q.occupants
	q.occupants = make([]Occupant, 0, min(q.capacity, 64))
	for _, o := range out {
		o.Release()
	}
	return out
}

// Restack re-places every occupant at its slot offset behind seg.To.
func (q *Queue) Restack(seg Segment) {
	d := seg.Direction()
	for i, o := range q.occupants {
		o.Park(r2.Sub(seg.To, r2.Scale(q.layout.Offset(i), d)))
	}
}
