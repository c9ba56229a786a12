// Package agent models the vehicles that ride the road network.
package agent

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"math/rand/v2"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ardalan-sia/queue-traffic/pkg/graph"
	"github.com/ardalan-sia/queue-traffic/pkg/traffic"
)

// Kinematics are the movement constants shared by every vehicle.
type Kinematics struct {
	// Speed is the distance covered along the dominant axis per tick.
	Speed float64 `yaml:"speed"`
	// Epsilon pads the early-stop distance check.
	Epsilon float64 `yaml:"epsilon"`
}

func DefaultKinematics() Kinematics { return Kinematics{Speed: 1.0, Epsilon: 0.1} }

// Vehicle is bound to exactly one road at a time. It is either moving toward
// the road's destination or waiting in the road's queue.
type Vehicle struct {
	ID    uuid.UUID
	Color color.RGBA

	Pos  r2.Vec
	Dest r2.Vec
	Dir  r2.Vec
	Road *graph.Road

	Queued     bool
	WaitTime   uint64
	CreateTime uint64

	k Kinematics
}

// New creates a vehicle at the start of road.
func New(road *graph.Road, tick uint64, k Kinematics, rng *rand.Rand) (*Vehicle, error) {
	v := &Vehicle{
		ID:         uuid.New(),
		Color:      Palette[rng.IntN(len(Palette))],
		CreateTime: tick,
		k:          k,
	}
	if err := v.Bind(road); err != nil {
		return nil, err
	}
	return v, nil
}

// Bind puts the vehicle at the start of road and points it at the far end.
// Coincident endpoints give a zero direction: the vehicle stays put and joins
// the queue on its next advance.
func (v *Vehicle) Bind(road *graph.Road) error {
	seg, err := road.Segment()
	if err != nil {
		return fmt.Errorf("bind vehicle %s: %w", v.ID, err)
	}
	v.Road = road
	v.Pos = seg.From
	v.Dest = seg.To
	v.Dir = r2.Scale(v.k.Speed, seg.Direction())
	v.Queued = false
	return nil
}

// Park implements traffic.Occupant.
func (v *Vehicle) Park(pos r2.Vec) {
	v.Pos = pos
	v.Queued = true
}

// Release implements traffic.Occupant.
func (v *Vehicle) Release() { v.Queued = false }

// Advance runs one tick of kinematics. A moving vehicle steps toward its
// destination, or tries to join the queue when the step would reach it or
// when it is within braking distance of the last queued car. A full queue is
// not an error: the vehicle keeps trying on later ticks.
func (v *Vehicle) Advance(c *traffic.Counters) error {
	traffic.Inc(&c.TimeInSim)
	if v.Queued {
		traffic.Inc(&c.WaitTime)
		traffic.Inc(&v.WaitTime)
		return nil
	}

	if next, ok := v.step(); ok {
		v.Pos = next
	} else if err := v.join(); err != nil {
		return err
	}

	if !v.Queued && v.nearQueue() {
		return v.join()
	}
	return nil
}

// step walks along the dominant axis by Speed and the other axis by the
// proportional ratio. It reports false when the move would reach or pass
// the destination.
func (v *Vehicle) step() (r2.Vec, bool) {
	dx, dy := v.Dir.X, v.Dir.Y
	if dx == 0 && dy == 0 {
		return v.Pos, false
	}
	unit := v.k.Speed
	if math.Abs(dy) > math.Abs(dx) {
		ratio := unit * math.Abs(dx) / math.Abs(dy)
		x, okX := minorStep(v.Pos.X, v.Dest.X, dx, ratio)
		y, okY := majorStep(v.Pos.Y, v.Dest.Y, dy, unit)
		return r2.Vec{X: x, Y: y}, okX && okY
	}
	ratio := unit * math.Abs(dy) / math.Abs(dx)
	x, okX := majorStep(v.Pos.X, v.Dest.X, dx, unit)
	y, okY := minorStep(v.Pos.Y, v.Dest.Y, dy, ratio)
	return r2.Vec{X: x, Y: y}, okX && okY
}

// majorStep must stay strictly short of the target.
func majorStep(p, target, d, unit float64) (float64, bool) {
	if d > 0 {
		return p + unit, p+unit < target
	}
	return p - unit, p-unit > target
}

// minorStep is inclusive on the non-positive side so that a zero delta on
// this axis never blocks the walk.
func minorStep(p, target, d, ratio float64) (float64, bool) {
	if d > 0 {
		return p + ratio, p+ratio < target
	}
	return p - ratio, p-ratio >= target
}

func (v *Vehicle) nearQueue() bool {
	off := v.Road.Layout().Offset(v.Road.QueueLen())
	return math.Abs(v.Pos.X-v.Dest.X) < v.k.Epsilon+math.Abs(v.Dir.X)*off &&
		math.Abs(v.Pos.Y-v.Dest.Y) < v.k.Epsilon+math.Abs(v.Dir.Y)*off
}

func (v *Vehicle) join() error {
	_, err := v.Road.Enqueue(v)
	if errors.Is(err, traffic.ErrQueueFull) {
		return nil
	}
	return err
}

// ChooseDirection picks uniformly from [1, choices].
func ChooseDirection(rng *rand.Rand, choices int) int {
	if choices < 1 {
		return 1
	}
	return rng.IntN(choices) + 1
}
