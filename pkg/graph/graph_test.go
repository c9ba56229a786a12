package graph

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ardalan-sia/queue-traffic/pkg/traffic"
)

type parked struct {
	pos    r2.Vec
	queued bool
}

func (p *parked) Park(pos r2.Vec) { p.pos, p.queued = pos, true }
func (p *parked) Release()        { p.queued = false }

func mustVertex(t *testing.T, n *Network, x, y, rate float64) VertexID {
	t.Helper()
	in, err := n.AddIntersection(r2.Vec{X: x, Y: y}, rate)
	require.NoError(t, err)
	return in.ID
}

func mustRoad(t *testing.T, n *Network, from, to VertexID, capacity int) *Road {
	t.Helper()
	r, err := n.AddRoad(from, to, capacity)
	require.NoError(t, err)
	return r
}

func TestNetwork_AddValidation(t *testing.T) {
	n := New()
	a := mustVertex(t, n, 0, 0, 60)
	b := mustVertex(t, n, 10, 0, 0)
	c := mustVertex(t, n, 0, 0, 0)

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"negative n", func() error { _, err := n.AddIntersection(r2.Vec{}, -1); return err }, ErrInvalidParameter},
		{"NaN position", func() error { _, err := n.AddIntersection(r2.Vec{X: math.NaN()}, 1); return err }, ErrInvalidParameter},
		{"zero capacity", func() error { _, err := n.AddRoad(a, b, 0); return err }, ErrInvalidParameter},
		{"negative capacity", func() error { _, err := n.AddRoad(a, b, -3); return err }, ErrInvalidParameter},
		{"self loop", func() error { _, err := n.AddRoad(a, a, 5); return err }, ErrDegenerateRoad},
		{"coincident endpoints", func() error { _, err := n.AddRoad(a, c, 5); return err }, ErrDegenerateRoad},
		{"unknown source", func() error { _, err := n.AddRoad(999, b, 5); return err }, ErrUnknownIntersection},
		{"negative SetN", func() error { return n.SetN(a, -2) }, ErrInvalidParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(), tt.want)
		})
	}
	assert.Equal(t, 0, n.RoadCount())
}

func TestNetwork_DegreesAndRoles(t *testing.T) {
	n := New()
	hub := mustVertex(t, n, 0, 0, 30)
	arms := []VertexID{
		mustVertex(t, n, 0, 100, 0),
		mustVertex(t, n, 100, 0, 0),
		mustVertex(t, n, 0, -100, 0),
	}
	for _, arm := range arms {
		mustRoad(t, n, arm, hub, 5)
		mustRoad(t, n, hub, arm, 5)
	}

	assert.Equal(t, 3, n.InDegree(hub))
	assert.Equal(t, 3, n.OutDegree(hub))
	assert.Equal(t, RoleSignalized, n.Role(hub))
	for _, arm := range arms {
		assert.Equal(t, RoleTerminal, n.Role(arm))
	}

	first := n.Roles()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, n.Roles(), "roles are stable for an unchanged graph")
	}

	_, err := n.RemoveRoad(n.Incoming(hub)[0].ID)
	require.NoError(t, err)
	assert.Equal(t, RolePassThrough, n.Role(hub))

	lonely := mustVertex(t, n, 500, 500, 0)
	assert.Equal(t, RoleInert, n.Role(lonely))
}

func TestRoleOf(t *testing.T) {
	assert.Equal(t, RoleInert, RoleOf(0))
	assert.Equal(t, RoleTerminal, RoleOf(1))
	assert.Equal(t, RolePassThrough, RoleOf(2))
	assert.Equal(t, RoleSignalized, RoleOf(3))
	assert.Equal(t, RoleSignalized, RoleOf(8))
	assert.Equal(t, "signalized", RoleSignalized.String())
}

func TestNetwork_IncomingOutgoingScanOrder(t *testing.T) {
	n := New()
	p := mustVertex(t, n, 0, 0, 0)
	x := mustVertex(t, n, -10, 0, 0)
	y := mustVertex(t, n, 10, 0, 0)
	a := mustRoad(t, n, x, p, 5)
	c := mustRoad(t, n, p, x, 5)
	b := mustRoad(t, n, y, p, 5)
	d := mustRoad(t, n, p, y, 5)

	assert.Equal(t, []*Road{a, b}, n.Incoming(p))
	assert.Equal(t, []*Road{c, d}, n.Outgoing(p))
}

func TestRoad_QueueThroughNetwork(t *testing.T) {
	n := New()
	a := mustVertex(t, n, 0, 0, 0)
	b := mustVertex(t, n, 100, 0, 0)
	r := mustRoad(t, n, a, b, 2)

	p1, p2, p3 := &parked{}, &parked{}, &parked{}
	_, err := r.Enqueue(p1)
	require.NoError(t, err)
	_, err = r.Enqueue(p2)
	require.NoError(t, err)
	_, err = r.Enqueue(p3)
	assert.ErrorIs(t, err, traffic.ErrQueueFull)
	assert.Equal(t, 2, r.QueueLen())

	assert.InDelta(t, 84, p1.pos.X, 1e-9)
	require.NoError(t, n.MoveIntersection(b, r2.Vec{X: 200, Y: 0}))
	assert.InDelta(t, 184, p1.pos.X, 1e-9, "moving an endpoint restacks the queue")
	assert.InDelta(t, 175, p2.pos.X, 1e-9)

	o, err := r.Dequeue()
	require.NoError(t, err)
	assert.Same(t, p1, o)
	assert.False(t, p1.queued)
	assert.InDelta(t, 0.5, r.Occupancy(), 1e-9)
}

func TestNetwork_RemoveReleasesQueued(t *testing.T) {
	n := New()
	a := mustVertex(t, n, 0, 0, 0)
	b := mustVertex(t, n, 100, 0, 0)
	c := mustVertex(t, n, 0, 100, 0)
	ab := mustRoad(t, n, a, b, 3)
	ca := mustRoad(t, n, c, a, 3)

	p1, p2, p3 := &parked{}, &parked{}, &parked{}
	for _, tc := range []struct {
		r *Road
		p *parked
	}{{ab, p1}, {ab, p2}, {ca, p3}} {
		_, err := tc.r.Enqueue(tc.p)
		require.NoError(t, err)
	}

	_, err := n.RemoveRoad(ab.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, ab.QueueLen())
	assert.False(t, p1.queued)
	assert.False(t, p2.queued)
	assert.True(t, p3.queued, "other roads keep their queues")

	_, err = n.RemoveIntersection(c)
	require.NoError(t, err)
	assert.Equal(t, 0, ca.QueueLen())
	assert.False(t, p3.queued)
}

func TestNetwork_RemovedRoadFailsLoudly(t *testing.T) {
	n := New()
	a := mustVertex(t, n, 0, 0, 0)
	b := mustVertex(t, n, 50, 0, 0)
	r := mustRoad(t, n, a, b, 3)

	removed, err := n.RemoveIntersection(b)
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.Same(t, r, removed[0])
	assert.True(t, r.Removed())

	_, err = r.Enqueue(&parked{})
	assert.ErrorIs(t, err, ErrRoadRemoved)
	_, err = r.Dequeue()
	assert.ErrorIs(t, err, ErrRoadRemoved)

	_, err = n.Intersection(b)
	assert.ErrorIs(t, err, ErrUnknownIntersection)
	_, err = n.Road(r.ID)
	assert.ErrorIs(t, err, ErrUnknownRoad)
	_, err = n.RemoveIntersection(b)
	assert.ErrorIs(t, err, ErrUnknownIntersection)
}

func TestNetwork_DeleteRenumbers(t *testing.T) {
	n := New()
	v := make([]VertexID, 4)
	for i := range v {
		v[i] = mustVertex(t, n, float64(i)*10, 0, 0)
	}
	mustRoad(t, n, v[0], v[1], 5)
	mustRoad(t, n, v[1], v[2], 5)
	mustRoad(t, n, v[2], v[3], 5)
	last := mustRoad(t, n, v[3], v[0], 5)

	_, err := n.RemoveIntersection(v[1])
	require.NoError(t, err)

	require.Equal(t, 3, n.IntersectionCount())
	require.Equal(t, 2, n.RoadCount())
	from, to, err := n.Endpoints(last)
	require.NoError(t, err)
	assert.Equal(t, 2, from, "index 3 shifts down to 2")
	assert.Equal(t, 0, to)

	idx, err := n.Index(v[3])
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
	assert.Equal(t, v[3], n.IntersectionAt(2).ID)
	assert.Nil(t, n.IntersectionAt(3))
	require.NoError(t, n.Validate())
}

// Every deletion on every random network must leave road endpoints inside
// [0, count) and no road touching the deleted vertex.
func TestNetwork_DeleteIntegrityRandom(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for trial := 0; trial < 200; trial++ {
		n := New()
		size := 2 + rng.IntN(10)
		ids := make([]VertexID, size)
		for i := range ids {
			ids[i] = mustVertex(t, n, float64(i)*13, float64(i%4)*7, 0)
		}
		edges := rng.IntN(size * 3)
		for e := 0; e < edges; e++ {
			a, b := rng.IntN(size), rng.IntN(size)
			if a == b {
				continue
			}
			mustRoad(t, n, ids[a], ids[b], 1+rng.IntN(5))
		}

		victim := ids[rng.IntN(size)]
		_, err := n.RemoveIntersection(victim)
		require.NoError(t, err)

		require.NoError(t, n.Validate())
		for _, r := range n.Roads() {
			from, to, err := n.Endpoints(r)
			require.NoError(t, err)
			assert.True(t, from >= 0 && from < n.IntersectionCount())
			assert.True(t, to >= 0 && to < n.IntersectionCount())
			assert.NotEqual(t, victim, r.From)
			assert.NotEqual(t, victim, r.To)
		}
	}
}

func TestNetwork_VersionTracksStructure(t *testing.T) {
	n := New()
	v0 := n.Version()
	a := mustVertex(t, n, 0, 0, 0)
	b := mustVertex(t, n, 1, 1, 0)
	r := mustRoad(t, n, a, b, 1)
	v1 := n.Version()
	assert.Greater(t, v1, v0)

	require.NoError(t, n.SetN(a, 10))
	assert.Equal(t, v1, n.Version(), "changing n is not structural")

	_, err := n.RemoveRoad(r.ID)
	require.NoError(t, err)
	assert.Greater(t, n.Version(), v1)
}

func TestNetwork_WithLayout(t *testing.T) {
	n := New(WithLayout(traffic.Layout{StopLine: 4, Gap: 2}))
	a := mustVertex(t, n, 0, 0, 0)
	b := mustVertex(t, n, 0, 50, 0)
	r := mustRoad(t, n, a, b, 2)

	p := &parked{}
	_, err := r.Enqueue(p)
	require.NoError(t, err)
	assert.InDelta(t, 46, p.pos.Y, 1e-9)
	assert.Equal(t, traffic.Layout{StopLine: 4, Gap: 2}, r.Layout())
}
