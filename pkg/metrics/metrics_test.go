package metrics

import (
	"strconv"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ardalan-sia/queue-traffic/pkg/simulation"
)

func TestExporter_PublishesSnapshot(t *testing.T) {
	sim := simulation.NewSimulator(nil, simulation.DefaultParams())
	a, err := sim.AddIntersection(r2.Vec{X: 0, Y: 0}, 3600)
	require.NoError(t, err)
	b, err := sim.AddIntersection(r2.Vec{X: 500, Y: 0}, 0)
	require.NoError(t, err)
	there, _, err := sim.Connect(a, b)
	require.NoError(t, err)

	sim.AddObserver(NewExporter())
	require.NoError(t, sim.StepN(40))

	snap := sim.Snapshot()
	assert.Equal(t, float64(40), testutil.ToFloat64(Ticks))
	assert.Equal(t, float64(len(snap.Vehicles)), testutil.ToFloat64(VehiclesActive))
	assert.Equal(t, float64(snap.Counters.Spawned), testutil.ToFloat64(RunTotals.WithLabelValues("spawned")))
	assert.Equal(t, float64(snap.Counters.TimeInSim), testutil.ToFloat64(RunTotals.WithLabelValues("time_in_sim")))

	assert.Equal(t, 2, testutil.CollectAndCount(QueueLength))
	assert.Equal(t, float64(0), testutil.ToFloat64(QueueLength.WithLabelValues(strconv.FormatUint(uint64(there), 10))))
	assert.Equal(t, 2, testutil.CollectAndCount(QueueOccupancy))
	assert.Equal(t, float64(0), testutil.ToFloat64(QueueOccupancy.WithLabelValues(strconv.FormatUint(uint64(there), 10))))
	assert.Equal(t, 2, testutil.CollectAndCount(IntersectionThroughput))
}
