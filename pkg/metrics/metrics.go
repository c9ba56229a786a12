package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ardalan-sia/queue-traffic/pkg/simulation"
)

var (
	Ticks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "trafficsim_tick",
		Help: "Current simulation tick",
	})

	VehiclesActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "trafficsim_vehicles_active",
		Help: "Vehicles currently on the network",
	})

	VehiclesQueued = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "trafficsim_vehicles_queued",
		Help: "Vehicles currently waiting in a road queue",
	})

	// Run totals are exported as gauges because they reset when a network is
	// reloaded.
	RunTotals = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trafficsim_run_total",
			Help: "Run-wide telemetry counters (spawned, throughput, wait_time, time_in_sim)",
		},
		[]string{"counter"},
	)

	QueueLength = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trafficsim_road_queue_length",
			Help: "Vehicles queued on a road",
		},
		[]string{"road"},
	)

	QueueOccupancy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trafficsim_road_queue_occupancy",
			Help: "Queued vehicles as a fraction of road capacity",
		},
		[]string{"road"},
	)

	IntersectionThroughput = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trafficsim_intersection_throughput",
			Help: "Vehicles released or consumed by an intersection",
		},
		[]string{"intersection", "role"},
	)

	IntersectionWait = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trafficsim_intersection_wait_ticks",
			Help: "Accumulated queue-ticks waited at a signalized intersection",
		},
		[]string{"intersection"},
	)
)

// Exporter publishes every tick's snapshot to the collectors above.
type Exporter struct{}

func NewExporter() *Exporter { return &Exporter{} }

// OnTick implements simulation.Observer.
func (e *Exporter) OnTick(snap *simulation.Snapshot) {
	Ticks.Set(float64(snap.Tick))
	VehiclesActive.Set(float64(len(snap.Vehicles)))
	queued := 0
	for _, v := range snap.Vehicles {
		if v.Queued {
			queued++
		}
	}
	VehiclesQueued.Set(float64(queued))

	RunTotals.WithLabelValues("spawned").Set(float64(snap.Counters.Spawned))
	RunTotals.WithLabelValues("throughput").Set(float64(snap.Counters.Throughput))
	RunTotals.WithLabelValues("wait_time").Set(float64(snap.Counters.WaitTime))
	RunTotals.WithLabelValues("time_in_sim").Set(float64(snap.Counters.TimeInSim))

	// Labels use stable IDs so series survive renumbering on deletion.
	QueueLength.Reset()
	QueueOccupancy.Reset()
	for _, r := range snap.Roads {
		id := strconv.FormatUint(uint64(r.ID), 10)
		QueueLength.WithLabelValues(id).Set(float64(r.QueueLen))
		QueueOccupancy.WithLabelValues(id).Set(r.Occupancy)
	}
	IntersectionThroughput.Reset()
	IntersectionWait.Reset()
	for _, in := range snap.Intersections {
		id := strconv.FormatUint(uint64(in.ID), 10)
		IntersectionThroughput.WithLabelValues(id, in.Role.String()).Set(float64(in.Throughput))
		IntersectionWait.WithLabelValues(id).Set(float64(in.WaitTime))
	}
}
