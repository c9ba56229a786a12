package traffic

import "math"

// Counters is the run-wide telemetry owned by the simulator. Values only grow
// and saturate at math.MaxUint64.
type Counters struct {
	TimeInSim  uint64
	WaitTime   uint64
	Throughput uint64
	Spawned    uint64
}

// Inc adds one to *c without wrapping.
func Inc(c *uint64) { Add(c, 1) }

// Add adds n to *c without wrapping.
func Add(c *uint64, n uint64) {
	if *c > math.MaxUint64-n {
		*c = math.MaxUint64
		return
	}
	*c += n
}
