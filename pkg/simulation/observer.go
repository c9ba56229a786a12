package simulation

import (
	"log/slog"
)

// Observer is told about every completed tick. It runs on the ticking
// goroutine with the simulation locked and must not call back into the
// Simulator.
type Observer interface {
	OnTick(snap *Snapshot)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(snap *Snapshot)

func (f ObserverFunc) OnTick(snap *Snapshot) { f(snap) }

func (s *Simulator) notify() {
	if len(s.observers) == 0 {
		return
	}
	snap := s.snapshot()
	for _, o := range s.observers {
		o.OnTick(&snap)
	}
}

// LogObserver writes a summary line every Every ticks.
type LogObserver struct {
	Logger *slog.Logger
	Every  uint64
}

func NewLogObserver(logger *slog.Logger, every uint64) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	if every == 0 {
		every = 1
	}
	return &LogObserver{Logger: logger, Every: every}
}

func (o *LogObserver) OnTick(snap *Snapshot) {
	if snap.Tick%o.Every != 0 {
		return
	}
	queued := 0
	for _, v := range snap.Vehicles {
		if v.Queued {
			queued++
		}
	}
	o.Logger.Info("tick",
		"tick", snap.Tick,
		"vehicles", len(snap.Vehicles),
		"queued", queued,
		"spawned", snap.Counters.Spawned,
		"throughput", snap.Counters.Throughput,
		"wait_time", snap.Counters.WaitTime,
		"time_in_sim", snap.Counters.TimeInSim,
	)
}
