// Package sim wires the Resolver and EmCS into a stepping engine that
// replays a fleet's tasks minute by minute, grounded on the original
// project's Simulation / SimulationState components.
package sim

import (
	"log"
	"sort"

	"fleema/internal/model"
)

// Observer accumulates named counters (the resolver's per-vehicle
// deleted-ride counts) that feed the final summary, and records committed
// vehicle events. Warn only logs; warnings are not counted. It implements
// resolver.Observer.
type Observer struct {
	Logger *log.Logger

	accumulated map[string]float64
	events      []vehicleEvent
}

type vehicleEvent struct {
	VehicleID string
	StartTime int
	EndTime   int
	Kind      string
}

// NewObserver builds an Observer logging through l (the standard logger if
// nil).
func NewObserver(l *log.Logger) *Observer {
	if l == nil {
		l = log.Default()
	}
	return &Observer{Logger: l, accumulated: map[string]float64{}}
}

// AddVehicleEvent records a committed task for the final event trace.
func (o *Observer) AddVehicleEvent(vehicleID string, task model.Task) {
	o.events = append(o.events, vehicleEvent{
		VehicleID: vehicleID,
		StartTime: task.StartTime,
		EndTime:   task.EndTime,
		Kind:      task.Kind.String(),
	})
}

// AddToAccumulatedResults adds value to a named running total.
func (o *Observer) AddToAccumulatedResults(key string, value float64) {
	o.accumulated[key] += value
}

// Warn logs a non-fatal issue.
func (o *Observer) Warn(format string, args ...any) {
	o.Logger.Printf("warn: "+format, args...)
}

// Totals returns a snapshot of every accumulated counter.
func (o *Observer) Totals() map[string]float64 {
	out := make(map[string]float64, len(o.accumulated))
	for k, v := range o.accumulated {
		out[k] = v
	}
	return out
}

// EventCount returns how many vehicle events have been recorded.
func (o *Observer) EventCount() int {
	return len(o.events)
}

// SortedKeys is a small helper for deterministic JSON/CSV emission order.
func SortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
