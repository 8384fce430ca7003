// Package resolver ranks candidate charging opportunities per vehicle and
// greedily distributes them across the fleet, grounded on the original
// project's Schedule component (simulation_types/schedule.py).
package resolver

import (
	"fmt"
	"sort"

	"fleema/internal/evaluator"
	"fleema/internal/model"
	"fleema/internal/util"
)

// Observer receives side-channel bookkeeping events the resolver raises
// along the way (deleted rides, infeasibility warnings).
type Observer interface {
	AddVehicleEvent(vehicleID string, task model.Task)
	AddToAccumulatedResults(key string, value float64)
	Warn(format string, args ...any)
}

// NopObserver discards everything; useful in tests.
type NopObserver struct{}

func (NopObserver) AddVehicleEvent(string, model.Task)       {}
func (NopObserver) AddToAccumulatedResults(string, float64)  {}
func (NopObserver) Warn(string, ...any)                      {}

// Registry is the minimal lookup surface the resolver needs over the
// simulation's static world: every charging-capable location. A vehicle's
// neighbouring tasks are read from the vehicle itself.
type Registry struct {
	ChargingLocations []*model.Location
}

// Resolver ranks and allocates charging slots for a fleet over one planning
// window [start, end).
type Resolver struct {
	Eval        *evaluator.Evaluator
	Registry    Registry
	Observer    Observer
	DeleteRides bool
	SoCMin      float64
	EndOfDaySoC float64
}

func (r *Resolver) observer() Observer {
	if r.Observer == nil {
		return NopObserver{}
	}
	return r.Observer
}

// GetChargingSlots computes the candidate list for one vehicle: one
// best-scoring candidate per break, sorted descending by (score, delta_soc,
// charge, -consumption). The list is recomputed on every call; it is not
// cached on the vehicle.
func (r *Resolver) GetChargingSlots(v *model.Vehicle, start, end int) []evaluator.Candidate {
	breaks := v.GetBreaks(start, end)
	candidates := make([]evaluator.Candidate, 0, len(breaks))

	for _, brk := range breaks {
		var best *evaluator.Candidate
		for _, loc := range r.Registry.ChargingLocations {
			nextTask := v.GetNextTask(brk.EndTime)
			nextLoc := brk.EndPoint
			if nextTask != nil {
				nextLoc = nextTask.StartPoint
			}
			cand, err := r.Eval.Evaluate(v.VehicleType, loc, brk.StartPoint, nextLoc, brk.StartTime, brk.EndTime, v.SoC)
			if err != nil {
				r.observer().Warn("evaluate failed for vehicle %s at %d: %v", v.ID, brk.StartTime, err)
				continue
			}
			if cand.Empty {
				continue
			}
			if best == nil || candidateLess(*best, cand) {
				c := cand
				best = &c
			}
		}
		if best != nil {
			candidates = append(candidates, *best)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidateLess(candidates[j], candidates[i])
	})
	return candidates
}

// candidateLess reports whether a ranks below b under the sort key
// score DESC, delta_soc DESC, charge DESC, consumption ASC.
func candidateLess(a, b evaluator.Candidate) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	if a.DeltaSoC != b.DeltaSoC {
		return a.DeltaSoC < b.DeltaSoC
	}
	if a.Charge != b.Charge {
		return a.Charge < b.Charge
	}
	return a.Consumption > b.Consumption
}

// DistributeChargingSlots runs the greedy round-robin allocation loop over
// every vehicle until each either runs dry or is dropped.
func (r *Resolver) DistributeChargingSlots(vehicles []*model.Vehicle, start, end int) error {
	active := make([]*model.Vehicle, len(vehicles))
	copy(active, vehicles)

	i := 0
	for len(active) > 0 {
		v := active[i]
		cand, err := r.FindNextChargingSlot(v, start, end)
		if err != nil {
			return err
		}
		if cand == nil {
			active = append(active[:i], active[i+1:]...)
			if len(active) == 0 {
				break
			}
			if i >= len(active) {
				i = 0
			}
			continue
		}

		if err := r.commit(v, *cand); err != nil {
			return err
		}

		i = util.NextIndex(i, len(active))
	}
	return nil
}

func (r *Resolver) commit(v *model.Vehicle, cand evaluator.Candidate) error {
	if cand.TaskTo != nil {
		if err := v.AddTask(*cand.TaskTo); err != nil {
			return err
		}
		r.observer().AddVehicleEvent(v.ID, *cand.TaskTo)
	}
	if err := v.AddTask(cand.ChargeEvent); err != nil {
		return err
	}
	r.observer().AddVehicleEvent(v.ID, cand.ChargeEvent)
	if cand.TaskFrom != nil {
		if err := v.AddTask(*cand.TaskFrom); err != nil {
			return err
		}
		r.observer().AddVehicleEvent(v.ID, *cand.TaskFrom)
	}

	if cand.ChargeEvent.StartPoint != nil {
		cand.ChargeEvent.StartPoint.AddOccupation(cand.ChargeEvent.StartTime, cand.ChargeEvent.EndTime)
	}
	return nil
}

// socRow is one row of the analytically-replayed SoC trace.
type socRow struct {
	timestep          int
	soc               float64
	necessaryCharging float64
}

func predictedSoC(v *model.Vehicle, start, end int) []socRow {
	tasks := v.VehicleTasksChronological()
	rows := make([]socRow, 0, len(tasks)+1)
	soc := v.SoC
	rows = append(rows, socRow{timestep: start, soc: soc})
	for _, t := range tasks {
		if t.Kind != model.Driving {
			continue
		}
		if t.EndTime <= start || t.EndTime >= end {
			continue
		}
		soc += t.DeltaSoC
		rows = append(rows, socRow{timestep: t.EndTime, soc: soc})
	}
	return rows
}

// FindNextChargingSlot implements the per-vehicle candidate-popping state
// machine: skip unavailable chargers, accept the first scored candidate
// (even as partial progress), and fall back to deleting the offending ride
// when delete_rides is enabled and no useful candidate remains.
func (r *Resolver) FindNextChargingSlot(v *model.Vehicle, start, end int) (*evaluator.Candidate, error) {
	trace := predictedSoC(v, start, end)
	lastSoC := trace[len(trace)-1].soc

	minChargeNeeded := r.SoCMin - lastSoC
	if minChargeNeeded < 0 {
		minChargeNeeded = 0
	}
	endOfDayNeeded := r.EndOfDaySoC - lastSoC
	if endOfDayNeeded < 0 {
		endOfDayNeeded = 0
	}
	if minChargeNeeded == 0 && endOfDayNeeded == 0 {
		return nil, nil
	}

	necessary := make([]socRow, 0, len(trace))
	for _, row := range trace {
		if row.soc <= r.SoCMin {
			necessary = append(necessary, socRow{timestep: row.timestep, soc: row.soc, necessaryCharging: r.SoCMin - row.soc})
		}
	}
	if len(trace) > 0 {
		last := trace[len(trace)-1]
		necessary = append(necessary, socRow{timestep: last.timestep, soc: last.soc, necessaryCharging: r.SoCMin - last.soc})
	}

	candidates := r.GetChargingSlots(v, start, end)

	for len(candidates) > 0 {
		cand := candidates[0]
		candidates = candidates[1:]

		loc := cand.ChargeEvent.StartPoint
		if loc != nil && !loc.IsAvailable(cand.ChargeEvent.StartTime, cand.ChargeEvent.EndTime) {
			continue
		}

		if cand.Score > 0 {
			// Apply delta_soc to every row at or after the candidate's
			// timestep. Whether this fully satisfies necessary_charging or
			// only partially does, the candidate is accepted either way —
			// the outer loop re-evaluates on its next pass.
			for i := range necessary {
				if necessary[i].timestep >= cand.Timestep {
					necessary[i].necessaryCharging -= cand.DeltaSoC
				}
			}
			return &cand, nil
		}

		// Score <= 0: no more useful options among remaining candidates either,
		// since the list is sorted descending by score.
		break
	}

	minSatisfied := minChargeNeeded == 0
	if minSatisfied {
		r.observer().Warn("vehicle %s cannot reach end_of_day_soc in [%d,%d)", v.ID, start, end)
		return nil, nil
	}
	if !r.DeleteRides {
		return nil, fmt.Errorf("%w: vehicle %s has no feasible charging slot in [%d,%d)", model.ErrInfeasible, v.ID, start, end)
	}

	if err := r.deleteRide(v, necessary); err != nil {
		return nil, err
	}
	return nil, nil
}

// deleteRide removes the first DRIVING task in the impossible region and
// splices the following task to start from the deleted task's origin.
func (r *Resolver) deleteRide(v *model.Vehicle, necessary []socRow) error {
	var firstImpossible int
	found := false
	for _, row := range necessary {
		if row.necessaryCharging > 0 {
			firstImpossible = row.timestep
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: no impossible task found to delete for vehicle %s", model.ErrInfeasible, v.ID)
	}

	// Rows of the predicted SoC trace are tagged with the drive's end time.
	var task *model.Task
	for _, t := range v.VehicleTasksChronological() {
		if t.Kind == model.Driving && t.EndTime == firstImpossible {
			match := t
			task = &match
			break
		}
	}
	if task == nil {
		return fmt.Errorf("%w: driving task ending at %d not found on vehicle %s", model.ErrBadInput, firstImpossible, v.ID)
	}
	if err := v.RemoveTask(task); err != nil {
		return err
	}

	if next := v.GetNextTask(task.StartTime); next != nil {
		if err := v.RemoveTask(next); err != nil {
			return err
		}
		next.StartPoint = task.StartPoint
		next.FloatTime, next.DeltaSoC, next.Consumption = 0, 0, 0
		if err := v.AddTask(*next); err != nil {
			return err
		}
	}

	r.observer().Warn("deleted ride for vehicle %s starting at %d", v.ID, firstImpossible)
	r.observer().AddToAccumulatedResults(fmt.Sprintf("deleted_rides_vehicle_%s", v.ID), 1)
	return nil
}
