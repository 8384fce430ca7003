package model

import (
	"fmt"
	"sort"
	"time"
)

// ChargingResult summarizes one EmCS charging run, as extracted by the
// EmCS adapter's characteristic-extraction step.
type ChargingResult struct {
	Cost       float64 // total € for the charging event
	FeedIn     float64 // renewable share [0,1]
	Emission   float64 // total g CO2
	GridEnergy float64 // kWh drawn from the grid
	V2GEnergy  float64 // kWh exported to the grid (0 unless V2G)
}

// VehicleOutput is the per-vehicle event trace, one row per executed task,
// with exactly the 19 columns the original vehicle event log carries.
type VehicleOutput struct {
	Timestamp              []time.Time
	EventStart             []int
	EventTime              []int
	EndLocation            []string
	Status                 []Status
	SoCStart               []float64
	SoCEnd                 []float64
	Energy                 []float64
	ActualEnergyFromGrid   []float64
	StationChargingCapacity []float64
	AverageChargingPower   []float64
	Distance               []float64
	EnergyFromFeedIn       []float64
	EnergyFromGrid         []float64
	EnergyCost             []float64
	Emission               []float64
	Consumption            []float64
	LevelOfLoading         []float64
	V2GEnergy              []float64
}

func (o *VehicleOutput) lastChargingDemand(capacity float64) float64 {
	if len(o.SoCStart) == 0 {
		return 0
	}
	n := len(o.SoCStart)
	demand := (o.SoCEnd[n-1] - o.SoCStart[n-1]) * capacity
	if demand < 0 {
		return 0
	}
	return demand
}

func (o *VehicleOutput) lastConsumption(capacity float64) float64 {
	if len(o.SoCStart) == 0 {
		return 0
	}
	n := len(o.SoCStart)
	consumption := (o.SoCEnd[n-1] - o.SoCStart[n-1]) * capacity
	if consumption > 0 {
		return 0
	}
	return consumption
}

// Vehicle is one fleet member: its static type, current dynamic state, and
// its ordered task timeline.
type Vehicle struct {
	ID             string
	VehicleType    VehicleType
	Status         Status
	SoCStart       float64
	SoC            float64
	CurrentLocation *Location

	Tasks map[int]Task

	Output VehicleOutput

	// ChargingList is a slot for a per-vehicle candidate list. Nothing in
	// this repository sets or reads it; the resolver recomputes candidates
	// on every GetChargingSlots call.
	ChargingList []any
}

// NewVehicle constructs a parked vehicle at the given starting SoC.
func NewVehicle(id string, vt VehicleType, soc float64, loc *Location) *Vehicle {
	return &Vehicle{
		ID:              id,
		VehicleType:     vt,
		Status:          Parking,
		SoCStart:        soc,
		SoC:             soc,
		CurrentLocation: loc,
		Tasks:           map[int]Task{},
	}
}

// AddTask inserts a task keyed by its start time, rejecting a duplicate key.
func (v *Vehicle) AddTask(task Task) error {
	if _, exists := v.Tasks[task.StartTime]; exists {
		return fmt.Errorf("%w: start_time %d already exists for vehicle %s", ErrTimelineConflict, task.StartTime, v.ID)
	}
	v.Tasks[task.StartTime] = task
	return nil
}

// RemoveTask removes a task that must equal (by id) what is stored at its
// start time.
func (v *Vehicle) RemoveTask(task *Task) error {
	if task == nil {
		return nil
	}
	existing, ok := v.Tasks[task.StartTime]
	if !ok || existing.ID != task.ID {
		return fmt.Errorf("%w: task %s is not in the task list of vehicle %s", ErrBadInput, task.ID, v.ID)
	}
	delete(v.Tasks, task.StartTime)
	return nil
}

// GetTask returns the task starting exactly at timeStep, or nil.
func (v *Vehicle) GetTask(timeStep int) *Task {
	if t, ok := v.Tasks[timeStep]; ok {
		return &t
	}
	return nil
}

// GetNextTask returns the first task starting strictly after timeStep, or
// nil if none does.
func (v *Vehicle) GetNextTask(timeStep int) *Task {
	if len(v.Tasks) == 0 {
		return nil
	}
	lastStart := 0
	for start := range v.Tasks {
		if start > lastStart {
			lastStart = start
		}
	}
	if timeStep > lastStart {
		return nil
	}
	for i := timeStep + 1; i <= lastStart; i++ {
		if t, ok := v.Tasks[i]; ok {
			return &t
		}
	}
	return nil
}

func (v *Vehicle) sortedTasks() []Task {
	starts := make([]int, 0, len(v.Tasks))
	for s := range v.Tasks {
		starts = append(starts, s)
	}
	sort.Ints(starts)
	out := make([]Task, len(starts))
	for i, s := range starts {
		out[i] = v.Tasks[s]
	}
	return out
}

// HasValidTaskList reports whether the sorted task sequence satisfies the
// adjacency invariant: each task's end point/time match the next one's
// start. A violation is non-fatal — callers log and proceed best-effort.
func (v *Vehicle) HasValidTaskList() bool {
	tasks := v.sortedTasks()
	var previous *Task
	for i := range tasks {
		task := tasks[i]
		if previous != nil {
			if !(previous.EndPoint == task.StartPoint && previous.EndTime <= task.StartTime) {
				return false
			}
		}
		previous = &tasks[i]
	}
	return true
}

// GetBreaks derives BREAK tasks covering every gap between the window edges
// and consecutive tasks, anchored at the appropriate location. Only DRIVING
// tasks terminate a break.
func (v *Vehicle) GetBreaks(start, end int) []Task {
	tasks := v.sortedTasks()
	if len(tasks) == 0 {
		return nil
	}
	var breaks []Task
	first := tasks[0]
	if first.StartTime > start {
		breaks = append(breaks, NewTask(start, first.StartTime, first.StartPoint, first.StartPoint, Break))
	}
	previous := first
	for _, task := range tasks {
		if task.EndTime < end && task.Kind == Driving {
			if task.StartTime > previous.EndTime {
				breaks = append(breaks, NewTask(previous.EndTime, task.StartTime, previous.EndPoint, task.StartPoint, Break))
			}
			previous = task
		}
	}
	if previous.EndTime < end {
		breaks = append(breaks, NewTask(previous.EndTime, end, previous.EndPoint, previous.EndPoint, Break))
	}
	return breaks
}

func (v *Vehicle) updateActivity(ts time.Time, eventStart, eventTime int, chargingPower, nominalCapacity, distance float64, chargingResult *ChargingResult, interpConsumption, levelOfLoading float64) {
	if !v.VehicleType.EventCSV {
		return
	}
	o := &v.Output
	o.Timestamp = append(o.Timestamp, ts)
	o.EventStart = append(o.EventStart, eventStart)
	o.EventTime = append(o.EventTime, eventTime)
	o.Status = append(o.Status, v.Status)

	socStart := v.SoCStart
	if n := len(o.SoCEnd); n > 0 {
		socStart = o.SoCEnd[n-1]
	}
	o.SoCStart = append(o.SoCStart, socStart)
	o.SoCEnd = append(o.SoCEnd, v.SoC)

	chargingDemand := o.lastChargingDemand(v.VehicleType.BatteryCapacity)
	consumption := o.lastConsumption(v.VehicleType.BatteryCapacity)
	o.Energy = append(o.Energy, chargingDemand+consumption)
	o.StationChargingCapacity = append(o.StationChargingCapacity, nominalCapacity)
	o.AverageChargingPower = append(o.AverageChargingPower, chargingPower)
	o.Distance = append(o.Distance, distance)
	o.LevelOfLoading = append(o.LevelOfLoading, levelOfLoading)

	if chargingResult != nil {
		o.ActualEnergyFromGrid = append(o.ActualEnergyFromGrid, chargingResult.GridEnergy)
		feedIn := chargingDemand * chargingResult.FeedIn
		o.EnergyFromFeedIn = append(o.EnergyFromFeedIn, feedIn)
		o.EnergyFromGrid = append(o.EnergyFromGrid, chargingDemand-feedIn)
		o.EnergyCost = append(o.EnergyCost, chargingResult.Cost)
		o.Emission = append(o.Emission, chargingResult.Emission)
		o.V2GEnergy = append(o.V2GEnergy, chargingResult.V2GEnergy)
	} else {
		o.ActualEnergyFromGrid = append(o.ActualEnergyFromGrid, 0)
		o.EnergyFromFeedIn = append(o.EnergyFromFeedIn, 0)
		o.EnergyFromGrid = append(o.EnergyFromGrid, 0)
		o.EnergyCost = append(o.EnergyCost, 0)
		o.Emission = append(o.Emission, 0)
		o.V2GEnergy = append(o.V2GEnergy, 0)
	}

	if v.CurrentLocation != nil {
		o.EndLocation = append(o.EndLocation, v.CurrentLocation.Name)
	} else {
		o.EndLocation = append(o.EndLocation, "")
	}
	o.Consumption = append(o.Consumption, interpConsumption)
}

// Charge records the outcome of a charging task: SoC must not decrease, and
// the requested delta must be physically reachable within time at power.
func (v *Vehicle) Charge(ts time.Time, start, duration int, power, newSoC, stationCapacity, levelOfLoading float64, result *ChargingResult) error {
	if start < 0 || duration < 0 || power < 0 || newSoC < 0 {
		return fmt.Errorf("%w: charge arguments can't be negative", ErrBadInput)
	}
	if newSoC < v.SoC {
		return fmt.Errorf("%w: SoC of vehicle %s can't be lower after charging", ErrBadInput, v.ID)
	}
	if newSoC-v.SoC > float64(duration)*power/60/v.VehicleType.BatteryCapacity {
		return fmt.Errorf("%w: SoC can't be reached in the given window at the given power", ErrBadInput)
	}
	v.Status = Charging
	v.SoC = newSoC
	v.updateActivity(ts, start, duration, power, stationCapacity, 0, result, 0, levelOfLoading)
	return nil
}

// Drive records the outcome of a driving task: SoC must not increase and
// must stay above zero.
func (v *Vehicle) Drive(ts time.Time, start, duration int, destination *Location, newSoC, distance, levelOfLoading, consumption float64) error {
	if start < 0 || duration < 0 {
		return fmt.Errorf("%w: drive arguments can't be negative", ErrBadInput)
	}
	if destination == nil {
		return fmt.Errorf("%w: destination must be a location", ErrBadInput)
	}
	if newSoC <= 0 {
		return fmt.Errorf("%w: SoC of vehicle %s became non-positive", ErrEmptyBattery, v.ID)
	}
	if newSoC > v.SoC {
		return fmt.Errorf("%w: SoC of vehicle can't be higher after driving", ErrBadInput)
	}
	v.Status = Driving
	v.SoC = newSoC
	v.CurrentLocation = destination
	v.updateActivity(ts, start, duration, 0, 0, distance, nil, consumption, levelOfLoading)
	return nil
}

// Park records a zero-energy parking row.
func (v *Vehicle) Park(ts time.Time, start, duration int) error {
	if start < 0 || duration < 0 {
		return fmt.Errorf("%w: park arguments can't be negative", ErrBadInput)
	}
	v.Status = Parking
	v.updateActivity(ts, start, duration, 0, 0, 0, nil, 0, 0)
	return nil
}

// UsableSoC is how much SoC remains before hitting the vehicle type's
// minimum.
func (v *Vehicle) UsableSoC() float64 {
	return v.SoC - v.VehicleType.SoCMin
}

// ScenarioInfo builds the EmCS vehicle fragment: vehicle type definition
// plus this vehicle's current dynamic state.
func (v *Vehicle) ScenarioInfo() map[string]any {
	return map[string]any{
		"components": map[string]any{
			"vehicle_types": map[string]any{
				v.VehicleType.Name: map[string]any{
					"name":               v.VehicleType.Name,
					"capacity":           v.VehicleType.BatteryCapacity,
					"mileage":            v.VehicleType.BaseConsumption * 100,
					"charging_curve":     v.VehicleType.ChargingCurve,
					"min_charging_power": v.VehicleType.MinChargingPower,
					"v2g":                v.VehicleType.V2G,
					"v2g_power_factor":   v.VehicleType.V2GPowerFactor,
				},
			},
			"vehicles": map[string]any{
				v.ID: map[string]any{
					"desired_soc":  1.0,
					"soc":          v.SoC,
					"vehicle_type": v.VehicleType.Name,
				},
			},
		},
	}
}

// VehicleTasksChronological exposes the (start_time-sorted) task list, used
// by the resolver and stepper.
func (v *Vehicle) VehicleTasksChronological() []Task {
	return v.sortedTasks()
}
