package sim

import (
	"context"
	"fmt"
	"time"

	"fleema/internal/emcs"
	"fleema/internal/model"
	"fleema/internal/resolver"
	"fleema/internal/ridecalc"
)

// Config holds everything the Stepper needs besides the world itself.
type Config struct {
	SimStart         time.Time
	StepSizeMinutes  int
	TimeSteps        int
	AverageSpeed     float64
	ChargingStepSize int // minutes
	DefaultStrategy  string
	AlternativeStrategy string
	AltMinStandingMinutes int
	FeedInCost       float64
	StepsPerHour     float64

	Price    emcs.PriceSampler
	FeedIn   func(t time.Time) float64
	Emission emcs.EmissionSampler
}

// Engine runs the Resolver once over the full planning window, then steps
// the fleet through simulated time, dispatching each vehicle's tasks.
type Engine struct {
	Ride     *ridecalc.RideCalc
	Resolver *resolver.Resolver
	Observer *Observer
	Config   Config

	// OnDispatch, if set, is called after each task is successfully
	// dispatched during stepping — callers use it to stream progress
	// (e.g. to a websocket broadcaster) without coupling the Stepper to
	// any particular transport.
	OnDispatch func(vehicleID string, task model.Task)
}

func New(ride *ridecalc.RideCalc, res *resolver.Resolver, obs *Observer, cfg Config) *Engine {
	return &Engine{Ride: ride, Resolver: res, Observer: obs, Config: cfg}
}

// Run resolves charging slots for the whole window, then replays every
// vehicle's timeline step by step, returning the aggregated result. The
// context is checked once per step so a long run can be cancelled between
// steps; the EmCS subroutine itself runs to completion inline and is never
// interrupted mid-task.
func (e *Engine) Run(ctx context.Context, vehicles []*model.Vehicle, locations []*model.Location) (*Result, error) {
	for _, loc := range locations {
		loc.InitOccupation(e.Config.TimeSteps)
	}

	if err := e.Resolver.DistributeChargingSlots(vehicles, 0, e.Config.TimeSteps); err != nil {
		return nil, fmt.Errorf("resolve charging slots: %w", err)
	}

	result := &Result{
		VehicleOutputs:  map[string]model.VehicleOutput{},
		LocationOutputs: map[string]map[string][]float64{},
	}

	for t := 0; t < e.Config.TimeSteps; t++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		for _, v := range vehicles {
			task := v.GetTask(t)
			if task == nil {
				continue
			}
			if err := e.dispatch(v, *task); err != nil {
				return nil, fmt.Errorf("vehicle %s at t=%d: %w", v.ID, t, err)
			}
			if e.OnDispatch != nil {
				e.OnDispatch(v.ID, *task)
			}
		}
	}

	for _, v := range vehicles {
		result.VehicleOutputs[v.ID] = v.Output
		result.TotalDistanceKm += sum(v.Output.Distance)
		result.TotalConsumption += sum(v.Output.Consumption)
		result.TotalEnergyFromGrid += sum(v.Output.EnergyFromGrid)
		result.TotalEnergyFromFeedIn += sum(v.Output.EnergyFromFeedIn)
		result.TotalCost += sum(v.Output.EnergyCost)
		result.TotalEmission += sum(v.Output.Emission)
		for _, e := range v.Output.Energy {
			if e > 0 {
				result.TotalChargingDemand += e
			}
		}
	}
	denom := result.TotalEnergyFromFeedIn + result.TotalEnergyFromGrid
	if denom > 0 {
		result.SelfSufficiency = result.TotalEnergyFromFeedIn / denom
	}

	for _, loc := range locations {
		if loc.Output != nil {
			result.LocationOutputs[loc.Name] = loc.Output
		}
	}

	result.DeletedRides = e.Observer.Totals()
	return result, nil
}

func sum(xs []float64) float64 {
	total := 0.0
	for _, x := range xs {
		total += x
	}
	return total
}

func (e *Engine) timeAt(step int) time.Time {
	return e.Config.SimStart.Add(time.Duration(step*e.Config.StepSizeMinutes) * time.Minute)
}

func (e *Engine) dispatch(v *model.Vehicle, task model.Task) error {
	duration := task.EndTime - task.StartTime
	ts := e.timeAt(task.StartTime)

	switch task.Kind {
	case model.Driving:
		if !task.IsCalculated() {
			trip, err := e.Ride.CalculateTrip(task.StartPoint.Name, task.EndPoint.Name, v.VehicleType, e.Config.AverageSpeed, ts.Format("2006-01-02 15:04:05"), task.LevelOfLoading)
			if err != nil {
				return err
			}
			task.Consumption = trip.ConsumptionKWh
			task.DeltaSoC = trip.SoCDelta
			task.FloatTime = trip.TripTimeMin
			v.Tasks[task.StartTime] = task
		}
		distance, _, err := e.Ride.GetLocationValues(task.StartPoint.Name, task.EndPoint.Name)
		if err != nil {
			return err
		}
		newSoC := v.SoC + task.DeltaSoC
		return v.Drive(ts, task.StartTime, duration, task.EndPoint, newSoC, distance, task.LevelOfLoading, task.Consumption)

	case model.Charging:
		loc := task.StartPoint
		strategy := emcs.SelectStrategy(duration, e.Config.AltMinStandingMinutes, e.Config.DefaultStrategy, e.Config.AlternativeStrategy)

		preSoC := v.SoC
		steps := emcs.Run(v, loc, ts, duration, e.Config.ChargingStepSize, strategy, e.Config.Price, e.Config.FeedIn)
		postSoC := v.SoC
		v.SoC = preSoC // Charge below re-applies postSoC after validating against preSoC

		characteristic := emcs.GetChargingCharacteristic(steps, e.Config.FeedInCost, e.Config.StepsPerHour, e.Config.Emission)

		stationCapacity := 0.0
		avgPower := 0.0
		for _, ch := range loc.Chargers {
			if p := ch.PowerFor(v.VehicleType.Plugs()); p > stationCapacity {
				stationCapacity = p
			}
		}
		if len(steps) > 0 {
			for _, s := range steps {
				avgPower += s.ChargeKW
			}
			avgPower /= float64(len(steps))
		}

		result := &model.ChargingResult{
			Cost:       characteristic.Cost,
			FeedIn:     characteristic.FeedIn,
			Emission:   characteristic.Emission,
			GridEnergy: characteristic.GridEnergy,
		}
		if v.VehicleType.V2G && characteristic.Cost < 0 {
			result.V2GEnergy = characteristic.GridEnergy
		}

		err := v.Charge(ts, task.StartTime, duration, avgPower, postSoC, stationCapacity, task.LevelOfLoading, result)
		if err != nil {
			return err
		}
		if loc.EventCSV {
			powers := make([]float64, len(steps))
			for i, s := range steps {
				powers[i] = s.ChargeKW
			}
			loc.UpdateOutput(task.StartTime, task.EndTime, e.Config.ChargingStepSize, e.Config.TimeSteps, powers)
		}
		return nil

	case model.Parking, model.Break:
		return v.Park(ts, task.StartTime, duration)
	}
	return nil
}
