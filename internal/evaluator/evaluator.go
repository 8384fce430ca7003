// Package evaluator scores one (vehicle, charging-location, time-window)
// opportunity, grounded on the original project's evaluate_charging_location
// method.
package evaluator

import (
	"math"
	"time"

	"fleema/internal/emcs"
	"fleema/internal/model"
	"fleema/internal/ridecalc"
)

// Weights are the configurable multi-criteria scoring weights.
type Weights struct {
	Time          float64
	Energy        float64
	Cost          float64
	Renewables    float64
	SoC           float64
}

// Candidate is a fully specified evaluation result: either "empty" (no
// viable charging opportunity in this window) or populated with a CHARGING
// task and optional bracketing DRIVING tasks.
type Candidate struct {
	Timestep    int
	Score       float64
	Consumption float64 // signed SoC delta from driving (negative)
	Charge      float64 // signed SoC delta from charging
	DeltaSoC    float64

	ChargeEvent model.Task
	TaskTo      *model.Task
	TaskFrom    *model.Task

	Empty bool
}

func empty(start int) Candidate {
	return Candidate{Timestep: start, Empty: true}
}

// Evaluator composes RideCalc trips, an EmCS charging run and cost/
// renewables time-series into a composite score.
type Evaluator struct {
	Ride     *ridecalc.RideCalc
	Weights  Weights
	MaxCost  float64
	MinCost  float64
	FeedInCost float64

	AverageSpeed              float64
	ChargingStepSize          int // minutes
	AltStrategyMinStandingMin int
	DefaultStrategy           string
	AlternativeStrategy       string
	StepsPerHour              float64

	SimStart time.Time
	StepSize time.Duration

	Price    emcs.PriceSampler
	FeedIn   func(t time.Time) float64
	Emission emcs.EmissionSampler
}

func (e *Evaluator) timeAt(step int) time.Time {
	return e.SimStart.Add(time.Duration(step) * e.StepSize)
}

// Evaluate implements spec.md §4.5's algorithm end to end.
func (e *Evaluator) Evaluate(vt model.VehicleType, chargerLoc, currentLoc, nextLoc *model.Location, start, end int, currentSoC float64) (Candidate, error) {
	tripTo, err := e.Ride.CalculateTrip(currentLoc.Name, chargerLoc.Name, vt, e.AverageSpeed, e.timeAt(start).Format("2006-01-02 15:04:05"), 0)
	if err != nil {
		return Candidate{}, err
	}
	tripFrom, err := e.Ride.CalculateTrip(chargerLoc.Name, nextLoc.Name, vt, e.AverageSpeed, e.timeAt(start).Format("2006-01-02 15:04:05"), 0)
	if err != nil {
		return Candidate{}, err
	}

	drivingTime := int(math.Ceil(tripTo.TripTimeMin)) + int(math.Ceil(tripFrom.TripTimeMin))
	driveSoC := tripTo.SoCDelta + tripFrom.SoCDelta

	timeWindow := end - start
	timeScore := 1 - float64(drivingTime)/float64(timeWindow)
	if timeScore <= 0 {
		return empty(start), nil
	}

	chargingStart := start + int(math.Round(tripTo.TripTimeMin))
	chargingWindow := timeWindow - drivingTime
	if chargingWindow <= 0 {
		return empty(start), nil
	}
	chargeStartSoC := currentSoC + tripTo.SoCDelta

	mock := model.NewVehicle("__eval_mock", vt, chargeStartSoC, chargerLoc)

	standingMinutes := chargingWindow // 1 step == 1 minute; internal/app wires both the Evaluator and the Stepper with one-minute steps
	strategy := emcs.SelectStrategy(standingMinutes, e.AltStrategyMinStandingMin, e.DefaultStrategy, e.AlternativeStrategy)

	steps := emcs.Run(mock, chargerLoc, e.timeAt(chargingStart), chargingWindow, e.ChargingStepSize, strategy, e.Price, e.FeedIn)
	if steps == nil {
		return empty(start), nil
	}

	chargedSoC := mock.SoC - chargeStartSoC
	if math.IsNaN(chargedSoC) || (chargedSoC <= 0 && !vt.V2G) {
		return empty(start), nil
	}
	chargeScore := math.Max(1-(-driveSoC)/chargedSoC, 0)
	if chargeScore == 0 && !vt.V2G {
		return empty(start), nil
	}

	characteristic := emcs.GetChargingCharacteristic(steps, e.FeedInCost, e.StepsPerHour, e.Emission)

	maxCostScore := e.MaxCost - e.MinCost
	chargedEnergy := chargedSoC * vt.BatteryCapacity

	var costScore float64
	switch {
	case chargedEnergy > 0:
		costScore = (e.MaxCost - characteristic.Cost/chargedEnergy) / maxCostScore
	case vt.V2G && characteristic.Cost < 0:
		if chargedEnergy == 0 {
			costScore = 2
		} else {
			costScore = (characteristic.Cost / chargedEnergy) / maxCostScore
		}
	default:
		costScore = 0
	}

	renewablesScore := characteristic.FeedIn
	socScore := 0.0
	if currentSoC < 0.8 {
		socScore = 0.1
	}

	score := timeScore*e.Weights.Time +
		chargeScore*e.Weights.Energy +
		costScore*e.Weights.Cost +
		renewablesScore*e.Weights.Renewables +
		socScore*e.Weights.SoC

	if score <= 0 {
		return empty(start), nil
	}

	chargeEvent := model.NewTask(chargingStart, chargingStart+chargingWindow, chargerLoc, chargerLoc, model.Charging)
	chargeEvent.DeltaSoC = chargedSoC

	candidate := Candidate{
		Timestep:    start,
		Score:       score,
		Consumption: driveSoC,
		Charge:      chargedSoC,
		DeltaSoC:    chargedSoC + driveSoC,
		ChargeEvent: chargeEvent,
	}

	if currentLoc != chargerLoc {
		taskTo := model.NewTask(start, chargingStart, currentLoc, chargerLoc, model.Driving)
		taskTo.FloatTime = tripTo.TripTimeMin
		taskTo.DeltaSoC = tripTo.SoCDelta
		taskTo.Consumption = tripTo.ConsumptionKWh
		candidate.TaskTo = &taskTo
	}
	if chargerLoc != nextLoc {
		taskFrom := model.NewTask(chargingStart+chargingWindow, end, chargerLoc, nextLoc, model.Driving)
		taskFrom.FloatTime = tripFrom.TripTimeMin
		taskFrom.DeltaSoC = tripFrom.SoCDelta
		taskFrom.Consumption = tripFrom.ConsumptionKWh
		candidate.TaskFrom = &taskFrom
	}

	return candidate, nil
}
