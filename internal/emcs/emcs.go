// Package emcs assembles scenario input for, and summarizes the result of,
// the embedded charging subroutine (EmCS) — grounded on the original
// project's spice_ev_interface module. Since the physical charging
// controller itself is explicitly out of scope, this package supplies a
// small, self-contained charging-physics stand-in (the greedy/balanced
// strategies below) rather than mocking the subroutine away.
package emcs

import (
	"fmt"
	"time"

	"fleema/internal/model"
)

// CostOptions describes where to sample the price series.
type CostOptions struct {
	StartTime      time.Time
	StepDuration   time.Duration
	Column         string
}

// EmissionOptions describes where to sample the emission series, if any.
type EmissionOptions struct {
	StartTime    time.Time
	StepDuration time.Duration
	Column       string
}

// PriceSampler and EmissionSampler look up the piecewise-constant price /
// emission value at an absolute timestamp.
type PriceSampler func(t time.Time) float64
type EmissionSampler func(t time.Time) (float64, bool)

// SelectStrategy picks "alternative" when the standing time exceeds
// altMinStandingMin, else "default". Mirrors the original's selection
// between "balanced" (longer stays, spreads load) and "greedy" (short
// stays, charge as fast as possible).
func SelectStrategy(standingMinutes, altMinStandingMin int, defaultStrategy, alternativeStrategy string) string {
	if standingMinutes > altMinStandingMin {
		return alternativeStrategy
	}
	return defaultStrategy
}

// StepResult is one timestep of a simulated charging run.
type StepResult struct {
	Timestamp time.Time
	ChargeKW  float64
	FeedInKW  float64
	PriceKWh  float64
}

// Run simulates a charging window of length windowMinutes (in whole
// charging_step_size-sized steps) for the mock vehicle at chargeStartSoC,
// returning nil if the window is shorter than chargingStepSize (OutOfWindow,
// handled locally rather than raised).
func Run(vehicle *model.Vehicle, location *model.Location, start time.Time, windowMinutes, chargingStepSize int, strategy string, price PriceSampler, feedIn func(t time.Time) float64) []StepResult {
	if windowMinutes < chargingStepSize {
		return nil
	}
	steps := windowMinutes / chargingStepSize
	if steps == 0 {
		return nil
	}

	soc := vehicle.SoC
	capacity := vehicle.VehicleType.BatteryCapacity
	gridLimit := location.GridPowerKW
	stepHours := float64(chargingStepSize) / 60.0

	results := make([]StepResult, steps)

	switch strategy {
	case "balanced":
		targetSoC := 1.0
		energyNeeded := (targetSoC - soc) * capacity
		if energyNeeded < 0 {
			energyNeeded = 0
		}
		perStepEnergy := energyNeeded / float64(steps)
		for i := 0; i < steps; i++ {
			ts := start.Add(time.Duration(i*chargingStepSize) * time.Minute)
			curvePower := vehicle.VehicleType.MaxPowerAt(soc)
			power := perStepEnergy / stepHours
			if power > curvePower {
				power = curvePower
			}
			if gridLimit > 0 && power > gridLimit {
				power = gridLimit
			}
			energy := power * stepHours
			soc += energy / capacity
			if soc > 1 {
				soc = 1
			}
			f := 0.0
			if feedIn != nil {
				f = feedIn(ts)
			}
			p := 0.0
			if price != nil {
				p = price(ts)
			}
			results[i] = StepResult{Timestamp: ts, ChargeKW: power, FeedInKW: f, PriceKWh: p}
		}
	default: // "greedy"
		for i := 0; i < steps; i++ {
			ts := start.Add(time.Duration(i*chargingStepSize) * time.Minute)
			curvePower := vehicle.VehicleType.MaxPowerAt(soc)
			power := curvePower
			if gridLimit > 0 && power > gridLimit {
				power = gridLimit
			}
			if soc >= 1 {
				power = 0
			}
			energy := power * stepHours
			soc += energy / capacity
			if soc > 1 {
				soc = 1
			}
			f := 0.0
			if feedIn != nil {
				f = feedIn(ts)
			}
			p := 0.0
			if price != nil {
				p = price(ts)
			}
			results[i] = StepResult{Timestamp: ts, ChargeKW: power, FeedInKW: f, PriceKWh: p}
		}
	}
	vehicle.SoC = soc
	return results
}

// Characteristic is the summarized outcome of a charging run: total cost
// (not divided by the charged energy), the renewable-fed share of charged
// energy, total emission, and total grid energy.
type Characteristic struct {
	Cost       float64
	FeedIn     float64
	Emission   float64
	GridEnergy float64
}

// GetChargingCharacteristic summarizes a per-step charging trace exactly per
// the original's get_charging_characteristic: per-step cost blends grid and
// feed-in price, emission (if configured) is sampled at the step timestamp
// and scaled by non-renewable charge.
func GetChargingCharacteristic(steps []StepResult, feedInCost float64, stepsPerHour float64, emission EmissionSampler) Characteristic {
	var totalCost, totalCharge, totalFromFeedIn, totalEmission float64
	for _, s := range steps {
		charge := s.ChargeKW
		feed := s.FeedInKW
		totalCharge += charge
		fromFeedIn := charge
		if feed < charge {
			fromFeedIn = feed
		}
		totalFromFeedIn += fromFeedIn

		gridPortion := charge - feed
		if gridPortion < 0 {
			gridPortion = 0
		}
		totalCost += (gridPortion*s.PriceKWh + fromFeedIn*feedInCost) / stepsPerHour

		if emission != nil {
			if e, ok := emission(s.Timestamp); ok {
				totalEmission += gridPortion * e / stepsPerHour
			}
		}
	}
	if totalCharge == 0 {
		return Characteristic{}
	}
	feedInShare := totalFromFeedIn / totalCharge
	if feedInShare > 1 {
		feedInShare = 1
	}
	return Characteristic{
		Cost:       round4(totalCost),
		FeedIn:     round4(feedInShare),
		Emission:   round4(totalEmission),
		GridEnergy: totalCharge / stepsPerHour,
	}
}

func round4(x float64) float64 {
	const p = 10000.0
	if x >= 0 {
		return float64(int64(x*p+0.5)) / p
	}
	return float64(int64(x*p-0.5)) / p
}

// ErrWindowTooShort reports an EmCS call whose window is below the
// configured charging_step_size.
var ErrWindowTooShort = fmt.Errorf("%w", model.ErrOutOfWindow)
