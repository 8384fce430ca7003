// Package app wires config, data loading, and the sim engine together into
// one runnable scenario — the shared orchestration behind both cmd/cli and
// cmd/api, grounded on the shape of the teacher's cmd/cli "backtest"
// command (load config, load data, build engine, run, write outputs).
package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"fleema/internal/config"
	"fleema/internal/data"
	"fleema/internal/emcs"
	"fleema/internal/evaluator"
	"fleema/internal/model"
	"fleema/internal/resolver"
	"fleema/internal/ridecalc"
	"fleema/internal/sim"
)

// EventSink receives one notification per committed task during stepping;
// cmd/api wires this to a live.Broadcaster, cmd/cli leaves it nil.
type EventSink func(vehicleID string, task model.Task)

// world holds everything built out of a scenario config before either
// running the full Stepper or just ranking candidates.
type world struct {
	cfg       *config.Config
	ride      *ridecalc.RideCalc
	eval      *evaluator.Evaluator
	resolver  *resolver.Resolver
	obs       *sim.Observer
	timeSteps int
	simStart  time.Time
	vehicles  []*model.Vehicle
	locations []*model.Location
}

// build loads every input a scenario config points to and assembles the
// RideCalc/Evaluator/Resolver stack shared by Run and Rank.
func build(cfgPath string, logger *log.Logger) (*world, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	simStart, err := parseDate(cfg.Basic.StartDate)
	if err != nil {
		return nil, fmt.Errorf("%w: bad basic.start_date %q", model.ErrBadInput, cfg.Basic.StartDate)
	}
	simEnd, err := parseDate(cfg.Basic.EndDate)
	if err != nil {
		return nil, fmt.Errorf("%w: bad basic.end_date %q", model.ErrBadInput, cfg.Basic.EndDate)
	}
	timeSteps := int(simEnd.Sub(simStart).Minutes())
	if timeSteps <= 0 {
		return nil, fmt.Errorf("%w: basic.end_date must be after start_date", model.ErrBadInput)
	}

	vehicleTypes, err := data.LoadVehicleTypes(cfg.Files.VehicleTypesJSON)
	if err != nil {
		return nil, fmt.Errorf("load vehicle types: %w", err)
	}
	locations, err := data.LoadChargingPoints(cfg.Files.ChargingPointsJSON)
	if err != nil {
		return nil, fmt.Errorf("load charging points: %w", err)
	}
	vehicles, err := data.LoadSchedule(cfg.Files.ScheduleCSV, vehicleTypes, locations, simStart)
	if err != nil {
		return nil, fmt.Errorf("load schedule: %w", err)
	}

	consumption, err := data.LoadConsumptionTable(cfg.Files.ConsumptionCSV)
	if err != nil {
		return nil, fmt.Errorf("load consumption table: %w", err)
	}
	distances, err := data.LoadMatrixTable(cfg.Files.DistanceCSV)
	if err != nil {
		return nil, fmt.Errorf("load distance table: %w", err)
	}
	inclines, err := data.LoadMatrixTable(cfg.Files.InclineCSV)
	if err != nil {
		return nil, fmt.Errorf("load incline table: %w", err)
	}
	temperature, err := data.LoadTemperatureTable(cfg.Files.TemperatureCSV)
	if err != nil {
		return nil, fmt.Errorf("load temperature table: %w", err)
	}

	warn := func(format string, args ...any) { logger.Printf("warn: "+format, args...) }
	ride, err := ridecalc.New(consumption, distances, inclines, temperature, "", ridecalc.Defaults{
		LevelOfLoading: cfg.Defaults.LevelOfLoading,
		Incline:        cfg.Defaults.Incline,
		Temperature:    cfg.Defaults.Temperature,
		Speed:          cfg.Charging.AverageSpeed,
	}, warn)
	if err != nil {
		return nil, fmt.Errorf("build ride calculator: %w", err)
	}

	var price emcs.PriceSampler = func(time.Time) float64 { return 0 }
	feedIn := func(time.Time) float64 { return 0 }
	var emission emcs.EmissionSampler
	maxCost, minCost := 1.0, 0.0

	if cfg.CostOptions.CSVPath != "" {
		costStart, _ := time.Parse("2006-01-02 15:04:05", cfg.CostOptions.StartTime)
		series, err := data.LoadTimeSeries(cfg.CostOptions.CSVPath, cfg.CostOptions.Column, costStart, time.Duration(cfg.CostOptions.StepDuration)*time.Second)
		if err != nil {
			return nil, fmt.Errorf("load cost series: %w", err)
		}
		price = series.PriceSampler()
		maxCost, minCost = bounds(series.Values)
	}
	if cfg.EmissionOptions.CSVPath != "" {
		emStart, _ := time.Parse("2006-01-02 15:04:05", cfg.EmissionOptions.StartTime)
		series, err := data.LoadTimeSeries(cfg.EmissionOptions.CSVPath, cfg.EmissionOptions.Column, emStart, time.Duration(cfg.EmissionOptions.StepDuration)*time.Second)
		if err != nil {
			return nil, fmt.Errorf("load emission series: %w", err)
		}
		emission = series.EmissionSampler()
	}
	if cfg.FeedInOptions.CSVPath != "" {
		feedStart, _ := time.Parse("2006-01-02 15:04:05", cfg.FeedInOptions.StartTime)
		series, err := data.LoadTimeSeries(cfg.FeedInOptions.CSVPath, cfg.FeedInOptions.Column, feedStart, time.Duration(cfg.FeedInOptions.StepDuration)*time.Second)
		if err != nil {
			return nil, fmt.Errorf("load feed-in series: %w", err)
		}
		feedIn = series.FeedInSampler()
	}

	eval := &evaluator.Evaluator{
		Ride: ride,
		Weights: evaluator.Weights{
			Time:       cfg.Weights.TimeFactor,
			Energy:     cfg.Weights.EnergyFactor,
			Cost:       cfg.Weights.CostFactor,
			Renewables: cfg.Weights.LocalRenewablesFactor,
			SoC:        cfg.Weights.SoCFactor,
		},
		MaxCost:                   maxCost,
		MinCost:                   minCost,
		FeedInCost:                cfg.CostOptions.FeedInPrice,
		AverageSpeed:              cfg.Charging.AverageSpeed,
		ChargingStepSize:          cfg.Charging.ChargingStepSize,
		AltStrategyMinStandingMin: cfg.Charging.AlternativeStrategyMinStandingTime,
		DefaultStrategy:           cfg.Charging.ChargingStrategy,
		AlternativeStrategy:       cfg.Charging.AlternativeStrategy,
		StepsPerHour:              60,
		SimStart:                  simStart,
		StepSize:                  time.Minute,
		Price:                     price,
		FeedIn:                    feedIn,
		Emission:                  emission,
	}

	chargingLocations := make([]*model.Location, 0, len(locations))
	for _, loc := range locations {
		if loc.NumChargers() > 0 {
			chargingLocations = append(chargingLocations, loc)
		}
	}

	obs := sim.NewObserver(logger)
	res := &resolver.Resolver{
		Eval:        eval,
		Registry:    resolver.Registry{ChargingLocations: chargingLocations},
		Observer:    obs,
		DeleteRides: cfg.SimParams.DeleteRides,
		SoCMin:      cfg.Charging.SoCMin,
		EndOfDaySoC: cfg.Charging.EndOfDaySoC,
	}

	vehicleList := make([]*model.Vehicle, 0, len(vehicles))
	for _, v := range vehicles {
		vehicleList = append(vehicleList, v)
	}
	locationList := make([]*model.Location, 0, len(locations))
	for _, loc := range locations {
		locationList = append(locationList, loc)
	}

	return &world{
		cfg:       cfg,
		ride:      ride,
		eval:      eval,
		resolver:  res,
		obs:       obs,
		timeSteps: timeSteps,
		simStart:  simStart,
		vehicles:  vehicleList,
		locations: locationList,
	}, nil
}

// Run loads every input the config points to, builds the Evaluator/
// Resolver/Engine stack, executes the simulation, and returns the result
// alongside the loaded config (callers use it to know where to write
// outputs). sink, if non-nil, is invoked once per dispatched task so a
// caller can stream progress while the run is still in flight.
func Run(ctx context.Context, cfgPath string, logger *log.Logger, sink EventSink) (*config.Config, *sim.Result, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	w, err := build(cfgPath, logger)
	if err != nil {
		return nil, nil, err
	}

	engine := sim.New(w.ride, w.resolver, w.obs, sim.Config{
		SimStart:              w.simStart,
		StepSizeMinutes:       1,
		TimeSteps:             w.timeSteps,
		AverageSpeed:          w.cfg.Charging.AverageSpeed,
		ChargingStepSize:      w.cfg.Charging.ChargingStepSize,
		DefaultStrategy:       w.cfg.Charging.ChargingStrategy,
		AlternativeStrategy:   w.cfg.Charging.AlternativeStrategy,
		AltMinStandingMinutes: w.cfg.Charging.AlternativeStrategyMinStandingTime,
		FeedInCost:            w.cfg.CostOptions.FeedInPrice,
		StepsPerHour:          60,
		Price:                 w.eval.Price,
		FeedIn:                w.eval.FeedIn,
		Emission:              w.eval.Emission,
	})
	if sink != nil {
		engine.OnDispatch = func(vehicleID string, task model.Task) { sink(vehicleID, task) }
	}

	result, err := engine.Run(ctx, w.vehicles, w.locations)
	if err != nil {
		return w.cfg, nil, fmt.Errorf("run simulation: %w", err)
	}
	return w.cfg, result, nil
}

// RankedCandidate is one vehicle's best-scoring charging opportunity for a
// single break in its schedule, as surfaced by the Resolver without
// committing it or running the full Stepper.
type RankedCandidate struct {
	VehicleID string
	Location  string
	StartTime int
	Score     float64
	DeltaSoC  float64
	Charge    float64
}

// Rank resolves every vehicle's candidate charging slots over the
// scenario's full window and returns them sorted by score, without
// distributing or executing any of them — a cheap "what would the
// Resolver pick" preview, mirroring the teacher's rank subcommand.
func Rank(cfgPath string, logger *log.Logger) (*config.Config, []RankedCandidate, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	w, err := build(cfgPath, logger)
	if err != nil {
		return nil, nil, err
	}

	var out []RankedCandidate
	for _, v := range w.vehicles {
		for _, cand := range w.resolver.GetChargingSlots(v, 0, w.timeSteps) {
			out = append(out, RankedCandidate{
				VehicleID: v.ID,
				Location:  cand.ChargeEvent.StartPoint.Name,
				StartTime: cand.Timestep,
				Score:     cand.Score,
				DeltaSoC:  cand.DeltaSoC,
				Charge:    cand.Charge,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return w.cfg, out, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", s)
}

func bounds(values []float64) (max, min float64) {
	if len(values) == 0 {
		return 1, 0
	}
	max, min = values[0], values[0]
	for _, v := range values {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return max, min
}
