package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"fleema/internal/app"
	"fleema/internal/model"
	"fleema/internal/sim"
)

func main() {
	if len(os.Args) < 3 {
		usage()
		os.Exit(2)
	}

	sub := os.Args[1]
	fs := flag.NewFlagSet("fleema "+sub, flag.ExitOnError)
	fs.Usage = usage
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() < 1 {
		usage()
		os.Exit(2)
	}
	cfgPath := fs.Arg(0)

	var err error
	switch sub {
	case "run":
		err = runScenario(cfgPath)
	case "rank":
		err = rankScenario(cfgPath)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage: fleema run <scenario-config.yaml>")
	fmt.Println("       fleema rank <scenario-config.yaml>")
	fmt.Println("")
	fmt.Println("run  simulates the fleet over the scenario and writes the vehicle/")
	fmt.Println("     location CSVs named in its outputs section")
	fmt.Println("rank resolves every vehicle's charging candidates and prints them")
	fmt.Println("     sorted by score, without distributing or executing any of them")
}

func runScenario(cfgPath string) error {
	logger := log.New(os.Stderr, "", log.LstdFlags)

	cfg, result, err := app.Run(context.Background(), cfgPath, logger, nil)
	if err != nil {
		if errors.Is(err, model.ErrInfeasible) {
			return fmt.Errorf("scenario infeasible: %w", err)
		}
		return err
	}

	if cfg.Outputs.VehicleCSV != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Outputs.VehicleCSV), 0o755); err != nil {
			return err
		}
		for id, out := range result.VehicleOutputs {
			path := fmt.Sprintf("%s.%s.csv", cfg.Outputs.VehicleCSV, id)
			if err := sim.WriteVehicleCSV(path, id, out); err != nil {
				return fmt.Errorf("write vehicle csv for %s: %w", id, err)
			}
		}
	}
	if cfg.Outputs.LocationCSV != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Outputs.LocationCSV), 0o755); err != nil {
			return err
		}
		for name, series := range result.LocationOutputs {
			path := fmt.Sprintf("%s.%s.csv", cfg.Outputs.LocationCSV, name)
			if err := sim.WriteLocationCSV(path, series); err != nil {
				return fmt.Errorf("write location csv for %s: %w", name, err)
			}
		}
	}

	fmt.Printf("simulated %d vehicles\n", len(result.VehicleOutputs))
	fmt.Printf("total distance=%.1fkm consumption=%.2fkWh cost=%.2f emission=%.2f self_sufficiency=%.2f\n",
		result.TotalDistanceKm, -result.TotalConsumption, result.TotalCost, result.TotalEmission, result.SelfSufficiency)
	for k, v := range result.DeletedRides {
		fmt.Printf("%s=%.0f\n", k, v)
	}
	return nil
}

func rankScenario(cfgPath string) error {
	logger := log.New(os.Stderr, "", log.LstdFlags)

	_, ranked, err := app.Rank(cfgPath, logger)
	if err != nil {
		return err
	}

	fmt.Printf("%-12s %-20s %8s %8s %8s %8s\n", "vehicle", "location", "start", "score", "delta_soc", "charge")
	for _, c := range ranked {
		fmt.Printf("%-12s %-20s %8d %8.3f %8.3f %8.3f\n", c.VehicleID, c.Location, c.StartTime, c.Score, c.DeltaSoC, c.Charge)
	}
	return nil
}
