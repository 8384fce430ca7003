package model

import "errors"

// Error kinds surfaced by the simulation core. These are sentinels, not
// custom types, so callers compare with errors.Is after fmt.Errorf("%w", ...)
// wrapping.
var (
	// ErrBadInput covers invalid matrix indices, non-positive average speed
	// at RideCalc construction, negative distance, and malformed timestamps.
	ErrBadInput = errors.New("fleema: bad input")

	// ErrTimelineConflict is returned when a task is added at a start_time
	// a vehicle already has a task for.
	ErrTimelineConflict = errors.New("fleema: timeline conflict")

	// ErrInvalidTimeline marks a task chain that fails the adjacency
	// invariant; callers log and proceed best-effort rather than fail.
	ErrInvalidTimeline = errors.New("fleema: invalid timeline")

	// ErrEmptyBattery is returned when a drive would take a vehicle's SoC
	// to zero or below.
	ErrEmptyBattery = errors.New("fleema: empty battery")

	// ErrInfeasible is returned when the resolver cannot satisfy soc_min
	// with the available candidates and delete_rides is disabled.
	ErrInfeasible = errors.New("fleema: infeasible charging schedule")

	// ErrOutOfWindow marks an EmCS window shorter than charging_step_size.
	ErrOutOfWindow = errors.New("fleema: window too short for charging")

	// ErrLookupMiss marks a configured temperature/cost column missing from
	// its source table.
	ErrLookupMiss = errors.New("fleema: lookup column missing")
)
