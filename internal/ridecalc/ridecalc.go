// Package ridecalc turns route geometry and ambient conditions into energy
// consumption, grounded on the original project's RideCalc component.
package ridecalc

import (
	"fmt"
	"sort"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"fleema/internal/model"
)

// Defaults are the per-axis fallback values substituted (with a warning)
// for invalid consumption-calculation inputs.
type Defaults struct {
	LevelOfLoading float64
	Incline        float64
	Temperature    float64
	Speed          float64
}

// Trip is the result of calculating one drive: energy spent, the resulting
// SoC delta, and how long the drive takes.
type Trip struct {
	ConsumptionKWh float64
	SoCDelta       float64
	TripTimeMin    float64
}

// Warner receives non-fatal warnings raised during trip/consumption
// calculation (bad speed, bad level_of_loading, bad temperature csv, ...).
// Callers typically wire this to the ambient logger.
type Warner func(format string, args ...any)

// RideCalc precomputes the consumption table's per-axis unique grids and
// answers trip/consumption queries against it.
type RideCalc struct {
	consumption       dataframe.DataFrame
	distances         dataframe.DataFrame
	inclines          dataframe.DataFrame
	temperature       dataframe.DataFrame
	temperatureOption string
	defaults          Defaults
	warn              Warner

	// uniques[i] holds the sorted unique values of consumption column i,
	// for i in (level_of_loading, incline, mean_speed, t_amb).
	uniques [][]float64
}

const (
	axisLoL = iota
	axisIncline
	axisSpeed
	axisTemp
)

var consumptionAxisColumns = []string{"level_of_loading", "incline", "mean_speed", "t_amb"}

// New constructs a RideCalc. defaults.Speed must be strictly positive.
func New(consumption, distances, inclines, temperature dataframe.DataFrame, temperatureOption string, defaults Defaults, warn Warner) (*RideCalc, error) {
	if defaults.Speed <= 0 {
		return nil, fmt.Errorf("%w: default speed must be > 0", model.ErrBadInput)
	}
	if warn == nil {
		warn = func(string, ...any) {}
	}
	rc := &RideCalc{
		consumption:       consumption,
		distances:         distances,
		inclines:          inclines,
		temperature:       temperature,
		temperatureOption: temperatureOption,
		defaults:          defaults,
		warn:              warn,
	}
	rc.uniques = make([][]float64, len(consumptionAxisColumns))
	for i, col := range consumptionAxisColumns {
		rc.uniques[i] = sortedUnique(consumption.Col(col).Float())
	}
	return rc, nil
}

func sortedUnique(values []float64) []float64 {
	seen := map[float64]struct{}{}
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}

// CalculateTrip computes the energy, SoC delta and duration of one drive.
func (rc *RideCalc) CalculateTrip(origin, destination string, vt model.VehicleType, speed float64, departureTime string, levelOfLoading float64) (Trip, error) {
	if departureTime == "" {
		departureTime = "2022-01-01 01:01:00"
	}
	temperature := rc.GetTemperature(departureTime)
	distance, incline, err := rc.GetLocationValues(origin, destination)
	if err != nil {
		return Trip{}, err
	}
	if speed <= 0 {
		rc.warn("bad option: speed is <= 0, defaulting to %v", rc.defaults.Speed)
		speed = rc.defaults.Speed
	}
	if distance == 0 {
		return Trip{}, nil
	}
	tripTime := distance / speed * 60
	if tripTime < 1 {
		tripTime = 1
	}
	consumption, socDelta, err := rc.CalculateConsumption(vt, incline, temperature, speed, levelOfLoading, distance)
	if err != nil {
		return Trip{}, err
	}
	return Trip{ConsumptionKWh: consumption, SoCDelta: socDelta, TripTimeMin: tripTime}, nil
}

// CalculateConsumption returns the energy (kWh) and SoC delta (signed,
// negative = drain) of driving distance km under the given conditions.
func (rc *RideCalc) CalculateConsumption(vt model.VehicleType, incline, temperature, speed, levelOfLoading, distance float64) (float64, float64, error) {
	if distance < 0 {
		return 0, 0, fmt.Errorf("%w: distance is smaller than zero", model.ErrBadInput)
	}
	factor, err := rc.GetConsumption(vt.Name, levelOfLoading, incline, temperature, speed)
	if err != nil {
		return 0, 0, err
	}
	consumption := factor * distance
	return consumption, consumption / vt.BatteryCapacity, nil
}

// GetConsumption returns the consumption factor (kWh/km) for the vehicle
// type under the given conditions, via n-dimensional linear interpolation.
func (rc *RideCalc) GetConsumption(vehicleTypeName string, levelOfLoading, incline, temperature, speed float64) (float64, error) {
	levelOfLoading, incline, temperature, speed = rc.validateConsumptionInputsAndGetDefaults(levelOfLoading, incline, temperature, speed)

	filtered := rc.consumption.Filter(dataframe.F{Colname: "vehicle_type", Comparator: series.Eq, Comparando: vehicleTypeName})
	n := filtered.Nrow()
	lol := filtered.Col("level_of_loading").Float()
	inc := filtered.Col("incline").Float()
	spd := filtered.Col("mean_speed").Float()
	tmp := filtered.Col("t_amb").Float()
	cons := filtered.Col("consumption").Float()

	table := make([][5]float64, n)
	for i := 0; i < n; i++ {
		table[i] = [5]float64{lol[i], inc[i], spd[i], tmp[i], cons[i]}
	}

	value, err := rc.ndInterp([4]float64{levelOfLoading, incline, speed, temperature}, table)
	if err != nil {
		return 0, err
	}
	return value * -1, nil
}

// ndInterp implements the exact corner-filter + axis-collapse algorithm:
// bracket each axis to its nearest grid neighbors, keep only table rows
// landing on those corners, then collapse one axis at a time by linearly
// interpolating pairs of rows differing only in that axis.
func (rc *RideCalc) ndInterp(input [4]float64, table [][5]float64) (float64, error) {
	var lower, upper [4]float64
	for i, v := range input {
		lower[i], upper[i] = rc.getNearestUniques(v, i)
	}

	var points [][5]float64
rowLoop:
	for _, row := range table {
		for i := 0; i < 4; i++ {
			if row[i] != lower[i] && row[i] != upper[i] {
				continue rowLoop
			}
		}
		points = append(points, row)
	}
	if len(points) == 0 {
		return 0, fmt.Errorf("%w: no consumption table rows match the requested corners", model.ErrLookupMiss)
	}

	for axis := 0; axis < 4; axis++ {
		x := input[axis]
		var newPoints [][5]float64
		used := make([]bool, len(points))
		for j := range points {
			if used[j] {
				continue
			}
			matched := false
			for k := j + 1; k < len(points); k++ {
				if used[k] {
					continue
				}
				if rowsDifferOnlyAt(points[j], points[k], axis) {
					x1, y1 := points[j][axis], points[j][4]
					x2, y2 := points[k][axis], points[k][4]
					p := points[j]
					if x2 != x1 {
						m := (y2 - y1) / (x2 - x1)
						n := y1 - m*x1
						p[4] = m*x + n
					}
					p[axis] = x
					newPoints = append(newPoints, p)
					used[j] = true
					used[k] = true
					matched = true
					break
				}
			}
			if !matched {
				newPoints = append(newPoints, points[j])
				used[j] = true
			}
		}
		points = newPoints
	}
	return points[0][4], nil
}

func rowsDifferOnlyAt(a, b [5]float64, axis int) bool {
	for k := 0; k < 4; k++ {
		if a[k] != b[k] && k != axis {
			return false
		}
	}
	return true
}

// getNearestUniques returns the nearest lower/upper grid bounds for value on
// the given consumption-table axis (may be the same number twice).
func (rc *RideCalc) getNearestUniques(value float64, axis int) (float64, float64) {
	grid := rc.uniques[axis]
	upper := grid[len(grid)-1]
	lower := grid[0]

	for _, u := range grid {
		if u == value {
			return value, value
		}
	}
	if value > upper {
		return upper, upper
	}
	for i, bound := range grid {
		if bound > value {
			if i > 0 {
				lower = grid[i-1]
			} else {
				lower = bound
			}
			upper = bound
			break
		}
	}
	return lower, upper
}

// GetLocationValues looks up the directed distance and incline between two
// locations.
func (rc *RideCalc) GetLocationValues(origin, destination string) (float64, float64, error) {
	distance, err := matrixAt(rc.distances, origin, destination)
	if err != nil {
		return 0, 0, err
	}
	incline, err := matrixAt(rc.inclines, origin, destination)
	if err != nil {
		return 0, 0, err
	}
	return distance, incline, nil
}

// matrixAt looks up matrix[rowName][colName] in a dataframe built with a
// leading "location" column holding row names (the data-loader's
// convention for square distance/incline matrices — see internal/data).
func matrixAt(df dataframe.DataFrame, rowName, colName string) (float64, error) {
	names := df.Col("location").Records()
	rowIdx := -1
	for i, n := range names {
		if n == rowName {
			rowIdx = i
			break
		}
	}
	if rowIdx == -1 {
		return 0, fmt.Errorf("%w: unknown location %q", model.ErrBadInput, rowName)
	}
	col := df.Col(colName)
	if col.Err != nil {
		return 0, fmt.Errorf("%w: unknown location %q", model.ErrBadInput, colName)
	}
	return col.Float()[rowIdx], nil
}

// GetTemperature samples the temperature table for the hour of
// departureTime, falling back per the documented rules on bad csv shape,
// bad configured column, or bad timestamp format.
func (rc *RideCalc) GetTemperature(departureTime string) float64 {
	names := rc.temperature.Names()
	if len(names) < 2 || names[0] != "hour" {
		rc.warn("bad csv format: temperature.csv should be hour|<column>|...; returning 20 degrees")
		return 20.0
	}
	option := rc.temperatureOption
	hasOption := false
	for _, n := range names {
		if n == option {
			hasOption = true
			break
		}
	}
	if !hasOption {
		rc.warn("bad temperature option: column %q missing, defaulting to %q", option, names[1])
		option = names[1]
		rc.temperatureOption = option
	}

	parsed, err := time.Parse("2006-01-02 15:04:05", departureTime)
	if err != nil {
		rc.warn("bad format: wrong datetime string %q, defaulting to noon", departureTime)
		parsed, _ = time.Parse("2006-01-02 15:04:05", "2022-01-01 12:00:00")
	}
	hour := float64(parsed.Hour())

	hours := rc.temperature.Col("hour").Float()
	col := rc.temperature.Col(option).Float()
	for i, h := range hours {
		if h == hour {
			return col[i]
		}
	}
	return 20.0
}

func (rc *RideCalc) validateConsumptionInputsAndGetDefaults(levelOfLoading, incline, temperature, speed float64) (float64, float64, float64, float64) {
	if levelOfLoading < 0 || levelOfLoading > 1 {
		rc.warn("bad option: level_of_loading not in [0,1], defaulting to %v", rc.defaults.LevelOfLoading)
		levelOfLoading = rc.defaults.LevelOfLoading
	}
	if speed < 0 {
		rc.warn("bad option: speed < 0, defaulting to %v", rc.defaults.Speed)
		speed = rc.defaults.Speed
	}
	return levelOfLoading, incline, temperature, speed
}
