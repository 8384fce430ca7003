package model

import (
	"fmt"

	"fleema/internal/util"
)

// GeneratorInfo describes a local feed-in generator attached to a location's
// grid connector.
type GeneratorInfo struct {
	GridConnectorID string
	Series          map[string]any
}

// Location is a named place in the network: a depot, a station, etc. It
// owns its Chargers and tracks how many vehicles are plugged in at each
// simulated timestep.
type Location struct {
	Name             string
	LocationType     string
	Chargers         []Charger
	GridPowerKW      float64
	HasGridConn      bool
	Generator        *GeneratorInfo
	EventCSV         bool
	occupation       []int
	Output           map[string][]float64
}

// NewLocation constructs a Location with no grid connection and no
// occupation tracked yet; call InitOccupation before use.
func NewLocation(name, locationType string, chargers []Charger) *Location {
	return &Location{Name: name, LocationType: locationType, Chargers: chargers, EventCSV: true}
}

// NumChargers returns the number of charger points available at this
// location, summed over all its Chargers.
func (l *Location) NumChargers() int {
	n := 0
	for _, c := range l.Chargers {
		n += c.NumPoints()
	}
	return n
}

// InitOccupation allocates a zeroed occupation counter for timeSteps steps.
func (l *Location) InitOccupation(timeSteps int) {
	l.occupation = make([]int, timeSteps)
}

// SetPower sets the max grid connector power in kW for this location.
func (l *Location) SetPower(power float64) {
	l.GridPowerKW = power
	l.HasGridConn = true
}

// SetGenerator attaches a local feed-in generator descriptor.
func (l *Location) SetGenerator(series map[string]any) {
	l.Generator = &GeneratorInfo{GridConnectorID: "GC1", Series: series}
}

// AddOccupationFromEvent increments occupancy for a CHARGING task's window.
func (l *Location) AddOccupationFromEvent(task Task) {
	if task.Kind == Charging {
		l.AddOccupation(task.StartTime, task.EndTime)
	}
}

// AddOccupation increments the occupancy counter over [start, end] inclusive
// — both ends included, matching the pandas .loc[start:end] slice this is
// grounded on.
func (l *Location) AddOccupation(start, end int) {
	if start < 0 {
		start = 0
	}
	if end >= len(l.occupation) {
		end = len(l.occupation) - 1
	}
	for t := start; t <= end; t++ {
		l.occupation[t]++
	}
}

// IsAvailable reports whether occupancy stays below NumChargers for every
// step in [start, end] inclusive.
func (l *Location) IsAvailable(start, end int) bool {
	if start < 0 {
		start = 0
	}
	if end >= len(l.occupation) {
		end = len(l.occupation) - 1
	}
	limit := l.NumChargers()
	for t := start; t <= end; t++ {
		if l.occupation[t] >= limit {
			return false
		}
	}
	return true
}

// GetScenarioInfo builds the EmCS scenario fragment for this location: the
// grid connector, any feed-in event, and the chosen (or best-power)
// charging point.
func (l *Location) GetScenarioInfo(plugTypes []string, pointID string) (map[string]any, error) {
	power := 0.0
	if l.HasGridConn {
		power = l.GridPowerKW
	}
	scenario := map[string]any{
		"components": map[string]any{
			"grid_connectors": map[string]any{
				"GC1": map[string]any{
					"max_power": power,
				},
			},
		},
	}
	if l.Generator != nil {
		scenario["events"] = map[string]any{
			"energy_feed_in": map[string]any{
				"GC1 feed-in": l.Generator.Series,
			},
		}
	}
	for _, ch := range l.Chargers {
		resolvedID := pointID
		if resolvedID == "" {
			var highest float64
			for _, cp := range ch.ChargingPoints {
				if p := cp.PowerFor(plugTypes); p > highest {
					highest = p
					resolvedID = cp.ID
				}
			}
		}
		if resolvedID == "" {
			continue
		}
		info, err := ch.ScenarioInfo(resolvedID, plugTypes)
		if err != nil {
			return nil, err
		}
		util.DeepUpdate(scenario, info)
	}
	return scenario, nil
}

// UpdateOutput records the per-step charging power delivered at this
// location during a charging event, growing the location's own aggregate
// time series (total_power, total_connected_vehicles, and — with more than
// one charger — per-charger series).
func (l *Location) UpdateOutput(start, end, stepSize, timeSteps int, chargingPowerList []float64) {
	if l.Output == nil {
		l.Output = map[string][]float64{
			fmt.Sprintf("%s_total_power", l.Name):               make([]float64, timeSteps),
			fmt.Sprintf("%s_total_connected_vehicles", l.Name):   make([]float64, timeSteps),
		}
		if l.NumChargers() > 1 {
			for _, charger := range l.Chargers {
				l.Output[fmt.Sprintf("%s_power", charger.Name)] = make([]float64, timeSteps)
				l.Output[fmt.Sprintf("%s_connected_vehicle", charger.Name)] = make([]float64, timeSteps)
			}
		}
	}
	idx := 0
	for cur := start; cur < end; cur += stepSize {
		if cur > timeSteps {
			break
		}
		power := 0.0
		if idx < len(chargingPowerList) {
			power = chargingPowerList[idx]
			idx++
		}
		if l.NumChargers() > 1 {
			l.Output[fmt.Sprintf("%s_power", l.Chargers[0].Name)][cur] += power
			l.Output[fmt.Sprintf("%s_connected_vehicle", l.Chargers[0].Name)][cur]++
		}
		l.Output[fmt.Sprintf("%s_total_power", l.Name)][cur] += power
		l.Output[fmt.Sprintf("%s_total_connected_vehicles", l.Name)][cur]++
	}
}
