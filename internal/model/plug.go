package model

import "fmt"

// PlugType describes one kind of charging plug available in a scenario.
type PlugType struct {
	Name     string
	Capacity float64 // kW
	Plug     string  // e.g. "CCS", "Schuko", "inductive"
}

// ChargingPoint is a single physical connector, offering a fixed set of
// plugs, at a Charger.
type ChargingPoint struct {
	ID    string
	Plugs []PlugType
}

// PowerFor returns the highest capacity among this point's plugs that is
// also present in plugTypes, or 0 if none overlap.
func (cp ChargingPoint) PowerFor(plugTypes []string) float64 {
	allowed := make(map[string]struct{}, len(plugTypes))
	for _, p := range plugTypes {
		allowed[p] = struct{}{}
	}
	var maxPower float64
	for _, plug := range cp.Plugs {
		if _, ok := allowed[plug.Plug]; !ok {
			continue
		}
		if plug.Capacity > maxPower {
			maxPower = plug.Capacity
		}
	}
	return maxPower
}

// Charger is a charging station comprising one or more ChargingPoints.
type Charger struct {
	Name           string
	ChargingPoints []ChargingPoint
}

// NumPoints returns the number of charging points at this charger.
func (c Charger) NumPoints() int {
	return len(c.ChargingPoints)
}

// ScenarioInfo builds the EmCS scenario fragment for the chosen charging
// point (point_id) and the given vehicle plug types.
func (c Charger) ScenarioInfo(pointID string, plugTypes []string) (map[string]any, error) {
	if c.NumPoints() == 0 {
		return nil, fmt.Errorf("%w: charger %q has no charging points", ErrBadInput, c.Name)
	}
	stations := map[string]any{}
	found := false
	for _, cp := range c.ChargingPoints {
		if cp.ID != pointID {
			continue
		}
		found = true
		stations[cp.ID] = map[string]any{
			"max_power": cp.PowerFor(plugTypes),
			"min_power": 0.0,
			"parent":    "GC1",
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: point id %q doesn't match any point in charger %q", ErrBadInput, pointID, c.Name)
	}
	return map[string]any{
		"components": map[string]any{
			"charging_stations": stations,
		},
	}, nil
}

// NewCharger builds a Charger with numPoints ChargingPoints named
// "<name>_<i>", each offering plugTypes.
func NewCharger(name string, numPoints int, plugTypes []PlugType) Charger {
	points := make([]ChargingPoint, numPoints)
	for i := range points {
		points[i] = ChargingPoint{ID: fmt.Sprintf("%s_%d", name, i), Plugs: plugTypes}
	}
	return Charger{Name: name, ChargingPoints: points}
}
