package data

import (
	"encoding/json"
	"fmt"
	"os"

	"fleema/internal/model"
)

type plugTypeJSON struct {
	Capacity float64 `json:"capacity"`
	Plug     string  `json:"plug"`
}

type chargingPointJSON struct {
	PlugTypes           []string `json:"plug_types"`
	NumberChargingPoints int     `json:"number_charging_points"`
	GridConnectionKW    float64  `json:"grid_connection_kw"`
	EnergyFeedIn        map[string]any `json:"energy_feed_in"`
}

type chargingPointsFile struct {
	PlugTypes      map[string]plugTypeJSON      `json:"plug_types"`
	ChargingPoints map[string]chargingPointJSON `json:"charging_points"`
}

// LoadChargingPoints reads the charging-point catalogue and turns it into
// Locations carrying one Charger each, ready to be merged with schedule
// stop names.
func LoadChargingPoints(path string) (map[string]*model.Location, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file chargingPointsFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, err
	}

	plugTypes := make(map[string]model.PlugType, len(file.PlugTypes))
	for name, p := range file.PlugTypes {
		plugTypes[name] = model.PlugType{Name: name, Capacity: p.Capacity, Plug: p.Plug}
	}

	locations := make(map[string]*model.Location, len(file.ChargingPoints))
	for name, cp := range file.ChargingPoints {
		plugs := make([]model.PlugType, 0, len(cp.PlugTypes))
		for _, plugName := range cp.PlugTypes {
			pt, ok := plugTypes[plugName]
			if !ok {
				return nil, fmt.Errorf("%w: charging point %q references unknown plug type %q", model.ErrBadInput, name, plugName)
			}
			plugs = append(plugs, pt)
		}
		charger := model.NewCharger(name, cp.NumberChargingPoints, plugs)
		loc := model.NewLocation(name, "charging_point", []model.Charger{charger})
		if cp.GridConnectionKW > 0 {
			loc.SetPower(cp.GridConnectionKW)
		}
		if cp.EnergyFeedIn != nil {
			loc.SetGenerator(cp.EnergyFeedIn)
		}
		locations[name] = loc
	}
	return locations, nil
}
