package data

import (
	"encoding/json"
	"os"

	"fleema/internal/model"
)

type vehicleTypeJSON struct {
	Capacity         float64            `json:"capacity"`
	ChargingPower    map[string]float64 `json:"charging_power"`
	ChargingCurve    [][2]float64       `json:"charging_curve"`
	MinChargingPower float64            `json:"min_charging_power"`
	SoCMin           float64            `json:"soc_min"`
	Mileage          float64            `json:"mileage"`
	V2G              bool               `json:"v2g"`
	V2GPowerFactor   float64            `json:"v2g_power_factor"`
	LoadCapacity     float64            `json:"load_capacity"`
}

// LoadVehicleTypes reads the vehicle-type catalogue: per name
// {capacity, charging_power, charging_curve, v2g, v2g_power_factor}.
func LoadVehicleTypes(path string) (map[string]model.VehicleType, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var parsed map[string]vehicleTypeJSON
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}

	out := make(map[string]model.VehicleType, len(parsed))
	for name, vt := range parsed {
		curve := make([]model.ChargingCurvePoint, len(vt.ChargingCurve))
		for i, p := range vt.ChargingCurve {
			curve[i] = model.ChargingCurvePoint{SoC: p[0], PowerKW: p[1]}
		}
		loadCapacity := vt.LoadCapacity
		if loadCapacity == 0 {
			loadCapacity = 1
		}
		out[name] = model.VehicleType{
			Name:             name,
			BatteryCapacity:  vt.Capacity,
			SoCMin:           vt.SoCMin,
			BaseConsumption:  vt.Mileage / 100,
			ChargingCapacity: vt.ChargingPower,
			ChargingCurve:    curve,
			MinChargingPower: vt.MinChargingPower,
			EventCSV:         true,
			Label:            name,
			V2G:              vt.V2G,
			V2GPowerFactor:   vt.V2GPowerFactor,
			LoadCapacity:     loadCapacity,
		}
	}
	return out, nil
}
