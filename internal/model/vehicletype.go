package model

// ChargingCurvePoint is one (SoC, max power kW) sample of a piecewise
// linear charging curve.
type ChargingCurvePoint struct {
	SoC      float64
	PowerKW  float64
}

// VehicleType holds static, shared-across-fleet parameters for one class of
// vehicle.
type VehicleType struct {
	Name               string
	BatteryCapacity    float64 // kWh
	SoCMin             float64
	BaseConsumption    float64 // kWh/km
	ChargingCapacity   map[string]float64 // plug kind -> kW
	ChargingCurve      []ChargingCurvePoint
	MinChargingPower   float64 // fraction of curve peak
	EventCSV           bool
	Label              string
	V2G                bool
	V2GPowerFactor     float64

	// LoadCapacity is the maximum cargo/passenger occupancy this vehicle
	// type can carry; schedule rows derive level_of_loading as
	// occupation / LoadCapacity. Defaults to 1 when the catalogue doesn't
	// specify one, so an unset value degrades to occupation itself.
	LoadCapacity float64
}

// Plugs returns the plug kinds this vehicle type can use.
func (vt VehicleType) Plugs() []string {
	plugs := make([]string, 0, len(vt.ChargingCapacity))
	for k := range vt.ChargingCapacity {
		plugs = append(plugs, k)
	}
	return plugs
}

// MaxPowerAt returns the charging curve's max power at the given SoC,
// linearly interpolating between bracketing curve points (constant beyond
// the curve's own bounds).
func (vt VehicleType) MaxPowerAt(soc float64) float64 {
	curve := vt.ChargingCurve
	if len(curve) == 0 {
		return 0
	}
	if soc <= curve[0].SoC {
		return curve[0].PowerKW
	}
	last := curve[len(curve)-1]
	if soc >= last.SoC {
		return last.PowerKW
	}
	for i := 1; i < len(curve); i++ {
		if soc <= curve[i].SoC {
			prev := curve[i-1]
			span := curve[i].SoC - prev.SoC
			if span == 0 {
				return curve[i].PowerKW
			}
			frac := (soc - prev.SoC) / span
			return prev.PowerKW + frac*(curve[i].PowerKW-prev.PowerKW)
		}
	}
	return last.PowerKW
}
