package sim

import "fleema/internal/model"

// Result is the complete output of one simulation run.
type Result struct {
	VehicleOutputs  map[string]model.VehicleOutput
	LocationOutputs map[string]map[string][]float64

	TotalDistanceKm      float64
	TotalChargingDemand  float64
	TotalConsumption     float64
	TotalCost            float64
	TotalEmission        float64
	TotalEnergyFromGrid  float64
	TotalEnergyFromFeedIn float64
	SelfSufficiency      float64 // energy_from_feed_in / (energy_from_feed_in + energy_from_grid)

	DeletedRides map[string]float64

	Warnings int
}
