package evaluator

import (
	"strings"
	"testing"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleema/internal/model"
	"fleema/internal/ridecalc"
)

const singleLocationConsumptionCSV = `vehicle_type,level_of_loading,incline,mean_speed,t_amb,consumption
van,0,0,30,20,2.0
`

const singleLocationMatrixCSV = `location,home
home,0
`

const singleLocationTemperatureCSV = `hour,option_a
0,20
`

func mustDF(t *testing.T, csv string) dataframe.DataFrame {
	t.Helper()
	df := dataframe.ReadCSV(strings.NewReader(csv))
	require.NoError(t, df.Err)
	return df
}

func newTestEvaluator(t *testing.T, price float64, feedIn float64) (*Evaluator, *model.Location) {
	t.Helper()
	ride, err := ridecalc.New(
		mustDF(t, singleLocationConsumptionCSV),
		mustDF(t, singleLocationMatrixCSV),
		mustDF(t, singleLocationMatrixCSV),
		mustDF(t, singleLocationTemperatureCSV),
		"option_a",
		ridecalc.Defaults{LevelOfLoading: 0, Incline: 0, Temperature: 20, Speed: 30},
		nil,
	)
	require.NoError(t, err)

	loc := model.NewLocation("home", "depot", nil)
	loc.SetPower(10) // grid connector caps charging at 10 kW

	return &Evaluator{
		Ride: ride,
		Weights: Weights{
			Time:       1,
			Energy:     1,
			Cost:       1,
			Renewables: 1,
			SoC:        1,
		},
		MaxCost:                   1,
		MinCost:                   0,
		FeedInCost:                0.05,
		AverageSpeed:              30,
		ChargingStepSize:          60,
		AltStrategyMinStandingMin: 9999,
		DefaultStrategy:           "greedy",
		AlternativeStrategy:       "balanced",
		StepsPerHour:              60,
		SimStart:                  time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		StepSize:                  time.Minute,
		Price:                     func(time.Time) float64 { return price },
		FeedIn:                    func(time.Time) float64 { return feedIn },
	}, loc
}

func vanType() model.VehicleType {
	return model.VehicleType{
		Name:            "van",
		BatteryCapacity: 50,
		ChargingCurve:   []model.ChargingCurvePoint{{SoC: 0, PowerKW: 50}, {SoC: 1, PowerKW: 50}},
	}
}

// TestEvaluate_CostScoreDividesOnceByChargedEnergy locks in the single
// normalization contract: GetChargingCharacteristic returns a raw euro
// total, and costScore is the only place that divides it by charged_energy.
func TestEvaluate_CostScoreDividesOnceByChargedEnergy(t *testing.T) {
	e, loc := newTestEvaluator(t, 0.3, 0)
	vt := vanType()

	cand, err := e.Evaluate(vt, loc, loc, loc, 0, 120, 0.2)
	require.NoError(t, err)
	require.False(t, cand.Empty)

	// Two 60-minute greedy steps at the 10kW grid cap: 10kWh each step,
	// SoC 0.2 -> 0.6.
	assert.InDelta(t, 0.4, cand.Charge, 1e-9)
	assert.InDelta(t, 0.4, cand.DeltaSoC, 1e-9)
	assert.Equal(t, 0, cand.Timestep)
	assert.Nil(t, cand.TaskTo)
	assert.Nil(t, cand.TaskFrom)

	// Raw cost: (10kW*0.3 + 0)/60 per step, twice = 0.1 euro total.
	// costScore = (1 - 0.1/chargedEnergy) / (MaxCost-MinCost), chargedEnergy = 0.4*50 = 20.
	wantCostScore := (1 - 0.1/20.0) / 1.0
	wantScore := 1.0 /*timeScore*/ + 1.0 /*chargeScore*/ + wantCostScore + 0 /*renewables*/ + 0.1 /*soc<0.8*/
	assert.InDelta(t, wantScore, cand.Score, 1e-4)
}

// TestEvaluate_FullFeedInCoverageMaximizesRenewablesScore exercises the
// feed-in-covers-load scenario the resolver relies on to prefer charging
// windows with available local generation.
func TestEvaluate_FullFeedInCoverageMaximizesRenewablesScore(t *testing.T) {
	e, loc := newTestEvaluator(t, 0.3, 10)
	vt := vanType()

	cand, err := e.Evaluate(vt, loc, loc, loc, 0, 120, 0.2)
	require.NoError(t, err)
	require.False(t, cand.Empty)

	// Feed-in matches the 10kW grid-capped charge exactly at every step:
	// feed_in_share must be 1.
	wantCostScore := (1 - (2*(10*0.05)/60.0)/20.0) / 1.0
	wantScore := 1.0 + 1.0 + wantCostScore + 1.0 /*renewablesScore == 1*/ + 0.1
	assert.InDelta(t, wantScore, cand.Score, 1e-4)
}

func TestEvaluate_AlreadyFullBatteryReturnsEmpty(t *testing.T) {
	e, loc := newTestEvaluator(t, 0.3, 0)
	vt := vanType()

	// Starting at SoC 1.0, the greedy run can't add any charge, so the
	// non-V2G candidate is empty.
	cand, err := e.Evaluate(vt, loc, loc, loc, 0, 120, 1.0)
	require.NoError(t, err)
	assert.True(t, cand.Empty)
}
