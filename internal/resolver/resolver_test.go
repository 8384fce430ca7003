package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleema/internal/evaluator"
	"fleema/internal/model"
)

func testVehicleType() model.VehicleType {
	return model.VehicleType{Name: "van", BatteryCapacity: 50, SoCMin: 0.1}
}

func TestPredictedSoC_OnlyDrivingTasksAppend(t *testing.T) {
	home := model.NewLocation("home", "depot", nil)
	v := model.NewVehicle("v1", testVehicleType(), 1.0, home)

	drive := model.NewTask(0, 10, home, home, model.Driving)
	drive.DeltaSoC = -0.2
	require.NoError(t, v.AddTask(drive))

	park := model.NewTask(10, 20, home, home, model.Parking)
	require.NoError(t, v.AddTask(park))

	rows := predictedSoC(v, 0, 30)

	require.Len(t, rows, 2)
	assert.Equal(t, 0, rows[0].timestep)
	assert.Equal(t, 1.0, rows[0].soc)
	// Tagged with the driving task's end time, not its start time, and no
	// row was appended for the parking task.
	assert.Equal(t, 10, rows[1].timestep)
	assert.InDelta(t, 0.8, rows[1].soc, 1e-9)
}

func TestPredictedSoC_ExcludesTasksEndingOutsideWindow(t *testing.T) {
	home := model.NewLocation("home", "depot", nil)
	v := model.NewVehicle("v1", testVehicleType(), 1.0, home)

	before := model.NewTask(-10, 0, home, home, model.Driving)
	before.DeltaSoC = -0.1
	require.NoError(t, v.AddTask(before))

	after := model.NewTask(20, 30, home, home, model.Driving)
	after.DeltaSoC = -0.1
	require.NoError(t, v.AddTask(after))

	rows := predictedSoC(v, 0, 30)

	// Neither task's end_time falls strictly inside (0, 30).
	require.Len(t, rows, 1)
	assert.Equal(t, 0, rows[0].timestep)
}

func TestCandidateLess_OrdersByScoreThenDeltaSoCThenChargeThenConsumption(t *testing.T) {
	low := evaluator.Candidate{Score: 1}
	high := evaluator.Candidate{Score: 2}
	assert.True(t, candidateLess(low, high))
	assert.False(t, candidateLess(high, low))

	sameScore1 := evaluator.Candidate{Score: 1, DeltaSoC: 0.1}
	sameScore2 := evaluator.Candidate{Score: 1, DeltaSoC: 0.2}
	assert.True(t, candidateLess(sameScore1, sameScore2))

	sameUntilCharge1 := evaluator.Candidate{Score: 1, DeltaSoC: 0.1, Charge: 1}
	sameUntilCharge2 := evaluator.Candidate{Score: 1, DeltaSoC: 0.1, Charge: 2}
	assert.True(t, candidateLess(sameUntilCharge1, sameUntilCharge2))

	// Consumption is the final tiebreak, compared with > rather than <:
	// the candidate with the smaller (more negative) consumption ranks
	// above the one with the larger consumption.
	lessConsumption := evaluator.Candidate{Score: 1, DeltaSoC: 0.1, Charge: 1, Consumption: -1}
	moreConsumption := evaluator.Candidate{Score: 1, DeltaSoC: 0.1, Charge: 1, Consumption: -5}
	assert.True(t, candidateLess(lessConsumption, moreConsumption))
}

func TestDistributeChargingSlots_DropsVehiclesThatNeedNoCharge(t *testing.T) {
	home := model.NewLocation("home", "depot", nil)
	vehicles := []*model.Vehicle{
		model.NewVehicle("v1", testVehicleType(), 1.0, home),
		model.NewVehicle("v2", testVehicleType(), 1.0, home),
		model.NewVehicle("v3", testVehicleType(), 1.0, home),
	}

	r := &Resolver{SoCMin: 0, EndOfDaySoC: 0}
	err := r.DistributeChargingSlots(vehicles, 0, 100)
	require.NoError(t, err)
}

func TestFindNextChargingSlot_NoChargeNeededReturnsNil(t *testing.T) {
	home := model.NewLocation("home", "depot", nil)
	v := model.NewVehicle("v1", testVehicleType(), 1.0, home)

	r := &Resolver{SoCMin: 0, EndOfDaySoC: 0}
	cand, err := r.FindNextChargingSlot(v, 0, 100)
	require.NoError(t, err)
	assert.Nil(t, cand)
}
