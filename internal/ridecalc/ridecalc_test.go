package ridecalc

import (
	"strings"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleema/internal/model"
)

const testConsumptionCSV = `vehicle_type,level_of_loading,incline,mean_speed,t_amb,consumption
bus,0,0,30,20,2.0
bus,0,0,60,20,4.0
`

const testDistanceCSV = `location,A,B
A,0,10
B,10,0
`

const testInclineCSV = `location,A,B
A,0,0
B,0,0
`

const testTemperatureCSV = `hour,option_a
5,20
12,25
`

func mustDF(t *testing.T, csv string) dataframe.DataFrame {
	t.Helper()
	df := dataframe.ReadCSV(strings.NewReader(csv))
	require.NoError(t, df.Err)
	return df
}

func newTestRideCalc(t *testing.T) *RideCalc {
	t.Helper()
	rc, err := New(
		mustDF(t, testConsumptionCSV),
		mustDF(t, testDistanceCSV),
		mustDF(t, testInclineCSV),
		mustDF(t, testTemperatureCSV),
		"option_a",
		Defaults{LevelOfLoading: 0, Incline: 0, Temperature: 20, Speed: 30},
		nil,
	)
	require.NoError(t, err)
	return rc
}

func TestNew_RejectsNonPositiveSpeed(t *testing.T) {
	_, err := New(mustDF(t, testConsumptionCSV), mustDF(t, testDistanceCSV), mustDF(t, testInclineCSV), mustDF(t, testTemperatureCSV), "option_a", Defaults{Speed: 0}, nil)
	assert.ErrorIs(t, err, model.ErrBadInput)
}

func TestGetLocationValues(t *testing.T) {
	rc := newTestRideCalc(t)

	distance, incline, err := rc.GetLocationValues("A", "B")
	require.NoError(t, err)
	assert.Equal(t, 10.0, distance)
	assert.Equal(t, 0.0, incline)

	_, _, err = rc.GetLocationValues("A", "nowhere")
	assert.ErrorIs(t, err, model.ErrBadInput)
}

func TestGetTemperature(t *testing.T) {
	rc := newTestRideCalc(t)

	assert.Equal(t, 20.0, rc.GetTemperature("2022-01-01 05:00:00"))
	// Hour with no matching row: falls back to 20 rather than interpolating.
	assert.Equal(t, 20.0, rc.GetTemperature("2022-01-01 18:00:00"))
	// Bad timestamp format: warns and defaults to noon's value.
	assert.Equal(t, 25.0, rc.GetTemperature("not-a-date"))
}

func TestGetTemperature_BadColumnFallsBackToSecondColumn(t *testing.T) {
	var warned string
	rc, err := New(
		mustDF(t, testConsumptionCSV),
		mustDF(t, testDistanceCSV),
		mustDF(t, testInclineCSV),
		mustDF(t, testTemperatureCSV),
		"does_not_exist",
		Defaults{LevelOfLoading: 0, Incline: 0, Temperature: 20, Speed: 30},
		func(format string, args ...any) { warned = format },
	)
	require.NoError(t, err)

	assert.Equal(t, 20.0, rc.GetTemperature("2022-01-01 05:00:00"))
	assert.Contains(t, warned, "bad temperature option")
}

func TestCalculateTrip_ExactGridMatch(t *testing.T) {
	rc := newTestRideCalc(t)
	vt := model.VehicleType{Name: "bus", BatteryCapacity: 50}

	trip, err := rc.CalculateTrip("A", "B", vt, 30, "2022-01-01 05:00:00", 0)
	require.NoError(t, err)

	assert.Equal(t, 20.0, trip.TripTimeMin) // 10km / 30km/h * 60
	assert.Equal(t, -20.0, trip.ConsumptionKWh)
	assert.Equal(t, -0.4, trip.SoCDelta)
}

func TestCalculateTrip_ZeroDistance(t *testing.T) {
	rc := newTestRideCalc(t)
	vt := model.VehicleType{Name: "bus", BatteryCapacity: 50}

	trip, err := rc.CalculateTrip("A", "A", vt, 30, "2022-01-01 05:00:00", 0)
	require.NoError(t, err)
	assert.Equal(t, Trip{}, trip)
}

func TestCalculateTrip_MinimumOneMinute(t *testing.T) {
	rc := newTestRideCalc(t)
	vt := model.VehicleType{Name: "bus", BatteryCapacity: 50}

	// 10km at a very high speed would round down below a minute; the trip
	// floor keeps it at 1.
	trip, err := rc.CalculateTrip("A", "B", vt, 10000, "2022-01-01 05:00:00", 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, trip.TripTimeMin)
}

func TestCalculateConsumption_RejectsNegativeDistance(t *testing.T) {
	rc := newTestRideCalc(t)
	vt := model.VehicleType{Name: "bus", BatteryCapacity: 50}

	_, _, err := rc.CalculateConsumption(vt, 0, 20, 30, 0, -1)
	assert.ErrorIs(t, err, model.ErrBadInput)
}

func TestGetConsumption_InterpolatesBetweenGridSpeeds(t *testing.T) {
	rc := newTestRideCalc(t)

	// Halfway between the 30 and 60 mean_speed rows (consumption -2 and -4)
	// should linearly interpolate to -3.
	factor, err := rc.GetConsumption("bus", 0, 0, 20, 45)
	require.NoError(t, err)
	assert.InDelta(t, -3.0, factor, 1e-9)
}
