package data

import (
	"fmt"
	"os"
	"time"

	"github.com/go-gota/gota/dataframe"

	"fleema/internal/model"
)

// LoadSchedule reads the per-row schedule
// (vehicle_id, vehicle_type, departure_name, arrival_name, departure_time,
// arrival_time, occupation), materializing one Vehicle per distinct
// vehicle_id with its initial DRIVING tasks, resolving stop names against
// locations (charging-capable locations already loaded, or a bare
// non-charging Location created on first reference).
func LoadSchedule(path string, vehicleTypes map[string]model.VehicleType, locations map[string]*model.Location, simStart time.Time) (map[string]*model.Vehicle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	df := dataframe.ReadCSV(f)
	if df.Err != nil {
		return nil, df.Err
	}

	vehicleIDs := df.Col("vehicle_id").Records()
	vehicleTypeNames := df.Col("vehicle_type").Records()
	departureNames := df.Col("departure_name").Records()
	arrivalNames := df.Col("arrival_name").Records()
	departureTimes := df.Col("departure_time").Records()
	arrivalTimes := df.Col("arrival_time").Records()
	occupations := df.Col("occupation").Float()

	vehicles := map[string]*model.Vehicle{}

	for i := 0; i < df.Nrow(); i++ {
		vtName := vehicleTypeNames[i]
		vt, ok := vehicleTypes[vtName]
		if !ok {
			return nil, fmt.Errorf("%w: schedule references unknown vehicle_type %q", model.ErrBadInput, vtName)
		}

		depLoc := location(locations, departureNames[i])
		arrLoc := location(locations, arrivalNames[i])

		depTime, err := parseScheduleTime(departureTimes[i])
		if err != nil {
			return nil, fmt.Errorf("%w: bad departure_time %q: %v", model.ErrBadInput, departureTimes[i], err)
		}
		arrTime, err := parseScheduleTime(arrivalTimes[i])
		if err != nil {
			return nil, fmt.Errorf("%w: bad arrival_time %q: %v", model.ErrBadInput, arrivalTimes[i], err)
		}
		start := int(depTime.Sub(simStart).Minutes())
		end := int(arrTime.Sub(simStart).Minutes())

		id := vehicleIDs[i]
		v, ok := vehicles[id]
		if !ok {
			v = model.NewVehicle(id, vt, 1.0, depLoc)
			vehicles[id] = v
		}

		levelOfLoading := occupations[i] / vt.LoadCapacity

		task := model.NewTask(start, end, depLoc, arrLoc, model.Driving)
		task.LevelOfLoading = levelOfLoading
		if err := v.AddTask(task); err != nil {
			return nil, err
		}
	}

	return vehicles, nil
}

func location(locations map[string]*model.Location, name string) *model.Location {
	if loc, ok := locations[name]; ok {
		return loc
	}
	loc := model.NewLocation(name, "stop", nil)
	locations[name] = loc
	return loc
}

func parseScheduleTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format")
}
