package sim

import (
	"encoding/csv"
	"os"
	"sort"
	"strconv"
	"time"

	"fleema/internal/model"
)

// WriteVehicleCSV writes the 19-column per-vehicle event log, preceded by a
// vehicle_id column.
func WriteVehicleCSV(path string, vehicleID string, o model.VehicleOutput) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"vehicle_id",
		"timestamp",
		"event_start",
		"event_time",
		"end_location",
		"status",
		"soc_start",
		"soc_end",
		"energy",
		"actual_energy_from_grid",
		"station_charging_capacity",
		"average_charging_power",
		"distance",
		"energy_from_feed_in",
		"energy_from_grid",
		"energy_cost",
		"emission",
		"consumption",
		"level_of_loading",
		"v2g_energy",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i := range o.Timestamp {
		row := []string{
			vehicleID,
			fmtTime(o.Timestamp[i]),
			strconv.Itoa(o.EventStart[i]),
			strconv.Itoa(o.EventTime[i]),
			o.EndLocation[i],
			o.Status[i].String(),
			fmtFloat(o.SoCStart[i]),
			fmtFloat(o.SoCEnd[i]),
			fmtFloat(o.Energy[i]),
			fmtFloat(o.ActualEnergyFromGrid[i]),
			fmtFloat(o.StationChargingCapacity[i]),
			fmtFloat(o.AverageChargingPower[i]),
			fmtFloat(o.Distance[i]),
			fmtFloat(o.EnergyFromFeedIn[i]),
			fmtFloat(o.EnergyFromGrid[i]),
			fmtFloat(o.EnergyCost[i]),
			fmtFloat(o.Emission[i]),
			fmtFloat(o.Consumption[i]),
			fmtFloat(o.LevelOfLoading[i]),
			fmtFloat(o.V2GEnergy[i]),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

// WriteLocationCSV writes one location's aggregate power/occupancy series,
// one row per timestep.
func WriteLocationCSV(path string, series map[string][]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	columns := make([]string, 0, len(series))
	for k := range series {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	header := append([]string{"timestep"}, columns...)
	if err := w.Write(header); err != nil {
		return err
	}

	n := 0
	for _, col := range columns {
		if len(series[col]) > n {
			n = len(series[col])
		}
	}
	for t := 0; t < n; t++ {
		row := make([]string, 0, len(columns)+1)
		row = append(row, strconv.Itoa(t))
		for _, col := range columns {
			vals := series[col]
			if t < len(vals) {
				row = append(row, fmtFloat(vals[t]))
			} else {
				row = append(row, "")
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
