package data

import (
	"os"

	"github.com/go-gota/gota/dataframe"
)

// LoadConsumptionTable reads the tidy consumption CSV: vehicle_type,
// level_of_loading, incline, mean_speed, t_amb, consumption.
func LoadConsumptionTable(path string) (dataframe.DataFrame, error) {
	return readCSV(path)
}

// LoadMatrixTable reads a square distance/incline CSV. Matrix files must
// carry a leading "location" column holding row names, matching the
// convention internal/ridecalc's matrixAt depends on.
func LoadMatrixTable(path string) (dataframe.DataFrame, error) {
	return readCSV(path)
}

// LoadTemperatureTable reads the hour-indexed temperature CSV.
func LoadTemperatureTable(path string) (dataframe.DataFrame, error) {
	return readCSV(path)
}

func readCSV(path string) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	defer f.Close()
	df := dataframe.ReadCSV(f)
	return df, df.Err
}
