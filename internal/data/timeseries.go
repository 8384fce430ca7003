package data

import (
	"fmt"
	"os"
	"time"

	"github.com/go-gota/gota/dataframe"

	"fleema/internal/emcs"
	"fleema/internal/model"
)

// TimeSeries is a parsed cost/emission CSV: a start time, a fixed step
// duration, and one sampled float column.
type TimeSeries struct {
	StartTime    time.Time
	StepDuration time.Duration
	Values       []float64
}

// LoadTimeSeries reads a single-column-of-interest time series CSV and
// pairs it with the options describing how to index it.
func LoadTimeSeries(path, column string, startTime time.Time, stepDuration time.Duration) (*TimeSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	df := dataframe.ReadCSV(f)
	if df.Err != nil {
		return nil, df.Err
	}
	col := df.Col(column)
	if col.Err != nil {
		return nil, fmt.Errorf("%w: column %q not found in %s", model.ErrLookupMiss, column, path)
	}
	return &TimeSeries{StartTime: startTime, StepDuration: stepDuration, Values: col.Float()}, nil
}

// PriceSampler builds an emcs.PriceSampler over this series, returning 0
// for timestamps before the start or past the end.
func (ts *TimeSeries) PriceSampler() emcs.PriceSampler {
	return func(t time.Time) float64 {
		v, ok := ts.at(t)
		if !ok {
			return 0
		}
		return v
	}
}

// FeedInSampler adapts the series to the feed-in sampler shape EmCS wants.
func (ts *TimeSeries) FeedInSampler() func(t time.Time) float64 {
	return func(t time.Time) float64 {
		v, ok := ts.at(t)
		if !ok {
			return 0
		}
		return v
	}
}

// EmissionSampler builds an emcs.EmissionSampler over this series.
func (ts *TimeSeries) EmissionSampler() emcs.EmissionSampler {
	return func(t time.Time) (float64, bool) {
		return ts.at(t)
	}
}

func (ts *TimeSeries) at(t time.Time) (float64, bool) {
	if ts.StepDuration <= 0 || t.Before(ts.StartTime) {
		return 0, false
	}
	idx := int(t.Sub(ts.StartTime) / ts.StepDuration)
	if idx < 0 || idx >= len(ts.Values) {
		return 0, false
	}
	return ts.Values[idx], true
}
