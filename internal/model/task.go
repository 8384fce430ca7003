package model

import "github.com/google/uuid"

// Status is the kind of activity a Task (or the vehicle running it)
// represents.
type Status int

const (
	Driving Status = iota
	Parking
	Charging
	Break
)

func (s Status) String() string {
	switch s {
	case Driving:
		return "driving"
	case Parking:
		return "parking"
	case Charging:
		return "charging"
	case Break:
		return "break"
	default:
		return "unknown"
	}
}

// Task is a time-bounded activity of one vehicle: a drive, a charging
// session, a parking stay, or a derived break candidate.
type Task struct {
	ID uuid.UUID

	StartTime int
	EndTime   int

	StartPoint *Location
	EndPoint   *Location
	Kind       Status

	FloatTime      float64
	DeltaSoC       float64
	Consumption    float64
	LevelOfLoading float64
}

// NewTask builds a Task with a fresh id.
func NewTask(start, end int, startPoint, endPoint *Location, kind Status) Task {
	return Task{
		ID:         uuid.New(),
		StartTime:  start,
		EndTime:    end,
		StartPoint: startPoint,
		EndPoint:   endPoint,
		Kind:       kind,
	}
}

// IsCalculated reports whether FloatTime, DeltaSoC and Consumption have all
// been populated (i.e. the task's trip has been run through RideCalc).
func (t Task) IsCalculated() bool {
	return t.FloatTime != 0 && t.DeltaSoC != 0 && t.Consumption != 0
}
