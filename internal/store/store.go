// Package store persists a small run registry (one row per simulation
// run) to a local sqlite file, grounded on the repository pattern used to
// buffer telemetry readings before upload in the wider example pack.
package store

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Run is one completed (or failed) simulation run.
type Run struct {
	ID            uint `gorm:"primaryKey"`
	ConfigPath    string
	StartedAt     time.Time
	FinishedAt    time.Time
	Status        string // "running", "done", "failed"
	Error         string
	VehicleCount  int
	TotalDistance float64
	TotalCost     float64
	SelfSufficiency float64
}

// Store wraps the run registry database.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if necessary) the sqlite-backed run registry at path.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open run registry: %w", err)
	}
	if err := db.AutoMigrate(&Run{}); err != nil {
		return nil, fmt.Errorf("migrate run registry: %w", err)
	}
	return &Store{db: db}, nil
}

// Create inserts a new run row, returning its id.
func (s *Store) Create(configPath string) (*Run, error) {
	run := &Run{ConfigPath: configPath, StartedAt: time.Now(), Status: "running"}
	if err := s.db.Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

// Finish marks a run as completed successfully with summary totals.
func (s *Store) Finish(id uint, vehicleCount int, totalDistance, totalCost, selfSufficiency float64) error {
	return s.db.Model(&Run{}).Where("id = ?", id).Updates(map[string]any{
		"status":           "done",
		"finished_at":      time.Now(),
		"vehicle_count":    vehicleCount,
		"total_distance":   totalDistance,
		"total_cost":       totalCost,
		"self_sufficiency": selfSufficiency,
	}).Error
}

// Fail marks a run as failed with the given error message.
func (s *Store) Fail(id uint, errMsg string) error {
	return s.db.Model(&Run{}).Where("id = ?", id).Updates(map[string]any{
		"status":      "failed",
		"finished_at": time.Now(),
		"error":       errMsg,
	}).Error
}

// List returns every run, most recent first.
func (s *Store) List() ([]Run, error) {
	var runs []Run
	if err := s.db.Order("started_at desc").Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// Get returns one run by id.
func (s *Store) Get(id uint) (*Run, error) {
	var run Run
	if err := s.db.First(&run, id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}
