package data

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/stratum-ops/opsdeck/src/geo"
)

// ScenarioRule is one scripted timeline window for an agent. Windows are
// half-open [MinTick, MaxTick) over the repeating cycle.
type ScenarioRule struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"`
	Agent   string `gorm:"size:32;index;not null"`
	MinTick int    `gorm:"not null"`
	MaxTick int    `gorm:"not null"`
	Status  string `gorm:"size:16;not null"`
	Message string `gorm:"type:text;not null"`
}

// Route is a stored shipping corridor; Waypoints holds the ordered
// lon/lat pairs as JSON.
type Route struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"size:64;uniqueIndex;not null"`
	Waypoints string `gorm:"type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Path decodes the route waypoints.
func (r Route) Path() ([]geo.Point, error) {
	var path []geo.Point
	if err := json.Unmarshal([]byte(r.Waypoints), &path); err != nil {
		return nil, fmt.Errorf("route %s waypoints: %w", r.Name, err)
	}
	return path, nil
}

// Setting represents a configuration setting stored in the database
type Setting struct {
	ID     uint8  `gorm:"primaryKey"`
	Name   string `gorm:"size:32;not null"`
	Value  string `gorm:"type:text;not null"`
	Active uint8  `gorm:"not null"`
}
