package data

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"github.com/stratum-ops/opsdeck/src/console/timeline"
	"github.com/stratum-ops/opsdeck/src/console/types"
	"github.com/stratum-ops/opsdeck/src/geo"
	"gorm.io/gorm"
)

var allModels = []interface{}{
	&ScenarioRule{}, &Route{}, &Setting{},
}

// Migrate brings the schema up to date.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(allModels...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// Seed installs the canonical scenario rules and the demo corridors when
// missing. Safe to run on every boot; existing rows are left alone.
func Seed(db *gorm.DB) error {
	table := timeline.Canonical()
	for _, agent := range types.AllAgents() {
		for _, rule := range table.Rules(agent) {
			err := db.Where(map[string]interface{}{
				"agent":    string(agent),
				"min_tick": rule.MinTick,
				"max_tick": rule.MaxTick,
			}).Attrs(map[string]interface{}{
				"status":  string(rule.Status),
				"message": rule.Message,
			}).FirstOrCreate(&ScenarioRule{}).Error
			if err != nil {
				return fmt.Errorf("seed scenario rule %s[%d,%d): %w", agent, rule.MinTick, rule.MaxTick, err)
			}
		}
	}

	for _, route := range demoRoutes() {
		var existing Route
		err := db.Where("name = ?", route.Name).
			Attrs(Route{Waypoints: route.Waypoints}).
			FirstOrCreate(&existing).Error
		if err != nil {
			return fmt.Errorf("seed route %s: %w", route.Name, err)
		}
	}
	return nil
}

// demoRoutes builds the two demo corridors. The Pacific corridor crosses
// the antimeridian on purpose.
func demoRoutes() []Route {
	corridors := []struct {
		name string
		path []geo.Point // lon, lat
	}{
		{"suez-rotterdam", []geo.Point{
			{Lon: 32.58, Lat: 29.93}, {Lon: 32.30, Lat: 31.26},
			{Lon: 14.20, Lat: 35.90}, {Lon: -5.35, Lat: 36.14},
			{Lon: -9.90, Lat: 38.60}, {Lon: -5.00, Lat: 48.45},
			{Lon: 3.97, Lat: 51.95},
		}},
		{"yokohama-losangeles", []geo.Point{
			{Lon: 139.65, Lat: 35.45}, {Lon: 153.00, Lat: 40.00},
			{Lon: 170.00, Lat: 47.00}, {Lon: -175.00, Lat: 50.50},
			{Lon: -155.00, Lat: 52.00}, {Lon: -135.00, Lat: 45.00},
			{Lon: -118.27, Lat: 33.73},
		}},
	}

	routes := make([]Route, 0, len(corridors))
	for _, c := range corridors {
		body, err := json.Marshal(c.path)
		if err != nil {
			log.Fatalf("data: marshal corridor %s: %v", c.name, err)
		}
		routes = append(routes, Route{Name: c.name, Waypoints: string(body)})
	}
	return routes
}

// LoadTimeline builds the scripted table from stored scenario rules. An
// empty table falls back to the built-in canonical scenario; rows naming
// unknown agents or statuses are skipped.
func LoadTimeline(db *gorm.DB) (*timeline.Table, error) {
	var rows []ScenarioRule
	if err := db.Order("agent, min_tick").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load scenario rules: %w", err)
	}
	if len(rows) == 0 {
		return timeline.Canonical(), nil
	}

	rules := make(map[types.AgentID][]timeline.Rule)
	for _, row := range rows {
		agent := types.AgentID(row.Agent)
		status := types.AgentStatus(row.Status)
		if !agent.IsValid() || !status.IsValid() {
			log.Printf("data: skipping scenario rule %d (agent %q, status %q)", row.ID, row.Agent, row.Status)
			continue
		}
		rules[agent] = append(rules[agent], timeline.Rule{
			MinTick: row.MinTick,
			MaxTick: row.MaxTick,
			Status:  status,
			Message: row.Message,
		})
	}
	return timeline.New(rules), nil
}

// LoadRoutes returns all stored corridors ordered by name.
func LoadRoutes(db *gorm.DB) ([]Route, error) {
	var routes []Route
	if err := db.Order("name").Find(&routes).Error; err != nil {
		return nil, fmt.Errorf("load routes: %w", err)
	}
	return routes, nil
}

// FindRoute fetches one corridor by numeric id or by name.
func FindRoute(db *gorm.DB, id string) (*Route, error) {
	q := db.Where("name = ?", id)
	if n, err := strconv.ParseUint(id, 10, 64); err == nil {
		q = db.Where("id = ?", n)
	}
	var route Route
	if err := q.First(&route).Error; err != nil {
		return nil, err
	}
	return &route, nil
}
