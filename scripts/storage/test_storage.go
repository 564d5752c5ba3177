// Storage-layer probe: migrates and seeds MySQL, reads the scenario and
// routes back, and round-trips one frame through the Redis stream.
//
// Run from repo root:
//
//	go run ./scripts/storage/test_storage.go
//
// Environment:
//
//	MYSQL_DSN – MySQL DSN (default opsdeck:opsdeck@tcp(127.0.0.1:3306)/opsdeck)
//	REDIS_URL – redis URL (default redis://127.0.0.1:6379/0)
package main

import (
	"context"
	"log"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/stratum-ops/opsdeck/src/console/types"
	"github.com/stratum-ops/opsdeck/src/data"
	"github.com/stratum-ops/opsdeck/src/geo"
)

var (
	mysqlDSN = getenv("MYSQL_DSN", "opsdeck:opsdeck@tcp(127.0.0.1:3306)/opsdeck")
	redisURL = getenv("REDIS_URL", "redis://127.0.0.1:6379/0")
)

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func main() {
	db, err := data.ConnectMySQL(mysqlDSN)
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}
	if err := data.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	if err := data.Seed(db); err != nil {
		log.Fatalf("seed: %v", err)
	}

	table, err := data.LoadTimeline(db)
	if err != nil {
		log.Fatalf("timeline: %v", err)
	}
	log.Printf("scenario at tick 20:")
	for _, id := range types.AllAgents() {
		status, message := table.Lookup(id, 20)
		log.Printf("  %-16s %-10s %s", id, status, message)
	}

	routes, err := data.LoadRoutes(db)
	if err != nil {
		log.Fatalf("routes: %v", err)
	}
	log.Printf("routes:")
	for _, r := range routes {
		path, err := r.Path()
		if err != nil {
			log.Fatalf("route %s: %v", r.Name, err)
		}
		dense := geo.Densify(path, 50)
		log.Printf("  %-22s %d waypoints -> %d points, %.1f nm",
			r.Name, len(path), len(dense), geo.PathLengthNm(path))
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatalf("redis url: %v", err)
	}
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	ctx := context.Background()
	probe := types.Snapshot{
		Tick: 0,
		Agents: []types.AgentRecord{
			{ID: types.AgentMarketSentinel, Status: types.StatusIdle, Message: "storage probe"},
		},
		Digest: "probe",
	}
	if err := data.PublishSnapshot(ctx, rdb, probe); err != nil {
		log.Fatalf("stream publish: %v", err)
	}
	n, err := rdb.XLen(ctx, "opsdeck.snapshots").Result()
	if err != nil {
		log.Fatalf("stream length: %v", err)
	}
	log.Printf("snapshot stream length: %d", n)

	log.Printf("storage probe complete")
}
