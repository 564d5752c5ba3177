package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/stratum-ops/opsdeck/src/config"
	"github.com/stratum-ops/opsdeck/src/console/adapter"
	"github.com/stratum-ops/opsdeck/src/console/resolver"
	"github.com/stratum-ops/opsdeck/src/console/session"
	"github.com/stratum-ops/opsdeck/src/core"
	"github.com/stratum-ops/opsdeck/src/data"
	"github.com/stratum-ops/opsdeck/src/telemetry"
	"github.com/stratum-ops/opsdeck/src/webserver"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()

	db := data.MustMySQL(cfg.MySQLDSN)
	if err := data.Migrate(db); err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := data.Seed(db); err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := data.LoadSettings(db); err != nil {
		log.Printf("db: settings: %v", err)
	}

	rdb := data.MustRedis(cfg.RedisURL)

	table, err := data.LoadTimeline(db)
	if err != nil {
		log.Fatalf("db: %v", err)
	}

	sentinel, err := adapter.NewSentinelClient(adapter.SentinelConfig{
		BaseURL: cfg.SentinelURL,
		APIKey:  cfg.SentinelKey,
		Timeout: cfg.AnalyzerTimeout,
	})
	if err != nil {
		log.Fatalf("sentinel client: %v", err)
	}
	hedge, err := adapter.NewHedgeClient(adapter.HedgeConfig{
		BaseURL: cfg.HedgeURL,
		APIKey:  cfg.HedgeKey,
		Timeout: cfg.AnalyzerTimeout,
	})
	if err != nil {
		log.Fatalf("hedge client: %v", err)
	}

	hub := telemetry.NewHub()

	channel := cfg.DiscordChannel
	if channel == "" {
		channel = data.GetSetting("discord_alert_channel")
	}
	notifier, err := telemetry.NewAlertNotifier(cfg.DiscordToken, channel)
	if err != nil {
		log.Fatalf("discord: %v", err)
	}

	sess := session.New(session.Config{
		Resolver:     resolver.New(resolver.Options{Ungated: cfg.Ungated, Table: table}),
		Signal:       sentinel,
		Hedge:        hedge,
		Sinks:        []session.Sink{hub, data.NewSnapshotPublisher(rdb), notifier},
		TickInterval: cfg.TickInterval,
		RunTimeout:   cfg.AnalyzerTimeout,
	})
	defer sess.Close()

	router := webserver.New(cfg, db, rdb, sess, hub)
	manager := core.NewManager(hub, notifier, webserver.NewServer(cfg.Port, router))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := manager.Start(ctx); err != nil {
		log.Fatalf("start: %v", err)
	}

	// Wait for termination
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	// Stop the snapshot producer before the transports drain.
	sess.Close()
	manager.Stop(ctx)
}
