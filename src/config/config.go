// Package config reads the service configuration from the environment.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config carries everything the service reads at boot.
type Config struct {
	MySQLDSN   string
	RedisURL   string
	Port       string
	CORSOrigin string

	JWTSecret   string
	OperatorKey string

	SentinelURL string
	SentinelKey string
	HedgeURL    string
	HedgeKey    string

	AnalyzerTimeout time.Duration
	TickInterval    time.Duration
	Ungated         bool

	DiscordToken   string
	DiscordChannel string
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		if def == "" {
			log.Fatalf("missing env %s", key)
		}
		return def
	}
	return v
}

// Load reads the environment. Optional integrations (Discord, analyzer
// API keys) may stay unset; everything else falls back to local demo
// defaults.
func Load() Config {
	timeoutSec, _ := strconv.Atoi(getenv("ANALYZER_TIMEOUT_SECONDS", "45"))
	tickMS, _ := strconv.Atoi(getenv("TICK_INTERVAL_MS", "1000"))
	ungated, _ := strconv.ParseBool(getenv("SELECTION_UNGATED", "false"))

	return Config{
		MySQLDSN:        getenv("MYSQL_DSN", "opsdeck:opsdeck@tcp(127.0.0.1:3306)/opsdeck"),
		RedisURL:        getenv("REDIS_URL", "redis://127.0.0.1:6379/0"),
		Port:            getenv("PORT", "8080"),
		CORSOrigin:      getenv("CORS_ORIGIN", "http://localhost:3000"),
		JWTSecret:       getenv("JWT_SECRET", "c1a4c52cf1f9dbb822a4dbd201104e3f6bd64995f3f30b0ba835f35c6e4f174d"),
		OperatorKey:     getenv("OPERATOR_KEY", "5c7b0a4f6e2d49c3a6a1f4edbb1a0d9241b34c2f9d7e8a1b3c5d7f90214e6a8c"),
		SentinelURL:     getenv("SENTINEL_URL", "http://127.0.0.1:8091"),
		SentinelKey:     os.Getenv("SENTINEL_API_KEY"),
		HedgeURL:        getenv("HEDGE_URL", "http://127.0.0.1:8092"),
		HedgeKey:        os.Getenv("HEDGE_API_KEY"),
		AnalyzerTimeout: time.Duration(timeoutSec) * time.Second,
		TickInterval:    time.Duration(tickMS) * time.Millisecond,
		Ungated:         ungated,
		DiscordToken:    os.Getenv("DISCORD_TOKEN"),
		DiscordChannel:  os.Getenv("DISCORD_CHANNEL_ID"),
	}
}
