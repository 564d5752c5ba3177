// console-smoketest walks the crisis scenario offline: a fast clock, the
// built-in scripted timeline and canned analyzer payloads, printed per
// tick. No network, database or Redis required.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/stratum-ops/opsdeck/src/console/resolver"
	"github.com/stratum-ops/opsdeck/src/console/session"
	"github.com/stratum-ops/opsdeck/src/console/types"
	"github.com/stratum-ops/opsdeck/src/geo"
)

var (
	ticksFlag    = flag.Int("ticks", 60, "Number of ticks to walk")
	intervalFlag = flag.Duration("interval", 25*time.Millisecond, "Tick interval")
	ungatedFlag  = flag.Bool("ungated", false, "Disable the selection gate")
	runAtFlag    = flag.Int("run-at", 12, "Tick at which market_sentinel runs (-1=never)")
	hedgeAtFlag  = flag.Int("hedge-at", 20, "Tick at which risk_hedger runs (-1=never)")
	routeAtFlag  = flag.Int("route-at", 32, "Tick at which a reroute is set (-1=never)")
	delayFlag    = flag.Duration("analyzer-delay", 80*time.Millisecond, "Canned analyzer latency")
	failFlag     = flag.Bool("fail-hedge", false, "Make the hedge analyzer fail")
)

func main() {
	log.SetFlags(0)
	flag.Parse()

	sink := &printSink{}
	sess := session.New(session.Config{
		Resolver:     resolver.New(resolver.Options{Ungated: *ungatedFlag}),
		Signal:       cannedSignal{delay: *delayFlag},
		Hedge:        cannedHedge{delay: *delayFlag, fail: *failFlag},
		Sinks:        []session.Sink{sink},
		TickInterval: *intervalFlag,
		RunTimeout:   5 * time.Second,
	})
	defer sess.Close()

	sess.Start()

	ranSentinel, ranHedger, routed := false, false, false
	for {
		snap := sess.Snapshot()
		if snap.Tick >= *ticksFlag {
			break
		}
		if *runAtFlag >= 0 && !ranSentinel && snap.Tick >= *runAtFlag {
			ranSentinel = true
			if err := sess.RunAgent(types.AgentMarketSentinel); err != nil {
				log.Fatalf("run market_sentinel: %v", err)
			}
		}
		if *hedgeAtFlag >= 0 && !ranHedger && snap.Tick >= *hedgeAtFlag {
			ranHedger = true
			if err := sess.RunAgent(types.AgentRiskHedger); err != nil {
				log.Fatalf("run risk_hedger: %v", err)
			}
		}
		if *routeAtFlag >= 0 && !routed && snap.Tick >= *routeAtFlag {
			routed = true
			sess.SetContext(types.Context{
				SelectedRoute:  "yokohama-losangeles",
				ExecutionPhase: types.PhaseExecuting,
				CotActive:      true,
				DebateCount:    2,
			})
		}
		time.Sleep(*intervalFlag / 4)
	}
	sess.Stop()

	pacific := []geo.Point{
		{Lon: 139.65, Lat: 35.45}, {Lon: 170.00, Lat: 47.00},
		{Lon: -175.00, Lat: 50.50}, {Lon: -118.27, Lat: 33.73},
	}
	dense := geo.Densify(pacific, 50)
	fmt.Printf("geo: pacific corridor densified to %d points, %.0f nm total\n",
		len(dense), geo.PathLengthNm(dense))
}

// printSink prints each snapshot whose content differs from the previous
// one. It runs on the session's single pump goroutine.
type printSink struct {
	last string
}

func (p *printSink) Publish(snap types.Snapshot) {
	if snap.Digest == p.last {
		return
	}
	p.last = snap.Digest

	fmt.Printf("tick %2d  digest %s\n", snap.Tick, snap.Digest)
	for _, rec := range snap.Agents {
		fmt.Printf("  %-16s %-10s %s\n", rec.ID, rec.Status, rec.Message)
	}
	if snap.Banner != nil {
		fmt.Printf("  banner [%s] %s\n", snap.Banner.AgentID, snap.Banner.Content)
	}
}

type cannedSignal struct {
	delay time.Duration
}

func (c cannedSignal) Fetch(ctx context.Context) (*types.SignalPacket, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(c.delay):
	}
	return &types.SignalPacket{
		SignalID:            "sig-demo-001",
		Severity:            types.SeverityCritical,
		Confidence:          0.847,
		Summary:             "War-risk premiums spiking across monitored lanes",
		AffectedLanes:       []string{"suez-rotterdam", "hormuz-singapore", "yokohama-losangeles"},
		Entities:            []string{"Maersk", "MSC", "CMA CGM", "Hapag-Lloyd"},
		ExpectedHorizonDays: 12,
	}, nil
}

type cannedHedge struct {
	delay time.Duration
	fail  bool
}

func (c cannedHedge) Fetch(ctx context.Context) (types.HedgePayload, error) {
	select {
	case <-ctx.Done():
		return types.HedgePayload{}, ctx.Err()
	case <-time.After(c.delay):
	}
	if c.fail {
		return types.HedgePayload{}, errors.New("risk engine unavailable")
	}
	return types.HedgePayload{
		Assessment: &types.RiskAssessment{
			Urgency:          types.SeverityHigh,
			TotalExposureUSD: 12_500_000,
			TotalVaR95USD:    3_400_000,
			MarketRegime:     "risk-off",
		},
		Recommendation: &types.HedgeRecommendation{
			Regime:      "risk-off",
			FuelHedging: &types.FuelHedging{HedgeRatio: "0.65"},
		},
	}, nil
}
