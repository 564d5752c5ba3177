// Package resolver turns the engine inputs (tick, adapter states,
// selection, operator context) into the five-agent snapshot. Resolution
// is a pure function: identical inputs always produce identical records,
// so the engine can recompute the whole snapshot on every change without
// accumulating drift.
package resolver

import (
	"fmt"

	"github.com/stratum-ops/opsdeck/src/console/adapter"
	"github.com/stratum-ops/opsdeck/src/console/timeline"
	"github.com/stratum-ops/opsdeck/src/console/types"
)

// SelectToRunMessage is shown for gated agents awaiting operator
// selection.
const SelectToRunMessage = "Select to run live analysis"

// Options configure a Resolver.
type Options struct {
	// Ungated disables the selection gate: analyzer-backed agents show
	// real data without an operator arming them first. The default
	// (gated) deployment keeps unselected analyzer agents idle.
	Ungated bool
	// Table overrides the scripted fallback schedule; nil selects the
	// canonical built-in scenario.
	Table *timeline.Table
}

// Resolver resolves agent records. It holds only immutable configuration;
// all per-call state arrives as arguments.
type Resolver struct {
	table   *timeline.Table
	ungated bool
}

// New builds a Resolver from options.
func New(opts Options) *Resolver {
	table := opts.Table
	if table == nil {
		table = timeline.Canonical()
	}
	return &Resolver{table: table, ungated: opts.Ungated}
}

// Resolve computes the full ordered snapshot records for one instant.
// Each agent is resolved independently through the same priority ladder:
// selection gate, then adapter state (loading, failed, succeeded), then
// contextual derivation, then the scripted timeline.
func (r *Resolver) Resolve(tick int, signal adapter.SignalResult, hedge adapter.HedgeResult, selection types.AgentID, ctx types.Context) []types.AgentRecord {
	cycleTick := timeline.TickInCycle(tick)
	records := make([]types.AgentRecord, 0, 5)
	for _, id := range types.AllAgents() {
		var rec types.AgentRecord
		switch id {
		case types.AgentMarketSentinel:
			rec = r.resolveSentinel(cycleTick, signal, selection)
		case types.AgentRiskHedger:
			rec = r.resolveHedger(cycleTick, hedge, selection)
		case types.AgentLogistics:
			rec = r.resolveLogistics(cycleTick, ctx)
		case types.AgentCompliance:
			rec = r.scripted(types.AgentCompliance, cycleTick)
		case types.AgentDebate:
			rec = r.resolveDebate(cycleTick, ctx)
		}
		records = append(records, rec)
	}
	return records
}

func (r *Resolver) resolveSentinel(cycleTick int, signal adapter.SignalResult, selection types.AgentID) types.AgentRecord {
	id := types.AgentMarketSentinel
	if !r.ungated && selection != id {
		return types.AgentRecord{ID: id, Status: types.StatusIdle, Message: SelectToRunMessage}
	}
	switch signal.State() {
	case adapter.StateLoading:
		return types.AgentRecord{ID: id, Status: types.StatusThinking, Message: "Analyzing live market signals..."}
	case adapter.StateFailed:
		return types.AgentRecord{ID: id, Status: types.StatusAlert, Message: "Error: " + signal.Err()}
	case adapter.StateSucceeded:
		packet := signal.Payload()
		return types.AgentRecord{ID: id, Status: statusForSeverity(packet.Severity), Message: signalMessage(packet)}
	}
	return r.scripted(id, cycleTick)
}

func (r *Resolver) resolveHedger(cycleTick int, hedge adapter.HedgeResult, selection types.AgentID) types.AgentRecord {
	id := types.AgentRiskHedger
	if !r.ungated && selection != id {
		return types.AgentRecord{ID: id, Status: types.StatusIdle, Message: SelectToRunMessage}
	}
	switch hedge.State() {
	case adapter.StateLoading:
		return types.AgentRecord{ID: id, Status: types.StatusThinking, Message: "Recalculating hedge coverage..."}
	case adapter.StateFailed:
		return types.AgentRecord{ID: id, Status: types.StatusAlert, Message: "Error: " + hedge.Err()}
	case adapter.StateSucceeded:
		status, message := hedgeOutcome(hedge.Payload())
		return types.AgentRecord{ID: id, Status: status, Message: message}
	}
	return r.scripted(id, cycleTick)
}

// resolveLogistics prefers the operator's reroute execution state over
// the scripted schedule. Logistics has no analyzer of its own.
func (r *Resolver) resolveLogistics(cycleTick int, ctx types.Context) types.AgentRecord {
	id := types.AgentLogistics
	if ctx.SelectedRoute == "" {
		return r.scripted(id, cycleTick)
	}
	switch ctx.ExecutionPhase {
	case types.PhaseComplete:
		return types.AgentRecord{ID: id, Status: types.StatusCompleted,
			Message: fmt.Sprintf("Route %s secured: rebooking complete", ctx.SelectedRoute)}
	case types.PhaseExecuting:
		return types.AgentRecord{ID: id, Status: types.StatusThinking,
			Message: fmt.Sprintf("Executing reroute via %s...", ctx.SelectedRoute)}
	default:
		return types.AgentRecord{ID: id, Status: types.StatusThinking,
			Message: fmt.Sprintf("Preparing execution plan for %s...", ctx.SelectedRoute)}
	}
}

// resolveDebate prefers the live deliberation state over the scripted
// schedule.
func (r *Resolver) resolveDebate(cycleTick int, ctx types.Context) types.AgentRecord {
	id := types.AgentDebate
	switch {
	case ctx.CotActive && ctx.DebateCount > 0:
		return types.AgentRecord{ID: id, Status: types.StatusThinking,
			Message: fmt.Sprintf("Stress-testing reroute plan (%d challenges raised)", ctx.DebateCount)}
	case ctx.CotActive:
		return types.AgentRecord{ID: id, Status: types.StatusThinking, Message: "Stress-testing reroute plan..."}
	case ctx.DebateCount > 0:
		return types.AgentRecord{ID: id, Status: types.StatusCompleted,
			Message: fmt.Sprintf("Debate complete: %d challenges resolved", ctx.DebateCount)}
	}
	return r.scripted(id, cycleTick)
}

func (r *Resolver) scripted(id types.AgentID, cycleTick int) types.AgentRecord {
	status, message := r.table.Lookup(id, cycleTick)
	return types.AgentRecord{ID: id, Status: status, Message: message}
}

func statusForSeverity(s types.Severity) types.AgentStatus {
	if s.Elevated() {
		return types.StatusAlert
	}
	return types.StatusCompleted
}

func signalMessage(p *types.SignalPacket) string {
	return fmt.Sprintf("%s severity signal: %d lanes, %d entities affected (confidence %s)",
		p.Severity, len(p.AffectedLanes), len(p.Entities), types.FormatPercent(p.Confidence))
}

// hedgeOutcome maps a hedge payload to status and message. A payload with
// only a recommendation has no urgency to escalate on, so it completes.
func hedgeOutcome(p types.HedgePayload) (types.AgentStatus, string) {
	if p.Assessment != nil {
		a := p.Assessment
		msg := fmt.Sprintf("%s urgency: exposure %s, VaR(95) %s, regime %s",
			a.Urgency, types.FormatUSDMillions(a.TotalExposureUSD),
			types.FormatUSDMillions(a.TotalVaR95USD), a.MarketRegime)
		if ratio := hedgeRatio(p.Recommendation); ratio != "" {
			msg += fmt.Sprintf(", fuel hedge ratio %s", ratio)
		}
		return statusForSeverity(a.Urgency), msg
	}

	rec := p.Recommendation
	msg := fmt.Sprintf("Hedge recommendation ready: regime %s", rec.Regime)
	if ratio := hedgeRatio(rec); ratio != "" {
		msg += fmt.Sprintf(", fuel hedge ratio %s", ratio)
	}
	return types.StatusCompleted, msg
}

func hedgeRatio(rec *types.HedgeRecommendation) string {
	if rec == nil || rec.FuelHedging == nil {
		return ""
	}
	return rec.FuelHedging.HedgeRatio
}
