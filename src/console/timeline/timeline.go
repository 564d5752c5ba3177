// Package timeline holds the scripted fallback schedule that drives agent
// states whenever no real analyzer data exists. The schedule repeats on a
// fixed cycle so a demo session can run indefinitely.
package timeline

import (
	"sort"

	"github.com/stratum-ops/opsdeck/src/console/types"
)

// CycleLength is the length of the repeating scripted cycle in ticks.
const CycleLength = 60

// TickInCycle maps an absolute tick onto the repeating cycle.
func TickInCycle(tick int) int {
	if tick < 0 {
		return 0
	}
	return tick % CycleLength
}

// Rule states that an agent shows Status/Message while the cycle tick is
// inside [MinTick, MaxTick).
type Rule struct {
	MinTick int
	MaxTick int
	Status  types.AgentStatus
	Message string
}

// Table is the per-agent rule set. Lookup scans rules from the highest
// MinTick down and takes the first window containing the tick: later
// windows in the scenario data are supersets meant to override earlier,
// narrower ones, so ties break by recency rather than storage order.
type Table struct {
	rules map[types.AgentID][]Rule
}

// New builds a table from per-agent rules. Input order is irrelevant;
// rules are kept sorted by MinTick descending.
func New(rules map[types.AgentID][]Rule) *Table {
	t := &Table{rules: make(map[types.AgentID][]Rule, len(rules))}
	for agent, rs := range rules {
		sorted := make([]Rule, len(rs))
		copy(sorted, rs)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].MinTick > sorted[j].MinTick
		})
		t.rules[agent] = sorted
	}
	return t
}

// Lookup resolves the scripted status and message for an agent at the
// given cycle tick. When no rule matches, the agent is idle with its
// standby message.
func (t *Table) Lookup(agent types.AgentID, tickInCycle int) (types.AgentStatus, string) {
	for _, r := range t.rules[agent] {
		if tickInCycle >= r.MinTick && tickInCycle < r.MaxTick {
			return r.Status, r.Message
		}
	}
	return types.StatusIdle, StandbyMessage(agent)
}

// Rules returns a copy of the stored rules for an agent, highest MinTick
// first. Used when seeding scenario storage.
func (t *Table) Rules(agent types.AgentID) []Rule {
	rs := t.rules[agent]
	out := make([]Rule, len(rs))
	copy(out, rs)
	return out
}

var standbyMessages = map[types.AgentID]string{
	types.AgentMarketSentinel: "Monitoring global trade signals",
	types.AgentRiskHedger:     "Standing by: portfolio within tolerance",
	types.AgentLogistics:      "Ready: fleet schedule nominal",
	types.AgentCompliance:     "Awaiting route proposals",
	types.AgentDebate:         "Ready to challenge proposals",
}

// StandbyMessage returns the default idle message for an agent.
func StandbyMessage(agent types.AgentID) string {
	if msg, ok := standbyMessages[agent]; ok {
		return msg
	}
	return "Standing by"
}

// Canonical returns the built-in demo scenario. The tick windows are load
// bearing: scenario walkthroughs reference them, so changes here must be
// mirrored in any stored scenario.
func Canonical() *Table {
	return New(map[types.AgentID][]Rule{
		types.AgentMarketSentinel: {
			{MinTick: 0, MaxTick: 5, Status: types.StatusIdle, Message: "Monitoring global trade signals"},
			{MinTick: 5, MaxTick: 15, Status: types.StatusThinking, Message: "Scanning maritime corridors for anomalies..."},
			{MinTick: 15, MaxTick: 60, Status: types.StatusAlert, Message: "Detected 47% increase in war-risk premiums across monitored lanes"},
		},
		types.AgentRiskHedger: {
			{MinTick: 0, MaxTick: 15, Status: types.StatusIdle, Message: "Standing by: portfolio within tolerance"},
			{MinTick: 15, MaxTick: 25, Status: types.StatusAlert, Message: "CRITICAL: elevated risk exposure on affected lanes"},
			{MinTick: 25, MaxTick: 35, Status: types.StatusThinking, Message: "Analyzing hedge positions across fuel and FX books..."},
			{MinTick: 35, MaxTick: 60, Status: types.StatusCompleted, Message: "Hedge recalculated: coverage restored to target"},
		},
		types.AgentLogistics: {
			{MinTick: 0, MaxTick: 28, Status: types.StatusIdle, Message: "Ready: fleet schedule nominal"},
			{MinTick: 28, MaxTick: 40, Status: types.StatusThinking, Message: "Negotiating alternative capacity with carriers..."},
			{MinTick: 40, MaxTick: 60, Status: types.StatusCompleted, Message: "Secured capacity on 3 alternative routings"},
		},
		types.AgentCompliance: {
			{MinTick: 0, MaxTick: 30, Status: types.StatusIdle, Message: "Awaiting route proposals"},
			{MinTick: 30, MaxTick: 38, Status: types.StatusThinking, Message: "Checking sanctions lists for proposed counterparties..."},
			{MinTick: 38, MaxTick: 60, Status: types.StatusCompleted, Message: "All proposed routings validated"},
		},
		types.AgentDebate: {
			{MinTick: 0, MaxTick: 40, Status: types.StatusIdle, Message: "Ready to challenge proposals"},
			{MinTick: 40, MaxTick: 50, Status: types.StatusThinking, Message: "Challenging cost assumptions in reroute plan..."},
			{MinTick: 50, MaxTick: 60, Status: types.StatusCompleted, Message: "Raised cost estimate concern on reroute plan"},
		},
	})
}
