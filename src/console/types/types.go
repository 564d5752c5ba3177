package types

import (
	"fmt"
	"math"
)

// AgentID identifies one of the five console agents. The set is closed;
// agents are never added or removed at runtime.
type AgentID string

const (
	AgentMarketSentinel AgentID = "market_sentinel"
	AgentRiskHedger     AgentID = "risk_hedger"
	AgentLogistics      AgentID = "logistics"
	AgentCompliance     AgentID = "compliance"
	AgentDebate         AgentID = "debate"
)

// AllAgents returns the five agent ids in display order. Every snapshot
// contains exactly these ids in exactly this order.
func AllAgents() []AgentID {
	return []AgentID{
		AgentMarketSentinel,
		AgentRiskHedger,
		AgentLogistics,
		AgentCompliance,
		AgentDebate,
	}
}

// IsValid reports whether id is one of the five known agents.
func (id AgentID) IsValid() bool {
	switch id {
	case AgentMarketSentinel, AgentRiskHedger, AgentLogistics, AgentCompliance, AgentDebate:
		return true
	default:
		return false
	}
}

// Gated reports whether the agent requires an explicit operator selection
// before real analyzer data is shown. Only the two analyzer-backed agents
// are gated.
func (id AgentID) Gated() bool {
	return id == AgentMarketSentinel || id == AgentRiskHedger
}

func (id AgentID) String() string { return string(id) }

// AgentStatus is the display state of a single agent. Statuses are not
// ordered: real analyzer data can move an agent from completed back to
// alert and vice versa.
type AgentStatus string

const (
	StatusIdle      AgentStatus = "idle"
	StatusThinking  AgentStatus = "thinking"
	StatusAlert     AgentStatus = "alert"
	StatusCompleted AgentStatus = "completed"
)

// IsValid reports whether s is a recognized status.
func (s AgentStatus) IsValid() bool {
	switch s {
	case StatusIdle, StatusThinking, StatusAlert, StatusCompleted:
		return true
	default:
		return false
	}
}

// Severity is the ordinal risk level attached to analyzer findings. The
// same scale serves both signal severity and risk urgency.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Elevated reports whether the level should surface as an alert.
func (s Severity) Elevated() bool {
	return s == SeverityCritical || s == SeverityHigh
}

// AgentRecord is one agent's line in a snapshot. Status and message are
// always set together; no code path produces one without the other.
type AgentRecord struct {
	ID      AgentID     `json:"id"`
	Status  AgentStatus `json:"status"`
	Message string      `json:"message"`
}

// Banner is the detail panel derived from the selected agent's payload.
type Banner struct {
	AgentID AgentID `json:"agentId"`
	Content string  `json:"content"`
}

// Snapshot is the full console state handed to the rendering layer: the
// five agent records in fixed order plus the optional detail banner.
// It carries no wall-clock fields so identical inputs produce identical
// snapshots.
type Snapshot struct {
	Tick   int           `json:"tick"`
	Agents []AgentRecord `json:"agents"`
	Banner *Banner       `json:"banner,omitempty"`
	Digest string        `json:"digest,omitempty"`
}

// SignalPacket is a structured market/geopolitical risk finding produced
// by the market-sentinel analyzer.
type SignalPacket struct {
	SignalID            string   `json:"signal_id"`
	Severity            Severity `json:"severity"`
	Confidence          float64  `json:"confidence"`
	Summary             string   `json:"summary"`
	AffectedLanes       []string `json:"affected_lanes"`
	Entities            []string `json:"entities"`
	ExpectedHorizonDays int      `json:"expected_horizon_days"`
}

// RiskAssessment is the hedge analyzer's portfolio view.
type RiskAssessment struct {
	Urgency          Severity `json:"urgency"`
	TotalExposureUSD float64  `json:"total_exposure_usd"`
	TotalVaR95USD    float64  `json:"total_var_95_usd"`
	MarketRegime     string   `json:"market_regime"`
}

// FuelHedging carries the fuel book leg of a hedge recommendation.
type FuelHedging struct {
	HedgeRatio string `json:"hedge_ratio"`
}

// HedgeRecommendation is the hedge analyzer's suggested adjustment.
type HedgeRecommendation struct {
	Regime      string       `json:"regime"`
	FuelHedging *FuelHedging `json:"fuel_hedging,omitempty"`
}

// HedgePayload bundles the hedge analyzer outputs. At least one of the
// two fields is present on a successful run.
type HedgePayload struct {
	Assessment     *RiskAssessment      `json:"risk_assessment,omitempty"`
	Recommendation *HedgeRecommendation `json:"hedge_recommendation,omitempty"`
}

// ExecutionPhase tracks the operator-driven reroute execution.
type ExecutionPhase string

const (
	PhasePending   ExecutionPhase = "pending"
	PhaseExecuting ExecutionPhase = "executing"
	PhaseComplete  ExecutionPhase = "complete"
)

// IsValid reports whether p is a recognized phase. The zero value is
// treated as pending by consumers.
func (p ExecutionPhase) IsValid() bool {
	switch p {
	case PhasePending, PhaseExecuting, PhaseComplete:
		return true
	default:
		return false
	}
}

// Context carries the operator-driven inputs that shape the logistics and
// debate derivations. All fields are optional; the zero value means no
// contextual state exists.
type Context struct {
	SelectedRoute  string         `json:"selectedRoute,omitempty"`
	ExecutionPhase ExecutionPhase `json:"executionPhase,omitempty"`
	CotActive      bool           `json:"cotActive,omitempty"`
	DebateCount    int            `json:"debateCount,omitempty"`
}

// FormatPercent renders a [0,1] fraction the way the console displays
// confidence figures: the percentage rounded half away from zero, so
// 0.847 renders as "85%".
func FormatPercent(v float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(v*100)))
}

// FormatUSDMillions renders a dollar amount in millions with two
// decimals, e.g. 1234567.0 -> "$1.23M".
func FormatUSDMillions(v float64) string {
	return fmt.Sprintf("$%.2fM", v/1e6)
}
