package resolver

import (
	"fmt"
	"strings"

	"github.com/stratum-ops/opsdeck/src/console/adapter"
	"github.com/stratum-ops/opsdeck/src/console/types"
)

// Banner picks the detail banner for the current selection. Only the
// selected agent can own the banner, and only once its analyzer has
// succeeded; switching selection hides the previous agent's banner even
// though its payload is still held.
func Banner(selection types.AgentID, signal adapter.SignalResult, hedge adapter.HedgeResult) *types.Banner {
	switch selection {
	case types.AgentMarketSentinel:
		if signal.State() != adapter.StateSucceeded {
			return nil
		}
		return &types.Banner{AgentID: selection, Content: signalBanner(signal.Payload())}
	case types.AgentRiskHedger:
		if hedge.State() != adapter.StateSucceeded {
			return nil
		}
		return &types.Banner{AgentID: selection, Content: hedgeBanner(hedge.Payload())}
	}
	return nil
}

func signalBanner(p *types.SignalPacket) string {
	parts := []string{
		fmt.Sprintf("[%s] %s", p.Severity, p.Summary),
		fmt.Sprintf("Confidence %s", types.FormatPercent(p.Confidence)),
		fmt.Sprintf("%d affected lanes, %d entities", len(p.AffectedLanes), len(p.Entities)),
	}
	if p.ExpectedHorizonDays > 0 {
		parts = append(parts, fmt.Sprintf("Horizon %dd", p.ExpectedHorizonDays))
	}
	return strings.Join(parts, " | ")
}

func hedgeBanner(p types.HedgePayload) string {
	var parts []string
	if a := p.Assessment; a != nil {
		parts = append(parts,
			fmt.Sprintf("[%s] Exposure %s", a.Urgency, types.FormatUSDMillions(a.TotalExposureUSD)),
			fmt.Sprintf("VaR(95) %s", types.FormatUSDMillions(a.TotalVaR95USD)),
			fmt.Sprintf("Regime %s", a.MarketRegime))
	}
	if rec := p.Recommendation; rec != nil {
		if p.Assessment == nil {
			parts = append(parts, fmt.Sprintf("Hedge recommendation: regime %s", rec.Regime))
		}
		if rec.FuelHedging != nil {
			parts = append(parts, fmt.Sprintf("Fuel hedge ratio %s", rec.FuelHedging.HedgeRatio))
		}
	}
	return strings.Join(parts, " | ")
}
