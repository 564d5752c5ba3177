package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stratum-ops/opsdeck/src/console/types"
	"github.com/stratum-ops/opsdeck/src/webclient"
)

// HedgeConfig configures the risk-hedger analyzer client.
type HedgeConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// HedgeClient calls the hedge analyzer. The analyzer exposes the
// portfolio assessment and the hedge recommendation on separate
// endpoints; one run fetches both concurrently and tolerates either
// being absent, as long as one is present.
type HedgeClient struct {
	cfg        HedgeConfig
	httpClient *http.Client
}

// NewHedgeClient constructs a hedge client.
func NewHedgeClient(cfg HedgeConfig) (*HedgeClient, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("hedge: base URL not configured")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultAnalyzerTimeout
	}
	return &HedgeClient{
		cfg:        cfg,
		httpClient: webclient.NewDefault(timeout),
	}, nil
}

type assessmentResponse struct {
	Assessment *types.RiskAssessment `json:"risk_assessment"`
}

type recommendationResponse struct {
	Recommendation *types.HedgeRecommendation `json:"hedge_recommendation"`
}

// Fetch runs one hedge analysis. A transport or HTTP error on either leg
// fails the whole run; a leg answering without its payload field simply
// contributes nothing. Both legs empty returns ErrMalformedPayload.
func (c *HedgeClient) Fetch(ctx context.Context) (types.HedgePayload, error) {
	var payload types.HedgePayload

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var decoded assessmentResponse
		if err := c.get(gctx, "/v1/assessment", &decoded); err != nil {
			return err
		}
		payload.Assessment = decoded.Assessment
		return nil
	})
	g.Go(func() error {
		var decoded recommendationResponse
		if err := c.get(gctx, "/v1/recommendation", &decoded); err != nil {
			return err
		}
		payload.Recommendation = decoded.Recommendation
		return nil
	})
	if err := g.Wait(); err != nil {
		return types.HedgePayload{}, err
	}

	if payload.Assessment == nil && payload.Recommendation == nil {
		return types.HedgePayload{}, ErrMalformedPayload
	}

	if payload.Assessment != nil {
		cleaned := *payload.Assessment
		cleaned.MarketRegime = cleanText(cleaned.MarketRegime)
		payload.Assessment = &cleaned
	}
	if payload.Recommendation != nil {
		cleaned := *payload.Recommendation
		cleaned.Regime = cleanText(cleaned.Regime)
		if cleaned.FuelHedging != nil {
			fuel := *cleaned.FuelHedging
			fuel.HedgeRatio = cleanText(fuel.HedgeRatio)
			cleaned.FuelHedging = &fuel
		}
		payload.Recommendation = &cleaned
	}
	return payload, nil
}

func (c *HedgeClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("hedge: build request: %w", err)
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hedge: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("hedge: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("hedge: analyzer returned status %d on %s", resp.StatusCode, path)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("hedge: decode %s: %w", path, err)
	}
	return nil
}
