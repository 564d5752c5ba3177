package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/stratum-ops/opsdeck/src/console/types"
	"github.com/stratum-ops/opsdeck/src/webclient"
)

// ErrMalformedPayload marks an analyzer response that decoded but lacked
// the expected payload field. Callers treat it as "no data yet" and fall
// back to scripted state rather than surfacing an error.
var ErrMalformedPayload = errors.New("adapter: malformed analyzer payload")

const defaultAnalyzerTimeout = 45 * time.Second

// SentinelConfig configures the market-sentinel analyzer client.
type SentinelConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// SentinelClient calls the market-sentinel analyzer. A run is a single
// request: retries are an explicit operator action, never automatic.
type SentinelClient struct {
	cfg        SentinelConfig
	httpClient *http.Client
}

// NewSentinelClient constructs a sentinel client.
func NewSentinelClient(cfg SentinelConfig) (*SentinelClient, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("sentinel: base URL not configured")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultAnalyzerTimeout
	}
	return &SentinelClient{
		cfg:        cfg,
		httpClient: webclient.NewDefault(timeout),
	}, nil
}

type sentinelRequest struct {
	Scope string `json:"scope"`
}

type sentinelResponse struct {
	SignalPacket *types.SignalPacket `json:"signal_packet"`
}

// Fetch runs one analysis round trip and returns the signal packet.
// A decodable response without a signal_packet field returns
// ErrMalformedPayload.
func (c *SentinelClient) Fetch(ctx context.Context) (*types.SignalPacket, error) {
	body, _ := json.Marshal(sentinelRequest{Scope: "global_trade"})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("sentinel: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sentinel: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sentinel: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sentinel: analyzer returned status %d", resp.StatusCode)
	}

	var decoded sentinelResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("sentinel: decode response: %w", err)
	}
	if decoded.SignalPacket == nil {
		return nil, ErrMalformedPayload
	}

	packet := *decoded.SignalPacket
	packet.Summary = cleanText(packet.Summary)
	packet.AffectedLanes = cleanAll(packet.AffectedLanes)
	packet.Entities = cleanAll(packet.Entities)
	return &packet, nil
}
