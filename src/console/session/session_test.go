package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stratum-ops/opsdeck/src/console/adapter"
	"github.com/stratum-ops/opsdeck/src/console/resolver"
	"github.com/stratum-ops/opsdeck/src/console/timeline"
	"github.com/stratum-ops/opsdeck/src/console/types"
)

type signalOutcome struct {
	packet *types.SignalPacket
	err    error
}

// signalStub hands out one gate channel per Fetch call so tests control
// exactly when each analyzer run completes.
type signalStub struct {
	gates chan chan signalOutcome
}

func newSignalStub() *signalStub {
	return &signalStub{gates: make(chan chan signalOutcome, 8)}
}

func (s *signalStub) Fetch(ctx context.Context) (*types.SignalPacket, error) {
	gate := make(chan signalOutcome, 1)
	s.gates <- gate
	select {
	case out := <-gate:
		return out.packet, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *signalStub) nextRun(t *testing.T) chan signalOutcome {
	t.Helper()
	select {
	case gate := <-s.gates:
		return gate
	case <-time.After(2 * time.Second):
		t.Fatalf("analyzer run never started")
		return nil
	}
}

type hedgeStub struct {
	payload types.HedgePayload
	err     error
}

func (h *hedgeStub) Fetch(ctx context.Context) (types.HedgePayload, error) {
	return h.payload, h.err
}

type recordSink struct {
	mu    sync.Mutex
	snaps []types.Snapshot
}

func (r *recordSink) Publish(snap types.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, snap)
}

func (r *recordSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func waitFor(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", desc)
}

func agentRecord(t *testing.T, snap types.Snapshot, id types.AgentID) types.AgentRecord {
	t.Helper()
	for _, rec := range snap.Agents {
		if rec.ID == id {
			return rec
		}
	}
	t.Fatalf("agent %s missing from snapshot", id)
	return types.AgentRecord{}
}

func criticalPacket() *types.SignalPacket {
	return &types.SignalPacket{
		SignalID:   "sig-test-1",
		Severity:   types.SeverityCritical,
		Confidence: 0.9,
		Summary:    "Strait closure imminent",
	}
}

func TestInitialSnapshot(t *testing.T) {
	s := New(Config{})
	defer s.Close()

	snap := s.Snapshot()
	if snap.Tick != 0 {
		t.Fatalf("expected tick 0, got %d", snap.Tick)
	}
	if len(snap.Agents) != 5 {
		t.Fatalf("expected 5 agents, got %d", len(snap.Agents))
	}
	if snap.Banner != nil {
		t.Fatalf("expected no banner initially, got %+v", snap.Banner)
	}
	if snap.Digest == "" {
		t.Fatalf("expected non-empty digest")
	}
	if s.Running() {
		t.Fatalf("expected new session stopped")
	}

	rec := agentRecord(t, snap, types.AgentMarketSentinel)
	if rec.Status != types.StatusIdle || rec.Message != resolver.SelectToRunMessage {
		t.Fatalf("expected gated idle sentinel, got %s %q", rec.Status, rec.Message)
	}
}

func TestStartAdvancesAndStopFreezes(t *testing.T) {
	sink := &recordSink{}
	s := New(Config{TickInterval: 5 * time.Millisecond, Sinks: []Sink{sink}})
	defer s.Close()

	s.Start()
	if !s.Running() {
		t.Fatalf("expected running after Start")
	}
	waitFor(t, "tick to reach 3", func() bool { return s.Snapshot().Tick >= 3 })

	s.Stop()
	if s.Running() {
		t.Fatalf("expected stopped after Stop")
	}
	frozen := s.Snapshot().Tick
	time.Sleep(30 * time.Millisecond)
	if got := s.Snapshot().Tick; got != frozen {
		t.Fatalf("tick advanced after Stop: %d -> %d", frozen, got)
	}
	if sink.count() == 0 {
		t.Fatalf("expected published snapshots while running")
	}

	// Restarting goes back to tick 0, not where it left off.
	s.Start()
	waitFor(t, "clock restart at 0", func() bool { return s.Snapshot().Tick < frozen })
	s.Stop()
}

func TestRunAgentAppliesResult(t *testing.T) {
	stub := newSignalStub()
	s := New(Config{Signal: stub})
	defer s.Close()

	if err := s.RunAgent(types.AgentMarketSentinel); err != nil {
		t.Fatalf("RunAgent: %v", err)
	}

	rec := agentRecord(t, s.Snapshot(), types.AgentMarketSentinel)
	if rec.Status != types.StatusThinking {
		t.Fatalf("expected thinking while in flight, got %s", rec.Status)
	}

	stub.nextRun(t) <- signalOutcome{packet: criticalPacket()}

	waitFor(t, "result to land", func() bool {
		return agentRecord(t, s.Snapshot(), types.AgentMarketSentinel).Status == types.StatusAlert
	})
	snap := s.Snapshot()
	if snap.Banner == nil || snap.Banner.AgentID != types.AgentMarketSentinel {
		t.Fatalf("expected sentinel banner, got %+v", snap.Banner)
	}
}

func TestSecondRunSupersedesFirst(t *testing.T) {
	stub := newSignalStub()
	s := New(Config{Signal: stub})
	defer s.Close()

	if err := s.RunAgent(types.AgentMarketSentinel); err != nil {
		t.Fatalf("first RunAgent: %v", err)
	}
	first := stub.nextRun(t)

	if err := s.RunAgent(types.AgentMarketSentinel); err != nil {
		t.Fatalf("second RunAgent: %v", err)
	}
	second := stub.nextRun(t)

	// The superseded run completes with LOW severity; if it landed the
	// agent would show completed.
	first <- signalOutcome{packet: &types.SignalPacket{Severity: types.SeverityLow, Summary: "stale"}}
	time.Sleep(30 * time.Millisecond)
	if rec := agentRecord(t, s.Snapshot(), types.AgentMarketSentinel); rec.Status != types.StatusThinking {
		t.Fatalf("stale result landed: %s %q", rec.Status, rec.Message)
	}

	second <- signalOutcome{packet: criticalPacket()}
	waitFor(t, "fresh result to land", func() bool {
		return agentRecord(t, s.Snapshot(), types.AgentMarketSentinel).Status == types.StatusAlert
	})
}

func TestResetDropsInFlightAndClearsState(t *testing.T) {
	stub := newSignalStub()
	s := New(Config{Signal: stub, TickInterval: 5 * time.Millisecond})
	defer s.Close()

	s.Start()
	waitFor(t, "tick to advance", func() bool { return s.Snapshot().Tick >= 2 })
	if err := s.RunAgent(types.AgentMarketSentinel); err != nil {
		t.Fatalf("RunAgent: %v", err)
	}
	gate := stub.nextRun(t)
	s.SetContext(types.Context{SelectedRoute: "suez-rotterdam", ExecutionPhase: types.PhaseExecuting})

	s.Reset()
	gate <- signalOutcome{packet: criticalPacket()}
	time.Sleep(30 * time.Millisecond)

	snap := s.Snapshot()
	if snap.Tick != 0 {
		t.Fatalf("expected tick 0 after reset, got %d", snap.Tick)
	}
	if s.Running() {
		t.Fatalf("expected stopped after reset")
	}
	if snap.Banner != nil {
		t.Fatalf("expected no banner after reset, got %+v", snap.Banner)
	}
	rec := agentRecord(t, snap, types.AgentMarketSentinel)
	if rec.Status != types.StatusIdle || rec.Message != resolver.SelectToRunMessage {
		t.Fatalf("in-flight result survived reset: %s %q", rec.Status, rec.Message)
	}
	if rec := agentRecord(t, snap, types.AgentLogistics); rec.Status != types.StatusIdle {
		t.Fatalf("context survived reset: %s %q", rec.Status, rec.Message)
	}
}

func TestStopKeepsInFlightRuns(t *testing.T) {
	stub := newSignalStub()
	s := New(Config{Signal: stub, TickInterval: 5 * time.Millisecond})
	defer s.Close()

	s.Start()
	if err := s.RunAgent(types.AgentMarketSentinel); err != nil {
		t.Fatalf("RunAgent: %v", err)
	}
	gate := stub.nextRun(t)
	s.Stop()

	gate <- signalOutcome{packet: criticalPacket()}
	waitFor(t, "late result to land after Stop", func() bool {
		return agentRecord(t, s.Snapshot(), types.AgentMarketSentinel).Status == types.StatusAlert
	})
}

func TestMalformedPayloadFallsBackToScript(t *testing.T) {
	stub := newSignalStub()
	s := New(Config{Signal: stub})
	defer s.Close()

	if err := s.RunAgent(types.AgentMarketSentinel); err != nil {
		t.Fatalf("RunAgent: %v", err)
	}
	stub.nextRun(t) <- signalOutcome{err: fmt.Errorf("sentinel: %w", adapter.ErrMalformedPayload)}

	wantStatus, wantMessage := timeline.Canonical().Lookup(types.AgentMarketSentinel, 0)
	waitFor(t, "fallback to scripted state", func() bool {
		rec := agentRecord(t, s.Snapshot(), types.AgentMarketSentinel)
		return rec.Status == wantStatus && rec.Message == wantMessage
	})
}

func TestFetchErrorSurfacesAsAlert(t *testing.T) {
	stub := newSignalStub()
	s := New(Config{Signal: stub})
	defer s.Close()

	if err := s.RunAgent(types.AgentMarketSentinel); err != nil {
		t.Fatalf("RunAgent: %v", err)
	}
	stub.nextRun(t) <- signalOutcome{err: errors.New("analyzer returned status 502")}

	waitFor(t, "failure to surface", func() bool {
		rec := agentRecord(t, s.Snapshot(), types.AgentMarketSentinel)
		return rec.Status == types.StatusAlert && rec.Message == "Error: analyzer returned status 502"
	})
}

func TestHedgeRunThroughSession(t *testing.T) {
	hedge := &hedgeStub{payload: types.HedgePayload{
		Assessment: &types.RiskAssessment{
			Urgency:          types.SeverityHigh,
			TotalExposureUSD: 12_500_000,
			TotalVaR95USD:    3_400_000,
			MarketRegime:     "risk-off",
		},
	}}
	s := New(Config{Hedge: hedge})
	defer s.Close()

	if err := s.RunAgent(types.AgentRiskHedger); err != nil {
		t.Fatalf("RunAgent: %v", err)
	}
	waitFor(t, "hedge result to land", func() bool {
		snap := s.Snapshot()
		rec := agentRecord(t, snap, types.AgentRiskHedger)
		return rec.Status == types.StatusAlert && snap.Banner != nil && snap.Banner.AgentID == types.AgentRiskHedger
	})
}

func TestRunAndSelectValidation(t *testing.T) {
	s := New(Config{})
	defer s.Close()

	if err := s.RunAgent("imaginary"); !errors.Is(err, ErrUnknownAgent) {
		t.Fatalf("expected ErrUnknownAgent, got %v", err)
	}
	if err := s.RunAgent(types.AgentLogistics); !errors.Is(err, ErrNotSelectable) {
		t.Fatalf("expected ErrNotSelectable, got %v", err)
	}
	if err := s.RunAgent(types.AgentMarketSentinel); !errors.Is(err, ErrNoAnalyzer) {
		t.Fatalf("expected ErrNoAnalyzer without fetcher, got %v", err)
	}
	if err := s.Select("imaginary"); !errors.Is(err, ErrUnknownAgent) {
		t.Fatalf("expected ErrUnknownAgent, got %v", err)
	}
	if err := s.Select(types.AgentDebate); !errors.Is(err, ErrNotSelectable) {
		t.Fatalf("expected ErrNotSelectable, got %v", err)
	}
	if err := s.Select(types.AgentRiskHedger); err != nil {
		t.Fatalf("Select hedger: %v", err)
	}

	closed := New(Config{Signal: newSignalStub()})
	closed.Close()
	if err := closed.RunAgent(types.AgentMarketSentinel); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestSelectOpensGateWithoutRunning(t *testing.T) {
	sink := &recordSink{}
	s := New(Config{Sinks: []Sink{sink}})
	defer s.Close()

	if err := s.Select(types.AgentRiskHedger); err != nil {
		t.Fatalf("Select: %v", err)
	}
	waitFor(t, "selection snapshot", func() bool { return sink.count() >= 1 })

	snap := s.Snapshot()
	rec := agentRecord(t, snap, types.AgentRiskHedger)
	if rec.Message == resolver.SelectToRunMessage {
		t.Fatalf("selected agent still gated: %q", rec.Message)
	}
	if rec := agentRecord(t, snap, types.AgentMarketSentinel); rec.Message != resolver.SelectToRunMessage {
		t.Fatalf("unselected agent should stay gated, got %q", rec.Message)
	}

	// Re-selecting the same agent changes nothing and publishes nothing.
	if err := s.Select(types.AgentRiskHedger); err != nil {
		t.Fatalf("re-Select: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if got := sink.count(); got != 1 {
		t.Fatalf("expected 1 published snapshot, got %d", got)
	}
}

func TestSnapshotReturnsCopy(t *testing.T) {
	s := New(Config{})
	defer s.Close()

	snap := s.Snapshot()
	snap.Agents[0].Message = "tampered"
	if got := s.Snapshot().Agents[0].Message; got == "tampered" {
		t.Fatalf("snapshot aliasing: caller mutation visible in session state")
	}
}

func TestDigestIgnoresTick(t *testing.T) {
	s := New(Config{})
	defer s.Close()

	before := s.Snapshot().Digest
	s.advanceTick(5)
	snap := s.Snapshot()
	if snap.Tick != 5 {
		t.Fatalf("expected tick 5, got %d", snap.Tick)
	}
	if snap.Digest != before {
		t.Fatalf("digest changed on tick alone: %s -> %s", before, snap.Digest)
	}

	// Content changes do move the digest.
	if err := s.Select(types.AgentMarketSentinel); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got := s.Snapshot().Digest; got == before {
		t.Fatalf("digest unchanged after content change")
	}
}
