// Package session owns the mutable console state: the tick clock, the two
// analyzer results, the operator selection and context. Every mutation
// recomputes the full five-agent snapshot through the resolver and fans it
// out to the registered sinks, so consumers only ever observe complete
// snapshots.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/OneOfOne/xxhash"
	"github.com/stratum-ops/opsdeck/src/console/adapter"
	"github.com/stratum-ops/opsdeck/src/console/resolver"
	"github.com/stratum-ops/opsdeck/src/console/types"
)

var (
	ErrUnknownAgent  = errors.New("unknown agent")
	ErrNotSelectable = errors.New("agent is not selectable")
	ErrNoAnalyzer    = errors.New("no analyzer configured")
	ErrClosed        = errors.New("session closed")
)

// SignalFetcher runs one market-sentinel analysis.
type SignalFetcher interface {
	Fetch(ctx context.Context) (*types.SignalPacket, error)
}

// HedgeFetcher runs one risk-hedger analysis.
type HedgeFetcher interface {
	Fetch(ctx context.Context) (types.HedgePayload, error)
}

// Sink receives published snapshots. Publish is called from a single
// pump goroutine, in order, and must not call back into the session.
type Sink interface {
	Publish(snap types.Snapshot)
}

// Config assembles a Session.
type Config struct {
	Resolver *resolver.Resolver
	Signal   SignalFetcher
	Hedge    HedgeFetcher
	Sinks    []Sink
	// TickInterval defaults to one second.
	TickInterval time.Duration
	// RunTimeout bounds a single analyzer run.
	RunTimeout time.Duration
}

const (
	defaultRunTimeout = 60 * time.Second
	updateQueueSize   = 64
)

// Session is the reconciliation engine instance. All state mutation goes
// through its methods; readers only see materialized snapshots.
type Session struct {
	resolver   *resolver.Resolver
	clock      *Clock
	signal     SignalFetcher
	hedge      HedgeFetcher
	sinks      []Sink
	runTimeout time.Duration

	mu          sync.Mutex
	running     bool
	closed      bool
	tick        int
	signalRes   adapter.SignalResult
	hedgeRes    adapter.HedgeResult
	selection   types.AgentID
	opctx       types.Context
	signalEpoch uint64
	hedgeEpoch  uint64
	last        types.Snapshot

	updates  chan types.Snapshot
	pumpDone chan struct{}
}

// New builds a session in its initial state (tick 0, all agents idle, no
// selection) and starts the sink pump. Callers must Close it.
func New(cfg Config) *Session {
	res := cfg.Resolver
	if res == nil {
		res = resolver.New(resolver.Options{})
	}
	runTimeout := cfg.RunTimeout
	if runTimeout <= 0 {
		runTimeout = defaultRunTimeout
	}

	s := &Session{
		resolver:   res,
		clock:      NewClock(cfg.TickInterval),
		signal:     cfg.Signal,
		hedge:      cfg.Hedge,
		sinks:      cfg.Sinks,
		runTimeout: runTimeout,
		signalRes:  adapter.Idle[*types.SignalPacket](),
		hedgeRes:   adapter.Idle[types.HedgePayload](),
		updates:    make(chan types.Snapshot, updateQueueSize),
		pumpDone:   make(chan struct{}),
	}

	s.mu.Lock()
	s.recomputeLocked()
	s.mu.Unlock()

	go s.pump()
	return s
}

// Start begins (or restarts) tick emission at 0. Adapter results,
// selection and context are kept; use Reset to clear those.
func (s *Session) Start() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.clock.Start(s.advanceTick)
}

// Stop halts tick emission. State stays as-is, and in-flight analyzer
// runs are still applied when they land.
func (s *Session) Stop() {
	s.clock.Stop()

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// Reset tears the session back to its initial state: clock stopped, tick
// 0, both analyzer results idle, no selection, empty context. In-flight
// analyzer runs are invalidated and their completions dropped.
func (s *Session) Reset() {
	s.clock.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.tick = 0
	s.signalEpoch++
	s.hedgeEpoch++
	s.signalRes = adapter.Idle[*types.SignalPacket]()
	s.hedgeRes = adapter.Idle[types.HedgePayload]()
	s.selection = ""
	s.opctx = types.Context{}
	s.publishLocked(s.recomputeLocked())
}

// Running reports whether the clock is currently emitting ticks.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Select arms the given agent without launching an analysis. Only the
// analyzer-backed agents are selectable.
func (s *Session) Select(id types.AgentID) error {
	if !id.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownAgent, string(id))
	}
	if !id.Gated() {
		return fmt.Errorf("%w: %s", ErrNotSelectable, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selection == id {
		return nil
	}
	s.selection = id
	s.publishLocked(s.recomputeLocked())
	return nil
}

// RunAgent arms the given agent and launches one analyzer run. The run
// supersedes any in-flight run for the same agent: a completion is
// applied only if no newer run or reset happened after it started.
func (s *Session) RunAgent(id types.AgentID) error {
	if !id.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownAgent, string(id))
	}
	if !id.Gated() {
		return fmt.Errorf("%w: %s", ErrNotSelectable, id)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	var epoch uint64
	switch id {
	case types.AgentMarketSentinel:
		if s.signal == nil {
			s.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrNoAnalyzer, id)
		}
		s.signalEpoch++
		epoch = s.signalEpoch
		s.signalRes = adapter.Loading[*types.SignalPacket]()
	case types.AgentRiskHedger:
		if s.hedge == nil {
			s.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrNoAnalyzer, id)
		}
		s.hedgeEpoch++
		epoch = s.hedgeEpoch
		s.hedgeRes = adapter.Loading[types.HedgePayload]()
	}
	s.selection = id
	s.publishLocked(s.recomputeLocked())
	s.mu.Unlock()

	switch id {
	case types.AgentMarketSentinel:
		go s.runSentinel(epoch)
	case types.AgentRiskHedger:
		go s.runHedger(epoch)
	}
	return nil
}

// SetContext replaces the operator context feeding the logistics and
// debate derivations.
func (s *Session) SetContext(ctx types.Context) {
	if ctx.DebateCount < 0 {
		ctx.DebateCount = 0
	}
	if ctx.ExecutionPhase == "" {
		ctx.ExecutionPhase = types.PhasePending
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.opctx = ctx
	s.publishLocked(s.recomputeLocked())
}

// Snapshot returns a copy of the latest materialized snapshot.
func (s *Session) Snapshot() types.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSnapshot(s.last)
}

// Close shuts the session down for process exit: clock stopped, in-flight
// runs invalidated, pump drained. The session is unusable afterwards.
func (s *Session) Close() {
	s.clock.Stop()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.running = false
	s.signalEpoch++
	s.hedgeEpoch++
	s.mu.Unlock()

	close(s.updates)
	<-s.pumpDone
}

func (s *Session) advanceTick(tick int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tick = tick
	s.publishLocked(s.recomputeLocked())
}

func (s *Session) runSentinel(epoch uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()

	packet, err := s.signal.Fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.signalEpoch {
		log.Printf("session: dropping stale %s result (run %d, current %d)",
			types.AgentMarketSentinel, epoch, s.signalEpoch)
		return
	}
	switch {
	case err == nil:
		s.signalRes = adapter.Succeeded(packet)
	case errors.Is(err, adapter.ErrMalformedPayload):
		log.Printf("session: %s returned no usable payload: %v", types.AgentMarketSentinel, err)
		s.signalRes = adapter.Idle[*types.SignalPacket]()
	default:
		s.signalRes = adapter.Failed[*types.SignalPacket](err.Error())
	}
	s.publishLocked(s.recomputeLocked())
}

func (s *Session) runHedger(epoch uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()

	payload, err := s.hedge.Fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.hedgeEpoch {
		log.Printf("session: dropping stale %s result (run %d, current %d)",
			types.AgentRiskHedger, epoch, s.hedgeEpoch)
		return
	}
	switch {
	case err == nil:
		s.hedgeRes = adapter.Succeeded(payload)
	case errors.Is(err, adapter.ErrMalformedPayload):
		log.Printf("session: %s returned no usable payload: %v", types.AgentRiskHedger, err)
		s.hedgeRes = adapter.Idle[types.HedgePayload]()
	default:
		s.hedgeRes = adapter.Failed[types.HedgePayload](err.Error())
	}
	s.publishLocked(s.recomputeLocked())
}

// recomputeLocked materializes the snapshot for the current inputs.
// Must be called with s.mu held.
func (s *Session) recomputeLocked() types.Snapshot {
	records := s.resolver.Resolve(s.tick, s.signalRes, s.hedgeRes, s.selection, s.opctx)
	snap := types.Snapshot{
		Tick:   s.tick,
		Agents: records,
		Banner: resolver.Banner(s.selection, s.signalRes, s.hedgeRes),
	}
	snap.Digest = digest(snap)
	s.last = snap
	return snap
}

// publishLocked enqueues a snapshot for the sinks. Must be called with
// s.mu held. A full queue drops the frame rather than stalling the
// engine; the next mutation publishes a fresher one anyway.
func (s *Session) publishLocked(snap types.Snapshot) {
	if s.closed || len(s.sinks) == 0 {
		return
	}
	select {
	case s.updates <- snap:
	default:
		log.Printf("session: update queue full, dropping snapshot for tick %d", snap.Tick)
	}
}

func (s *Session) pump() {
	defer close(s.pumpDone)
	for snap := range s.updates {
		for _, sink := range s.sinks {
			sink.Publish(snap)
		}
	}
}

// digest hashes the renderable content (agents and banner, not the tick)
// so publishers can suppress frames that would repeat themselves.
func digest(snap types.Snapshot) string {
	h := xxhash.NewS64(0)
	for _, rec := range snap.Agents {
		h.WriteString(string(rec.ID))
		h.WriteString("|")
		h.WriteString(string(rec.Status))
		h.WriteString("|")
		h.WriteString(rec.Message)
		h.WriteString("\n")
	}
	if snap.Banner != nil {
		h.WriteString("banner|")
		h.WriteString(string(snap.Banner.AgentID))
		h.WriteString("|")
		h.WriteString(snap.Banner.Content)
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

func cloneSnapshot(in types.Snapshot) types.Snapshot {
	out := in
	out.Agents = append([]types.AgentRecord(nil), in.Agents...)
	if in.Banner != nil {
		b := *in.Banner
		out.Banner = &b
	}
	return out
}
