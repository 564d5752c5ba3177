package webserver

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stratum-ops/opsdeck/src/console/session"
	"github.com/stratum-ops/opsdeck/src/console/types"
	"github.com/stratum-ops/opsdeck/src/telemetry"
)

func readSnapshot(t *testing.T, conn *websocket.Conn) types.Snapshot {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	_, frame, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var snap types.Snapshot
	if err := json.Unmarshal(frame, &snap); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	return snap
}

func TestLiveFeed(t *testing.T) {
	hub := telemetry.NewHub()
	go hub.Run()
	sess := session.New(session.Config{Sinks: []session.Sink{hub}})
	t.Cleanup(sess.Close)
	t.Cleanup(hub.Close)

	srv := httptest.NewServer(New(testConfig(), nil, nil, sess, hub))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/live"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// The handler pushes the current state before the hub takes over, so
	// a dashboard renders without waiting for the next mutation.
	initial := readSnapshot(t, conn)
	if initial.Tick != 0 || len(initial.Agents) != 5 {
		t.Fatalf("unexpected initial frame: tick %d, %d agents", initial.Tick, len(initial.Agents))
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if hub.ClientCount() != 1 {
		t.Fatalf("client never registered with the hub")
	}

	sess.SetContext(types.Context{SelectedRoute: "suez-rotterdam", ExecutionPhase: types.PhaseExecuting})

	update := readSnapshot(t, conn)
	found := false
	for _, rec := range update.Agents {
		if rec.ID == types.AgentLogistics && strings.Contains(rec.Message, "suez-rotterdam") {
			found = true
		}
	}
	if !found {
		t.Fatalf("context change never reached the feed: %+v", update.Agents)
	}
}
