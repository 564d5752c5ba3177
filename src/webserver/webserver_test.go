package webserver

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stratum-ops/opsdeck/src/config"
	"github.com/stratum-ops/opsdeck/src/console/session"
	"github.com/stratum-ops/opsdeck/src/console/types"
	"github.com/stratum-ops/opsdeck/src/telemetry"
	"golang.org/x/crypto/blake2b"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() config.Config {
	return config.Config{
		CORSOrigin:  "http://localhost:3000",
		JWTSecret:   "test-jwt-secret",
		OperatorKey: "test-operator-key",
	}
}

func newTestRouter(t *testing.T) (*gin.Engine, *session.Session, config.Config) {
	t.Helper()
	cfg := testConfig()
	sess := session.New(session.Config{})
	hub := telemetry.NewHub()
	t.Cleanup(sess.Close)
	t.Cleanup(hub.Close)
	return New(cfg, nil, nil, sess, hub), sess, cfg
}

func doRequest(t *testing.T, r *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func operatorToken(t *testing.T, cfg config.Config) string {
	t.Helper()
	token, err := issueJWT("op-test", []byte(cfg.JWTSecret))
	if err != nil {
		t.Fatalf("issueJWT: %v", err)
	}
	return token
}

func TestHealthz(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := doRequest(t, r, http.MethodGet, "/healthz", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Status  string `json:"status"`
		Running bool   `json:"running"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.Running {
		t.Fatalf("unexpected health body: %s", w.Body.String())
	}
}

func TestSnapshotRequiresToken(t *testing.T) {
	r, _, _ := newTestRouter(t)

	if w := doRequest(t, r, http.MethodGet, "/v1/snapshot", "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", w.Code)
	}
	if w := doRequest(t, r, http.MethodGet, "/v1/snapshot", "garbage", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: expected 401, got %d", w.Code)
	}

	foreign, err := issueJWT("op-test", []byte("some-other-secret"))
	if err != nil {
		t.Fatalf("issueJWT: %v", err)
	}
	if w := doRequest(t, r, http.MethodGet, "/v1/snapshot", foreign, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("foreign signature: expected 401, got %d", w.Code)
	}
}

func TestSnapshotWithToken(t *testing.T) {
	r, _, cfg := newTestRouter(t)
	token := operatorToken(t, cfg)

	w := doRequest(t, r, http.MethodGet, "/v1/snapshot", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var snap types.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Tick != 0 || len(snap.Agents) != 5 {
		t.Fatalf("unexpected snapshot: tick %d, %d agents", snap.Tick, len(snap.Agents))
	}
	if etag := w.Header().Get("ETag"); etag != `"`+snap.Digest+`"` {
		t.Fatalf("ETag %q does not match digest %q", etag, snap.Digest)
	}
}

func TestSessionStartStop(t *testing.T) {
	r, sess, cfg := newTestRouter(t)
	token := operatorToken(t, cfg)

	if w := doRequest(t, r, http.MethodPost, "/v1/session/start", token, ""); w.Code != http.StatusOK {
		t.Fatalf("start: expected 200, got %d", w.Code)
	}
	if !sess.Running() {
		t.Fatalf("expected session running after start")
	}
	if w := doRequest(t, r, http.MethodPost, "/v1/session/stop", token, ""); w.Code != http.StatusOK {
		t.Fatalf("stop: expected 200, got %d", w.Code)
	}
	if sess.Running() {
		t.Fatalf("expected session stopped after stop")
	}

	w := doRequest(t, r, http.MethodPost, "/v1/session/reset", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("reset: expected 200, got %d", w.Code)
	}
	var snap types.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode reset snapshot: %v", err)
	}
	if snap.Tick != 0 {
		t.Fatalf("reset snapshot tick: expected 0, got %d", snap.Tick)
	}
}

func TestRunAgentErrors(t *testing.T) {
	r, _, cfg := newTestRouter(t)
	token := operatorToken(t, cfg)

	if w := doRequest(t, r, http.MethodPost, "/v1/agents/logistics/run", token, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("ungated agent: expected 400, got %d", w.Code)
	}
	if w := doRequest(t, r, http.MethodPost, "/v1/agents/imaginary/run", token, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown agent: expected 400, got %d", w.Code)
	}
	// No analyzer is wired in this router, so a valid run target reports
	// the backend unavailable rather than a caller mistake.
	if w := doRequest(t, r, http.MethodPost, "/v1/agents/market_sentinel/run", token, ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("missing analyzer: expected 503, got %d", w.Code)
	}
}

func TestSetContext(t *testing.T) {
	r, _, cfg := newTestRouter(t)
	token := operatorToken(t, cfg)

	if w := doRequest(t, r, http.MethodPut, "/v1/context", token, `{"execution_phase":"warp"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("bad phase: expected 400, got %d", w.Code)
	}

	w := doRequest(t, r, http.MethodPut, "/v1/context", token,
		`{"selected_route":"suez-rotterdam","execution_phase":"executing"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var snap types.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, rec := range snap.Agents {
		if rec.ID != types.AgentLogistics {
			continue
		}
		if rec.Status != types.StatusThinking || !strings.Contains(rec.Message, "suez-rotterdam") {
			t.Fatalf("expected logistics executing the reroute, got %s %q", rec.Status, rec.Message)
		}
		return
	}
	t.Fatalf("logistics record missing")
}

func TestVerifyProof(t *testing.T) {
	key := []byte("test-operator-key")
	nonce := "a2c9d1e4-demo-nonce"

	mac, err := blake2b.New256(key)
	if err != nil {
		t.Fatalf("blake2b: %v", err)
	}
	mac.Write([]byte(nonce))
	proof := hex.EncodeToString(mac.Sum(nil))

	if err := verifyProof(key, nonce, proof); err != nil {
		t.Fatalf("valid proof rejected: %v", err)
	}
	if err := verifyProof(key, nonce, "0x"+proof); err != nil {
		t.Fatalf("0x-prefixed proof rejected: %v", err)
	}
	if err := verifyProof(key, nonce, strings.Repeat("ab", 32)); err == nil {
		t.Fatalf("wrong proof accepted")
	}
	if err := verifyProof(key, "other-nonce", proof); err == nil {
		t.Fatalf("proof accepted for wrong nonce")
	}
	if err := verifyProof(key, nonce, "not-hex"); err == nil {
		t.Fatalf("undecodable proof accepted")
	}
}
