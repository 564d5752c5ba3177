// Minimal end-to-end integration test for the opsdeck console API.
//
// Run from repo root:
//
//	go run ./scripts/api/test_api.go
//
// Environment:
//
//	API_URL      – base URL (default http://localhost:8080/v1)
//	OPERATOR     – operator name (default ops-duty)
//	OPERATOR_KEY – shared operator key (default matches the demo config)
//
// Flow:
//
//  1. POST /auth/challenge   → nonce
//  2. BLAKE2b MAC of nonce   → proof
//  3. POST /auth/verify      → JWT
//  4. GET  /snapshot         → five agents
//  5. POST /session/start    → clock running
//  6. PUT  /context          → logistics picks up the reroute
//  7. GET  /routes           → seeded corridors
//  8. GET  /routes/:id/path  → densified geometry
//  9. POST /agents/market_sentinel/run → analysis accepted
//  10. POST /session/reset   → back to the initial state
package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"golang.org/x/crypto/blake2b"
)

var (
	baseURL     = getenv("API_URL", "http://localhost:8080/v1")
	operator    = getenv("OPERATOR", "ops-duty")
	operatorKey = getenv("OPERATOR_KEY", "5c7b0a4f6e2d49c3a6a1f4edbb1a0d9241b34c2f9d7e8a1b3c5d7f90214e6a8c")
)

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

type snapshot struct {
	Tick   int `json:"tick"`
	Agents []struct {
		ID      string `json:"id"`
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"agents"`
}

func main() {
	nonce := challenge()
	token := verify(nonce, proveNonce(nonce))

	snap := getSnapshot(token)
	if len(snap.Agents) != 5 {
		log.Fatalf("snapshot: want 5 agents, got %d", len(snap.Agents))
	}

	doAuth(token, "POST", "/session/start", nil, nil, http.StatusOK)

	var after snapshot
	doAuth(token, "PUT", "/context", map[string]any{
		"selected_route":  "suez-rotterdam",
		"execution_phase": "executing",
	}, &after, http.StatusOK)
	checkLogistics(after)

	checkRoutes(token)

	doAuth(token, "POST", "/agents/market_sentinel/run", nil, nil, http.StatusAccepted)

	var reset snapshot
	doAuth(token, "POST", "/session/reset", nil, &reset, http.StatusOK)
	if reset.Tick != 0 {
		log.Fatalf("reset: want tick 0, got %d", reset.Tick)
	}

	fmt.Println("✓ all endpoints passed")
}

// ----------------------------- auth

func challenge() string {
	var resp struct{ Nonce string }
	doJSON("POST", "/auth/challenge", map[string]any{"operator": operator}, &resp, http.StatusOK)
	if resp.Nonce == "" {
		log.Fatal("challenge: empty nonce")
	}
	return resp.Nonce
}

func proveNonce(nonce string) string {
	mac, err := blake2b.New256([]byte(operatorKey))
	if err != nil {
		log.Fatalf("operator key: %v", err)
	}
	mac.Write([]byte(nonce))
	return hex.EncodeToString(mac.Sum(nil))
}

func verify(nonce, proof string) string {
	var resp struct{ Token string }
	doJSON("POST", "/auth/verify", map[string]any{
		"operator": operator,
		"proof":    proof,
	}, &resp, http.StatusOK)
	if resp.Token == "" {
		log.Fatal("verify: empty token")
	}
	return resp.Token
}

// ----------------------------- console

func getSnapshot(tok string) snapshot {
	var snap snapshot
	doAuth(tok, "GET", "/snapshot", nil, &snap, http.StatusOK)
	return snap
}

func checkLogistics(snap snapshot) {
	for _, a := range snap.Agents {
		if a.ID != "logistics" {
			continue
		}
		if a.Status != "thinking" || !strings.Contains(a.Message, "suez-rotterdam") {
			log.Fatalf("context: logistics did not pick up the reroute: %s %q", a.Status, a.Message)
		}
		return
	}
	log.Fatal("context: logistics record missing")
}

// ----------------------------- routes

func checkRoutes(tok string) {
	var list struct {
		Routes []struct {
			Name string `json:"name"`
		} `json:"routes"`
	}
	doAuth(tok, "GET", "/routes", nil, &list, http.StatusOK)
	found := false
	for _, r := range list.Routes {
		if r.Name == "suez-rotterdam" {
			found = true
		}
	}
	if !found {
		log.Fatal("routes: seed route suez-rotterdam missing")
	}

	var path struct {
		Points []struct {
			Lon float64 `json:"lon"`
			Lat float64 `json:"lat"`
		} `json:"points"`
		LengthNm float64 `json:"length_nm"`
	}
	doAuth(tok, "GET", "/routes/suez-rotterdam/path?max_nm=50", nil, &path, http.StatusOK)
	if len(path.Points) < 3 || path.LengthNm <= 0 {
		log.Fatalf("path: implausible geometry: %d points, %.1f nm", len(path.Points), path.LengthNm)
	}
}

// ----------------------------- helpers

func doAuth(token, method, path string, body, out any, want int) {
	doReq(method, path, token, body, out, want)
}

func doJSON(method, path string, body, out any, want int) {
	doReq(method, path, "", body, out, want)
}

func doReq(method, path, token string, body, out any, want int) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			log.Fatalf("%s %s encode: %v", method, path, err)
		}
	}
	req, _ := http.NewRequest(method, baseURL+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	if res.StatusCode != want {
		log.Fatalf("%s %s: want %d got %d", method, path, want, res.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			log.Fatalf("%s %s decode: %v", method, path, err)
		}
	}
}
