package http

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"geoquiz-service/internal/app"
	"geoquiz-service/internal/domain"
)

type wsEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func dialUltimate(t *testing.T, baseURL, loc string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(baseURL, "http") + "/ws/ultimate?locale=" + loc
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendWS(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	msg := map[string]any{"type": typ}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// readUntil skips messages until one of type typ satisfies accept.
func readUntil[T any](t *testing.T, conn *websocket.Conn, typ string, accept func(T) bool) T {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		var env wsEnvelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("waiting for %s: %v", typ, err)
		}
		if env.Type != typ {
			continue
		}
		var v T
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			t.Fatalf("decode %s: %v", typ, err)
		}
		if accept == nil || accept(v) {
			return v
		}
	}
}

func TestWebSocketUltimateFlow(t *testing.T) {
	ts := newTestServer(t, testCountries())
	conn := dialUltimate(t, ts.URL, "fr-FR")

	sendWS(t, conn, "start", nil)
	st := readUntil(t, conn, "state", func(s app.UltimateState) bool { return s.Phase == app.PhaseActive })
	if st.Step == nil || st.Step.Kind != domain.StepShape || st.AttemptsLeft != 5 {
		t.Fatalf("unexpected first step: %+v", st)
	}
	if st.Round == nil || st.Round.AnswerISO3 != "FRA" {
		t.Fatalf("unexpected round: %+v", st.Round)
	}

	sendWS(t, conn, "submit", app.Submission{Kind: domain.StepShape, Text: "allemagne"})
	guess := readUntil[domain.Guess](t, conn, "guess", nil)
	if guess.IsCorrect || guess.ISO3 != "DEU" || guess.DistanceKm == nil || *guess.DistanceKm <= 0 {
		t.Fatalf("unexpected guess: %+v", guess)
	}

	snap := readUntil(t, conn, "snapshot", func(s domain.Snapshot) bool { return s.AttemptsLeft == 4 })
	if snap.Locale != "fr" || snap.V != domain.SnapshotVersion || len(snap.Guesses) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	sendWS(t, conn, "submit", app.Submission{Kind: domain.StepCapital, Text: "Paris"})
	errMsg := readUntil[errorPayload](t, conn, "error", nil)
	if !strings.Contains(errMsg.Message, "does not match") {
		t.Fatalf("error = %q, want step mismatch", errMsg.Message)
	}

	sendWS(t, conn, "submit", app.Submission{Kind: domain.StepShape, Text: "Narnia"})
	errMsg = readUntil[errorPayload](t, conn, "error", nil)
	if !strings.Contains(errMsg.Message, "suggestion list") {
		t.Fatalf("error = %q, want not-a-suggestion", errMsg.Message)
	}

	sendWS(t, conn, "dance", nil)
	errMsg = readUntil[errorPayload](t, conn, "error", nil)
	if errMsg.Message != "unsupported message type" {
		t.Fatalf("error = %q", errMsg.Message)
	}

	// A reload hands the snapshot back on a new connection.
	_ = conn.Close()
	conn = dialUltimate(t, ts.URL, "fr")
	sendWS(t, conn, "resume", snap)
	resumed := readUntil(t, conn, "state", func(s app.UltimateState) bool { return s.Phase == app.PhaseActive })
	if resumed.AttemptsLeft != 4 || len(resumed.Guesses) != 1 || resumed.StepIndex != 0 {
		t.Fatalf("resume lost progress: %+v", resumed)
	}
	if resumed.AnswerLatLng == nil {
		t.Fatalf("answer coordinates not re-resolved")
	}

	sendWS(t, conn, "submit", app.Submission{Kind: domain.StepShape, Text: "France"})
	correct := readUntil[domain.Guess](t, conn, "guess", nil)
	if !correct.IsCorrect {
		t.Fatalf("expected correct guess: %+v", correct)
	}
	sendWS(t, conn, "next", nil)
	area := readUntil(t, conn, "state", func(s app.UltimateState) bool { return s.StepIndex == 1 })
	if area.Step == nil || area.Step.Kind != domain.StepArea || area.Score != 0 {
		t.Fatalf("unexpected state after next: %+v", area)
	}

	sendWS(t, conn, "restart", nil)
	cleared := readUntil[clearPayload](t, conn, "snapshotClear", nil)
	if cleared.Locale != "fr" {
		t.Fatalf("cleared locale = %q", cleared.Locale)
	}
	fresh := readUntil(t, conn, "state", func(s app.UltimateState) bool {
		return s.Phase == app.PhaseActive && s.StepIndex == 0 && len(s.Guesses) == 0
	})
	if fresh.AttemptsLeft != 5 || fresh.Score != 0 {
		t.Fatalf("restart kept progress: %+v", fresh)
	}
}

func TestWebSocketRejectsBadResume(t *testing.T) {
	ts := newTestServer(t, testCountries())
	conn := dialUltimate(t, ts.URL, "en")

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"resume","payload":"nope"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	errMsg := readUntil[errorPayload](t, conn, "error", nil)
	if errMsg.Message != "invalid snapshot payload" {
		t.Fatalf("error = %q", errMsg.Message)
	}

	// A snapshot for another locale is ignored and a fresh round starts.
	sendWS(t, conn, "resume", domain.Snapshot{V: domain.SnapshotVersion, Locale: "de"})
	st := readUntil(t, conn, "state", func(s app.UltimateState) bool { return s.Phase == app.PhaseActive })
	if st.StepIndex != 0 || st.AttemptsLeft != 5 || len(st.Guesses) != 0 {
		t.Fatalf("unexpected state: %+v", st)
	}
}
