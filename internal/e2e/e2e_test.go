package e2e

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dungeond/internal/httpapi"
	"dungeond/internal/journal"
	"dungeond/internal/provider"
	"dungeond/internal/runtime"
	"dungeond/internal/scenario"
	"dungeond/pkg/types"
)

// newServer spins up a full in-process stack: scenario snapshot, sqlite
// journal in a temp dir, runtime with a network input queue, HTTP mux.
func newServer(t *testing.T, queueSize int) (*httptest.Server, *runtime.Runtime, *provider.InputQueue) {
	t.Helper()
	store, err := journal.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { store.DB.Close() })
	snap, err := scenario.Default().Snapshot("e2e-session")
	if err != nil {
		t.Fatalf("scenario snapshot: %v", err)
	}
	if err := store.SaveSnapshot(context.Background(), snap); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}
	rt, err := runtime.New(runtime.Config{Initial: snap, Store: store})
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	t.Cleanup(rt.Close)
	queue := provider.NewInputQueue(queueSize)
	if err := rt.RegisterProvider(types.Interactive(types.InteractiveNetwork), queue); err != nil {
		t.Fatalf("register provider: %v", err)
	}
	if err := rt.BindFromState(); err != nil {
		t.Fatalf("bind: %v", err)
	}
	srv := httptest.NewServer(httpapi.NewMux(rt))
	t.Cleanup(srv.Close)
	return srv, rt, queue
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func TestE2E_State_Actions_Status(t *testing.T) {
	srv, rt, _ := newServer(t, 4)

	// 1) GET /state returns the initial snapshot
	resp, body := httpGet(t, srv.URL+"/state")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/state status=%d body=%s", resp.StatusCode, string(body))
	}
	var snap types.StateSnapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		t.Fatalf("/state json: %v body=%s", err, string(body))
	}
	if snap.Nonce != 0 || len(snap.Actors) != 2 {
		t.Fatalf("unexpected initial state: nonce=%d actors=%d", snap.Nonce, len(snap.Actors))
	}

	// 2) POST /actions queues input for the hero
	resp, body = httpPostJSON(t, srv.URL+"/actions", []byte(`{"entity":1,"kind":"move","dir":3}`))
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("/actions status=%d body=%s", resp.StatusCode, string(body))
	}

	// 3) Run one turn; the queued move commits
	outcome, err := rt.RunTurn(context.Background())
	if err != nil {
		t.Fatalf("run turn: %v", err)
	}
	if !outcome.Committed {
		t.Fatalf("turn not committed: %+v", outcome)
	}

	// 4) GET /status reflects the committed turn
	resp, body = httpGet(t, srv.URL+"/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/status status=%d body=%s", resp.StatusCode, string(body))
	}
	var st types.StatusResponse
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("/status json: %v body=%s", err, string(body))
	}
	if st.Nonce != 1 || st.TurnsTotal != 1 {
		t.Fatalf("/status nonce=%d turns=%d, want 1/1", st.Nonce, st.TurnsTotal)
	}
	if len(st.Bindings) != 2 {
		t.Fatalf("/status bindings=%d, want 2", len(st.Bindings))
	}

	// 5) /healthz and /readyz
	resp, _ = httpGet(t, srv.URL+"/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/healthz status=%d", resp.StatusCode)
	}
	resp, _ = httpGet(t, srv.URL+"/readyz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/readyz status=%d", resp.StatusCode)
	}
}

func TestE2E_Actions_ErrorMapping(t *testing.T) {
	srv, _, _ := newServer(t, 1)

	// Unknown entity -> 404
	resp, body := httpPostJSON(t, srv.URL+"/actions", []byte(`{"entity":99,"kind":"wait"}`))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown entity: status=%d body=%s", resp.StatusCode, string(body))
	}

	// AI-bound entity -> 409
	resp, body = httpPostJSON(t, srv.URL+"/actions", []byte(`{"entity":2,"kind":"wait"}`))
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("ai entity: status=%d body=%s", resp.StatusCode, string(body))
	}

	// Queue of size 1: second submit without a turn in between -> 429
	resp, _ = httpPostJSON(t, srv.URL+"/actions", []byte(`{"entity":1,"kind":"wait"}`))
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("first submit: status=%d", resp.StatusCode)
	}
	resp, body = httpPostJSON(t, srv.URL+"/actions", []byte(`{"entity":1,"kind":"wait"}`))
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("full queue: status=%d body=%s", resp.StatusCode, string(body))
	}

	// Malformed body -> 400
	resp, _ = httpPostJSON(t, srv.URL+"/actions", []byte(`{`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad json: status=%d", resp.StatusCode)
	}
}

func TestE2E_EventStream_DeliversCommit(t *testing.T) {
	srv, rt, _ := newServer(t, 4)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/events?topics=game_state", nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := http.DefaultClient.Do(req.WithContext(ctx))
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/events status=%d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "ndjson") {
		t.Fatalf("/events content-type=%s", ct)
	}

	// Queue input and run a turn while the stream is attached.
	if err := rt.SubmitInput(types.WaitAction(1)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := rt.RunTurn(context.Background()); err != nil {
		t.Fatalf("run turn: %v", err)
	}

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadBytes('\n')
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	var rec types.StreamRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		t.Fatalf("stream json: %v line=%s", err, string(line))
	}
	if rec.Event == nil || rec.Event.Type != types.EventActionExecuted {
		t.Fatalf("unexpected stream record: %s", string(line))
	}
	if rec.Event.Nonce != 1 {
		t.Fatalf("event nonce=%d, want 1", rec.Event.Nonce)
	}
}

func TestE2E_EventStream_UnknownTopic400(t *testing.T) {
	srv, _, _ := newServer(t, 4)
	resp, body := httpGet(t, srv.URL+"/events?topics=bogus")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", resp.StatusCode, string(body))
	}
}
