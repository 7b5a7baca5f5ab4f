package server

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/michalowskil/lovelace-touchpad-card/internal/protocol"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestWheelCarriesRemainder(t *testing.T) {
	w := NewWheel(4.0)

	steps := []struct {
		dy   float64
		want int
	}{
		{20, 0},
		{20, 1},
		{-40, -1},
		{-10, 0},
		{70, 2},
	}

	for i, s := range steps {
		_, got := w.Add(0, s.dy)
		if got != s.want {
			t.Errorf("step %d: expected %d wheel steps, got %d", i, s.want, got)
		}
	}
}

func TestWheelAxesIndependent(t *testing.T) {
	w := NewWheel(0)
	x, y := w.Add(30, -30)
	if x != 1 || y != -1 {
		t.Errorf("Expected (1,-1), got (%d,%d)", x, y)
	}
}

func TestWheelClampsHugeDeltas(t *testing.T) {
	w := NewWheel(4.0)
	x, y := w.Add(1e300, -1e300)
	// 10000 px at scale 4 is 40000 wheel units
	want := 333
	if x != want || y != -want {
		t.Errorf("Expected (%d,%d), got (%d,%d)", want, -want, x, y)
	}
}

func TestMoveClampsHugeDeltas(t *testing.T) {
	a, ok := toAction(protocol.Move(1e300, -3), NewWheel(0))
	if !ok || a.DX != int(MaxDelta) || a.DY != -3 {
		t.Errorf("Expected clamped move, got %+v", a)
	}
}

type lockedWriter struct {
	mu  sync.Mutex
	buf *bytes.Buffer
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

type testServer struct {
	srv  *Server
	ts   *httptest.Server
	sink *RecordingSink
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	sink := &RecordingSink{}
	srv := New(Options{
		Sink:       sink,
		Logger:     log.New(&lockedWriter{buf: &bytes.Buffer{}}, "", 0),
		PingPeriod: time.Second,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})
	return &testServer{srv: srv, ts: ts, sink: sink}
}

func (s *testServer) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.ts.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (s *testServer) waitActions(t *testing.T, n int) []Action {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if a := s.sink.Actions(); len(a) >= n {
			return a
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %d actions, got %+v", n, s.sink.Actions())
	return nil
}

func send(t *testing.T, conn *websocket.Conn, m protocol.Message) {
	t.Helper()
	data, err := protocol.Encode(m)
	if err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatal(err)
	}
}

func TestDispatch(t *testing.T) {
	s := newTestServer(t)
	conn := s.dial(t, "/ws")

	send(t, conn, protocol.Move(3.4, -2.6))
	send(t, conn, protocol.Scroll(0, 20))
	send(t, conn, protocol.Scroll(0, 20))
	send(t, conn, protocol.Click())
	send(t, conn, protocol.Text("hi"))
	send(t, conn, protocol.KeyPress(protocol.KeyEnter))
	send(t, conn, protocol.Volume(protocol.VolumeMute))
	send(t, conn, protocol.Wake())

	got := s.waitActions(t, 7)
	want := []Action{
		{Type: protocol.TypeMove, DX: 3, DY: -3},
		{Type: protocol.TypeScroll, DX: 0, DY: 1},
		{Type: protocol.TypeClick},
		{Type: protocol.TypeText, Text: "hi"},
		{Type: protocol.TypeKey, Key: protocol.KeyEnter},
		{Type: protocol.TypeVolume, Volume: protocol.VolumeMute},
		{Type: protocol.TypeWake},
	}
	if len(got) != len(want) {
		t.Fatalf("Expected %d actions, got %+v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("action %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestInvalidFramesSkipped(t *testing.T) {
	s := newTestServer(t)
	conn := s.dial(t, "/")

	conn.WriteMessage(websocket.TextMessage, []byte(`{not json`))
	conn.WriteMessage(websocket.TextMessage, []byte(`{"t":"teleport"}`))
	conn.WriteMessage(websocket.TextMessage, []byte(`{"t":"key","key":"hyper"}`))
	send(t, conn, protocol.RightClick())

	got := s.waitActions(t, 1)
	if got[0].Type != protocol.TypeRightClick {
		t.Errorf("Expected right_click after invalid frames, got %+v", got)
	}
	if st := s.srv.Status(); st.Rejected != 3 || st.Applied != 1 {
		t.Errorf("Unexpected counters %+v", st)
	}
}

func TestWheelPerClient(t *testing.T) {
	s := newTestServer(t)
	a := s.dial(t, "/ws")
	b := s.dial(t, "/ws")

	// Each surface holds 80 wheel units; neither completes a step
	send(t, a, protocol.Scroll(0, 20))
	send(t, b, protocol.Scroll(0, 20))
	send(t, a, protocol.Click())
	send(t, b, protocol.Click())

	got := s.waitActions(t, 2)
	for _, act := range got {
		if act.Type != protocol.TypeClick {
			t.Errorf("Expected only clicks, got %+v", got)
		}
	}
}

func TestHealthAndStatus(t *testing.T) {
	s := newTestServer(t)
	s.dial(t, "/ws")

	resp, err := http.Get(s.ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 from /health, got %d", resp.StatusCode)
	}

	deadline := time.Now().Add(5 * time.Second)
	for s.srv.Clients() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	resp, err = http.Get(s.ts.URL + "/api/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var st Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if st.Clients != 1 || st.ScrollScale != DefaultScrollScale {
		t.Errorf("Unexpected status %+v", st)
	}
}

func TestRootWithoutUpgrade(t *testing.T) {
	s := newTestServer(t)
	resp, err := http.Get(s.ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}

func TestCloseDisconnectsSurfaces(t *testing.T) {
	s := newTestServer(t)
	conn := s.dial(t, "/ws")

	deadline := time.Now().Add(5 * time.Second)
	for s.srv.Clients() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	s.srv.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway) {
				return
			}
			t.Fatalf("Expected going-away close, got %v", err)
		}
	}
}
