package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-arstage/internal/log"
	"github.com/teslashibe/go-arstage/pkg/playback"
	"github.com/teslashibe/go-arstage/pkg/pose"
	"github.com/teslashibe/go-arstage/pkg/protocol"
	"github.com/teslashibe/go-arstage/pkg/session"
)

func testConfig(port int) Config {
	cfg := DefaultConfig()
	cfg.Port = port
	cfg.Logger = log.Discard()
	cfg.Session.Logger = log.Discard()
	cfg.ModelPath = "assets/scene.glb"
	cfg.StartTimeout = 2 * time.Second
	cfg.StatusInterval = 20 * time.Millisecond
	return cfg
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := testConfig(0)
	cfg.StartTimeout = 50 * time.Millisecond
	s := NewServer(cfg)
	t.Cleanup(func() { s.Shutdown() })
	return s
}

func do(t *testing.T, s *Server, method, path string, out any) int {
	t.Helper()
	resp, err := s.App().Test(httptest.NewRequest(method, path, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil && len(body) > 0 {
		require.NoError(t, json.Unmarshal(body, out), string(body))
	}
	return resp.StatusCode
}

func create(t *testing.T, s *Server) CreateSessionResponse {
	t.Helper()
	var created CreateSessionResponse
	require.Equal(t, http.StatusCreated, do(t, s, http.MethodPost, "/api/sessions", &created))
	require.NotEmpty(t, created.ID)
	return created
}

func TestAPI_SessionLifecycle(t *testing.T) {
	s := newTestServer(t)

	created := create(t, s)
	assert.Equal(t, "/ws/session/"+created.ID, created.WebSocket)
	assert.Equal(t, "assets/scene.glb", created.ModelPath)
	assert.True(t, created.Status.ShowStart)

	var list struct {
		Sessions []session.Status `json:"sessions"`
		Count    int              `json:"count"`
	}
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/sessions", &list))
	assert.Equal(t, 1, list.Count)

	var st session.Status
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/sessions/"+created.ID, &st))
	assert.Equal(t, created.ID, st.ID)
	assert.Equal(t, "lost", st.PresenceName)
	require.Len(t, st.Tracks, 2)
	assert.Equal(t, playback.NeverStarted, st.Tracks[0].State)

	assert.Equal(t, http.StatusNoContent, do(t, s, http.MethodDelete, "/api/sessions/"+created.ID, nil))
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/sessions/"+created.ID, nil))
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodDelete, "/api/sessions/"+created.ID, nil))
}

func TestAPI_StartWithoutPageIsFatal(t *testing.T) {
	s := newTestServer(t)
	created := create(t, s)

	var body map[string]string
	code := do(t, s, http.MethodPost, "/api/sessions/"+created.ID+"/start", &body)
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, session.ReloadMessage, body["error"])

	var st session.Status
	do(t, s, http.MethodGet, "/api/sessions/"+created.ID, &st)
	assert.Equal(t, session.ReloadMessage, st.Fatal)
	assert.False(t, st.ShowStart)
}

func TestAPI_Controls(t *testing.T) {
	s := newTestServer(t)
	created := create(t, s)

	var actions []string
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/controls", &actions))
	assert.Contains(t, actions, "zoom-in")

	// No model yet: accepted but nothing changes.
	var resp ControlResponse
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/api/sessions/"+created.ID+"/controls/zoom-in", &resp))
	assert.False(t, resp.Applied)
	assert.Equal(t, 4.0, resp.Offset.Scale)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/api/sessions/"+created.ID+"/controls/spin", nil))
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodPost, "/api/sessions/nope/controls/zoom-in", nil))
}

func TestAPI_Health(t *testing.T) {
	s := newTestServer(t)
	create(t, s)

	var body map[string]any
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/health", &body))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, float64(1), body["sessions"])
}

func TestWS_RequiresUpgrade(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusUpgradeRequired, do(t, s, http.MethodGet, "/ws/status", nil))
}

// page is a fake browser page on the session link.
type page struct {
	t  *testing.T
	ws *websocket.Conn
}

func (p *page) send(msg *protocol.Message, err error) {
	p.t.Helper()
	require.NoError(p.t, err)
	data, err := msg.Bytes()
	require.NoError(p.t, err)
	require.NoError(p.t, p.ws.WriteMessage(websocket.TextMessage, data))
}

// await reads until a message of the given type arrives, collecting audio
// commands on the way.
func (p *page) await(typ protocol.MessageType, audio *[]protocol.AudioCommand) *protocol.Message {
	p.t.Helper()
	require.NoError(p.t, p.ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, data, err := p.ws.ReadMessage()
		require.NoError(p.t, err)
		msg, err := protocol.ParseMessage(data)
		require.NoError(p.t, err)
		if msg.Type == protocol.TypeAudio && audio != nil {
			cmd, err := msg.GetAudioCommand()
			require.NoError(p.t, err)
			*audio = append(*audio, *cmd)
		}
		if msg.Type == typ {
			return msg
		}
	}
}

func poseAt(z float64) pose.Pose {
	p := pose.Identity()
	p.Position[2] = z
	return p
}

func startListening(t *testing.T, port int) *Server {
	t.Helper()
	return startListeningWith(t, testConfig(port))
}

func startListeningWith(t *testing.T, cfg Config) *Server {
	t.Helper()
	s := NewServer(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.Run(ctx)
	time.Sleep(100 * time.Millisecond)
	return s
}

func TestWS_PageDrivesSession(t *testing.T) {
	const port = 18190
	s := startListening(t, port)
	created := create(t, s)

	ws, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://localhost:%d%s", port, created.WebSocket), nil)
	require.NoError(t, err)
	defer ws.Close()
	p := &page{t: t, ws: ws}

	p.send(protocol.NewModelLoadedMessage("assets/scene.glb", []protocol.ClipData{{Name: "dance", Duration: 8}}))
	p.send(protocol.NewMessage(protocol.TypeStart, nil))

	var audio []protocol.AudioCommand
	p.await(protocol.TypeStartTracker, &audio)
	// Unlock: play, pause and rewind each track before the tracker starts.
	require.Len(t, audio, 6)
	assert.Equal(t, protocol.AudioPlay, audio[0].Op)
	assert.Equal(t, protocol.AudioPause, audio[1].Op)
	assert.Equal(t, protocol.AudioSeek, audio[2].Op)

	p.send(protocol.NewMessage(protocol.TypeTrackerStarted, nil))
	p.send(protocol.NewTargetMessage(true))

	audio = nil
	deadline := time.Now().Add(2 * time.Second)
	for len(audio) < 4 && time.Now().Before(deadline) {
		p.await(protocol.TypeAudio, &audio)
	}
	require.Len(t, audio, 4)
	assert.Equal(t, protocol.AudioCommand{Track: "secondary", Op: protocol.AudioSeek, Time: 2}, audio[2])
	assert.Equal(t, protocol.AudioPlay, audio[3].Op)

	p.send(protocol.NewPoseMessage(poseAt(0.5)))
	frame := p.await(protocol.TypeFrame, nil)
	fd, err := frame.GetFrameData()
	require.NoError(t, err)
	assert.Equal(t, 4.0, fd.Model.Scale)

	e, err := s.lookup(created.ID)
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		st := e.s.Status()
		return st.Started && st.ModelLoaded && st.PresenceName == "found"
	}, 2*time.Second, 10*time.Millisecond)

	p.send(protocol.NewControlMessage("zoom-in"))
	assert.Eventually(t, func() bool { return e.s.Status().Offset.Scale == 4.5 }, 2*time.Second, 10*time.Millisecond)

	// Closing the page ends the session.
	ws.Close()
	assert.Eventually(t, func() bool { return s.Sessions().Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWS_TrackerFailureSendsFatal(t *testing.T) {
	const port = 18191
	s := startListening(t, port)
	created := create(t, s)

	ws, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://localhost:%d%s", port, created.WebSocket), nil)
	require.NoError(t, err)
	defer ws.Close()
	p := &page{t: t, ws: ws}

	p.send(protocol.NewMessage(protocol.TypeStart, nil))
	p.await(protocol.TypeStartTracker, nil)
	p.send(protocol.NewErrorMessage(protocol.TypeTrackerError, "NotAllowedError: camera denied", ""))

	fatal := p.await(protocol.TypeFatal, nil)
	var data protocol.FatalData
	require.NoError(t, fatal.ParseData(&data))
	assert.Equal(t, session.ReloadMessage, data.Message)
}

func TestWS_StatusFeed(t *testing.T) {
	const port = 18192
	s := startListening(t, port)

	ws, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://localhost:%d/ws/status", port), nil)
	require.NoError(t, err)
	defer ws.Close()
	assert.Eventually(t, func() bool { return s.StatusHub().ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	create(t, s)

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env struct {
		Topic string          `json:"topic"`
		Data  json.RawMessage `json:"data"`
	}
	for env.Topic != TopicStatus {
		_, data, err := ws.ReadMessage()
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, &env))
	}

	var snap StatusSnapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Len(t, snap.Sessions, 1)
}

func TestAPI_SessionWithoutPageExpires(t *testing.T) {
	cfg := testConfig(0)
	cfg.AttachTimeout = 50 * time.Millisecond
	s := NewServer(cfg)
	t.Cleanup(func() { s.Shutdown() })

	created := create(t, s)
	require.Equal(t, 1, s.Sessions().Count())

	assert.Eventually(t, func() bool { return s.Sessions().Count() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/sessions/"+created.ID, nil))
}

func TestWS_AttachedSessionOutlivesDeadline(t *testing.T) {
	const port = 18193
	cfg := testConfig(port)
	cfg.AttachTimeout = 200 * time.Millisecond
	s := startListeningWith(t, cfg)
	created := create(t, s)

	ws, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://localhost:%d%s", port, created.WebSocket), nil)
	require.NoError(t, err)
	defer ws.Close()

	e, err := s.lookup(created.ID)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.attached
	}, time.Second, 5*time.Millisecond)

	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, 1, s.Sessions().Count())
}

// heldWriter blocks every write until released.
type heldWriter struct {
	entered  chan struct{}
	release  chan struct{}
	inFlight atomic.Bool
}

func (w *heldWriter) WriteMessage(_ int, _ []byte) error {
	w.inFlight.Store(true)
	w.entered <- struct{}{}
	<-w.release
	w.inFlight.Store(false)
	return nil
}

func TestPump_StopWaitsForWrite(t *testing.T) {
	s := newTestServer(t)
	e, err := s.createSession()
	require.NoError(t, err)

	w := &heldWriter{entered: make(chan struct{}, 1), release: make(chan struct{})}
	stop := s.startPump(e, w)
	require.NoError(t, e.link.SendFatal(session.ReloadMessage))

	select {
	case <-w.entered:
	case <-time.After(time.Second):
		t.Fatal("write never started")
	}

	stopped := make(chan struct{})
	go func() {
		stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("stop returned while a write was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(w.release)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("stop did not return after the write finished")
	}
	assert.False(t, w.inFlight.Load())
}
