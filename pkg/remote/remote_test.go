package remote

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-arstage/internal/log"
	"github.com/teslashibe/go-arstage/pkg/controls"
	"github.com/teslashibe/go-arstage/pkg/frame"
	"github.com/teslashibe/go-arstage/pkg/playback"
	"github.com/teslashibe/go-arstage/pkg/pose"
	"github.com/teslashibe/go-arstage/pkg/protocol"
	"github.com/teslashibe/go-arstage/pkg/session"
)

// next pops one queued outbound message.
func next(t *testing.T, c *Conn) *protocol.Message {
	t.Helper()
	select {
	case data := <-c.out:
		msg, err := protocol.ParseMessage(data)
		require.NoError(t, err)
		return msg
	default:
		t.Fatal("no message queued")
		return nil
	}
}

// raw encodes a freshly built message. It takes the constructor's results
// directly so calls read raw(protocol.NewX(...)).
func raw(msg *protocol.Message, err error) []byte {
	if err != nil {
		panic(err)
	}
	data, err := msg.Bytes()
	if err != nil {
		panic(err)
	}
	return data
}

type recordDispatcher struct {
	mu     sync.Mutex
	events []session.Event
}

func (d *recordDispatcher) Dispatch(ev session.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, ev)
	return nil
}

type recordWriter struct {
	mu     sync.Mutex
	frames [][]byte
	err    error
}

func (w *recordWriter) WriteMessage(_ int, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.frames = append(w.frames, data)
	return nil
}

func (w *recordWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.frames)
}

func newTestLink() *Link {
	return NewLink(LinkConfig{
		SessionID: "s1",
		Tracks:    playback.DefaultTracks(),
		QueueSize: 16,
		Clock:     frame.NewManualClock(time.Unix(0, 0)),
		Logger:    log.Discard(),
	})
}

func TestConn_QueueFullAndClosed(t *testing.T) {
	c := NewConn("c", 1, log.Discard())
	msg, err := protocol.NewPingMessage("x")
	require.NoError(t, err)

	require.NoError(t, c.Send(msg))
	assert.ErrorIs(t, c.Send(msg), ErrQueueFull)

	sent, dropped := c.Stats()
	assert.Equal(t, uint64(1), sent)
	assert.Equal(t, uint64(1), dropped)

	c.Close()
	c.Close()
	assert.ErrorIs(t, c.Send(msg), ErrNotConnected)
}

func TestConn_Pump(t *testing.T) {
	c := NewConn("c", 4, log.Discard())
	w := &recordWriter{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- c.Pump(ctx, w) }()

	msg, _ := protocol.NewPingMessage("x")
	require.NoError(t, c.Send(msg))
	require.NoError(t, c.Send(msg))
	assert.Eventually(t, func() bool { return w.count() == 2 }, time.Second, 5*time.Millisecond)

	c.Close()
	assert.NoError(t, <-errc)
}

func TestConn_PumpWriteFailureCloses(t *testing.T) {
	c := NewConn("c", 4, log.Discard())
	w := &recordWriter{err: errors.New("broken pipe")}

	msg, _ := protocol.NewPingMessage("x")
	require.NoError(t, c.Send(msg))

	err := c.Pump(context.Background(), w)
	assert.EqualError(t, err, "broken pipe")
	<-c.Done()
}

func TestTracker_StartHandshake(t *testing.T) {
	l := newTestLink()

	errc := make(chan error, 1)
	go func() { errc <- l.Tracker().Start(context.Background()) }()

	assert.Eventually(t, func() bool { return len(l.conn.out) == 1 }, time.Second, 5*time.Millisecond)
	msg := next(t, l.conn)
	assert.Equal(t, protocol.TypeStartTracker, msg.Type)

	require.NoError(t, l.Handle(raw(protocol.NewMessage(protocol.TypeTrackerStarted, nil))))
	assert.NoError(t, <-errc)
}

func TestTracker_StartFailureReported(t *testing.T) {
	l := newTestLink()
	require.NoError(t, l.Handle(raw(protocol.NewErrorMessage(protocol.TypeTrackerError, "NotAllowedError", ""))))

	err := l.Tracker().Start(context.Background())
	assert.ErrorIs(t, err, ErrTrackerStart)
	assert.Contains(t, err.Error(), "NotAllowedError")
}

func TestTracker_StartTimeout(t *testing.T) {
	l := newTestLink()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Tracker().Start(ctx), context.DeadlineExceeded)
}

func TestTracker_PoseReports(t *testing.T) {
	l := newTestLink()
	_, ok := l.Tracker().Pose()
	assert.False(t, ok)

	p := pose.Identity()
	p.Position[1] = 0.25
	require.NoError(t, l.Handle(raw(protocol.NewPoseMessage(p))))

	got, ok := l.Tracker().Pose()
	require.True(t, ok)
	assert.InDelta(t, 0.25, got.Position.Y(), 1e-12)

	l.Tracker().Stop()
	require.NoError(t, l.Handle(raw(protocol.NewPoseMessage(p))))
	_, ok = l.Tracker().Pose()
	assert.False(t, ok)
}

func TestTracker_RejectsPoseWithoutRotation(t *testing.T) {
	l := newTestLink()

	missing := raw(protocol.NewMessage(protocol.TypePose, map[string]any{"position": []float64{0.1, 0, 0}}))
	assert.ErrorIs(t, l.Handle(missing), protocol.ErrInvalidOrientation)

	zero := raw(protocol.NewMessage(protocol.TypePose, protocol.PoseData{Position: [3]float64{0.1, 0, 0}}))
	assert.ErrorIs(t, l.Handle(zero), protocol.ErrInvalidOrientation)

	_, ok := l.Tracker().Pose()
	assert.False(t, ok, "a pose without a rotation must not reach the anchor")

	scaled := raw(protocol.NewMessage(protocol.TypePose, protocol.PoseData{Orientation: [4]float64{0, 0, 0, 2}}))
	require.NoError(t, l.Handle(scaled))
	got, ok := l.Tracker().Pose()
	require.True(t, ok)
	assert.InDelta(t, 1.0, got.Orientation.Len(), 1e-12)
}

func TestAudio_EstimatesPlayhead(t *testing.T) {
	clock := frame.NewManualClock(time.Unix(0, 0))
	c := NewConn("c", 16, log.Discard())
	a := NewAudio("secondary", c, clock, log.Discard())

	require.NoError(t, a.SetCurrentTime(2*time.Second))
	require.NoError(t, a.Play())
	clock.Advance(1500 * time.Millisecond)
	assert.Equal(t, 3500*time.Millisecond, a.CurrentTime())

	a.Pause()
	clock.Advance(time.Hour)
	assert.Equal(t, 3500*time.Millisecond, a.CurrentTime())

	ops := []string{}
	for len(c.out) > 0 {
		cmd, err := next(t, c).GetAudioCommand()
		require.NoError(t, err)
		assert.Equal(t, "secondary", cmd.Track)
		ops = append(ops, cmd.Op)
	}
	assert.Equal(t, []string{"seek", "play", "pause"}, ops)
}

func TestAudio_PlayFailsWhenClosed(t *testing.T) {
	c := NewConn("c", 16, log.Discard())
	a := NewAudio("primary", c, nil, log.Discard())
	c.Close()

	assert.ErrorIs(t, a.Play(), ErrNotConnected)
	assert.False(t, a.Playing())
}

func TestLink_AudioErrorStopsPlayhead(t *testing.T) {
	l := newTestLink()
	a := l.Audio("primary")
	require.NotNil(t, a)
	require.NoError(t, a.Play())

	require.NoError(t, l.Handle(raw(protocol.NewErrorMessage(protocol.TypeAudioError, "NotAllowedError", "primary"))))
	assert.False(t, a.Playing())
	assert.Equal(t, uint64(1), a.Errors())

	err := l.Handle(raw(protocol.NewErrorMessage(protocol.TypeAudioError, "x", "tertiary")))
	assert.ErrorIs(t, err, ErrUnknownTrack)
}

func TestLink_DispatchesEvents(t *testing.T) {
	l := newTestLink()
	d := &recordDispatcher{}
	started := make(chan struct{})
	l.Bind(d, func() { close(started) })

	require.NoError(t, l.Handle(raw(protocol.NewTargetMessage(true))))
	require.NoError(t, l.Handle(raw(protocol.NewTargetMessage(false))))
	require.NoError(t, l.Handle(raw(protocol.NewControlMessage("zoom-in"))))
	require.NoError(t, l.Handle(raw(protocol.NewMessage(protocol.TypeStart, nil))))

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("start callback not invoked")
	}

	require.Len(t, d.events, 3)
	assert.Equal(t, session.EventTargetFound, d.events[0].Kind)
	assert.Equal(t, session.EventTargetLost, d.events[1].Kind)
	assert.Equal(t, session.EventControl, d.events[2].Kind)
	assert.Equal(t, controls.ZoomIn, d.events[2].Action)
}

func TestLink_RejectsBadMessages(t *testing.T) {
	l := newTestLink()

	assert.Error(t, l.Handle([]byte("not json")))
	assert.ErrorIs(t, l.Handle(raw(protocol.NewControlMessage("spin"))), controls.ErrUnknownAction)
	assert.Error(t, l.Handle(raw(protocol.NewMessage(protocol.TypeFrame, nil))))
}

func TestLink_PingPong(t *testing.T) {
	l := newTestLink()
	ping, err := protocol.NewPingMessage("page")
	require.NoError(t, err)
	data, _ := ping.Bytes()

	require.NoError(t, l.Handle(data))
	pong := next(t, l.conn)
	assert.Equal(t, protocol.TypePong, pong.Type)
}

func TestLoader_WaitsForReport(t *testing.T) {
	l := newTestLink()

	type result struct {
		m   *session.Model
		err error
	}
	done := make(chan result, 1)
	go func() {
		m, err := l.Loader().Load(context.Background(), "scene.glb")
		done <- result{m, err}
	}()

	clips := []protocol.ClipData{{Name: "dance", Duration: 12.5}}
	require.NoError(t, l.Handle(raw(protocol.NewModelLoadedMessage("", clips))))

	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, "scene.glb", r.m.Path)
	require.Len(t, r.m.Clips, 1)
	assert.Equal(t, 12500*time.Millisecond, r.m.Clips[0].Duration)
}

func TestLoader_Failure(t *testing.T) {
	l := newTestLink()
	require.NoError(t, l.Handle(raw(protocol.NewErrorMessage(protocol.TypeModelError, "404", ""))))

	_, err := l.Loader().Load(context.Background(), "scene.glb")
	assert.ErrorIs(t, err, ErrModelLoad)
}

func TestRenderer_SendsFrames(t *testing.T) {
	c := NewConn("c", 1, log.Discard())
	r := NewRenderer(c)

	r.Render(frame.Frame{Seq: 1, Visible: true, Content: pose.Identity()})
	r.Render(frame.Frame{Seq: 2})
	assert.Equal(t, uint64(1), r.Dropped())

	fd, err := next(t, c).GetFrameData()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), fd.Seq)
	assert.True(t, fd.Visible)
	assert.Equal(t, 1.0, fd.Content.Orientation[3])
}

func TestLink_DrivesSession(t *testing.T) {
	l := newTestLink()
	cfg := session.DefaultConfig()
	cfg.Logger = log.Discard()
	s := session.New("s1", cfg, l.Deps())
	defer s.Close()
	l.Bind(s, nil)

	errc := make(chan error, 1)
	go func() { errc <- s.Start(context.Background()) }()

	// Drain the unlock commands and the start request, then confirm.
	assert.Eventually(t, func() bool {
		for len(l.conn.out) > 0 {
			if next(t, l.conn).Type == protocol.TypeStartTracker {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, l.Handle(raw(protocol.NewMessage(protocol.TypeTrackerStarted, nil))))
	require.NoError(t, <-errc)

	require.NoError(t, l.Handle(raw(protocol.NewTargetMessage(true))))
	assert.True(t, l.Audio("primary").Playing())
	assert.Equal(t, 2*time.Second, l.Audio("secondary").CurrentTime())
}

func TestTracker_StopAbortsStart(t *testing.T) {
	l := newTestLink()

	errc := make(chan error, 1)
	go func() { errc <- l.Tracker().Start(context.Background()) }()
	assert.Eventually(t, func() bool { return len(l.conn.out) == 1 }, time.Second, 5*time.Millisecond)

	l.Tracker().Stop()
	l.Tracker().Stop()
	assert.ErrorIs(t, <-errc, ErrNotConnected)
}
