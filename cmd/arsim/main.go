// arsim: replays a scripted page against an arstage server.
// Creates a session, plays the tracker, model loader and user from a YAML
// scenario and prints the resulting session status.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-arstage/internal/httpc"
	"github.com/teslashibe/go-arstage/internal/log"
	"github.com/teslashibe/go-arstage/pkg/protocol"
	"github.com/teslashibe/go-arstage/pkg/session"
	"github.com/teslashibe/go-arstage/pkg/web"
)

var (
	server   = flag.String("server", "http://localhost:8080", "arstage base URL")
	scenario = flag.String("scenario", "", "Scenario YAML file (required)")
	seed     = flag.Uint64("seed", 1, "Pose jitter seed")
	debug    = flag.Bool("debug", false, "Log every host message")
)

func main() {
	flag.Parse()
	if *debug {
		log.Init("debug")
	} else {
		log.Init("info")
	}

	if *scenario == "" {
		fmt.Fprintln(os.Stderr, "Usage: arsim -scenario scenario.yaml [-server http://localhost:8080]")
		os.Exit(2)
	}
	sc, err := LoadScenario(*scenario)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := run(ctx, *server, sc, rand.New(rand.NewPCG(*seed, *seed)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(st, "", "  ")
	fmt.Println(string(out))
}

// run plays sc against the server and returns the final session status.
func run(ctx context.Context, base string, sc *Scenario, rng *rand.Rand) (*session.Status, error) {
	base = strings.TrimRight(base, "/")

	var created web.CreateSessionResponse
	if err := httpc.DoJSON(ctx, http.MethodPost, base+"/api/sessions", nil, &created); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	log.Info("session created", "id", created.ID, "scenario", sc.Name)

	conn, err := httpc.Dial(ctx, "ws"+strings.TrimPrefix(base, "http")+created.WebSocket)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	p := &fakePage{conn: conn, sc: sc}
	go p.read()

	for i, step := range sc.Steps {
		msgs, err := step.Messages(sc, rng)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		for j, m := range msgs {
			if err := p.send(m); err != nil {
				return nil, fmt.Errorf("step %d: %w", i, err)
			}
			if j < len(msgs)-1 && step.Every > 0 {
				if err := sleep(ctx, step.Every); err != nil {
					return nil, err
				}
			}
		}
		if err := sleep(ctx, step.Wait); err != nil {
			return nil, err
		}
	}

	var st session.Status
	if err := httpc.DoJSON(ctx, http.MethodGet, base+"/api/sessions/"+created.ID, nil, &st); err != nil {
		return nil, fmt.Errorf("fetch status: %w", err)
	}
	log.Info("scenario done", "frames", p.frames.Load(), "audio_commands", p.audio.Load(), "fatal", p.fatal.Load())
	return &st, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// fakePage answers host requests the way the real page would.
type fakePage struct {
	conn *websocket.Conn
	sc   *Scenario

	mu     sync.Mutex
	frames atomic.Uint64
	audio  atomic.Uint64
	fatal  atomic.Bool
}

func (p *fakePage) send(m *protocol.Message) error {
	data, err := m.Bytes()
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn.WriteMessage(websocket.TextMessage, data)
}

// read consumes host messages until the connection closes.
func (p *fakePage) read() {
	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil {
			log.Warn("bad host message", "error", err)
			continue
		}

		switch msg.Type {
		case protocol.TypeFrame:
			p.frames.Add(1)
		case protocol.TypeAudio:
			p.audio.Add(1)
			if cmd, err := msg.GetAudioCommand(); err == nil {
				log.Debug("audio", "track", cmd.Track, "op", cmd.Op, "time", cmd.Time)
			}
		case protocol.TypeStartTracker:
			go p.startTracker()
		case protocol.TypeFatal:
			p.fatal.Store(true)
			log.Error("host reported fatal error")
		default:
			log.Debug("host message", "type", msg.Type)
		}
	}
}

func (p *fakePage) startTracker() {
	time.Sleep(p.sc.TrackerDelay)

	var (
		m   *protocol.Message
		err error
	)
	if p.sc.TrackerError != "" {
		m, err = protocol.NewErrorMessage(protocol.TypeTrackerError, p.sc.TrackerError, "")
	} else {
		m, err = protocol.NewMessage(protocol.TypeTrackerStarted, nil)
	}
	if err == nil {
		err = p.send(m)
	}
	if err != nil {
		log.Warn("tracker reply failed", "error", err)
	}
}
