//go:build cgo

package ebitenaudio

import (
	"bytes"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/audio/mp3"
)

var (
	ctxOnce sync.Once
	ctx     *audio.Context
)

// audioContext returns the process-wide audio context. ebiten allows only one,
// and its sample rate is fixed by the first caller.
func audioContext(sampleRate int) *audio.Context {
	ctxOnce.Do(func() {
		if sampleRate <= 0 {
			sampleRate = DefaultSampleRate
		}
		ctx = audio.NewContext(sampleRate)
	})
	return ctx
}

// Track is an MP3 audio element. It implements playback.Audio.
type Track struct {
	name string

	mu     sync.Mutex
	player *audio.Player
}

// Open decodes the MP3 file at path into a paused track at time zero.
func Open(name, path string, sampleRate int) (*Track, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	c := audioContext(sampleRate)
	stream, err := mp3.DecodeWithSampleRate(c.SampleRate(), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	player, err := c.NewPlayer(stream)
	if err != nil {
		return nil, fmt.Errorf("player %s: %w", path, err)
	}
	return &Track{name: name, player: player}, nil
}

// Name returns the track name.
func (t *Track) Name() string {
	return t.name
}

// Play starts or resumes playback. Host audio has no autoplay policy, so it
// never rejects.
func (t *Track) Play() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.player.Play()
	return nil
}

// Pause pauses playback, keeping the position.
func (t *Track) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.player.Pause()
}

// SetCurrentTime seeks.
func (t *Track) SetCurrentTime(d time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.player.SetPosition(d)
}

// CurrentTime returns the playback position.
func (t *Track) CurrentTime() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.player.Position()
}

// Close releases the player.
func (t *Track) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.player.Close()
}
