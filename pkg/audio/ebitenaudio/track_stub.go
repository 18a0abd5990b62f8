//go:build !cgo

package ebitenaudio

import "time"

// Track is unavailable without cgo.
type Track struct{}

// Open always fails without cgo.
func Open(name, path string, sampleRate int) (*Track, error) {
	return nil, ErrUnavailable
}

func (t *Track) Name() string                         { return "" }
func (t *Track) Play() error                          { return ErrUnavailable }
func (t *Track) Pause()                               {}
func (t *Track) SetCurrentTime(d time.Duration) error { return ErrUnavailable }
func (t *Track) CurrentTime() time.Duration           { return 0 }
func (t *Track) Close() error                         { return nil }
