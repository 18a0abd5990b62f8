package remote

import "errors"

var (
	// ErrNotConnected is returned when sending on a closed link.
	ErrNotConnected = errors.New("remote: not connected")

	// ErrQueueFull is returned when the outbound queue cannot take another message.
	ErrQueueFull = errors.New("remote: outbound queue full")

	// ErrTrackerStart wraps a tracker start failure reported by the page.
	ErrTrackerStart = errors.New("remote: tracker start failed")

	// ErrModelLoad wraps a model load failure reported by the page.
	ErrModelLoad = errors.New("remote: model load failed")

	// ErrUnknownTrack is returned for audio reports naming no known track.
	ErrUnknownTrack = errors.New("remote: unknown track")
)
