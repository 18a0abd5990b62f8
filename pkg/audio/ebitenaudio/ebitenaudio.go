// Package ebitenaudio plays experience audio tracks on the host through
// ebiten's audio player, for kiosk installs where the page is muted.
package ebitenaudio

import "errors"

// DefaultSampleRate is the mixing rate of the shared audio context.
const DefaultSampleRate = 44100

// ErrUnavailable is returned when the binary was built without cgo.
var ErrUnavailable = errors.New("ebitenaudio: host audio not available in this build")
