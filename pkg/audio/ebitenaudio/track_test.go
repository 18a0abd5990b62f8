package ebitenaudio

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teslashibe/go-arstage/pkg/playback"
)

var _ playback.Audio = (*Track)(nil)

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open("primary", filepath.Join(t.TempDir(), "missing.mp3"), DefaultSampleRate)
	assert.Error(t, err)
}
