package protocol

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/teslashibe/go-arstage/pkg/animation"
	"github.com/teslashibe/go-arstage/pkg/controls"
	"github.com/teslashibe/go-arstage/pkg/frame"
	"github.com/teslashibe/go-arstage/pkg/pose"
)

// =============================================================================
// Conversions
// =============================================================================

// ErrInvalidOrientation is returned when a pose carries no usable rotation.
var ErrInvalidOrientation = errors.New("protocol: orientation is not a rotation")

// minQuatLen is the shortest quaternion still taken as a rotation.
const minQuatLen = 1e-6

// ToPose converts wire pose data to a Pose. The orientation is normalised;
// a missing or near-zero quaternion is rejected.
func (p PoseData) ToPose() (pose.Pose, error) {
	q := mgl64.Quat{W: p.Orientation[3], V: mgl64.Vec3{p.Orientation[0], p.Orientation[1], p.Orientation[2]}}
	n := q.Len()
	if n < minQuatLen {
		return pose.Pose{}, fmt.Errorf("%w: %v", ErrInvalidOrientation, p.Orientation)
	}
	return pose.Pose{
		Position:    mgl64.Vec3{p.Position[0], p.Position[1], p.Position[2]},
		Orientation: q.Scale(1 / n),
	}, nil
}

// PoseDataFrom converts a Pose to wire pose data.
func PoseDataFrom(p pose.Pose) PoseData {
	return PoseData{
		Position:    [3]float64{p.Position[0], p.Position[1], p.Position[2]},
		Orientation: [4]float64{p.Orientation.V[0], p.Orientation.V[1], p.Orientation.V[2], p.Orientation.W},
	}
}

// Seconds converts a clip duration on the wire to a time.Duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// FrameDataFrom converts a rendered frame to wire frame data.
func FrameDataFrom(f frame.Frame) FrameData {
	return FrameData{
		Seq:     f.Seq,
		Visible: f.Visible,
		Content: PoseDataFrom(f.Content),
		Model:   modelTransformData(f.Model),
		Clips:   clipTimes(f.Clips),
	}
}

func modelTransformData(m controls.ModelTransform) ModelTransformData {
	return ModelTransformData{
		Position:  [3]float64{m.Position[0], m.Position[1], m.Position[2]},
		RotationX: m.RotationX,
		RotationY: m.RotationY,
		Scale:     m.Scale,
	}
}

func clipTimes(states []animation.ActionState) []ClipTimeData {
	if len(states) == 0 {
		return nil
	}
	out := make([]ClipTimeData, len(states))
	for i, s := range states {
		out[i] = ClipTimeData{Name: s.Name, Time: s.Time.Seconds(), Paused: s.Paused}
	}
	return out
}

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewTargetMessage creates a target_found or target_lost message.
func NewTargetMessage(found bool) (*Message, error) {
	if found {
		return NewMessage(TypeTargetFound, nil)
	}
	return NewMessage(TypeTargetLost, nil)
}

// NewPoseMessage creates a raw pose message.
func NewPoseMessage(p pose.Pose) (*Message, error) {
	return NewMessage(TypePose, PoseDataFrom(p))
}

// NewModelLoadedMessage creates a model_loaded message.
func NewModelLoadedMessage(path string, clips []ClipData) (*Message, error) {
	return NewMessage(TypeModelLoaded, ModelData{Path: path, Clips: clips})
}

// NewErrorMessage creates an error report of the given type.
func NewErrorMessage(msgType MessageType, message, track string) (*Message, error) {
	return NewMessage(msgType, ErrorData{Message: message, Track: track})
}

// NewControlMessage creates a control message.
func NewControlMessage(action string) (*Message, error) {
	return NewMessage(TypeControl, ControlData{Action: action})
}

// NewFrameMessage creates a frame message from a rendered frame.
func NewFrameMessage(f frame.Frame) (*Message, error) {
	return NewMessage(TypeFrame, FrameDataFrom(f))
}

// NewAudioMessage creates an audio command message.
func NewAudioMessage(track, op string, at time.Duration) (*Message, error) {
	cmd := AudioCommand{Track: track, Op: op}
	if op == AudioSeek {
		cmd.Time = at.Seconds()
	}
	return NewMessage(TypeAudio, cmd)
}

// NewStartTrackerMessage creates a start_tracker message.
func NewStartTrackerMessage(sessionID string) (*Message, error) {
	return NewMessage(TypeStartTracker, StartTrackerData{SessionID: sessionID})
}

// NewFatalMessage creates a fatal message.
func NewFatalMessage(message string) (*Message, error) {
	return NewMessage(TypeFatal, FatalData{Message: message})
}

// NewPingMessage creates a ping message
func NewPingMessage(clientID string) (*Message, error) {
	return NewMessage(TypePing, PingData{ClientID: clientID})
}

// NewPongMessage creates a pong response
func NewPongMessage(clientID string, pingTS, serverTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ClientID: clientID,
		PingTS:   pingTS,
		ServerTS: serverTS,
	})
}

// =============================================================================
// Helper functions for parsing message data
// =============================================================================

// GetPoseData extracts PoseData from a message
func (m *Message) GetPoseData() (*PoseData, error) {
	var data PoseData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetModelData extracts ModelData from a message
func (m *Message) GetModelData() (*ModelData, error) {
	var data ModelData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetErrorData extracts ErrorData from a message
func (m *Message) GetErrorData() (*ErrorData, error) {
	var data ErrorData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetControlData extracts ControlData from a message
func (m *Message) GetControlData() (*ControlData, error) {
	var data ControlData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetFrameData extracts FrameData from a message
func (m *Message) GetFrameData() (*FrameData, error) {
	var data FrameData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetAudioCommand extracts AudioCommand from a message
func (m *Message) GetAudioCommand() (*AudioCommand, error) {
	var data AudioCommand
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts PingData from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
