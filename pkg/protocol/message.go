// Package protocol defines the WebSocket message types exchanged between the
// browser page (tracker + renderer) and the go-arstage session host.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Browser → Host messages
	TypeTargetFound    MessageType = "target_found"    // Tracker found the image target
	TypeTargetLost     MessageType = "target_lost"     // Tracker lost the image target
	TypePose           MessageType = "pose"            // Raw anchor pose for the current frame
	TypeModelLoaded    MessageType = "model_loaded"    // 3D asset finished loading
	TypeModelError     MessageType = "model_error"     // 3D asset failed to load
	TypeTrackerStarted MessageType = "tracker_started" // Tracker start succeeded
	TypeTrackerError   MessageType = "tracker_error"   // Tracker start failed
	TypeAudioError     MessageType = "audio_error"     // An audio element rejected playback
	TypeControl        MessageType = "control"         // Manual transform button
	TypeStart          MessageType = "start"           // User pressed the start button

	// Host → Browser messages
	TypeFrame        MessageType = "frame"         // Content transform for one refresh
	TypeAudio        MessageType = "audio"         // Audio element command
	TypeStartTracker MessageType = "start_tracker" // Ask the page to start its tracker
	TypeFatal        MessageType = "fatal"         // Session cannot continue, reload required

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// =============================================================================
// Browser → Host Message Types
// =============================================================================

// PoseData is a rigid transform.
// Orientation is a quaternion in x, y, z, w order, as three.js stores it.
type PoseData struct {
	Position    [3]float64 `json:"position"`
	Orientation [4]float64 `json:"orientation"`
}

// ClipData describes one animation clip of a loaded model.
type ClipData struct {
	Name     string  `json:"name"`
	Duration float64 `json:"duration"` // Seconds
}

// ModelData reports a loaded model.
type ModelData struct {
	Path  string     `json:"path"`
	Clips []ClipData `json:"clips,omitempty"`
}

// ErrorData reports a failure on the page.
type ErrorData struct {
	Message string `json:"message"`
	Track   string `json:"track,omitempty"` // Set for audio errors
}

// ControlData carries a manual transform action name.
type ControlData struct {
	Action string `json:"action"` // rotate-up, rotate-down, rotate-left, rotate-right, zoom-in, zoom-out
}

// =============================================================================
// Host → Browser Message Types
// =============================================================================

// ModelTransformData is the model-local transform.
type ModelTransformData struct {
	Position  [3]float64 `json:"position"`
	RotationX float64    `json:"rotation_x"`
	RotationY float64    `json:"rotation_y"`
	Scale     float64    `json:"scale"`
}

// ClipTimeData is the playhead of one animation action.
type ClipTimeData struct {
	Name   string  `json:"name"`
	Time   float64 `json:"time"` // Seconds
	Paused bool    `json:"paused"`
}

// FrameData is the content transform for one refresh.
type FrameData struct {
	Seq     uint64             `json:"seq"`
	Visible bool               `json:"visible"`
	Content PoseData           `json:"content"`
	Model   ModelTransformData `json:"model"`
	Clips   []ClipTimeData     `json:"clips,omitempty"`
}

// Audio operations
const (
	AudioPlay  = "play"
	AudioPause = "pause"
	AudioSeek  = "seek"
)

// AudioCommand controls one audio element on the page.
type AudioCommand struct {
	Track string  `json:"track"`
	Op    string  `json:"op"`             // play, pause, seek
	Time  float64 `json:"time,omitempty"` // Seconds, for seek
}

// StartTrackerData asks the page to start its tracker.
type StartTrackerData struct {
	SessionID string `json:"session_id"`
}

// FatalData reports an unrecoverable session error.
type FatalData struct {
	Message string `json:"message"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData is sent for health checks
type PingData struct {
	ClientID string `json:"client_id,omitempty"`
}

// PongData is the response to a ping
type PongData struct {
	ClientID  string `json:"client_id,omitempty"`
	PingTS    int64  `json:"ping_ts"`
	ServerTS  int64  `json:"server_ts"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}
