package main

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-arstage/pkg/protocol"
)

// Scenario is a scripted page: what the tracker, the model loader and the
// user do, in order.
type Scenario struct {
	Name string `yaml:"name"`

	// TrackerError, when set, makes the fake tracker fail to start with it.
	TrackerError string `yaml:"tracker_error"`

	// TrackerDelay is how long the fake tracker takes to start.
	TrackerDelay time.Duration `yaml:"tracker_delay" validate:"gte=0"`

	Model ScenarioModel `yaml:"model"`
	Steps []Step        `yaml:"steps" validate:"required,min=1,dive"`
}

// ScenarioModel is what the fake page reports after loading its model.
type ScenarioModel struct {
	Path  string         `yaml:"path"`
	Error string         `yaml:"error"`
	Clips []ScenarioClip `yaml:"clips" validate:"dive"`
}

// ScenarioClip is one animation clip.
type ScenarioClip struct {
	Name     string        `yaml:"name" validate:"required"`
	Duration time.Duration `yaml:"duration" validate:"gt=0"`
}

// Step is one scripted page action.
type Step struct {
	// Send is the message to send: start, target_found, target_lost, pose,
	// control or model. Empty for a pure wait.
	Send string `yaml:"send" validate:"omitempty,oneof=start target_found target_lost pose control model"`

	// Wait is how long to pause after the step.
	Wait time.Duration `yaml:"wait" validate:"gte=0"`

	// Action is the control action for send: control.
	Action string `yaml:"action" validate:"required_if=Send control"`

	// Pose fields for send: pose.
	Position    [3]float64    `yaml:"position"`
	Orientation [4]float64    `yaml:"orientation"`
	Jitter      float64       `yaml:"jitter" validate:"gte=0"`
	Repeat      int           `yaml:"repeat" validate:"gte=0"`
	Every       time.Duration `yaml:"every" validate:"gte=0"`
}

var errEmptyStep = errors.New("step has neither send nor wait")

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := validator.New().Struct(sc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	for i, st := range sc.Steps {
		if st.Send == "" && st.Wait == 0 {
			return nil, fmt.Errorf("step %d: %w", i, errEmptyStep)
		}
	}
	return &sc, nil
}

// ModelMessage is what the page reports once its model load settles.
func (sc *Scenario) ModelMessage() (*protocol.Message, error) {
	if sc.Model.Error != "" {
		return protocol.NewErrorMessage(protocol.TypeModelError, sc.Model.Error, "")
	}
	clips := make([]protocol.ClipData, len(sc.Model.Clips))
	for i, c := range sc.Model.Clips {
		clips[i] = protocol.ClipData{Name: c.Name, Duration: c.Duration.Seconds()}
	}
	return protocol.NewModelLoadedMessage(sc.Model.Path, clips)
}

// Messages expands a step into the messages it sends, in order.
func (st Step) Messages(sc *Scenario, rng *rand.Rand) ([]*protocol.Message, error) {
	one := func(m *protocol.Message, err error) ([]*protocol.Message, error) {
		if err != nil {
			return nil, err
		}
		return []*protocol.Message{m}, nil
	}

	switch st.Send {
	case "":
		return nil, nil
	case "start":
		return one(protocol.NewMessage(protocol.TypeStart, nil))
	case "target_found":
		return one(protocol.NewTargetMessage(true))
	case "target_lost":
		return one(protocol.NewTargetMessage(false))
	case "control":
		return one(protocol.NewControlMessage(st.Action))
	case "model":
		return one(sc.ModelMessage())
	case "pose":
		n := st.Repeat
		if n <= 0 {
			n = 1
		}
		out := make([]*protocol.Message, 0, n)
		for i := 0; i < n; i++ {
			m, err := protocol.NewMessage(protocol.TypePose, st.pose(rng))
			if err != nil {
				return nil, err
			}
			out = append(out, m)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown send %q", st.Send)
	}
}

// pose returns the step pose with uniform jitter on the position.
func (st Step) pose(rng *rand.Rand) protocol.PoseData {
	p := protocol.PoseData{Position: st.Position, Orientation: st.Orientation}
	if p.Orientation == [4]float64{} {
		p.Orientation = [4]float64{0, 0, 0, 1}
	}
	if st.Jitter > 0 && rng != nil {
		for i := range p.Position {
			p.Position[i] += (rng.Float64()*2 - 1) * st.Jitter
		}
	}
	return p
}
