package mqtt

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"vision-backend/internal/models"
)

// Controller is the subset of the monitor service the control
// subscriber drives remotely
type Controller interface {
	StartMonitoring(cameraIndex int, enableAudio bool) models.StartResult
	StopMonitoring() models.StopResult
}

// StartCommand is the payload accepted on the start control topic.
// An empty payload uses the defaults configured at startup
type StartCommand struct {
	CameraIndex *int  `json:"camera_index,omitempty"`
	EnableAudio *bool `json:"enable_audio,omitempty"`
}

// ControlSubscriber handles remote start/stop commands over MQTT
type ControlSubscriber struct {
	client     mqtt.Client
	controller Controller

	// Topic pattern, e.g. "monitor/control/#"
	controlTopic string

	// Defaults applied when a start command omits fields
	defaultCameraIndex int
	defaultEnableAudio bool
}

// ControlSubscriberConfig holds configuration for the control subscriber
type ControlSubscriberConfig struct {
	ControlTopic       string // e.g., "monitor/control/#"
	DefaultCameraIndex int
	DefaultEnableAudio bool
}

// NewControlSubscriber creates a new control subscriber
func NewControlSubscriber(client mqtt.Client, config ControlSubscriberConfig, controller Controller) *ControlSubscriber {
	return &ControlSubscriber{
		client:             client,
		controller:         controller,
		controlTopic:       config.ControlTopic,
		defaultCameraIndex: config.DefaultCameraIndex,
		defaultEnableAudio: config.DefaultEnableAudio,
	}
}

// Subscribe subscribes to the control topic
func (s *ControlSubscriber) Subscribe() error {
	if s.controlTopic == "" {
		return nil
	}

	token := s.client.Subscribe(s.controlTopic, 1, s.handleControl)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to control topic: %w", token.Error())
	}

	log.Printf("Subscribed to control topic: %s", s.controlTopic)
	return nil
}

// handleControl dispatches a control message by the last topic segment
// Example: "monitor/control/start" -> start, "monitor/control/stop" -> stop
func (s *ControlSubscriber) handleControl(client mqtt.Client, msg mqtt.Message) {
	command := extractCommand(msg.Topic())

	switch command {
	case "start":
		s.handleStart(msg.Payload())
	case "stop":
		s.handleStop()
	default:
		log.Printf("Ignoring unknown control command: %s", msg.Topic())
	}
}

// handleStart parses an optional StartCommand payload and starts monitoring
func (s *ControlSubscriber) handleStart(payload []byte) {
	cameraIndex := s.defaultCameraIndex
	enableAudio := s.defaultEnableAudio

	if len(payload) > 0 {
		var cmd StartCommand
		if err := json.Unmarshal(payload, &cmd); err != nil {
			log.Printf("Error parsing start command: %v", err)
			return
		}
		if cmd.CameraIndex != nil {
			cameraIndex = *cmd.CameraIndex
		}
		if cmd.EnableAudio != nil {
			enableAudio = *cmd.EnableAudio
		}
	}

	result := s.controller.StartMonitoring(cameraIndex, enableAudio)
	if result.Success {
		log.Printf("Control: Started monitoring session %s (camera %d, audio %v)",
			result.SessionID, cameraIndex, enableAudio)
	} else {
		log.Printf("Control: Start command failed: %s", result.Error)
	}
}

// handleStop stops the active monitoring session
func (s *ControlSubscriber) handleStop() {
	result := s.controller.StopMonitoring()
	if result.Success {
		log.Printf("Control: Stopped monitoring: %s", result.Message)
	} else {
		log.Printf("Control: Stop command failed: %s", result.Message)
	}
}

// extractCommand extracts the command from a control topic
// Example: "monitor/control/start" -> "start"
func extractCommand(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) >= 3 {
		return parts[len(parts)-1]
	}
	return ""
}
