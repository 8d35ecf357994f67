package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"vision-backend/internal/models"
)

// MovementSummaryMsg is the wire payload for movement notifications.
// Summaries only: region geometry and raw frames never leave the
// process through this path
type MovementSummaryMsg struct {
	SessionID   string    `json:"session_id"`
	Timestamp   time.Time `json:"timestamp"`
	RegionCount int       `json:"region_count"`
	TotalArea   int       `json:"total_area"`
	Intensity   float64   `json:"intensity"`
}

// Publisher handles MQTT publishing from channels
type Publisher struct {
	client mqtt.Client

	// Input channels (read by publisher, written by the monitor worker)
	MovementChan chan *MovementSummaryMsg
	AnalysisChan chan *models.AnalysisRequest

	// Topic patterns
	movementTopic string // e.g., "monitor/{session_id}/movement"
	analysisTopic string // e.g., "monitor/{session_id}/analysis"
}

// PublisherConfig holds configuration for MQTT publisher
type PublisherConfig struct {
	MovementTopic string // e.g., "monitor/{session_id}/movement"
	AnalysisTopic string // e.g., "monitor/{session_id}/analysis"
	QueueSize     int
}

// NewPublisher creates a new MQTT publisher with channels
func NewPublisher(client mqtt.Client, config PublisherConfig) *Publisher {
	if config.QueueSize <= 0 {
		config.QueueSize = 50
	}
	return &Publisher{
		client:        client,
		MovementChan:  make(chan *MovementSummaryMsg, config.QueueSize),
		AnalysisChan:  make(chan *models.AnalysisRequest, config.QueueSize),
		movementTopic: config.MovementTopic,
		analysisTopic: config.AnalysisTopic,
	}
}

// PublishMovement queues a movement summary for publishing.
// Non-blocking: if the queue is full the summary is dropped so a slow
// broker never stalls the capture loop
func (p *Publisher) PublishMovement(sessionID string, event models.MovementEvent) {
	msg := &MovementSummaryMsg{
		SessionID:   sessionID,
		Timestamp:   event.Timestamp,
		RegionCount: event.RegionCount,
		TotalArea:   event.TotalArea,
		Intensity:   event.Intensity,
	}
	select {
	case p.MovementChan <- msg:
	default:
		log.Printf("Warning: Movement queue full, dropping summary for session %s", sessionID)
	}
}

// PublishAnalysis queues an analysis summary for publishing. Non-blocking
func (p *Publisher) PublishAnalysis(req models.AnalysisRequest) {
	select {
	case p.AnalysisChan <- &req:
	default:
		log.Printf("Warning: Analysis queue full, dropping summary for session %s", req.SessionID)
	}
}

// Start begins publishing summaries from the channels
// Runs until context is cancelled
func (p *Publisher) Start(ctx context.Context) {
	log.Println("MQTT Publisher: Starting...")

	for {
		select {
		case <-ctx.Done():
			log.Println("MQTT Publisher: Context cancelled, shutting down...")
			return

		case msg := <-p.MovementChan:
			if err := p.publishJSON(formatTopic(p.movementTopic, msg.SessionID), msg); err != nil {
				log.Printf("Error publishing movement summary: %v", err)
			}

		case req := <-p.AnalysisChan:
			if err := p.publishJSON(formatTopic(p.analysisTopic, req.SessionID), req); err != nil {
				log.Printf("Error publishing analysis summary: %v", err)
			}
		}
	}
}

// publishJSON marshals and publishes a payload at QoS 1
func (p *Publisher) publishJSON(topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	token := p.client.Publish(topic, 1, false, data)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, token.Error())
	}
	return nil
}

// formatTopic replaces {session_id} placeholder with the actual session ID
func formatTopic(topicPattern, sessionID string) string {
	return strings.ReplaceAll(topicPattern, "{session_id}", sessionID)
}
