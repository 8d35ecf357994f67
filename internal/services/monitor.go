package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"vision-backend/internal/ai"
	"vision-backend/internal/audio"
	"vision-backend/internal/camera"
	"vision-backend/internal/models"
	"vision-backend/internal/privacy"
)

type sessionState int

const (
	stateIdle sessionState = iota
	stateRunning
	stateStopping
)

// Sink receives derived artifacts for persistence beyond the process
// lifetime. Implementations must never receive plaintext analysis
// text; they get summaries and storage keys only.
type Sink interface {
	SaveMovementEvent(ctx context.Context, sessionID string, event models.MovementEvent) error
	SaveAnalysis(ctx context.Context, req models.AnalysisRequest) error
}

// Emitter publishes event summaries to external subscribers.
type Emitter interface {
	PublishMovement(sessionID string, event models.MovementEvent)
	PublishAnalysis(req models.AnalysisRequest)
}

// MonitorConfig tunes the supervisor's timing policy.
type MonitorConfig struct {
	AnalysisInterval      time.Duration // min gap between inference calls
	TranscriptionInterval time.Duration // min gap between transcription calls
	TranscribeDuration    time.Duration // how much recent audio to transcribe
	CycleDelay            time.Duration // sleep between loop cycles
	CaptureRetryDelay     time.Duration // sleep after a failed capture
	StopTimeout           time.Duration // bound on worker join at stop
	JPEGQuality           int
	Temperature           float64 // inference sampling temperature
	MaxTokens             int     // inference response budget
}

// DefaultMonitorConfig mirrors the source system's cadence: analysis
// every 2 s, transcription every 5 s, 50 ms cycle sleep.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		AnalysisInterval:      2 * time.Second,
		TranscriptionInterval: 5 * time.Second,
		TranscribeDuration:    5 * time.Second,
		CycleDelay:            50 * time.Millisecond,
		CaptureRetryDelay:     100 * time.Millisecond,
		StopTimeout:           5 * time.Second,
		JPEGQuality:           85,
		Temperature:           0.3,
		MaxTokens:             500,
	}
}

// MonitorService owns the monitoring session lifecycle. Exactly one
// worker goroutine runs per active session and is the sole caller of
// CaptureFrame and TranscribeRecent; every exposed query reads a
// lock-protected snapshot instead of touching the devices.
type MonitorService struct {
	cfg       MonitorConfig
	newSource func(index int) camera.Source
	audio     audio.Channel
	detector  *camera.Detector
	store     *privacy.SecureStore
	codec     *privacy.Codec
	inference ai.Inference
	sink      Sink    // optional
	emitter   Emitter // optional

	mu           sync.Mutex
	state        sessionState
	sessionID    string
	source       camera.Source
	audioEnabled bool
	stats        *Stats
	lastFrame    *models.Frame
	lastEvent    models.MovementEvent
	stopCh       chan struct{}
	doneCh       chan struct{}
}

// NewMonitorService wires the supervisor. newSource constructs a
// camera for the requested index (injected so tests run on fakes);
// audioCh, sink and emitter may be nil.
func NewMonitorService(
	cfg MonitorConfig,
	newSource func(index int) camera.Source,
	audioCh audio.Channel,
	detector *camera.Detector,
	codec *privacy.Codec,
	store *privacy.SecureStore,
	inference ai.Inference,
	sink Sink,
	emitter Emitter,
) *MonitorService {
	def := DefaultMonitorConfig()
	if cfg.AnalysisInterval <= 0 {
		cfg.AnalysisInterval = def.AnalysisInterval
	}
	if cfg.TranscriptionInterval <= 0 {
		cfg.TranscriptionInterval = def.TranscriptionInterval
	}
	if cfg.TranscribeDuration <= 0 {
		cfg.TranscribeDuration = def.TranscribeDuration
	}
	if cfg.CycleDelay <= 0 {
		cfg.CycleDelay = def.CycleDelay
	}
	if cfg.CaptureRetryDelay <= 0 {
		cfg.CaptureRetryDelay = def.CaptureRetryDelay
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = def.StopTimeout
	}
	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = def.JPEGQuality
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = def.Temperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	return &MonitorService{
		cfg:       cfg,
		newSource: newSource,
		audio:     audioCh,
		detector:  detector,
		codec:     codec,
		store:     store,
		inference: inference,
		sink:      sink,
		emitter:   emitter,
		stats:     NewStats(time.Time{}),
	}
}

// StartMonitoring acquires the camera (and audio if requested) and
// spawns the worker. A second start while running fails without side
// effects. Camera acquisition failure is surfaced synchronously with
// troubleshooting hints and leaves the service idle.
func (m *MonitorService) StartMonitoring(cameraIndex int, enableAudio bool) models.StartResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != stateIdle {
		return models.StartResult{
			Success: false,
			Error:   models.ErrAlreadyMonitoring.Error(),
		}
	}

	source := m.newSource(cameraIndex)
	if err := source.Start(); err != nil {
		source.Stop()
		return models.StartResult{
			Success:         false,
			Error:           fmt.Sprintf("failed to start camera: %v", err),
			Troubleshooting: camera.Troubleshoot(cameraIndex),
		}
	}

	audioStarted := false
	if enableAudio && m.audio != nil {
		audioStarted = m.audio.StartRecording()
		if !audioStarted {
			log.Println("MonitorService: audio requested but recording could not start")
		}
	}

	// Fresh session state: detector model, history and counters reset.
	m.detector.Reset()
	m.stats = NewStats(time.Now())
	m.sessionID = uuid.NewString()
	m.source = source
	m.audioEnabled = audioStarted
	m.lastFrame = nil
	m.lastEvent = models.MovementEvent{}
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	m.state = stateRunning

	go m.worker(m.stopCh, m.doneCh, source, m.stats, audioStarted, m.sessionID)

	log.Printf("MonitorService: monitoring started (session=%s, audio=%v)", m.sessionID, audioStarted)
	info := source.Info()
	return models.StartResult{
		Success:      true,
		Message:      "camera monitoring started",
		SessionID:    m.sessionID,
		CameraInfo:   &info,
		AudioEnabled: audioStarted,
	}
}

// StopMonitoring signals the worker and joins it with a bounded
// timeout. On timeout the camera and audio handles are force-released
// and a warning is logged; the operation still reports success.
func (m *MonitorService) StopMonitoring() models.StopResult {
	m.mu.Lock()
	if m.state != stateRunning {
		m.mu.Unlock()
		return models.StopResult{
			Success: false,
			Message: models.ErrNotMonitoring.Error(),
		}
	}
	m.state = stateStopping
	stop, done := m.stopCh, m.doneCh
	source := m.source
	m.mu.Unlock()

	close(stop)
	select {
	case <-done:
	case <-time.After(m.cfg.StopTimeout):
		log.Printf("MonitorService: worker did not exit within %v, force-releasing resources", m.cfg.StopTimeout)
	}

	source.Stop()
	if m.audio != nil {
		m.audio.StopRecording()
	}

	m.mu.Lock()
	m.state = stateIdle
	m.source = nil
	m.mu.Unlock()

	stats := m.GetStatistics()
	log.Println("MonitorService: monitoring stopped")
	return models.StopResult{
		Success: true,
		Message: "camera monitoring stopped",
		Stats:   &stats,
	}
}

// worker is the single monitoring loop. All per-cycle failures are
// absorbed here; nothing short of the stop signal terminates it.
func (m *MonitorService) worker(stop <-chan struct{}, done chan<- struct{}, source camera.Source, stats *Stats, audioEnabled bool, sessionID string) {
	defer close(done)

	var lastAnalysisTime time.Time
	var lastTranscriptionTime time.Time
	var lastTranscription string

	for {
		select {
		case <-stop:
			return
		default:
		}

		frame, err := source.CaptureFrame()
		if err != nil || frame == nil {
			if !m.sleepOrStop(stop, m.cfg.CaptureRetryDelay) {
				return
			}
			continue
		}

		stats.IncFrames()
		event := m.detector.Detect(frame)
		if event.Err != "" {
			log.Printf("MonitorService: frame skipped: %s", event.Err)
			if !m.sleepOrStop(stop, m.cfg.CycleDelay) {
				return
			}
			continue
		}

		m.mu.Lock()
		m.lastFrame = frame
		m.lastEvent = event
		m.mu.Unlock()

		if event.Detected {
			stats.IncDetections()

			key := fmt.Sprintf("movement_%d", event.Timestamp.UnixNano())
			if !m.store.Store(key, event) {
				log.Printf("MonitorService: failed to store movement event %s", key)
			}
			if m.emitter != nil {
				m.emitter.PublishMovement(sessionID, event)
			}
			if m.sink != nil {
				if err := m.sink.SaveMovementEvent(context.Background(), sessionID, event); err != nil {
					log.Printf("MonitorService: sink error for movement event: %v", err)
				}
			}

			now := time.Now()
			decision := Throttle(lastAnalysisTime, lastTranscriptionTime, now,
				m.cfg.AnalysisInterval, m.cfg.TranscriptionInterval)

			if decision.RunTranscription && audioEnabled {
				result := m.audio.TranscribeRecent(context.Background(), m.cfg.TranscribeDuration)
				lastTranscriptionTime = now
				if result.OK {
					lastTranscription = result.Text
					stats.IncTranscriptions(result.Text)
				} else if result.Err != "" {
					log.Printf("MonitorService: transcription skipped: %s", result.Err)
				}
			}

			if decision.RunAnalysis {
				// The timestamp advances even when inference fails so
				// a slow or dead service cannot cause a retry storm
				// inside one throttle window.
				lastAnalysisTime = now
				m.analyzeMovement(event, lastTranscription, sessionID, stats)
			}
		}

		if !m.sleepOrStop(stop, m.cfg.CycleDelay) {
			return
		}
	}
}

// sleepOrStop waits for d and reports false if the stop signal fired.
func (m *MonitorService) sleepOrStop(stop <-chan struct{}, d time.Duration) bool {
	select {
	case <-stop:
		return false
	case <-time.After(d):
		return true
	}
}

// analyzeMovement builds the prompt, calls the inference capability
// and stores the encrypted record. Inference failure skips this
// cycle's analysis, nothing else.
func (m *MonitorService) analyzeMovement(event models.MovementEvent, audioText, sessionID string, stats *Stats) {
	if m.inference == nil {
		return
	}

	prompt := buildAnalysisPrompt(event, m.detector.Summary(), audioText)

	text, err := m.inference.Chat(context.Background(), prompt, m.cfg.Temperature, m.cfg.MaxTokens)
	if err != nil {
		log.Printf("MonitorService: inference skipped: %v", err)
		return
	}

	record := models.AnalysisRecord{
		Timestamp:    time.Now(),
		RegionCount:  event.RegionCount,
		Intensity:    event.Intensity,
		AudioContext: audioText,
		Analysis:     text,
		SessionID:    sessionID,
	}

	key := fmt.Sprintf("analysis_%d", record.Timestamp.UnixNano())
	if !m.store.Store(key, record) {
		log.Printf("MonitorService: failed to store analysis record %s", key)
		return
	}
	stats.IncAnalyses()

	req := models.AnalysisRequest{
		SessionID:   sessionID,
		Timestamp:   record.Timestamp,
		RegionCount: record.RegionCount,
		Intensity:   record.Intensity,
		StorageKey:  key,
	}
	if m.emitter != nil {
		m.emitter.PublishAnalysis(req)
	}
	if m.sink != nil {
		if err := m.sink.SaveAnalysis(context.Background(), req); err != nil {
			log.Printf("MonitorService: sink error for analysis record: %v", err)
		}
	}
}

// buildAnalysisPrompt renders the movement summary (and audio context
// when available) into the security-analysis prompt.
func buildAnalysisPrompt(event models.MovementEvent, summary models.MovementSummary, audioText string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `Analyze the following movement detection data from a building security camera:

Current Movement:
- Detected regions: %d
- Movement intensity: %.2f%%
- Total area: %d pixels

Movement History:
- Total detections: %d
- Average intensity: %.2f%%
- Max intensity: %.2f%%`,
		event.RegionCount, event.Intensity, event.TotalArea,
		summary.TotalDetections, summary.AverageIntensity, summary.MaxIntensity)

	if audioText != "" {
		fmt.Fprintf(&b, `

Audio Context (from microphone):
%q

Consider the audio context when analyzing the movement.`, audioText)
	}

	b.WriteString(`

Provide a brief security analysis:
1. Is this normal activity or unusual?
2. What type of movement pattern does this suggest?
3. Any security recommendations?

Keep the response concise (2-3 sentences).`)

	return b.String()
}

// GetCurrentFrame returns the worker's latest frame snapshot, never
// touching the camera from the caller's goroutine. Returns
// ErrNotMonitoring when no frame has been captured yet.
func (m *MonitorService) GetCurrentFrame(encrypted, annotated bool) (*models.FrameResult, error) {
	m.mu.Lock()
	frame := m.lastFrame
	event := m.lastEvent
	m.mu.Unlock()

	if frame == nil {
		return nil, models.ErrNotMonitoring
	}

	if annotated && event.Detected {
		frame = camera.DrawMovement(frame, event)
	}

	jpegBytes, err := camera.EncodeFrameJPEG(frame, m.cfg.JPEGQuality)
	if err != nil {
		return nil, err
	}

	var image string
	if encrypted {
		image, err = m.codec.Encrypt(jpegBytes)
		if err != nil {
			return nil, err
		}
	} else {
		image = base64.StdEncoding.EncodeToString(jpegBytes)
	}

	return &models.FrameResult{
		Image:     image,
		Encrypted: encrypted,
		Annotated: annotated,
		Timestamp: frame.Timestamp,
	}, nil
}

// GetMovementHistory returns the most recent detected events.
func (m *MonitorService) GetMovementHistory(limit int) []models.MovementEvent {
	return m.detector.History(limit)
}

// GetMovementAnalysis returns up to limit decrypted analysis records,
// newest first. Records that fail decryption are skipped.
func (m *MonitorService) GetMovementAnalysis(limit int) []models.AnalysisRecord {
	keys := m.analysisKeys(limit)
	records := make([]models.AnalysisRecord, 0, len(keys))
	for _, key := range keys {
		var record models.AnalysisRecord
		if m.store.RetrieveInto(key, &record) {
			records = append(records, record)
		}
	}
	return records
}

// GetMovementAnalysisEncrypted returns analysis entries as opaque
// ciphertext, newest first, for callers that hold no key.
func (m *MonitorService) GetMovementAnalysisEncrypted(limit int) []models.EncryptedRecord {
	keys := m.analysisKeys(limit)
	records := make([]models.EncryptedRecord, 0, len(keys))
	for _, key := range keys {
		if ciphertext, ok := m.store.Ciphertext(key); ok {
			records = append(records, models.EncryptedRecord{Key: key, Ciphertext: ciphertext})
		}
	}
	return records
}

// analysisKeys lists analysis storage keys newest first. ListKeys is
// lexicographic and keys end in fixed-width nanosecond timestamps, so
// reversing gives reverse-chronological order.
func (m *MonitorService) analysisKeys(limit int) []string {
	all := m.store.ListKeys()
	var keys []string
	for i := len(all) - 1; i >= 0; i-- {
		if strings.HasPrefix(all[i], "analysis_") {
			keys = append(keys, all[i])
			if limit > 0 && len(keys) >= limit {
				break
			}
		}
	}
	return keys
}

// GetStatistics returns a torn-read-free snapshot of the session.
func (m *MonitorService) GetStatistics() models.Statistics {
	m.mu.Lock()
	stats := m.stats
	running := m.state == stateRunning
	source := m.source
	sessionID := m.sessionID
	audioEnabled := m.audioEnabled
	m.mu.Unlock()

	out := stats.Snapshot()
	out.IsMonitoring = running
	out.SessionID = sessionID
	out.MovementSummary = m.detector.Summary()
	if source != nil {
		out.CameraActive = source.Info().Active
	}
	if m.audio != nil {
		out.AudioRecording = audioEnabled && m.audio.IsRecording()
		out.AudioLevel = m.audio.Level()
	}
	return out
}

// GetEncryptionStatus reports the privacy posture of the store.
func (m *MonitorService) GetEncryptionStatus() models.EncryptionStatus {
	return models.EncryptionStatus{
		Enabled:   true,
		Algorithm: privacy.Algorithm,
		KeyCount:  m.store.Len(),
		PrivacyNotes: []string{
			"all movement and analysis data is encrypted at rest",
			"AI inference runs against a locally hosted model",
			"speech transcription leaves the process only as WAV audio to the configured endpoint",
		},
	}
}

// AnalyzeSituation runs a one-shot analysis of the worker's latest
// movement snapshot plus recent audio. It respects the single-owner
// capture rule by never reading the camera directly.
func (m *MonitorService) AnalyzeSituation(ctx context.Context) models.SituationAnalysis {
	m.mu.Lock()
	frame := m.lastFrame
	event := m.lastEvent
	stats := m.stats
	m.mu.Unlock()

	if frame == nil {
		return models.SituationAnalysis{
			Success: false,
			Error:   "no frame available",
		}
	}

	// The worker owns TranscribeRecent; reuse its most recent text
	// instead of issuing a concurrent call.
	audioText := stats.LastTranscription()

	if m.inference == nil {
		return models.SituationAnalysis{
			Success: false,
			Error:   models.ErrInferenceUnavailable.Error(),
		}
	}

	prompt := buildAnalysisPrompt(event, m.detector.Summary(), audioText)
	text, err := m.inference.Chat(ctx, prompt, m.cfg.Temperature, m.cfg.MaxTokens)
	if err != nil {
		return models.SituationAnalysis{
			Success: false,
			Error:   err.Error(),
		}
	}

	return models.SituationAnalysis{
		Success:       true,
		Timestamp:     time.Now(),
		Movement:      event,
		Transcription: audioText,
		Analysis:      text,
	}
}
