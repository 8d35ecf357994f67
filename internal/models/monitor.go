package models

import (
	"errors"
	"time"
)

// Sentinel errors for the monitoring pipeline. Per-cycle transient
// failures wrap these so the worker loop can classify without string
// matching.
var (
	ErrCameraUnavailable        = errors.New("camera unavailable")
	ErrFrameDecode              = errors.New("frame decode failed")
	ErrInferenceUnavailable     = errors.New("inference service unavailable")
	ErrTranscriptionUnavailable = errors.New("transcription service unavailable")
	ErrDecryptionFailed         = errors.New("decryption failed")
	ErrAlreadyMonitoring        = errors.New("monitoring already active")
	ErrNotMonitoring            = errors.New("monitoring not active")
)

// Frame is a decoded grayscale pixel buffer captured from a camera.
// Pix holds one byte per pixel in row-major order (len = Width*Height).
// Frames are ephemeral: only derived artifacts are persisted.
type Frame struct {
	Width     int
	Height    int
	Pix       []uint8
	Timestamp time.Time
}

// Valid reports whether the frame carries a usable pixel buffer.
func (f *Frame) Valid() bool {
	return f != nil && f.Width > 0 && f.Height > 0 && len(f.Pix) == f.Width*f.Height
}

// MovementRegion is one bounded area of detected foreground.
type MovementRegion struct {
	X       int `json:"x"`
	Y       int `json:"y"`
	Width   int `json:"width"`
	Height  int `json:"height"`
	Area    int `json:"area"`
	CenterX int `json:"center_x"`
	CenterY int `json:"center_y"`
}

// MovementEvent is the result of one detector invocation.
// Invariant: Detected == (len(Regions) > 0) unless Err is set.
type MovementEvent struct {
	Detected    bool             `json:"detected"`
	Timestamp   time.Time        `json:"timestamp"`
	Regions     []MovementRegion `json:"regions,omitempty"`
	RegionCount int              `json:"region_count"`
	TotalArea   int              `json:"total_area"`
	Intensity   float64          `json:"intensity"`
	FrameWidth  int              `json:"frame_width"`
	FrameHeight int              `json:"frame_height"`
	Method      string           `json:"method,omitempty"`
	WarmingUp   bool             `json:"warming_up,omitempty"`
	Err         string           `json:"error,omitempty"`
}

// MovementSummary aggregates the detector's bounded history.
type MovementSummary struct {
	TotalDetections  int       `json:"total_detections"`
	AverageIntensity float64   `json:"average_intensity"`
	MaxIntensity     float64   `json:"max_intensity"`
	MinIntensity     float64   `json:"min_intensity"`
	LastDetection    time.Time `json:"last_detection,omitempty"`
}

// TranscriptionResult is the outcome of one speech-to-text attempt.
type TranscriptionResult struct {
	OK         bool    `json:"ok"`
	Text       string  `json:"text,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Err        string  `json:"error,omitempty"`
}

// AnalysisRecord is the derived artifact stored (encrypted) after each
// gated inference call.
type AnalysisRecord struct {
	Timestamp     time.Time `json:"timestamp"`
	RegionCount   int       `json:"region_count"`
	Intensity     float64   `json:"intensity"`
	AudioContext  string    `json:"audio_context,omitempty"`
	Analysis      string    `json:"analysis"`
	SessionID     string    `json:"session_id"`
	PromptVersion string    `json:"prompt_version,omitempty"`
}

// CameraInfo describes an acquired camera source.
type CameraInfo struct {
	Active     bool   `json:"active"`
	Index      int    `json:"index"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	FPS        int    `json:"fps"`
	FrameCount uint64 `json:"frame_count"`
	Backend    string `json:"backend,omitempty"`
}

// CameraDevice is one probed capture device.
type CameraDevice struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Path  string `json:"path"`
}

// StartResult is returned by StartMonitoring.
type StartResult struct {
	Success         bool        `json:"success"`
	Message         string      `json:"message,omitempty"`
	SessionID       string      `json:"session_id,omitempty"`
	CameraInfo      *CameraInfo `json:"camera_info,omitempty"`
	AudioEnabled    bool        `json:"audio_enabled"`
	Error           string      `json:"error,omitempty"`
	Troubleshooting []string    `json:"troubleshooting,omitempty"`
}

// StopResult is returned by StopMonitoring.
type StopResult struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Stats   *Statistics `json:"stats,omitempty"`
}

// FrameResult is returned by GetCurrentFrame. Image is base64 JPEG or
// base64 ciphertext depending on Encrypted.
type FrameResult struct {
	Image     string    `json:"image"`
	Encrypted bool      `json:"encrypted"`
	Annotated bool      `json:"annotated"`
	Timestamp time.Time `json:"timestamp"`
}

// EncryptedRecord is a ciphertext entry returned when callers request
// analyses without decryption.
type EncryptedRecord struct {
	Key        string `json:"key"`
	Ciphertext string `json:"ciphertext"`
}

// Statistics is a torn-read-free snapshot of session counters.
type Statistics struct {
	TotalFrames         uint64          `json:"total_frames"`
	MovementsDetected   uint64          `json:"movements_detected"`
	AIAnalyses          uint64          `json:"ai_analyses"`
	AudioTranscriptions uint64          `json:"audio_transcriptions"`
	StartedAt           time.Time       `json:"started_at,omitempty"`
	IsMonitoring        bool            `json:"is_monitoring"`
	CameraActive        bool            `json:"camera_active"`
	AudioRecording      bool            `json:"audio_recording"`
	AudioLevel          float64         `json:"audio_level"`
	SessionID           string          `json:"session_id,omitempty"`
	LastTranscription   string          `json:"last_transcription,omitempty"`
	MovementSummary     MovementSummary `json:"movement_summary"`
}

// EncryptionStatus reports the privacy posture of the store.
type EncryptionStatus struct {
	Enabled      bool     `json:"encryption_enabled"`
	Algorithm    string   `json:"encryption_algorithm"`
	KeyCount     int      `json:"secure_storage_keys"`
	PrivacyNotes []string `json:"privacy_notes"`
}

// SituationAnalysis is the result of an on-demand one-shot analysis
// combining the latest movement snapshot with recent audio.
type SituationAnalysis struct {
	Success       bool          `json:"success"`
	Timestamp     time.Time     `json:"timestamp"`
	Movement      MovementEvent `json:"movement_data"`
	Transcription string        `json:"audio_transcription,omitempty"`
	Analysis      string        `json:"ai_analysis,omitempty"`
	Error         string        `json:"error,omitempty"`
}

// AnalysisRequest is the summary payload published to external sinks
// (MQTT, ClickHouse) when a gated inference completes. It carries no
// plaintext analysis text, only the ciphertext storage key.
type AnalysisRequest struct {
	SessionID   string    `json:"session_id"`
	Timestamp   time.Time `json:"timestamp"`
	RegionCount int       `json:"region_count"`
	Intensity   float64   `json:"intensity"`
	StorageKey  string    `json:"storage_key"`
}
