package audio

import (
	"context"
	"log"
	"sync"
	"time"

	"vision-backend/internal/models"
)

// Channel is the microphone surface consumed by the monitoring
// supervisor. TranscribeRecent is the only blocking, network-dependent
// operation and is invoked only under the analysis throttle.
type Channel interface {
	StartRecording() bool
	StopRecording()
	TranscribeRecent(ctx context.Context, duration time.Duration) models.TranscriptionResult
	Level() float64
	IsRecording() bool
}

// Input supplies raw PCM chunks from a capture device. ReadChunk
// blocks until a chunk is available or the input is closed.
type Input interface {
	ReadChunk() ([]byte, error)
	Close() error
}

// Transcriber converts WAV-encoded audio to text. Implementations live
// in internal/ai; the interface is declared here on the consumer side
// so the recorder can be tested with fakes.
type Transcriber interface {
	Transcribe(ctx context.Context, wav []byte, sampleRate int) (models.TranscriptionResult, error)
}

// RecorderConfig tunes the rolling capture buffer.
type RecorderConfig struct {
	SampleRate     int           // Hz
	Channels       int           // 1 = mono
	ChunkSamples   int           // samples per buffered chunk
	BufferDuration time.Duration // rolling window kept in memory
}

// DefaultRecorderConfig matches 16 kHz mono capture with a 30 s window.
func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{
		SampleRate:     16000,
		Channels:       1,
		ChunkSamples:   1024,
		BufferDuration: 30 * time.Second,
	}
}

// Recorder buffers 16-bit PCM from an Input into a bounded rolling
// window and transcribes the most recent seconds on demand.
type Recorder struct {
	cfg         RecorderConfig
	input       Input
	transcriber Transcriber

	mu        sync.Mutex
	recording bool
	buffer    [][]byte
	maxChunks int
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewRecorder builds a recorder over the given input and transcriber.
// transcriber may be nil; TranscribeRecent then reports unavailable.
func NewRecorder(cfg RecorderConfig, input Input, transcriber Transcriber) *Recorder {
	if cfg.SampleRate <= 0 || cfg.ChunkSamples <= 0 {
		cfg = DefaultRecorderConfig()
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.BufferDuration <= 0 {
		cfg.BufferDuration = 30 * time.Second
	}
	maxChunks := int(cfg.BufferDuration.Seconds() * float64(cfg.SampleRate) / float64(cfg.ChunkSamples))
	if maxChunks < 1 {
		maxChunks = 1
	}
	return &Recorder{
		cfg:         cfg,
		input:       input,
		transcriber: transcriber,
		maxChunks:   maxChunks,
	}
}

// StartRecording begins the background capture loop. Returns false if
// already recording or no input is wired.
func (r *Recorder) StartRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording || r.input == nil {
		return false
	}

	r.recording = true
	r.buffer = nil
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	go r.captureLoop(r.stopCh, r.doneCh)
	return true
}

// StopRecording ends capture. Safe to call when not recording.
func (r *Recorder) StopRecording() {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return
	}
	r.recording = false
	stop, done := r.stopCh, r.doneCh
	r.mu.Unlock()

	close(stop)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		log.Println("Recorder: capture loop did not stop in time")
	}
}

// IsRecording reports whether the capture loop is active.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

func (r *Recorder) captureLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case <-stop:
			return
		default:
		}

		chunk, err := r.input.ReadChunk()
		if err != nil {
			log.Printf("Recorder: error reading audio chunk: %v", err)
			select {
			case <-stop:
				return
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}

		r.mu.Lock()
		r.buffer = append(r.buffer, chunk)
		if len(r.buffer) > r.maxChunks {
			r.buffer = r.buffer[len(r.buffer)-r.maxChunks:]
		}
		r.mu.Unlock()
	}
}

// Level returns the instantaneous audio level in percent (0-100),
// computed as RMS over the most recent chunks.
func (r *Recorder) Level() float64 {
	r.mu.Lock()
	n := len(r.buffer)
	if n == 0 {
		r.mu.Unlock()
		return 0
	}
	start := n - 5
	if start < 0 {
		start = 0
	}
	recent := make([]byte, 0, (n-start)*r.cfg.ChunkSamples*2)
	for _, chunk := range r.buffer[start:] {
		recent = append(recent, chunk...)
	}
	r.mu.Unlock()

	return LevelPercent(recent)
}

// recentPCM copies the last duration seconds of buffered audio.
func (r *Recorder) recentPCM(duration time.Duration) []byte {
	chunksNeeded := int(duration.Seconds() * float64(r.cfg.SampleRate) / float64(r.cfg.ChunkSamples))

	r.mu.Lock()
	defer r.mu.Unlock()

	start := len(r.buffer) - chunksNeeded
	if start < 0 {
		start = 0
	}
	var pcm []byte
	for _, chunk := range r.buffer[start:] {
		pcm = append(pcm, chunk...)
	}
	return pcm
}

// TranscribeRecent sends the last duration seconds of audio to the
// transcription capability. Transport failures are reported in the
// result, never raised.
func (r *Recorder) TranscribeRecent(ctx context.Context, duration time.Duration) models.TranscriptionResult {
	if r.transcriber == nil {
		return models.TranscriptionResult{OK: false, Err: models.ErrTranscriptionUnavailable.Error()}
	}

	pcm := r.recentPCM(duration)
	if len(pcm) == 0 {
		return models.TranscriptionResult{OK: false, Err: "no audio buffered"}
	}

	wav := EncodeWAV(pcm, r.cfg.SampleRate, r.cfg.Channels)
	result, err := r.transcriber.Transcribe(ctx, wav, r.cfg.SampleRate)
	if err != nil {
		log.Printf("Recorder: transcription failed: %v", err)
		return models.TranscriptionResult{OK: false, Err: err.Error()}
	}
	return result
}

// BufferedDuration reports how much audio the rolling window holds.
func (r *Recorder) BufferedDuration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	samples := len(r.buffer) * r.cfg.ChunkSamples
	return time.Duration(float64(samples) / float64(r.cfg.SampleRate) * float64(time.Second))
}

// Summary describes the recorder's current state for status reporting.
type Summary struct {
	Recording       bool    `json:"recording"`
	SampleRate      int     `json:"sample_rate"`
	Channels        int     `json:"channels"`
	BufferedSeconds float64 `json:"buffered_seconds"`
	Level           float64 `json:"level"`
}

// Summary snapshots the recorder state.
func (r *Recorder) Summary() Summary {
	return Summary{
		Recording:       r.IsRecording(),
		SampleRate:      r.cfg.SampleRate,
		Channels:        r.cfg.Channels,
		BufferedSeconds: r.BufferedDuration().Seconds(),
		Level:           r.Level(),
	}
}
