package camera

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"sync"
	"time"

	"vision-backend/internal/models"
)

// Source is the capture surface consumed by the monitoring supervisor.
// The supervisor's worker goroutine owns CaptureFrame exclusively for
// the session's lifetime; Stop must be safe even when Start failed or
// was never called.
type Source interface {
	Start() error
	Stop()
	CaptureFrame() (*models.Frame, error)
	EncodeJPEG(quality int) ([]byte, error)
	Info() models.CameraInfo
}

// EncodeFrameJPEG compresses a grayscale frame to JPEG bytes.
func EncodeFrameJPEG(frame *models.Frame, quality int) ([]byte, error) {
	if !frame.Valid() {
		return nil, models.ErrFrameDecode
	}
	if quality < 1 || quality > 100 {
		quality = 85
	}

	img := &image.Gray{
		Pix:    frame.Pix,
		Stride: frame.Width,
		Rect:   image.Rect(0, 0, frame.Width, frame.Height),
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

// SyntheticConfig tunes the generated test pattern.
type SyntheticConfig struct {
	Width      int
	Height     int
	Background uint8
	BlockSize  int   // side of the moving block; 0 disables movement
	BlockValue uint8 // block pixel value, contrasting the background
	MoveEvery  int   // frames between block position steps
}

// DefaultSyntheticConfig returns a 640x480 scene with a moving block.
func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		Width:      640,
		Height:     480,
		Background: 40,
		BlockSize:  100,
		BlockValue: 220,
		MoveEvery:  1,
	}
}

// SyntheticSource generates grayscale frames in-process. It stands in
// for a hardware camera during development and carries the same
// lifecycle contract.
type SyntheticSource struct {
	cfg SyntheticConfig

	mu         sync.Mutex
	active     bool
	frameCount uint64
	blockX     int
	blockY     int
	lastFrame  *models.Frame
}

// NewSyntheticSource creates a synthetic camera.
func NewSyntheticSource(cfg SyntheticConfig) *SyntheticSource {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		def := DefaultSyntheticConfig()
		cfg.Width, cfg.Height = def.Width, def.Height
	}
	return &SyntheticSource{cfg: cfg}
}

// Start activates the source. Idempotent.
func (s *SyntheticSource) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = true
	return nil
}

// Stop deactivates the source. Safe to call before Start.
func (s *SyntheticSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
}

// CaptureFrame renders the next frame of the pattern.
func (s *SyntheticSource) CaptureFrame() (*models.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return nil, models.ErrCameraUnavailable
	}

	w, h := s.cfg.Width, s.cfg.Height
	pix := make([]uint8, w*h)
	for i := range pix {
		pix[i] = s.cfg.Background
	}

	if s.cfg.BlockSize > 0 {
		if s.cfg.MoveEvery > 0 && s.frameCount%uint64(s.cfg.MoveEvery) == 0 {
			s.blockX = (s.blockX + 7) % (w - s.cfg.BlockSize)
			s.blockY = (s.blockY + 3) % (h - s.cfg.BlockSize)
		}
		for y := s.blockY; y < s.blockY+s.cfg.BlockSize && y < h; y++ {
			for x := s.blockX; x < s.blockX+s.cfg.BlockSize && x < w; x++ {
				pix[y*w+x] = s.cfg.BlockValue
			}
		}
	}

	s.frameCount++
	frame := &models.Frame{
		Width:     w,
		Height:    h,
		Pix:       pix,
		Timestamp: time.Now(),
	}
	s.lastFrame = frame
	return frame, nil
}

// EncodeJPEG compresses the most recently captured frame.
func (s *SyntheticSource) EncodeJPEG(quality int) ([]byte, error) {
	s.mu.Lock()
	frame := s.lastFrame
	s.mu.Unlock()

	if frame == nil {
		return nil, models.ErrCameraUnavailable
	}
	return EncodeFrameJPEG(frame, quality)
}

// Info reports the source's properties.
func (s *SyntheticSource) Info() models.CameraInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.CameraInfo{
		Active:     s.active,
		Index:      -1,
		Width:      s.cfg.Width,
		Height:     s.cfg.Height,
		FPS:        20,
		FrameCount: s.frameCount,
		Backend:    "synthetic",
	}
}
