package camera

import (
	"math"
	"sync"
	"time"

	"vision-backend/internal/models"
)

const detectionMethod = "background_subtraction"

// DetectorConfig tunes the adaptive background model.
type DetectorConfig struct {
	Sensitivity  float64 // per-pixel diff threshold (0-255), lower = more sensitive
	MinArea      int     // minimum connected-component area in pixels
	WarmupFrames int     // frames consumed seeding the model before detection starts
	LearningRate float64 // exponential weight folding each frame into the model
	HistorySize  int     // bounded event history capacity
}

// DefaultDetectorConfig returns the tuning used by the monitoring
// supervisor unless overridden.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		Sensitivity:  25,
		MinArea:      500,
		WarmupFrames: 5,
		LearningRate: 0.05,
		HistorySize:  100,
	}
}

// Detector maintains an exponentially weighted per-pixel background
// model and extracts bounded movement regions from each frame.
//
// Not safe for concurrent Detect calls; the monitoring worker is the
// single owner. History and Summary reads are lock-protected so status
// queries may run concurrently with the worker.
type Detector struct {
	cfg DetectorConfig

	width, height int
	background    []float64
	framesSeen    int

	// reusable scratch buffers, sized on first frame
	mask    []uint8
	scratch []uint8
	labels  []int32
	queue   []int32

	histMu  sync.RWMutex
	history []models.MovementEvent
}

// NewDetector creates a detector with the given tuning. Zero-valued
// fields fall back to defaults.
func NewDetector(cfg DetectorConfig) *Detector {
	def := DefaultDetectorConfig()
	if cfg.Sensitivity <= 0 {
		cfg.Sensitivity = def.Sensitivity
	}
	if cfg.MinArea <= 0 {
		cfg.MinArea = def.MinArea
	}
	if cfg.WarmupFrames <= 0 {
		cfg.WarmupFrames = def.WarmupFrames
	}
	if cfg.LearningRate <= 0 || cfg.LearningRate >= 1 {
		cfg.LearningRate = def.LearningRate
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = def.HistorySize
	}
	return &Detector{cfg: cfg}
}

// Detect runs one detection cycle. The background model absorbs every
// valid frame, including the current one. During the warmup phase the
// event reports WarmingUp and history is left untouched. An invalid
// frame yields an error-tagged event and no state change.
func (d *Detector) Detect(frame *models.Frame) models.MovementEvent {
	if !frame.Valid() {
		return models.MovementEvent{
			Detected:  false,
			Timestamp: time.Now(),
			Method:    detectionMethod,
			Err:       models.ErrFrameDecode.Error(),
		}
	}

	ts := frame.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	// Resolution change resets the model; the old statistics are
	// meaningless against a different pixel grid.
	if d.background == nil || d.width != frame.Width || d.height != frame.Height {
		d.seed(frame)
		return models.MovementEvent{
			Detected:    false,
			Timestamp:   ts,
			FrameWidth:  frame.Width,
			FrameHeight: frame.Height,
			Method:      detectionMethod,
			WarmingUp:   true,
		}
	}

	d.framesSeen++
	warming := d.framesSeen <= d.cfg.WarmupFrames

	// Foreground mask from model difference, then fold the frame in.
	n := len(frame.Pix)
	for i := 0; i < n; i++ {
		diff := float64(frame.Pix[i]) - d.background[i]
		if diff < 0 {
			diff = -diff
		}
		if !warming && diff > d.cfg.Sensitivity {
			d.mask[i] = 255
		} else {
			d.mask[i] = 0
		}
		d.background[i] += d.cfg.LearningRate * (float64(frame.Pix[i]) - d.background[i])
	}

	if warming {
		return models.MovementEvent{
			Detected:    false,
			Timestamp:   ts,
			FrameWidth:  frame.Width,
			FrameHeight: frame.Height,
			Method:      detectionMethod,
			WarmingUp:   true,
		}
	}

	// Speckle removal: morphological open then close with a fixed 3x3
	// structuring element.
	erode(d.mask, d.scratch, d.width, d.height)
	dilate(d.scratch, d.mask, d.width, d.height)
	dilate(d.mask, d.scratch, d.width, d.height)
	erode(d.scratch, d.mask, d.width, d.height)

	regions, totalArea := d.extractRegions()

	frameArea := frame.Width * frame.Height
	intensity := roundTo2(float64(totalArea) / float64(frameArea) * 100)

	event := models.MovementEvent{
		Detected:    len(regions) > 0,
		Timestamp:   ts,
		Regions:     regions,
		RegionCount: len(regions),
		TotalArea:   totalArea,
		Intensity:   intensity,
		FrameWidth:  frame.Width,
		FrameHeight: frame.Height,
		Method:      detectionMethod,
	}

	// Empty detections are not historized; activity history stays
	// meaningful and bounded.
	if event.Detected {
		d.appendHistory(event)
	}
	return event
}

// seed initializes the model from the first frame of a session (or
// after a resolution change).
func (d *Detector) seed(frame *models.Frame) {
	n := frame.Width * frame.Height
	d.width, d.height = frame.Width, frame.Height
	d.background = make([]float64, n)
	for i, p := range frame.Pix {
		d.background[i] = float64(p)
	}
	d.mask = make([]uint8, n)
	d.scratch = make([]uint8, n)
	d.labels = make([]int32, n)
	d.queue = make([]int32, 0, n/4)
	d.framesSeen = 1
}

// extractRegions labels 8-connected components of the mask and keeps
// those meeting the minimum area.
func (d *Detector) extractRegions() ([]models.MovementRegion, int) {
	for i := range d.labels {
		d.labels[i] = 0
	}

	var regions []models.MovementRegion
	totalArea := 0
	next := int32(0)
	w, h := d.width, d.height

	for start := 0; start < len(d.mask); start++ {
		if d.mask[start] == 0 || d.labels[start] != 0 {
			continue
		}
		next++
		d.queue = d.queue[:0]
		d.queue = append(d.queue, int32(start))
		d.labels[start] = next

		minX, minY := w, h
		maxX, maxY := 0, 0
		area := 0

		for len(d.queue) > 0 {
			idx := int(d.queue[len(d.queue)-1])
			d.queue = d.queue[:len(d.queue)-1]
			x, y := idx%w, idx/w

			area++
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}

			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					ni := ny*w + nx
					if d.mask[ni] != 0 && d.labels[ni] == 0 {
						d.labels[ni] = next
						d.queue = append(d.queue, int32(ni))
					}
				}
			}
		}

		if area < d.cfg.MinArea {
			continue
		}

		bw := maxX - minX + 1
		bh := maxY - minY + 1
		regions = append(regions, models.MovementRegion{
			X:       minX,
			Y:       minY,
			Width:   bw,
			Height:  bh,
			Area:    area,
			CenterX: minX + bw/2,
			CenterY: minY + bh/2,
		})
		totalArea += area
	}

	return regions, totalArea
}

func (d *Detector) appendHistory(event models.MovementEvent) {
	d.histMu.Lock()
	defer d.histMu.Unlock()

	d.history = append(d.history, event)
	if len(d.history) > d.cfg.HistorySize {
		d.history = d.history[len(d.history)-d.cfg.HistorySize:]
	}
}

// History returns the most recent detected events, newest last. A
// non-positive limit returns the full bounded history.
func (d *Detector) History(limit int) []models.MovementEvent {
	d.histMu.RLock()
	defer d.histMu.RUnlock()

	n := len(d.history)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.MovementEvent, n)
	copy(out, d.history[len(d.history)-n:])
	return out
}

// Summary aggregates the bounded history.
func (d *Detector) Summary() models.MovementSummary {
	d.histMu.RLock()
	defer d.histMu.RUnlock()

	if len(d.history) == 0 {
		return models.MovementSummary{}
	}

	sum := 0.0
	maxI := d.history[0].Intensity
	minI := d.history[0].Intensity
	for _, e := range d.history {
		sum += e.Intensity
		if e.Intensity > maxI {
			maxI = e.Intensity
		}
		if e.Intensity < minI {
			minI = e.Intensity
		}
	}
	return models.MovementSummary{
		TotalDetections:  len(d.history),
		AverageIntensity: roundTo2(sum / float64(len(d.history))),
		MaxIntensity:     maxI,
		MinIntensity:     minI,
		LastDetection:    d.history[len(d.history)-1].Timestamp,
	}
}

// Reset clears the background model and history, returning the
// detector to its pre-session state.
func (d *Detector) Reset() {
	d.background = nil
	d.framesSeen = 0

	d.histMu.Lock()
	d.history = nil
	d.histMu.Unlock()
}

// erode writes the 3x3 erosion of src into dst. Pixels outside the
// frame count as background, so mask content touching the border
// erodes away.
func erode(src, dst []uint8, w, h int) {
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			keep := true
		neighborhood:
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h || src[ny*w+nx] == 0 {
						keep = false
						break neighborhood
					}
				}
			}
			if keep {
				dst[y*w+x] = 255
			} else {
				dst[y*w+x] = 0
			}
		}
	}
}

// dilate writes the 3x3 dilation of src into dst.
func dilate(src, dst []uint8, w, h int) {
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			set := false
		neighborhood:
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx >= 0 && ny >= 0 && nx < w && ny < h && src[ny*w+nx] != 0 {
						set = true
						break neighborhood
					}
				}
			}
			if set {
				dst[y*w+x] = 255
			} else {
				dst[y*w+x] = 0
			}
		}
	}
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
