package camera

import "vision-backend/internal/models"

const (
	boxValue    uint8 = 255
	centerValue uint8 = 0
)

// DrawMovement returns a copy of the frame with bounding boxes and
// centroid markers for each detected region. The input frame is not
// modified. Frames without detections are returned as-is.
func DrawMovement(frame *models.Frame, event models.MovementEvent) *models.Frame {
	if !frame.Valid() || !event.Detected {
		return frame
	}

	out := &models.Frame{
		Width:     frame.Width,
		Height:    frame.Height,
		Pix:       append([]uint8(nil), frame.Pix...),
		Timestamp: frame.Timestamp,
	}

	for _, r := range event.Regions {
		drawRect(out, r.X, r.Y, r.Width, r.Height)
		drawDot(out, r.CenterX, r.CenterY, 3)
	}
	return out
}

// drawRect traces a 2px rectangle outline, clipped to the frame.
func drawRect(f *models.Frame, x, y, w, h int) {
	for t := 0; t < 2; t++ {
		drawHLine(f, x, x+w-1, y+t)
		drawHLine(f, x, x+w-1, y+h-1-t)
		drawVLine(f, y, y+h-1, x+t)
		drawVLine(f, y, y+h-1, x+w-1-t)
	}
}

func drawHLine(f *models.Frame, x0, x1, y int) {
	if y < 0 || y >= f.Height {
		return
	}
	for x := max(x0, 0); x <= x1 && x < f.Width; x++ {
		f.Pix[y*f.Width+x] = boxValue
	}
}

func drawVLine(f *models.Frame, y0, y1, x int) {
	if x < 0 || x >= f.Width {
		return
	}
	for y := max(y0, 0); y <= y1 && y < f.Height; y++ {
		f.Pix[y*f.Width+x] = boxValue
	}
}

func drawDot(f *models.Frame, cx, cy, radius int) {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy > radius*radius {
				continue
			}
			x, y := cx+dx, cy+dy
			if x >= 0 && y >= 0 && x < f.Width && y < f.Height {
				f.Pix[y*f.Width+x] = centerValue
			}
		}
	}
}
