package audio

import (
	"encoding/binary"
	"math"
)

const (
	// Maximum magnitude of signed 16-bit audio, the reference for both
	// the dB and the percent scales.
	referenceLevel = 32768.0

	// Floor preventing log(0) on silent buffers.
	minimumRMS = 1.0
)

// calculateRMS16Bit computes the RMS of 16-bit little-endian PCM.
func calculateRMS16Bit(pcm []byte) float64 {
	if len(pcm) < 2 {
		return 0
	}

	var sumSquares float64
	sampleCount := len(pcm) / 2

	for i := 0; i+1 < len(pcm); i += 2 {
		sample := float64(int16(binary.LittleEndian.Uint16(pcm[i : i+2])))
		sumSquares += sample * sample
	}

	return math.Sqrt(sumSquares / float64(sampleCount))
}

// LevelPercent maps PCM loudness onto 0-100. Quiet room audio sits
// well below full scale, so the raw ratio is boosted 10x before
// clamping to keep the meter readable.
func LevelPercent(pcm []byte) float64 {
	rms := calculateRMS16Bit(pcm)
	level := rms / referenceLevel * 100 * 10
	if level > 100 {
		level = 100
	}
	return level
}

// LevelDB converts PCM loudness to decibels relative to full scale,
// clamped to [-80, 0].
func LevelDB(pcm []byte) float64 {
	rms := calculateRMS16Bit(pcm)
	if rms < minimumRMS {
		rms = minimumRMS
	}

	db := 20.0 * math.Log10(rms/referenceLevel)
	if db < -80.0 {
		db = -80.0
	}
	if db > 0.0 {
		db = 0.0
	}
	return db
}
