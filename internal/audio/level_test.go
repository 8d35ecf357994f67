package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func pcmFromSamples(samples []int16) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}
	return pcm
}

// TestSilenceLevels verifies silence meters at zero percent and the dB
// floor.
func TestSilenceLevels(t *testing.T) {
	silence := pcmFromSamples(make([]int16, 1024))

	if level := LevelPercent(silence); level != 0 {
		t.Errorf("expected 0%% for silence, got %.2f", level)
	}
	if db := LevelDB(silence); db != -80.0 {
		t.Errorf("expected -80 dB floor for silence, got %.2f", db)
	}
}

// TestConstantAmplitudeRMS verifies the RMS of a constant-amplitude
// signal equals that amplitude.
func TestConstantAmplitudeRMS(t *testing.T) {
	samples := make([]int16, 1000)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = 8192
		} else {
			samples[i] = -8192
		}
	}

	rms := calculateRMS16Bit(pcmFromSamples(samples))
	if math.Abs(rms-8192) > 1 {
		t.Errorf("expected RMS 8192, got %.2f", rms)
	}

	// 8192/32768 = 25%, boosted 10x clamps to 100.
	if level := LevelPercent(pcmFromSamples(samples)); level != 100 {
		t.Errorf("expected clamped 100%%, got %.2f", level)
	}
}

// TestLevelPercentScaling verifies the 10x meter boost on quiet audio.
func TestLevelPercentScaling(t *testing.T) {
	samples := make([]int16, 1000)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = 328 // ~1% of full scale
		} else {
			samples[i] = -328
		}
	}

	level := LevelPercent(pcmFromSamples(samples))
	if level < 9 || level > 11 {
		t.Errorf("expected ~10%% after boost, got %.2f", level)
	}
}

// TestFullScaleDB verifies a full-scale signal sits at 0 dB.
func TestFullScaleDB(t *testing.T) {
	samples := make([]int16, 100)
	for i := range samples {
		samples[i] = math.MaxInt16
	}

	db := LevelDB(pcmFromSamples(samples))
	if db > 0 || db < -0.1 {
		t.Errorf("expected ~0 dB at full scale, got %.2f", db)
	}
}

// TestShortBufferSafe verifies degenerate inputs do not panic.
func TestShortBufferSafe(t *testing.T) {
	for _, pcm := range [][]byte{nil, {}, {0x01}} {
		if rms := calculateRMS16Bit(pcm); rms != 0 {
			t.Errorf("expected 0 RMS for %v, got %.2f", pcm, rms)
		}
	}
}
