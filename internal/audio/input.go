package audio

import (
	"encoding/binary"
	"errors"
	"math"
	"sync"
	"time"
)

// SyntheticInput generates a steady sine tone at real-time pace. It
// stands in for a hardware microphone during development and keeps the
// pipeline's timing realistic.
type SyntheticInput struct {
	SampleRate   int
	ChunkSamples int
	Frequency    float64
	Amplitude    float64 // 0-1 of full scale

	mu     sync.Mutex
	phase  float64
	closed bool
}

// NewSyntheticInput returns a 440 Hz tone at 10% amplitude.
func NewSyntheticInput(sampleRate, chunkSamples int) *SyntheticInput {
	return &SyntheticInput{
		SampleRate:   sampleRate,
		ChunkSamples: chunkSamples,
		Frequency:    440,
		Amplitude:    0.1,
	}
}

// ReadChunk synthesizes one chunk, pacing itself to the sample rate.
func (in *SyntheticInput) ReadChunk() ([]byte, error) {
	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return nil, errors.New("input closed")
	}
	phase := in.phase
	in.phase += float64(in.ChunkSamples)
	in.mu.Unlock()

	chunk := make([]byte, in.ChunkSamples*2)
	step := 2 * math.Pi * in.Frequency / float64(in.SampleRate)
	for i := 0; i < in.ChunkSamples; i++ {
		sample := int16(in.Amplitude * 32767 * math.Sin((phase+float64(i))*step))
		binary.LittleEndian.PutUint16(chunk[i*2:], uint16(sample))
	}

	// Real-time pacing so the rolling buffer fills at capture speed.
	time.Sleep(time.Duration(float64(in.ChunkSamples) / float64(in.SampleRate) * float64(time.Second)))
	return chunk, nil
}

// Close stops the input. Subsequent ReadChunk calls return an error.
func (in *SyntheticInput) Close() error {
	in.mu.Lock()
	in.closed = true
	in.mu.Unlock()
	return nil
}
