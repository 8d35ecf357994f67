package services

import (
	"sync"
	"time"

	"vision-backend/internal/models"
)

// Stats holds the session counters. All worker mutations and external
// reads go through one mutex so a status query arriving mid-cycle
// never observes a torn update. Counters only increase within a
// session; a new session starts from a fresh Stats.
type Stats struct {
	mu                sync.Mutex
	frames            uint64
	detections        uint64
	analyses          uint64
	transcriptions    uint64
	startedAt         time.Time
	lastTranscription string
}

// NewStats creates counters for a new session.
func NewStats(startedAt time.Time) *Stats {
	return &Stats{startedAt: startedAt}
}

func (s *Stats) IncFrames() {
	s.mu.Lock()
	s.frames++
	s.mu.Unlock()
}

func (s *Stats) IncDetections() {
	s.mu.Lock()
	s.detections++
	s.mu.Unlock()
}

func (s *Stats) IncAnalyses() {
	s.mu.Lock()
	s.analyses++
	s.mu.Unlock()
}

// IncTranscriptions records a successful transcription and remembers
// its text for status reporting.
func (s *Stats) IncTranscriptions(text string) {
	s.mu.Lock()
	s.transcriptions++
	s.lastTranscription = text
	s.mu.Unlock()
}

// LastTranscription returns the most recent transcription text.
func (s *Stats) LastTranscription() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTranscription
}

// Snapshot copies the counters into a Statistics value. The remaining
// Statistics fields are filled in by the service.
func (s *Stats) Snapshot() models.Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.Statistics{
		TotalFrames:         s.frames,
		MovementsDetected:   s.detections,
		AIAnalyses:          s.analyses,
		AudioTranscriptions: s.transcriptions,
		StartedAt:           s.startedAt,
		LastTranscription:   s.lastTranscription,
	}
}
