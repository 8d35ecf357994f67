package services

import "time"

// ThrottleDecision reports which gated actions may run this cycle.
// The gates are independent: transcription may fire on its own cadence
// even when analysis does not, and vice versa.
type ThrottleDecision struct {
	RunAnalysis      bool
	RunTranscription bool
}

// Throttle decides, from timestamps alone, whether the expensive
// inference and transcription calls are permitted. A zero last-run
// time means the action has not run this session and is permitted.
//
// Guarantee: with lastAnalysis updated at every permitted cycle, at
// most one analysis occurs within any window of analysisInterval,
// regardless of how many movement events fall inside it.
func Throttle(lastAnalysis, lastTranscription, now time.Time, analysisInterval, transcriptionInterval time.Duration) ThrottleDecision {
	return ThrottleDecision{
		RunAnalysis:      lastAnalysis.IsZero() || now.Sub(lastAnalysis) >= analysisInterval,
		RunTranscription: lastTranscription.IsZero() || now.Sub(lastTranscription) >= transcriptionInterval,
	}
}
