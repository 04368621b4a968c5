// Package metrics exposes generation counters and timings.
package metrics

import "time"

// Recorder receives observability hooks from the generator. NoopRecorder is used
// when metrics are not configured.
type Recorder interface {
	ObserveFetchDuration(d time.Duration, success bool)
	IncPage(class string)
	IncEmit(status string)
	ObserveBatchDuration(d time.Duration)
	SetLastGenerated(id int)
	IncRunOutcome(outcome string) // completed|failed|canceled
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) ObserveFetchDuration(time.Duration, bool) {}
func (NoopRecorder) IncPage(string)                           {}
func (NoopRecorder) IncEmit(string)                           {}
func (NoopRecorder) ObserveBatchDuration(time.Duration)       {}
func (NoopRecorder) SetLastGenerated(int)                     {}
func (NoopRecorder) IncRunOutcome(string)                     {}
