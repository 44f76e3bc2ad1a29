// Package audio plays chimes.
//
// Each due sound is played on its own goroutine through a fallback chain:
// the named file, then the configured default sound, then a generated tone.
// Playback is fire-and-forget from the scheduler's point of view; results
// are reported as an Outcome on the event bus.
package audio
