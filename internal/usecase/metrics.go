package usecase

import "time"

// Recorder receives billing measurements.
type Recorder interface {
	ObserveWebhook(eventType string, outcome WebhookOutcome)
	ObserveReconcile(kind string, duration time.Duration, err error)
	ObserveAccess(granted bool, source string)
}

// NopRecorder discards all measurements.
type NopRecorder struct{}

func (NopRecorder) ObserveWebhook(string, WebhookOutcome)         {}
func (NopRecorder) ObserveReconcile(string, time.Duration, error) {}
func (NopRecorder) ObserveAccess(bool, string)                    {}
