// Package events processes the payment provider's asynchronous event
// stream into durable order state.
package events

import "log"

// Sink receives domain events for tracking/automation. Components depend on
// this capability rather than any process-wide tracker instance.
type Sink interface {
	RecordEvent(name string, fields map[string]string)
}

// LogSink writes events to the standard logger. Default sink when no
// automation backend is wired.
type LogSink struct{}

// RecordEvent logs the event name and fields.
func (LogSink) RecordEvent(name string, fields map[string]string) {
	log.Printf("event %s: %v", name, fields)
}
