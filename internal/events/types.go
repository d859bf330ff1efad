package events

import "time"

// EventType identifies the kind of event being published.
type EventType string

const (
	// Wear events
	WearChanged         EventType = "wear_changed"
	DegradationAbnormal EventType = "degradation_abnormal"
	PreEOLWarning       EventType = "pre_eol_warning"

	// I/O events
	IoWindowClosed EventType = "io_window_closed"
	IoOveruse      EventType = "io_overuse"

	// Polling events
	PollFailed EventType = "poll_failed"
)

// Severity indicates the urgency of an event.
type Severity int

const (
	SeverityInfo     Severity = 0
	SeverityWarning  Severity = 1
	SeverityCritical Severity = 2
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Event is the payload published through the bus.
type Event struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	Severity  Severity          `json:"severity"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
