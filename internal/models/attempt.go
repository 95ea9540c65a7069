package models

import "time"

// Outcome is the terminal result of one send attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "Success"
	OutcomeFailed  Outcome = "Failed"
)

// TimestampFormat is the canonical timestamp layout for the history log.
// Used on both the write and read paths; rows with any other layout are
// treated as malformed and skipped by readers.
const TimestampFormat = "2006-01-02 15:04:05"

// DayFormat is the per-day grouping layout used by reporting.
const DayFormat = "2006-01-02"

// MessageExcerptLen is the number of message characters recorded per attempt.
const MessageExcerptLen = 50

// SendAttempt is one append-only history record. Records are immutable once
// written; only an external retention job may prune old ones.
type SendAttempt struct {
	Timestamp      time.Time `json:"timestamp"`
	Identifier     string    `json:"identifier"`
	Locator        string    `json:"locator"`
	Outcome        Outcome   `json:"outcome"`
	ErrorDetail    string    `json:"error_detail,omitempty"`
	MessageExcerpt string    `json:"message_excerpt,omitempty"`
}

// Excerpt truncates a message to the recorded excerpt length, marking the cut
// with an ellipsis the way the history log has always stored it.
func Excerpt(message string) string {
	runes := []rune(message)
	if len(runes) <= MessageExcerptLen {
		return message
	}
	return string(runes[:MessageExcerptLen]) + "..."
}

// HistoryIndex maps identifier to the most recent Success timestamp inside
// the rolling window. Rebuilt at campaign start, never persisted.
type HistoryIndex map[string]time.Time

// Contains reports whether an identifier had a Success inside the window.
func (h HistoryIndex) Contains(identifier string) bool {
	_, ok := h[identifier]
	return ok
}
