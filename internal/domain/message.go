package domain

import "time"

// InboundMessage is a text message received from the chat channel.
type InboundMessage struct {
	UpdateID int64
	ChatID   string
	From     string
	Text     string
}

// OutcomeKind enumerates approval results reported back to the channel.
type OutcomeKind string

const (
	OutcomeApproved        OutcomeKind = "approved"
	OutcomeAlreadyApproved OutcomeKind = "already_approved"
	OutcomeNotFound        OutcomeKind = "not_found"
	OutcomeFailed          OutcomeKind = "failed"
)

// Outcome is the result of handling one approval command.
type Outcome struct {
	Kind  OutcomeKind
	Date  time.Time
	Count int
	Err   error
}
