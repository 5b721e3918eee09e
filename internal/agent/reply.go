package agent

import (
	"errors"

	"stockbot/internal/report"
)

var (
	ErrPendingAction   = errors.New("agent: a confirmation is pending")
	ErrNoPendingAction = errors.New("agent: nothing to confirm")
)

// ReplyKind tells the front end how to present a reply.
type ReplyKind string

const (
	ReplyMessage ReplyKind = "message"
	ReplyPending ReplyKind = "pending_action"
)

// Reply is the outcome of one user input. Err keeps the error that shaped the
// message (a sentinel from the failing layer) so callers can branch on it with
// errors.Is; Text is always safe to show.
type Reply struct {
	Kind    ReplyKind
	Text    string
	Pending *PendingAction
	Report  *report.Result
	Err     error
}

func message(text string) Reply {
	return Reply{Kind: ReplyMessage, Text: text}
}

func failure(text string, err error) Reply {
	return Reply{Kind: ReplyMessage, Text: text, Err: err}
}
