package journal

import (
	"context"
	"time"
)

// Outcome classifies how an action ended.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomePartial Outcome = "partial"
	OutcomeError   Outcome = "error"
)

func (o Outcome) valid() bool {
	switch o {
	case OutcomeOK, OutcomePartial, OutcomeError:
		return true
	default:
		return false
	}
}

// Entry is one recorded admin action.
type Entry struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Target    string    `json:"target"`
	RequestID string    `json:"request_id,omitempty"`
	Outcome   Outcome   `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
}

// Recorder accepts journal entries. *Store implements it.
type Recorder interface {
	Append(ctx context.Context, entry Entry) (Entry, error)
}
