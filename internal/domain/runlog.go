package domain

import "time"

// RunOutcome is the result of one delivery attempt.
type RunOutcome string

const (
	OutcomeSuccess RunOutcome = "success"
	OutcomeFailed  RunOutcome = "failed"
)

// RunLog is an append-only record of one delivery attempt. Response is set
// only for failed attempts and carries the transport failure text. Rows are
// never updated or deleted.
type RunLog struct {
	ID          int64      `db:"id" json:"id"`
	ScheduleID  int64      `db:"schedule_id" json:"scheduleId"`
	AttemptedAt time.Time  `db:"attempted_at" json:"attemptedAt"`
	Outcome     RunOutcome `db:"outcome" json:"outcome"`
	Response    *string    `db:"response" json:"response,omitempty"`
}

// LastRunCache is the cached most-recent outcome for a schedule.
type LastRunCache struct {
	Outcome     RunOutcome `json:"outcome"`
	AttemptedAt time.Time  `json:"attemptedAt"`
	Response    string     `json:"response,omitempty"`
}
