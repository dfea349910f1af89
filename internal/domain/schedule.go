package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Period is the cadence of a schedule.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

func (p Period) Valid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return true
	}
	return false
}

// ScheduleStatus tracks the delivery state machine:
// created -> running -> finished -> running -> ...
type ScheduleStatus string

const (
	StatusCreated  ScheduleStatus = "created"
	StatusRunning  ScheduleStatus = "running"
	StatusFinished ScheduleStatus = "finished"
)

// TimeOfDay is a wall-clock time without a date, stored as a MySQL TIME column.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// ParseTimeOfDay accepts "15:04" or "15:04:05".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var t TimeOfDay

	layout := "15:04:05"
	if len(s) == len("15:04") {
		layout = "15:04"
	}

	parsed, err := time.Parse(layout, s)
	if err != nil {
		return t, fmt.Errorf("invalid time of day %q: %w", s, err)
	}

	t.Hour = parsed.Hour()
	t.Minute = parsed.Minute()
	t.Second = parsed.Second()

	return t, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// Scan implements sql.Scanner; the MySQL driver hands TIME columns over as bytes.
func (t *TimeOfDay) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		parsed, err := ParseTimeOfDay(string(v))
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	case string:
		parsed, err := ParseTimeOfDay(v)
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan %T into TimeOfDay", src)
	}
}

func (t TimeOfDay) Value() (driver.Value, error) {
	return t.String(), nil
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}

	*t = parsed
	return nil
}

// Schedule is a recurring mailing: one message, a recipient set, a cadence and
// the temporal state the dispatcher works against.
type Schedule struct {
	ID        int64          `db:"id" json:"id"`
	MessageID int64          `db:"message_id" json:"messageId"`
	TimeOfDay TimeOfDay      `db:"time_of_day" json:"timeOfDay"`
	Period    Period         `db:"period" json:"period"`
	Status    ScheduleStatus `db:"status" json:"status"`
	LastRunAt *time.Time     `db:"last_run_at" json:"lastRunAt,omitempty"`
	NextRunAt *time.Time     `db:"next_run_at" json:"nextRunAt,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time      `db:"updated_at" json:"updatedAt"`
}

// Delivery is everything the send executor needs for one attempt: the schedule
// together with its message and the current recipient addresses.
type Delivery struct {
	Schedule   Schedule
	Message    Message
	Recipients []string
}
