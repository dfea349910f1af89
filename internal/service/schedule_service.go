package service

import (
	"context"
	"fmt"
	"time"

	"github.com/onurcolak/recurring-mailing-service/internal/domain"
)

// Small consumer-side interfaces so the service can be tested with fakes.
type scheduleRepository interface {
	Create(ctx context.Context, s *domain.Schedule, recipientIDs []int64) (*domain.Schedule, error)
	GetByID(ctx context.Context, id int64) (*domain.Schedule, error)
	List(ctx context.Context, page, pageSize int) ([]domain.Schedule, int64, error)
	Update(ctx context.Context, s *domain.Schedule, recipientIDs []int64) (*domain.Schedule, error)
	Delete(ctx context.Context, id int64) error
	RecipientIDs(ctx context.Context, id int64) ([]int64, error)
}

type messageReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Message, error)
}

type runLogReader interface {
	ListBySchedule(ctx context.Context, scheduleID int64, page, pageSize int) ([]domain.RunLog, int64, error)
}

// ScheduleService owns schedule administration: creation and edits go through
// the temporal recompute rules before anything is persisted.
type ScheduleService struct {
	schedules scheduleRepository
	messages  messageReader
	runLogs   runLogReader
	loc       *time.Location

	// now is swappable for tests.
	now func() time.Time
}

func NewScheduleService(
	schedules scheduleRepository,
	messages messageReader,
	runLogs runLogReader,
	loc *time.Location,
) *ScheduleService {
	return &ScheduleService{
		schedules: schedules,
		messages:  messages,
		runLogs:   runLogs,
		loc:       loc,
		now:       time.Now,
	}
}

type CreateScheduleInput struct {
	MessageID    int64
	TimeOfDay    domain.TimeOfDay
	Period       domain.Period
	RecipientIDs []int64
}

func (s *ScheduleService) Create(ctx context.Context, in CreateScheduleInput) (*domain.Schedule, error) {
	if !in.Period.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedPeriod, in.Period)
	}

	// The referenced message must exist; the FK would reject it anyway but
	// this produces a clean not-found for the API.
	if _, err := s.messages.GetByID(ctx, in.MessageID); err != nil {
		return nil, err
	}

	nextRun, err := domain.InitialNextRun(s.now(), in.Period, in.TimeOfDay, s.loc)
	if err != nil {
		return nil, err
	}

	schedule := &domain.Schedule{
		MessageID: in.MessageID,
		TimeOfDay: in.TimeOfDay,
		Period:    in.Period,
		Status:    domain.StatusCreated,
		NextRunAt: &nextRun,
	}

	return s.schedules.Create(ctx, schedule, in.RecipientIDs)
}

type UpdateScheduleInput struct {
	MessageID    *int64
	TimeOfDay    *domain.TimeOfDay
	Period       *domain.Period
	RecipientIDs []int64 // nil leaves the recipient set untouched
}

func (s *ScheduleService) Update(ctx context.Context, id int64, in UpdateScheduleInput) (*domain.Schedule, error) {
	existing, err := s.schedules.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	newPeriod := existing.Period
	if in.Period != nil {
		if !in.Period.Valid() {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedPeriod, *in.Period)
		}
		newPeriod = *in.Period
	}

	newTime := existing.TimeOfDay
	if in.TimeOfDay != nil {
		newTime = *in.TimeOfDay
	}

	updated := *existing
	updated.Period = newPeriod
	updated.TimeOfDay = newTime

	if in.MessageID != nil && *in.MessageID != existing.MessageID {
		if _, err := s.messages.GetByID(ctx, *in.MessageID); err != nil {
			return nil, err
		}
		updated.MessageID = *in.MessageID
	}

	// Recompute next_run_at only when period or time of day actually changed.
	if newPeriod != existing.Period || newTime != existing.TimeOfDay {
		// A time-only edit keeps the stored date, so it needs one to exist.
		// next_run_at can only be NULL through writes that bypass this service.
		if newPeriod == existing.Period && existing.NextRunAt == nil {
			return nil, fmt.Errorf("schedule %d has no next run to reschedule from", id)
		}

		var oldNextRun time.Time
		if existing.NextRunAt != nil {
			oldNextRun = existing.NextRunAt.In(s.loc)
		}

		nextRun, err := domain.RecomputeOnEdit(
			s.now(),
			existing.Period, existing.TimeOfDay, oldNextRun,
			newPeriod, newTime,
			s.loc,
		)
		if err != nil {
			return nil, err
		}

		updated.NextRunAt = &nextRun
	}

	return s.schedules.Update(ctx, &updated, in.RecipientIDs)
}

func (s *ScheduleService) Get(ctx context.Context, id int64) (*domain.Schedule, error) {
	return s.schedules.GetByID(ctx, id)
}

func (s *ScheduleService) List(ctx context.Context, page, pageSize int) ([]domain.Schedule, int64, error) {
	return s.schedules.List(ctx, page, pageSize)
}

func (s *ScheduleService) Delete(ctx context.Context, id int64) error {
	return s.schedules.Delete(ctx, id)
}

func (s *ScheduleService) RecipientIDs(ctx context.Context, id int64) ([]int64, error) {
	return s.schedules.RecipientIDs(ctx, id)
}

// RunLogs returns a schedule's delivery attempts, newest first.
func (s *ScheduleService) RunLogs(ctx context.Context, id int64, page, pageSize int) ([]domain.RunLog, int64, error) {
	if _, err := s.schedules.GetByID(ctx, id); err != nil {
		return nil, 0, err
	}
	return s.runLogs.ListBySchedule(ctx, id, page, pageSize)
}
