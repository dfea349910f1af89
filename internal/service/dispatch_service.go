package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/onurcolak/recurring-mailing-service/internal/domain"
	"github.com/onurcolak/recurring-mailing-service/internal/jobs"
	"github.com/onurcolak/recurring-mailing-service/internal/repository"
	"github.com/onurcolak/recurring-mailing-service/pkg/logger"
	"github.com/onurcolak/recurring-mailing-service/pkg/mailer"
)

type dispatchRepository interface {
	DueInWindow(ctx context.Context, start, end time.Time) ([]int64, error)
	GetDelivery(ctx context.Context, id int64) (*domain.Delivery, error)
	ClaimRunning(ctx context.Context, id int64) (bool, error)
	SetStatus(ctx context.Context, id int64, status domain.ScheduleStatus) error
	AdvanceNextRun(ctx context.Context, id int64, nextRun, lastRun time.Time) error
}

type runLogWriter interface {
	Create(ctx context.Context, scheduleID int64, outcome domain.RunOutcome, response *string) (*domain.RunLog, error)
}

type lastRunCache interface {
	CacheLastRun(ctx context.Context, scheduleID int64, entry domain.LastRunCache) error
}

// DispatchService is the temporal core: the minute sweep that finds due
// schedules and the per-schedule send executor.
type DispatchService struct {
	schedules dispatchRepository
	runLogs   runLogWriter
	sender    mailer.Sender
	cache     lastRunCache // optional, best effort
	submitter jobs.Submitter
	from      string
	loc       *time.Location

	// now is swappable for tests.
	now func() time.Time
}

func NewDispatchService(
	schedules dispatchRepository,
	runLogs runLogWriter,
	sender mailer.Sender,
	cache lastRunCache,
	submitter jobs.Submitter,
	from string,
	loc *time.Location,
) *DispatchService {
	return &DispatchService{
		schedules: schedules,
		runLogs:   runLogs,
		sender:    sender,
		cache:     cache,
		submitter: submitter,
		from:      from,
		loc:       loc,
		now:       time.Now,
	}
}

// Sweep covers exactly one calendar minute: [now truncated to the minute,
// +60s). Due schedules are handed to the job pool one by one; a submission
// failure affects only that schedule. Returns how many jobs were submitted.
func (s *DispatchService) Sweep(ctx context.Context) (int, error) {
	start := s.now().Truncate(time.Minute)
	end := start.Add(time.Minute)

	ids, err := s.schedules.DueInWindow(ctx, start, end)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep window [%s, %s): %w",
			start.Format(time.RFC3339), end.Format(time.RFC3339), err)
	}

	if len(ids) == 0 {
		logger.Debugf("No schedules due in [%s, %s)", start.Format(time.RFC3339), end.Format(time.RFC3339))
		return 0, nil
	}

	logger.Infof("%d schedule(s) due in [%s, %s)", len(ids), start.Format(time.RFC3339), end.Format(time.RFC3339))

	submitted := 0
	for _, id := range ids {
		scheduleID := id
		err := s.submitter.Submit(func(jobCtx context.Context) error {
			return s.SendOne(jobCtx, scheduleID)
		})
		if err != nil {
			logger.Errorf("Failed to submit send job for schedule %d: %v", scheduleID, err)
			continue
		}
		submitted++
	}

	return submitted, nil
}

// SendOne performs one delivery attempt for a schedule. The status claim is
// atomic, so a duplicate delivery of the same job loses the claim and no-ops.
// Finalization (status -> finished, next_run_at advanced) is deferred and runs
// on every exit path after the claim, including panics and unexpected errors.
func (s *DispatchService) SendOne(ctx context.Context, id int64) error {
	delivery, err := s.schedules.GetDelivery(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrScheduleNotFound) {
			logger.Warnf("Schedule %d no longer exists, skipping send", id)
			return nil
		}
		return err
	}

	claimed, err := s.schedules.ClaimRunning(ctx, id)
	if err != nil {
		return err
	}
	if !claimed {
		logger.Warnf("Schedule %d is already running, ignoring duplicate delivery", id)
		return nil
	}

	attemptedAt := s.now()
	logger.Infof("Starting mailing for schedule %d (%d recipients)", id, len(delivery.Recipients))

	defer s.finalize(ctx, delivery.Schedule, attemptedAt)

	sendErr := s.sender.Send(ctx,
		delivery.Message.Subject,
		delivery.Message.Body,
		s.from,
		delivery.Recipients,
	)

	var transportErr *mailer.TransportError
	switch {
	case sendErr == nil:
		if err := s.recordOutcome(ctx, id, attemptedAt, domain.OutcomeSuccess, nil); err != nil {
			return err
		}

	case errors.As(sendErr, &transportErr):
		// Recorded, not retried and not re-raised.
		logger.Errorf("Mailing for schedule %d failed: %s", id, transportErr.Message)
		response := transportErr.Message
		if err := s.recordOutcome(ctx, id, attemptedAt, domain.OutcomeFailed, &response); err != nil {
			return err
		}

	default:
		// Anything that is not a transport failure propagates to the job
		// layer; the deferred finalize still runs first.
		return fmt.Errorf("unexpected error sending schedule %d: %w", id, sendErr)
	}

	return nil
}

func (s *DispatchService) recordOutcome(
	ctx context.Context,
	scheduleID int64,
	attemptedAt time.Time,
	outcome domain.RunOutcome,
	response *string,
) error {
	if _, err := s.runLogs.Create(ctx, scheduleID, outcome, response); err != nil {
		return fmt.Errorf("failed to record run log for schedule %d: %w", scheduleID, err)
	}

	if s.cache != nil {
		entry := domain.LastRunCache{
			Outcome:     outcome,
			AttemptedAt: attemptedAt,
		}
		if response != nil {
			entry.Response = *response
		}
		if err := s.cache.CacheLastRun(ctx, scheduleID, entry); err != nil {
			logger.Warnf("Failed to cache last run for schedule %d: %v", scheduleID, err)
		}
	}

	return nil
}

// finalize releases the running status and advances next_run_at past the
// attempted slot, so a schedule is never left running and always makes forward
// progress. It deliberately survives cancellation of the job context.
func (s *DispatchService) finalize(ctx context.Context, schedule domain.Schedule, attemptedAt time.Time) {
	fctx := context.WithoutCancel(ctx)

	if err := s.schedules.SetStatus(fctx, schedule.ID, domain.StatusFinished); err != nil {
		logger.Errorf("Failed to mark schedule %d finished: %v", schedule.ID, err)
	}

	base := attemptedAt
	if schedule.NextRunAt != nil {
		base = schedule.NextRunAt.In(s.loc)
	}

	nextRun, err := domain.Advance(base, schedule.Period)
	if err != nil {
		logger.Errorf("Failed to advance schedule %d: %v", schedule.ID, err)
		return
	}

	if err := s.schedules.AdvanceNextRun(fctx, schedule.ID, nextRun, attemptedAt); err != nil {
		logger.Errorf("Failed to persist next run for schedule %d: %v", schedule.ID, err)
		return
	}

	logger.Infof("Schedule %d finished, next run at %s", schedule.ID, nextRun.Format(time.RFC3339))
}
