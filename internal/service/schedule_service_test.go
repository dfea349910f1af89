package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/onurcolak/recurring-mailing-service/internal/domain"
	"github.com/onurcolak/recurring-mailing-service/internal/repository"
)

type fakeScheduleRepo struct {
	schedules map[int64]*domain.Schedule

	createdWith  *domain.Schedule
	updatedWith  *domain.Schedule
	recipientIDs []int64
}

func (r *fakeScheduleRepo) Create(ctx context.Context, s *domain.Schedule, recipientIDs []int64) (*domain.Schedule, error) {
	r.createdWith = s
	r.recipientIDs = recipientIDs
	created := *s
	created.ID = 1
	return &created, nil
}

func (r *fakeScheduleRepo) GetByID(ctx context.Context, id int64) (*domain.Schedule, error) {
	s, ok := r.schedules[id]
	if !ok {
		return nil, repository.ErrScheduleNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *fakeScheduleRepo) List(ctx context.Context, page, pageSize int) ([]domain.Schedule, int64, error) {
	return nil, 0, nil
}

func (r *fakeScheduleRepo) Update(ctx context.Context, s *domain.Schedule, recipientIDs []int64) (*domain.Schedule, error) {
	r.updatedWith = s
	r.recipientIDs = recipientIDs
	copied := *s
	return &copied, nil
}

func (r *fakeScheduleRepo) Delete(ctx context.Context, id int64) error {
	return nil
}

func (r *fakeScheduleRepo) RecipientIDs(ctx context.Context, id int64) ([]int64, error) {
	return nil, nil
}

type fakeMessageReader struct {
	known map[int64]bool
}

func (f *fakeMessageReader) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	if !f.known[id] {
		return nil, repository.ErrMessageNotFound
	}
	return &domain.Message{ID: id, Subject: "s", Body: "b"}, nil
}

type fakeRunLogReader struct{}

func (f *fakeRunLogReader) ListBySchedule(
	ctx context.Context,
	scheduleID int64,
	page, pageSize int,
) ([]domain.RunLog, int64, error) {
	return nil, 0, nil
}

func newTestScheduleService(repo *fakeScheduleRepo, messages *fakeMessageReader) *ScheduleService {
	s := NewScheduleService(repo, messages, &fakeRunLogReader{}, time.UTC)
	s.now = func() time.Time {
		return time.Date(2000, 1, 1, 10, 0, 0, 0, time.UTC)
	}
	return s
}

func TestScheduleCreate_ComputesInitialNextRun(t *testing.T) {
	cases := []struct {
		period domain.Period
		want   time.Time
	}{
		{domain.PeriodDaily, time.Date(2000, 1, 2, 10, 0, 0, 0, time.UTC)},
		{domain.PeriodWeekly, time.Date(2000, 1, 8, 10, 0, 0, 0, time.UTC)},
		{domain.PeriodMonthly, time.Date(2000, 2, 1, 10, 0, 0, 0, time.UTC)},
	}

	for _, tc := range cases {
		t.Run(string(tc.period), func(t *testing.T) {
			repo := &fakeScheduleRepo{}
			svc := newTestScheduleService(repo, &fakeMessageReader{known: map[int64]bool{7: true}})

			created, err := svc.Create(context.Background(), CreateScheduleInput{
				MessageID:    7,
				TimeOfDay:    domain.TimeOfDay{Hour: 10},
				Period:       tc.period,
				RecipientIDs: []int64{1, 2},
			})
			if err != nil {
				t.Fatalf("Create returned error: %v", err)
			}

			if created.Status != domain.StatusCreated {
				t.Errorf("expected status created, got %s", created.Status)
			}
			if created.LastRunAt != nil {
				t.Error("expected nil last_run_at on creation")
			}
			if created.NextRunAt == nil || !created.NextRunAt.Equal(tc.want) {
				t.Errorf("expected next run %v, got %v", tc.want, created.NextRunAt)
			}
		})
	}
}

func TestScheduleCreate_RejectsUnknownPeriod(t *testing.T) {
	svc := newTestScheduleService(&fakeScheduleRepo{}, &fakeMessageReader{known: map[int64]bool{7: true}})

	_, err := svc.Create(context.Background(), CreateScheduleInput{
		MessageID: 7,
		TimeOfDay: domain.TimeOfDay{Hour: 10},
		Period:    domain.Period("hourly"),
	})
	if !errors.Is(err, domain.ErrUnsupportedPeriod) {
		t.Fatalf("expected ErrUnsupportedPeriod, got %v", err)
	}
}

func TestScheduleCreate_RejectsMissingMessage(t *testing.T) {
	svc := newTestScheduleService(&fakeScheduleRepo{}, &fakeMessageReader{known: map[int64]bool{}})

	_, err := svc.Create(context.Background(), CreateScheduleInput{
		MessageID: 99,
		TimeOfDay: domain.TimeOfDay{Hour: 10},
		Period:    domain.PeriodDaily,
	})
	if !errors.Is(err, repository.ErrMessageNotFound) {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
}

func existingDailySchedule() *domain.Schedule {
	nextRun := time.Date(2000, 1, 2, 10, 0, 0, 0, time.UTC)
	return &domain.Schedule{
		ID:        5,
		MessageID: 7,
		TimeOfDay: domain.TimeOfDay{Hour: 10},
		Period:    domain.PeriodDaily,
		Status:    domain.StatusCreated,
		NextRunAt: &nextRun,
	}
}

func TestScheduleUpdate_PeriodOnlyRecomputes(t *testing.T) {
	repo := &fakeScheduleRepo{schedules: map[int64]*domain.Schedule{5: existingDailySchedule()}}
	svc := newTestScheduleService(repo, &fakeMessageReader{known: map[int64]bool{7: true}})
	svc.now = func() time.Time {
		return time.Date(2000, 1, 2, 12, 0, 0, 0, time.UTC)
	}

	period := domain.PeriodWeekly
	updated, err := svc.Update(context.Background(), 5, UpdateScheduleInput{Period: &period})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	want := time.Date(2000, 1, 9, 10, 0, 0, 0, time.UTC)
	if updated.NextRunAt == nil || !updated.NextRunAt.Equal(want) {
		t.Errorf("expected next run %v, got %v", want, updated.NextRunAt)
	}
}

func TestScheduleUpdate_TimeOnlyKeepsDate(t *testing.T) {
	repo := &fakeScheduleRepo{schedules: map[int64]*domain.Schedule{5: existingDailySchedule()}}
	svc := newTestScheduleService(repo, &fakeMessageReader{known: map[int64]bool{7: true}})
	svc.now = func() time.Time {
		return time.Date(2000, 1, 2, 9, 0, 0, 0, time.UTC)
	}

	tod := domain.TimeOfDay{Hour: 9}
	updated, err := svc.Update(context.Background(), 5, UpdateScheduleInput{TimeOfDay: &tod})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	want := time.Date(2000, 1, 2, 9, 0, 0, 0, time.UTC)
	if updated.NextRunAt == nil || !updated.NextRunAt.Equal(want) {
		t.Errorf("expected next run %v, got %v", want, updated.NextRunAt)
	}
}

func TestScheduleUpdate_TimeOnlyWithoutNextRunIsRejected(t *testing.T) {
	// next_run_at can only be NULL through writes outside this service; a
	// time-only edit then has no date to keep, so the edit must fail instead
	// of rescheduling to the zero date.
	existing := existingDailySchedule()
	existing.NextRunAt = nil
	repo := &fakeScheduleRepo{schedules: map[int64]*domain.Schedule{5: existing}}
	svc := newTestScheduleService(repo, &fakeMessageReader{known: map[int64]bool{7: true}})

	tod := domain.TimeOfDay{Hour: 9}
	_, err := svc.Update(context.Background(), 5, UpdateScheduleInput{TimeOfDay: &tod})
	if err == nil {
		t.Fatal("expected error for time-only edit without a stored next run")
	}
	if repo.updatedWith != nil {
		t.Fatalf("expected no update to be persisted, got %+v", repo.updatedWith)
	}

	// A period edit derives the date from now instead, so it still works.
	period := domain.PeriodWeekly
	updated, err := svc.Update(context.Background(), 5, UpdateScheduleInput{Period: &period})
	if err != nil {
		t.Fatalf("period edit returned error: %v", err)
	}

	want := time.Date(2000, 1, 8, 10, 0, 0, 0, time.UTC)
	if updated.NextRunAt == nil || !updated.NextRunAt.Equal(want) {
		t.Errorf("expected next run %v, got %v", want, updated.NextRunAt)
	}
}

func TestScheduleUpdate_RecipientOnlyEditLeavesNextRun(t *testing.T) {
	existing := existingDailySchedule()
	repo := &fakeScheduleRepo{schedules: map[int64]*domain.Schedule{5: existing}}
	svc := newTestScheduleService(repo, &fakeMessageReader{known: map[int64]bool{7: true}})

	updated, err := svc.Update(context.Background(), 5, UpdateScheduleInput{RecipientIDs: []int64{9}})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if updated.NextRunAt == nil || !updated.NextRunAt.Equal(*existing.NextRunAt) {
		t.Errorf("expected untouched next run %v, got %v", existing.NextRunAt, updated.NextRunAt)
	}
	if len(repo.recipientIDs) != 1 || repo.recipientIDs[0] != 9 {
		t.Errorf("expected recipient set replaced with [9], got %v", repo.recipientIDs)
	}
}

func TestScheduleUpdate_NotFound(t *testing.T) {
	repo := &fakeScheduleRepo{schedules: map[int64]*domain.Schedule{}}
	svc := newTestScheduleService(repo, &fakeMessageReader{known: map[int64]bool{7: true}})

	_, err := svc.Update(context.Background(), 404, UpdateScheduleInput{})
	if !errors.Is(err, repository.ErrScheduleNotFound) {
		t.Fatalf("expected ErrScheduleNotFound, got %v", err)
	}
}
