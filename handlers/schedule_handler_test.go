package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/onurcolak/recurring-mailing-service/internal/domain"
	"github.com/onurcolak/recurring-mailing-service/internal/repository"
	"github.com/onurcolak/recurring-mailing-service/internal/service"
	validatorpkg "github.com/onurcolak/recurring-mailing-service/pkg/validator"
)

type fakeScheduleStore struct {
	schedules map[int64]*domain.Schedule
}

func (f *fakeScheduleStore) Create(ctx context.Context, s *domain.Schedule, recipientIDs []int64) (*domain.Schedule, error) {
	created := *s
	created.ID = 1
	return &created, nil
}

func (f *fakeScheduleStore) GetByID(ctx context.Context, id int64) (*domain.Schedule, error) {
	s, ok := f.schedules[id]
	if !ok {
		return nil, repository.ErrScheduleNotFound
	}
	copied := *s
	return &copied, nil
}

func (f *fakeScheduleStore) List(ctx context.Context, page, pageSize int) ([]domain.Schedule, int64, error) {
	return nil, 0, nil
}

func (f *fakeScheduleStore) Update(ctx context.Context, s *domain.Schedule, recipientIDs []int64) (*domain.Schedule, error) {
	copied := *s
	return &copied, nil
}

func (f *fakeScheduleStore) Delete(ctx context.Context, id int64) error {
	return nil
}

func (f *fakeScheduleStore) RecipientIDs(ctx context.Context, id int64) ([]int64, error) {
	return []int64{3, 4}, nil
}

type fakeMessageStore struct{}

func (f *fakeMessageStore) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	return &domain.Message{ID: id, Subject: "s", Body: "b"}, nil
}

type fakeRunLogStore struct{}

func (f *fakeRunLogStore) ListBySchedule(
	ctx context.Context,
	scheduleID int64,
	page, pageSize int,
) ([]domain.RunLog, int64, error) {
	return nil, 0, nil
}

type fakeLastRuns struct {
	entries map[int64]*domain.LastRunCache
	getErr  error
}

func (f *fakeLastRuns) GetLastRun(ctx context.Context, scheduleID int64) (*domain.LastRunCache, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.entries[scheduleID], nil
}

func (f *fakeLastRuns) GetAllLastRuns(ctx context.Context) (map[int64]*domain.LastRunCache, error) {
	return f.entries, nil
}

func newScheduleContext(t *testing.T, method, path string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	e.Validator = validatorpkg.New()

	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func testScheduleService(store *fakeScheduleStore) *service.ScheduleService {
	return service.NewScheduleService(store, &fakeMessageStore{}, &fakeRunLogStore{}, time.UTC)
}

func storedSchedule() *domain.Schedule {
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

type scheduleViewBody struct {
	ID           int64                `json:"id"`
	RecipientIDs []int64              `json:"recipientIds"`
	LastRun      *domain.LastRunCache `json:"lastRun"`
}

func TestGetSchedule_IncludesCachedLastRun(t *testing.T) {
	store := &fakeScheduleStore{schedules: map[int64]*domain.Schedule{5: storedSchedule()}}
	cache := &fakeLastRuns{entries: map[int64]*domain.LastRunCache{
		5: {
			Outcome:     domain.OutcomeSuccess,
			AttemptedAt: time.Date(2000, 1, 1, 10, 0, 0, 0, time.UTC),
		},
	}}
	handler := NewScheduleHandler(testScheduleService(store), cache)

	c, rec := newScheduleContext(t, http.MethodGet, "/api/v1/schedules/5")
	c.SetParamNames("id")
	c.SetParamValues("5")

	if err := handler.GetSchedule(c); err != nil {
		t.Fatalf("GetSchedule returned error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var resp struct {
		Success bool             `json:"success"`
		Data    scheduleViewBody `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response body: %v", err)
	}

	if resp.Data.ID != 5 {
		t.Errorf("expected schedule id 5, got %d", resp.Data.ID)
	}
	if len(resp.Data.RecipientIDs) != 2 {
		t.Errorf("expected 2 recipient ids, got %v", resp.Data.RecipientIDs)
	}
	if resp.Data.LastRun == nil || resp.Data.LastRun.Outcome != domain.OutcomeSuccess {
		t.Fatalf("expected cached last run with success outcome, got %+v", resp.Data.LastRun)
	}
}

func TestGetSchedule_WithoutCacheOmitsLastRun(t *testing.T) {
	store := &fakeScheduleStore{schedules: map[int64]*domain.Schedule{5: storedSchedule()}}
	handler := NewScheduleHandler(testScheduleService(store), nil)

	c, rec := newScheduleContext(t, http.MethodGet, "/api/v1/schedules/5")
	c.SetParamNames("id")
	c.SetParamValues("5")

	if err := handler.GetSchedule(c); err != nil {
		t.Fatalf("GetSchedule returned error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var resp struct {
		Data scheduleViewBody `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response body: %v", err)
	}
	if resp.Data.LastRun != nil {
		t.Fatalf("expected no last run without a cache, got %+v", resp.Data.LastRun)
	}
}

func TestGetSchedule_NotFoundReturns404(t *testing.T) {
	store := &fakeScheduleStore{schedules: map[int64]*domain.Schedule{}}
	handler := NewScheduleHandler(testScheduleService(store), nil)

	c, rec := newScheduleContext(t, http.MethodGet, "/api/v1/schedules/404")
	c.SetParamNames("id")
	c.SetParamValues("404")

	if err := handler.GetSchedule(c); err != nil {
		t.Fatalf("GetSchedule returned error: %v", err)
	}

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestCachedLastRuns_WithoutCacheReturns503(t *testing.T) {
	store := &fakeScheduleStore{schedules: map[int64]*domain.Schedule{}}
	handler := NewScheduleHandler(testScheduleService(store), nil)

	c, rec := newScheduleContext(t, http.MethodGet, "/api/v1/schedules/logs/cached")

	if err := handler.CachedLastRuns(c); err != nil {
		t.Fatalf("CachedLastRuns returned error: %v", err)
	}

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
}
