package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Kira/internal/domain"
	"github.com/shaiso/Kira/internal/repo"
)

// --- Fakes ---

type fakeSchedules struct {
	items   []domain.Schedule
	updated []domain.Schedule
}

func (f *fakeSchedules) ListDue(_ context.Context, now time.Time, limit int) ([]domain.Schedule, error) {
	var out []domain.Schedule
	for _, s := range f.items {
		if s.IsDue(now) && len(out) < limit {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSchedules) Update(_ context.Context, s *domain.Schedule) error {
	f.updated = append(f.updated, *s)
	for i := range f.items {
		if f.items[i].ID == s.ID {
			f.items[i] = *s
		}
	}
	return nil
}

type fakeScripts struct {
	scripts  map[uuid.UUID]*domain.Script
	versions map[uuid.UUID]int
}

func (f *fakeScripts) GetByID(_ context.Context, id uuid.UUID) (*domain.Script, error) {
	s, ok := f.scripts[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return s, nil
}

func (f *fakeScripts) GetLatestVersion(_ context.Context, id uuid.UUID) (*domain.ScriptVersion, error) {
	v, ok := f.versions[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &domain.ScriptVersion{ScriptID: id, Version: v}, nil
}

type fakeEvaluations struct {
	byKey map[string]*domain.Evaluation
}

func (f *fakeEvaluations) Create(_ context.Context, e *domain.Evaluation) error {
	if _, ok := f.byKey[e.IdempotencyKey]; ok {
		return fmt.Errorf("%w: evaluation %s", repo.ErrAlreadyExists, e.IdempotencyKey)
	}
	f.byKey[e.IdempotencyKey] = e
	return nil
}

func (f *fakeEvaluations) GetByIdempotencyKey(_ context.Context, _ uuid.UUID, key string) (*domain.Evaluation, error) {
	e, ok := f.byKey[key]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return e, nil
}

type fakePublisher struct {
	ids []uuid.UUID
	err error
}

func (f *fakePublisher) PublishEvaluationPending(_ context.Context, id uuid.UUID) error {
	f.ids = append(f.ids, id)
	return f.err
}

// --- Helpers ---

var tickTime = time.Date(2026, 1, 2, 9, 0, 30, 0, time.UTC)

type fixture struct {
	schedules   *fakeSchedules
	scripts     *fakeScripts
	evaluations *fakeEvaluations
	publisher   *fakePublisher
	sched       *Scheduler
}

func newFixture(t *testing.T, schedules ...domain.Schedule) *fixture {
	t.Helper()
	f := &fixture{
		schedules:   &fakeSchedules{items: schedules},
		scripts:     &fakeScripts{scripts: map[uuid.UUID]*domain.Script{}, versions: map[uuid.UUID]int{}},
		evaluations: &fakeEvaluations{byKey: map[string]*domain.Evaluation{}},
		publisher:   &fakePublisher{},
	}
	f.sched = New(Config{
		Schedules:   f.schedules,
		Scripts:     f.scripts,
		Evaluations: f.evaluations,
		Publisher:   f.publisher,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:         func() time.Time { return tickTime },
	})
	return f
}

func (f *fixture) addScript(active bool, version int) uuid.UUID {
	id := uuid.New()
	f.scripts.scripts[id] = &domain.Script{ID: id, Name: "s-" + id.String()[:8], IsActive: active}
	if version > 0 {
		f.scripts.versions[id] = version
	}
	return id
}

func dueSchedule(scriptID uuid.UUID, due time.Time) domain.Schedule {
	return domain.Schedule{
		ID:          uuid.New(),
		ScriptID:    scriptID,
		Workflow:    "report",
		IntervalSec: 60,
		Timezone:    "UTC",
		Enabled:     true,
		NextDueAt:   &due,
		Inputs:      map[string]any{"n": 1.0},
	}
}

// --- Tests ---

func TestTick_CreatesEvaluation(t *testing.T) {
	f := newFixture(t)
	scriptID := f.addScript(true, 3)
	due := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	f.schedules.items = []domain.Schedule{dueSchedule(scriptID, due)}

	if err := f.sched.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	key := fmt.Sprintf("%s_%d", f.schedules.items[0].ID, due.Unix())
	e, ok := f.evaluations.byKey[key]
	if !ok {
		t.Fatalf("expected evaluation with key %s", key)
	}
	if e.Version != 3 || e.Workflow != "report" || e.Status != domain.EvaluationStatusPending {
		t.Errorf("unexpected evaluation: %+v", e)
	}
	if e.Inputs["n"] != 1.0 {
		t.Errorf("schedule inputs must be copied, got %v", e.Inputs)
	}

	updated := f.schedules.items[0]
	if want := tickTime.Add(time.Minute); !updated.NextDueAt.Equal(want) {
		t.Errorf("next due = %v, want %v", updated.NextDueAt, want)
	}
	if updated.LastEvaluationID == nil || *updated.LastEvaluationID != e.ID {
		t.Errorf("last evaluation not recorded: %v", updated.LastEvaluationID)
	}
	if len(f.publisher.ids) != 1 || f.publisher.ids[0] != e.ID {
		t.Errorf("expected evaluation.pending for %s, got %v", e.ID, f.publisher.ids)
	}
}

func TestTick_Idempotent(t *testing.T) {
	f := newFixture(t)
	scriptID := f.addScript(true, 1)
	due := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	sched := dueSchedule(scriptID, due)
	f.schedules.items = []domain.Schedule{sched}

	// Предыдущий scheduler создал evaluation, но упал до обновления schedule
	existing := &domain.Evaluation{ID: uuid.New(), IdempotencyKey: sched.IdempotencyKey(due)}
	f.evaluations.byKey[existing.IdempotencyKey] = existing

	if err := f.sched.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.evaluations.byKey) != 1 {
		t.Errorf("duplicate evaluation created: %d", len(f.evaluations.byKey))
	}
	if len(f.publisher.ids) != 0 {
		t.Errorf("existing evaluation must not be republished, got %v", f.publisher.ids)
	}
	if got := f.schedules.items[0].LastEvaluationID; got == nil || *got != existing.ID {
		t.Errorf("expected last evaluation %s, got %v", existing.ID, got)
	}
}

func TestTick_SkipsAndAdvances(t *testing.T) {
	f := newFixture(t)
	due := time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC)

	inactive := dueSchedule(f.addScript(false, 1), due)
	noVersions := dueSchedule(f.addScript(true, 0), due)
	orphan := dueSchedule(uuid.New(), due)
	f.schedules.items = []domain.Schedule{inactive, noVersions, orphan}

	if err := f.sched.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.evaluations.byKey) != 0 {
		t.Errorf("no evaluations expected, got %d", len(f.evaluations.byKey))
	}
	if len(f.schedules.updated) != 1 || f.schedules.updated[0].ID != inactive.ID {
		t.Fatalf("only the inactive schedule must advance, got %d updates", len(f.schedules.updated))
	}
	if f.schedules.updated[0].LastEvaluationID != nil {
		t.Error("inactive script must not record an evaluation")
	}
}

func TestTick_PublishFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("broker down")
	f.schedules.items = []domain.Schedule{dueSchedule(f.addScript(true, 1), tickTime.Add(-time.Second))}

	if err := f.sched.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.evaluations.byKey) != 1 {
		t.Error("evaluation must be stored even if publish fails")
	}
}

func TestNextDue(t *testing.T) {
	from := time.Date(2026, 1, 2, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		sched domain.Schedule
		want  time.Time
	}{
		{"interval", domain.Schedule{IntervalSec: 90}, from.Add(90 * time.Second)},
		{"cron utc", domain.Schedule{CronExpr: "0 10 * * *"}, time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)},
		{"cron tz", domain.Schedule{CronExpr: "0 9 * * *", Timezone: "Europe/Moscow"}, time.Date(2026, 1, 3, 6, 0, 0, 0, time.UTC)},
		{"cron wins", domain.Schedule{CronExpr: "@hourly", IntervalSec: 5}, time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextDue(&tt.sched, from)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextDue_Errors(t *testing.T) {
	tests := []struct {
		name  string
		sched domain.Schedule
	}{
		{"neither", domain.Schedule{}},
		{"bad cron", domain.Schedule{CronExpr: "61 * * * *"}},
		{"bad tz", domain.Schedule{IntervalSec: 5, Timezone: "Mars/Base"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NextDue(&tt.sched, tickTime); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestPrepare(t *testing.T) {
	s := &domain.Schedule{IntervalSec: 30}
	if err := Prepare(s, tickTime); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Timezone != "UTC" {
		t.Errorf("expected default timezone UTC, got %q", s.Timezone)
	}
	if s.NextDueAt == nil || !s.NextDueAt.Equal(tickTime.Add(30*time.Second)) {
		t.Errorf("unexpected next due: %v", s.NextDueAt)
	}

	if err := Prepare(&domain.Schedule{}, tickTime); !errors.Is(err, domain.ErrInvalidSchedule) {
		t.Errorf("expected ErrInvalidSchedule, got %v", err)
	}
}
