package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Kira/internal/domain"
	"github.com/shaiso/Kira/internal/repo"
	"github.com/shaiso/Kira/internal/telemetry"
)

// ScheduleStore — хранилище расписаний.
type ScheduleStore interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Schedule, error)
	Update(ctx context.Context, s *domain.Schedule) error
}

// ScriptStore — источник scripts и их версий.
type ScriptStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Script, error)
	GetLatestVersion(ctx context.Context, scriptID uuid.UUID) (*domain.ScriptVersion, error)
}

// EvaluationStore создаёт evaluations.
type EvaluationStore interface {
	Create(ctx context.Context, e *domain.Evaluation) error
	GetByIdempotencyKey(ctx context.Context, scriptID uuid.UUID, key string) (*domain.Evaluation, error)
}

// PendingPublisher публикует evaluation.pending.
type PendingPublisher interface {
	PublishEvaluationPending(ctx context.Context, evaluationID uuid.UUID) error
}

// Scheduler создаёт evaluations по due schedules.
type Scheduler struct {
	schedules   ScheduleStore
	scripts     ScriptStore
	evaluations EvaluationStore
	publisher   PendingPublisher
	logger      *slog.Logger
	batchSize   int
	now         func() time.Time
}

// Config — конфигурация Scheduler.
type Config struct {
	Schedules   ScheduleStore
	Scripts     ScriptStore
	Evaluations EvaluationStore
	Publisher   PendingPublisher // опционально
	Logger      *slog.Logger
	BatchSize   int              // количество schedules за один тик (default: 100)
	Now         func() time.Time // часы (default: time.Now)
}

// New создаёт новый Scheduler.
func New(cfg Config) *Scheduler {
	s := &Scheduler{
		schedules:   cfg.Schedules,
		scripts:     cfg.Scripts,
		evaluations: cfg.Evaluations,
		publisher:   cfg.Publisher,
		logger:      cfg.Logger,
		batchSize:   cfg.BatchSize,
		now:         cfg.Now,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.batchSize <= 0 {
		s.batchSize = 100
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Tick выполняет один тик планировщика.
//
//  1. Находит due schedules (enabled, next_due_at <= now).
//  2. Для каждого создаёт evaluation последней версии script.
//  3. Сдвигает next_due_at.
//  4. Публикует evaluation.pending.
//
// Ошибки одного schedule не блокируют обработку остальных.
func (s *Scheduler) Tick(ctx context.Context) error {
	telemetry.SchedulerTicks.Inc()
	now := s.now()

	schedules, err := s.schedules.ListDue(ctx, now, s.batchSize)
	if err != nil {
		return fmt.Errorf("list due schedules: %w", err)
	}
	if len(schedules) == 0 {
		return nil
	}

	s.logger.Debug("found due schedules", "count", len(schedules))

	var processed, created int
	for i := range schedules {
		sched := &schedules[i]

		ok, err := s.processSchedule(ctx, sched, now)
		if err != nil {
			telemetry.WithScheduleID(s.logger, sched.ID.String()).Error("failed to process schedule",
				"schedule_name", sched.Name,
				"error", err,
			)
			continue
		}

		processed++
		if ok {
			created++
		}
	}

	s.logger.Info("scheduler tick completed",
		"due", len(schedules),
		"processed", processed,
		"evaluations_created", created,
	)
	return nil
}

// processSchedule обрабатывает один schedule.
// Возвращает true, если evaluation создано (не дубликат).
func (s *Scheduler) processSchedule(ctx context.Context, sched *domain.Schedule, now time.Time) (bool, error) {
	logger := telemetry.WithScheduleID(s.logger, sched.ID.String())

	script, err := s.scripts.GetByID(ctx, sched.ScriptID)
	if errors.Is(err, repo.ErrNotFound) {
		logger.Warn("script not found for schedule, skipping", "script_id", sched.ScriptID)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get script: %w", err)
	}

	var evaluationID uuid.UUID
	created := false

	if script.IsActive {
		version, err := s.scripts.GetLatestVersion(ctx, sched.ScriptID)
		if errors.Is(err, repo.ErrNotFound) {
			logger.Warn("script has no versions, skipping", "script_id", sched.ScriptID)
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("get latest script version: %w", err)
		}

		evaluationID, created, err = s.createEvaluation(ctx, sched, version.Version, now)
		if err != nil {
			return false, err
		}
	} else {
		logger.Debug("script is inactive, advancing schedule only", "script_id", sched.ScriptID)
	}

	nextDue, err := NextDue(sched, now)
	if err != nil {
		// Некорректное расписание: next_due_at не трогаем
		logger.Error("failed to calculate next due", "error", err)
		return created, nil
	}

	if evaluationID != uuid.Nil {
		sched.RecordRun(evaluationID, nextDue)
	} else {
		sched.NextDueAt = &nextDue
		sched.UpdatedAt = now
	}
	if err := s.schedules.Update(ctx, sched); err != nil {
		return created, fmt.Errorf("update schedule: %w", err)
	}

	if s.publisher != nil && created {
		if err := s.publisher.PublishEvaluationPending(ctx, evaluationID); err != nil {
			// evaluation уже в БД; worker заберёт его через polling
			logger.Warn("failed to publish evaluation.pending",
				"evaluation_id", evaluationID,
				"error", err,
			)
		}
	}
	return created, nil
}

// createEvaluation создаёт evaluation с ключом "{schedule_id}_{next_due_unix}".
// Если ключ уже занят, возвращает существующее evaluation.
func (s *Scheduler) createEvaluation(ctx context.Context, sched *domain.Schedule, version int, now time.Time) (uuid.UUID, bool, error) {
	key := sched.IdempotencyKey(*sched.NextDueAt)

	e := &domain.Evaluation{
		ID:             uuid.New(),
		ScriptID:       sched.ScriptID,
		Version:        version,
		Workflow:       sched.Workflow,
		Inputs:         sched.Inputs,
		Status:         domain.EvaluationStatusPending,
		IdempotencyKey: key,
		CreatedAt:      now,
	}

	err := s.evaluations.Create(ctx, e)
	if err == nil {
		s.logger.Info("created evaluation from schedule",
			"evaluation_id", e.ID,
			"schedule_id", sched.ID,
			"script_id", sched.ScriptID,
			"version", version,
		)
		return e.ID, true, nil
	}
	if !errors.Is(err, repo.ErrAlreadyExists) {
		return uuid.Nil, false, fmt.Errorf("create evaluation: %w", err)
	}

	existing, err := s.evaluations.GetByIdempotencyKey(ctx, sched.ScriptID, key)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("get evaluation by idempotency key: %w", err)
	}
	s.logger.Debug("evaluation already exists (idempotency)",
		"schedule_id", sched.ID,
		"evaluation_id", existing.ID,
		"idempotency_key", key,
	)
	return existing.ID, false, nil
}
