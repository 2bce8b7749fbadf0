package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Kira/internal/domain"
)

const scheduleColumns = `
	id, script_id, workflow, name, cron_expr, interval_sec, timezone, enabled,
	next_due_at, last_run_at, last_evaluation_id, inputs, created_at, updated_at`

// ScheduleFilter — параметры выборки schedules. Nil-поля не фильтруют.
type ScheduleFilter struct {
	ScriptID *uuid.UUID
	Enabled  *bool
	Limit    int
	Offset   int
}

// ScheduleRepo хранит расписания вычислений.
type ScheduleRepo struct {
	pool *pgxpool.Pool
}

// NewScheduleRepo создаёт ScheduleRepo.
func NewScheduleRepo(pool *pgxpool.Pool) *ScheduleRepo {
	return &ScheduleRepo{pool: pool}
}

// Create сохраняет новое расписание.
func (r *ScheduleRepo) Create(ctx context.Context, s *domain.Schedule) error {
	inputs, err := marshalInputs(s.Inputs)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO schedules (id, script_id, workflow, name, cron_expr, interval_sec,
		                       timezone, enabled, next_due_at, inputs, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		s.ID, s.ScriptID, s.Workflow, s.Name, s.CronExpr, s.IntervalSec,
		s.Timezone, s.Enabled, s.NextDueAt, inputs, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

// GetByID возвращает расписание или ErrNotFound.
func (r *ScheduleRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Schedule, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	return collectOneSchedule(rows)
}

// List возвращает расписания, новые первыми.
func (r *ScheduleRepo) List(ctx context.Context, filter ScheduleFilter) ([]domain.Schedule, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+scheduleColumns+`
		FROM schedules
		WHERE ($1::uuid IS NULL OR script_id = $1)
		  AND ($2::boolean IS NULL OR enabled = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`,
		filter.ScriptID, filter.Enabled, limit, filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return pgx.CollectRows(rows, scheduleRow)
}

// ListDue возвращает включённые расписания с next_due_at не позже now,
// самые просроченные первыми.
func (r *ScheduleRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Schedule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+scheduleColumns+`
		FROM schedules
		WHERE enabled AND next_due_at <= $1
		ORDER BY next_due_at
		LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list due schedules: %w", err)
	}
	return pgx.CollectRows(rows, scheduleRow)
}

// Update сохраняет изменяемые поля расписания. UpdatedAt назначает БД.
func (r *ScheduleRepo) Update(ctx context.Context, s *domain.Schedule) error {
	inputs, err := marshalInputs(s.Inputs)
	if err != nil {
		return err
	}

	err = r.pool.QueryRow(ctx, `
		UPDATE schedules
		SET workflow = $2, name = $3, cron_expr = $4, interval_sec = $5, timezone = $6,
		    enabled = $7, next_due_at = $8, last_run_at = $9, last_evaluation_id = $10,
		    inputs = $11, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		s.ID, s.Workflow, s.Name, s.CronExpr, s.IntervalSec, s.Timezone,
		s.Enabled, s.NextDueAt, s.LastRunAt, s.LastEvaluationID, inputs,
	).Scan(&s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	return nil
}

// SetEnabled включает или выключает расписание и возвращает его.
func (r *ScheduleRepo) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) (*domain.Schedule, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE schedules SET enabled = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+scheduleColumns,
		id, enabled,
	)
	if err != nil {
		return nil, fmt.Errorf("set schedule enabled: %w", err)
	}
	return collectOneSchedule(rows)
}

// Delete удаляет расписание.
func (r *ScheduleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// scheduleRow читает строку в порядке scheduleColumns.
func scheduleRow(row pgx.CollectableRow) (domain.Schedule, error) {
	var s domain.Schedule
	var inputs []byte

	err := row.Scan(
		&s.ID, &s.ScriptID, &s.Workflow, &s.Name, &s.CronExpr, &s.IntervalSec,
		&s.Timezone, &s.Enabled, &s.NextDueAt, &s.LastRunAt, &s.LastEvaluationID,
		&inputs, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return s, fmt.Errorf("scan schedule: %w", err)
	}
	if err := json.Unmarshal(inputs, &s.Inputs); err != nil {
		return s, fmt.Errorf("unmarshal schedule inputs: %w", err)
	}
	return s, nil
}

func collectOneSchedule(rows pgx.Rows) (*domain.Schedule, error) {
	s, err := pgx.CollectOneRow(rows, scheduleRow)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// marshalInputs кодирует входы для jsonb; nil сохраняется как пустой объект.
func marshalInputs(inputs map[string]any) ([]byte, error) {
	if inputs == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(inputs)
	if err != nil {
		return nil, fmt.Errorf("marshal inputs: %w", err)
	}
	return data, nil
}
