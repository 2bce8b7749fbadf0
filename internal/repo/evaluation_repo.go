package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Kira/internal/domain"
)

const evaluationColumns = `
	id, script_id, version, workflow, inputs, status, outputs, error,
	idempotency_key, started_at, finished_at, created_at`

// EvaluationRepo — репозиторий для работы с evaluations.
type EvaluationRepo struct {
	pool *pgxpool.Pool
}

// NewEvaluationRepo создаёт новый EvaluationRepo.
func NewEvaluationRepo(pool *pgxpool.Pool) *EvaluationRepo {
	return &EvaluationRepo{pool: pool}
}

// Create создаёт новое evaluation.
// Если evaluation с тем же ключом идемпотентности уже существует,
// возвращает ErrAlreadyExists.
func (r *EvaluationRepo) Create(ctx context.Context, e *domain.Evaluation) error {
	inputsJSON, err := json.Marshal(e.Inputs)
	if err != nil {
		return fmt.Errorf("marshal inputs: %w", err)
	}

	query := `
		INSERT INTO evaluations (id, script_id, version, workflow, inputs, status, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (script_id, idempotency_key) DO NOTHING
	`
	result, err := r.pool.Exec(ctx, query,
		e.ID,
		e.ScriptID,
		e.Version,
		nullString(e.Workflow),
		inputsJSON,
		e.Status.String(),
		nullString(e.IdempotencyKey),
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert evaluation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: evaluation %s", ErrAlreadyExists, e.IdempotencyKey)
	}
	return nil
}

// GetByID возвращает evaluation по ID.
func (r *EvaluationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Evaluation, error) {
	query := `SELECT ` + evaluationColumns + ` FROM evaluations WHERE id = $1`
	return scanEvaluation(r.pool.QueryRow(ctx, query, id))
}

// GetByIdempotencyKey возвращает evaluation по ключу идемпотентности.
func (r *EvaluationRepo) GetByIdempotencyKey(ctx context.Context, scriptID uuid.UUID, key string) (*domain.Evaluation, error) {
	query := `SELECT ` + evaluationColumns + ` FROM evaluations WHERE script_id = $1 AND idempotency_key = $2`
	return scanEvaluation(r.pool.QueryRow(ctx, query, scriptID, key))
}

// List возвращает evaluations с фильтрацией, новые первыми.
func (r *EvaluationRepo) List(ctx context.Context, filter EvaluationFilter) ([]domain.Evaluation, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + evaluationColumns + `
		FROM evaluations
		WHERE ($1::uuid IS NULL OR script_id = $1)
		  AND ($2::text IS NULL OR status = $2::evaluation_status)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	var status string
	if filter.Status != "" {
		status = filter.Status.String()
	}
	rows, err := r.pool.Query(ctx, query,
		nullUUID(filter.ScriptID),
		nullString(status),
		limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	return collectEvaluations(rows)
}

// ListPending возвращает evaluations в статусе PENDING, старые первыми.
func (r *EvaluationRepo) ListPending(ctx context.Context, limit int) ([]domain.Evaluation, error) {
	query := `SELECT ` + evaluationColumns + `
		FROM evaluations
		WHERE status = 'PENDING'
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending evaluations: %w", err)
	}
	return collectEvaluations(rows)
}

// Claim переводит evaluation из PENDING в RUNNING.
// Возвращает ErrInvalidState, если evaluation уже взято другим worker.
func (r *EvaluationRepo) Claim(ctx context.Context, e *domain.Evaluation) error {
	e.MarkRunning()
	result, err := r.pool.Exec(ctx, `
		UPDATE evaluations
		SET status = 'RUNNING', started_at = $2
		WHERE id = $1 AND status = 'PENDING'
	`, e.ID, e.StartedAt)
	if err != nil {
		return fmt.Errorf("claim evaluation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrInvalidState
	}
	return nil
}

// Update сохраняет статус и результаты evaluation.
func (r *EvaluationRepo) Update(ctx context.Context, e *domain.Evaluation) error {
	outputsJSON, err := json.Marshal(e.Outputs)
	if err != nil {
		return fmt.Errorf("marshal outputs: %w", err)
	}

	query := `
		UPDATE evaluations
		SET status = $2, outputs = $3, error = $4, started_at = $5, finished_at = $6
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		e.ID,
		e.Status.String(),
		outputsJSON,
		nullString(e.Error),
		e.StartedAt,
		e.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("update evaluation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Helpers ---

// EvaluationFilter — параметры фильтрации evaluations.
type EvaluationFilter struct {
	ScriptID *uuid.UUID
	Status   domain.EvaluationStatus
	Limit    int
	Offset   int
}

func collectEvaluations(rows pgx.Rows) ([]domain.Evaluation, error) {
	defer rows.Close()

	var evals []domain.Evaluation
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		evals = append(evals, *e)
	}
	return evals, rows.Err()
}

func scanEvaluation(row pgx.Row) (*domain.Evaluation, error) {
	var e domain.Evaluation
	var workflow, evalError, idempotencyKey *string
	var status string
	var inputsJSON, outputsJSON []byte

	err := row.Scan(
		&e.ID,
		&e.ScriptID,
		&e.Version,
		&workflow,
		&inputsJSON,
		&status,
		&outputsJSON,
		&evalError,
		&idempotencyKey,
		&e.StartedAt,
		&e.FinishedAt,
		&e.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan evaluation: %w", err)
	}

	st, ok := domain.ParseEvaluationStatus(status)
	if !ok {
		return nil, fmt.Errorf("scan evaluation: unknown status %q", status)
	}
	e.Status = st

	if inputsJSON != nil {
		if err := json.Unmarshal(inputsJSON, &e.Inputs); err != nil {
			return nil, fmt.Errorf("unmarshal inputs: %w", err)
		}
	}
	if outputsJSON != nil {
		if err := json.Unmarshal(outputsJSON, &e.Outputs); err != nil {
			return nil, fmt.Errorf("unmarshal outputs: %w", err)
		}
	}
	if workflow != nil {
		e.Workflow = *workflow
	}
	if evalError != nil {
		e.Error = *evalError
	}
	if idempotencyKey != nil {
		e.IdempotencyKey = *idempotencyKey
	}
	return &e, nil
}
