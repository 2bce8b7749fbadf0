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

// ScriptRepo — репозиторий для работы со scripts и script_versions.
type ScriptRepo struct {
	pool *pgxpool.Pool
}

// NewScriptRepo создаёт новый ScriptRepo.
func NewScriptRepo(pool *pgxpool.Pool) *ScriptRepo {
	return &ScriptRepo{pool: pool}
}

// --- Script CRUD ---

// Create создаёт новый script.
func (r *ScriptRepo) Create(ctx context.Context, script *domain.Script) error {
	query := `
		INSERT INTO scripts (id, name, description, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		script.ID,
		script.Name,
		nullString(script.Description),
		script.IsActive,
		script.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: script %s", ErrAlreadyExists, script.Name)
	}
	if err != nil {
		return fmt.Errorf("insert script: %w", err)
	}
	return nil
}

// GetByID возвращает script по ID.
func (r *ScriptRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Script, error) {
	query := `
		SELECT id, name, description, is_active, created_at
		FROM scripts
		WHERE id = $1
	`
	return scanScript(r.pool.QueryRow(ctx, query, id))
}

// GetByName возвращает script по имени.
func (r *ScriptRepo) GetByName(ctx context.Context, name string) (*domain.Script, error) {
	query := `
		SELECT id, name, description, is_active, created_at
		FROM scripts
		WHERE name = $1
	`
	return scanScript(r.pool.QueryRow(ctx, query, name))
}

// List возвращает список всех scripts.
func (r *ScriptRepo) List(ctx context.Context) ([]domain.Script, error) {
	query := `
		SELECT id, name, description, is_active, created_at
		FROM scripts
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list scripts: %w", err)
	}
	defer rows.Close()

	var scripts []domain.Script
	for rows.Next() {
		script, err := scanScript(rows)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, *script)
	}
	return scripts, rows.Err()
}

// Update обновляет script.
func (r *ScriptRepo) Update(ctx context.Context, script *domain.Script) error {
	query := `
		UPDATE scripts
		SET name = $2, description = $3, is_active = $4
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, script.ID, script.Name, nullString(script.Description), script.IsActive)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: script %s", ErrAlreadyExists, script.Name)
	}
	if err != nil {
		return fmt.Errorf("update script: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет script (каскадно удалит versions, evaluations, schedules).
func (r *ScriptRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM scripts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete script: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- ScriptVersion CRUD ---

// CreateVersion сохраняет новую версию исходного текста.
// Номер версии инкрементируется в той же транзакции.
func (r *ScriptRepo) CreateVersion(ctx context.Context, v *domain.ScriptVersion) error {
	workflowsJSON, err := json.Marshal(v.Workflows)
	if err != nil {
		return fmt.Errorf("marshal workflows: %w", err)
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		// Блокируем строку script, чтобы параллельные версии не получили один номер
		var id uuid.UUID
		err := tx.QueryRow(ctx, `SELECT id FROM scripts WHERE id = $1 FOR UPDATE`, v.ScriptID).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock script: %w", err)
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO script_versions (script_id, version, source, workflows, created_at)
			SELECT $1::uuid, COALESCE(MAX(version), 0) + 1, $2::text, $3::jsonb, NOW()
			FROM script_versions
			WHERE script_id = $1
			RETURNING version, created_at
		`, v.ScriptID, v.Source, workflowsJSON).Scan(&v.Version, &v.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert script version: %w", err)
		}
		return nil
	})
}

// GetVersion возвращает конкретную версию script.
func (r *ScriptRepo) GetVersion(ctx context.Context, scriptID uuid.UUID, version int) (*domain.ScriptVersion, error) {
	query := `
		SELECT script_id, version, source, workflows, created_at
		FROM script_versions
		WHERE script_id = $1 AND version = $2
	`
	return scanVersion(r.pool.QueryRow(ctx, query, scriptID, version))
}

// GetLatestVersion возвращает последнюю версию script.
func (r *ScriptRepo) GetLatestVersion(ctx context.Context, scriptID uuid.UUID) (*domain.ScriptVersion, error) {
	query := `
		SELECT script_id, version, source, workflows, created_at
		FROM script_versions
		WHERE script_id = $1
		ORDER BY version DESC
		LIMIT 1
	`
	return scanVersion(r.pool.QueryRow(ctx, query, scriptID))
}

// ListVersions возвращает все версии script, новые первыми.
func (r *ScriptRepo) ListVersions(ctx context.Context, scriptID uuid.UUID) ([]domain.ScriptVersion, error) {
	query := `
		SELECT script_id, version, source, workflows, created_at
		FROM script_versions
		WHERE script_id = $1
		ORDER BY version DESC
	`
	rows, err := r.pool.Query(ctx, query, scriptID)
	if err != nil {
		return nil, fmt.Errorf("list script versions: %w", err)
	}
	defer rows.Close()

	var versions []domain.ScriptVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, *v)
	}
	return versions, rows.Err()
}

// --- Helpers ---

func scanScript(row pgx.Row) (*domain.Script, error) {
	var s domain.Script
	var description *string

	err := row.Scan(&s.ID, &s.Name, &description, &s.IsActive, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan script: %w", err)
	}
	if description != nil {
		s.Description = *description
	}
	return &s, nil
}

func scanVersion(row pgx.Row) (*domain.ScriptVersion, error) {
	var v domain.ScriptVersion
	var workflowsJSON []byte

	err := row.Scan(&v.ScriptID, &v.Version, &v.Source, &workflowsJSON, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan script version: %w", err)
	}
	if workflowsJSON != nil {
		if err := json.Unmarshal(workflowsJSON, &v.Workflows); err != nil {
			return nil, fmt.Errorf("unmarshal workflows: %w", err)
		}
	}
	return &v, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullUUID возвращает nil для пустого UUID.
func nullUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	return id
}
