package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Kira/internal/domain"
	"github.com/shaiso/Kira/internal/evaluator"
)

// Evaluate DTOs

// EvaluateRequest — запрос на ad-hoc вычисление без сохранения.
type EvaluateRequest struct {
	Source   string         `json:"source"`
	Workflow string         `json:"workflow,omitempty"`
	Inputs   map[string]any `json:"inputs,omitempty"`
}

// OutcomeResponse — итог ad-hoc вычисления.
type OutcomeResponse struct {
	Status     string              `json:"status"`
	Outputs    []domain.OutputView `json:"outputs,omitempty"`
	Error      string              `json:"error,omitempty"`
	DurationMs int64               `json:"duration_ms"`
}

// OutcomeFromEvaluator конвертирует evaluator.Outcome в OutcomeResponse.
func OutcomeFromEvaluator(o *evaluator.Outcome) OutcomeResponse {
	return OutcomeResponse{
		Status:     o.Status.String(),
		Outputs:    o.Outputs,
		Error:      o.Error,
		DurationMs: o.Duration.Milliseconds(),
	}
}

// Script DTOs

// CreateScriptRequest — запрос на создание script.
// Source обязателен: он становится версией 1.
type CreateScriptRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source"`
	IsActive    *bool  `json:"is_active,omitempty"`
}

// UpdateScriptRequest — запрос на обновление script.
// Новый Source создаёт новую версию.
type UpdateScriptRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
	Source      *string `json:"source,omitempty"`
}

// ScriptResponse — ответ с script.
type ScriptResponse struct {
	ID          uuid.UUID              `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	IsActive    bool                   `json:"is_active"`
	Latest      *ScriptVersionResponse `json:"latest,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// ScriptFromDomain конвертирует domain.Script в ScriptResponse.
// latest может быть nil.
func ScriptFromDomain(s domain.Script, latest *domain.ScriptVersion) ScriptResponse {
	resp := ScriptResponse{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		IsActive:    s.IsActive,
		CreatedAt:   s.CreatedAt,
	}
	if latest != nil {
		v := ScriptVersionFromDomain(*latest)
		resp.Latest = &v
	}
	return resp
}

// ScriptVersionResponse — ответ с версией script.
type ScriptVersionResponse struct {
	ScriptID  uuid.UUID `json:"script_id"`
	Version   int       `json:"version"`
	Source    string    `json:"source"`
	Workflows []string  `json:"workflows,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ScriptVersionFromDomain конвертирует domain.ScriptVersion в ScriptVersionResponse.
func ScriptVersionFromDomain(v domain.ScriptVersion) ScriptVersionResponse {
	return ScriptVersionResponse{
		ScriptID:  v.ScriptID,
		Version:   v.Version,
		Source:    v.Source,
		Workflows: v.Workflows,
		CreatedAt: v.CreatedAt,
	}
}

// Evaluation DTOs

// CreateEvaluationRequest — запрос на вычисление script.
type CreateEvaluationRequest struct {
	Workflow       string         `json:"workflow,omitempty"`
	Inputs         map[string]any `json:"inputs,omitempty"`
	Version        *int           `json:"version,omitempty"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
}

// EvaluationResponse — ответ с evaluation.
type EvaluationResponse struct {
	ID             uuid.UUID           `json:"id"`
	ScriptID       uuid.UUID           `json:"script_id"`
	Version        int                 `json:"version"`
	Workflow       string              `json:"workflow,omitempty"`
	Status         string              `json:"status"`
	Inputs         map[string]any      `json:"inputs,omitempty"`
	Outputs        []domain.OutputView `json:"outputs,omitempty"`
	Error          string              `json:"error,omitempty"`
	IdempotencyKey string              `json:"idempotency_key,omitempty"`
	StartedAt      *time.Time          `json:"started_at,omitempty"`
	FinishedAt     *time.Time          `json:"finished_at,omitempty"`
	DurationMs     int64               `json:"duration_ms,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

// EvaluationFromDomain конвертирует domain.Evaluation в EvaluationResponse.
func EvaluationFromDomain(e domain.Evaluation) EvaluationResponse {
	return EvaluationResponse{
		ID:             e.ID,
		ScriptID:       e.ScriptID,
		Version:        e.Version,
		Workflow:       e.Workflow,
		Status:         e.Status.String(),
		Inputs:         e.Inputs,
		Outputs:        e.Outputs,
		Error:          e.Error,
		IdempotencyKey: e.IdempotencyKey,
		StartedAt:      e.StartedAt,
		FinishedAt:     e.FinishedAt,
		DurationMs:     e.Duration().Milliseconds(),
		CreatedAt:      e.CreatedAt,
	}
}

// Schedule DTOs

// CreateScheduleRequest — запрос на создание schedule.
type CreateScheduleRequest struct {
	Name        string         `json:"name"`
	Workflow    string         `json:"workflow,omitempty"`
	CronExpr    string         `json:"cron_expr,omitempty"`
	IntervalSec int            `json:"interval_sec,omitempty"`
	Timezone    string         `json:"timezone,omitempty"`
	Enabled     bool           `json:"enabled"`
	Inputs      map[string]any `json:"inputs,omitempty"`
}

// SetEnabledRequest — запрос на включение/выключение.
type SetEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// ScheduleResponse — ответ с schedule.
type ScheduleResponse struct {
	ID               uuid.UUID      `json:"id"`
	ScriptID         uuid.UUID      `json:"script_id"`
	Workflow         string         `json:"workflow,omitempty"`
	Name             string         `json:"name"`
	CronExpr         string         `json:"cron_expr,omitempty"`
	IntervalSec      int            `json:"interval_sec,omitempty"`
	Timezone         string         `json:"timezone"`
	Enabled          bool           `json:"enabled"`
	NextDueAt        *time.Time     `json:"next_due_at,omitempty"`
	LastRunAt        *time.Time     `json:"last_run_at,omitempty"`
	LastEvaluationID *uuid.UUID     `json:"last_evaluation_id,omitempty"`
	Inputs           map[string]any `json:"inputs,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// ScheduleFromDomain конвертирует domain.Schedule в ScheduleResponse.
func ScheduleFromDomain(s *domain.Schedule) ScheduleResponse {
	if s == nil {
		return ScheduleResponse{}
	}
	return ScheduleResponse{
		ID:               s.ID,
		ScriptID:         s.ScriptID,
		Workflow:         s.Workflow,
		Name:             s.Name,
		CronExpr:         s.CronExpr,
		IntervalSec:      s.IntervalSec,
		Timezone:         s.Timezone,
		Enabled:          s.Enabled,
		NextDueAt:        s.NextDueAt,
		LastRunAt:        s.LastRunAt,
		LastEvaluationID: s.LastEvaluationID,
		Inputs:           s.Inputs,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}
