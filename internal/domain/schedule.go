package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Schedule запускает workflow script по cron-выражению или с фиксированным
// интервалом. Scheduler создаёт evaluation, когда наступает NextDueAt.
type Schedule struct {
	ID       uuid.UUID `json:"id"`
	ScriptID uuid.UUID `json:"script_id"`

	// Workflow — вызываемый workflow; пустой означает результат программы.
	Workflow string `json:"workflow,omitempty"`
	Name     string `json:"name,omitempty"`

	// CronExpr в пятипольном формате ("*/5 * * * *") имеет приоритет
	// над IntervalSec.
	CronExpr    string `json:"cron_expr,omitempty"`
	IntervalSec int    `json:"interval_sec,omitempty"`

	// Timezone — IANA-имя зоны для cron; пустое значит UTC.
	Timezone string `json:"timezone"`
	Enabled  bool   `json:"enabled"`

	NextDueAt        *time.Time `json:"next_due_at,omitempty"`
	LastRunAt        *time.Time `json:"last_run_at,omitempty"`
	LastEvaluationID *uuid.UUID `json:"last_evaluation_id,omitempty"`

	// Inputs копируются в каждое созданное evaluation.
	Inputs map[string]any `json:"inputs,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsCron сообщает, задан ли CronExpr.
func (s *Schedule) IsCron() bool {
	return s.CronExpr != ""
}

// IsInterval сообщает, работает ли расписание по интервалу.
func (s *Schedule) IsInterval() bool {
	return s.CronExpr == "" && s.IntervalSec > 0
}

// IsDue сообщает, наступил ли срок включённого расписания.
func (s *Schedule) IsDue(now time.Time) bool {
	return s.Enabled && s.NextDueAt != nil && !now.Before(*s.NextDueAt)
}

// RecordRun фиксирует созданное evaluation и следующий срок.
func (s *Schedule) RecordRun(evaluationID uuid.UUID, nextDue time.Time) {
	now := time.Now()
	s.LastRunAt = &now
	s.LastEvaluationID = &evaluationID
	s.NextDueAt = &nextDue
	s.UpdatedAt = now
}

// Validate проверяет, что задан cron или положительный интервал.
func (s *Schedule) Validate() error {
	if !s.IsCron() && !s.IsInterval() {
		return ErrInvalidSchedule
	}
	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return fmt.Errorf("%w: unknown timezone %q", ErrInvalidSchedule, s.Timezone)
		}
	}
	return nil
}

// IdempotencyKey возвращает ключ вычисления для срока due.
func (s *Schedule) IdempotencyKey(due time.Time) string {
	return fmt.Sprintf("%s_%d", s.ID, due.Unix())
}
