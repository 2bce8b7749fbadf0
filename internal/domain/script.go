package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Kira/internal/builder"
)

// Ошибки валидации доменных объектов.
var (
	// ErrEmptyName — не задано имя.
	ErrEmptyName = errors.New("name is required")

	// ErrEmptySource — пустой исходный текст скрипта.
	ErrEmptySource = errors.New("source is required")

	// ErrInvalidSource — исходный текст не компилируется.
	ErrInvalidSource = errors.New("invalid source")

	// ErrInvalidSchedule — не задан ни cron, ни интервал.
	ErrInvalidSchedule = errors.New("either cron_expr or interval_sec is required")
)

// Script — сохранённая программа на языке Kira.
//
// Один script может иметь множество версий (ScriptVersion).
// Каждое вычисление (Evaluation) выполняет конкретную версию.
type Script struct {
	// ID — уникальный идентификатор script.
	ID uuid.UUID `json:"id"`

	// Name — уникальное имя script (например, "pricing", "daily-report").
	Name string `json:"name"`

	// Description — описание назначения.
	Description string `json:"description,omitempty"`

	// IsActive — неактивные scripts не вычисляются по расписанию.
	IsActive bool `json:"is_active"`

	// CreatedAt — время создания script.
	CreatedAt time.Time `json:"created_at"`
}

// ScriptVersion — версия исходного текста script.
type ScriptVersion struct {
	// ScriptID — ссылка на родительский script.
	ScriptID uuid.UUID `json:"script_id"`

	// Version — номер версии (1, 2, 3, ...).
	Version int `json:"version"`

	// Source — исходный текст программы.
	Source string `json:"source"`

	// Workflows — сигнатуры workflow, объявленных в тексте.
	// Заполняется при валидации.
	Workflows []string `json:"workflows,omitempty"`

	// CreatedAt — время создания версии.
	CreatedAt time.Time `json:"created_at"`
}

// Validate компилирует исходный текст и заполняет Workflows.
func (v *ScriptVersion) Validate() error {
	if strings.TrimSpace(v.Source) == "" {
		return ErrEmptySource
	}

	prog, err := builder.Compile(v.Source)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}

	v.Workflows = v.Workflows[:0]
	for _, wf := range prog.Workflows() {
		if err := wf.Validate(); err != nil {
			return fmt.Errorf("%w: workflow %s: %v", ErrInvalidSource, wf.Name(), err)
		}
		v.Workflows = append(v.Workflows, wf.Signature())
	}
	return nil
}

// Validate проверяет поля script.
func (s *Script) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// HasWorkflow сообщает, объявлен ли в версии workflow с именем name.
func (v *ScriptVersion) HasWorkflow(name string) bool {
	prefix := "workflow " + name + "("
	for _, sig := range v.Workflows {
		if strings.HasPrefix(sig, prefix) {
			return true
		}
	}
	return false
}
