package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

func TestScriptVersion_Validate(t *testing.T) {
	v := &ScriptVersion{Source: "workflow add(a, b) -> sum: s = a + b; return s;\nx = 1"}
	if err := v.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"workflow add(a, b) -> sum"}, v.Workflows); diff != "" {
		t.Errorf("workflows mismatch (-want +got):\n%s", diff)
	}
}

func TestScriptVersion_ValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   error
	}{
		{"empty", "  \n", ErrEmptySource},
		{"syntax", "x = (1 +", ErrInvalidSource},
		{"cycle", "workflow w(x) -> a: a = b + x; b = a + x; return a;", ErrInvalidSource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &ScriptVersion{Source: tt.source}
			if err := v.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestScript_Validate(t *testing.T) {
	if err := (&Script{Name: " "}).Validate(); !errors.Is(err, ErrEmptyName) {
		t.Errorf("expected ErrEmptyName, got %v", err)
	}
	if err := (&Script{Name: "pricing"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestEvaluation_Lifecycle(t *testing.T) {
	e := &Evaluation{Status: EvaluationStatusPending}
	if e.IsFinished() {
		t.Error("pending evaluation is not finished")
	}

	e.MarkRunning()
	if e.Status != EvaluationStatusRunning || e.StartedAt == nil {
		t.Fatalf("unexpected state: %+v", e)
	}

	e.MarkFailed([]OutputView{{Name: "sum", Error: "boom"}}, "1 output failed")
	if !e.IsFinished() || e.Error == "" || e.FinishedAt == nil {
		t.Errorf("unexpected state: %+v", e)
	}
	if e.Outputs[0].OK() {
		t.Error("failed output must not be OK")
	}
}

func TestParseEvaluationStatus(t *testing.T) {
	if st, ok := ParseEvaluationStatus("RUNNING"); !ok || st != EvaluationStatusRunning {
		t.Errorf("unexpected result: %v %v", st, ok)
	}
	if _, ok := ParseEvaluationStatus("CANCELLED"); ok {
		t.Error("unknown status must not parse")
	}
}

func TestSchedule(t *testing.T) {
	now := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	s := &Schedule{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), IntervalSec: 60, Enabled: true, NextDueAt: &now}

	if err := s.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.IsDue(now) || s.IsDue(now.Add(-time.Second)) {
		t.Error("IsDue mismatch")
	}
	if got := s.IdempotencyKey(now); got != "00000000-0000-0000-0000-000000000001_1767344400" {
		t.Errorf("unexpected key: %s", got)
	}

	s.Enabled = false
	if s.IsDue(now) {
		t.Error("disabled schedule is never due")
	}

	if err := (&Schedule{}).Validate(); !errors.Is(err, ErrInvalidSchedule) {
		t.Errorf("expected ErrInvalidSchedule, got %v", err)
	}
	if err := (&Schedule{IntervalSec: 1, Timezone: "Mars/Base"}).Validate(); err == nil {
		t.Error("expected timezone error")
	}
}

func TestScriptVersion_HasWorkflow(t *testing.T) {
	v := &ScriptVersion{Workflows: []string{"workflow add(a, b) -> sum", "workflow addall() -> x"}}
	for name, want := range map[string]bool{"add": true, "addall": true, "ad": false, "sum": false} {
		if got := v.HasWorkflow(name); got != want {
			t.Errorf("HasWorkflow(%q) = %v, want %v", name, got, want)
		}
	}
}
