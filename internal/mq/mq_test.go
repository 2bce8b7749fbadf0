package mq

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

func TestParsePayload_RoundTripThroughEnvelope(t *testing.T) {
	id := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	msg := NewMessage(MessageTypeEvaluationCompleted, EvaluationCompletedPayload{
		EvaluationID: id,
		Status:       "FAILED",
		Error:        "division by zero",
		DurationMs:   12,
	})

	body, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Message
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	got, err := ParsePayload[EvaluationCompletedPayload](&decoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := EvaluationCompletedPayload{EvaluationID: id, Status: "FAILED", Error: "division by zero", DurationMs: 12}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
	if decoded.Type != MessageTypeEvaluationCompleted {
		t.Errorf("unexpected type %s", decoded.Type)
	}
}

func TestParsePayload_WrongShape(t *testing.T) {
	msg := &Message{Payload: map[string]any{"evaluation_id": "not-a-uuid"}}
	if _, err := ParsePayload[EvaluationPendingPayload](msg); err == nil {
		t.Fatal("expected error for malformed uuid")
	}
}

func TestBindings_PendingQueueHasDeadLetter(t *testing.T) {
	for _, b := range bindings() {
		if b.queue != QueueEvaluationsPending {
			continue
		}
		if b.args["x-dead-letter-exchange"] != string(ExchangeDLQ) {
			t.Errorf("pending queue must dead-letter to %s, got %v", ExchangeDLQ, b.args)
		}
		return
	}
	t.Fatal("pending queue not declared")
}

func TestTopologyInfo_NamesEveryQueue(t *testing.T) {
	info := TopologyInfo()
	for _, b := range bindings() {
		if !strings.Contains(info, string(b.queue)) {
			t.Errorf("topology info misses %s", b.queue)
		}
	}
}

func TestSettle(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name        string
		err         error
		redelivered bool
		ack         bool
		requeue     bool
	}{
		{"success", nil, false, true, false},
		{"success on redelivery", nil, true, true, false},
		{"first failure requeues", boom, false, false, true},
		{"second failure dead-letters", boom, true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack, requeue := settle(tt.err, tt.redelivered)
			if ack != tt.ack || requeue != tt.requeue {
				t.Errorf("settle = (%v, %v), want (%v, %v)", ack, requeue, tt.ack, tt.requeue)
			}
		})
	}
}

func TestBackoff_Capped(t *testing.T) {
	var got []time.Duration
	for d := minReconnectDelay; len(got) < 7; d = backoff(d) {
		got = append(got, d)
	}

	want := []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
		16 * time.Second, 30 * time.Second, 30 * time.Second,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("delays mismatch (-want +got):\n%s", diff)
	}
}
