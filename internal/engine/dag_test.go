package engine

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBuildDAG_SimpleChain(t *testing.T) {
	dag, err := BuildDAG(
		[]string{"A", "B", "C"},
		[]Dependency{{From: "A", To: "B"}, {From: "B", To: "C"}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Проверяем количество узлов
	if dag.Size() != 3 {
		t.Errorf("expected 3 nodes, got %d", dag.Size())
	}

	// Проверяем корневые узлы
	if len(dag.RootNodes) != 1 {
		t.Fatalf("expected 1 root node, got %d", len(dag.RootNodes))
	}
	if dag.RootNodes[0].ID != "A" {
		t.Errorf("expected root node A, got %s", dag.RootNodes[0].ID)
	}

	// Проверяем зависимости
	nodeB := dag.GetNode("B")
	if len(nodeB.DependsOn) != 1 || nodeB.DependsOn[0].ID != "A" {
		t.Error("node B should depend on A")
	}

	nodeC := dag.GetNode("C")
	if len(nodeC.DependsOn) != 1 || nodeC.DependsOn[0].ID != "B" {
		t.Error("node C should depend on B")
	}
}

func TestBuildDAG_Diamond(t *testing.T) {
	// A → B → D
	// A → C → D
	dag, err := BuildDAG(
		[]string{"A", "B", "C", "D"},
		[]Dependency{
			{From: "A", To: "B"},
			{From: "A", To: "C"},
			{From: "B", To: "D"},
			{From: "C", To: "D"},
		},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Проверяем inDegree
	wantInDegree := map[string]int{"A": 0, "B": 1, "C": 1, "D": 2}
	for id, want := range wantInDegree {
		if got := dag.GetNode(id).InDegree; got != want {
			t.Errorf("%s: expected inDegree %d, got %d", id, want, got)
		}
	}

	if diff := cmp.Diff([]string{"A", "B", "C", "D"}, dag.OrderIDs()); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildDAG_DeclarationOrderTieBreak(t *testing.T) {
	// Независимые узлы идут в порядке объявления, а не в порядке map
	dag, err := BuildDAG(
		[]string{"z", "y", "x", "w"},
		[]Dependency{{From: "x", To: "y"}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff([]string{"z", "x", "y", "w"}, dag.OrderIDs()); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	// Повторное построение даёт тот же порядок
	for i := 0; i < 10; i++ {
		again, _ := BuildDAG([]string{"z", "y", "x", "w"}, []Dependency{{From: "x", To: "y"}})
		if diff := cmp.Diff(dag.OrderIDs(), again.OrderIDs()); diff != "" {
			t.Fatalf("order is not deterministic (-first +again):\n%s", diff)
		}
	}
}

func TestBuildDAG_CyclicDependency(t *testing.T) {
	_, err := BuildDAG(
		[]string{"A", "B", "C", "D"},
		[]Dependency{
			{From: "C", To: "A"},
			{From: "A", To: "B"},
			{From: "B", To: "C"},
		},
	)
	if !errors.Is(err, ErrCyclicDependency) {
		t.Fatalf("expected ErrCyclicDependency, got %v", err)
	}
	if err.Error() != "cyclic dependency detected: A, B, C" {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestBuildDAG_SelfLoop(t *testing.T) {
	_, err := BuildDAG([]string{"A"}, []Dependency{{From: "A", To: "A"}})
	if !errors.Is(err, ErrCyclicDependency) {
		t.Errorf("expected ErrCyclicDependency, got %v", err)
	}
}

func TestBuildDAG_Errors(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
		deps []Dependency
		want error
	}{
		{"empty id", []string{""}, nil, ErrEmptyNodeID},
		{"duplicate id", []string{"A", "A"}, nil, ErrDuplicateNodeID},
		{"unknown from", []string{"A"}, []Dependency{{From: "X", To: "A"}}, ErrMissingDependency},
		{"unknown to", []string{"A"}, []Dependency{{From: "A", To: "X"}}, ErrMissingDependency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildDAG(tt.ids, tt.deps)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Errorf("expected ValidationError, got %T", err)
			}
		})
	}
}

func TestBuildDAG_DuplicateEdges(t *testing.T) {
	dag, err := BuildDAG(
		[]string{"A", "B"},
		[]Dependency{{From: "A", To: "B"}, {From: "A", To: "B"}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dag.GetNode("B").InDegree != 1 {
		t.Errorf("duplicate edge must be counted once, got %d", dag.GetNode("B").InDegree)
	}
}

func TestBuildDAG_Empty(t *testing.T) {
	dag, err := BuildDAG(nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dag.Size() != 0 || len(dag.Order) != 0 {
		t.Error("expected empty DAG")
	}
}
