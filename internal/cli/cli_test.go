package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/shaiso/Kira/internal/domain"
	"github.com/shaiso/Kira/internal/parser"
)

const addSource = `
workflow add(a, b) -> sum:
    s = a + b
    return s;
`

func writeSource(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.kira")
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return path
}

// outputs возвращает фабрику Output и буферы stdout/stderr.
func outputs(jsonMode bool) (func() *Output, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return func() *Output { return NewOutputTo(jsonMode, &stdout, &stderr) }, &stdout, &stderr
}

func TestParseInputs(t *testing.T) {
	got, err := parseInputs([]string{"a=2", "b=[1,2]", "c=hello", "d=\"quoted\"", "e=true", "f="})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]any{
		"a": float64(2),
		"b": []any{float64(1), float64(2)},
		"c": "hello",
		"d": "quoted",
		"e": true,
		"f": "",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("inputs mismatch (-want +got):\n%s", diff)
	}

	for _, bad := range []string{"novalue", "=1"} {
		if _, err := parseInputs([]string{bad}); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}

func TestRunCmd_Workflow(t *testing.T) {
	outFn, stdout, _ := outputs(true)
	cmd := NewRunCmd(outFn)
	cmd.SetArgs([]string{writeSource(t, addSource), "--workflow", "add", "--input", "a=2", "--input", "b=3"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var res OutcomeResponse
	if err := json.Unmarshal(stdout.Bytes(), &res); err != nil {
		t.Fatalf("decode output: %v (%s)", err, stdout.String())
	}
	want := []domain.OutputView{{Name: "sum", Type: "Literal(integer)", Value: float64(5)}}
	if diff := cmp.Diff(want, res.Outputs); diff != "" {
		t.Errorf("outputs mismatch (-want +got):\n%s", diff)
	}
}

func TestRunCmd_Table(t *testing.T) {
	outFn, stdout, _ := outputs(false)
	cmd := NewRunCmd(outFn)
	cmd.SetIn(strings.NewReader("greeting = \"hi\"; n = 40 + 2;"))
	cmd.SetArgs([]string{"-"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{"NAME", "greeting", "hi", "n", "42", "Literal(integer)"} {
		if !strings.Contains(stdout.String(), want) {
			t.Errorf("table missing %q:\n%s", want, stdout.String())
		}
	}
}

func TestRunCmd_FailureIsError(t *testing.T) {
	outFn, stdout, _ := outputs(false)
	cmd := NewRunCmd(outFn)
	cmd.SetArgs([]string{writeSource(t, "x = 1; y = x / 0;")})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	err := cmd.Execute()
	if !errors.Is(err, ErrEvaluationFailed) {
		t.Fatalf("expected ErrEvaluationFailed, got %v", err)
	}
	if !strings.Contains(stdout.String(), "FAILED_OUTPUT") {
		t.Errorf("failed outputs must still be printed:\n%s", stdout.String())
	}
}

func TestTokensCmd(t *testing.T) {
	outFn, stdout, _ := outputs(true)
	cmd := NewTokensCmd(outFn)
	cmd.SetArgs([]string{writeSource(t, "x = 1")})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var tokens []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &tokens); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	var types []string
	for _, tok := range tokens {
		types = append(types, tok.Type)
	}
	if diff := cmp.Diff([]string{"SYMBOL", "=", "NUMBER", "EOF"}, types); diff != "" {
		t.Errorf("token types mismatch (-want +got):\n%s", diff)
	}
}

func TestAstCmd(t *testing.T) {
	outFn, stdout, _ := outputs(true)
	cmd := NewAstCmd(outFn)
	cmd.SetArgs([]string{writeSource(t, "x = 1 + 2")})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got struct {
		Statements []string `json:"statements"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if diff := cmp.Diff([]string{"x = (1 + 2);"}, got.Statements); diff != "" {
		t.Errorf("statements mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_KeepsNames(t *testing.T) {
	s := NewSession()

	if _, err := s.Eval("x = 2;"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	views, err := s.Eval("y = x * 3;")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []domain.OutputView{{Name: "y", Type: "Literal(integer)", Value: int64(6)}}
	if diff := cmp.Diff(want, views); diff != "" {
		t.Errorf("outputs mismatch (-want +got):\n%s", diff)
	}

	if _, err := s.Eval(addSource); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	views, err = s.Eval("r = add(x, 5);")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(views) != 1 || views[0].Value != int64(7) {
		t.Errorf("expected r=7 from workflow declared earlier, got %+v", views)
	}
}

func TestIncomplete(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"workflow f(a) -> b:", true},
		{"x = (1 +", true},
		{"s = \"abc", true},
		{"x = (1 + ;", false},
		{"x = @", false},
	}

	for _, tt := range tests {
		_, err := parser.ParseString(tt.src)
		if err == nil {
			t.Fatalf("%q: expected syntax error", tt.src)
		}
		if got := incomplete(err); got != tt.want {
			t.Errorf("%q: incomplete = %v, want %v (%v)", tt.src, got, tt.want, err)
		}
	}
}

// apiStub отвечает заранее заданными телами и запоминает запросы.
type apiStub struct {
	requests []string
	bodies   []map[string]any
}

func (s *apiStub) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests = append(s.requests, r.Method+" "+r.URL.RequestURI())
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		s.bodies = append(s.bodies, body)

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/api/v1/scripts/missing/evaluations":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":"NOT_FOUND","message":"script not found"}}`))
		case strings.HasSuffix(r.URL.Path, "/evaluations"):
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"data":{"id":"e1","script_id":"s1","version":2,"status":"SUCCEEDED",
				"outputs":[{"name":"sum","type":"Literal(integer)","value":5}]}}`))
		case r.URL.Path == "/api/v1/schedules":
			_, _ = w.Write([]byte(`{"data":[{"id":"sc1","script_id":"s1","name":"n","interval_sec":60,"timezone":"UTC","enabled":true}],"total":1}`))
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`not json`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestScriptEvalCmd(t *testing.T) {
	stub := &apiStub{}
	client := NewClient(stub.server(t).URL)
	outFn, stdout, stderr := outputs(false)

	cmd := NewScriptCmd(func() *Client { return client }, outFn)
	cmd.SetArgs([]string{"eval", "s1", "--workflow", "add", "--input", "a=2", "--input", "b=3", "--version", "2"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff([]string{"POST /api/v1/scripts/s1/evaluations"}, stub.requests); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}
	want := map[string]any{
		"workflow": "add",
		"inputs":   map[string]any{"a": float64(2), "b": float64(3)},
		"version":  float64(2),
	}
	if diff := cmp.Diff(want, stub.bodies[0]); diff != "" {
		t.Errorf("request body mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(stderr.String(), "Evaluation e1: SUCCEEDED") {
		t.Errorf("expected summary, got %q", stderr.String())
	}
	if !strings.Contains(stdout.String(), "sum") {
		t.Errorf("expected outputs table, got %q", stdout.String())
	}
}

func TestClient_Errors(t *testing.T) {
	stub := &apiStub{}
	client := NewClient(stub.server(t).URL)

	_, err := client.CreateEvaluation("missing", CreateEvaluationRequest{})
	if err == nil || err.Error() != "NOT_FOUND: script not found" {
		t.Errorf("expected API error, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Errorf("expected *APIError with 404, got %#v", err)
	}

	if _, err := client.GetScript("s1"); err == nil || !strings.Contains(err.Error(), "HTTP 500") {
		t.Errorf("expected HTTP status error, got %v", err)
	}
}

func TestClient_ListAndDelete(t *testing.T) {
	stub := &apiStub{}
	client := NewClient(stub.server(t).URL)

	schedules, err := client.ListSchedules("s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(schedules) != 1 || schedules[0].IntervalSec != 60 {
		t.Errorf("unexpected schedules: %+v", schedules)
	}
	if err := client.DeleteSchedule("sc1"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	want := []string{"GET /api/v1/schedules?script_id=s1", "DELETE /api/v1/schedules/sc1"}
	if diff := cmp.Diff(want, stub.requests); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}
}
