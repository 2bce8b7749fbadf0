package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shaiso/Kira/internal/domain"
)

// Типы ответов повторяют api/dto.go: CLI говорит с сервером только по HTTP.

// ScriptResponse — script из API.
type ScriptResponse struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	IsActive    bool                   `json:"is_active"`
	Latest      *ScriptVersionResponse `json:"latest,omitempty"`
	CreatedAt   string                 `json:"created_at"`
}

// ScriptVersionResponse — версия script из API.
type ScriptVersionResponse struct {
	ScriptID  string   `json:"script_id"`
	Version   int      `json:"version"`
	Source    string   `json:"source"`
	Workflows []string `json:"workflows,omitempty"`
	CreatedAt string   `json:"created_at"`
}

// OutcomeResponse — итог ad-hoc вычисления.
type OutcomeResponse struct {
	Status     string              `json:"status"`
	Outputs    []domain.OutputView `json:"outputs,omitempty"`
	Error      string              `json:"error,omitempty"`
	DurationMs int64               `json:"duration_ms"`
}

// EvaluationResponse — evaluation из API.
type EvaluationResponse struct {
	ID             string              `json:"id"`
	ScriptID       string              `json:"script_id"`
	Version        int                 `json:"version"`
	Workflow       string              `json:"workflow,omitempty"`
	Status         string              `json:"status"`
	Inputs         map[string]any      `json:"inputs,omitempty"`
	Outputs        []domain.OutputView `json:"outputs,omitempty"`
	Error          string              `json:"error,omitempty"`
	IdempotencyKey string              `json:"idempotency_key,omitempty"`
	StartedAt      string              `json:"started_at,omitempty"`
	FinishedAt     string              `json:"finished_at,omitempty"`
	DurationMs     int64               `json:"duration_ms,omitempty"`
	CreatedAt      string              `json:"created_at"`
}

// ScheduleResponse — schedule из API.
type ScheduleResponse struct {
	ID               string         `json:"id"`
	ScriptID         string         `json:"script_id"`
	Workflow         string         `json:"workflow,omitempty"`
	Name             string         `json:"name"`
	CronExpr         string         `json:"cron_expr,omitempty"`
	IntervalSec      int            `json:"interval_sec,omitempty"`
	Timezone         string         `json:"timezone"`
	Enabled          bool           `json:"enabled"`
	NextDueAt        string         `json:"next_due_at,omitempty"`
	LastRunAt        string         `json:"last_run_at,omitempty"`
	LastEvaluationID string         `json:"last_evaluation_id,omitempty"`
	Inputs           map[string]any `json:"inputs,omitempty"`
	CreatedAt        string         `json:"created_at"`
	UpdatedAt        string         `json:"updated_at"`
}

// CreateScriptRequest — создание script.
type CreateScriptRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source"`
}

// UpdateScriptRequest — обновление script; Source создаёт новую версию.
type UpdateScriptRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
	Source      *string `json:"source,omitempty"`
}

// EvaluateRequest — ad-hoc вычисление.
type EvaluateRequest struct {
	Source   string         `json:"source"`
	Workflow string         `json:"workflow,omitempty"`
	Inputs   map[string]any `json:"inputs,omitempty"`
}

// CreateEvaluationRequest — вычисление сохранённого script.
type CreateEvaluationRequest struct {
	Workflow       string         `json:"workflow,omitempty"`
	Inputs         map[string]any `json:"inputs,omitempty"`
	Version        *int           `json:"version,omitempty"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
}

// CreateScheduleRequest — создание schedule.
type CreateScheduleRequest struct {
	Name        string         `json:"name"`
	Workflow    string         `json:"workflow,omitempty"`
	CronExpr    string         `json:"cron_expr,omitempty"`
	IntervalSec int            `json:"interval_sec,omitempty"`
	Timezone    string         `json:"timezone,omitempty"`
	Enabled     bool           `json:"enabled"`
	Inputs      map[string]any `json:"inputs,omitempty"`
}

// ListEvaluationsOpts — параметры фильтрации evaluations.
type ListEvaluationsOpts struct {
	ScriptID string
	Status   string
	Limit    int
}

// envelope — обёртка ответов API: data для успеха, error для ошибки.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError — ошибка, которую вернул сервер.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("API error: HTTP %d", e.Status)
	}
	return e.Code + ": " + e.Message
}

// Client — HTTP-клиент Kira API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент. Таймаут покрывает inline-вычисления на сервере.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Evaluate вычисляет текст на сервере без сохранения.
func (c *Client) Evaluate(req EvaluateRequest) (*OutcomeResponse, error) {
	var out OutcomeResponse
	err := c.post("/api/v1/evaluate", req, &out)
	return &out, err
}

// ListScripts возвращает все scripts.
func (c *Client) ListScripts() ([]ScriptResponse, error) {
	var scripts []ScriptResponse
	err := c.get("/api/v1/scripts", nil, &scripts)
	return scripts, err
}

// CreateScript создаёт script с первой версией.
func (c *Client) CreateScript(req CreateScriptRequest) (*ScriptResponse, error) {
	var script ScriptResponse
	err := c.post("/api/v1/scripts", req, &script)
	return &script, err
}

// GetScript возвращает script с последней версией.
func (c *Client) GetScript(id string) (*ScriptResponse, error) {
	var script ScriptResponse
	err := c.get("/api/v1/scripts/"+id, nil, &script)
	return &script, err
}

// UpdateScript обновляет script.
func (c *Client) UpdateScript(id string, req UpdateScriptRequest) (*ScriptResponse, error) {
	var script ScriptResponse
	err := c.put("/api/v1/scripts/"+id, req, &script)
	return &script, err
}

// DeleteScript удаляет script.
func (c *Client) DeleteScript(id string) error {
	return c.delete("/api/v1/scripts/" + id)
}

// ListVersions возвращает версии script.
func (c *Client) ListVersions(scriptID string) ([]ScriptVersionResponse, error) {
	var versions []ScriptVersionResponse
	err := c.get("/api/v1/scripts/"+scriptID+"/versions", nil, &versions)
	return versions, err
}

// CreateEvaluation вычисляет script.
func (c *Client) CreateEvaluation(scriptID string, req CreateEvaluationRequest) (*EvaluationResponse, error) {
	var e EvaluationResponse
	err := c.post("/api/v1/scripts/"+scriptID+"/evaluations", req, &e)
	return &e, err
}

// GetEvaluation возвращает evaluation по ID.
func (c *Client) GetEvaluation(id string) (*EvaluationResponse, error) {
	var e EvaluationResponse
	err := c.get("/api/v1/evaluations/"+id, nil, &e)
	return &e, err
}

// ListEvaluations возвращает список evaluations с фильтрацией.
func (c *Client) ListEvaluations(opts ListEvaluationsOpts) ([]EvaluationResponse, error) {
	params := url.Values{}
	if opts.ScriptID != "" {
		params.Set("script_id", opts.ScriptID)
	}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}

	var evaluations []EvaluationResponse
	err := c.get("/api/v1/evaluations", params, &evaluations)
	return evaluations, err
}

// ListSchedules возвращает schedules. Если scriptID не пустой — фильтрует.
func (c *Client) ListSchedules(scriptID string) ([]ScheduleResponse, error) {
	params := url.Values{}
	if scriptID != "" {
		params.Set("script_id", scriptID)
	}

	var schedules []ScheduleResponse
	err := c.get("/api/v1/schedules", params, &schedules)
	return schedules, err
}

// CreateSchedule создаёт schedule для script.
func (c *Client) CreateSchedule(scriptID string, req CreateScheduleRequest) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.post("/api/v1/scripts/"+scriptID+"/schedules", req, &schedule)
	return &schedule, err
}

// GetSchedule возвращает schedule по ID.
func (c *Client) GetSchedule(id string) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.get("/api/v1/schedules/"+id, nil, &schedule)
	return &schedule, err
}

// DeleteSchedule удаляет schedule.
func (c *Client) DeleteSchedule(id string) error {
	return c.delete("/api/v1/schedules/" + id)
}

// SetScheduleEnabled включает или выключает schedule.
func (c *Client) SetScheduleEnabled(id string, enabled bool) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	body := map[string]bool{"enabled": enabled}
	err := c.put("/api/v1/schedules/"+id+"/enabled", body, &schedule)
	return &schedule, err
}

// call отправляет body (если не nil) и декодирует data ответа в out
// (если не nil).
func (c *Client) call(method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, target, payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		if decodeErr == nil && env.Error != nil {
			apiErr.Code, apiErr.Message = env.Error.Code, env.Error.Message
		}
		return apiErr
	}
	if decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

func (c *Client) get(path string, query url.Values, out any) error {
	return c.call(http.MethodGet, path, query, nil, out)
}

func (c *Client) post(path string, body, out any) error {
	return c.call(http.MethodPost, path, nil, body, out)
}

func (c *Client) put(path string, body, out any) error {
	return c.call(http.MethodPut, path, nil, body, out)
}

func (c *Client) delete(path string) error {
	return c.call(http.MethodDelete, path, nil, nil, nil)
}
