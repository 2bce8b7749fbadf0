package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Kira/internal/domain"
	"github.com/shaiso/Kira/internal/evaluator"
	"github.com/shaiso/Kira/internal/repo"
)

// Evaluate вычисляет исходный текст без сохранения.
// POST /api/v1/evaluate
//
// Отказы выходов и ошибки компиляции — часть результата (200),
// а не ошибка запроса.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.Source == "" {
		BadRequest(w, domain.ErrEmptySource.Error())
		return
	}

	out := h.evaluate(r.Context(), evaluator.Request{
		Source:   req.Source,
		Workflow: req.Workflow,
		Inputs:   req.Inputs,
	})

	Success(w, OutcomeFromEvaluator(out))
}

// CreateEvaluation создаёт evaluation для версии script.
// POST /api/v1/scripts/{id}/evaluations
//
// В режиме inline вычисление выполняется сразу (201). Иначе evaluation
// остаётся PENDING и отправляется воркерам (202).
func (h *Handler) CreateEvaluation(w http.ResponseWriter, r *http.Request) {
	scriptID, ok := pathID(w, r, "script")
	if !ok {
		return
	}

	// Пустое тело — вычисление последней версии без входов
	var req CreateEvaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		BadRequest(w, "invalid request body")
		return
	}

	_, err := h.scripts.GetByID(r.Context(), scriptID)
	if HandleError(w, h.log(r), err, "script not found") {
		return
	}

	var version *domain.ScriptVersion
	if req.Version != nil {
		version, err = h.scripts.GetVersion(r.Context(), scriptID, *req.Version)
		if HandleError(w, h.log(r), err, "script version not found") {
			return
		}
	} else {
		version, err = h.scripts.GetLatestVersion(r.Context(), scriptID)
		if HandleError(w, h.log(r), err, "script has no versions") {
			return
		}
	}

	if req.Workflow != "" && !version.HasWorkflow(req.Workflow) {
		Error(w, http.StatusBadRequest, ErrCodeWorkflowNotFound, "workflow not found: "+req.Workflow)
		return
	}
	if _, err := evaluator.Inputs(req.Inputs); err != nil {
		BadRequest(w, err.Error())
		return
	}

	// Повторный запрос с тем же ключом возвращает существующее evaluation
	if req.IdempotencyKey != "" {
		existing, err := h.evaluations.GetByIdempotencyKey(r.Context(), scriptID, req.IdempotencyKey)
		if err == nil {
			Success(w, EvaluationFromDomain(*existing))
			return
		}
		if !errors.Is(err, repo.ErrNotFound) {
			InternalError(w, h.log(r), err)
			return
		}
	}

	e := &domain.Evaluation{
		ID:             uuid.New(),
		ScriptID:       scriptID,
		Version:        version.Version,
		Workflow:       req.Workflow,
		Inputs:         req.Inputs,
		Status:         domain.EvaluationStatusPending,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      time.Now(),
	}
	if h.inline {
		// RUNNING сразу, чтобы воркер не забрал evaluation при опросе
		e.MarkRunning()
	}

	if err := h.evaluations.Create(r.Context(), e); err != nil {
		if errors.Is(err, repo.ErrAlreadyExists) {
			existing, getErr := h.evaluations.GetByIdempotencyKey(r.Context(), scriptID, req.IdempotencyKey)
			if HandleError(w, h.log(r), getErr, "evaluation not found") {
				return
			}
			Success(w, EvaluationFromDomain(*existing))
			return
		}
		InternalError(w, h.log(r), err)
		return
	}

	if h.inline {
		out := h.evaluate(r.Context(), evaluator.Request{
			Source:   version.Source,
			Workflow: e.Workflow,
			Inputs:   e.Inputs,
		})
		evaluator.Apply(e, out)

		if err := h.evaluations.Update(r.Context(), e); err != nil {
			InternalError(w, h.log(r), err)
			return
		}
		Created(w, EvaluationFromDomain(*e))
		return
	}

	if err := h.publisher.PublishEvaluationPending(r.Context(), e.ID); err != nil {
		// evaluation сохранено; воркер подберёт его опросом
		h.log(r).Warn("failed to publish evaluation.pending", "evaluation_id", e.ID, "error", err)
	}

	Accepted(w, EvaluationFromDomain(*e))
}

// GetEvaluation возвращает evaluation по ID.
// GET /api/v1/evaluations/{id}
func (h *Handler) GetEvaluation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "evaluation")
	if !ok {
		return
	}

	e, err := h.evaluations.GetByID(r.Context(), id)
	if HandleError(w, h.log(r), err, "evaluation not found") {
		return
	}

	Success(w, EvaluationFromDomain(*e))
}

// ListEvaluations возвращает список evaluations с фильтрацией.
// GET /api/v1/evaluations?script_id=...&status=...&limit=...&offset=...
func (h *Handler) ListEvaluations(w http.ResponseWriter, r *http.Request) {
	filter := repo.EvaluationFilter{}

	if s := r.URL.Query().Get("script_id"); s != "" {
		scriptID, err := uuid.Parse(s)
		if err != nil {
			BadRequest(w, "invalid script_id")
			return
		}
		filter.ScriptID = &scriptID
	}

	if s := r.URL.Query().Get("status"); s != "" {
		status, ok := domain.ParseEvaluationStatus(s)
		if !ok {
			BadRequest(w, "invalid status")
			return
		}
		filter.Status = status
	}

	var err error
	if filter.Limit, filter.Offset, err = page(r); err != nil {
		BadRequest(w, err.Error())
		return
	}

	evaluations, err := h.evaluations.List(r.Context(), filter)
	if HandleError(w, h.log(r), err, "") {
		return
	}

	result := make([]EvaluationResponse, len(evaluations))
	for i, e := range evaluations {
		result[i] = EvaluationFromDomain(e)
	}

	List(w, result, len(result))
}
