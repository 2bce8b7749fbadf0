package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Kira/internal/domain"
	"github.com/shaiso/Kira/internal/repo"
	"github.com/shaiso/Kira/internal/scheduler"
)

// ListSchedules возвращает список schedules с фильтрацией.
// GET /api/v1/schedules?script_id=...&enabled=...&limit=...&offset=...
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	filter := repo.ScheduleFilter{}

	if s := r.URL.Query().Get("script_id"); s != "" {
		scriptID, err := uuid.Parse(s)
		if err != nil {
			BadRequest(w, "invalid script_id")
			return
		}
		filter.ScriptID = &scriptID
	}

	if s := r.URL.Query().Get("enabled"); s != "" {
		enabled, err := strconv.ParseBool(s)
		if err != nil {
			BadRequest(w, "invalid enabled")
			return
		}
		filter.Enabled = &enabled
	}

	var err error
	if filter.Limit, filter.Offset, err = page(r); err != nil {
		BadRequest(w, err.Error())
		return
	}

	schedules, err := h.schedules.List(r.Context(), filter)
	if HandleError(w, h.log(r), err, "") {
		return
	}

	result := make([]ScheduleResponse, len(schedules))
	for i := range schedules {
		result[i] = ScheduleFromDomain(&schedules[i])
	}

	List(w, result, len(result))
}

// CreateSchedule создаёт новый schedule для script.
// POST /api/v1/scripts/{id}/schedules
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	scriptID, ok := pathID(w, r, "script")
	if !ok {
		return
	}

	var req CreateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.Name == "" {
		BadRequest(w, domain.ErrEmptyName.Error())
		return
	}

	_, err := h.scripts.GetByID(r.Context(), scriptID)
	if HandleError(w, h.log(r), err, "script not found") {
		return
	}

	// Расписание всегда вычисляет последнюю версию
	if req.Workflow != "" {
		latest, err := h.scripts.GetLatestVersion(r.Context(), scriptID)
		if HandleError(w, h.log(r), err, "script has no versions") {
			return
		}
		if !latest.HasWorkflow(req.Workflow) {
			Error(w, http.StatusBadRequest, ErrCodeWorkflowNotFound, "workflow not found: "+req.Workflow)
			return
		}
	}

	now := time.Now()
	schedule := &domain.Schedule{
		ID:          uuid.New(),
		ScriptID:    scriptID,
		Workflow:    req.Workflow,
		Name:        req.Name,
		CronExpr:    req.CronExpr,
		IntervalSec: req.IntervalSec,
		Timezone:    req.Timezone,
		Enabled:     req.Enabled,
		Inputs:      req.Inputs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := scheduler.Prepare(schedule, now); err != nil {
		Error(w, http.StatusBadRequest, ErrCodeInvalidSchedule, err.Error())
		return
	}

	if err := h.schedules.Create(r.Context(), schedule); err != nil {
		InternalError(w, h.log(r), err)
		return
	}

	Created(w, ScheduleFromDomain(schedule))
}

// GetSchedule возвращает schedule по ID.
// GET /api/v1/schedules/{id}
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "schedule")
	if !ok {
		return
	}

	schedule, err := h.schedules.GetByID(r.Context(), id)
	if HandleError(w, h.log(r), err, "schedule not found") {
		return
	}

	Success(w, ScheduleFromDomain(schedule))
}

// DeleteSchedule удаляет schedule.
// DELETE /api/v1/schedules/{id}
func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "schedule")
	if !ok {
		return
	}

	if err := h.schedules.Delete(r.Context(), id); err != nil {
		HandleError(w, h.log(r), err, "schedule not found")
		return
	}

	NoContent(w)
}

// SetScheduleEnabled включает или выключает schedule.
// PUT /api/v1/schedules/{id}/enabled
func (h *Handler) SetScheduleEnabled(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "schedule")
	if !ok {
		return
	}

	var req SetEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	schedule, err := h.schedules.SetEnabled(r.Context(), id, req.Enabled)
	if HandleError(w, h.log(r), err, "schedule not found") {
		return
	}

	Success(w, ScheduleFromDomain(schedule))
}
