package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Kira/internal/domain"
	"github.com/shaiso/Kira/internal/repo"
)

// ListScripts возвращает список всех scripts.
// GET /api/v1/scripts
func (h *Handler) ListScripts(w http.ResponseWriter, r *http.Request) {
	scripts, err := h.scripts.List(r.Context())
	if HandleError(w, h.log(r), err, "") {
		return
	}

	result := make([]ScriptResponse, len(scripts))
	for i, s := range scripts {
		result[i] = ScriptFromDomain(s, nil)
	}

	List(w, result, len(result))
}

// CreateScript создаёт script и его первую версию.
// POST /api/v1/scripts
func (h *Handler) CreateScript(w http.ResponseWriter, r *http.Request) {
	var req CreateScriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	script := &domain.Script{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		IsActive:    true,
		CreatedAt:   time.Now(),
	}
	if req.IsActive != nil {
		script.IsActive = *req.IsActive
	}
	if err := script.Validate(); err != nil {
		HandleError(w, h.log(r), err, "")
		return
	}

	// Текст проверяется до записи script, чтобы не оставить script без версий
	version := &domain.ScriptVersion{ScriptID: script.ID, Source: req.Source}
	if err := version.Validate(); err != nil {
		HandleError(w, h.log(r), err, "")
		return
	}

	if err := h.scripts.Create(r.Context(), script); err != nil {
		HandleError(w, h.log(r), err, "")
		return
	}
	if err := h.scripts.CreateVersion(r.Context(), version); err != nil {
		InternalError(w, h.log(r), err)
		return
	}

	Created(w, ScriptFromDomain(*script, version))
}

// GetScript возвращает script с последней версией.
// GET /api/v1/scripts/{id}
func (h *Handler) GetScript(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "script")
	if !ok {
		return
	}

	script, err := h.scripts.GetByID(r.Context(), id)
	if HandleError(w, h.log(r), err, "script not found") {
		return
	}

	latest, err := h.scripts.GetLatestVersion(r.Context(), id)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		InternalError(w, h.log(r), err)
		return
	}

	Success(w, ScriptFromDomain(*script, latest))
}

// UpdateScript обновляет script. Новый source сохраняется новой версией.
// PUT /api/v1/scripts/{id}
func (h *Handler) UpdateScript(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "script")
	if !ok {
		return
	}

	var req UpdateScriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	script, err := h.scripts.GetByID(r.Context(), id)
	if HandleError(w, h.log(r), err, "script not found") {
		return
	}

	if req.Name != nil {
		script.Name = *req.Name
	}
	if req.Description != nil {
		script.Description = *req.Description
	}
	if req.IsActive != nil {
		script.IsActive = *req.IsActive
	}
	if err := script.Validate(); err != nil {
		HandleError(w, h.log(r), err, "")
		return
	}

	var version *domain.ScriptVersion
	if req.Source != nil {
		version = &domain.ScriptVersion{ScriptID: id, Source: *req.Source}
		if err := version.Validate(); err != nil {
			HandleError(w, h.log(r), err, "")
			return
		}
	}

	if err := h.scripts.Update(r.Context(), script); err != nil {
		HandleError(w, h.log(r), err, "script not found")
		return
	}

	if version != nil {
		if err := h.scripts.CreateVersion(r.Context(), version); err != nil {
			HandleError(w, h.log(r), err, "script not found")
			return
		}
	} else {
		version, err = h.scripts.GetLatestVersion(r.Context(), id)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			InternalError(w, h.log(r), err)
			return
		}
	}

	Success(w, ScriptFromDomain(*script, version))
}

// DeleteScript удаляет script вместе с версиями, evaluations и schedules.
// DELETE /api/v1/scripts/{id}
func (h *Handler) DeleteScript(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "script")
	if !ok {
		return
	}

	if err := h.scripts.Delete(r.Context(), id); err != nil {
		HandleError(w, h.log(r), err, "script not found")
		return
	}

	NoContent(w)
}

// ListScriptVersions возвращает список версий script.
// GET /api/v1/scripts/{id}/versions
func (h *Handler) ListScriptVersions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "script")
	if !ok {
		return
	}

	// Проверяем, что script существует
	_, err := h.scripts.GetByID(r.Context(), id)
	if HandleError(w, h.log(r), err, "script not found") {
		return
	}

	versions, err := h.scripts.ListVersions(r.Context(), id)
	if HandleError(w, h.log(r), err, "") {
		return
	}

	result := make([]ScriptVersionResponse, len(versions))
	for i, v := range versions {
		result[i] = ScriptVersionFromDomain(v)
	}

	List(w, result, len(result))
}

// GetScriptVersion возвращает конкретную версию script.
// GET /api/v1/scripts/{id}/versions/{version}
func (h *Handler) GetScriptVersion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "script")
	if !ok {
		return
	}

	versionNum, err := strconv.Atoi(r.PathValue("version"))
	if err != nil {
		BadRequest(w, "invalid version number")
		return
	}

	version, err := h.scripts.GetVersion(r.Context(), id, versionNum)
	if HandleError(w, h.log(r), err, "script version not found") {
		return
	}

	Success(w, ScriptVersionFromDomain(*version))
}
