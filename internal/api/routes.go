package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		Logging(h.logger),
		Recovery(h.logger),
		Metrics(),
	)

	// Ad-hoc
	mux.Handle("POST /api/v1/evaluate", chain(http.HandlerFunc(h.Evaluate)))

	// Scripts
	mux.Handle("GET /api/v1/scripts", chain(http.HandlerFunc(h.ListScripts)))
	mux.Handle("POST /api/v1/scripts", chain(http.HandlerFunc(h.CreateScript)))
	mux.Handle("GET /api/v1/scripts/{id}", chain(http.HandlerFunc(h.GetScript)))
	mux.Handle("PUT /api/v1/scripts/{id}", chain(http.HandlerFunc(h.UpdateScript)))
	mux.Handle("DELETE /api/v1/scripts/{id}", chain(http.HandlerFunc(h.DeleteScript)))

	// Script Versions
	mux.Handle("GET /api/v1/scripts/{id}/versions", chain(http.HandlerFunc(h.ListScriptVersions)))
	mux.Handle("GET /api/v1/scripts/{id}/versions/{version}", chain(http.HandlerFunc(h.GetScriptVersion)))

	// Evaluations
	mux.Handle("GET /api/v1/evaluations", chain(http.HandlerFunc(h.ListEvaluations)))
	mux.Handle("POST /api/v1/scripts/{id}/evaluations", chain(http.HandlerFunc(h.CreateEvaluation)))
	mux.Handle("GET /api/v1/evaluations/{id}", chain(http.HandlerFunc(h.GetEvaluation)))

	// Schedules
	mux.Handle("GET /api/v1/schedules", chain(http.HandlerFunc(h.ListSchedules)))
	mux.Handle("POST /api/v1/scripts/{id}/schedules", chain(http.HandlerFunc(h.CreateSchedule)))
	mux.Handle("GET /api/v1/schedules/{id}", chain(http.HandlerFunc(h.GetSchedule)))
	mux.Handle("DELETE /api/v1/schedules/{id}", chain(http.HandlerFunc(h.DeleteSchedule)))
	mux.Handle("PUT /api/v1/schedules/{id}/enabled", chain(http.HandlerFunc(h.SetScheduleEnabled)))
}
