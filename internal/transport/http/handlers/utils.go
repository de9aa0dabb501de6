package handlers

import (
	"net/http"
)

// Healthcheck проверяет доступность БД и отдаёт агрегированный статус.
// Отвечает 200 даже при деградации: детали по компонентам — в теле.
func (h *Handlers) Healthcheck(w http.ResponseWriter, r *http.Request) {
	dbStatus := "ok"
	if err := h.db.Ping(r.Context()); err != nil {
		dbStatus = "unavailable"
	}

	status := "ok"
	if dbStatus != "ok" {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   status,
		"database": dbStatus,
	})
}

// Version отдаёт версию сборки сервиса.
func (h *Handlers) Version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}
