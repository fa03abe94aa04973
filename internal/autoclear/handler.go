// backend/internal/autoclear/handler.go
package autoclear

import (
	"log/slog"
	"net/http"
	"strconv"

	"gochangi/internal/apperr"
	"gochangi/internal/auth"
	"gochangi/pkg/respond"
)

const defaultLogLimit = 50

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.Config(r.Context())
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, cfg)
}

func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var in ConfigInput
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request")
		return
	}
	cfg, err := h.service.Update(r.Context(), in)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, cfg)
}

func (h *Handler) RunNow(w http.ResponseWriter, r *http.Request) {
	actor := ""
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		actor = claims.Username
	}
	entry, err := h.service.RunNow(r.Context(), actor)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, entry)
}

func (h *Handler) Logs(w http.ResponseWriter, r *http.Request) {
	limit := defaultLogLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respond.Error(w, http.StatusBadRequest, "limit must be a positive number")
			return
		}
		limit = n
	}
	logs, err := h.service.Logs(r.Context(), limit)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, logs)
}
