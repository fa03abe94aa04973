// backend/internal/player/handler.go
package player

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"gochangi/internal/apperr"
	"gochangi/internal/auth"
	"gochangi/internal/models"
	"gochangi/pkg/respond"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request")
		return
	}
	p, err := h.service.Create(r.Context(), in)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusCreated, p)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	players, err := h.service.List(r.Context(), r.URL.Query().Get("collectionId"))
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, players)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, p)
}

func (h *Handler) Patch(w http.ResponseWriter, r *http.Request) {
	var patch models.PlayerPatch
	if err := respond.Decode(r, &patch); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request")
		return
	}
	p, err := h.service.Patch(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, p)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.NoContent(w)
}

func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Redeem(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, p)
}

// Clear empties the leaderboard on behalf of the signed-in admin.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	actor := ""
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		actor = claims.Username
	}
	entry, err := h.service.Clear(r.Context(), r.URL.Query().Get("collectionId"), models.TriggerManual, actor)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, entry)
}

func limitParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, apperr.Invalid("limit must be a positive number")
	}
	return limit, nil
}

func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	entries, err := h.service.Leaderboard(r.Context(), r.URL.Query().Get("collectionId"), limit)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, entries)
}

func (h *Handler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	collectionID := r.URL.Query().Get("collectionId")
	limit, err := limitParam(r)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	var buf bytes.Buffer
	if err := h.service.ExportPDF(r.Context(), &buf, collectionID, limit); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="leaderboard.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}
