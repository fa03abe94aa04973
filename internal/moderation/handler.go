package moderation

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"gochangi/internal/apperr"
	"gochangi/pkg/respond"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type WordRequest struct {
	Word string `json:"word"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	words, err := h.service.List(r.Context())
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, words)
}

func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	var req WordRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request")
		return
	}
	b, err := h.service.Add(r.Context(), req.Word)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusCreated, b)
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Remove(r.Context(), mux.Vars(r)["id"]); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.NoContent(w)
}

func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.Check(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, v)
}
