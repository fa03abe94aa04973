// backend/internal/game/handler.go
package game

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

type AnswerRequest struct {
	Answer string `json:"answer"`
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.Start(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, v)
}

func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.Current(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, v)
}

func (h *Handler) Answer(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request")
		return
	}
	h.result(w, func() (*Result, error) {
		return h.service.Answer(r.Context(), mux.Vars(r)["id"], req.Answer)
	})
}

func (h *Handler) Hint(w http.ResponseWriter, r *http.Request) {
	h.result(w, func() (*Result, error) {
		return h.service.Hint(r.Context(), mux.Vars(r)["id"])
	})
}

func (h *Handler) Skip(w http.ResponseWriter, r *http.Request) {
	h.result(w, func() (*Result, error) {
		return h.service.Skip(r.Context(), mux.Vars(r)["id"])
	})
}

func (h *Handler) result(w http.ResponseWriter, fn func() (*Result, error)) {
	res, err := fn()
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}
