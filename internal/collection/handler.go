// backend/internal/collection/handler.go
package collection

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"gochangi/internal/apperr"
	"gochangi/pkg/respond"
)

type Handler struct {
	service   *Service
	publicURL string
	logger    *slog.Logger
}

func NewHandler(service *Service, publicURL string, logger *slog.Logger) *Handler {
	return &Handler{service: service, publicURL: publicURL, logger: logger}
}

type OrderRequest struct {
	QuestionOrder []string `json:"questionOrder"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	collections, err := h.service.List(r.Context())
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, collections)
}

func (h *Handler) ListPublic(w http.ResponseWriter, r *http.Request) {
	collections, err := h.service.ListPublic(r.Context())
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, collections)
}

// GetByCode is the player's entry point: it resolves an access code.
func (h *Handler) GetByCode(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.GetByCode(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	count, err := h.service.QuestionCount(r.Context(), c.ID)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, c.ToDTO(count))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, c)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request")
		return
	}
	c, err := h.service.Create(r.Context(), in)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusCreated, c)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request")
		return
	}
	c, err := h.service.Update(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, c)
}

func (h *Handler) SetOrder(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request")
		return
	}
	c, err := h.service.SetOrder(r.Context(), mux.Vars(r)["id"], req.QuestionOrder)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, c)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.NoContent(w)
}

func (h *Handler) QRCode(w http.ResponseWriter, r *http.Request) {
	size := 0
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "size must be a number")
			return
		}
		size = n
	}

	png, err := h.service.QRCode(r.Context(), mux.Vars(r)["id"], h.publicURL, size, nil)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", "inline; filename=\"qrcode.png\"")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
