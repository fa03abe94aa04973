// backend/internal/auth/handler.go
package auth

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

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CreateAdminRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type PasswordRequest struct {
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request")
		return
	}

	result, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, result)
}

func (h *Handler) ListAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := h.service.ListAdmins(r.Context())
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, admins)
}

func (h *Handler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req CreateAdminRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request")
		return
	}

	admin, err := h.service.CreateAdmin(r.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusCreated, admin)
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req PasswordRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request")
		return
	}

	if err := h.service.ChangePassword(r.Context(), claims, mux.Vars(r)["id"], req.Password); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.NoContent(w)
}

func (h *Handler) DeleteAdmin(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.service.DeleteAdmin(r.Context(), claims, mux.Vars(r)["id"]); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.NoContent(w)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	admin, err := h.service.GetAdmin(r.Context(), claims.AdminID)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, admin)
}
