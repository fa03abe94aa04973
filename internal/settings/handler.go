// backend/internal/settings/handler.go
package settings

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"gochangi/internal/apperr"
	"gochangi/internal/models"
	"gochangi/pkg/respond"
)

const formOverhead = 1 << 20

type Handler struct {
	service  *Service
	maxBytes int64
	logger   *slog.Logger
}

func NewHandler(service *Service, maxBytes int64, logger *slog.Logger) *Handler {
	return &Handler{service: service, maxBytes: maxBytes, logger: logger}
}

func (h *Handler) GetGlobal(w http.ResponseWriter, r *http.Request) {
	gs, err := h.service.Global(r.Context())
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, gs)
}

func (h *Handler) UpdateGlobal(w http.ResponseWriter, r *http.Request) {
	var in models.GlobalSettings
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request")
		return
	}
	gs, err := h.service.UpdateGlobal(r.Context(), in)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, gs)
}

func (h *Handler) GetLanding(w http.ResponseWriter, r *http.Request) {
	l, err := h.service.Landing(r.Context())
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, l)
}

// formFile returns nil without error when the field was not sent.
func formFile(r *http.Request, field string) (multipart.File, error) {
	file, _, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	return file, err
}

func (h *Handler) UpdateLanding(w http.ResponseWriter, r *http.Request) {
	var in LandingInput
	var uploads LandingImages

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, 2*h.maxBytes+formOverhead)
		if err := r.ParseMultipartForm(2*h.maxBytes + formOverhead); err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid form data")
			return
		}
		in.Title = r.FormValue("title")
		in.Subtitle = r.FormValue("subtitle")
		in.Body = r.FormValue("body")
		in.ButtonText = r.FormValue("buttonText")
		in.PrimaryColor = r.FormValue("primaryColor")
		in.RemoveBackgroundImage, _ = strconv.ParseBool(r.FormValue("removeBackgroundImage"))
		in.RemoveLogoImage, _ = strconv.ParseBool(r.FormValue("removeLogoImage"))

		background, err := formFile(r, "backgroundImage")
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid backgroundImage upload")
			return
		}
		if background != nil {
			defer background.Close()
			uploads.Background = background
		}
		logo, err := formFile(r, "logoImage")
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid logoImage upload")
			return
		}
		if logo != nil {
			defer logo.Close()
			uploads.Logo = logo
		}
	} else if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request")
		return
	}

	l, err := h.service.UpdateLanding(r.Context(), in, uploads)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, l)
}
