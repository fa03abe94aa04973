// backend/internal/question/handler.go
package question

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"gochangi/internal/apperr"
	"gochangi/pkg/respond"
)

// multipart bodies may carry the image plus form fields
const formOverhead = 1 << 20

type Handler struct {
	service  *Service
	maxBytes int64
	logger   *slog.Logger
}

func NewHandler(service *Service, maxBytes int64, logger *slog.Logger) *Handler {
	return &Handler{service: service, maxBytes: maxBytes, logger: logger}
}

type CheckRequest struct {
	Answer string `json:"answer"`
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// ListValues reads a list field sent either as a JSON array in one field or
// as repeated fields.
func ListValues(values []string) ([]string, error) {
	if len(values) == 1 && strings.HasPrefix(strings.TrimSpace(values[0]), "[") {
		var out []string
		if err := json.Unmarshal([]byte(values[0]), &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	return values, nil
}

// decodeInput reads the question from a JSON body or a multipart form. The
// returned file, if any, must be closed by the caller.
func (h *Handler) decodeInput(w http.ResponseWriter, r *http.Request) (Input, multipart.File, error) {
	var in Input
	if !isMultipart(r) {
		if err := respond.Decode(r, &in); err != nil {
			return in, nil, apperr.Invalid("invalid request")
		}
		return in, nil, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+formOverhead)
	if err := r.ParseMultipartForm(h.maxBytes + formOverhead); err != nil {
		return in, nil, apperr.Invalid("invalid form data")
	}
	form := r.MultipartForm.Value
	first := func(key string) string {
		if v := form[key]; len(v) > 0 {
			return v[0]
		}
		return ""
	}

	in.CollectionID = first("collectionId")
	in.Prompt = first("prompt")
	in.Type = first("type")
	in.Hint = first("hint")
	in.FunFact = first("funFact")
	in.RemoveImage, _ = strconv.ParseBool(first("removeImage"))
	if raw := strings.TrimSpace(first("number")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return in, nil, apperr.Invalid("number must be an integer")
		}
		in.Number = &n
	}
	var err error
	if in.Options, err = ListValues(form["options"]); err != nil {
		return in, nil, apperr.Invalid("options must be a list")
	}
	if in.Answers, err = ListValues(form["answers"]); err != nil {
		return in, nil, apperr.Invalid("answers must be a list")
	}

	file, _, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil, nil
	}
	if err != nil {
		return in, nil, apperr.Invalid("invalid image upload")
	}
	return in, file, nil
}

func imageOf(file multipart.File) *Image {
	if file == nil {
		return nil
	}
	return &Image{Body: file}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	collectionID := r.URL.Query().Get("collectionId")
	if collectionID == "" {
		respond.Error(w, http.StatusBadRequest, "collectionId is required")
		return
	}
	questions, err := h.service.List(r.Context(), collectionID)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, questions)
}

func (h *Handler) ForPlayer(w http.ResponseWriter, r *http.Request) {
	questions, err := h.service.ForPlayer(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, questions)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	q, err := h.service.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, q)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	in, file, err := h.decodeInput(w, r)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	if file != nil {
		defer file.Close()
	}

	q, err := h.service.Create(r.Context(), in, imageOf(file))
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusCreated, q)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	in, file, err := h.decodeInput(w, r)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	if file != nil {
		defer file.Close()
	}

	q, err := h.service.Update(r.Context(), mux.Vars(r)["id"], in, imageOf(file))
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, q)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.NoContent(w)
}

func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request")
		return
	}
	correct, err := h.service.Check(r.Context(), mux.Vars(r)["id"], req.Answer)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]bool{"correct": correct})
}
