package web

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/cloo-solutions/vsearch/internal/api"
	"github.com/cloo-solutions/vsearch/internal/api/middleware"
	"github.com/cloo-solutions/vsearch/internal/backend"
	"github.com/cloo-solutions/vsearch/internal/controller"
	"github.com/cloo-solutions/vsearch/internal/domain"
	"github.com/cloo-solutions/vsearch/internal/pagination"
	"github.com/cloo-solutions/vsearch/internal/preview"
	"github.com/cloo-solutions/vsearch/internal/service"
	"github.com/cloo-solutions/vsearch/internal/telemetry"
)

const (
	multipartMemory = 32 << 20

	NoticeSearchInFlight = "A search is already in progress."
	NoticeFileTooLarge   = "The selected file is too large."
)

// ImageSource resolves result paths to displayable URLs and can stream them.
type ImageSource interface {
	ImageURL(path string) string
	FetchImage(ctx context.Context, path string) (io.ReadCloser, string, error)
}

// HistoryReader lists recorded searches.
type HistoryReader interface {
	List(ctx context.Context, cursor string, limit int) (*pagination.PageResult[*service.HistoryEntry], error)
}

// Handler serves the page and its JSON companions for the session bound by
// middleware.Session.
type Handler struct {
	images  ImageSource
	history HistoryReader
	now     func() time.Time
}

func NewHandler(images ImageSource, history HistoryReader) *Handler {
	if history == nil {
		history = service.NoOpHistoryService{}
	}
	return &Handler{
		images:  images,
		history: history,
		now:     time.Now,
	}
}

// Index renders the page from the session's current state.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	ctrl := middleware.GetController(r.Context())
	if ctrl == nil {
		api.HandleError(w, domain.ErrSessionNotFound)
		return
	}
	h.render(w, http.StatusOK, ctrl.Snapshot(), "")
}

// Select stores the uploaded `file` part as the session's query image.
// A form submitted without a file leaves the selection untouched.
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	ctrl := middleware.GetController(r.Context())
	if ctrl == nil {
		api.HandleError(w, domain.ErrSessionNotFound)
		return
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.render(w, http.StatusRequestEntityTooLarge, ctrl.Snapshot(), NoticeFileTooLarge)
			return
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			api.Error(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	defer file.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read file")
		return
	}
	if header.Filename == "" && buf.Len() == 0 {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	data := buf.Bytes()
	mimeType := preview.Detect(data, header.Header.Get("Content-Type"))
	ctrl.SelectFile(domain.NewQueryImage(header.Filename, mimeType, data, h.now()))

	telemetry.AddBreadcrumb(r.Context(), "select", header.Filename)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Search starts a search for the selected file and sends the browser back to
// the page, which polls until loading clears.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctrl := middleware.GetController(r.Context())
	if ctrl == nil {
		api.HandleError(w, domain.ErrSessionNotFound)
		return
	}

	_, err := ctrl.SubmitSearch(r.Context())
	switch {
	case errors.Is(err, domain.ErrNoFileSelected):
		h.render(w, http.StatusOK, ctrl.Snapshot(), controller.PromptNoFile)
	case errors.Is(err, domain.ErrSearchInFlight):
		h.render(w, http.StatusConflict, ctrl.Snapshot(), NoticeSearchInFlight)
	case err != nil:
		api.HandleError(w, err)
	default:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

type resultResponse struct {
	Index int    `json:"index"`
	Path  string `json:"path"`
	URL   string `json:"url"`
}

type stateResponse struct {
	SessionID   string           `json:"session_id"`
	Loading     bool             `json:"loading"`
	HasFile     bool             `json:"has_file"`
	CanSearch   bool             `json:"can_search"`
	ButtonLabel string           `json:"button_label"`
	Filename    string           `json:"filename,omitempty"`
	Error       string           `json:"error,omitempty"`
	Preview     string           `json:"preview,omitempty"`
	Results     []resultResponse `json:"results"`
}

// State returns the session state as JSON.
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	ctrl := middleware.GetController(r.Context())
	if ctrl == nil {
		api.HandleError(w, domain.ErrSessionNotFound)
		return
	}

	view := controller.Render(ctrl.Snapshot(), h.imageURL)
	resp := stateResponse{
		SessionID:   ctrl.SessionID(),
		Loading:     view.Loading,
		HasFile:     view.HasFile,
		CanSearch:   view.CanSearch,
		ButtonLabel: view.ButtonLabel,
		Filename:    view.Filename,
		Error:       view.Error,
		Preview:     view.Preview,
		Results:     make([]resultResponse, 0, len(view.Images)),
	}
	for _, img := range view.Images {
		resp.Results = append(resp.Results, resultResponse{Index: img.Index, Path: img.Path, URL: img.URL})
	}

	api.Success(w, http.StatusOK, resp)
}

// History returns a page of recorded searches.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	page, err := h.history.List(r.Context(), r.URL.Query().Get("cursor"), limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, page)
}

// Image proxies get-image-by-path for browsers that cannot reach the backend.
func (h *Handler) Image(w http.ResponseWriter, r *http.Request) {
	if h.images == nil {
		api.HandleError(w, domain.ErrBackendMissing)
		return
	}

	path := r.URL.Query().Get("path")
	if path == "" {
		api.HandleError(w, domain.ErrImagePathRequired)
		return
	}

	body, contentType, err := h.images.FetchImage(r.Context(), path)
	if err != nil {
		var statusErr *backend.StatusError
		if errors.As(err, &statusErr) {
			api.Error(w, statusErr.StatusCode, statusErr.Error())
			return
		}
		log.Printf("image passthrough failed: path=%q err=%v", path, err)
		api.HandleError(w, domain.ErrBackendUnavailable)
		return
	}
	defer body.Close()

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		log.Printf("image passthrough copy failed: path=%q err=%v", path, err)
	}
}

func (h *Handler) imageURL(path string) string {
	if h.images == nil {
		return path
	}
	return h.images.ImageURL(path)
}

func (h *Handler) render(w http.ResponseWriter, status int, state controller.State, prompt string) {
	var buf bytes.Buffer
	page := Page{
		View:   controller.Render(state, h.imageURL),
		Prompt: prompt,
	}
	if err := RenderPage(&buf, page); err != nil {
		log.Printf("render page failed: %v", err)
		api.Error(w, http.StatusInternalServerError, "failed to render page")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
