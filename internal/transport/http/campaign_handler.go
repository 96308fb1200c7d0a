package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"sponsorama/internal/dataprocessing"
	apierrors "sponsorama/internal/errors"
	"sponsorama/internal/exporter"
	"sponsorama/internal/middleware"
	"sponsorama/internal/services"
	"sponsorama/internal/validation"
	"sponsorama/pkg/contracts/domain"
)

// UploadField is the multipart field carrying the uploaded files.
const UploadField = "files"

// multipartMemory is the part of a multipart form kept in memory; the rest spills to disk.
const multipartMemory = 32 << 20

// CampaignHandler handles campaign upload, view, filter and export requests.
type CampaignHandler struct {
	service        CampaignServiceInterface
	validator      *validation.RequestValidator
	maxUploadBytes int64
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
}

// NewCampaignHandler creates a new campaign handler. maxUploadBytes bounds the
// whole multipart body.
func NewCampaignHandler(
	service CampaignServiceInterface,
	validator *validation.RequestValidator,
	maxUploadBytes int64,
	logger *slog.Logger,
	errorHandler *apierrors.ErrorHandler,
) *CampaignHandler {
	return &CampaignHandler{
		service:        service,
		validator:      validator,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With(slog.String("component", "campaign_handler")),
		errorHandler:   errorHandler,
	}
}

// Routes returns the campaign routes, to be mounted at /api/campaigns.
func (h *CampaignHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(
		middleware.ContentTypeValidator(h.errorHandler, "multipart/form-data"),
		middleware.MaxBodySize(h.maxUploadBytes, h.errorHandler),
	).Post("/upload", h.Upload)

	r.Get("/", h.GetView)
	r.Delete("/", h.Clear)
	r.Get("/summary", h.GetSummary)
	r.Get("/facets", h.GetFacets)
	r.Get("/export", h.Export)

	r.Route("/filter", func(r chi.Router) {
		r.Get("/", h.GetFilter)
		r.Delete("/", h.ResetFilter)
		r.Group(func(r chi.Router) {
			r.Use(middleware.ContentTypeValidator(h.errorHandler, "application/json"))
			r.Put("/", h.SetFilter)
			r.Patch("/", h.UpdateFilter)
		})
	})

	return r
}

// Upload handles POST /api/campaigns/upload
func (h *CampaignHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[UploadField]
	if err := h.validator.ValidateFileCount(len(headers)); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	// Parts that are not workbooks or archives, or are over the per-file limit,
	// are skipped and reported with the pipeline's failures.
	files := make([]dataprocessing.SourceFile, 0, len(headers))
	var skipped []domain.FileFailure
	for _, fh := range headers {
		mediaType := fh.Header.Get("Content-Type")
		if err := h.validator.ValidateUploadFile(fh.Filename, mediaType, fh.Size); err != nil {
			h.logger.WarnContext(ctx, "skipping upload part",
				slog.String("file", fh.Filename),
				slog.String("content_type", mediaType),
				slog.String("reason", err.Error()))
			skipped = append(skipped, domain.FileFailure{File: fh.Filename, Reason: err.Error()})
			continue
		}

		data, err := readPart(fh)
		if err != nil {
			h.errorHandler.HandleError(w, r, fmt.Errorf("failed to read %s: %w", fh.Filename, err))
			return
		}
		files = append(files, dataprocessing.SourceFile{Name: fh.Filename, MediaType: mediaType, Data: data})
	}

	h.logger.InfoContext(ctx, "upload received",
		slog.Int("files", len(files)),
		slog.Int("skipped", len(skipped)))

	if len(files) == 0 {
		h.errorHandler.HandleError(w, r, apierrors.NoValidData(dataprocessing.ErrNoValidData.Error(), skipped))
		return
	}

	result, err := h.service.Upload(ctx, files)
	if result != nil {
		result.Failures = append(result.Failures, skipped...)
	}
	if err != nil {
		switch {
		case errors.Is(err, dataprocessing.ErrNoValidData):
			h.errorHandler.HandleError(w, r, apierrors.NoValidData(result.Message, result.Failures))
		case errors.Is(err, services.ErrNoFiles):
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation(UploadField, err.Error()))
		default:
			h.errorHandler.HandleError(w, r, err)
		}
		return
	}

	render.JSON(w, r, result)
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// GetView handles GET /api/campaigns
func (h *CampaignHandler) GetView(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.View())
}

// GetSummary handles GET /api/campaigns/summary
func (h *CampaignHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Summary())
}

// GetFacets handles GET /api/campaigns/facets
func (h *CampaignHandler) GetFacets(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Facets())
}

// GetFilter handles GET /api/campaigns/filter
func (h *CampaignHandler) GetFilter(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.View().Filter)
}

// SetFilter handles PUT /api/campaigns/filter
func (h *CampaignHandler) SetFilter(w http.ResponseWriter, r *http.Request) {
	var f domain.FilterState
	if !h.decode(w, r, &f) {
		return
	}
	view := h.service.SetFilter(f)
	h.logger.DebugContext(r.Context(), "filter replaced",
		slog.Uint64("revision", view.Revision),
		slog.Int("matched", len(view.Records)))
	render.JSON(w, r, view)
}

// UpdateFilter handles PATCH /api/campaigns/filter
func (h *CampaignHandler) UpdateFilter(w http.ResponseWriter, r *http.Request) {
	var p domain.FilterPatch
	if !h.decode(w, r, &p) {
		return
	}
	render.JSON(w, r, h.service.UpdateFilter(p))
}

// ResetFilter handles DELETE /api/campaigns/filter
func (h *CampaignHandler) ResetFilter(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.ResetFilter())
}

// Clear handles DELETE /api/campaigns
func (h *CampaignHandler) Clear(w http.ResponseWriter, r *http.Request) {
	view := h.service.Clear()
	h.logger.InfoContext(r.Context(), "dataset cleared by request")
	render.JSON(w, r, view)
}

// Export handles GET /api/campaigns/export?format=csv|xlsx
func (h *CampaignHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := exporter.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("format", "must be one of: csv xlsx"))
		return
	}

	var buf bytes.Buffer
	n, err := h.service.Export(r.Context(), &buf, format)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.FileName()))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Record-Count", strconv.Itoa(n))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "export download interrupted",
			slog.String("error", err.Error()))
	}
}

// decode reads a JSON body into v and validates it. It writes the error response
// and returns false on failure.
func (h *CampaignHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return false
	}
	if err := h.validator.ValidateStruct(v); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return false
	}
	return true
}
