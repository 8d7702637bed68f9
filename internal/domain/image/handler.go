package image

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/picstash/picstash-api/internal/pkg/response"
	"github.com/picstash/picstash-api/internal/pkg/storage"
	"github.com/picstash/picstash-api/internal/pkg/validator"
)

// Handler handles image HTTP requests
type Handler struct {
	service     *Service
	maxFileSize int64
	maxFiles    int
}

// NewHandler creates image handler
func NewHandler(service *Service, maxFileSize int64, maxFiles int) *Handler {
	return &Handler{
		service:     service,
		maxFileSize: maxFileSize,
		maxFiles:    maxFiles,
	}
}

// formOverhead leaves room for multipart boundaries and the keywords field
const formOverhead = 1 << 20

// Upload handles POST /upload
// Multipart form: image (file) + keywords (JSON-encoded array string)
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	limit := h.maxFileSize + formOverhead
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		response.BadRequest(w, "File too large or invalid form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		response.BadRequest(w, "No image file provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.InternalError(w, "Failed to read uploaded file", err)
		return
	}

	keywords, ok := h.parseKeywords(w, r.FormValue("keywords"))
	if !ok {
		return
	}

	record, err := h.service.Upload(r.Context(), data, contentTypeOf(header.Header.Get("Content-Type"), data), header.Filename, keywords)
	if err != nil {
		h.writeUploadError(w, err)
		return
	}

	resp := ImageResponseFromEntity(record, h.service.ResolveURL(r.Context(), record))
	response.Created(w, "Successfully uploaded 1 image(s)", UploadResponse{
		Images: []*ImageResponse{resp},
		Count:  1,
	})
}

// UploadMultiple handles POST /upload/multiple
// Multipart form: images (up to maxFiles files) + keywords
func (h *Handler) UploadMultiple(w http.ResponseWriter, r *http.Request) {
	limit := int64(h.maxFiles)*h.maxFileSize + formOverhead
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		response.BadRequest(w, "Files too large or invalid form")
		return
	}

	headers := r.MultipartForm.File["images"]
	if len(headers) == 0 {
		response.BadRequest(w, "No image file provided")
		return
	}
	if len(headers) > h.maxFiles {
		response.BadRequest(w, fmt.Sprintf("Too many files (max %d per request)", h.maxFiles))
		return
	}

	keywords, ok := h.parseKeywords(w, r.FormValue("keywords"))
	if !ok {
		return
	}

	files := make([]UploadFile, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			response.InternalError(w, "Failed to read uploaded file", err)
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			response.InternalError(w, "Failed to read uploaded file", err)
			return
		}
		files = append(files, UploadFile{
			Data:         data,
			ContentType:  contentTypeOf(header.Header.Get("Content-Type"), data),
			OriginalName: header.Filename,
			Keywords:     keywords,
		})
	}

	outcomes := h.service.UploadBatch(r.Context(), files)

	// Each file's outcome is independent; one failure doesn't touch the rest
	resp := UploadResponse{Images: []*ImageResponse{}}
	allValidation := true
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			if !isValidationError(outcome.Err) {
				allValidation = false
			}
			resp.Failed = append(resp.Failed, UploadFailure{
				OriginalName: outcome.OriginalName,
				Error:        outcome.Err.Error(),
			})
			continue
		}
		resp.Images = append(resp.Images, ImageResponseFromEntity(outcome.Record, h.service.ResolveURL(r.Context(), outcome.Record)))
	}
	resp.Count = len(resp.Images)

	if resp.Count == 0 {
		status := http.StatusInternalServerError
		if allValidation {
			status = http.StatusBadRequest
		}
		response.ErrorWithDetails(w, status, "Failed to upload images", failureDetails(resp.Failed))
		return
	}

	response.Created(w, fmt.Sprintf("Successfully uploaded %d image(s)", resp.Count), resp)
}

// Search handles GET /search?q=&page=&limit=
// A blank query falls back to the full listing.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", DefaultPageSize)

	result, err := h.service.Search(r.Context(), query, page, limit)
	if err != nil {
		response.InternalError(w, "Failed to search images", err)
		return
	}

	message := fmt.Sprintf("Retrieved %d images", len(result.Images))
	if strings.TrimSpace(query) != "" {
		message = fmt.Sprintf("Found %d images matching %q", len(result.Images), query)
	}
	response.OK(w, message, h.listResponse(r, result))
}

// ListAll handles GET /images?page=&limit=
func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", DefaultPageSize)

	result, err := h.service.ListAll(r.Context(), page, limit)
	if err != nil {
		response.InternalError(w, "Failed to fetch images", err)
		return
	}

	response.OK(w, fmt.Sprintf("Retrieved %d images", len(result.Images)), h.listResponse(r, result))
}

// GetByID handles GET /images/{id}
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ErrImageNotFound) {
			response.NotFound(w, "Image not found")
			return
		}
		response.InternalError(w, "Failed to fetch image", err)
		return
	}

	resp := ImageResponseFromEntity(record, h.service.ResolveURL(r.Context(), record))
	response.OK(w, "Image retrieved successfully", map[string]*ImageResponse{"image": resp})
}

// Delete handles DELETE /images/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, ErrImageNotFound) {
			response.NotFound(w, "Image not found")
			return
		}
		response.InternalError(w, "Failed to delete image", err)
		return
	}

	response.OK(w, "Image deleted successfully", nil)
}

// Stats handles GET /stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStats(r.Context())
	if err != nil {
		response.InternalError(w, "Failed to fetch statistics", err)
		return
	}

	recent := make([]*ImageResponse, len(stats.RecentUploads))
	for i, record := range stats.RecentUploads {
		recent[i] = ImageResponseFromEntity(record, h.service.ResolveURL(r.Context(), record))
	}

	response.OK(w, "Upload statistics retrieved successfully", StatsResponse{
		TotalImages:   stats.TotalImages,
		TotalSize:     stats.TotalSize,
		RecentUploads: recent,
	})
}

// Debug handles GET /debug — a compact listing for poking at the store
func (h *Handler) Debug(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ListAll(r.Context(), 1, MaxPageSize)
	if err != nil {
		response.InternalError(w, "Failed to get debug info", err)
		return
	}

	images := make([]DebugImage, len(result.Images))
	for i, record := range result.Images {
		images[i] = DebugImage{
			ID:           record.ID,
			OriginalName: record.OriginalName,
			Keywords:     record.Keywords,
			UploadDate:   record.UploadDate.Format(time.RFC3339),
			URL:          h.service.ResolveURL(r.Context(), record),
		}
	}

	response.OK(w, "Debug info retrieved", map[string]interface{}{
		"totalImages": result.Pagination.TotalImages,
		"images":      images,
	})
}

func (h *Handler) listResponse(r *http.Request, result *ListResult) ListResponse {
	images := make([]*ImageResponse, len(result.Images))
	for i, record := range result.Images {
		images[i] = ImageResponseFromEntity(record, h.service.ResolveURL(r.Context(), record))
	}
	return ListResponse{Images: images, Pagination: result.Pagination}
}

// parseKeywords decodes the JSON-encoded keywords form field and validates
// keyword count and length. Malformed JSON degrades to no keywords.
func (h *Handler) parseKeywords(w http.ResponseWriter, raw string) ([]string, bool) {
	var keywords []string
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &keywords); err != nil {
			keywords = nil
		}
	}
	for i, keyword := range keywords {
		keywords[i] = strings.TrimSpace(keyword)
	}

	if errs := validator.Validate(&keywordsForm{Keywords: keywords}); errs != nil {
		response.ValidationError(w, validator.Flatten(errs))
		return nil, false
	}
	return keywords, true
}

func (h *Handler) writeUploadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmptyFile):
		response.BadRequest(w, "File is empty")
	case errors.Is(err, ErrFileTooLarge):
		response.BadRequest(w, "File exceeds maximum size")
	case errors.Is(err, ErrInvalidFileType):
		response.BadRequest(w, "File type not allowed")
	default:
		response.InternalError(w, "Failed to upload images", err)
	}
}

func isValidationError(err error) bool {
	return errors.Is(err, ErrEmptyFile) ||
		errors.Is(err, ErrFileTooLarge) ||
		errors.Is(err, ErrInvalidFileType)
}

func failureDetails(failed []UploadFailure) string {
	parts := make([]string, len(failed))
	for i, f := range failed {
		parts[i] = f.OriginalName + ": " + f.Error
	}
	return strings.Join(parts, "; ")
}

// contentTypeOf prefers the declared MIME type and falls back to sniffing
// the magic bytes
func contentTypeOf(declared string, data []byte) string {
	declared = strings.TrimSpace(declared)
	if idx := strings.Index(declared, ";"); idx != -1 {
		declared = strings.TrimSpace(declared[:idx])
	}
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return storage.DetectMime(data)
}

func queryInt(r *http.Request, name string, defaultValue int) int {
	value, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return defaultValue
	}
	return value
}
