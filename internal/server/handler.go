// Package server is the HTTP transport over the processing core: JSON
// envelopes, base64 payload decoding, and error-code-to-status mapping.
package server

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/homedocs/doc-processor/internal/common"
	"github.com/homedocs/doc-processor/internal/extract"
	"github.com/homedocs/doc-processor/internal/face"
	"github.com/homedocs/doc-processor/internal/pdfdoc"
)

// DocumentProcessor runs the extraction cascade for one document.
type DocumentProcessor interface {
	Process(ctx context.Context, data []byte, filename string) (extract.Result, error)
}

// Thumbnailer renders a PDF's first page scaled to a bounding square.
type Thumbnailer interface {
	Thumbnail(ctx context.Context, pdf []byte, maxSize int) (pdfdoc.Thumbnail, error)
}

// Options carries the transport-level settings.
type Options struct {
	ServiceName           string
	Version               string
	DefaultMatchThreshold float64
	MaxUploadBytes        int64
}

type Handler struct {
	processor  DocumentProcessor
	thumbs     Thumbnailer
	manager    *face.Manager
	embedder   *face.Embedder
	comparator *face.Comparator
	cache      face.Cache
	opts       Options
	logger     *slog.Logger
}

func NewHandler(
	processor DocumentProcessor,
	thumbs Thumbnailer,
	manager *face.Manager,
	embedder *face.Embedder,
	comparator *face.Comparator,
	cache face.Cache,
	opts Options,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "doc-processor"
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 32 << 20
	}
	return &Handler{
		processor:  processor,
		thumbs:     thumbs,
		manager:    manager,
		embedder:   embedder,
		comparator: comparator,
		cache:      cache,
		opts:       opts,
		logger:     logger,
	}
}

// failure maps the error taxonomy to wire responses: a not-ready model is
// 503, a broken engine is 500, everything else is a 200 envelope with
// ok:false (the upstream contract for recoverable input errors).
func (h *Handler) failure(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Warn("request failed",
		"path", r.URL.Path,
		"request_id", common.RequestIDFromContext(r.Context()),
		"error", err,
	)
	switch common.CodeOf(err) {
	case common.CodeModelUnavailable:
		writeFailure(w, http.StatusServiceUnavailable, common.Message(err))
	case common.CodeEngineFatal:
		writeFailure(w, http.StatusInternalServerError, common.Message(err))
	default:
		writeFailure(w, http.StatusOK, common.Message(err))
	}
}

func decodeBody(r *http.Request, v any) error {
	if err := jsonDecode(r.Body, v); err != nil {
		return common.NewAppError(common.CodeInvalidInput, "invalid request body", err)
	}
	return nil
}

// HandleHealth implements GET /health.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := h.manager.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":                true,
		"service":           h.opts.ServiceName,
		"version":           h.opts.Version,
		"face_model_loaded": status.Loaded,
		"face_model":        status.Model,
	})
}

// HandleProcessUpload implements POST /process (multipart upload).
func (h *Handler) HandleProcessUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.opts.MaxUploadBytes); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}
	f, header, err := r.FormFile("file")
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer f.Close()
	if header.Filename == "" {
		writeFailure(w, http.StatusBadRequest, "filename is required")
		return
	}
	data, err := io.ReadAll(f)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	h.process(w, r, data, header.Filename)
}

// HandleProcessBase64 implements POST /process/base64.
func (h *Handler) HandleProcessBase64(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FileData string `json:"file_data"`
		Filename string `json:"filename"`
	}
	if err := decodeBody(r, &req); err != nil {
		h.failure(w, r, err)
		return
	}
	data, err := base64.StdEncoding.DecodeString(req.FileData)
	if err != nil {
		writeFailure(w, http.StatusOK, "Invalid base64 encoding")
		return
	}
	h.process(w, r, data, req.Filename)
}

func (h *Handler) process(w http.ResponseWriter, r *http.Request, data []byte, filename string) {
	res, err := h.processor.Process(r.Context(), data, filename)
	if err != nil {
		h.failure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "data": res})
}

// HandleThumbnail implements POST /thumbnail/base64.
func (h *Handler) HandleThumbnail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FileData string `json:"file_data"`
		Size     int    `json:"size"`
	}
	if err := decodeBody(r, &req); err != nil {
		h.failure(w, r, err)
		return
	}
	data, err := base64.StdEncoding.DecodeString(req.FileData)
	if err != nil {
		writeFailure(w, http.StatusOK, "Invalid base64 encoding")
		return
	}
	if req.Size <= 0 {
		req.Size = 150
	}
	thumb, err := h.thumbs.Thumbnail(r.Context(), data, req.Size)
	if err != nil {
		h.failure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"data": map[string]any{
			"image":  base64.StdEncoding.EncodeToString(thumb.PNG),
			"width":  thumb.Width,
			"height": thumb.Height,
		},
	})
}

// HandleFaceEmbed implements POST /face/embed.
func (h *Handler) HandleFaceEmbed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ImageB64 string `json:"image_b64"`
		UseCache *bool  `json:"use_cache"`
	}
	if err := decodeBody(r, &req); err != nil {
		h.failure(w, r, err)
		return
	}
	img, err := decodeImagePayload(req.ImageB64)
	if err != nil {
		writeFailure(w, http.StatusOK, "Invalid image payload")
		return
	}

	vec, meta, err := h.embedder.Embed(r.Context(), img, useCache(req.UseCache))
	if err != nil {
		h.failure(w, r, err)
		return
	}
	if vec == nil {
		writeJSON(w, http.StatusOK, map[string]any{"ok": false, "error": "No face found", "meta": meta})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "vector": vec, "meta": meta})
}

// HandleFaceCompare implements POST /face/compare.
func (h *Handler) HandleFaceCompare(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AB64      string   `json:"a_b64"`
		BB64      string   `json:"b_b64"`
		Threshold *float64 `json:"threshold"`
		UseCache  *bool    `json:"use_cache"`
	}
	if err := decodeBody(r, &req); err != nil {
		h.failure(w, r, err)
		return
	}
	a, err := decodeImagePayload(req.AB64)
	if err != nil {
		writeFailure(w, http.StatusOK, "Invalid image payload for a")
		return
	}
	b, err := decodeImagePayload(req.BB64)
	if err != nil {
		writeFailure(w, http.StatusOK, "Invalid image payload for b")
		return
	}
	threshold := h.opts.DefaultMatchThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	res, err := h.comparator.Compare(r.Context(), a, b, threshold, useCache(req.UseCache))
	if err != nil {
		h.failure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"distance":  res.Distance,
		"threshold": threshold,
		"match":     res.Match,
		"meta":      res.Meta,
	})
}

// HandleFaceModel implements GET /face/model.
func (h *Handler) HandleFaceModel(w http.ResponseWriter, r *http.Request) {
	status := h.manager.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"loaded": status.Loaded,
		"model":  status.Model,
	})
}

// HandleFaceLoadModel implements POST /face/load-model.
func (h *Handler) HandleFaceLoadModel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model string `json:"model"`
	}
	if err := decodeBody(r, &req); err != nil {
		h.failure(w, r, err)
		return
	}
	if err := h.manager.Load(r.Context(), req.Model); err != nil {
		h.failure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": "Model '" + req.Model + "' loaded successfully",
		"model":   req.Model,
	})
}

// HandleFaceCacheInfo implements GET /face/cache/info.
func (h *Handler) HandleFaceCacheInfo(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "enabled": false, "entries": 0, "total_size_bytes": 0})
		return
	}
	stats, err := h.cache.Stats()
	if err != nil {
		h.failure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":               true,
		"enabled":          stats.Enabled,
		"entries":          stats.EntryCount,
		"total_size_bytes": stats.TotalSizeBytes,
	})
}

// HandleFaceCacheClear implements POST /face/cache/clear.
func (h *Handler) HandleFaceCacheClear(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "message": "Cache cleared", "deleted": 0})
		return
	}
	deleted, err := h.cache.Clear()
	if err != nil {
		h.failure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "message": "Cache cleared", "deleted": deleted})
}

// decodeImagePayload strips an optional data-URL prefix and base64-decodes
// the rest. Empty payloads are an error.
func decodeImagePayload(b64 string) ([]byte, error) {
	if strings.HasPrefix(b64, "data:") {
		_, rest, ok := strings.Cut(b64, ",")
		if !ok {
			return nil, common.Errorf(common.CodeInvalidInput, "malformed data URL")
		}
		b64 = rest
	}
	if b64 == "" {
		return nil, common.Errorf(common.CodeInvalidInput, "empty image payload")
	}
	return base64.StdEncoding.DecodeString(b64)
}

func useCache(flag *bool) bool {
	if flag == nil {
		return true
	}
	return *flag
}
