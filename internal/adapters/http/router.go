package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lucabarone/invoiceflow/internal/core/domain"
	"github.com/lucabarone/invoiceflow/internal/core/ports"
	"github.com/lucabarone/invoiceflow/internal/observability/metrics"

	"log/slog"
)

const userIDHeader = "X-User-Id"

// Options carries the traffic-control knobs the handler chain needs.
type Options struct {
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
	UploadMaxBytes int64
}

type Router struct {
	ingestor  ports.DocumentIngestor
	lifecycle ports.DocumentLifecycle
	editor    ports.ResultEditor
	reader    ports.DocumentReader
	exporter  ports.DocumentExporter

	logger  *slog.Logger
	metrics *metrics.HTTP
	opts    Options
}

func NewRouter(
	ingestor ports.DocumentIngestor,
	lifecycle ports.DocumentLifecycle,
	editor ports.ResultEditor,
	reader ports.DocumentReader,
	exporter ports.DocumentExporter,
	logger *slog.Logger,
	httpMetrics *metrics.HTTP,
	opts Options,
) *Router {
	if opts.UploadMaxBytes <= 0 {
		opts.UploadMaxBytes = 20 << 20
	}
	return &Router{
		ingestor:  ingestor,
		lifecycle: lifecycle,
		editor:    editor,
		reader:    reader,
		exporter:  exporter,
		logger:    logger,
		metrics:   httpMetrics,
		opts:      opts,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /v1/openapi.json", rt.openAPIDocument)

	mux.HandleFunc("POST /v1/documents", rt.uploadDocuments)
	mux.HandleFunc("GET /v1/documents", rt.listDocuments)
	mux.HandleFunc("GET /v1/documents/export/csv", rt.exportCSV)
	mux.HandleFunc("GET /v1/documents/export/xlsx", rt.exportExcel)
	mux.HandleFunc("GET /v1/documents/{id}", rt.getDocument)
	mux.HandleFunc("DELETE /v1/documents/{id}", rt.deleteDocument)
	mux.HandleFunc("GET /v1/documents/{id}/result", rt.getResult)
	mux.HandleFunc("PUT /v1/documents/{id}/result", rt.editResult)
	mux.HandleFunc("GET /v1/documents/{id}/raw", rt.getRawText)
	mux.HandleFunc("POST /v1/documents/{id}/retry", rt.retryDocument)
	mux.HandleFunc("POST /v1/documents/{id}/defective", rt.setDefective)

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.opts.MaxInFlight, 50*time.Millisecond, rt.metrics)
	handler = rateLimitMiddleware(handler, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst, rt.metrics)
	handler = accessLogMiddleware(handler, rt.logger, rt.metrics)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ownerID extracts the caller identity. Authentication proper lives in the
// gateway in front of this service; we only require that it forwarded one.
func (rt *Router) ownerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	ownerID := strings.TrimSpace(r.Header.Get(userIDHeader))
	if ownerID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing " + userIDHeader + " header"})
		return "", false
	}
	return ownerID, true
}

func (rt *Router) uploadDocuments(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := rt.ownerID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, rt.opts.UploadMaxBytes)
	if err := r.ParseMultipartForm(rt.opts.UploadMaxBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart body"})
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File["file"]
	}
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'files' is required"})
		return
	}

	docs := make([]*domain.Document, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("open uploaded file %q", header.Filename)})
			return
		}

		doc, err := rt.ingestor.Upload(r.Context(), ownerID, header.Filename, file)
		file.Close()
		if err != nil {
			rt.writeError(w, r, err)
			return
		}
		docs = append(docs, doc)
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"documents": docs})
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := rt.ownerID(w, r)
	if !ok {
		return
	}

	filter := domain.ListFilter{
		Status: domain.DocumentStatus(r.URL.Query().Get("status")),
		Search: r.URL.Query().Get("search"),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}

	docs, err := rt.reader.ListByOwner(r.Context(), ownerID, filter)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := rt.ownerID(w, r)
	if !ok {
		return
	}

	doc, err := rt.reader.GetByID(r.Context(), r.PathValue("id"), ownerID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) deleteDocument(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := rt.ownerID(w, r)
	if !ok {
		return
	}

	if err := rt.lifecycle.Delete(r.Context(), r.PathValue("id"), ownerID); err != nil {
		rt.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) getResult(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := rt.ownerID(w, r)
	if !ok {
		return
	}

	parsed, err := rt.reader.ParsedResult(r.Context(), r.PathValue("id"), ownerID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, parsed)
}

func (rt *Router) editResult(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := rt.ownerID(w, r)
	if !ok {
		return
	}

	var req struct {
		Amounts *domain.Amounts `json:"amounts"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Amounts == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "amounts is required"})
		return
	}

	parsed, err := rt.editor.EditAmounts(r.Context(), r.PathValue("id"), ownerID, req.Amounts)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, parsed)
}

func (rt *Router) getRawText(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := rt.ownerID(w, r)
	if !ok {
		return
	}

	rawText, err := rt.reader.RawText(r.Context(), r.PathValue("id"), ownerID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"raw_text": rawText})
}

func (rt *Router) retryDocument(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := rt.ownerID(w, r)
	if !ok {
		return
	}

	if err := rt.lifecycle.Retry(r.Context(), r.PathValue("id"), ownerID); err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (rt *Router) setDefective(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := rt.ownerID(w, r)
	if !ok {
		return
	}

	var req struct {
		Defective *bool `json:"defective"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Defective == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "boolean field 'defective' is required"})
		return
	}

	if err := rt.lifecycle.SetDefective(r.Context(), r.PathValue("id"), ownerID, *req.Defective); err != nil {
		rt.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) exportCSV(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := rt.ownerID(w, r)
	if !ok {
		return
	}

	data, err := rt.exporter.ExportCSV(r.Context(), ownerID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="documents.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (rt *Router) exportExcel(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := rt.ownerID(w, r)
	if !ok {
		return
	}

	data, err := rt.exporter.ExportExcel(r.Context(), ownerID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="documents.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		rt.logger.Error("request failed",
			"request_id", requestIDFromContext(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": publicErrorMessage(err, status)})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

// publicErrorMessage keeps internal detail out of 5xx bodies.
func publicErrorMessage(err error, status int) string {
	if status >= http.StatusInternalServerError {
		if errors.Is(err, domain.ErrTemporary) {
			return "service temporarily unavailable"
		}
		return "internal error"
	}
	return err.Error()
}
