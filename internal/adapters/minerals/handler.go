// Package minerals exposes the catalog over HTTP and runs asynchronous
// catalog exports into blob storage.
package minerals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"mineralcatalog/docs/schema/openapi"
	"mineralcatalog/internal/catalog"
	"mineralcatalog/internal/logging"
	"mineralcatalog/pkg/domain"
)

// Catalog is the set of catalog operations the HTTP surface needs.
type Catalog interface {
	List(ctx context.Context, q catalog.ListQuery) ([]domain.Mineral, error)
	Search(ctx context.Context, q catalog.SearchQuery) ([]domain.Mineral, error)
	Random(ctx context.Context) (domain.Mineral, error)
	Get(ctx context.Context, id int) (domain.Mineral, error)
	Create(ctx context.Context, m domain.Mineral) (domain.Mineral, error)
	Update(ctx context.Context, id int, m domain.Mineral) (domain.Mineral, error)
	Delete(ctx context.Context, id int) (int, error)
	Stats(ctx context.Context) (domain.MineralStats, error)
}

// Handler serves the mineral catalog routes. Exports is optional; without it
// the export routes answer 503.
type Handler struct {
	Catalog Catalog
	Exports ExportScheduler
	Logger  *slog.Logger
}

// NewHandler constructs a catalog HTTP handler.
func NewHandler(c Catalog) *Handler {
	return &Handler{Catalog: c, Logger: logging.Nop()}
}

// Route templates used as metric labels.
const (
	RouteHealth         = "/health"
	RouteOpenAPI        = "/openapi.json"
	RouteMinerals       = "/minerals"
	RouteSearch         = "/minerals/search"
	RouteRandom         = "/minerals/random"
	RouteMineral        = "/minerals/{id}"
	RouteStats          = "/stats"
	RouteExports        = "/exports"
	RouteExport         = "/exports/{id}"
	RouteExportArtifact = "/exports/{id}/{format}"
	RouteUnmatched      = "unmatched"
)

// RouteOf maps a request path onto its route template.
func RouteOf(path string) string {
	switch path {
	case RouteHealth, RouteOpenAPI, RouteStats, RouteExports, RouteRandom:
		return path
	case RouteMinerals, RouteMinerals + "/":
		return RouteMinerals
	case RouteSearch, RouteSearch + "/":
		return RouteSearch
	}
	if rest, ok := strings.CutPrefix(path, "/minerals/"); ok && !strings.Contains(rest, "/") {
		return RouteMineral
	}
	if rest, ok := strings.CutPrefix(path, "/exports/"); ok && rest != "" {
		switch strings.Count(rest, "/") {
		case 0:
			return RouteExport
		case 1:
			return RouteExportArtifact
		}
	}
	return RouteUnmatched
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Catalog == nil {
		writeError(w, http.StatusInternalServerError, "mineral catalog not configured")
		return
	}

	path := r.URL.Path
	switch RouteOf(path) {
	case RouteHealth:
		if allow(w, r, http.MethodGet) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		}
	case RouteOpenAPI:
		if allow(w, r, http.MethodGet) {
			h.handleOpenAPI(w)
		}
	case RouteStats:
		if allow(w, r, http.MethodGet) {
			h.handleStats(w, r)
		}
	case RouteMinerals:
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r)
		case http.MethodPost:
			h.handleCreate(w, r)
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
	case RouteSearch:
		if allow(w, r, http.MethodGet) {
			h.handleSearch(w, r)
		}
	case RouteRandom:
		if allow(w, r, http.MethodGet) {
			h.handleRandom(w, r)
		}
	case RouteMineral:
		h.handleMineral(w, r, strings.TrimPrefix(path, "/minerals/"))
	case RouteExports:
		if allow(w, r, http.MethodPost) {
			h.handleExportCreate(w, r)
		}
	case RouteExport, RouteExportArtifact:
		if allow(w, r, http.MethodGet) {
			h.handleExportGet(w, r, strings.TrimPrefix(path, "/exports/"))
		}
	default:
		writeError(w, http.StatusNotFound, "Not Found")
	}
}

func (h *Handler) handleOpenAPI(w http.ResponseWriter) {
	doc, err := openapi.JSON()
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q, errs := parseListQuery(r.URL.Query())
	if len(errs) > 0 {
		writeValidation(w, errs...)
		return
	}
	out, err := h.Catalog.List(r.Context(), q)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func parseListQuery(values url.Values) (catalog.ListQuery, []*domain.ValidationError) {
	q := catalog.NewListQuery()
	var errs []*domain.ValidationError
	if n, ok, err := queryInt(values, "skip"); err != nil {
		errs = append(errs, err)
	} else if ok {
		q.Skip = n
	}
	if n, ok, err := queryInt(values, "limit"); err != nil {
		errs = append(errs, err)
	} else if ok {
		q.Limit = n
	}
	if f, ok, err := queryFloat(values, "min_hardness"); err != nil {
		errs = append(errs, err)
	} else if ok {
		q.MinHardness = &f
	}
	if f, ok, err := queryFloat(values, "max_hardness"); err != nil {
		errs = append(errs, err)
	} else if ok {
		q.MaxHardness = &f
	}
	q.Name = values.Get("name")
	return q, errs
}

func queryInt(values url.Values, key string) (int, bool, *domain.ValidationError) {
	if !values.Has(key) {
		return 0, false, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(values.Get(key)))
	if err != nil {
		return 0, false, &domain.ValidationError{Location: "query", Field: key, Message: "value is not a valid integer"}
	}
	if n < 0 {
		return 0, false, &domain.ValidationError{Location: "query", Field: key, Message: "value must be greater than or equal to 0"}
	}
	return n, true, nil
}

func queryFloat(values url.Values, key string) (float64, bool, *domain.ValidationError) {
	if !values.Has(key) {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(values.Get(key)), 64)
	if err != nil {
		return 0, false, &domain.ValidationError{Location: "query", Field: key, Message: "value is not a valid number"}
	}
	return f, true, nil
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	q := catalog.SearchQuery{
		Color:  values.Get("color"),
		Rarity: values.Get("rarity"),
		Origin: values.Get("origin"),
	}
	out, err := h.Catalog.Search(r.Context(), q)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleRandom(w http.ResponseWriter, r *http.Request) {
	m, err := h.Catalog.Random(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Catalog.Stats(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleMineral(w http.ResponseWriter, r *http.Request, rawID string) {
	switch r.Method {
	case http.MethodGet, http.MethodPut, http.MethodDelete:
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
		return
	}
	id, err := strconv.Atoi(rawID)
	if err != nil {
		writeValidation(w, &domain.ValidationError{Location: "path", Field: "mineral_id", Message: "value is not a valid integer"})
		return
	}

	switch r.Method {
	case http.MethodGet:
		m, err := h.Catalog.Get(r.Context(), id)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, m)
	case http.MethodPut:
		replacement, errs := decodeMineral(r.Body)
		if len(errs) > 0 {
			writeValidation(w, errs...)
			return
		}
		updated, err := h.Catalog.Update(r.Context(), id, replacement)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if _, err := h.Catalog.Delete(r.Context(), id); err != nil {
			h.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Mineral deleted successfully"})
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	m, errs := decodeMineral(r.Body)
	if len(errs) > 0 {
		writeValidation(w, errs...)
		return
	}
	created, err := h.Catalog.Create(r.Context(), m)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

// mineralPayload mirrors domain.Mineral with pointers so absent and null
// required fields can be told apart from zero values.
type mineralPayload struct {
	ID                  *int     `json:"id"`
	Name                *string  `json:"name"`
	ChemicalComposition *string  `json:"chemical_composition"`
	Hardness            *float64 `json:"hardness"`
	Origin              *string  `json:"origin"`
	Color               *string  `json:"color"`
	Rarity              *string  `json:"rarity"`
}

func decodeMineral(body io.Reader) (domain.Mineral, []*domain.ValidationError) {
	var p mineralPayload
	if err := json.NewDecoder(body).Decode(&p); err != nil {
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			return domain.Mineral{}, []*domain.ValidationError{{Location: "body", Message: "field required"}}
		case errors.As(err, &typeErr):
			return domain.Mineral{}, []*domain.ValidationError{{
				Location: "body",
				Field:    typeErr.Field,
				Message:  fmt.Sprintf("invalid type: expected %s", typeErr.Type),
			}}
		default:
			return domain.Mineral{}, []*domain.ValidationError{{Location: "body", Message: "invalid JSON body"}}
		}
	}

	var errs []*domain.ValidationError
	required := func(field string, present bool) {
		if !present {
			errs = append(errs, &domain.ValidationError{Location: "body", Field: field, Message: "field required"})
		}
	}
	required("id", p.ID != nil)
	required("name", p.Name != nil)
	required("chemical_composition", p.ChemicalComposition != nil)
	required("hardness", p.Hardness != nil)
	required("origin", p.Origin != nil)
	if len(errs) > 0 {
		return domain.Mineral{}, errs
	}
	return domain.Mineral{
		ID:                  *p.ID,
		Name:                *p.Name,
		ChemicalComposition: *p.ChemicalComposition,
		Hardness:            *p.Hardness,
		Origin:              *p.Origin,
		Color:               p.Color,
		Rarity:              p.Rarity,
	}, nil
}

type exportRequest struct {
	Formats     []string `json:"formats"`
	RequestedBy string   `json:"requested_by"`
}

func (h *Handler) handleExportCreate(w http.ResponseWriter, r *http.Request) {
	if h.Exports == nil {
		writeError(w, http.StatusServiceUnavailable, "Exports are disabled")
		return
	}
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeValidation(w, &domain.ValidationError{Location: "body", Message: "invalid JSON body"})
		return
	}
	formats := make([]ExportFormat, 0, len(req.Formats))
	for _, raw := range req.Formats {
		format, ok := ParseExportFormat(raw)
		if !ok {
			writeValidation(w, &domain.ValidationError{Location: "body", Field: "formats", Message: fmt.Sprintf("unsupported export format %q", raw)})
			return
		}
		formats = append(formats, format)
	}

	record, err := h.Exports.EnqueueExport(r.Context(), ExportInput{Formats: formats, RequestedBy: req.RequestedBy})
	if err != nil {
		if errors.Is(err, ErrQueueFull) {
			writeError(w, http.StatusServiceUnavailable, "Export queue is full")
			return
		}
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"export": record})
}

func (h *Handler) handleExportGet(w http.ResponseWriter, r *http.Request, remainder string) {
	if h.Exports == nil {
		writeError(w, http.StatusServiceUnavailable, "Exports are disabled")
		return
	}
	id, rawFormat, artifact := strings.Cut(remainder, "/")
	if !artifact {
		record, ok := h.Exports.GetExport(id)
		if !ok {
			writeError(w, http.StatusNotFound, "Export not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"export": record})
		return
	}

	format, ok := ParseExportFormat(rawFormat)
	if !ok {
		writeError(w, http.StatusNotFound, "Export artifact not found")
		return
	}
	info, rc, err := h.Exports.OpenArtifact(r.Context(), id, format)
	switch {
	case errors.Is(err, ErrExportNotFound):
		writeError(w, http.StatusNotFound, "Export not found")
		return
	case errors.Is(err, ErrArtifactNotReady):
		writeError(w, http.StatusNotFound, "Export artifact not found")
		return
	case err != nil:
		h.writeDomainError(w, err)
		return
	}
	defer rc.Close()
	w.Header().Set("Content-Type", info.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "minerals."+string(format)))
	if info.ETag != "" {
		w.Header().Set("ETag", strconv.Quote(info.ETag))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger().Warn("stream export artifact", "export_id", id, "format", format, "error", err)
	}
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return logging.Nop()
	}
	return h.Logger
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var (
		notFound   *domain.NotFoundError
		duplicate  *domain.DuplicateIDError
		validation *domain.ValidationError
	)
	switch {
	case errors.As(err, &notFound):
		writeError(w, notFound.StatusCode(), notFound.Detail)
	case errors.As(err, &duplicate):
		writeError(w, duplicate.StatusCode(), duplicate.Detail())
	case errors.As(err, &validation):
		writeValidation(w, validation)
	default:
		h.logger().Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	methodNotAllowed(w, method)
	return false
}

func methodNotAllowed(w http.ResponseWriter, methods ...string) {
	w.Header().Set("Allow", strings.Join(methods, ", "))
	writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
}

type validationDetail struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func writeValidation(w http.ResponseWriter, errs ...*domain.ValidationError) {
	details := make([]validationDetail, 0, len(errs))
	for _, e := range errs {
		loc := []string{e.Location}
		if e.Field != "" {
			loc = append(loc, e.Field)
		}
		kind := "value_error"
		if e.Message == "field required" {
			kind = "missing"
		}
		details = append(details, validationDetail{Loc: loc, Msg: e.Message, Type: kind})
	}
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": details})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"detail": message})
}
