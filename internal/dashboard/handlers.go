package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/campprojects/dashboard/internal/ingest"
	"github.com/campprojects/dashboard/internal/project"
)

// Store is the record store as the handlers see it.
type Store interface {
	Load(ctx context.Context) (project.Table, error)
	Update(ctx context.Context, id string, f project.EditableFields) error
	UpdateBatch(ctx context.Context, edits []project.IndexedEdit) []project.RowError
}

// IngestFunc re-reads the source file into the store.
type IngestFunc func(ctx context.Context) (ingest.Result, error)

type Handler struct {
	store  Store
	ingest IngestFunc
	marker string
	lang   language.Tag
	log    *zap.Logger
}

type Options struct {
	ClosedMarker string
	Language     language.Tag
}

func NewHandler(s Store, ingestFn IngestFunc, log *zap.Logger, opts Options) *Handler {
	lang := opts.Language
	if lang == language.Und {
		lang = language.English
	}
	return &Handler{store: s, ingest: ingestFn, marker: opts.ClosedMarker, lang: lang, log: log.Named("dashboard")}
}

// View is the filtered table with its KPIs. Options always come from the
// unfiltered table so every choice stays selectable.
type View struct {
	Columns []project.Column               `json:"columns"`
	Rows    []project.Record               `json:"rows"`
	KPIs    project.KPIs                   `json:"kpis"`
	Display project.KPIDisplay             `json:"kpis_display"`
	Options map[project.Dimension][]string `json:"options"`
}

type rowErrorJSON struct {
	Index         int    `json:"index"`
	ProcurementID string `json:"procurement_id,omitempty"`
	Error         string `json:"error"`
}

type BatchResult struct {
	Updated int            `json:"updated"`
	Errors  []rowErrorJSON `json:"errors"`
}

type IngestResult struct {
	Rows       int   `json:"rows"`
	Skipped    bool  `json:"skipped"`
	DurationMS int64 `json:"duration_ms"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the domain error types onto status codes.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		dsErr *project.DataSourceError
		vErr  *project.ValidationError
		nf    *project.RecordNotFoundError
	)
	switch {
	case errors.As(err, &dsErr):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &vErr), errors.Is(err, project.ErrEmptyBatch):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &nf):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		h.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, "Failed to access project data", http.StatusInternalServerError)
	}
}

// selectionFromQuery reads repeatable dimension params. Absent params select
// everything.
func selectionFromQuery(r *http.Request) project.Selection {
	q := r.URL.Query()
	sel := project.Selection{}
	for _, d := range project.Dimensions {
		if values, ok := q[string(d)]; ok {
			sel[d] = values
		}
	}
	return sel
}

func decodeSelection(r *http.Request) (project.Selection, error) {
	var raw map[string][]string
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			return nil, &project.ValidationError{Field: "body", Reason: err.Error()}
		}
	}
	sel := project.Selection{}
	for k, v := range raw {
		d := project.Dimension(k)
		if d.Field() == project.FieldUnknown {
			return nil, &project.ValidationError{Field: k, Reason: "is not a filter"}
		}
		sel[d] = v
	}
	return sel, nil
}

func (h *Handler) view(t project.Table, sel project.Selection) View {
	sub := project.Filter(t, sel)
	kpis := project.Aggregate(sub.Records, h.marker)
	return View{
		Columns: sub.Columns,
		Rows:    sub.Records,
		KPIs:    kpis,
		Display: kpis.Display(h.lang),
		Options: project.Options(t),
	}
}

// load reads the whole table and reports the read time in Server-Timing.
func (h *Handler) load(w http.ResponseWriter, r *http.Request) (project.Table, bool) {
	start := time.Now()
	t, err := h.store.Load(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return project.Table{}, false
	}
	addServerTiming(w, timing{"load", time.Since(start)})
	return t, true
}

func (h *Handler) filtered(w http.ResponseWriter, r *http.Request, sel project.Selection) (project.Table, bool) {
	t, ok := h.load(w, r)
	if !ok {
		return project.Table{}, false
	}
	return project.Filter(t, sel), true
}

// ListProjects returns the filtered table, KPIs and filter options.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	t, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.view(t, selectionFromQuery(r)))
}

// QueryProjects is ListProjects with the selection in a JSON body, where an
// empty list selects nothing.
func (h *Handler) QueryProjects(w http.ResponseWriter, r *http.Request) {
	sel, err := decodeSelection(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	t, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.view(t, sel))
}

func (h *Handler) GetKPIs(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.filtered(w, r, selectionFromQuery(r))
	if !ok {
		return
	}
	kpis := project.Aggregate(sub.Records, h.marker)
	writeJSON(w, http.StatusOK, map[string]any{
		"kpis":         kpis,
		"kpis_display": kpis.Display(h.lang),
	})
}

func (h *Handler) GetOptions(w http.ResponseWriter, r *http.Request) {
	t, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, project.Options(t))
}

func (h *Handler) GetCharts(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.filtered(w, r, selectionFromQuery(r))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cost_comparison":      project.CostComparison(sub.Records),
		"funding_distribution": project.FundingDistribution(sub.Records),
	})
}

// ExportProjects downloads the filtered table as report.csv.
func (h *Handler) ExportProjects(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.filtered(w, r, selectionFromQuery(r))
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := ingest.WriteCSV(&buf, sub); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="report.csv"`)
	w.Write(buf.Bytes())
}

// projectID reads the id from the wildcard segment. chi routes on the raw
// path when the client escaped a slash, so the value is unescaped here.
func projectID(r *http.Request) (string, error) {
	id := chi.URLParam(r, "*")
	if r.URL.RawPath == "" {
		return id, nil
	}
	unescaped, err := url.PathUnescape(id)
	if err != nil {
		return "", &project.ValidationError{Field: "procurement_id", Reason: err.Error()}
	}
	return unescaped, nil
}

// UpdateProject applies one edit and returns the stored record.
func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	id, err := projectID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	fields, err := project.DecodeFields(r.Body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.store.Update(r.Context(), id, fields); err != nil {
		h.writeError(w, r, err)
		return
	}

	t, err := h.store.Load(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	i := t.Index(id)
	if i < 0 {
		h.writeError(w, r, &project.RecordNotFoundError{ID: id})
		return
	}
	writeJSON(w, http.StatusOK, t.Records[i])
}

// BatchUpdate applies each valid row and reports the rest. One bad row never
// blocks the others.
func (h *Handler) BatchUpdate(w http.ResponseWriter, r *http.Request) {
	edits, rowErrs, err := project.DecodeEdits(r.Body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	failed := h.store.UpdateBatch(r.Context(), edits)
	all := append(rowErrs, failed...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Index < all[j].Index })

	res := BatchResult{Updated: len(edits) - len(failed), Errors: make([]rowErrorJSON, 0, len(all))}
	for _, e := range all {
		res.Errors = append(res.Errors, rowErrorJSON{Index: e.Index, ProcurementID: e.ID, Error: e.Err.Error()})
	}
	if len(all) > 0 {
		h.log.Warn("batch update had failures", zap.Int("updated", res.Updated), zap.Int("failed", len(all)))
	}
	writeJSON(w, http.StatusOK, res)
}

// Reingest replaces the stored table from the source file.
func (h *Handler) Reingest(w http.ResponseWriter, r *http.Request) {
	if h.ingest == nil {
		http.Error(w, "Ingestion is not configured", http.StatusNotImplemented)
		return
	}
	res, err := h.ingest(r.Context())
	if err != nil {
		h.writeError(w, r, fmt.Errorf("reingest: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, IngestResult{Rows: res.Rows, Skipped: res.Skipped, DurationMS: res.Duration.Milliseconds()})
}
