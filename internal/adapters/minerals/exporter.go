package minerals

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mineralcatalog/internal/blob"
	"mineralcatalog/internal/catalog"
	"mineralcatalog/internal/logging"
	"mineralcatalog/pkg/domain"
)

// ExportStatus describes the lifecycle stage of an export request.
type ExportStatus string

const (
	ExportStatusQueued    ExportStatus = "queued"
	ExportStatusRunning   ExportStatus = "running"
	ExportStatusSucceeded ExportStatus = "succeeded"
	ExportStatusFailed    ExportStatus = "failed"
)

// ExportFormat names an artifact encoding.
type ExportFormat string

const (
	FormatJSON ExportFormat = "json"
	FormatCSV  ExportFormat = "csv"
)

// ParseExportFormat normalises a requested format name.
func ParseExportFormat(s string) (ExportFormat, bool) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON:
		return FormatJSON, true
	case FormatCSV:
		return FormatCSV, true
	}
	return "", false
}

func (f ExportFormat) contentType() string {
	if f == FormatCSV {
		return "text/csv"
	}
	return "application/json"
}

// csvHeader is the column order of CSV exports.
var csvHeader = []string{"id", "name", "chemical_composition", "hardness", "origin", "color", "rarity"}

// ExportArtifact describes one stored export file.
type ExportArtifact struct {
	Key         string       `json:"key"`
	Format      ExportFormat `json:"format"`
	ContentType string       `json:"content_type"`
	SizeBytes   int64        `json:"size_bytes"`
	ETag        string       `json:"etag,omitempty"`
	URL         string       `json:"url,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// ExportRecord tracks an export request and its artifacts.
type ExportRecord struct {
	ID          string           `json:"id"`
	Formats     []ExportFormat   `json:"formats"`
	Status      ExportStatus     `json:"status"`
	Error       string           `json:"error,omitempty"`
	RecordCount int              `json:"record_count"`
	Artifacts   []ExportArtifact `json:"artifacts,omitempty"`
	RequestedBy string           `json:"requested_by,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// ExportInput is an enqueue request. No formats means JSON and CSV.
type ExportInput struct {
	Formats     []ExportFormat
	RequestedBy string
}

// ExportScheduler queues exports and exposes their status and artifacts.
type ExportScheduler interface {
	EnqueueExport(ctx context.Context, input ExportInput) (ExportRecord, error)
	GetExport(id string) (ExportRecord, bool)
	OpenArtifact(ctx context.Context, id string, format ExportFormat) (ExportArtifact, io.ReadCloser, error)
}

// Snapshotter supplies the collection an export is rendered from.
type Snapshotter interface {
	Snapshot(ctx context.Context) ([]domain.Mineral, error)
}

var (
	// ErrQueueFull is returned when the worker cannot accept another job.
	ErrQueueFull = errors.New("export queue full")
	// ErrExportNotFound is returned for unknown export ids.
	ErrExportNotFound = errors.New("export not found")
	// ErrArtifactNotReady is returned when the export has no artifact in the
	// requested format, either because it is still running or was not asked for.
	ErrArtifactNotReady = errors.New("export artifact not available")
)

// exportDocument is the JSON artifact body.
type exportDocument struct {
	Records     []domain.Mineral    `json:"records"`
	Stats       domain.MineralStats `json:"stats"`
	GeneratedAt time.Time           `json:"generated_at"`
}

// WorkerOption customises a Worker.
type WorkerOption func(*Worker)

// WithQueueSize sets the buffered queue capacity.
func WithQueueSize(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.queue = make(chan exportTask, n)
		}
	}
}

// WithWorkerLogger sets the logger for job transitions.
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// Worker renders catalog exports asynchronously and stores the artifacts in
// a blob store.
type Worker struct {
	source Snapshotter
	store  blob.Store
	logger *slog.Logger
	now    func() time.Time
	newID  func() string

	queue chan exportTask
	mu    sync.RWMutex
	jobs  map[string]*ExportRecord

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type exportTask struct {
	id string
}

// NewWorker constructs an export worker. Call Start to begin processing.
func NewWorker(source Snapshotter, store blob.Store, opts ...WorkerOption) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		source: source,
		store:  store,
		logger: logging.Nop(),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
		queue:  make(chan exportTask, 32),
		jobs:   make(map[string]*ExportRecord),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins processing export requests.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for the in-flight job, bounded by ctx.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case task := <-w.queue:
			w.process(task)
		}
	}
}

// EnqueueExport validates the formats and queues a job.
func (w *Worker) EnqueueExport(_ context.Context, input ExportInput) (ExportRecord, error) {
	formats := input.Formats
	if len(formats) == 0 {
		formats = []ExportFormat{FormatJSON, FormatCSV}
	}
	uniq := make([]ExportFormat, 0, len(formats))
	seen := make(map[ExportFormat]struct{}, len(formats))
	for _, f := range formats {
		if _, dup := seen[f]; dup {
			continue
		}
		if _, ok := ParseExportFormat(string(f)); !ok {
			return ExportRecord{}, &domain.ValidationError{Location: "body", Field: "formats", Message: fmt.Sprintf("unsupported export format %q", f)}
		}
		seen[f] = struct{}{}
		uniq = append(uniq, f)
	}

	now := w.now()
	record := &ExportRecord{
		ID:          w.newID(),
		Formats:     uniq,
		Status:      ExportStatusQueued,
		RequestedBy: strings.TrimSpace(input.RequestedBy),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case w.queue <- exportTask{id: record.ID}:
	default:
		return ExportRecord{}, ErrQueueFull
	}
	w.jobs[record.ID] = record
	w.logger.Info("export queued", "export_id", record.ID, "formats", uniq, "requested_by", record.RequestedBy)
	return record.copy(), nil
}

// GetExport returns a snapshot of the export record.
func (w *Worker) GetExport(id string) (ExportRecord, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	record, ok := w.jobs[id]
	if !ok {
		return ExportRecord{}, false
	}
	return record.copy(), true
}

// OpenArtifact streams a stored artifact of a finished export.
func (w *Worker) OpenArtifact(ctx context.Context, id string, format ExportFormat) (ExportArtifact, io.ReadCloser, error) {
	record, ok := w.GetExport(id)
	if !ok {
		return ExportArtifact{}, nil, ErrExportNotFound
	}
	for _, artifact := range record.Artifacts {
		if artifact.Format != format {
			continue
		}
		_, rc, err := w.store.Get(ctx, artifact.Key)
		if err != nil {
			return ExportArtifact{}, nil, fmt.Errorf("open artifact %s: %w", artifact.Key, err)
		}
		return artifact, rc, nil
	}
	return ExportArtifact{}, nil, ErrArtifactNotReady
}

func (w *Worker) process(task exportTask) {
	record, ok := w.GetExport(task.id)
	if !ok {
		return
	}
	w.updateStatus(task.id, ExportStatusRunning)

	minerals, err := w.source.Snapshot(w.ctx)
	if err != nil {
		w.fail(task.id, fmt.Sprintf("snapshot catalog: %v", err))
		return
	}

	artifacts := make([]ExportArtifact, 0, len(record.Formats))
	for _, format := range record.Formats {
		payload, err := render(format, minerals, w.now())
		if err != nil {
			w.fail(task.id, err.Error())
			return
		}
		artifact, err := w.storeArtifact(task.id, format, payload, len(minerals))
		if err != nil {
			w.fail(task.id, fmt.Sprintf("store artifact failed: %v", err))
			return
		}
		artifacts = append(artifacts, artifact)
	}
	w.complete(task.id, len(minerals), artifacts)
}

func (w *Worker) storeArtifact(id string, format ExportFormat, payload []byte, records int) (ExportArtifact, error) {
	key := ArtifactKey(id, format)
	info, err := w.store.Put(w.ctx, key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: format.contentType(),
		Metadata: map[string]string{
			"export-id": id,
			"format":    string(format),
			"records":   strconv.Itoa(records),
		},
	})
	if err != nil {
		return ExportArtifact{}, err
	}
	url := info.URL
	if signed, err := w.store.PresignURL(w.ctx, key, blob.SignedURLOptions{}); err == nil {
		url = signed
	} else if !errors.Is(err, blob.ErrUnsupported) {
		w.logger.Warn("presign export artifact", "key", key, "error", err)
	}
	size := info.Size
	if size == 0 {
		size = int64(len(payload))
	}
	return ExportArtifact{
		Key:         key,
		Format:      format,
		ContentType: format.contentType(),
		SizeBytes:   size,
		ETag:        info.ETag,
		URL:         url,
		CreatedAt:   w.now(),
	}, nil
}

// ArtifactKey is the blob key of an export artifact.
func ArtifactKey(id string, format ExportFormat) string {
	return "exports/" + id + "/minerals." + string(format)
}

func render(format ExportFormat, minerals []domain.Mineral, generatedAt time.Time) ([]byte, error) {
	switch format {
	case FormatJSON:
		doc := exportDocument{
			Records:     minerals,
			Stats:       catalog.ComputeStats(minerals),
			GeneratedAt: generatedAt,
		}
		if doc.Records == nil {
			doc.Records = []domain.Mineral{}
		}
		payload, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("marshal json: %w", err)
		}
		return payload, nil
	case FormatCSV:
		buf := &bytes.Buffer{}
		writer := csv.NewWriter(buf)
		if err := writer.Write(csvHeader); err != nil {
			return nil, err
		}
		for _, m := range minerals {
			row := []string{
				strconv.Itoa(m.ID),
				m.Name,
				m.ChemicalComposition,
				strconv.FormatFloat(m.Hardness, 'g', -1, 64),
				m.Origin,
				optional(m.Color),
				optional(m.Rarity),
			}
			if err := writer.Write(row); err != nil {
				return nil, err
			}
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			return nil, fmt.Errorf("write csv: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported export format %s", format)
	}
}

func optional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (w *Worker) updateStatus(id string, status ExportStatus) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if record, ok := w.jobs[id]; ok {
		record.Status = status
		record.UpdatedAt = w.now()
	}
	w.logger.Debug("export status changed", "export_id", id, "status", status)
}

func (w *Worker) complete(id string, records int, artifacts []ExportArtifact) {
	now := w.now()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = ExportStatusSucceeded
		record.Error = ""
		record.RecordCount = records
		record.Artifacts = artifacts
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	w.mu.Unlock()
	w.logger.Info("export succeeded", "export_id", id, "records", records, "artifacts", len(artifacts))
}

func (w *Worker) fail(id, reason string) {
	now := w.now()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = ExportStatusFailed
		record.Error = reason
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	w.mu.Unlock()
	w.logger.Error("export failed", "export_id", id, "error", reason)
}

func (r ExportRecord) copy() ExportRecord {
	dup := r
	dup.Formats = append([]ExportFormat(nil), r.Formats...)
	if len(r.Artifacts) > 0 {
		dup.Artifacts = append([]ExportArtifact(nil), r.Artifacts...)
	}
	if r.CompletedAt != nil {
		at := *r.CompletedAt
		dup.CompletedAt = &at
	}
	return dup
}
