// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package batch applies the rules engine to a directory tree of archives:
// every archive folder carries the extractor's metadata file, optionally the
// recognized text and the scanned page images.
package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"archivist/internal/extraction"
	"archivist/internal/logging"
	"archivist/internal/metadata"
	"archivist/internal/observability"
	"archivist/internal/parallel"
	"archivist/internal/rules"
	"archivist/internal/textsource"

	"github.com/google/uuid"
)

// SummaryFile is the name of the run summary written to the output folder.
const SummaryFile = "batch_summary.json"

// ErrNoMetadata is returned for an archive folder without a metadata file.
var ErrNoMetadata = errors.New("archive has no metadata file")

// Status of one processed archive.
type Status string

const (
	StatusSuccess Status = "success"
	// StatusFailed means no usable metadata could be read.
	StatusFailed Status = "failed"
	// StatusError means processing broke down.
	StatusError Status = "error"
)

// Result is the outcome of one archive.
type Result struct {
	Index         int               `json:"index"`
	Name          string            `json:"archive_name"`
	SourceFolder  string            `json:"source_folder"`
	PageCount     int               `json:"page_count"`
	ImageNames    []string          `json:"image_names,omitempty"`
	TextSource    string            `json:"text_source,omitempty"`
	ParseMethod   extraction.Method `json:"parse_method,omitempty"`
	ProcessedTime time.Time         `json:"processed_time"`
	Duration      time.Duration     `json:"duration_ns"`
	Status        Status            `json:"status"`
	Metadata      metadata.Record   `json:"metadata"`
	Report        *rules.Report     `json:"report,omitempty"`
	Error         string            `json:"error,omitempty"`
}

// OK reports whether the archive was processed successfully.
func (r *Result) OK() bool {
	return r.Status == StatusSuccess
}

// Summary describes one batch run.
type Summary struct {
	RunID         string    `json:"run_id"`
	BatchTime     time.Time `json:"batch_time"`
	TotalArchives int       `json:"total_archives"`
	TotalPages    int       `json:"total_pages"`
	SuccessCount  int       `json:"success_count"`
	FailCount     int       `json:"fail_count"`
	Results       []*Result `json:"results"`
}

// Sink receives every result of a run, in archive order.
type Sink interface {
	Save(ctx context.Context, runID string, result *Result) error
}

// Processor runs archives through the rules engine.
type Processor struct {
	engine   *rules.Engine
	logger   logging.Logger
	observer *observability.StandardObserver
	metrics  *Metrics
	sink     Sink
	workers  int
	timeout  time.Duration
	now      func() time.Time
}

// Option configures a Processor.
type Option func(*Processor)

func WithLogger(l logging.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithObserver(o *observability.StandardObserver) Option {
	return func(p *Processor) { p.observer = o }
}

func WithMetrics(m *Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

// WithSink stores every result, for example in the catalog database.
func WithSink(s Sink) Option {
	return func(p *Processor) { p.sink = s }
}

// WithWorkers sets the worker count; zero picks one per CPU.
func WithWorkers(n int) Option {
	return func(p *Processor) { p.workers = n }
}

// WithTimeout bounds the time spent on a single archive.
func WithTimeout(d time.Duration) Option {
	return func(p *Processor) { p.timeout = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// NewProcessor creates a Processor around engine.
func NewProcessor(engine *rules.Engine, opts ...Option) *Processor {
	if engine == nil {
		engine = rules.New(nil)
	}
	p := &Processor{
		engine: engine,
		logger: logging.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetComponentName returns the component identifier
func (p *Processor) GetComponentName() string {
	return "batch_processor"
}

// ProcessArchive reads one archive, corrects its metadata and injects the
// file-level fields: 数字化时间 and 档案文件夹 before the rules run, 页数
// afterwards. The returned error is also recorded in the result.
func (p *Processor) ProcessArchive(ctx context.Context, a Archive) (*Result, error) {
	start := p.now()
	result := &Result{
		Name:          a.Name,
		SourceFolder:  a.Dir,
		PageCount:     len(a.Images),
		ProcessedTime: start,
	}
	for _, img := range a.Images {
		result.ImageNames = append(result.ImageNames, filepath.Base(img))
	}

	err := p.process(ctx, a, result)
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = err.Error()
		result.Status = StatusError
		if errors.Is(err, ErrNoMetadata) || errors.Is(err, extraction.ErrEmptyResponse) {
			result.Status = StatusFailed
		}
		return result, err
	}
	result.Status = StatusSuccess
	return result, nil
}

func (p *Processor) process(ctx context.Context, a Archive, result *Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if a.MetadataPath == "" {
		return ErrNoMetadata
	}

	data, err := os.ReadFile(filepath.Clean(a.MetadataPath))
	if err != nil {
		return fmt.Errorf("error reading metadata file: %w", err)
	}
	rec, method, err := extraction.Parse(string(data))
	if err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(a.MetadataPath), err)
	}
	result.ParseMethod = method
	if method != extraction.MethodStrict {
		p.logger.Warn("metadata file is not valid JSON, recovered leniently",
			logging.String("archive", a.Name),
			logging.String("method", string(method)))
	}

	var text string
	doc, err := textsource.ReadDir(a.Dir)
	if err != nil {
		p.logger.Warn("could not read archive text, applying rules to metadata only",
			logging.String("archive", a.Name),
			logging.Error(err))
	} else {
		text = doc.Text
		result.TextSource = filepath.Base(doc.Path)
		if result.PageCount == 0 {
			result.PageCount = p.documentPages(doc)
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	rec[metadata.FieldDigitizedTime] = DigitizedTime(a, p.now)
	rec[metadata.FieldArchiveFolder] = a.Name

	corrected, report := p.engine.Apply(rec, text)
	if result.PageCount > 0 {
		corrected[metadata.FieldPageCount] = result.PageCount
	} else if n, ok := corrected.Int(metadata.FieldPageCount); ok {
		result.PageCount = n
	}

	result.Metadata = corrected
	result.Report = report
	return nil
}

func (p *Processor) documentPages(doc *textsource.Document) int {
	if doc.Kind != textsource.KindPDF {
		return 0
	}
	n, err := textsource.PageCount(doc.Path)
	if err != nil {
		p.logger.Debug("pdf page count unavailable, using text layer count",
			logging.String("path", doc.Path),
			logging.Error(err))
		return doc.Pages
	}
	return n
}

// Run processes archives concurrently and, when outputDir is set, writes
// one result file per archive plus the run summary. Results keep the order
// of archives. Archive failures are reported in the summary; the error is
// only set for output or sink failures and cancellation.
func (p *Processor) Run(ctx context.Context, archives []Archive, outputDir string) (*Summary, error) {
	summary := &Summary{
		RunID:         uuid.NewString(),
		BatchTime:     p.now(),
		TotalArchives: len(archives),
		Results:       make([]*Result, 0, len(archives)),
	}
	logger := p.logger.With(logging.String("run_id", summary.RunID))

	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0750); err != nil {
			return nil, fmt.Errorf("error creating output directory: %w", err)
		}
	}

	var finishTiming func(bool, map[string]interface{})
	if p.observer != nil {
		finishTiming = p.observer.StartTiming(p.GetComponentName(), "run", outputDir)
	}

	dirs := make([]string, len(archives))
	for i, a := range archives {
		dirs[i] = a.Dir
	}
	pp := parallel.NewParallelProcessor[*Result](p.workers, p.timeout, p.observer)
	processed, stats := pp.Process(ctx, dirs, func(ctx context.Context, job parallel.Job) (*Result, error) {
		return p.ProcessArchive(ctx, archives[job.Index])
	}, nil)

	var errs []error
	for i, pr := range processed {
		result := pr.Value
		if result == nil {
			result = &Result{Name: archives[i].Name, SourceFolder: archives[i].Dir, Status: StatusError}
			if pr.Error != nil {
				result.Error = pr.Error.Error()
			}
		}
		result.Index = i + 1
		summary.Results = append(summary.Results, result)
		summary.TotalPages += result.PageCount

		if result.OK() {
			summary.SuccessCount++
			logger.Info("archive processed",
				logging.String("archive", result.Name),
				logging.Int("decisions", len(result.Report.Applied())),
				logging.Bool("period_locked", result.Report.PeriodLocked))
		} else {
			summary.FailCount++
			logger.Warn("archive not processed",
				logging.String("archive", result.Name),
				logging.String("status", string(result.Status)),
				logging.String("error", result.Error))
		}
		p.metrics.observe(result)

		if p.sink != nil {
			if err := p.sink.Save(ctx, summary.RunID, result); err != nil {
				logger.Error("failed to store result", logging.String("archive", result.Name), logging.Error(err))
				errs = append(errs, fmt.Errorf("store %s: %w", result.Name, err))
			}
		}
		if outputDir != "" {
			path := filepath.Join(outputDir, ResultFileName(result.Index, result.Name))
			if err := writeJSON(path, result); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if outputDir != "" {
		if err := writeJSON(filepath.Join(outputDir, SummaryFile), summary); err != nil {
			errs = append(errs, err)
		}
	}
	p.metrics.finish(p.now())

	if finishTiming != nil {
		finishTiming(summary.FailCount == 0, map[string]interface{}{
			"run_id":        summary.RunID,
			"archives":      summary.TotalArchives,
			"success_count": summary.SuccessCount,
			"fail_count":    summary.FailCount,
			"workers":       stats.WorkerCount,
		})
	}
	logger.Info("batch run finished",
		logging.Int("archives", summary.TotalArchives),
		logging.Int("success", summary.SuccessCount),
		logging.Int("failed", summary.FailCount),
		logging.Int("pages", summary.TotalPages),
		logging.Duration("elapsed", stats.TotalDuration))

	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return summary, errors.Join(errs...)
}

// ResultFileName names the per-archive result file, e.g.
// 0003_2021__会议纪要_result.json for the third archive 2021/会议纪要.
func ResultFileName(index int, name string) string {
	safe := strings.NewReplacer("/", "__", `\`, "__").Replace(name)
	return fmt.Sprintf("%04d_%s_result.json", index, safe)
}

func writeJSON(path string, v any) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("error creating %s: %w", filepath.Base(path), err)
	}
	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		_ = f.Close()
		return fmt.Errorf("error writing %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
