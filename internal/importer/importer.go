// Package importer drives detection, extraction, validation, and persistence
// of processor residual files.
package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/residuals-cli/internal/model"
	"github.com/sells-group/residuals-cli/internal/reader"
	"github.com/sells-group/residuals-cli/internal/schema"
	"github.com/sells-group/residuals-cli/internal/store"
	"github.com/sells-group/residuals-cli/internal/validate"
)

// Importer imports residual files into the store.
type Importer struct {
	store     store.Store
	registry  *schema.Registry
	detector  *schema.Detector
	extractor *schema.Extractor
	validator *validate.Validator
}

// New creates an Importer.
func New(st store.Store, reg *schema.Registry, det *schema.Detector, val *validate.Validator) *Importer {
	return &Importer{
		store:     st,
		registry:  reg,
		detector:  det,
		extractor: schema.NewExtractor(),
		validator: val,
	}
}

// Options controls a single-file import.
type Options struct {
	// Processor is an explicit processor name. When set it wins over
	// format detection.
	Processor string
	// Month is the statement month (YYYY-MM). Required.
	Month string
}

// FileSpec is one file of a multi-file import.
type FileSpec struct {
	Path      string `json:"path"`
	Processor string `json:"processor,omitempty"`
	Month     string `json:"month"`
}

// ImportFile imports one residual file. File-level failures (unreadable
// file, undetectable processor, bad month) return an error with nothing
// persisted. Row-level failures are accumulated in the result and never
// abort the file.
func (i *Importer) ImportFile(ctx context.Context, path string, opts Options) (*model.ImportResult, error) {
	if !model.ValidMonth(opts.Month) {
		return nil, eris.Errorf("importer: invalid month %q (want YYYY-MM)", opts.Month)
	}

	rows, err := reader.ReadFile(path)
	if err != nil {
		return nil, err
	}

	s, confidence, err := i.resolveSchema(rows.Header, path, opts.Processor)
	if err != nil {
		return nil, err
	}

	log := zap.L().With(
		zap.String("file", filepath.Base(path)),
		zap.String("processor", s.Name),
		zap.String("month", opts.Month),
	)
	log.Info("importer: processor resolved", zap.Float64("confidence", confidence))

	result := &model.ImportResult{Processor: s.Name, Month: opts.Month}

	// Dedup by MID, last row wins: the upsert key would collapse them
	// anyway, and a bulk write must not carry the same key twice.
	byMID := make(map[string]model.RevenueRecord)
	var order []string

	for n, row := range rows.Data {
		rec := i.extractor.Extract(rows.Header, row, s)
		rec.Month = opts.Month

		if rec.MID == "" && rec.Name == "" {
			if !emptyRow(row) {
				result.RowErrors = append(result.RowErrors,
					fmt.Sprintf("row %d: no merchant identity", n+2))
			}
			continue
		}

		issues := i.validator.Validate(rec, s)
		result.Issues = append(result.Issues, issues...)
		if model.HasCritical(issues) {
			result.RowErrors = append(result.RowErrors,
				fmt.Sprintf("row %d: rejected (%s)", n+2, rec.Name))
			continue
		}

		// A named row without a MID keeps its INVALID_MID issue but cannot
		// be persisted: merchants are keyed by MID.
		if rec.MID == "" {
			result.RowErrors = append(result.RowErrors,
				fmt.Sprintf("row %d: no merchant id (%s)", n+2, rec.Name))
			continue
		}

		if _, seen := byMID[rec.MID]; !seen {
			order = append(order, rec.MID)
		}
		byMID[rec.MID] = rec
	}

	proc, err := i.store.FindOrCreateProcessor(ctx, s.Name)
	if err != nil {
		return nil, err
	}

	entries := make([]model.RevenueEntry, 0, len(byMID))
	for _, mid := range order {
		rec := byMID[mid]
		merchant, err := i.store.FindOrCreateMerchant(ctx, rec.MID, rec.Name)
		if err != nil {
			return nil, err
		}
		entries = append(entries, model.RevenueEntry{
			Month:        opts.Month,
			MerchantID:   merchant.ID,
			MID:          merchant.MID,
			MerchantName: rec.Name,
			ProcessorID:  proc.ID,
			Revenue:      rec.Revenue,
			Volume:       rec.Volume,
			Transactions: rec.Transactions,
		})
	}

	n, err := i.store.UpsertRevenue(ctx, entries)
	if err != nil {
		return nil, err
	}
	result.RecordsImported = n

	if err := i.store.UpsertProgress(ctx, model.ImportProgress{
		Month:       opts.Month,
		ProcessorID: proc.ID,
		RecordCount: n,
		Status:      model.ProgressValidated,
	}); err != nil {
		return nil, err
	}

	log.Info("importer: file imported",
		zap.Int("records", n),
		zap.Int("issues", len(result.Issues)),
		zap.Int("row_errors", len(result.RowErrors)),
	)
	return result, nil
}

// ImportBatch imports multiple files with bounded concurrency. Files touch
// disjoint (month, merchant, processor) partitions in the common case, and
// the upsert is the sole mutation primitive when they do not, so per-file
// goroutines need no coordination beyond the result lock. A failed file is
// reported in its slot without affecting siblings.
func (i *Importer) ImportBatch(ctx context.Context, specs []FileSpec, concurrency int) (*model.BatchImportResult, error) {
	if concurrency <= 0 {
		concurrency = 1
	}

	batch := &model.BatchImportResult{
		Results: make([]model.FileImportResult, len(specs)),
	}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for n, spec := range specs {
		g.Go(func() error {
			res, err := i.ImportFile(gctx, spec.Path, Options{
				Processor: spec.Processor,
				Month:     spec.Month,
			})

			mu.Lock()
			defer mu.Unlock()
			batch.Results[n].File = spec.Path
			if err != nil {
				batch.Results[n].Error = err.Error()
				zap.L().Error("importer: file rejected",
					zap.String("file", spec.Path),
					zap.Error(err),
				)
				return nil // don't abort the batch on a single file
			}
			batch.Results[n].Result = res
			batch.TotalImported += res.RecordsImported
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "importer: batch")
	}
	return batch, nil
}

// ImportDir imports every CSV/XLSX file in a directory for one month.
func (i *Importer) ImportDir(ctx context.Context, dir, month string, concurrency int) (*model.BatchImportResult, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "importer: read dir %s", dir)
	}

	var specs []FileSpec
	for _, de := range dirents {
		if de.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(de.Name())) {
		case ".csv", ".xlsx":
			specs = append(specs, FileSpec{Path: filepath.Join(dir, de.Name()), Month: month})
		}
	}
	sort.Slice(specs, func(a, b int) bool { return specs[a].Path < specs[b].Path })

	if len(specs) == 0 {
		return nil, eris.Errorf("importer: no residual files in %s", dir)
	}
	return i.ImportBatch(ctx, specs, concurrency)
}

// resolveSchema returns the schema for an explicit hint, or detects one from
// the header row and filename.
func (i *Importer) resolveSchema(header []string, path, hint string) (*schema.ProcessorSchema, float64, error) {
	if hint != "" {
		s, err := i.registry.Get(hint)
		if err != nil {
			return nil, 0, err
		}
		return s, 1.0, nil
	}
	name, confidence, err := i.detector.Detect(header, filepath.Base(path))
	if err != nil {
		return nil, 0, err
	}
	s, err := i.registry.Get(name)
	if err != nil {
		return nil, 0, err
	}
	return s, confidence, nil
}

func emptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
