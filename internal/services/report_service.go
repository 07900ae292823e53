package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"diary/internal/core"
	"diary/internal/export"
	dlog "diary/internal/log"
	"diary/internal/store"
)

const (
	recentPerCategory = 3
	previewRunes      = 60
)

// MonthReport is everything the reports page shows for one month.
type MonthReport struct {
	Month      string
	Year       int
	Month0     int
	Stats      core.CategoryStats
	Recent     map[string][]core.EntryPreview
	Categories []core.Category
}

// ReportService reads snapshots from the stores and runs the report and
// export transforms over them.
type ReportService struct {
	taxonomy store.TaxonomyReader
	entries  store.EntryReader
}

func NewReportService(taxonomy store.TaxonomyReader, entries store.EntryReader) *ReportService {
	return &ReportService{taxonomy: taxonomy, entries: entries}
}

// MonthReport computes category statistics for month (YYYY-MM).
func (s *ReportService) MonthReport(ctx context.Context, month string) (MonthReport, error) {
	year, month0, err := core.ParseMonth(month)
	if err != nil {
		return MonthReport{}, err
	}

	categories, entries, err := s.snapshot(ctx, core.EntryFilter{Month: core.MonthKey(year, month0)})
	if err != nil {
		return MonthReport{}, fmt.Errorf("month report %s: %w", month, err)
	}

	return MonthReport{
		Month:      core.MonthKey(year, month0),
		Year:       year,
		Month0:     month0,
		Stats:      core.ComputeCategoryStats(entries, categories),
		Recent:     core.RecentByCategory(entries, recentPerCategory, previewRunes),
		Categories: categories,
	}, nil
}

// Export builds the workbook for opts. month (YYYY-MM) selects the window in
// event-log mode; opts.Year selects it in year mode.
func (s *ReportService) Export(ctx context.Context, opts export.Options, month string) (*excelize.File, string, error) {
	var filter core.EntryFilter
	switch opts.Mode {
	case export.ModeYearGrid:
		if opts.Year < 1 {
			return nil, "", fmt.Errorf("export year %d: %w", opts.Year, core.ErrInvalidDate)
		}
		filter.Year = opts.Year
	default:
		year, month0, err := core.ParseMonth(month)
		if err != nil {
			return nil, "", err
		}
		month = core.MonthKey(year, month0)
		filter.Month = month
	}

	start := time.Now()
	categories, entries, err := s.snapshot(ctx, filter)
	if err != nil {
		return nil, "", fmt.Errorf("export: %w", err)
	}
	f, err := export.ExportWorkbook(entries, categories, opts)
	if err != nil {
		return nil, "", fmt.Errorf("export: %w", err)
	}

	slog.InfoContext(ctx, "Workbook exported",
		dlog.FieldComponent, dlog.ComponentExport,
		dlog.FieldOperation, dlog.OpExport,
		"mode", string(opts.Mode),
		"entries", len(entries),
		dlog.FieldDuration, time.Since(start).Milliseconds())
	return f, export.FileName(opts, month), nil
}

// YearGrid builds the fixed-calendar grid of a whole year.
func (s *ReportService) YearGrid(ctx context.Context, year int) (export.YearGrid, error) {
	categories, entries, err := s.snapshot(ctx, core.EntryFilter{Year: year})
	if err != nil {
		return export.YearGrid{}, fmt.Errorf("year grid %d: %w", year, err)
	}
	return export.BuildYearGrid(year, entries, categories), nil
}

// snapshot loads all categories, inactive included, and the entries of a
// window in parallel.
func (s *ReportService) snapshot(ctx context.Context, f core.EntryFilter) ([]core.Category, []core.Entry, error) {
	var (
		categories []core.Category
		entries    []core.Entry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		categories, err = s.taxonomy.ListCategories(gctx, true)
		return err
	})
	g.Go(func() error {
		var err error
		entries, err = s.entries.ListEntries(gctx, f)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return categories, entries, nil
}
