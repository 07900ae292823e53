package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"diary/internal/amqp"
	"diary/internal/export"
	dlog "diary/internal/log"
	"diary/internal/sheets"
)

// publishTimeout bounds one scheduled republish.
const publishTimeout = 2 * time.Minute

// GridSource builds the year grid from the current store contents.
type GridSource interface {
	YearGrid(ctx context.Context, year int) (export.YearGrid, error)
}

// SyncWorker mirrors year grids to a spreadsheet, on entry change events and
// on a daily schedule.
type SyncWorker struct {
	grids     GridSource
	publisher sheets.GridPublisher
	now       func() time.Time

	mu   sync.Mutex // one publish at a time
	cron *cron.Cron
}

func NewSyncWorker(grids GridSource, publisher sheets.GridPublisher) *SyncWorker {
	return &SyncWorker{
		grids:     grids,
		publisher: publisher,
		now:       time.Now,
	}
}

// HandleEntryChanged rebuilds and republishes the grid of the message's year.
// A message without a usable date is rejected so the consumer drops it.
func (w *SyncWorker) HandleEntryChanged(ctx context.Context, msg *amqp.EntryChangedMessage) error {
	year := msg.Year()
	if year == 0 {
		return fmt.Errorf("entry %s: unusable entry date %q: %w", msg.ID, msg.EntryDate, amqp.ErrPermanent)
	}

	slog.InfoContext(ctx, "Processing entry change",
		dlog.FieldComponent, dlog.ComponentWorker,
		dlog.FieldEntryID, msg.ID,
		dlog.FieldAction, string(msg.Action),
		dlog.FieldYear, year)

	return w.RepublishYear(ctx, year)
}

// RepublishYear rebuilds the grid of year and replaces its mirrored copy.
func (w *SyncWorker) RepublishYear(ctx context.Context, year int) error {
	if w.publisher == nil {
		return errors.New("no grid publisher configured")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	start := w.now()
	g, err := w.grids.YearGrid(ctx, year)
	if err != nil {
		return fmt.Errorf("build year grid %d: %w", year, err)
	}
	if err := w.publisher.PublishYearGrid(ctx, g); err != nil {
		slog.ErrorContext(ctx, "Failed to publish year grid",
			dlog.FieldComponent, dlog.ComponentWorker,
			dlog.FieldOperation, dlog.OpSync,
			dlog.FieldYear, year,
			dlog.FieldError, err)
		return fmt.Errorf("publish year grid %d: %w", year, err)
	}

	slog.InfoContext(ctx, "Year grid synced",
		dlog.FieldComponent, dlog.ComponentWorker,
		dlog.FieldOperation, dlog.OpSync,
		dlog.FieldYear, year,
		dlog.FieldDuration, w.now().Sub(start).Milliseconds())
	return nil
}

// RepublishCurrentYear republishes the grid of the current year in loc.
func (w *SyncWorker) RepublishCurrentYear(ctx context.Context, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	return w.RepublishYear(ctx, w.now().In(loc).Year())
}

// StartSchedule republishes the current year every day at hour:minute in loc.
// The schedule runs until Stop is called.
func (w *SyncWorker) StartSchedule(ctx context.Context, hour, minute int, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return fmt.Errorf("invalid schedule %02d:%02d", hour, minute)
	}

	c := cron.New(cron.WithLocation(loc), cron.WithSeconds())
	spec := DailySpec(hour, minute)
	if _, err := c.AddFunc(spec, func() {
		jobCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		if err := w.RepublishCurrentYear(jobCtx, loc); err != nil {
			slog.ErrorContext(jobCtx, "Scheduled republish failed",
				dlog.FieldComponent, dlog.ComponentWorker,
				dlog.FieldError, err)
		}
	}); err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}

	w.mu.Lock()
	if w.cron != nil {
		w.mu.Unlock()
		return errors.New("schedule already started")
	}
	w.cron = c
	w.mu.Unlock()

	c.Start()
	slog.InfoContext(ctx, "Daily republish scheduled",
		dlog.FieldComponent, dlog.ComponentWorker,
		"spec", spec,
		"location", loc.String())
	return nil
}

// Stop halts the schedule and waits for a running job to finish.
func (w *SyncWorker) Stop() {
	w.mu.Lock()
	c := w.cron
	w.cron = nil
	w.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
}

// DailySpec is the six-field cron spec firing once a day at hour:minute.
func DailySpec(hour, minute int) string {
	// cron format: second minute hour dom month dow
	return fmt.Sprintf("0 %d %d * * *", minute, hour)
}
