package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robfig/cron/v3"

	"diary/internal/amqp"
	"diary/internal/export"
)

type fakeGrids struct {
	years []int
	err   error
}

func (f *fakeGrids) YearGrid(_ context.Context, year int) (export.YearGrid, error) {
	f.years = append(f.years, year)
	return export.YearGrid{Year: year}, f.err
}

type fakePublisher struct {
	published []int
	err       error
}

func (f *fakePublisher) PublishYearGrid(_ context.Context, g export.YearGrid) error {
	f.published = append(f.published, g.Year)
	return f.err
}

func TestHandleEntryChanged(t *testing.T) {
	tests := []struct {
		name      string
		date      string
		gridErr   error
		pubErr    error
		wantErr   bool
		wantYears []int
		permanent bool
	}{
		{name: "publishes entry year", date: "2025-12-31", wantYears: []int{2025}},
		{name: "bad date rejected", date: "soon", wantErr: true, permanent: true},
		{name: "grid failure", date: "2026-01-01", gridErr: errors.New("db locked"), wantErr: true},
		{name: "publish failure", date: "2026-01-01", pubErr: errors.New("quota"), wantErr: true, wantYears: []int{2026}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grids := &fakeGrids{err: tt.gridErr}
			pub := &fakePublisher{err: tt.pubErr}
			w := NewSyncWorker(grids, pub)

			msg := amqp.NewEntryChangedMessage("e1", amqp.ActionCreated, tt.date)
			err := w.HandleEntryChanged(context.Background(), msg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("HandleEntryChanged() error = %v, wantErr %v", err, tt.wantErr)
			}
			if permanent := errors.Is(err, amqp.ErrPermanent); permanent != tt.permanent {
				t.Fatalf("permanent = %v, want %v (err %v)", permanent, tt.permanent, err)
			}
			if len(pub.published) != len(tt.wantYears) {
				t.Fatalf("published %v, want %v", pub.published, tt.wantYears)
			}
			for i, y := range tt.wantYears {
				if pub.published[i] != y {
					t.Errorf("published[%d] = %d, want %d", i, pub.published[i], y)
				}
			}
		})
	}
}

func TestRepublishCurrentYear(t *testing.T) {
	pub := &fakePublisher{}
	w := NewSyncWorker(&fakeGrids{}, pub)
	// 23:30 UTC on New Year's Eve is already next year in Tokyo
	w.now = func() time.Time { return time.Date(2025, 12, 31, 23, 30, 0, 0, time.UTC) }

	tokyo := time.FixedZone("JST", 9*3600)
	if err := w.RepublishCurrentYear(context.Background(), tokyo); err != nil {
		t.Fatalf("RepublishCurrentYear: %v", err)
	}
	if err := w.RepublishCurrentYear(context.Background(), time.UTC); err != nil {
		t.Fatalf("RepublishCurrentYear: %v", err)
	}
	if len(pub.published) != 2 || pub.published[0] != 2026 || pub.published[1] != 2025 {
		t.Fatalf("published %v", pub.published)
	}
}

func TestRepublishWithoutPublisher(t *testing.T) {
	w := NewSyncWorker(&fakeGrids{}, nil)
	if err := w.RepublishYear(context.Background(), 2026); err == nil {
		t.Fatal("expected error without publisher")
	}
}

func TestDailySpec(t *testing.T) {
	spec := DailySpec(3, 5)
	if spec != "0 5 3 * * *" {
		t.Fatalf("DailySpec = %q", spec)
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(spec)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	from := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	if next := sched.Next(from); !next.Equal(time.Date(2026, 3, 16, 3, 5, 0, 0, time.UTC)) {
		t.Fatalf("next run = %v", next)
	}
}

func TestStartScheduleAndStop(t *testing.T) {
	w := NewSyncWorker(&fakeGrids{}, &fakePublisher{})
	if err := w.StartSchedule(context.Background(), 25, 0, time.UTC); err == nil {
		t.Fatal("expected error for invalid hour")
	}
	if err := w.StartSchedule(context.Background(), 3, 0, time.UTC); err != nil {
		t.Fatalf("StartSchedule: %v", err)
	}
	if err := w.StartSchedule(context.Background(), 4, 0, time.UTC); err == nil {
		t.Fatal("second schedule should be rejected")
	}
	w.Stop()
	w.Stop()
}
