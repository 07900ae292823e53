// Package sheets declares the outbound port of the spreadsheet mirror.
package sheets

import (
	"context"

	"diary/internal/export"
)

// Ports for outbound adapters.
type (
	// GridPublisher replaces the mirrored copy of a year grid.
	GridPublisher interface {
		PublishYearGrid(ctx context.Context, g export.YearGrid) error
	}
)
