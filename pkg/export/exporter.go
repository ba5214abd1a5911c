package export

import (
	"context"
	"errors"

	"leadscout/pkg/logger"
)

// NoData is the destination reported for an empty batch
const NoData = "No data to export"

// ErrNotConfigured means the sink lacks credentials or settings; callers fall back
var ErrNotConfigured = errors.New("export: sink not configured")

// Exporter writes a ranked batch and describes where it went
type Exporter interface {
	Export(ctx context.Context, rows []ExportRow) (string, error)
}

// FallbackExporter tries Primary and uses Fallback on any primary failure.
// A nil Primary goes straight to Fallback.
type FallbackExporter struct {
	Primary  Exporter
	Fallback Exporter
	log      *logger.Logger
}

func NewFallbackExporter(primary, fallback Exporter) *FallbackExporter {
	return &FallbackExporter{
		Primary:  primary,
		Fallback: fallback,
		log:      logger.GetLogger().WithField("component", "exporter"),
	}
}

func (e *FallbackExporter) Export(ctx context.Context, rows []ExportRow) (string, error) {
	if len(rows) == 0 {
		e.log.Info("No rows to export")
		return NoData, nil
	}

	if e.Primary != nil {
		dest, err := e.Primary.Export(ctx, rows)
		if err == nil {
			return dest, nil
		}
		if errors.Is(err, ErrNotConfigured) {
			e.log.WithError(err).Warn("Primary export not configured - falling back to CSV")
		} else {
			e.log.WithError(err).Error("Primary export failed - falling back to CSV")
		}
	}
	return e.Fallback.Export(ctx, rows)
}
