package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jszwec/csvutil"

	"leadscout/pkg/logger"
)

// CSVExporter appends rows to a dated file leads_YYYYMMDD.csv in Dir. The
// header is written only when the file is new.
type CSVExporter struct {
	Dir string
	now func() time.Time
	log *logger.Logger
}

func NewCSVExporter(dir string) *CSVExporter {
	return &CSVExporter{
		Dir: dir,
		now: time.Now,
		log: logger.GetLogger().WithField("component", "csv_exporter"),
	}
}

// Path returns the file the exporter writes to today
func (e *CSVExporter) Path() string {
	return filepath.Join(e.Dir, fmt.Sprintf("leads_%s.csv", e.now().Format("20060102")))
}

func (e *CSVExporter) Export(ctx context.Context, rows []ExportRow) (string, error) {
	if len(rows) == 0 {
		return NoData, nil
	}
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	path := e.Path()
	info, statErr := os.Stat(path)
	isNew := statErr != nil || info.Size() == 0

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	enc := csvutil.NewEncoder(w)
	enc.AutoHeader = isNew
	if err := enc.Encode(rows); err != nil {
		return "", fmt.Errorf("encode rows: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	e.log.WithFields(map[string]interface{}{"rows": len(rows), "path": path}).Info(fmt.Sprintf("Exported %d rows to %s", len(rows), path))
	return "CSV file: " + path, nil
}
