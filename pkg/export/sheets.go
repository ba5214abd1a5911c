package export

import (
	"context"
	"fmt"
	"os"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"leadscout/pkg/logger"
)

// SheetsConfig locates the service-account key and the target spreadsheet
type SheetsConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	SheetName       string `mapstructure:"sheet_name"`
}

// spreadsheetAPI is the slice of the Drive and Sheets APIs the exporter needs
type spreadsheetAPI interface {
	// FindOrCreate returns the id of the spreadsheet titled name, creating it if absent
	FindOrCreate(ctx context.Context, name string) (id string, created bool, err error)
	FirstSheetTitle(ctx context.Context, id string) (string, error)
	IsEmpty(ctx context.Context, id, sheet string) (bool, error)
	Append(ctx context.Context, id, sheet string, rows [][]interface{}) error
}

// SheetsExporter appends rows to the first worksheet of a named spreadsheet,
// writing the header first when the worksheet is empty
type SheetsExporter struct {
	cfg SheetsConfig
	api spreadsheetAPI
	log *logger.Logger
}

// NewSheetsExporter authenticates with the service-account key file. A
// missing file yields ErrNotConfigured.
func NewSheetsExporter(ctx context.Context, cfg SheetsConfig) (*SheetsExporter, error) {
	if cfg.CredentialsFile == "" {
		return nil, fmt.Errorf("%w: no Google Sheets credentials file set", ErrNotConfigured)
	}
	if _, err := os.Stat(cfg.CredentialsFile); err != nil {
		return nil, fmt.Errorf("%w: Google Sheets credentials file not found at %s", ErrNotConfigured, cfg.CredentialsFile)
	}
	if cfg.SheetName == "" {
		cfg.SheetName = "YouTube Leads"
	}

	opts := []option.ClientOption{
		option.WithCredentialsFile(cfg.CredentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope, drive.DriveScope),
	}
	sheetsSvc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	driveSvc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("drive client: %w", err)
	}

	return newSheetsExporter(cfg, &googleSpreadsheets{sheets: sheetsSvc, drive: driveSvc}), nil
}

func newSheetsExporter(cfg SheetsConfig, api spreadsheetAPI) *SheetsExporter {
	return &SheetsExporter{
		cfg: cfg,
		api: api,
		log: logger.GetLogger().WithField("component", "sheets_exporter"),
	}
}

func (e *SheetsExporter) Export(ctx context.Context, rows []ExportRow) (string, error) {
	if len(rows) == 0 {
		return NoData, nil
	}
	name := e.cfg.SheetName

	id, created, err := e.api.FindOrCreate(ctx, name)
	if err != nil {
		return "", fmt.Errorf("open spreadsheet %q: %w", name, err)
	}
	if created {
		e.log.WithField("sheet", name).Info("Created new Google Sheet: " + name)
	}

	sheet, err := e.api.FirstSheetTitle(ctx, id)
	if err != nil {
		return "", fmt.Errorf("read spreadsheet %q: %w", name, err)
	}
	empty, err := e.api.IsEmpty(ctx, id, sheet)
	if err != nil {
		return "", fmt.Errorf("read spreadsheet %q: %w", name, err)
	}

	values := make([][]interface{}, 0, len(rows)+1)
	if empty {
		values = append(values, toCells(Columns()))
	}
	for _, r := range rows {
		values = append(values, toCells(r.Values()))
	}
	if err := e.api.Append(ctx, id, sheet, values); err != nil {
		return "", fmt.Errorf("append to spreadsheet %q: %w", name, err)
	}

	e.log.WithFields(map[string]interface{}{"rows": len(rows), "sheet": name}).
		Info(fmt.Sprintf("Exported %d rows to Google Sheet '%s'", len(rows), name))
	return fmt.Sprintf("Google Sheet '%s'", name), nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

const spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

type googleSpreadsheets struct {
	sheets *sheets.Service
	drive  *drive.Service
}

func (g *googleSpreadsheets) FindOrCreate(ctx context.Context, name string) (string, bool, error) {
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		strings.ReplaceAll(name, "'", `\'`), spreadsheetMimeType)
	list, err := g.drive.Files.List().Q(q).Fields("files(id, name)").PageSize(1).Context(ctx).Do()
	if err != nil {
		return "", false, err
	}
	if len(list.Files) > 0 {
		return list.Files[0].Id, false, nil
	}

	ss, err := g.sheets.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{Title: name},
	}).Context(ctx).Do()
	if err != nil {
		return "", false, err
	}
	return ss.SpreadsheetId, true, nil
}

func (g *googleSpreadsheets) FirstSheetTitle(ctx context.Context, id string) (string, error) {
	ss, err := g.sheets.Spreadsheets.Get(id).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if len(ss.Sheets) == 0 || ss.Sheets[0].Properties == nil {
		return "", fmt.Errorf("spreadsheet %s has no worksheets", id)
	}
	return ss.Sheets[0].Properties.Title, nil
}

func (g *googleSpreadsheets) IsEmpty(ctx context.Context, id, sheet string) (bool, error) {
	resp, err := g.sheets.Spreadsheets.Values.Get(id, quoteRange(sheet, "A1:A1")).Context(ctx).Do()
	if err != nil {
		return false, err
	}
	return len(resp.Values) == 0, nil
}

func (g *googleSpreadsheets) Append(ctx context.Context, id, sheet string, rows [][]interface{}) error {
	_, err := g.sheets.Spreadsheets.Values.Append(id, quoteRange(sheet, "A1"), &sheets.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

func quoteRange(sheet, cells string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'!" + cells
}
