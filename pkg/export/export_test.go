package export

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadscout/pkg/model"
)

var runTime = time.Date(2024, 6, 1, 3, 4, 5, 0, time.Local)

func sampleRow(id string, score float64) ExportRow {
	ch := &model.ChannelSnapshot{
		ID:              id,
		Name:            "Channel " + id,
		URL:             "https://www.youtube.com/channel/" + id,
		SubscriberCount: 120_000,
		Country:         "US",
		DefaultLanguage: "en",
	}
	an := model.EmptyAnalysis()
	an.LongformCount = 30
	an.EngagementRate = 2.5
	return BuildRow(ch, an, score, "film essay", runTime)
}

func TestColumns_FixedOrder(t *testing.T) {
	want := []string{
		"timestamp", "channel_id", "channel_name", "channel_url", "subscriber_count",
		"total_view_count", "total_video_count", "shorts_count", "longform_count",
		"last_upload_date", "upload_frequency", "avg_views", "avg_duration_seconds",
		"engagement_rate", "priority_score", "primary_niche", "country", "language",
		"contact_email", "contact_available", "top_video_1_title", "top_video_1_url",
		"top_video_2_title", "top_video_2_url", "top_video_3_title", "top_video_3_url",
		"status",
	}
	assert.Equal(t, want, Columns())
	assert.Len(t, sampleRow("UC1", 5).Values(), len(want))
}

func TestBuildRow_ContactFallbackAndTopVideos(t *testing.T) {
	ch := &model.ChannelSnapshot{ID: "UC1", Name: "One"}
	an := model.EmptyAnalysis()
	an.DescriptionEmails = []string{"a@b.co", "z@y.io"}
	an.TopVideos = []model.TopVideo{{Title: "Best", URL: "u1", Views: 10}, {Title: "Second", URL: "u2", Views: 5}}

	row := BuildRow(ch, an, 6.2, "cooking", runTime)
	assert.Equal(t, "a@b.co", row.ContactEmail)
	assert.Equal(t, "yes", row.ContactAvailable)
	assert.Equal(t, "Best", row.TopVideo1Title)
	assert.Equal(t, "u2", row.TopVideo2URL)
	assert.Empty(t, row.TopVideo3Title)
	assert.Equal(t, model.StatusNew, row.Status)
	assert.Equal(t, "2024-06-01 03:04:05", row.Timestamp)

	ch.ContactEmail = "owner@chan.tv"
	row = BuildRow(ch, an, 6.2, "cooking", runTime)
	assert.Equal(t, "owner@chan.tv", row.ContactEmail)

	row = BuildRow(&model.ChannelSnapshot{ID: "UC2"}, model.EmptyAnalysis(), 1, "x", runTime)
	assert.Equal(t, "no", row.ContactAvailable)
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestCSVExporter_HeaderOnlyOnNewFile(t *testing.T) {
	dir := t.TempDir()
	e := NewCSVExporter(dir)
	e.now = func() time.Time { return runTime }

	dest, err := e.Export(context.Background(), []ExportRow{sampleRow("UC1", 7.5)})
	require.NoError(t, err)
	path := filepath.Join(dir, "leads_20240601.csv")
	assert.Equal(t, "CSV file: "+path, dest)

	_, err = e.Export(context.Background(), []ExportRow{sampleRow("UC2", 6), sampleRow("UC3", 5)})
	require.NoError(t, err)

	records := readCSV(t, path)
	require.Len(t, records, 4)
	assert.Equal(t, Columns(), records[0])
	assert.Equal(t, "UC1", records[1][1])
	assert.Equal(t, "UC3", records[3][1])
	assert.Equal(t, "7.5", records[1][14])
}

func TestCSVExporter_EmptyBatchWritesNothing(t *testing.T) {
	dir := t.TempDir()
	dest, err := NewCSVExporter(dir).Export(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, NoData, dest)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

type stubExporter struct {
	dest  string
	err   error
	calls int
}

func (s *stubExporter) Export(ctx context.Context, rows []ExportRow) (string, error) {
	s.calls++
	return s.dest, s.err
}

func TestFallbackExporter(t *testing.T) {
	rows := []ExportRow{sampleRow("UC1", 5)}

	t.Run("primary succeeds", func(t *testing.T) {
		p, f := &stubExporter{dest: "Google Sheet 'x'"}, &stubExporter{dest: "CSV file: y"}
		dest, err := NewFallbackExporter(p, f).Export(context.Background(), rows)
		require.NoError(t, err)
		assert.Equal(t, "Google Sheet 'x'", dest)
		assert.Equal(t, 0, f.calls)
	})

	t.Run("primary fails", func(t *testing.T) {
		p, f := &stubExporter{err: errors.New("503")}, &stubExporter{dest: "CSV file: y"}
		dest, err := NewFallbackExporter(p, f).Export(context.Background(), rows)
		require.NoError(t, err)
		assert.Equal(t, "CSV file: y", dest)
	})

	t.Run("no primary", func(t *testing.T) {
		f := &stubExporter{dest: "CSV file: y"}
		dest, err := NewFallbackExporter(nil, f).Export(context.Background(), rows)
		require.NoError(t, err)
		assert.Equal(t, "CSV file: y", dest)
	})

	t.Run("empty batch", func(t *testing.T) {
		p, f := &stubExporter{}, &stubExporter{}
		dest, err := NewFallbackExporter(p, f).Export(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, NoData, dest)
		assert.Zero(t, p.calls+f.calls)
	})
}

type fakeSpreadsheets struct {
	existing bool
	empty    bool
	appended [][]interface{}
	err      error
}

func (f *fakeSpreadsheets) FindOrCreate(ctx context.Context, name string) (string, bool, error) {
	return "sheet-id", !f.existing, f.err
}

func (f *fakeSpreadsheets) FirstSheetTitle(ctx context.Context, id string) (string, error) {
	return "Sheet1", nil
}

func (f *fakeSpreadsheets) IsEmpty(ctx context.Context, id, sheet string) (bool, error) {
	return f.empty, nil
}

func (f *fakeSpreadsheets) Append(ctx context.Context, id, sheet string, rows [][]interface{}) error {
	f.appended = append(f.appended, rows...)
	return nil
}

func TestSheetsExporter_WritesHeaderOnEmptySheet(t *testing.T) {
	api := &fakeSpreadsheets{empty: true}
	e := newSheetsExporter(SheetsConfig{SheetName: "YouTube Leads"}, api)

	dest, err := e.Export(context.Background(), []ExportRow{sampleRow("UC1", 5)})
	require.NoError(t, err)
	assert.Equal(t, "Google Sheet 'YouTube Leads'", dest)
	require.Len(t, api.appended, 2)
	assert.Equal(t, "timestamp", api.appended[0][0])
	assert.Equal(t, "UC1", api.appended[1][1])
}

func TestSheetsExporter_AppendsWithoutHeader(t *testing.T) {
	api := &fakeSpreadsheets{existing: true}
	e := newSheetsExporter(SheetsConfig{SheetName: "Leads"}, api)

	_, err := e.Export(context.Background(), []ExportRow{sampleRow("UC1", 5), sampleRow("UC2", 4)})
	require.NoError(t, err)
	assert.Len(t, api.appended, 2)
}

func TestSheetsExporter_ErrorsPropagate(t *testing.T) {
	e := newSheetsExporter(SheetsConfig{SheetName: "Leads"}, &fakeSpreadsheets{err: errors.New("forbidden")})
	_, err := e.Export(context.Background(), []ExportRow{sampleRow("UC1", 5)})
	assert.Error(t, err)
}

func TestNewSheetsExporter_MissingCredentials(t *testing.T) {
	_, err := NewSheetsExporter(context.Background(), SheetsConfig{CredentialsFile: filepath.Join(t.TempDir(), "none.json")})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewSheetsExporter(context.Background(), SheetsConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestQuoteRange(t *testing.T) {
	assert.Equal(t, "'Sheet1'!A1", quoteRange("Sheet1", "A1"))
	assert.Equal(t, "'Bob''s'!A1:A1", quoteRange("Bob's", "A1:A1"))
}
