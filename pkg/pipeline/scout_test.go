package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadscout/pkg/export"
	"leadscout/pkg/logger"
	"leadscout/pkg/model"
	"leadscout/pkg/quota"
	"leadscout/pkg/scoring"
	"leadscout/pkg/storage"
	"leadscout/pkg/youtube"
)

var clock = time.Date(2024, 6, 30, 3, 0, 0, 0, time.UTC)

// fakeClient serves canned data and charges the ledger like the real client
type fakeClient struct {
	ledger   *quota.Ledger
	searches map[string][]string
	channels map[string]*model.ChannelSnapshot
	videos   map[string][]model.VideoRecord // by uploads playlist id
	detail   map[string]error
	panics   map[string]bool

	detailCalls []string
}

func newFakeClient(ledger *quota.Ledger) *fakeClient {
	return &fakeClient{
		ledger:   ledger,
		searches: map[string][]string{},
		channels: map[string]*model.ChannelSnapshot{},
		videos:   map[string][]model.VideoRecord{},
		detail:   map[string]error{},
		panics:   map[string]bool{},
	}
}

func (f *fakeClient) Search(ctx context.Context, query string, maxResults int) youtube.IDPage {
	if !f.ledger.CanAfford(quota.OpSearch, 1) {
		return youtube.IDPage{IDs: []string{}, Stop: youtube.StopQuota}
	}
	f.ledger.Consume(quota.OpSearch, 1)
	ids := f.searches[query]
	if len(ids) > maxResults {
		ids = ids[:maxResults]
	}
	return youtube.IDPage{IDs: append([]string{}, ids...), Stop: youtube.StopEndOfData}
}

func (f *fakeClient) ChannelDetail(ctx context.Context, id string) (*model.ChannelSnapshot, error) {
	f.detailCalls = append(f.detailCalls, id)
	if f.panics[id] {
		panic("malformed channel payload")
	}
	if err := f.detail[id]; err != nil {
		return nil, err
	}
	f.ledger.Consume(quota.OpChannels, 1)
	ch, ok := f.channels[id]
	if !ok {
		return nil, nil
	}
	cp := *ch
	return &cp, nil
}

func (f *fakeClient) UploadVideoIDs(ctx context.Context, playlistID string, maxItems int) youtube.IDPage {
	f.ledger.Consume(quota.OpPlaylistItems, 1)
	vids := f.videos[playlistID]
	ids := make([]string, 0, len(vids))
	for _, v := range vids {
		ids = append(ids, v.ID)
	}
	if len(ids) > maxItems {
		ids = ids[:maxItems]
	}
	return youtube.IDPage{IDs: ids, Stop: youtube.StopEndOfData}
}

func (f *fakeClient) VideoDetails(ctx context.Context, ids []string) youtube.VideoPage {
	f.ledger.Consume(quota.OpVideos, 1)
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make([]model.VideoRecord, 0, len(ids))
	for _, list := range f.videos {
		for _, v := range list {
			if want[v.ID] {
				out = append(out, v)
			}
		}
	}
	return youtube.VideoPage{Videos: out, Stop: youtube.StopComplete}
}

// addChannel registers a channel with n long-form uploads, one per day
func (f *fakeClient) addChannel(id, country string, subs int64, n int, views int64) {
	f.channels[id] = &model.ChannelSnapshot{
		ID:                id,
		Name:              "Channel " + id,
		URL:               "https://www.youtube.com/channel/" + id,
		SubscriberCount:   subs,
		Country:           country,
		DefaultLanguage:   "en",
		UploadsPlaylistID: "UU" + id,
		Description:       "film essay and analysis",
	}
	vids := make([]model.VideoRecord, n)
	for i := range vids {
		vids[i] = model.VideoRecord{
			ID:              fmt.Sprintf("%s-v%d", id, i),
			Title:           fmt.Sprintf("Video %d", i),
			PublishedAt:     clock.Add(-time.Duration(i+1) * 24 * time.Hour).Format(time.RFC3339),
			DurationSeconds: 900,
			ViewCount:       views,
			LikeCount:       views / 25,
			CommentCount:    views / 100,
		}
	}
	f.videos["UU"+id] = vids
}

type recordingExporter struct {
	rows [][]export.ExportRow
	err  error
}

func (e *recordingExporter) Export(ctx context.Context, rows []export.ExportRow) (string, error) {
	e.rows = append(e.rows, rows)
	if e.err != nil {
		return "", e.err
	}
	if len(rows) == 0 {
		return export.NoData, nil
	}
	return "CSV file: test.csv", nil
}

type recordingNotifier struct {
	subject, body string
	err           error
}

func (n *recordingNotifier) Notify(ctx context.Context, subject, body string) error {
	n.subject, n.body = subject, body
	return n.err
}

type fixture struct {
	ledger   *quota.Ledger
	client   *fakeClient
	store    *storage.MemoryStore
	exporter *recordingExporter
	notifier *recordingNotifier
	cfg      Config
}

func newFixture(budget int) *fixture {
	ledger := quota.NewLedger(budget, 0, nil)
	cfg := DefaultConfig()
	cfg.Niches = []string{"film essay", "retro gaming"}
	return &fixture{
		ledger:   ledger,
		client:   newFakeClient(ledger),
		store:    storage.NewMemoryStore(func() time.Time { return clock }),
		exporter: &recordingExporter{},
		notifier: &recordingNotifier{},
		cfg:      cfg,
	}
}

func (f *fixture) scout(t *testing.T) *Scout {
	t.Helper()
	s, err := NewScoutBuilder().
		WithConfig(f.cfg).
		WithClient(f.client).
		WithLedger(f.ledger).
		WithStore(f.store).
		WithExporter(f.exporter).
		WithNotifier(f.notifier).
		WithClock(func() time.Time { return clock }).
		WithLogger(logger.Nop()).
		Build()
	require.NoError(t, err)
	return s
}

func TestScout_FullRun(t *testing.T) {
	f := newFixture(10_000)
	ctx := context.Background()
	require.NoError(t, f.store.Upsert(ctx, "UCknown", "Known", []byte(`{}`)))

	f.client.searches["film essay"] = []string{"UC1", "UC2", "UCknown"}
	f.client.searches["retro gaming"] = []string{"UC2", "UC3"}
	f.client.addChannel("UC1", "US", 60_000, 25, 3_000)
	f.client.addChannel("UC2", "DE", 60_000, 25, 3_000)
	f.client.addChannel("UC3", "GB", 150_000, 25, 20_000)

	scout := f.scout(t)
	res, err := scout.Run(ctx, nil)
	require.NoError(t, err)

	assert.Equal(t, RunStats{Searched: 5, DuplicatesSkipped: 2, NewCandidates: 3, Analyzed: 2, Qualified: 2}, res.Stats)
	assert.Equal(t, PhaseCompleted, res.SearchStop)
	assert.Equal(t, PhaseCompleted, res.AnalyzeStop)
	assert.Equal(t, "CSV file: test.csv", res.Destination)
	assert.NotEmpty(t, res.RunID)

	require.Len(t, res.Rows, 2)
	assert.Equal(t, "UC3", res.Rows[0].ChannelID, "rows sorted by score descending")
	assert.GreaterOrEqual(t, res.Rows[0].PriorityScore, res.Rows[1].PriorityScore)
	assert.Equal(t, "retro gaming", res.Rows[0].PrimaryNiche)
	// UC2 is fetched once; its rediscovery under the second niche is a duplicate
	assert.Equal(t, []string{"UC1", "UC2", "UC3"}, f.client.detailCalls)

	for _, id := range []string{"UC1", "UC3"} {
		ok, err := f.store.Contains(ctx, id)
		require.NoError(t, err)
		assert.True(t, ok, id)
	}
	ok, _ := f.store.Contains(ctx, "UC2")
	assert.False(t, ok, "rejected channels are not persisted")

	require.Len(t, f.exporter.rows, 1)
	assert.Equal(t, "Daily YouTube Channel Report - Jun 30", f.notifier.subject)
	assert.Contains(t, f.notifier.body, "  - 2 new channels identified\n")
	assert.Contains(t, f.notifier.body, "  1. Channel UC3 (150K subscribers, ")

	// 2 searches + 3 details + 2 uploads + 2 video batches
	assert.Equal(t, 207, res.QuotaUsed)
	assert.Equal(t, 10_000, res.QuotaLimit)
	assert.Equal(t, StateDone, scout.State())
}

func TestScout_FirstNicheWinsOnRediscovery(t *testing.T) {
	f := newFixture(10_000)
	f.client.searches["film essay"] = []string{"UC1"}
	f.client.searches["retro gaming"] = []string{"UC1"}
	f.client.addChannel("UC1", "US", 60_000, 25, 3_000)

	res, err := f.scout(t).Run(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "film essay", res.Rows[0].PrimaryNiche)
	assert.Equal(t, []string{"UC1"}, f.client.detailCalls)
}

func TestScout_SearchStopsWhenQuotaLow(t *testing.T) {
	f := newFixture(150)
	f.client.searches["film essay"] = []string{"UC1"}
	f.client.searches["retro gaming"] = []string{"UC2"}
	f.client.addChannel("UC1", "US", 60_000, 25, 3_000)

	res, err := f.scout(t).Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, PhaseQuota, res.SearchStop)
	assert.Equal(t, 1, res.Stats.NewCandidates)
	assert.Equal(t, 1, res.Stats.Qualified, "partial candidates are still analyzed")
	assert.LessOrEqual(t, f.ledger.Used(), f.ledger.Limit())
}

func TestScout_AnalyzeStopsAtQuotaFloor(t *testing.T) {
	f := newFixture(105)
	f.cfg.Niches = []string{"film essay"}
	f.client.searches["film essay"] = []string{"UC1", "UC2"}
	f.client.addChannel("UC1", "US", 60_000, 25, 3_000)

	res, err := f.scout(t).Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, PhaseQuota, res.AnalyzeStop)
	assert.Empty(t, f.client.detailCalls)
	assert.Equal(t, export.NoData, res.Destination)
}

func TestScout_QuotaErrorFromDetailEndsPhase(t *testing.T) {
	f := newFixture(10_000)
	f.cfg.Niches = []string{"film essay"}
	f.client.searches["film essay"] = []string{"UC1", "UC2"}
	f.client.detail["UC1"] = fmt.Errorf("channel UC1: %w", &youtube.APIError{StatusCode: 403, Reason: "quotaExceeded"})
	f.client.addChannel("UC2", "US", 60_000, 25, 3_000)

	res, err := f.scout(t).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, PhaseQuota, res.AnalyzeStop)
	assert.Equal(t, []string{"UC1"}, f.client.detailCalls)
}

func TestScout_CandidateFailuresAreSkipped(t *testing.T) {
	f := newFixture(10_000)
	f.cfg.Niches = []string{"film essay"}
	f.client.searches["film essay"] = []string{"UCpanic", "UCerr", "UCgone", "UCnovideo", "UC1"}
	f.client.panics["UCpanic"] = true
	f.client.detail["UCerr"] = &youtube.APIError{StatusCode: 500, Message: "backend"}
	f.client.addChannel("UCnovideo", "US", 60_000, 0, 0)
	f.client.addChannel("UC1", "US", 60_000, 25, 3_000)

	res, err := f.scout(t).Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Stats.Errors)
	assert.Equal(t, 1, res.Stats.Qualified)
	assert.Equal(t, PhaseCompleted, res.AnalyzeStop)
}

func TestScout_RespectsChannelCap(t *testing.T) {
	f := newFixture(10_000)
	f.cfg.Niches = []string{"film essay"}
	f.cfg.MaxChannelsPerRun = 2
	f.client.searches["film essay"] = []string{"UC1", "UC2", "UC3"}

	res, err := f.scout(t).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Stats.NewCandidates)
	assert.Len(t, f.client.detailCalls, 2)
}

func TestScout_ExplicitNichesOverrideDefaults(t *testing.T) {
	f := newFixture(10_000)
	f.client.searches["woodworking"] = []string{"UC9"}

	res, err := f.scout(t).Run(context.Background(), []string{"woodworking"})
	require.NoError(t, err)
	assert.Equal(t, []string{"woodworking"}, res.Niches)
	assert.Equal(t, 1, res.Stats.Searched)
}

func TestScout_NotificationFailureDoesNotFailRun(t *testing.T) {
	f := newFixture(10_000)
	f.notifier.err = errors.New("smtp down")

	_, err := f.scout(t).Run(context.Background(), nil)
	assert.NoError(t, err)
}

func TestScout_ExportFailureIsReported(t *testing.T) {
	f := newFixture(10_000)
	f.exporter.err = errors.New("disk full")

	res, err := f.scout(t).Run(context.Background(), nil)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.True(t, strings.HasPrefix(res.Destination, "export failed"))
}

func TestScout_RowsPersistedAsSnapshot(t *testing.T) {
	f := newFixture(10_000)
	f.cfg.Niches = []string{"film essay"}
	f.client.searches["film essay"] = []string{"UC1"}
	f.client.addChannel("UC1", "US", 60_000, 25, 3_000)

	_, err := f.scout(t).Run(context.Background(), nil)
	require.NoError(t, err)

	rec, err := f.store.Get(context.Background(), "UC1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusNew, rec.Status)
	assert.Contains(t, string(rec.Snapshot), `"channel_id":"UC1"`)
}

func TestScoutBuilder_CollectsErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxChannelsPerRun = 0
	bad := scoring.DefaultCriteria()
	bad.MinSubscribers = 1_000_000

	_, err := NewScoutBuilder().WithConfig(cfg).WithCriteria(bad).Build()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "max channels per run")
	assert.Contains(t, msg, "min subscribers")
	assert.Contains(t, msg, "platform client is required")
	assert.Contains(t, msg, "exporter is required")
}

func TestReportBody(t *testing.T) {
	res := &RunResult{
		FinishedAt:  time.Date(2006, 1, 2, 3, 4, 5, 0, time.UTC),
		Stats:       RunStats{Analyzed: 7, Qualified: 1},
		Destination: "CSV file: leads.csv",
		Rows:        []export.ExportRow{{ChannelName: "Alpha", SubscriberCount: 123_456, EngagementRate: 1.5}},
	}
	want := "Hi,\n\n" +
		"Here is your daily YouTube channel report for January 02, 2006.\n\n" +
		"Results:\n" +
		"  - 1 new channels identified\n" +
		"  - 7 channels reviewed\n" +
		"  - Exported to: CSV file: leads.csv\n\n" +
		"Top channels found today:\n" +
		"  1. Alpha (123K subscribers, 1.5% engagement)\n\n" +
		"Full details are available in your export file.\n"
	assert.Equal(t, want, ReportBody(res, 5))

	res.Rows = nil
	assert.NotContains(t, ReportBody(res, 5), "Top channels")
	assert.Equal(t, "Daily YouTube Channel Report - Jan 02", ReportSubject(res.FinishedAt))
}

func TestRunResult_Summary(t *testing.T) {
	res := &RunResult{
		StartedAt:    clock,
		FinishedAt:   clock.Add(42 * time.Second),
		Stats:        RunStats{Searched: 10, DuplicatesSkipped: 2, NewCandidates: 8, Analyzed: 5, Qualified: 3},
		Destination:  "Google Sheet 'YouTube Leads'",
		QuotaSummary: "Quota used: 120 / 9500 (9380 remaining)",
	}
	s := res.Summary()
	assert.True(t, strings.HasPrefix(s, "Scraper run completed in 42s\n"))
	assert.Contains(t, s, "  Duplicates skipped: 2\n")
	assert.Contains(t, s, "  Exported to:        Google Sheet 'YouTube Leads'\n")
	assert.True(t, strings.HasSuffix(s, "  Quota used: 120 / 9500 (9380 remaining)"))
}
