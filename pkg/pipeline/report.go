package pipeline

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Summary is the multi-line run digest written to the log
func (r *RunResult) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scraper run completed in %.0fs\n", r.Elapsed().Seconds())
	fmt.Fprintf(&b, "  Channels searched:  %d\n", r.Stats.Searched)
	fmt.Fprintf(&b, "  Duplicates skipped: %d\n", r.Stats.DuplicatesSkipped)
	fmt.Fprintf(&b, "  New candidates:     %d\n", r.Stats.NewCandidates)
	fmt.Fprintf(&b, "  Channels analyzed:  %d\n", r.Stats.Analyzed)
	fmt.Fprintf(&b, "  Channels qualified: %d\n", r.Stats.Qualified)
	fmt.Fprintf(&b, "  Exported to:        %s\n", r.Destination)
	fmt.Fprintf(&b, "  %s", r.QuotaSummary)
	return b.String()
}

// ReportSubject is the email subject for a run finishing at t
func ReportSubject(t time.Time) string {
	return "Daily YouTube Channel Report - " + t.Format("Jan 02")
}

// ReportBody renders the plain-text email: counts, destination and the
// topN highest-scoring channels. Rows must already be sorted.
func ReportBody(r *RunResult, topN int) string {
	var b strings.Builder
	b.WriteString("Hi,\n\n")
	fmt.Fprintf(&b, "Here is your daily YouTube channel report for %s.\n\n", r.FinishedAt.Format("January 02, 2006"))
	b.WriteString("Results:\n")
	fmt.Fprintf(&b, "  - %d new channels identified\n", r.Stats.Qualified)
	fmt.Fprintf(&b, "  - %d channels reviewed\n", r.Stats.Analyzed)
	fmt.Fprintf(&b, "  - Exported to: %s\n\n", r.Destination)

	if n := min(topN, len(r.Rows)); n > 0 {
		b.WriteString("Top channels found today:\n")
		for i, row := range r.Rows[:n] {
			fmt.Fprintf(&b, "  %d. %s (%dK subscribers, %s%% engagement)\n",
				i+1, row.ChannelName, row.SubscriberCount/1000,
				strconv.FormatFloat(row.EngagementRate, 'f', -1, 64))
		}
		b.WriteString("\n")
	}
	b.WriteString("Full details are available in your export file.\n")
	return b.String()
}
