package cleaner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/dperique/browser-tab-cleaner/internal/classify"
	"github.com/dperique/browser-tab-cleaner/internal/tabsource"
)

// Source is the slice of the Tab Source the runner needs.
type Source interface {
	List(ctx context.Context) ([]tabsource.Tab, error)
	Close(ctx context.Context, id string) error
}

// Options configures a single cleanup pass. The rule mode lives on the
// Classifier so the two cannot disagree.
type Options struct {
	DryRun     bool
	CloseDelay time.Duration
}

// Report summarizes one pass.
type Report struct {
	Scanned int  `json:"scanned"`
	Matched int  `json:"matched"`
	Closed  int  `json:"closed"`
	Failed  int  `json:"failed"`
	DryRun  bool `json:"dry_run"`
}

type match struct {
	tab    tabsource.Tab
	reason string
}

const separatorWidth = 80

// Run performs one enumerate-classify-close pass, writing the human-readable
// report to w. Only a failed enumeration is fatal; individual close failures
// are logged, counted, and skipped.
func Run(ctx context.Context, w io.Writer, src Source, cls *classify.Classifier, opts Options) (Report, error) {
	report := Report{DryRun: opts.DryRun}

	tabs, err := src.List(ctx)
	if err != nil {
		return report, err
	}
	report.Scanned = len(tabs)

	matches := make([]match, 0)
	for _, t := range tabs {
		if t.Type != "page" {
			continue
		}
		if cls.Excluded(t.URL) {
			slog.Debug("skipping browser-internal page", "url", t.URL)
			continue
		}
		if ok, reason := cls.Classify(t); ok {
			matches = append(matches, match{tab: t, reason: reason})
		}
	}
	report.Matched = len(matches)

	if len(matches) == 0 {
		fmt.Fprintf(w, "Scanned %d tabs; nothing matched.\n", report.Scanned)
		return report, nil
	}

	verb := "Closing"
	if opts.DryRun {
		verb = "Would close"
	}
	sep := strings.Repeat("-", separatorWidth)
	fmt.Fprintf(w, "%s %d of %d tabs:\n%s\n", verb, report.Matched, report.Scanned, sep)

	for _, m := range matches {
		fmt.Fprintf(w, "Title:  %s\n", truncate(m.tab.Title, 60))
		fmt.Fprintf(w, "URL:    %s\n", truncate(m.tab.URL, 80))
		fmt.Fprintf(w, "Reason: %s\n%s\n", m.reason, sep)

		if opts.DryRun {
			continue
		}
		if err := src.Close(ctx, m.tab.ID); err != nil {
			report.Failed++
			slog.Warn("close tab failed", "tab_id", m.tab.ID, "url", m.tab.URL, "error", err)
			continue
		}
		report.Closed++
		if opts.CloseDelay > 0 {
			select {
			case <-time.After(opts.CloseDelay):
			case <-ctx.Done():
				return report, ctx.Err()
			}
		}
	}

	if opts.DryRun {
		fmt.Fprintf(w, "Summary: %d of %d tabs would be closed.\n", report.Matched, report.Scanned)
		fmt.Fprintln(w, "Re-run without -dry-run to close them.")
	} else {
		fmt.Fprintf(w, "Summary: scanned %d, matched %d, closed %d, failed %d.\n",
			report.Scanned, report.Matched, report.Closed, report.Failed)
	}
	return report, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
