package cleaner

import (
	"context"
	"io"
	"time"

	"github.com/dperique/browser-tab-cleaner/internal/classify"
	"github.com/dperique/browser-tab-cleaner/internal/tabsource"
)

// ClassifiedTab is one page tab with its classification verdict.
type ClassifiedTab struct {
	tabsource.Tab
	Matched bool   `json:"matched"`
	Reason  string `json:"reason,omitempty"`
}

// Service exposes the enumerate/classify/clean pass to the inspection API.
type Service struct {
	src        Source
	rules      classify.Rules
	closeDelay time.Duration
}

// NewService wires a Service over a Tab Source and classifier rule patterns.
func NewService(src Source, rules classify.Rules, closeDelay time.Duration) *Service {
	return &Service{src: src, rules: rules, closeDelay: closeDelay}
}

// ListTabs enumerates the open page tabs and classifies them without closing
// anything. Browser-internal pages are omitted, matching the runner's view.
func (s *Service) ListTabs(ctx context.Context, mode classify.Mode) ([]ClassifiedTab, error) {
	cls := classify.New(mode, s.rules)

	tabs, err := s.src.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]ClassifiedTab, 0, len(tabs))
	for _, t := range tabs {
		if t.Type != "page" || cls.Excluded(t.URL) {
			continue
		}
		matched, reason := cls.Classify(t)
		out = append(out, ClassifiedTab{Tab: t, Matched: matched, Reason: reason})
	}
	return out, nil
}

// Clean runs one cleanup pass and returns its report.
func (s *Service) Clean(ctx context.Context, mode classify.Mode, dryRun bool) (Report, error) {
	cls := classify.New(mode, s.rules)
	return Run(ctx, io.Discard, s.src, cls, Options{
		DryRun:     dryRun,
		CloseDelay: s.closeDelay,
	})
}
