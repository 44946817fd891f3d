package classify

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/dperique/browser-tab-cleaner/internal/tabsource"
)

// Mode restricts which rule groups are evaluated.
type Mode string

const (
	ModeAll         Mode = "all"
	ModeJenkinsOnly Mode = "jenkins-only"
	ModeEmptyOnly   Mode = "empty-only"
)

// ParseMode maps a mode string to a Mode. The empty string means ModeAll.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.TrimSpace(s)) {
	case "", ModeAll:
		return ModeAll, nil
	case ModeJenkinsOnly:
		return ModeJenkinsOnly, nil
	case ModeEmptyOnly:
		return ModeEmptyOnly, nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

// Rules holds the pattern lists the rule set is built from. The failed-load
// URL patterns vary across browser builds, so they are configuration rather
// than constants.
type Rules struct {
	NewTabURLs        []string // exact-or-prefix URLs of blank new-tab pages
	ErrorURLPrefixes  []string // internal error-page schemes, e.g. chrome-error://
	ErrorURLMarkers   []string // net-error substrings that show up in URLs
	ErrorTitleMarkers []string // case-insensitive failed-load title fragments
	BuildMarkers      []string // case-sensitive build-status tokens
	JenkinsDomains    []string // host substrings identifying Jenkins instances
}

// DefaultRules returns the stock rule patterns.
func DefaultRules() Rules {
	return Rules{
		NewTabURLs: []string{
			"chrome://newtab/",
			"about:blank",
			"chrome://new-tab-page/",
			"edge://newtab/",
			"about:newtab",
		},
		ErrorURLPrefixes: []string{
			"chrome-error://",
		},
		ErrorURLMarkers: []string{
			"DNS_PROBE_FINISHED",
			"ERR_NAME_NOT_RESOLVED",
			"ERR_CONNECTION",
			"ERR_TIMED_OUT",
		},
		ErrorTitleMarkers: []string{
			"this site can't be reached",
			"page not found",
			"server not found",
			"connection timed out",
			"cannot connect to",
			"failed to load",
			"untitled",
		},
		BuildMarkers: []string{
			"SUCCESS",
			"FAILURE",
			"ABORTED",
		},
		JenkinsDomains: []string{
			"art-jenkins.apps.",
			"jenkins.",
			"ci.jenkins.io",
			"hudson.",
			"buildbot.",
		},
	}
}

// rule is one predicate/reason pair. First match within a group wins.
type rule func(tab tabsource.Tab) (bool, string)

// Classifier decides whether a single tab should be closed. Pure and
// deterministic: same tab snapshot, same answer.
type Classifier struct {
	mode    Mode
	rules   Rules
	empty   []rule
	jenkins []rule
}

// New builds a Classifier for the given mode and rule patterns.
func New(mode Mode, rules Rules) *Classifier {
	c := &Classifier{mode: mode, rules: rules}
	c.empty = []rule{
		c.matchNewTab,
		c.matchErrorURL,
		c.matchErrorTitle,
		c.matchEmptyTitle,
	}
	c.jenkins = []rule{
		c.matchConsolePath,
		c.matchBuildMarker,
		c.matchJenkinsDomain,
	}
	return c
}

// Mode returns the mode the Classifier was built with.
func (c *Classifier) Mode() Mode { return c.mode }

// Classify evaluates the rule groups in order. The empty/failed group runs
// before the Jenkins group so a tab is reported once, under the first group
// that claims it.
func (c *Classifier) Classify(tab tabsource.Tab) (bool, string) {
	if c.mode != ModeJenkinsOnly {
		for _, r := range c.empty {
			if ok, reason := r(tab); ok {
				return true, reason
			}
		}
	}
	if c.mode != ModeEmptyOnly {
		for _, r := range c.jenkins {
			if ok, reason := r(tab); ok {
				return true, reason
			}
		}
	}
	return false, ""
}

// Excluded reports browser-internal pages that must never be touched:
// extensions and chrome:// surfaces, except the new-tab pages the empty
// group is allowed to close.
func (c *Classifier) Excluded(rawURL string) bool {
	if !strings.HasPrefix(rawURL, "chrome-extension://") && !strings.HasPrefix(rawURL, "chrome://") {
		return false
	}
	for _, p := range c.rules.NewTabURLs {
		if strings.HasPrefix(rawURL, p) {
			return false
		}
	}
	return true
}

func (c *Classifier) matchNewTab(tab tabsource.Tab) (bool, string) {
	for _, p := range c.rules.NewTabURLs {
		if strings.HasPrefix(tab.URL, p) {
			return true, "New tab page: " + tab.URL
		}
	}
	return false, ""
}

func (c *Classifier) matchErrorURL(tab tabsource.Tab) (bool, string) {
	for _, p := range c.rules.ErrorURLPrefixes {
		if strings.HasPrefix(tab.URL, p) {
			return true, "Failed load: " + tab.URL
		}
	}
	for _, m := range c.rules.ErrorURLMarkers {
		if strings.Contains(tab.URL, m) {
			return true, "Failed load: " + tab.URL
		}
	}
	return false, ""
}

func (c *Classifier) matchErrorTitle(tab tabsource.Tab) (bool, string) {
	title := strings.ToLower(tab.Title)
	for _, m := range c.rules.ErrorTitleMarkers {
		if strings.Contains(title, strings.ToLower(m)) {
			return true, "Failed load: " + tab.Title
		}
	}
	return false, ""
}

func (c *Classifier) matchEmptyTitle(tab tabsource.Tab) (bool, string) {
	if strings.TrimSpace(tab.Title) == "" {
		return true, "Empty title"
	}
	return false, ""
}

func (c *Classifier) matchConsolePath(tab tabsource.Tab) (bool, string) {
	u, err := url.Parse(tab.URL)
	if err != nil {
		return false, ""
	}
	path := strings.TrimSuffix(u.Path, "/")
	if strings.HasSuffix(path, "/console") || strings.HasSuffix(path, "/consoleFull") {
		return true, "Jenkins console log: " + tab.URL
	}
	return false, ""
}

func (c *Classifier) matchBuildMarker(tab tabsource.Tab) (bool, string) {
	for _, marker := range c.rules.BuildMarkers {
		if containsToken(tab.Title, marker) || containsToken(tab.URL, marker) {
			return true, fmt.Sprintf("Completed build (%s): %s", marker, tab.URL)
		}
	}
	return false, ""
}

func (c *Classifier) matchJenkinsDomain(tab tabsource.Tab) (bool, string) {
	u, err := url.Parse(tab.URL)
	if err != nil {
		return false, ""
	}
	host := u.Hostname()
	if host == "" {
		return false, ""
	}
	if strings.Contains(host, "jenkins") {
		return true, "Jenkins domain page: " + tab.URL
	}
	for _, d := range c.rules.JenkinsDomains {
		if strings.Contains(host, d) {
			return true, "Jenkins domain page: " + tab.URL
		}
	}
	return false, ""
}
