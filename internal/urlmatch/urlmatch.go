// Package urlmatch decides whether a change's URL-scoped filter applies to
// the current navigation location.
package urlmatch

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/absmartly/preview-engine/internal/logging"
)

// Mode selects pattern semantics.
type Mode string

const (
	// ModeSimple treats patterns as globs: * matches any run of characters,
	// ? exactly one; everything else is literal. Implicitly anchored.
	ModeSimple Mode = "simple"
	// ModeRegex passes patterns to the regexp engine as-is.
	ModeRegex Mode = "regex"
)

// MatchType selects which part of the location patterns run against.
type MatchType string

const (
	MatchPath    MatchType = "path"
	MatchFullURL MatchType = "full-url"
	MatchDomain  MatchType = "domain"
	MatchQuery   MatchType = "query"
	MatchHash    MatchType = "hash"
)

// Filter scopes a change to matching locations. The zero value (no include,
// no exclude) matches everything.
type Filter struct {
	Include   []string  `json:"include,omitempty"`
	Exclude   []string  `json:"exclude,omitempty"`
	Mode      Mode      `json:"mode,omitempty"`
	MatchType MatchType `json:"matchType,omitempty"`
}

// UnmarshalJSON accepts the three wire shapes a filter arrives in: a single
// glob string, an array of glob strings, or the structured object form.
func (f *Filter) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*f = Filter{Include: []string{single}}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*f = Filter{Include: many}
		return nil
	}

	type plain Filter
	var obj plain
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid url filter: %w", err)
	}
	*f = Filter(obj)
	return nil
}

// Matcher evaluates filters against locations.
type Matcher struct {
	logger *logging.Logger
}

// NewMatcher creates a matcher.
func NewMatcher(logger *logging.Logger) *Matcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Matcher{logger: logger}
}

// Matches reports whether the filter admits the location. A nil filter
// always matches. Exclude patterns are checked first and short-circuit;
// without include patterns an unexcluded location matches by default.
// Matching is case-sensitive throughout.
func (m *Matcher) Matches(f *Filter, loc *url.URL) bool {
	if f == nil || loc == nil {
		return true
	}

	target := matchTarget(f.MatchType, loc)

	for _, pattern := range f.Exclude {
		if m.patternMatches(pattern, target, f.Mode) {
			return false
		}
	}

	if len(f.Include) == 0 {
		return true
	}
	for _, pattern := range f.Include {
		if m.patternMatches(pattern, target, f.Mode) {
			return true
		}
	}
	return false
}

func matchTarget(mt MatchType, loc *url.URL) string {
	switch mt {
	case MatchFullURL:
		return loc.String()
	case MatchDomain:
		return loc.Hostname()
	case MatchQuery:
		if loc.RawQuery == "" {
			return ""
		}
		return "?" + loc.RawQuery
	case MatchHash:
		if loc.Fragment == "" {
			return ""
		}
		return "#" + loc.Fragment
	default: // MatchPath
		return loc.Path
	}
}

func (m *Matcher) patternMatches(pattern, target string, mode Mode) bool {
	var re *regexp.Regexp
	var err error
	if mode == ModeRegex {
		re, err = regexp.Compile(pattern)
		if err != nil {
			m.logger.Warn("invalid url filter regex, treated as non-matching",
				zap.String("pattern", pattern),
				zap.Error(err),
			)
			return false
		}
		return re.MatchString(target)
	}

	re, err = regexp.Compile(globToRegexp(pattern))
	if err != nil {
		// QuoteMeta makes this unreachable for well-formed globs
		m.logger.Warn("glob pattern failed to compile",
			zap.String("pattern", pattern),
			zap.Error(err),
		)
		return false
	}
	return re.MatchString(target)
}

// globToRegexp converts a glob into an anchored regular expression. All
// regexp metacharacters are escaped first so literal dots, pluses, etc. in
// URLs match literally.
func globToRegexp(pattern string) string {
	quoted := regexp.QuoteMeta(pattern)
	quoted = strings.ReplaceAll(quoted, `\*`, ".*")
	quoted = strings.ReplaceAll(quoted, `\?`, ".")
	return "^" + quoted + "$"
}
