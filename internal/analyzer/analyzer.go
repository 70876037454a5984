// Package analyzer looks for script that an earlier visitor left in a page.
package analyzer

import (
	"regexp"
	"strings"

	"github.com/PentesterFlow/xssprobe/internal/catalog"
	"github.com/PentesterFlow/xssprobe/internal/errors"
	"github.com/PentesterFlow/xssprobe/internal/model"
	"github.com/PentesterFlow/xssprobe/internal/notify"
)

const (
	excerptRunes = 100
	lineKeyRunes = 30
	ruleFlags    = "(?is)"
)

type rule struct {
	re   *regexp.Regexp
	name string
}

// Analyzer matches page bodies against compiled rule tables. It is safe
// for concurrent use.
type Analyzer struct {
	safe       []*regexp.Regexp
	stored     []rule
	structural []rule
}

// New compiles patterns. Rules that fail to compile are dropped with a
// warning on n.
func New(patterns catalog.Patterns, n notify.Notifier) *Analyzer {
	a := &Analyzer{}

	for _, p := range patterns.Safe {
		re, err := regexp.Compile(ruleFlags + p)
		if err != nil {
			n.Warnf("%v", errors.NewPatternError("safe script", err))
			continue
		}
		a.safe = append(a.safe, re)
	}
	a.stored = compile(patterns.Stored, n)
	a.structural = compile(patterns.Structural, n)
	return a
}

func compile(rules []catalog.Rule, n notify.Notifier) []rule {
	out := make([]rule, 0, len(rules))
	for _, r := range rules {
		re, err := regexp.Compile(ruleFlags + r.Pattern)
		if err != nil {
			n.Warnf("%v", errors.NewPatternError(r.Name, err))
			continue
		}
		out = append(out, rule{re: re, name: r.Name})
	}
	return out
}

// Rules returns how many stored and structural rules compiled.
func (a *Analyzer) Rules() int {
	return len(a.stored) + len(a.structural)
}

// Analyze returns the stored-script findings in body, which was served at
// url. It never fetches anything.
func (a *Analyzer) Analyze(url, body string) []model.StoredXSSResult {
	cleaned := body
	for _, re := range a.safe {
		cleaned = re.ReplaceAllLiteralString(cleaned, catalog.SafePlaceholder)
	}
	lines := strings.Split(body, "\n")

	var results []model.StoredXSSResult
	seen := make(map[string]struct{})

	for _, r := range a.stored {
		for _, match := range r.re.FindAllString(cleaned, -1) {
			if strings.Contains(match, catalog.SafePlaceholder) {
				continue
			}
			excerpt := model.Truncate(match, excerptRunes)
			if _, dup := seen[excerpt]; dup {
				continue
			}
			seen[excerpt] = struct{}{}
			results = append(results, model.StoredXSSResult{
				URL:            url,
				PatternName:    r.name,
				MatchedContent: excerpt,
				LineNumber:     lineOf(lines, match),
				Severity:       catalog.Classify(excerpt),
			})
		}
	}

	// Structural rules see the original body, safe scripts included.
	for _, r := range a.structural {
		for _, match := range r.re.FindAllString(body, -1) {
			excerpt := model.Truncate(match, excerptRunes)
			if _, dup := seen[excerpt]; dup {
				continue
			}
			seen[excerpt] = struct{}{}
			results = append(results, model.StoredXSSResult{
				URL:            url,
				PatternName:    r.name,
				MatchedContent: excerpt,
				Severity:       catalog.Classify(excerpt),
			})
		}
	}

	return results
}

// lineOf is the 1-based line holding the first runes of match, or 0.
func lineOf(lines []string, match string) int {
	key := model.Head(match, lineKeyRunes)
	for i, line := range lines {
		if strings.Contains(line, key) {
			return i + 1
		}
	}
	return 0
}
