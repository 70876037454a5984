package inject

import (
	"regexp"
	"strings"

	"github.com/PentesterFlow/xssprobe/internal/catalog"
	"github.com/PentesterFlow/xssprobe/internal/model"
)

const snippetRunes = 30

var dangerousContext = compileContext(catalog.DangerousContext)

func compileContext(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile("(?i)"+p))
	}
	return out
}

// CheckReflection reports whether payload appears verbatim in body, with
// up to 30 runes of context on either side of the first occurrence.
func CheckReflection(body, payload string) (bool, string) {
	idx := strings.Index(body, payload)
	if payload == "" || idx < 0 {
		return false, ""
	}

	before := []rune(body[:idx])
	if len(before) > snippetRunes {
		before = before[len(before)-snippetRunes:]
	}
	after := []rune(body[idx+len(payload):])
	if len(after) > snippetRunes {
		after = after[:snippetRunes]
	}
	return true, string(before) + payload + string(after)
}

// IsDangerous reports whether some dangerous construct appears in both
// body and payload.
func IsDangerous(body, payload string) bool {
	for _, re := range dangerousContext {
		if re.MatchString(body) && re.MatchString(payload) {
			return true
		}
	}
	return false
}

// errorSnippet is what a failed request leaves in ResponseSnippet.
func errorSnippet(err error) string {
	return "Error: " + model.Head(err.Error(), snippetRunes)
}

// severityFor ranks a result: by payload when it is vulnerable, info when
// it is only reflected.
func severityFor(r model.ScanResult) model.Severity {
	switch {
	case r.Vulnerable || r.Executed:
		return catalog.Classify(r.Payload)
	case r.Reflected:
		return model.SeverityInfo
	}
	return ""
}
