// Package model holds the records produced by crawling and testing.
package model

// Input is a named form field.
type Input struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	DefaultValue string `json:"value"`
}

// Form is a submittable set of inputs. Method is always "get" or "post".
type Form struct {
	Action string  `json:"action"`
	Method string  `json:"method"`
	Inputs []Input `json:"inputs"`
}

// PageInfo is one fetched HTML page and its injection points.
type PageInfo struct {
	URL    string            `json:"url"`
	Forms  []Form            `json:"forms"`
	Params map[string]string `json:"params"`
	Links  []string          `json:"links"`
}

// InjectionPoints counts the URL parameters and form inputs on the page.
func (p *PageInfo) InjectionPoints() int {
	count := len(p.Params)
	for _, f := range p.Forms {
		count += len(f.Inputs)
	}
	return count
}

// Severity ranks a finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// StoredXSSResult is markup found in a page body without any injection.
type StoredXSSResult struct {
	URL               string   `json:"url"`
	PatternName       string   `json:"pattern_name"`
	MatchedContent    string   `json:"matched_content"`
	LineNumber        int      `json:"line_number"`
	ExecutionEvidence string   `json:"execution_evidence,omitempty"`
	Severity          Severity `json:"severity"`
}

// ScanResult is the outcome of one payload against one injection point.
type ScanResult struct {
	URL             string   `json:"url"`
	Parameter       string   `json:"parameter"`
	Payload         string   `json:"payload"`
	Reflected       bool     `json:"reflected"`
	Vulnerable      bool     `json:"vulnerable"`
	Executed        bool     `json:"executed"`
	ResponseSnippet string   `json:"response_snippet,omitempty"`
	ConsoleOutput   string   `json:"console_output,omitempty"`
	StatusCode      int      `json:"status_code,omitempty"`
	Severity        Severity `json:"severity,omitempty"`
}

// Truncate caps s at n runes and marks the cut with "...".
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// Head returns at most the first n runes of s.
func Head(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
