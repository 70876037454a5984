package output

import (
	"time"

	"github.com/PentesterFlow/xssprobe/internal/metrics"
	"github.com/PentesterFlow/xssprobe/internal/model"
)

// Report is the complete result of one scan.
type Report struct {
	Version     string                  `json:"version"`
	Target      string                  `json:"target"`
	Engine      string                  `json:"engine"`
	Mode        string                  `json:"mode"`
	Sink        string                  `json:"sink,omitempty"`
	StartedAt   time.Time               `json:"started_at"`
	CompletedAt time.Time               `json:"completed_at,omitempty"`
	Duration    string                  `json:"duration"`
	Stopped     bool                    `json:"stopped"`
	Stats       Stats                   `json:"stats"`
	Metrics     *metrics.Snapshot       `json:"metrics,omitempty"`
	Pages       []model.PageInfo        `json:"pages"`
	Stored      []model.StoredXSSResult `json:"stored"`
	Findings    []model.ScanResult      `json:"findings"`
}

// Stats counts what the report holds.
type Stats struct {
	PagesCrawled   int            `json:"pages_crawled"`
	FormsFound     int            `json:"forms_found"`
	ParamsFound    int            `json:"params_found"`
	StoredFindings int            `json:"stored_findings"`
	PayloadsTested int            `json:"payloads_tested"`
	Reflected      int            `json:"reflected"`
	Vulnerable     int            `json:"vulnerable"`
	Executed       int            `json:"executed"`
	BySeverity     map[string]int `json:"by_severity"`
}

// Finalize stamps the completion time and recomputes Stats from the
// report's slices. Nil slices become empty so they encode as [].
func (r *Report) Finalize(completed time.Time) {
	r.CompletedAt = completed
	if !r.StartedAt.IsZero() {
		r.Duration = completed.Sub(r.StartedAt).Round(time.Millisecond).String()
	}
	if r.Pages == nil {
		r.Pages = []model.PageInfo{}
	}
	if r.Stored == nil {
		r.Stored = []model.StoredXSSResult{}
	}
	if r.Findings == nil {
		r.Findings = []model.ScanResult{}
	}
	r.Stats = Summarize(r.Pages, r.Stored, r.Findings)
}

// Summarize computes report statistics.
func Summarize(pages []model.PageInfo, stored []model.StoredXSSResult, findings []model.ScanResult) Stats {
	s := Stats{
		PagesCrawled:   len(pages),
		StoredFindings: len(stored),
		PayloadsTested: len(findings),
		BySeverity:     make(map[string]int),
	}
	for _, p := range pages {
		s.FormsFound += len(p.Forms)
		s.ParamsFound += len(p.Params)
	}
	for _, st := range stored {
		if st.Severity != "" {
			s.BySeverity[string(st.Severity)]++
		}
	}
	for _, f := range findings {
		if f.Reflected {
			s.Reflected++
		}
		if f.Vulnerable {
			s.Vulnerable++
		}
		if f.Executed {
			s.Executed++
		}
		if (f.Reflected || f.Vulnerable) && f.Severity != "" {
			s.BySeverity[string(f.Severity)]++
		}
	}
	return s
}

// Interesting returns the findings that reflected or executed.
func (r *Report) Interesting() []model.ScanResult {
	var out []model.ScanResult
	for _, f := range r.Findings {
		if f.Reflected || f.Vulnerable || f.Executed {
			out = append(out, f)
		}
	}
	return out
}
