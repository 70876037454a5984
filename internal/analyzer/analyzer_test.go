package analyzer

import (
	"strings"
	"testing"

	"github.com/PentesterFlow/xssprobe/internal/catalog"
	"github.com/PentesterFlow/xssprobe/internal/model"
	"github.com/PentesterFlow/xssprobe/internal/notify"
)

const pageURL = "http://t.test/board"

func names(results []model.StoredXSSResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.PatternName
	}
	return out
}

// =============================================================================
// Construction Tests
// =============================================================================

func TestNew_DefaultPatternsCompile(t *testing.T) {
	var warnings int
	n := notify.New(func(e notify.Event) {
		if e.Level == notify.Warning {
			warnings++
		}
	})

	p := catalog.DefaultPatterns()
	a := New(p, n)
	if warnings != 0 {
		t.Errorf("default patterns produced %d warnings", warnings)
	}
	if a.Rules() != len(p.Stored)+len(p.Structural) {
		t.Errorf("Rules() = %d", a.Rules())
	}
}

func TestNew_DropsInvalidRules(t *testing.T) {
	var warnings []string
	n := notify.New(func(e notify.Event) {
		if e.Level == notify.Warning {
			warnings = append(warnings, e.Message)
		}
	})

	a := New(catalog.Patterns{
		Safe:   []string{`[`},
		Stored: []catalog.Rule{{Pattern: `(unclosed`, Name: "broken"}, {Pattern: `<b>`, Name: "bold"}},
	}, n)

	if a.Rules() != 1 {
		t.Errorf("Rules() = %d, want 1", a.Rules())
	}
	if len(warnings) != 2 {
		t.Fatalf("warnings = %v, want 2", warnings)
	}
	if !strings.Contains(warnings[1], "broken") {
		t.Errorf("warning %q does not name the rule", warnings[1])
	}

	if got := a.Analyze(pageURL, "<B>hi</b>"); len(got) != 1 || got[0].PatternName != "bold" {
		t.Errorf("Analyze = %+v", got)
	}
}

// =============================================================================
// Analyze Tests
// =============================================================================

func TestAnalyze_SafeScriptIgnored(t *testing.T) {
	a := New(catalog.DefaultPatterns(), notify.Notifier{})

	safe := `<html><head><script src="https://code.jquery.com/jquery.min.js"></script></head><body><p>hello</p></body></html>`
	if got := a.Analyze(pageURL, safe); len(got) != 0 {
		t.Errorf("allow-listed script reported: %v", names(got))
	}

	inline := strings.Replace(safe, `<script src="https://code.jquery.com/jquery.min.js"></script>`, `<script>alert(1)</script>`, 1)
	got := a.Analyze(pageURL, inline)
	if len(got) != 1 {
		t.Fatalf("got %v, want one script finding", names(got))
	}
	if got[0].PatternName != "alert() script" || got[0].LineNumber != 1 || got[0].URL != pageURL {
		t.Errorf("result = %+v", got[0])
	}
	if got[0].Severity != model.SeverityMedium {
		t.Errorf("severity = %s, want medium", got[0].Severity)
	}
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantNames []string
		wantLines []int
	}{
		{
			name:      "clean page",
			body:      "<html><body><p>Nothing here</p></body></html>",
			wantNames: []string{},
		},
		{
			name:      "upper case",
			body:      "<SCRIPT>ALERT(1)</SCRIPT>",
			wantNames: []string{"alert() script"},
			wantLines: []int{1},
		},
		{
			name:      "duplicate excerpts",
			body:      "<script>alert(1)</script>\n<script>alert(1)</script>",
			wantNames: []string{"alert() script"},
			wantLines: []int{1},
		},
		{
			name:      "image handler on third line",
			body:      "line1\n<p>ok</p>\n<img src=x onerror=alert(1)>\n",
			wantNames: []string{"img onerror XSS", "broken image XSS"},
			wantLines: []int{3, 3},
		},
		{
			name:      "script across lines",
			body:      "<div>\n<script>\nvar c = document.cookie;\n</script>\n</div>",
			wantNames: []string{"cookie access script"},
			wantLines: []int{0},
		},
		{
			name:      "relative iframe",
			body:      `<iframe src="/embed/stored"></iframe>`,
			wantNames: []string{"suspicious iframe"},
			wantLines: []int{1},
		},
		{
			name:      "scheme-relative iframe",
			body:      `<iframe src="//evil.example/x"></iframe>`,
			wantNames: []string{"suspicious iframe"},
			wantLines: []int{1},
		},
		{
			name:      "https iframe",
			body:      `<IFRAME SRC='HTTPS://video.example/embed'></IFRAME>`,
			wantNames: []string{},
		},
		{
			name:      "script in table cell",
			body:      `<table><tr><td><script>console.log("XSS_TEST_1")</script></td></tr></table>`,
			wantNames: []string{"console.log() script", "XSS test marker", "script in table cell"},
			wantLines: []int{1, 1, 0},
		},
	}

	a := New(catalog.DefaultPatterns(), notify.Notifier{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.Analyze(pageURL, tt.body)
			gotNames := names(got)
			if strings.Join(gotNames, "|") != strings.Join(tt.wantNames, "|") {
				t.Fatalf("names = %q, want %q", gotNames, tt.wantNames)
			}
			for i, r := range got {
				if r.LineNumber != tt.wantLines[i] {
					t.Errorf("%s line = %d, want %d", r.PatternName, r.LineNumber, tt.wantLines[i])
				}
			}
		})
	}
}

func TestAnalyze_TruncatesExcerpt(t *testing.T) {
	a := New(catalog.DefaultPatterns(), notify.Notifier{})
	body := "<script>" + strings.Repeat("a", 200) + "alert(1)</script>"

	got := a.Analyze(pageURL, body)
	if len(got) != 1 {
		t.Fatalf("got %v", names(got))
	}
	if n := len([]rune(got[0].MatchedContent)); n != 103 {
		t.Errorf("excerpt is %d runes, want 100 plus ...", n)
	}
	if !strings.HasSuffix(got[0].MatchedContent, "...") {
		t.Error("truncated excerpt should end with ...")
	}
	if got[0].LineNumber != 1 {
		t.Errorf("line = %d", got[0].LineNumber)
	}
}
