package catalog

// Rule pairs a pattern with the label reported when it matches. For
// regex rules Pattern is an RE2 expression; for DOM rules it is a CSS
// selector.
type Rule struct {
	Pattern string `json:"pattern" yaml:"pattern"`
	Name    string `json:"name" yaml:"name"`
}

// Patterns is the rule data the stored-content analyzer is built from.
type Patterns struct {
	// Safe matches the opening of script tags loaded from trusted CDNs.
	Safe []string `json:"safe" yaml:"safe"`
	// Stored runs against the body after safe scripts are neutralized.
	Stored []Rule `json:"stored" yaml:"stored"`
	// Structural runs against the original body.
	Structural []Rule `json:"structural" yaml:"structural"`
}

// SafePlaceholder replaces allow-listed script openings before matching.
const SafePlaceholder = "[SAFE_EXTERNAL_SCRIPT]"

var safeScripts = []string{
	`<script[^>]+src\s*=\s*["']https?://cdn\.cloudflare\.com`,
	`<script[^>]+src\s*=\s*["']https?://cdnjs\.cloudflare\.com`,
	`<script[^>]+src\s*=\s*["']https?://code\.jquery\.com`,
	`<script[^>]+src\s*=\s*["']https?://unpkg\.com`,
	`<script[^>]+src\s*=\s*["']https?://cdn\.jsdelivr\.net`,
}

var storedRules = []Rule{
	{`<script[^>]*>[\s\S]*?alert\s*\(`, "alert() script"},
	{`<script[^>]*>[\s\S]*?console\s*\.\s*log\s*\(`, "console.log() script"},
	{`<script[^>]*>[\s\S]*?document\s*\.\s*cookie`, "cookie access script"},
	{`<script[^>]*>[\s\S]*?document\s*\.\s*location`, "redirect script"},
	{`<script[^>]*>[\s\S]*?document\s*\.\s*write`, "document.write() script"},
	{`<script[^>]*>[\s\S]*?eval\s*\(`, "eval() script"},
	{`<script[^>]*>[\s\S]*?window\s*\.\s*location`, "window.location script"},
	{`<img[^>]*\sonerror\s*=`, "img onerror XSS"},
	{`<img[^>]*\sonload\s*=`, "img onload XSS"},
	{`<svg[^>]*\sonload\s*=`, "svg onload XSS"},
	{`<body[^>]*\sonload\s*=`, "body onload XSS"},
	{`<input[^>]*\sonfocus\s*=`, "input onfocus XSS"},
	{`<[a-z]+[^>]*\sonerror\s*=`, "onerror event"},
	{`<[a-z]+[^>]*\sonload\s*=`, "onload event"},
	{`<[a-z]+[^>]*\sonclick\s*=`, "onclick event"},
	{`<[a-z]+[^>]*\sonmouseover\s*=`, "onmouseover event"},
	{`href\s*=\s*["']?\s*javascript\s*:`, "javascript: href"},
	{`src\s*=\s*["']?\s*javascript\s*:`, "javascript: src"},
	// any iframe src that does not start with http:// or https://
	{`<iframe[^>]*\ssrc\s*=\s*["']?(?:[^h"'\s>]|h(?:[^t]|t(?:[^t]|t(?:[^p]|p(?:[^s:]|:(?:[^/]|/[^/])|s(?:[^:]|:(?:[^/]|/[^/])))))))`, "suspicious iframe"},
	{`XSS[_\-]?(ATTACK|TEST|PAYLOAD|SUCCESS)`, "XSS test marker"},
	{`<img[^>]*src\s*=\s*["']?[x1#]["']?[^>]*onerror`, "broken image XSS"},
}

var structuralRules = []Rule{
	{`<t[dh][^>]*>.*?<script.*?</script>.*?</t[dh]>`, "script in table cell"},
	{`<t[dh][^>]*>.*?onerror\s*=.*?</t[dh]>`, "onerror in table cell"},
	{`<li[^>]*>.*?<script.*?</script>.*?</li>`, "script in list item"},
}

// DefaultPatterns returns a fresh copy of the built-in rule tables.
func DefaultPatterns() Patterns {
	return Patterns{
		Safe:       append([]string(nil), safeScripts...),
		Stored:     append([]Rule(nil), storedRules...),
		Structural: append([]Rule(nil), structuralRules...),
	}
}

// DangerousContext decides whether a reflected payload lands somewhere a
// browser would run it. A rule must match both the body and the payload.
var DangerousContext = []string{
	`<script[^>]*>`,
	`onerror\s*=`,
	`onload\s*=`,
	`onclick\s*=`,
	`onmouseover\s*=`,
	`onfocus\s*=`,
	`javascript:`,
	`<img[^>]+onerror`,
	`<svg[^>]+onload`,
}

// DOMSelectors find live elements carrying script on a rendered page.
var DOMSelectors = []Rule{
	{`img[onerror]`, "img with onerror"},
	{`a[href^="javascript:"]`, "javascript link"},
	{`[onload]`, "element with onload"},
	{`[onclick]`, "element with onclick"},
	{`[onmouseover]`, "element with onmouseover"},
}
