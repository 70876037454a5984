package catalog

import (
	"strings"

	"github.com/PentesterFlow/xssprobe/internal/model"
)

type severityLevel struct {
	severity model.Severity
	keywords []string
}

// Checked in order; the first level with a matching keyword wins.
var severityLevels = []severityLevel{
	{model.SeverityCritical, []string{"document.cookie", "eval(", "localstorage", "sessionstorage", "xmlhttprequest", "fetch("}},
	{model.SeverityHigh, []string{"document.location", "window.location", "document.write", "innerhtml", ".src="}},
	{model.SeverityMedium, []string{"alert(", "console.log", "onerror", "onload"}},
}

// Classify ranks content by the most dangerous API it touches.
func Classify(content string) model.Severity {
	lower := strings.ToLower(content)
	for _, level := range severityLevels {
		for _, kw := range level.keywords {
			if strings.Contains(lower, kw) {
				return level.severity
			}
		}
	}
	return model.SeverityLow
}
