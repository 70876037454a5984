// Package scanner wires the crawler, the analyzer and the injection
// engines into one XSS scan.
package scanner

import (
	"context"

	"github.com/PentesterFlow/xssprobe/internal/catalog"
	"github.com/PentesterFlow/xssprobe/internal/model"
)

// Version is the scanner release.
const Version = "v5.6.0"

// Crawler discovers pages and their injection points.
type Crawler interface {
	Crawl(ctx context.Context) ([]model.PageInfo, error)
	Stop()
}

// TestEngine looks for stored XSS in crawled pages and tests every
// injection point with the payload catalog.
type TestEngine interface {
	ScanPageContent(ctx context.Context, pages []model.PageInfo) ([]model.StoredXSSResult, error)
	ScanPages(ctx context.Context, pages []model.PageInfo, mode catalog.Mode) ([]model.ScanResult, error)
	Stop()
}
