// Package parser extracts injection points and links from HTML pages.
package parser

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/PentesterFlow/xssprobe/internal/model"
	"github.com/PentesterFlow/xssprobe/internal/scope"
)

const fieldSelector = "input, textarea, select"

// Parser turns a fetched body into a PageInfo.
type Parser struct {
	normalizer *scope.Normalizer
}

// New creates a parser that keeps links on the normalizer's host.
func New(normalizer *scope.Normalizer) *Parser {
	return &Parser{normalizer: normalizer}
}

// Parse builds the PageInfo for body served at pageURL. Malformed markup
// is tolerated; the error is only returned when pageURL is unusable.
func (p *Parser) Parse(pageURL, body string) (*model.PageInfo, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page URL: %w", err)
	}

	root, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)

	page := &model.PageInfo{
		URL:    pageURL,
		Params: queryParams(base),
		Forms:  make([]model.Form, 0),
		Links:  make([]string, 0),
	}

	doc.Find("form").Each(func(i int, s *goquery.Selection) {
		page.Forms = append(page.Forms, parseForm(s, base))
	})

	// Fields outside any form still reach the server when scripts submit them.
	var orphans []model.Input
	doc.Find(fieldSelector).Each(func(i int, s *goquery.Selection) {
		if s.Closest("form").Length() > 0 {
			return
		}
		if input, ok := parseInput(s); ok {
			orphans = append(orphans, input)
		}
	})
	if len(orphans) > 0 {
		page.Forms = append(page.Forms, model.Form{
			Action: pageURL,
			Method: "get",
			Inputs: orphans,
		})
	}

	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		link, ok := p.normalizer.Resolve(href, pageURL)
		if !ok {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		page.Links = append(page.Links, link)
	})
	sort.Strings(page.Links)

	return page, nil
}

// queryParams keeps the first value of each query parameter.
func queryParams(u *url.URL) map[string]string {
	params := make(map[string]string)
	values, _ := url.ParseQuery(u.RawQuery)
	for name, vals := range values {
		if len(vals) > 0 {
			params[name] = vals[0]
		} else {
			params[name] = ""
		}
	}
	return params
}

func parseForm(s *goquery.Selection, base *url.URL) model.Form {
	form := model.Form{
		Action: base.String(),
		Method: "get",
		Inputs: make([]model.Input, 0),
	}

	if action, exists := s.Attr("action"); exists {
		form.Action = resolveAction(base, action)
	}

	if method, exists := s.Attr("method"); exists {
		if strings.EqualFold(strings.TrimSpace(method), "post") {
			form.Method = "post"
		}
	}

	s.Find(fieldSelector).Each(func(i int, field *goquery.Selection) {
		if input, ok := parseInput(field); ok {
			form.Inputs = append(form.Inputs, input)
		}
	})

	return form
}

// parseInput reads one field. Unnamed fields are never submitted and are dropped.
func parseInput(s *goquery.Selection) (model.Input, bool) {
	name, _ := s.Attr("name")
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Input{}, false
	}

	input := model.Input{Name: name}
	switch {
	case s.Is("textarea"):
		input.Type = "textarea"
		input.DefaultValue = strings.TrimSpace(s.Text())
	case s.Is("select"):
		input.Type = "select"
		opt := s.Find("option[selected]").First()
		if opt.Length() == 0 {
			opt = s.Find("option").First()
		}
		if v, exists := opt.Attr("value"); exists {
			input.DefaultValue = v
		} else {
			input.DefaultValue = strings.TrimSpace(opt.Text())
		}
	default:
		input.Type, _ = s.Attr("type")
		input.Type = strings.ToLower(strings.TrimSpace(input.Type))
		if input.Type == "" {
			input.Type = "text"
		}
		input.DefaultValue, _ = s.Attr("value")
	}

	return input, true
}

// resolveAction resolves a form action. Actions may point off-host; the
// engine decides what to test.
func resolveAction(base *url.URL, action string) string {
	ref, err := url.Parse(strings.TrimSpace(action))
	if err != nil {
		return base.String()
	}
	resolved := base.ResolveReference(ref)
	resolved.Fragment = ""
	resolved.RawFragment = ""
	return resolved.String()
}
