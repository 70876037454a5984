// Package inject fires payloads at discovered injection points and decides
// what each one did.
package inject

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	fasthttp "github.com/PentesterFlow/xssprobe/internal/http"
	"github.com/PentesterFlow/xssprobe/internal/model"
	"github.com/PentesterFlow/xssprobe/internal/verify"
)

// filler is sent for form inputs that carry no default value.
const filler = "test"

// Task is one payload aimed at one injection point. Form is nil for URL
// query parameters.
type Task struct {
	PageURL string
	Param   string
	Payload string
	Form    *model.Form
}

// Enumerate expands pages into tasks: every query parameter of a page
// with every payload, then every named form input with every payload.
func Enumerate(pages []model.PageInfo, payloads []string) []Task {
	var tasks []Task
	for _, page := range pages {
		names := make([]string, 0, len(page.Params))
		for name := range page.Params {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			for _, p := range payloads {
				tasks = append(tasks, Task{PageURL: page.URL, Param: name, Payload: p})
			}
		}

		for i := range page.Forms {
			form := &page.Forms[i]
			for _, input := range form.Inputs {
				if input.Name == "" {
					continue
				}
				for _, p := range payloads {
					tasks = append(tasks, Task{PageURL: page.URL, Param: input.Name, Payload: p, Form: form})
				}
			}
		}
	}
	return tasks
}

// IsForm reports whether t targets a form input.
func (t Task) IsForm() bool {
	return t.Form != nil
}

// Label names the injection point in results: the bare parameter name, or
// "name (POST)" and "name (GET)" for form inputs.
func (t Task) Label() string {
	if t.Form == nil {
		return t.Param
	}
	return fmt.Sprintf("%s (%s)", t.Param, strings.ToUpper(t.method()))
}

// TargetURL is the URL a result is reported against: the injected page
// URL for parameters, the action for forms.
func (t Task) TargetURL() string {
	if t.Form == nil {
		if u, err := t.InjectedURL(); err == nil {
			return u
		}
		return t.PageURL
	}
	return t.Form.Action
}

// InjectedURL is the page URL with the parameter value replaced by the
// payload. The other parameters keep their values.
func (t Task) InjectedURL() (string, error) {
	u, err := url.Parse(t.PageURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse page URL: %w", err)
	}
	q := u.Query()
	q.Set(t.Param, t.Payload)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Values is the form submission: the payload in the target input and the
// default (or filler) in every other input.
func (t Task) Values() url.Values {
	values := url.Values{}
	if t.Form == nil {
		return values
	}
	for _, input := range t.Form.Inputs {
		if input.Name == "" {
			continue
		}
		switch {
		case input.Name == t.Param:
			values.Set(input.Name, t.Payload)
		case input.DefaultValue != "":
			values.Set(input.Name, input.DefaultValue)
		default:
			values.Set(input.Name, filler)
		}
	}
	return values
}

// Delivery is how a browser should submit t: navigation for parameters and
// GET forms, a synthesized submit from the hosting page for POST forms.
func (t Task) Delivery() (verify.Delivery, error) {
	if t.Form == nil {
		u, err := t.InjectedURL()
		if err != nil {
			return verify.Delivery{}, err
		}
		return verify.Delivery{URL: u}, nil
	}

	values := t.Values()
	if t.method() == "get" {
		u, err := fasthttp.MergeQuery(t.Form.Action, values)
		if err != nil {
			return verify.Delivery{}, fmt.Errorf("failed to build form URL: %w", err)
		}
		return verify.Delivery{URL: u}, nil
	}

	fields := make(map[string]string, len(values))
	for k := range values {
		fields[k] = values.Get(k)
	}
	return verify.Delivery{
		URL:     t.Form.Action,
		PageURL: t.PageURL,
		Method:  "post",
		Fields:  fields,
	}, nil
}

func (t Task) method() string {
	if t.Form != nil && strings.EqualFold(t.Form.Method, "post") {
		return "post"
	}
	return "get"
}
