package parser

import (
	"reflect"
	"testing"

	"github.com/PentesterFlow/xssprobe/internal/scope"
)

func newParser(t *testing.T) *Parser {
	t.Helper()
	n, err := scope.NewNormalizer("http://example.com")
	if err != nil {
		t.Fatal(err)
	}
	return New(n)
}

// =============================================================================
// Parse Tests
// =============================================================================

func TestParse_Params(t *testing.T) {
	p := newParser(t)

	page, err := p.Parse("http://example.com/item?id=7&id=8&q=", "<html></html>")
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]string{"id": "7", "q": ""}
	if !reflect.DeepEqual(page.Params, want) {
		t.Errorf("Params = %v, want %v", page.Params, want)
	}
}

func TestParse_Forms(t *testing.T) {
	p := newParser(t)

	body := `
		<html><body>
			<form action="/search" method="POST">
				<input type="text" name="q" value="test">
				<input type="submit">
				<textarea name="comment"> hello </textarea>
				<select name="sort">
					<option value="new">Newest</option>
					<option value="old" selected>Oldest</option>
				</select>
				<input name="plain">
			</form>
			<form>
				<input name="page" type="HIDDEN" value="2">
			</form>
			<form method="put" action="https://other.org/x#frag"></form>
		</body></html>`

	page, err := p.Parse("http://example.com/dir/page", body)
	if err != nil {
		t.Fatal(err)
	}

	if len(page.Forms) != 3 {
		t.Fatalf("got %d forms, want 3", len(page.Forms))
	}

	first := page.Forms[0]
	if first.Action != "http://example.com/search" {
		t.Errorf("action = %q", first.Action)
	}
	if first.Method != "post" {
		t.Errorf("method = %q, want post", first.Method)
	}
	if len(first.Inputs) != 4 {
		t.Fatalf("got %d inputs, want 4 (unnamed submit dropped)", len(first.Inputs))
	}

	checks := []struct {
		idx      int
		name     string
		typ      string
		defValue string
	}{
		{0, "q", "text", "test"},
		{1, "comment", "textarea", "hello"},
		{2, "sort", "select", "old"},
		{3, "plain", "text", ""},
	}
	for _, c := range checks {
		in := first.Inputs[c.idx]
		if in.Name != c.name || in.Type != c.typ || in.DefaultValue != c.defValue {
			t.Errorf("input %d = %+v, want {%s %s %s}", c.idx, in, c.name, c.typ, c.defValue)
		}
	}

	second := page.Forms[1]
	if second.Action != "http://example.com/dir/page" {
		t.Errorf("default action = %q", second.Action)
	}
	if second.Method != "get" {
		t.Errorf("default method = %q", second.Method)
	}
	if second.Inputs[0].Type != "hidden" {
		t.Errorf("type = %q, want hidden", second.Inputs[0].Type)
	}

	third := page.Forms[2]
	if third.Method != "get" {
		t.Errorf("unknown method mapped to %q, want get", third.Method)
	}
	if third.Action != "https://other.org/x" {
		t.Errorf("action = %q", third.Action)
	}
}

func TestParse_OrphanInputs(t *testing.T) {
	p := newParser(t)

	body := `
		<div>
			<input name="search" value="x">
			<input type="button" value="go">
			<textarea name="note"></textarea>
		</div>
		<form action="/f"><input name="inside"></form>`

	page, err := p.Parse("http://example.com/p?a=1", body)
	if err != nil {
		t.Fatal(err)
	}

	if len(page.Forms) != 2 {
		t.Fatalf("got %d forms, want 2", len(page.Forms))
	}

	orphan := page.Forms[1]
	if orphan.Action != "http://example.com/p?a=1" || orphan.Method != "get" {
		t.Errorf("orphan form = %+v", orphan)
	}
	if len(orphan.Inputs) != 2 {
		t.Fatalf("orphan inputs = %d, want 2", len(orphan.Inputs))
	}
	if orphan.Inputs[0].Name != "search" || orphan.Inputs[1].Name != "note" {
		t.Errorf("orphan inputs = %+v", orphan.Inputs)
	}
}

func TestParse_Links(t *testing.T) {
	p := newParser(t)

	body := `
		<a href="/b">B</a>
		<a href="a.html#part">A</a>
		<a href="/b">B again</a>
		<a href="http://example.com/c?x=1">C</a>
		<a href="https://evil.com/">Out</a>
		<a href="http://sub.example.com/">Sub</a>
		<a href="javascript:void(0)">JS</a>
		<a href="mailto:x@example.com">Mail</a>
		<a href="#top">Top</a>
		<a>No href</a>`

	page, err := p.Parse("http://example.com/dir/", body)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		"http://example.com/b",
		"http://example.com/c?x=1",
		"http://example.com/dir/a.html",
	}
	if !reflect.DeepEqual(page.Links, want) {
		t.Errorf("Links = %v, want %v", page.Links, want)
	}
}

func TestParse_BrokenMarkup(t *testing.T) {
	p := newParser(t)

	page, err := p.Parse("http://example.com/", `<form><input name="a"<div><a href="/x">`)
	if err != nil {
		t.Fatalf("malformed markup should not fail: %v", err)
	}
	if page.URL != "http://example.com/" {
		t.Errorf("URL = %q", page.URL)
	}
}

func TestParse_BadURL(t *testing.T) {
	p := newParser(t)
	if _, err := p.Parse("http://[::1", "<html>"); err == nil {
		t.Error("expected error for unparsable page URL")
	}
}
