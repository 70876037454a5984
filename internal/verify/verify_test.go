package verify

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PentesterFlow/xssprobe/internal/browser/browsertest"
	"github.com/PentesterFlow/xssprobe/internal/catalog"
)

// =============================================================================
// Poll Tests
// =============================================================================

func TestPoll_ImmediateSuccess(t *testing.T) {
	var calls atomic.Int32
	ok := Poll(context.Background(), time.Hour, time.Hour, func() bool {
		calls.Add(1)
		return true
	})
	if !ok || calls.Load() != 1 {
		t.Errorf("ok = %v, calls = %d", ok, calls.Load())
	}
}

func TestPoll_ZeroTimeoutChecksOnce(t *testing.T) {
	var calls atomic.Int32
	ok := Poll(context.Background(), 10*time.Millisecond, 0, func() bool {
		calls.Add(1)
		return false
	})
	if ok || calls.Load() != 1 {
		t.Errorf("ok = %v, calls = %d; want false, 1", ok, calls.Load())
	}
}

func TestPoll_EventualSuccess(t *testing.T) {
	var calls atomic.Int32
	ok := Poll(context.Background(), 5*time.Millisecond, time.Second, func() bool {
		return calls.Add(1) == 4
	})
	if !ok || calls.Load() != 4 {
		t.Errorf("ok = %v, calls = %d", ok, calls.Load())
	}
}

func TestPoll_NeverPastDeadline(t *testing.T) {
	start := time.Now()
	ok := Poll(context.Background(), 200*time.Millisecond, 50*time.Millisecond, func() bool { return false })
	elapsed := time.Since(start)

	if ok {
		t.Fatal("Poll() = true for a failing check")
	}
	if elapsed > 150*time.Millisecond {
		t.Errorf("Poll slept %v past a 50ms deadline", elapsed)
	}
}

func TestPoll_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	if Poll(ctx, 5*time.Millisecond, 5*time.Second, func() bool { return false }) {
		t.Fatal("Poll() = true after cancel")
	}
	if time.Since(start) > time.Second {
		t.Error("Poll did not stop on cancel")
	}
}

// =============================================================================
// Verifier Tests
// =============================================================================

func echoPage(render func(q string) browsertest.Page) func(browsertest.Request) browsertest.Page {
	return func(r browsertest.Request) browsertest.Page {
		q := r.Fields["q"]
		if i := strings.Index(r.URL, "q="); i >= 0 {
			q = r.URL[i+2:]
		}
		return render(q)
	}
}

func TestVerifyInjection_DialogExecutes(t *testing.T) {
	fake := browsertest.New(echoPage(func(q string) browsertest.Page {
		if strings.Contains(q, "alert") {
			return browsertest.Page{HTML: "<html>" + q + "</html>", Dialog: "XSS_TEST_1"}
		}
		return browsertest.Page{HTML: "<html></html>"}
	}))

	cfg := DefaultConfig()
	cfg.Sink = catalog.SinkDialog
	v := New(fake, cfg, nil)

	out := v.VerifyInjection(context.Background(), Delivery{URL: "http://t/?q=alert"}, "alert")
	if !out.Executed {
		t.Fatal("dialog payload should execute")
	}
	if out.Evidence != "Alert: XSS_TEST_1" {
		t.Errorf("Evidence = %q", out.Evidence)
	}
}

func TestVerifyInjection_NoSideEffectWithinBound(t *testing.T) {
	fake := browsertest.New(func(browsertest.Request) browsertest.Page {
		return browsertest.Page{HTML: "<html>plain</html>", Console: []string{"XSS_TEST_1"}}
	})

	cfg := DefaultConfig()
	cfg.Sink = catalog.SinkDialog
	v := New(fake, cfg, nil)

	start := time.Now()
	out := v.VerifyInjection(context.Background(), Delivery{URL: "http://t/?q=x"}, "<b>x</b>")
	elapsed := time.Since(start)

	if out.Executed || out.Reflected {
		t.Errorf("outcome = %+v, want nothing", out)
	}
	if elapsed > 2500*time.Millisecond {
		t.Errorf("verification took %v, want within ~2s", elapsed)
	}
	if elapsed < 1500*time.Millisecond {
		t.Errorf("verification returned after %v, should wait the load window", elapsed)
	}
}

func TestVerifyInjection_ConsoleMarker(t *testing.T) {
	fake := browsertest.New(func(browsertest.Request) browsertest.Page {
		return browsertest.Page{Console: []string{"noise", "XSS_FULL_3"}}
	})

	out := New(fake, DefaultConfig(), nil).VerifyInjection(context.Background(), Delivery{URL: "http://t/"}, "p")
	if !out.Executed || out.Evidence != "XSS_FULL_3" {
		t.Errorf("outcome = %+v", out)
	}
}

func TestVerifyInjection_ReflectedOnly(t *testing.T) {
	fake := browsertest.New(echoPage(func(q string) browsertest.Page {
		return browsertest.Page{HTML: "<p>" + q + "</p>"}
	}))
	cfg := DefaultConfig()
	cfg.PageLoadWait = 50 * time.Millisecond

	out := New(fake, cfg, nil).VerifyInjection(context.Background(), Delivery{URL: "http://t/?q=<i>z</i>"}, "<i>z</i>")
	if out.Executed || !out.Reflected {
		t.Errorf("outcome = %+v, want reflected only", out)
	}
}

func TestVerifyInjection_PostSubmit(t *testing.T) {
	fake := browsertest.New(echoPage(func(q string) browsertest.Page {
		if q == "" {
			return browsertest.Page{HTML: "<form></form>", Console: []string{"XSS_TEST_9 from host page"}}
		}
		return browsertest.Page{HTML: q}
	}))
	cfg := DefaultConfig()
	cfg.PageLoadWait = 50 * time.Millisecond

	out := New(fake, cfg, nil).VerifyInjection(context.Background(), Delivery{
		URL:     "http://t/post",
		PageURL: "http://t/form",
		Method:  "post",
		Fields:  map[string]string{"q": "payload", "other": "test"},
	}, "payload")

	if out.Executed {
		t.Error("console output of the hosting page must not count")
	}
	if !out.Reflected {
		t.Error("payload should be reflected")
	}

	reqs := fake.Requests()
	if len(reqs) != 2 || reqs[0].URL != "http://t/form" || reqs[1].Method != "post" || reqs[1].Fields["other"] != "test" {
		t.Errorf("requests = %+v", reqs)
	}
}

func TestVerifyInjection_NavigateError(t *testing.T) {
	fake := browsertest.New(func(browsertest.Request) browsertest.Page {
		return browsertest.Page{Err: fmt.Errorf("net::ERR_CONNECTION_REFUSED")}
	})

	out := New(fake, DefaultConfig(), nil).VerifyInjection(context.Background(), Delivery{URL: "http://t/"}, "p")
	if out.Err == nil || out.Executed || out.Reflected {
		t.Errorf("outcome = %+v", out)
	}
}

func TestInspectRendered(t *testing.T) {
	tests := []struct {
		name      string
		page      browsertest.Page
		wantNames []string
	}{
		{
			name:      "dialog",
			page:      browsertest.Page{Dialog: "1"},
			wantNames: []string{"XSS alert executed"},
		},
		{
			name:      "console",
			page:      browsertest.Page{Console: []string{"XSS_SUCCESS"}},
			wantNames: []string{"XSS executed (console)"},
		},
		{
			name: "dom",
			page: browsertest.Page{Elements: map[string][]string{
				"img[onerror]": {`<img src=x onerror="a()">`, `<img onerror=b()>`, `<img onerror=c()>`, `<img onerror=d()>`},
				"[onclick]":    {`<button onclick="go()">`},
			}},
			wantNames: []string{"DOM: img with onerror", "DOM: img with onerror", "DOM: img with onerror", "DOM: element with onclick"},
		},
		{
			name: "clean",
			page: browsertest.Page{HTML: "<p>hi</p>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := browsertest.New(func(browsertest.Request) browsertest.Page { return tt.page })
			results, err := New(fake, DefaultConfig(), nil).InspectRendered(context.Background(), "http://t/")
			if err != nil {
				t.Fatal(err)
			}
			if len(results) != len(tt.wantNames) {
				t.Fatalf("got %d results, want %d: %+v", len(results), len(tt.wantNames), results)
			}
			for i, r := range results {
				if r.PatternName != tt.wantNames[i] {
					t.Errorf("result %d = %q, want %q", i, r.PatternName, tt.wantNames[i])
				}
				if r.URL != "http://t/" || r.Severity == "" {
					t.Errorf("result %d = %+v", i, r)
				}
			}
		})
	}
}

func TestInspectRendered_TruncatesOuterHTML(t *testing.T) {
	long := `<a href="javascript:` + strings.Repeat("x", 300) + `">`
	fake := browsertest.New(func(browsertest.Request) browsertest.Page {
		return browsertest.Page{Elements: map[string][]string{`a[href^="javascript:"]`: {long}}}
	})

	results, err := New(fake, DefaultConfig(), nil).InspectRendered(context.Background(), "http://t/")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results", len(results))
	}
	if got := []rune(results[0].MatchedContent); len(got) != 153 {
		t.Errorf("excerpt length = %d runes, want 150 plus ...", len(got))
	}
}
