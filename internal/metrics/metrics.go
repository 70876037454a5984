// Package metrics counts what a scan did.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector collects and aggregates metrics.
type Collector struct {
	// Transport
	requestsTotal atomic.Int64
	errorsTotal   atomic.Int64
	bytesTotal    atomic.Int64

	// Crawl
	pagesCrawled atomic.Int64
	pagesSkipped atomic.Int64
	formsFound   atomic.Int64
	paramsFound  atomic.Int64

	// Injection
	tasksTotal     atomic.Int64
	tasksCompleted atomic.Int64
	reflected      atomic.Int64
	vulnerable     atomic.Int64
	executed       atomic.Int64
	storedFindings atomic.Int64

	responseTimesSum atomic.Int64
	responseTimesNum atomic.Int64

	errorCounts map[string]*atomic.Int64
	errorMu     sync.RWMutex

	statusCodes map[int]*atomic.Int64
	statusMu    sync.RWMutex

	startTime time.Time
}

// New creates a new metrics collector.
func New() *Collector {
	return &Collector{
		errorCounts: make(map[string]*atomic.Int64),
		statusCodes: make(map[int]*atomic.Int64),
		startTime:   time.Now(),
	}
}

// RecordRequest records one HTTP exchange or browser navigation.
func (c *Collector) RecordRequest(statusCode int, d time.Duration, bytes int) {
	c.requestsTotal.Add(1)
	c.bytesTotal.Add(int64(bytes))
	c.responseTimesSum.Add(d.Milliseconds())
	c.responseTimesNum.Add(1)

	if statusCode <= 0 {
		return
	}
	c.statusMu.Lock()
	if c.statusCodes[statusCode] == nil {
		c.statusCodes[statusCode] = &atomic.Int64{}
	}
	c.statusCodes[statusCode].Add(1)
	c.statusMu.Unlock()
}

// RecordError records a failure by category.
func (c *Collector) RecordError(errorType string) {
	c.errorsTotal.Add(1)

	c.errorMu.Lock()
	if c.errorCounts[errorType] == nil {
		c.errorCounts[errorType] = &atomic.Int64{}
	}
	c.errorCounts[errorType].Add(1)
	c.errorMu.Unlock()
}

// RecordPage records a parsed page and its injection points.
func (c *Collector) RecordPage(forms, params int) {
	c.pagesCrawled.Add(1)
	c.formsFound.Add(int64(forms))
	c.paramsFound.Add(int64(params))
}

// RecordSkip records a URL that was not parsed.
func (c *Collector) RecordSkip() {
	c.pagesSkipped.Add(1)
}

// AddTasks records injection tasks scheduled.
func (c *Collector) AddTasks(n int) {
	c.tasksTotal.Add(int64(n))
}

// RecordResult records a finished injection task.
func (c *Collector) RecordResult(reflected, vulnerable, executed bool) {
	c.tasksCompleted.Add(1)
	if reflected {
		c.reflected.Add(1)
	}
	if vulnerable {
		c.vulnerable.Add(1)
	}
	if executed {
		c.executed.Add(1)
	}
}

// RecordStored records stored-content findings.
func (c *Collector) RecordStored(n int) {
	c.storedFindings.Add(int64(n))
}

// AverageResponseTime returns the mean response time.
func (c *Collector) AverageResponseTime() time.Duration {
	num := c.responseTimesNum.Load()
	if num == 0 {
		return 0
	}
	return time.Duration(c.responseTimesSum.Load()/num) * time.Millisecond
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() *Snapshot {
	s := &Snapshot{
		Timestamp:           time.Now(),
		Uptime:              time.Since(c.startTime),
		RequestsTotal:       c.requestsTotal.Load(),
		ErrorsTotal:         c.errorsTotal.Load(),
		BytesTotal:          c.bytesTotal.Load(),
		PagesCrawled:        c.pagesCrawled.Load(),
		PagesSkipped:        c.pagesSkipped.Load(),
		FormsFound:          c.formsFound.Load(),
		ParamsFound:         c.paramsFound.Load(),
		TasksTotal:          c.tasksTotal.Load(),
		TasksCompleted:      c.tasksCompleted.Load(),
		Reflected:           c.reflected.Load(),
		Vulnerable:          c.vulnerable.Load(),
		Executed:            c.executed.Load(),
		StoredFindings:      c.storedFindings.Load(),
		AverageResponseTime: c.AverageResponseTime(),
		ErrorCounts:         make(map[string]int64),
		StatusCodes:         make(map[int]int64),
	}

	c.errorMu.RLock()
	for k, v := range c.errorCounts {
		s.ErrorCounts[k] = v.Load()
	}
	c.errorMu.RUnlock()

	c.statusMu.RLock()
	for k, v := range c.statusCodes {
		s.StatusCodes[k] = v.Load()
	}
	c.statusMu.RUnlock()

	return s
}

// Snapshot represents a point-in-time view of metrics.
type Snapshot struct {
	Timestamp           time.Time        `json:"timestamp"`
	Uptime              time.Duration    `json:"uptime"`
	RequestsTotal       int64            `json:"requests_total"`
	ErrorsTotal         int64            `json:"errors_total"`
	BytesTotal          int64            `json:"bytes_total"`
	PagesCrawled        int64            `json:"pages_crawled"`
	PagesSkipped        int64            `json:"pages_skipped"`
	FormsFound          int64            `json:"forms_found"`
	ParamsFound         int64            `json:"params_found"`
	TasksTotal          int64            `json:"tasks_total"`
	TasksCompleted      int64            `json:"tasks_completed"`
	Reflected           int64            `json:"reflected"`
	Vulnerable          int64            `json:"vulnerable"`
	Executed            int64            `json:"executed"`
	StoredFindings      int64            `json:"stored_findings"`
	AverageResponseTime time.Duration    `json:"average_response_time"`
	ErrorCounts         map[string]int64 `json:"error_counts"`
	StatusCodes         map[int]int64    `json:"status_codes"`
}

// ErrorRate returns errors per request.
func (s *Snapshot) ErrorRate() float64 {
	if s.RequestsTotal == 0 {
		return 0
	}
	return float64(s.ErrorsTotal) / float64(s.RequestsTotal)
}

// Summary returns a human-readable summary.
func (s *Snapshot) Summary() map[string]interface{} {
	return map[string]interface{}{
		"uptime":               s.Uptime.Round(time.Millisecond).String(),
		"requests_total":       s.RequestsTotal,
		"errors_total":         s.ErrorsTotal,
		"error_rate":           s.ErrorRate(),
		"pages_crawled":        s.PagesCrawled,
		"pages_skipped":        s.PagesSkipped,
		"tasks_completed":      s.TasksCompleted,
		"reflected":            s.Reflected,
		"vulnerable":           s.Vulnerable,
		"executed":             s.Executed,
		"stored_findings":      s.StoredFindings,
		"avg_response_time_ms": s.AverageResponseTime.Milliseconds(),
	}
}
