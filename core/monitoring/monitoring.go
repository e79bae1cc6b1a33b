// Package monitoring reports failures of the balancer to an error tracker.
// A process wide Monitor is installed with Init; the zero state discards
// everything.
package monitoring

import (
	"strconv"
	"sync"
	"time"
)

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	Recover()
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Recover()                                  {}
func (NopMonitor) Flush(time.Duration)                       {}

var (
	mu      sync.RWMutex
	current Monitor = NopMonitor{}
)

// Init sets the global monitor implementation. A nil monitor restores the
// no-op default.
func Init(m Monitor) {
	mu.Lock()
	defer mu.Unlock()
	if m == nil {
		m = NopMonitor{}
	}
	current = m
}

func get() Monitor {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// CaptureException records the error with optional tags.
func CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	get().CaptureException(err, tags)
}

// Capture records err tagged with the reporting module and the extra tags.
func Capture(err error, module string, tags map[string]string) {
	if err == nil {
		return
	}
	all := make(map[string]string, len(tags)+1)
	for k, v := range tags {
		all[k] = v
	}
	all["module"] = module
	get().CaptureException(err, all)
}

// SolveTags identifies a solve in captured events.
func SolveTags(solveID string, requestID int, bmu string) map[string]string {
	return map[string]string{
		"solve_id":   solveID,
		"request_id": strconv.Itoa(requestID),
		"bmu":        bmu,
	}
}

// Recover captures panics in goroutines.
func Recover() {
	get().Recover()
}

// Flush flushes buffered events.
func Flush(d time.Duration) {
	get().Flush(d)
}
