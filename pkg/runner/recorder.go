package runner

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
)

// recorder collects assertion failures of one step. it stands in for *testing.T outside go test:
// FailNow stops the calling goroutine like testing does, so steps must run in their own goroutine.
type recorder struct {
	logf func(format string, args ...any)

	mu       sync.Mutex
	failed   bool
	failures []string
}

func newRecorder(logf func(format string, args ...any)) *recorder {
	return &recorder{logf: logf}
}

// Errorf records a failure and lets the step continue.
func (r *recorder) Errorf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = true
	r.failures = append(r.failures, strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// FailNow marks the step failed and stops it.
func (r *recorder) FailNow() {
	r.mu.Lock()
	r.failed = true
	r.mu.Unlock()
	runtime.Goexit()
}

// Helper is a no-op, call sites are not reported.
func (r *recorder) Helper() {}

// Logf forwards to the run logger.
func (r *recorder) Logf(format string, args ...any) {
	if r.logf != nil {
		r.logf(format, args...)
	}
}

func (r *recorder) Failed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed
}

func (r *recorder) Failures() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]string, len(r.failures))
	copy(res, r.failures)
	return res
}

// run executes step in a separate goroutine and waits for it, so FailNow ends only the step.
// a panic inside the step is recorded as a failure.
func (r *recorder) run(step func(t *recorder)) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if p := recover(); p != nil {
				r.Errorf("panic: %v", p)
			}
		}()
		step(r)
	}()
	<-done
}
