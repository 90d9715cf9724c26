// Package clock injects wall-clock time so time-dependent components
// (watchdog, guards, lifecycle, cache.Cache) can be driven deterministically
// in tests, per spec.md 4.3. cache.TTLCache and the audit store's record
// timestamps read system time directly instead.
package clock

import "time"

// Clock returns the current time in milliseconds since the Unix epoch.
type Clock interface {
	NowMs() int64
}

// System is the production clock, backed by time.Now.
type System struct{}

func NewSystem() System { return System{} }

func (System) NowMs() int64 { return time.Now().UnixMilli() }

// Fake is a test-injected clock. It can be advanced or set directly, and
// may move backward — components that read it must tolerate that
// (ConnectivityWatchdog.SilenceMs is explicitly specified to not crash on a
// backward jump).
type Fake struct {
	ms int64
}

// NewFake starts the fake clock at startMs.
func NewFake(startMs int64) *Fake {
	return &Fake{ms: startMs}
}

func (f *Fake) NowMs() int64 { return f.ms }

// Advance moves the clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.ms += d.Milliseconds()
}

// Set pins the clock to an absolute value, which may be earlier than the
// current value.
func (f *Fake) Set(ms int64) {
	f.ms = ms
}
