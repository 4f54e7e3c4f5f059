package pipeline

import "github.com/dgallion1/recgest/internal/logger"

// ProgressFunc receives coarse milestones of a run. total is 0 when the
// phase has no meaningful denominator; detail may be empty.
type ProgressFunc func(done, total int, msg, detail string)

// progressSink calls a ProgressFunc best-effort: a nil func is a no-op and
// a panicking one is logged and ignored.
type progressSink struct {
	fn  ProgressFunc
	log *logger.Logger
}

func (p progressSink) report(done, total int, msg string) {
	p.reportDetail(done, total, msg, "")
}

func (p progressSink) reportDetail(done, total int, msg, detail string) {
	if p.fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil && p.log != nil {
			p.log.Warn("progress callback panicked", "panic", r)
		}
	}()
	p.fn(done, total, msg, detail)
}
