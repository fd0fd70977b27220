package gosom

import (
	"time"

	"golang.org/x/time/rate"
)

// ProgressFunc receives best-effort epoch notifications during training.
// epoch counts from 0 to total-1. Implementations must return quickly;
// training blocks on the callback.
type ProgressFunc func(epoch, total int)

// progressNotifier throttles epoch notifications so that slow display
// consumers never dominate short epochs. The first and last epoch are always
// delivered.
type progressNotifier struct {
	fn      ProgressFunc
	limiter *rate.Limiter
	total   int
}

func newProgressNotifier(fn ProgressFunc, minInterval time.Duration, total int) *progressNotifier {
	if fn == nil {
		return nil
	}

	var limiter *rate.Limiter
	if minInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(minInterval), 1)
	}

	return &progressNotifier{
		fn:      fn,
		limiter: limiter,
		total:   total,
	}
}

// notify reports a completed epoch. A nil notifier is a no-op.
func (p *progressNotifier) notify(epoch int) {
	if p == nil {
		return
	}
	if epoch == 0 || epoch == p.total-1 || p.limiter == nil || p.limiter.Allow() {
		p.fn(epoch, p.total)
	}
}
