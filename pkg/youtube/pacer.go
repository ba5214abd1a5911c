package youtube

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces consecutive remote calls. It never runs calls in parallel;
// it only delays the next one.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer allows perSecond calls per second. Zero or negative disables pacing.
func NewPacer(perSecond float64) *Pacer {
	if perSecond <= 0 {
		return &Pacer{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Limit(perSecond), 1)}
}

// Wait blocks until the next call may start
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return ctx.Err()
	}
	return p.limiter.Wait(ctx)
}

// Interval is the minimum spacing between calls, zero when unpaced
func (p *Pacer) Interval() time.Duration {
	if p == nil || p.limiter == nil || p.limiter.Limit() == rate.Inf {
		return 0
	}
	return time.Duration(float64(time.Second) / float64(p.limiter.Limit()))
}
