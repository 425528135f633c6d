package blobstore

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// RateLimitedWriter throttles writes against a shared limiter, capping
// download bandwidth when models are fetched next to latency-sensitive
// traffic.
type RateLimitedWriter struct {
	ctx     context.Context
	w       io.Writer
	limiter *rate.Limiter
}

// NewRateLimitedWriter wraps w. A nil limiter disables throttling.
func NewRateLimitedWriter(ctx context.Context, w io.Writer, limiter *rate.Limiter) io.Writer {
	if limiter == nil {
		return w
	}
	return &RateLimitedWriter{ctx: ctx, w: w, limiter: limiter}
}

func (w *RateLimitedWriter) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		chunk := min(len(p), w.limiter.Burst())
		if err := w.limiter.WaitN(w.ctx, chunk); err != nil {
			return written, err
		}
		n, err := w.w.Write(p[:chunk])
		written += n
		if err != nil {
			return written, err
		}
		p = p[chunk:]
	}
	return written, nil
}
