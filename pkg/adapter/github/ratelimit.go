package github

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	gh "github.com/google/go-github/v83/github"
)

const (
	rateLimitThreshold = 10
	rateLimitJitterMS  = 2000
)

// checkRateLimit blocks until the rate limit window resets once the
// remaining request budget drops to the threshold.
func (c *Client) checkRateLimit(ctx context.Context, resp *gh.Response) error {
	if resp == nil {
		return nil
	}

	if resp.Rate.Remaining > rateLimitThreshold {
		return nil
	}

	resetAt := resp.Rate.Reset.Time
	wait := resetAt.Sub(c.now())
	if wait <= 0 {
		return nil
	}

	jitter := time.Duration(rand.IntN(rateLimitJitterMS)) * time.Millisecond
	total := wait + jitter

	slog.Info("rate limit approaching, waiting",
		"remaining", resp.Rate.Remaining,
		"reset_at", resetAt.Format(time.RFC3339),
		"wait", total.String(),
	)

	return c.sleep(ctx, total)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
