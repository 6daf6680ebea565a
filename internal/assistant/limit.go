package assistant

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

type limited struct {
	next    Provider
	limiter *rate.Limiter
}

// Limit caps outbound calls across all users. Calls over the cap fail fast
// with ErrThrottled; perMinute <= 0 leaves the provider unbounded.
func Limit(provider Provider, perMinute int) Provider {
	if perMinute <= 0 {
		return provider
	}
	every := rate.Every(time.Minute / time.Duration(perMinute))
	return &limited{next: provider, limiter: rate.NewLimiter(every, perMinute)}
}

func (l *limited) Generate(ctx context.Context, question string) (string, error) {
	if !l.limiter.Allow() {
		return "", ErrThrottled
	}
	return l.next.Generate(ctx, question)
}
