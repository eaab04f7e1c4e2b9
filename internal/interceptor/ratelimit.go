package interceptor

import (
	"context"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// tokenBucket implements a simple token bucket rate limiter.
type tokenBucket struct {
	mu       sync.Mutex
	tokens   float64
	max      float64
	rate     float64 // tokens per second
	lastTime time.Time
	now      func() time.Time
}

func newTokenBucket(rps int, now func() time.Time) *tokenBucket {
	return &tokenBucket{
		tokens:   float64(rps),
		max:      float64(rps),
		rate:     float64(rps),
		lastTime: now(),
		now:      now,
	}
}

func (tb *tokenBucket) allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	elapsed := now.Sub(tb.lastTime).Seconds()
	tb.lastTime = now

	tb.tokens = min(tb.tokens+elapsed*tb.rate, tb.max)
	if tb.tokens < 1 {
		return false
	}
	tb.tokens--
	return true
}

// Limiter shares one token bucket between the unary and stream paths.
type Limiter struct {
	bucket *tokenBucket
}

// NewLimiter allows rps calls per second with bursts of up to rps.
func NewLimiter(rps int) *Limiter {
	return &Limiter{bucket: newTokenBucket(rps, time.Now)}
}

// Unary returns a unary interceptor that enforces the limit.
func (l *Limiter) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !l.bucket.allow() {
			return nil, status.Error(codes.ResourceExhausted, "rate limit exceeded")
		}
		return handler(ctx, req)
	}
}

// Stream returns a stream interceptor that enforces the limit.
func (l *Limiter) Stream() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if !l.bucket.allow() {
			return status.Error(codes.ResourceExhausted, "rate limit exceeded")
		}
		return handler(srv, ss)
	}
}
