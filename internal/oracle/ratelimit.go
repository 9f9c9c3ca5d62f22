package oracle

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/dchest/siphash"
	"golang.org/x/time/rate"
)

// SubmissionLimiter throttles the permissionless submit_rrset/delete_rrset
// entry points per caller identity, addressing spec.md §5's allowance that
// "an implementation may impose resource bounds... and fail with
// ResourceExceeded": a permissionless oracle that runs full signature
// verification on every call is an obvious CPU-exhaustion target.
//
// Adapted from internal/engine.RateLimiter's token-bucket-per-client
// pattern (golang.org/x/time/rate, periodic full-map cleanup), but keyed on
// an opaque caller identity bucketed through a siphash-keyed digest rather
// than a net.IP — exactly the role internal/cookie.Manager gives siphash
// (a keyed pseudorandom function over attacker-influenced input, used for
// DoS-resistant bucketing, never as a security boundary by itself).
type SubmissionLimiter struct {
	mu              sync.Mutex
	limiters        map[uint64]*rate.Limiter
	perSecond       rate.Limit
	burst           int
	cleanupInterval time.Duration
	lastCleanup     time.Time
	bucketKey       [16]byte
}

// SubmissionLimiterConfig configures a SubmissionLimiter.
type SubmissionLimiterConfig struct {
	PerSecond       float64
	Burst           int
	CleanupInterval time.Duration
}

// DefaultSubmissionLimiterConfig mirrors internal/engine's defaults, scaled
// down: signature verification is far more expensive per call than a
// cache lookup, so submissions get a tighter budget than DNS queries do.
func DefaultSubmissionLimiterConfig() SubmissionLimiterConfig {
	return SubmissionLimiterConfig{
		PerSecond:       10,
		Burst:           20,
		CleanupInterval: 5 * time.Minute,
	}
}

// NewSubmissionLimiter constructs a SubmissionLimiter with a random
// per-process siphash key, so bucket assignment cannot be predicted or
// targeted by an external caller choosing identities to collide.
func NewSubmissionLimiter(cfg SubmissionLimiterConfig) *SubmissionLimiter {
	l := &SubmissionLimiter{
		limiters:        make(map[uint64]*rate.Limiter),
		perSecond:       rate.Limit(cfg.PerSecond),
		burst:           cfg.Burst,
		cleanupInterval: cfg.CleanupInterval,
		lastCleanup:     time.Now(),
	}
	rand.Read(l.bucketKey[:])
	return l
}

func (l *SubmissionLimiter) bucket(identity string) uint64 {
	h := siphash.New(l.bucketKey[:])
	h.Write([]byte(identity))
	return h.Sum64()
}

// Allow reports whether a call from identity should proceed. The empty
// identity (an unauthenticated transport) shares a single bucket.
func (l *SubmissionLimiter) Allow(identity string) bool {
	key := l.bucket(identity)

	l.mu.Lock()
	defer l.mu.Unlock()

	if time.Since(l.lastCleanup) > l.cleanupInterval {
		l.limiters = make(map[uint64]*rate.Limiter)
		l.lastCleanup = time.Now()
	}

	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.perSecond, l.burst)
		l.limiters[key] = limiter
	}
	return limiter.Allow()
}

// TrackedBuckets returns how many distinct buckets currently hold a
// limiter, for metrics/diagnostics.
func (l *SubmissionLimiter) TrackedBuckets() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
