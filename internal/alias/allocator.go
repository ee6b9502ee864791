package alias

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/filedrop/service/internal/middleware"
)

// slugAlphabet is the 62-symbol alphanumeric alphabet slugs are drawn from.
const slugAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// SlugLength is the fixed length of every minted slug.
const SlugLength = 8

// DefaultRetries caps candidate redraws when no budget is configured.
const DefaultRetries = 8

// Outcome tags the result of an allocation.
type Outcome int

const (
	// Minted means a fresh slug was bound to the target key.
	Minted Outcome = iota
	// Collided means a candidate hit a live binding and was redrawn.
	Collided
	// Exhausted means every candidate in the retry budget collided.
	Exhausted
)

// String returns the lowercase tag name, used as a metric label.
func (o Outcome) String() string {
	switch o {
	case Minted:
		return "minted"
	case Collided:
		return "collided"
	case Exhausted:
		return "exhausted"
	}
	return "unknown"
}

// Result reports what an Allocate call did.
type Result struct {
	Slug     string
	Outcome  Outcome
	Attempts int
}

// Allocator mints short slugs and binds them in an Index.
//
// Each draw collides with probability 1/62^8 against a random live slug, so
// the bounded retry loop is the only retry anywhere: exhaustion is a real,
// recoverable outcome that callers decide how to soften.
type Allocator struct {
	idx     Index
	retries int
}

// NewAllocator creates an Allocator with the given retry budget.
// A non-positive budget falls back to DefaultRetries.
func NewAllocator(idx Index, retries int) *Allocator {
	if retries <= 0 {
		retries = DefaultRetries
	}
	return &Allocator{idx: idx, retries: retries}
}

// Allocate draws slug candidates until one binds to targetKey or the retry
// budget runs out. ttl <= 0 mints an unexpiring alias. On exhaustion the
// returned error is ErrExhausted and Result.Outcome is Exhausted.
func (a *Allocator) Allocate(ctx context.Context, targetKey string, ttl time.Duration) (Result, error) {
	for attempt := 1; attempt <= a.retries; attempt++ {
		candidate, err := randomSlug()
		if err != nil {
			return Result{Attempts: attempt}, fmt.Errorf("draw slug candidate: %w", err)
		}

		bound, err := a.idx.Bind(ctx, candidate, targetKey, ttl)
		if err != nil {
			return Result{Attempts: attempt}, err
		}
		if bound {
			middleware.SlugAllocations.WithLabelValues(Minted.String()).Inc()
			return Result{Slug: candidate, Outcome: Minted, Attempts: attempt}, nil
		}
		middleware.SlugAllocations.WithLabelValues(Collided.String()).Inc()
	}

	middleware.SlugAllocations.WithLabelValues(Exhausted.String()).Inc()
	return Result{Outcome: Exhausted, Attempts: a.retries}, ErrExhausted
}

// randomSlug draws SlugLength symbols uniformly from slugAlphabet.
func randomSlug() (string, error) {
	max := big.NewInt(int64(len(slugAlphabet)))
	buf := make([]byte, SlugLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = slugAlphabet[n.Int64()]
	}
	return string(buf), nil
}
