package ids

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// ErrExhausted is returned by the random strategy when no unused candidate was
// found within the attempt budget.
var ErrExhausted = errors.New("identifier space exhausted")

type Strategy string

const (
	StrategyUUID   Strategy = "uuid"
	StrategySeq    Strategy = "seq"
	StrategyRandom Strategy = "random"
)

// ParseStrategy maps a config value to a Strategy. Empty means uuid.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyUUID:
		return StrategyUUID, nil
	case StrategySeq, StrategyRandom:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("unknown id strategy %q", s)
}

// Options tune the random strategy.
type Options struct {
	Min, Max    int64
	MaxAttempts int
}

func DefaultOptions() Options {
	return Options{Min: 1, Max: 99_999_999, MaxAttempts: 1000}
}

// Registry holds every identifier issued during one run. Uniqueness is checked
// only against this set, never against the store.
type Registry struct {
	strategy Strategy
	opts     Options
	rng      *rand.Rand

	mu     sync.Mutex
	issued map[string]struct{}
	seq    map[string]int64
}

func NewRegistry(s Strategy, rng *rand.Rand, opts Options) *Registry {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultOptions().MaxAttempts
	}
	if opts.Max < opts.Min {
		opts.Min, opts.Max = opts.Max, opts.Min
	}
	return &Registry{
		strategy: s,
		opts:     opts,
		rng:      rng,
		issued:   make(map[string]struct{}),
		seq:      make(map[string]int64),
	}
}

// Strategy is the id scheme this registry hands out.
func (r *Registry) Strategy() Strategy { return r.strategy }

// Next issues a fresh "<prefix>_<suffix>" identifier.
func (r *Registry) Next(prefix string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.strategy {
	case StrategySeq:
		for {
			r.seq[prefix]++
			id := prefix + "_" + strconv.FormatInt(r.seq[prefix], 10)
			if r.claim(id) {
				return id, nil
			}
		}
	case StrategyRandom:
		span := r.opts.Max - r.opts.Min + 1
		for i := 0; i < r.opts.MaxAttempts; i++ {
			id := prefix + "_" + strconv.FormatInt(r.opts.Min+r.rng.Int63n(span), 10)
			if r.claim(id) {
				return id, nil
			}
		}
		return "", fmt.Errorf("%s after %d attempts: %w", prefix, r.opts.MaxAttempts, ErrExhausted)
	default:
		id := prefix + "_" + uuid.NewString()
		r.claim(id)
		return id, nil
	}
}

// Claim records an externally composed id. It reports false when the id was
// already issued in this run.
func (r *Registry) Claim(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.claim(id)
}

func (r *Registry) claim(id string) bool {
	if _, ok := r.issued[id]; ok {
		return false
	}
	r.issued[id] = struct{}{}
	return true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.issued)
}
