// Package idalloc hands out short numeric event ids that are unique within a
// registry.
package idalloc

import (
	"errors"
	"math/rand/v2"
	"strconv"
	"sync"
)

// Id range: six decimal digits.
const (
	MinID = 100000
	MaxID = 999999
)

// DefaultMaxAttempts bounds how many random draws Next makes.
const DefaultMaxAttempts = 64

// ErrExhausted is returned when no free id was drawn within the attempt
// budget.
var ErrExhausted = errors.New("idalloc: no free id within attempt budget")

// Registry is the set of ids already in use. It is safe for concurrent use.
type Registry struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// NewRegistry returns a registry seeded with ids.
func NewRegistry(ids ...string) *Registry {
	r := &Registry{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		r.ids[id] = struct{}{}
	}
	return r
}

// Len returns the number of taken ids.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}

// claim marks id as taken, reporting false if it already was.
func (r *Registry) claim(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ids[id]; ok {
		return false
	}
	r.ids[id] = struct{}{}
	return true
}

// Allocator draws random ids and claims them in a registry.
type Allocator struct {
	reg         *Registry
	maxAttempts int

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithRand sets the random source. Tests use a seeded source for
// reproducible ids.
func WithRand(src rand.Source) Option {
	return func(a *Allocator) { a.rng = rand.New(src) }
}

// WithMaxAttempts sets the draw budget per id.
func WithMaxAttempts(n int) Option {
	return func(a *Allocator) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

// New returns an allocator over reg.
func New(reg *Registry, opts ...Option) *Allocator {
	a := &Allocator{
		reg:         reg,
		maxAttempts: DefaultMaxAttempts,
		rng:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Reserve marks an externally chosen id as taken so Next never returns it.
// It reports false if the id was already taken.
func (a *Allocator) Reserve(id string) bool {
	return a.reg.claim(id)
}

// Next draws an unused id and claims it.
func (a *Allocator) Next() (string, error) {
	for range a.maxAttempts {
		id := strconv.Itoa(a.draw())
		if a.reg.claim(id) {
			return id, nil
		}
	}
	return "", ErrExhausted
}

func (a *Allocator) draw() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return MinID + a.rng.IntN(MaxID-MinID+1)
}
