// Package coursecode generates short join codes for courses. Codes are
// drawn uniformly from a 36-symbol alphabet and checked against an
// injected uniqueness oracle, retrying up to a fixed bound on collision.
package coursecode

import (
	"context"
	"errors"
	"math/rand"
	"sync"
)

const (
	alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// Length is the fixed length of every generated code.
	Length = 6

	// MaxAttempts bounds how many candidates a single Generate call draws.
	MaxAttempts = 5
)

// ErrAttemptsExhausted is returned when no unique code was found within
// MaxAttempts draws. A fresh Generate call is an independent retry.
var ErrAttemptsExhausted = errors.New("course code generation attempts exhausted")

// UniquenessOracle answers whether a candidate code is still free. The
// generator itself has no knowledge of how uniqueness is determined.
type UniquenessOracle interface {
	IsUnique(ctx context.Context, code string) (bool, error)
}

// OracleFunc adapts a function to the UniquenessOracle interface.
type OracleFunc func(ctx context.Context, code string) (bool, error)

// IsUnique calls f.
func (f OracleFunc) IsUnique(ctx context.Context, code string) (bool, error) {
	return f(ctx, code)
}

// Generator produces unique join codes. It is safe for concurrent use.
type Generator struct {
	oracle   UniquenessOracle
	observer func(attempts int)

	mu  sync.Mutex
	rnd *rand.Rand
}

// Option customises a Generator.
type Option func(*Generator)

// WithAttemptObserver registers a callback invoked after every Generate
// call with the number of candidates drawn.
func WithAttemptObserver(fn func(attempts int)) Option {
	return func(g *Generator) {
		g.observer = fn
	}
}

// New constructs a Generator around the given oracle and random source.
// Tests inject a seeded source for deterministic draws.
func New(oracle UniquenessOracle, src rand.Source, opts ...Option) *Generator {
	g := &Generator{
		oracle: oracle,
		rnd:    rand.New(src),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate draws random codes until the oracle accepts one or MaxAttempts
// candidates have been rejected. It never returns a non-unique code and
// never consults the oracle after the first acceptance.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		code := g.draw()

		unique, err := g.oracle.IsUnique(ctx, code)
		if err != nil {
			return "", err
		}
		if unique {
			g.observe(attempt)
			return code, nil
		}
	}

	g.observe(MaxAttempts)
	return "", ErrAttemptsExhausted
}

func (g *Generator) observe(attempts int) {
	if g.observer != nil {
		g.observer(attempts)
	}
}

func (g *Generator) draw() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	buf := make([]byte, Length)
	for i := range buf {
		buf[i] = alphabet[g.rnd.Intn(len(alphabet))]
	}
	return string(buf)
}
