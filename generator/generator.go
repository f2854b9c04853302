// Package generator synthesizes JSON payloads from a template.Config.
package generator

import (
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/choi857/kinetic-simulator/template"
)

// Generator produces payloads. It is safe for concurrent use.
type Generator struct {
	mu     sync.Mutex
	rng    *rand.Rand
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Generator
type Option func(*Generator)

// WithSeed makes the random stream reproducible
func WithSeed(seed uint64) Option {
	return func(g *Generator) {
		g.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithClock overrides the time source used for timestamps
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// WithLogger sets the logger for bound and default parse diagnostics
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = l
	}
}

// New creates a Generator seeded from the runtime's random source
func New(opts ...Option) *Generator {
	g := &Generator{
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "generator")
	return g
}

// stream is the random state of a single Generate call
type stream struct {
	rng    *rand.Rand
	now    func() time.Time
	logger *slog.Logger
}

// fork seeds a private stream from the shared source. Only the seeding is locked, so
// concurrent calls walk their templates in parallel.
func (g *Generator) fork() *stream {
	g.mu.Lock()
	s1, s2 := g.rng.Uint64(), g.rng.Uint64()
	g.mu.Unlock()
	return &stream{rng: rand.New(rand.NewPCG(s1, s2)), now: g.now, logger: g.logger}
}

// Generate walks cfg.Template and returns a fresh payload of the same shape
func (g *Generator) Generate(cfg *template.Config) *template.Node {
	w := &walker{g: g, src: g.fork(), cfg: cfg}
	if cfg.Mode == template.ModeAdvanced {
		return w.advanced(cfg.Template, "", template.ClampGroupCount(cfg.GroupCount))
	}
	return w.normal(cfg.Template, "", cfg.Types, cfg.Bounds)
}

// GenerateJSON is Generate followed by compact encoding
func (g *Generator) GenerateJSON(cfg *template.Config) ([]byte, error) {
	return g.Generate(cfg).MarshalJSON()
}
