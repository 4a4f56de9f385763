package fillmodel

import (
	"math/rand"

	"github.com/uri157/exchange-simulator/internal/core"
)

// RandomOHLC chooses up_first per bar from a seeded PRNG. Determinism is
// derived from (seed, bar.OpenTimeMs) rather than from call order, so the
// same seed and bar sequence always produce the same fill sequence (§4.2b)
// regardless of how many orders are evaluated against a given bar.
type RandomOHLC struct {
	Seed        int64
	SlippageBps float64

	cache map[int64]bool
}

// NewRandomOHLC constructs a RandomOHLC with its per-bar decision cache
// initialized.
func NewRandomOHLC(seed int64, slippageBps float64) *RandomOHLC {
	return &RandomOHLC{Seed: seed, SlippageBps: slippageBps, cache: make(map[int64]bool)}
}

// FillsOnBar implements Model.
func (m *RandomOHLC) FillsOnBar(bar core.Bar, order *core.Order) []core.Fill {
	return fillsOnBarOHLC(bar, order, m.upFirstFor(bar), m.SlippageBps)
}

func (m *RandomOHLC) upFirstFor(bar core.Bar) bool {
	if m.cache == nil {
		m.cache = make(map[int64]bool)
	}
	if v, ok := m.cache[bar.OpenTimeMs]; ok {
		return v
	}
	src := rand.NewSource(m.Seed ^ bar.OpenTimeMs)
	v := rand.New(src).Float64() < 0.5
	m.cache[bar.OpenTimeMs] = v
	return v
}
