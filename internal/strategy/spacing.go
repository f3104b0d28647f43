package strategy

// Polarity is the signal family a spacing counter belongs to.
type Polarity int

const (
	Long Polarity = iota
	Risk
)

// SpacingGate enforces a minimum bar distance between emissions. Suppressed
// signals are dropped, not deferred.
type SpacingGate struct {
	minBars int64
	shared  bool
	last    [2]int64
	has     [2]bool
}

// NewSpacingGate creates a gate. minBars <= 0 never suppresses.
func NewSpacingGate(minBars int, scope SpacingScope) *SpacingGate {
	return &SpacingGate{minBars: int64(minBars), shared: scope == SpacingShared}
}

func (g *SpacingGate) slot(p Polarity) int {
	if g.shared {
		return 0
	}
	return int(p)
}

// Allowed reports whether polarity p may emit at bar index.
func (g *SpacingGate) Allowed(p Polarity, index int64) bool {
	s := g.slot(p)
	return !g.has[s] || index-g.last[s] >= g.minBars
}

// Record marks an emission of polarity p at bar index.
func (g *SpacingGate) Record(p Polarity, index int64) {
	s := g.slot(p)
	g.last[s] = index
	g.has[s] = true
}

// Last returns the last recorded emission index for p.
func (g *SpacingGate) Last(p Polarity) (int64, bool) {
	s := g.slot(p)
	return g.last[s], g.has[s]
}
