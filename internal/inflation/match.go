package inflation

import (
	"errors"
	"sort"
	"time"

	"implied-inflation/internal/tesouro"
)

// ErrNoCandidates means there is no inflation-linked bond to match against.
var ErrNoCandidates = errors.New("no inflation-linked candidates to match")

// Match is the nearest inflation-linked bond for a given maturity.
type Match struct {
	Quote    tesouro.Quote
	Distance int64
}

// Matcher finds the inflation-linked bond with the closest maturity.
type Matcher struct {
	metric     Metric
	candidates []tesouro.Quote
	positions  []int64
}

// NewMatcher sorts candidates by maturity. Ties on maturity are ordered by
// bond type then purchase rate so the input order never matters.
func NewMatcher(metric Metric, candidates []tesouro.Quote) *Matcher {
	sorted := append([]tesouro.Quote(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		pa, pb := metric.Position(a.Maturity), metric.Position(b.Maturity)
		if pa != pb {
			return pa < pb
		}
		if a.BondType != b.BondType {
			return a.BondType < b.BondType
		}
		return a.PurchaseRate.LessThan(b.PurchaseRate)
	})

	positions := make([]int64, len(sorted))
	for i, q := range sorted {
		positions[i] = metric.Position(q.Maturity)
	}
	return &Matcher{metric: metric, candidates: sorted, positions: positions}
}

// Candidates returns the sorted candidate set.
func (m *Matcher) Candidates() []tesouro.Quote {
	return m.candidates
}

// Nearest returns the candidate with minimum distance to maturity. When two
// candidates are equally distant the first in maturity order wins.
func (m *Matcher) Nearest(maturity time.Time) (Match, error) {
	if len(m.candidates) == 0 {
		return Match{}, ErrNoCandidates
	}

	target := m.metric.Position(maturity)
	idx := sort.Search(len(m.positions), func(i int) bool {
		return m.positions[i] >= target
	})

	best := -1
	var bestDist int64
	// Only the neighbours around the insertion point can be nearest.
	for _, i := range []int{idx - 1, idx} {
		if i < 0 || i >= len(m.positions) {
			continue
		}
		d := abs64(m.positions[i] - target)
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	// first of an equal-position run
	for best > 0 && m.positions[best-1] == m.positions[best] {
		best--
	}

	return Match{Quote: m.candidates[best], Distance: bestDist}, nil
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
