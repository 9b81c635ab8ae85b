package inflation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"implied-inflation/internal/tesouro"
)

var (
	// ErrNoBondsForDate means the table has no rows for the requested reference date.
	ErrNoBondsForDate = errors.New("no bonds for this reference date")
	// ErrNoFixedRateBonds means no Prefixado bond was quoted on the date.
	ErrNoFixedRateBonds = errors.New("no Prefixado bonds for this reference date")
	// ErrNoInflationLinkedBonds means no Tesouro IPCA+ bond was quoted on the date.
	ErrNoInflationLinkedBonds = errors.New("no Tesouro IPCA+ bonds for this reference date")
)

// IsEmptyResultSet reports whether err is one of the empty-subset conditions.
func IsEmptyResultSet(err error) bool {
	return errors.Is(err, ErrNoBondsForDate) ||
		errors.Is(err, ErrNoFixedRateBonds) ||
		errors.Is(err, ErrNoInflationLinkedBonds)
}

// Pattern selects how inflation-linked bonds are recognised.
type Pattern string

const (
	// PatternAnchored matches only the plain "Tesouro IPCA+" title.
	PatternAnchored Pattern = "anchored"
	// PatternSubstring matches any title containing "IPCA".
	PatternSubstring Pattern = "substring"
)

var anchoredIPCA = regexp.MustCompile(`(?i)tesouro ipca\+$`)

// ParsePattern validates a configured pattern name.
func ParsePattern(v string) (Pattern, error) {
	switch p := Pattern(strings.ToLower(strings.TrimSpace(v))); p {
	case "", PatternAnchored:
		return PatternAnchored, nil
	case PatternSubstring:
		return p, nil
	default:
		return "", fmt.Errorf("unknown ipca pattern %q", v)
	}
}

// Classifier splits quotes into fixed-rate and inflation-linked subsets.
type Classifier struct {
	Pattern Pattern
}

// IsFixedRate matches Prefixado titles, excluding the semi-annual coupon variant.
func (c Classifier) IsFixedRate(bondType string) bool {
	name := strings.ToLower(bondType)
	return strings.Contains(name, "prefixado") && !strings.Contains(name, "juros semestrais")
}

// IsInflationLinked matches IPCA+ titles according to the configured pattern.
func (c Classifier) IsInflationLinked(bondType string) bool {
	if c.Pattern == PatternSubstring {
		return strings.Contains(strings.ToLower(bondType), "ipca")
	}
	return anchoredIPCA.MatchString(strings.TrimSpace(bondType))
}

// Split partitions quotes, failing if either subset is empty.
func (c Classifier) Split(quotes []tesouro.Quote) (fixed, linked []tesouro.Quote, err error) {
	for _, q := range quotes {
		switch {
		case c.IsFixedRate(q.BondType):
			fixed = append(fixed, q)
		case c.IsInflationLinked(q.BondType):
			linked = append(linked, q)
		}
	}
	if len(fixed) == 0 {
		return nil, nil, ErrNoFixedRateBonds
	}
	if len(linked) == 0 {
		return nil, nil, ErrNoInflationLinkedBonds
	}
	return fixed, linked, nil
}

// FilterByDate returns the quotes whose reference date is exactly date.
func FilterByDate(quotes []tesouro.Quote, date time.Time) ([]tesouro.Quote, error) {
	day := truncateDay(date)
	out := make([]tesouro.Quote, 0)
	for _, q := range quotes {
		if truncateDay(q.ReferenceDate).Equal(day) {
			out = append(out, q)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoBondsForDate, day.Format(tesouro.DateLayout))
	}
	return out, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
