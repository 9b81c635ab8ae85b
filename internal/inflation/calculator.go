package inflation

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"implied-inflation/internal/tesouro"
)

var minRate = decimal.NewFromInt(-100)

// Options configure a Calculator.
type Options struct {
	Pattern Pattern
	Metric  Metric
}

// Request selects the reference date and, optionally, a target maturity at
// which the IPCA+ curve is interpolated.
type Request struct {
	ReferenceDate time.Time
	Target        *time.Time
}

// Row is the outcome for one fixed-rate bond.
type Row struct {
	ReferenceDate    time.Time
	BondType         string
	Maturity         time.Time
	FixedRate        decimal.Decimal
	IPCABondType     string
	IPCAMaturity     time.Time
	IPCARate         decimal.Decimal
	Distance         int64
	ImpliedInflation decimal.Decimal

	InterpolatedRate    decimal.NullDecimal
	InterpolatedImplied decimal.NullDecimal
}

// Result is one full pass over a reference date.
type Result struct {
	ReferenceDate time.Time
	Target        *time.Time
	Metric        Metric
	Pattern       Pattern
	Rows          []Row
	// Used lists the source quotes that took part, in source order.
	Used []tesouro.Quote
	// InterpolatedRate is the IPCA+ curve at Target, when it could be computed.
	InterpolatedRate decimal.NullDecimal
	Warnings         []string
}

// Calculator runs the filter, match, interpolate and formula steps.
type Calculator struct {
	classifier Classifier
	metric     Metric
	logger     zerolog.Logger
}

// NewCalculator constructs a Calculator.
func NewCalculator(opts Options, logger zerolog.Logger) *Calculator {
	if opts.Pattern == "" {
		opts.Pattern = PatternAnchored
	}
	if opts.Metric == "" {
		opts.Metric = MetricOrdinal
	}
	return &Calculator{
		classifier: Classifier{Pattern: opts.Pattern},
		metric:     opts.Metric,
		logger:     logger.With().Str("component", "calculator").Logger(),
	}
}

// Compute produces one row per fixed-rate bond quoted on req.ReferenceDate.
func (c *Calculator) Compute(quotes []tesouro.Quote, req Request) (*Result, error) {
	dated, err := FilterByDate(quotes, req.ReferenceDate)
	if err != nil {
		return nil, err
	}

	fixed, linked, err := c.classifier.Split(dated)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, req.ReferenceDate.Format(tesouro.DateLayout))
	}

	for _, q := range linked {
		if !q.PurchaseRate.GreaterThan(minRate) {
			return nil, fmt.Errorf("line %d: ipca rate %s out of range", q.Line, q.PurchaseRate)
		}
	}

	matcher := NewMatcher(c.metric, linked)
	result := &Result{
		ReferenceDate: truncateDay(req.ReferenceDate),
		Target:        req.Target,
		Metric:        c.metric,
		Pattern:       c.classifier.Pattern,
		Rows:          make([]Row, 0, len(fixed)),
	}

	if req.Target != nil {
		rate, err := c.interpolate(matcher.Candidates(), *req.Target)
		switch {
		case err == nil:
			result.InterpolatedRate = decimal.NewNullDecimal(rate)
		case errors.Is(err, ErrInsufficientPoints):
			msg := fmt.Sprintf("interpolation skipped: %d distinct IPCA+ maturities, need 2", NewCurve(c.points(linked)).Len())
			result.Warnings = append(result.Warnings, msg)
			c.logger.Warn().Time("reference_date", result.ReferenceDate).Msg(msg)
		default:
			return nil, err
		}
	}

	used := make(map[quoteKey]struct{})
	for _, q := range fixed {
		m, err := matcher.Nearest(q.Maturity)
		if err != nil {
			return nil, fmt.Errorf("match %s %s: %w", q.BondType, q.Maturity.Format(tesouro.DateLayout), err)
		}

		row := Row{
			ReferenceDate:    q.ReferenceDate,
			BondType:         q.BondType,
			Maturity:         q.Maturity,
			FixedRate:        q.PurchaseRate,
			IPCABondType:     m.Quote.BondType,
			IPCAMaturity:     m.Quote.Maturity,
			IPCARate:         m.Quote.PurchaseRate,
			Distance:         m.Distance,
			ImpliedInflation: ImpliedInflation(q.PurchaseRate, m.Quote.PurchaseRate),
		}
		if result.InterpolatedRate.Valid {
			rate := result.InterpolatedRate.Decimal
			row.InterpolatedRate = decimal.NewNullDecimal(rate)
			if rate.GreaterThan(minRate) {
				row.InterpolatedImplied = decimal.NewNullDecimal(ImpliedInflation(q.PurchaseRate, rate))
			}
		}
		result.Rows = append(result.Rows, row)

		used[keyOf(q)] = struct{}{}
		used[keyOf(m.Quote)] = struct{}{}
	}

	for _, q := range dated {
		if _, ok := used[keyOf(q)]; ok {
			result.Used = append(result.Used, q)
		}
	}

	c.logger.Debug().
		Time("reference_date", result.ReferenceDate).
		Int("fixed", len(fixed)).
		Int("linked", len(linked)).
		Msg("implied inflation computed")
	return result, nil
}

func (c *Calculator) interpolate(linked []tesouro.Quote, target time.Time) (decimal.Decimal, error) {
	return NewCurve(c.points(linked)).At(c.metric.Position(target))
}

func (c *Calculator) points(quotes []tesouro.Quote) []Point {
	points := make([]Point, len(quotes))
	for i, q := range quotes {
		points[i] = Point{X: c.metric.Position(q.Maturity), Y: q.PurchaseRate}
	}
	return points
}

type quoteKey struct {
	line     int
	bondType string
	maturity time.Time
}

func keyOf(q tesouro.Quote) quoteKey {
	return quoteKey{line: q.Line, bondType: q.BondType, maturity: q.Maturity}
}
