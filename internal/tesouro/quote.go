package tesouro

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Column names as published in PrecoTaxaTesouroDireto.csv.
const (
	ColBondType      = "Tipo Titulo"
	ColMaturity      = "Data Vencimento"
	ColReferenceDate = "Data Base"
	ColPurchaseRate  = "Taxa Compra Manha"
	ColSellRate      = "Taxa Venda Manha"
	ColPUPurchase    = "PU Compra Manha"
	ColPUSell        = "PU Venda Manha"
	ColPUBase        = "PU Base Manha"
)

// DateLayout is the day-first layout used by the source file.
const DateLayout = "02/01/2006"

// Quote is one row of the Tesouro Direto price/rate table.
type Quote struct {
	ReferenceDate time.Time
	BondType      string
	Maturity      time.Time
	PurchaseRate  decimal.Decimal
	SellRate      decimal.NullDecimal
	PUPurchase    decimal.NullDecimal
	PUSell        decimal.NullDecimal
	PUBase        decimal.NullDecimal

	// Line is the 1-based line number in the source file.
	Line int
	// Record holds the raw fields exactly as read.
	Record []string
}

// Table is a parsed snapshot of the source file.
type Table struct {
	Header  []string
	Quotes  []Quote
	Skipped int
}

// DateRange returns the earliest and latest reference dates in the table.
func (t *Table) DateRange() (time.Time, time.Time, bool) {
	if t == nil || len(t.Quotes) == 0 {
		return time.Time{}, time.Time{}, false
	}
	lo, hi := t.Quotes[0].ReferenceDate, t.Quotes[0].ReferenceDate
	for _, q := range t.Quotes[1:] {
		if q.ReferenceDate.Before(lo) {
			lo = q.ReferenceDate
		}
		if q.ReferenceDate.After(hi) {
			hi = q.ReferenceDate
		}
	}
	return lo, hi, true
}

// Latest returns the most recent reference date.
func (t *Table) Latest() (time.Time, bool) {
	_, hi, ok := t.DateRange()
	return hi, ok
}

// ReferenceDates lists the distinct reference dates in ascending order.
func (t *Table) ReferenceDates() []time.Time {
	if t == nil {
		return nil
	}
	seen := make(map[time.Time]struct{})
	dates := make([]time.Time, 0)
	for _, q := range t.Quotes {
		if _, ok := seen[q.ReferenceDate]; ok {
			continue
		}
		seen[q.ReferenceDate] = struct{}{}
		dates = append(dates, q.ReferenceDate)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// Contains reports whether date lies within the table's reference-date range.
func (t *Table) Contains(date time.Time) bool {
	lo, hi, ok := t.DateRange()
	if !ok {
		return false
	}
	return !date.Before(lo) && !date.After(hi)
}
