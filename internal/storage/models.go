package storage

import (
	"time"

	"github.com/shopspring/decimal"

	"implied-inflation/internal/inflation"
)

// ResultRecord is one persisted implied-inflation row.
type ResultRecord struct {
	ReferenceDate       time.Time
	BondType            string
	Maturity            time.Time
	FixedRate           decimal.Decimal
	IPCABondType        string
	IPCAMaturity        time.Time
	IPCARate            decimal.Decimal
	Distance            int64
	ImpliedInflation    decimal.Decimal
	TargetMaturity      *time.Time
	InterpolatedRate    decimal.NullDecimal
	InterpolatedImplied decimal.NullDecimal
	Metric              string
	CreatedAt           time.Time
}

// RecordsFromResult flattens a computation into storable rows.
func RecordsFromResult(res *inflation.Result) []ResultRecord {
	records := make([]ResultRecord, 0, len(res.Rows))
	for _, row := range res.Rows {
		records = append(records, ResultRecord{
			ReferenceDate:       res.ReferenceDate,
			BondType:            row.BondType,
			Maturity:            row.Maturity,
			FixedRate:           row.FixedRate,
			IPCABondType:        row.IPCABondType,
			IPCAMaturity:        row.IPCAMaturity,
			IPCARate:            row.IPCARate,
			Distance:            row.Distance,
			ImpliedInflation:    row.ImpliedInflation,
			TargetMaturity:      res.Target,
			InterpolatedRate:    row.InterpolatedRate,
			InterpolatedImplied: row.InterpolatedImplied,
			Metric:              string(res.Metric),
		})
	}
	return records
}

// DateSummary aggregates the stored rows for one reference date.
type DateSummary struct {
	ReferenceDate time.Time
	Rows          int
	MinImplied    decimal.Decimal
	MaxImplied    decimal.Decimal
}
