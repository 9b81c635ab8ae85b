package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"implied-inflation/internal/config"
	"implied-inflation/internal/inflation"
)

func TestStoreNotConfigured(t *testing.T) {
	var s *Store
	ctx := context.Background()

	if err := s.EnsureSchema(ctx); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("EnsureSchema: expected ErrNotConfigured, got %v", err)
	}
	if _, err := s.ListResults(ctx, time.Now()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("ListResults: expected ErrNotConfigured, got %v", err)
	}
	if _, _, err := NewStore(nil).TryAdvisoryLock(ctx, 1); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("TryAdvisoryLock: expected ErrNotConfigured, got %v", err)
	}
	s.Close()
}

func TestNewPoolRequiresDSN(t *testing.T) {
	if _, err := NewPool(context.Background(), config.DatabaseConfig{}, "inflacao"); err == nil {
		t.Fatal("empty DSN should fail")
	}
	if _, err := NewPool(context.Background(), config.DatabaseConfig{DSN: "://bad"}, "inflacao"); err == nil {
		t.Fatal("malformed DSN should fail")
	}
}

func TestRecordsFromResult(t *testing.T) {
	ref := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	target := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	res := &inflation.Result{
		ReferenceDate: ref,
		Target:        &target,
		Metric:        inflation.MetricDays,
		Rows: []inflation.Row{{
			ReferenceDate:    ref,
			BondType:         "Tesouro Prefixado",
			Maturity:         time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
			FixedRate:        decimal.RequireFromString("14.2"),
			IPCABondType:     "Tesouro IPCA+",
			IPCAMaturity:     time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
			IPCARate:         decimal.RequireFromString("7.9"),
			Distance:         139,
			ImpliedInflation: decimal.RequireFromString("5.83"),
			InterpolatedRate: decimal.NewNullDecimal(decimal.RequireFromString("7.5")),
		}},
	}

	records := RecordsFromResult(res)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.Metric != "days" || rec.TargetMaturity == nil || !rec.TargetMaturity.Equal(target) {
		t.Fatalf("unexpected record %+v", rec)
	}
	if nullDecimal(rec.InterpolatedRate) != "7.5" {
		t.Fatalf("interpolated rate should bind as text, got %v", nullDecimal(rec.InterpolatedRate))
	}
	if nullDecimal(rec.InterpolatedImplied) != nil {
		t.Fatal("missing interpolated implied should bind as NULL")
	}
}

func TestParseNullDecimal(t *testing.T) {
	got, err := parseNullDecimal(sql.NullString{String: "4.25", Valid: true})
	if err != nil || !got.Valid || !got.Decimal.Equal(decimal.RequireFromString("4.25")) {
		t.Fatalf("unexpected %v %v", got, err)
	}
	got, err = parseNullDecimal(sql.NullString{})
	if err != nil || got.Valid {
		t.Fatalf("NULL should stay invalid, got %v %v", got, err)
	}
}
