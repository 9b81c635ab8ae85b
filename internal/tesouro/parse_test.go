package tesouro

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

const sampleCSV = "\ufeffTipo Titulo;Data Vencimento;Data Base;Taxa Compra Manha;Taxa Venda Manha;PU Compra Manha;PU Venda Manha;PU Base Manha\n" +
	"Tesouro Prefixado;01/01/2027;02/01/2025;14,20;14,32;812,44;810,11;809,90\n" +
	"Tesouro IPCA+;15/05/2029;02/01/2025;7,45;7,57;2.654,10;2.640,00;2.639,51\n" +
	"Tesouro Prefixado com Juros Semestrais;01/01/2035;02/01/2025;13,90;14,02;780,00;779,00;778,90\n" +
	"Tesouro Educa+;15/12/2030;03/01/2025;;7,10;;;\n" +
	"Tesouro IPCA+ com Juros Semestrais;15/08/2030;03/01/2025;7,30;7,42;4.100,00;4.090,00;4.089,00\n"

func TestParseSample(t *testing.T) {
	table, err := Parse(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(table.Quotes) != 4 {
		t.Fatalf("expected 4 quotes, got %d", len(table.Quotes))
	}
	if table.Skipped != 1 {
		t.Fatalf("expected 1 skipped row, got %d", table.Skipped)
	}
	if table.Header[0] != ColBondType {
		t.Fatalf("BOM should be stripped from header, got %q", table.Header[0])
	}

	q := table.Quotes[1]
	if q.BondType != "Tesouro IPCA+" {
		t.Fatalf("unexpected bond type %q", q.BondType)
	}
	if !q.Maturity.Equal(time.Date(2029, 5, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("maturity should parse day-first, got %s", q.Maturity)
	}
	if !q.ReferenceDate.Equal(time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected reference date %s", q.ReferenceDate)
	}
	if !q.PurchaseRate.Equal(decimal.RequireFromString("7.45")) {
		t.Fatalf("unexpected purchase rate %s", q.PurchaseRate)
	}
	if !q.PUPurchase.Valid || !q.PUPurchase.Decimal.Equal(decimal.RequireFromString("2654.10")) {
		t.Fatalf("unexpected PU %v", q.PUPurchase)
	}
	if q.Line != 3 {
		t.Fatalf("expected line 3, got %d", q.Line)
	}
}

func TestParseMissingColumn(t *testing.T) {
	_, err := Parse(strings.NewReader("Tipo Titulo;Data Base\nTesouro Prefixado;02/01/2025\n"))
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if perr.Column != ColMaturity {
		t.Fatalf("expected missing %q, got %q", ColMaturity, perr.Column)
	}
}

func TestParseBadDate(t *testing.T) {
	input := "Tipo Titulo;Data Vencimento;Data Base;Taxa Compra Manha\n" +
		"Tesouro Prefixado;2027-01-01;02/01/2025;14,20\n"
	_, err := Parse(strings.NewReader(input))
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if perr.Line != 2 || perr.Column != ColMaturity {
		t.Fatalf("unexpected error location: %+v", perr)
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := Parse(strings.NewReader("")); err == nil {
		t.Fatal("empty input should fail")
	}
}

func TestParseDecimal(t *testing.T) {
	cases := map[string]string{
		"10,23":    "10.23",
		"1.234,56": "1234.56",
		"6":        "6",
		"-0,5":     "-0.5",
	}
	for in, want := range cases {
		got, err := ParseDecimal(in)
		if err != nil {
			t.Fatalf("ParseDecimal(%q): %v", in, err)
		}
		if !got.Equal(decimal.RequireFromString(want)) {
			t.Fatalf("ParseDecimal(%q) = %s, want %s", in, got, want)
		}
	}
	if _, err := ParseDecimal("abc"); err == nil {
		t.Fatal("non-numeric input should fail")
	}
}

func TestTableDates(t *testing.T) {
	table, err := Parse(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	lo, hi, ok := table.DateRange()
	if !ok {
		t.Fatal("expected a range")
	}
	if lo.Day() != 2 || hi.Day() != 3 {
		t.Fatalf("unexpected range %s..%s", lo, hi)
	}
	if dates := table.ReferenceDates(); len(dates) != 2 || !dates[0].Before(dates[1]) {
		t.Fatalf("unexpected distinct dates %v", dates)
	}
	if !table.Contains(hi) || table.Contains(hi.AddDate(0, 0, 1)) {
		t.Fatal("Contains should honour the inclusive range")
	}
}

func TestWriteQuotesRoundTrip(t *testing.T) {
	table, err := Parse(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteQuotes(&buf, table.Header, table.Quotes[:2]); err != nil {
		t.Fatalf("write: %v", err)
	}

	again, err := Parse(&buf)
	if err != nil {
		t.Fatalf("re-parse: %v", err)
	}
	if len(again.Quotes) != 2 {
		t.Fatalf("expected 2 quotes, got %d", len(again.Quotes))
	}
	if !again.Quotes[0].PurchaseRate.Equal(table.Quotes[0].PurchaseRate) {
		t.Fatal("purchase rate changed across write/parse")
	}
}
