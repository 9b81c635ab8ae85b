package tesouro

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ParseError reports a malformed line in the source file.
type ParseError struct {
	Line   int
	Column string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("tesouro csv line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("tesouro csv line %d, column %q: %v", e.Line, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var errMissingColumn = errors.New("required column missing")

var requiredColumns = []string{ColBondType, ColMaturity, ColReferenceDate, ColPurchaseRate}

// Parse reads a semicolon-delimited, comma-decimal, day-first CSV.
func Parse(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)
	if bom, err := br.Peek(3); err == nil && string(bom) == "\ufeff" {
		_, _ = br.Discard(3)
	}

	reader := csv.NewReader(br)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Line: 1, Err: errors.New("empty file")}
		}
		return nil, &ParseError{Line: 1, Err: err}
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, &ParseError{Line: 1, Column: col, Err: errMissingColumn}
		}
	}

	table := &Table{Header: append([]string(nil), header...)}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				return nil, &ParseError{Line: csvErr.Line, Err: csvErr.Err}
			}
			return nil, &ParseError{Line: line + 1, Err: err}
		}
		line, _ = reader.FieldPos(0)
		if blankRecord(record) {
			continue
		}

		field := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		if field(ColPurchaseRate) == "" {
			table.Skipped++
			continue
		}

		q := Quote{
			BondType: field(ColBondType),
			Line:     line,
			Record:   append([]string(nil), record...),
		}
		if q.ReferenceDate, err = ParseDate(field(ColReferenceDate)); err != nil {
			return nil, &ParseError{Line: line, Column: ColReferenceDate, Err: err}
		}
		if q.Maturity, err = ParseDate(field(ColMaturity)); err != nil {
			return nil, &ParseError{Line: line, Column: ColMaturity, Err: err}
		}
		if q.PurchaseRate, err = ParseDecimal(field(ColPurchaseRate)); err != nil {
			return nil, &ParseError{Line: line, Column: ColPurchaseRate, Err: err}
		}

		optional := []struct {
			col string
			dst *decimal.NullDecimal
		}{
			{ColSellRate, &q.SellRate},
			{ColPUPurchase, &q.PUPurchase},
			{ColPUSell, &q.PUSell},
			{ColPUBase, &q.PUBase},
		}
		for _, opt := range optional {
			raw := field(opt.col)
			if raw == "" {
				continue
			}
			v, err := ParseDecimal(raw)
			if err != nil {
				return nil, &ParseError{Line: line, Column: opt.col, Err: err}
			}
			*opt.dst = decimal.NewNullDecimal(v)
		}

		table.Quotes = append(table.Quotes, q)
	}

	return table, nil
}

// ParseDate parses a dd/mm/yyyy date as UTC midnight.
func ParseDate(v string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(v), time.UTC)
}

// ParseDecimal parses a comma-decimal number such as "1.234,56" or "10,23".
func ParseDecimal(v string) (decimal.Decimal, error) {
	v = strings.TrimSpace(v)
	if strings.Contains(v, ",") {
		v = strings.ReplaceAll(v, ".", "")
		v = strings.ReplaceAll(v, ",", ".")
	}
	return decimal.NewFromString(v)
}

// FormatDecimal renders d with a comma separator, the inverse of ParseDecimal.
func FormatDecimal(d decimal.Decimal) string {
	return strings.ReplaceAll(d.String(), ".", ",")
}

func blankRecord(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
