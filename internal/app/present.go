package app

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"implied-inflation/internal/inflation"
	"implied-inflation/internal/tesouro"
)

// exportPrecision bounds the digits written to machine-readable exports.
const exportPrecision = 6

var resultHeader = []string{
	"Data Base",
	"Tipo Título",
	"Data Vencimento",
	"Taxa Prefixada Correspondente",
	"Vencimento Mais Próximo",
	"Taxa IPCA Correspondente",
	"Inflação Implícita",
}

var interpolatedHeader = []string{
	"Taxa IPCA Interpolada",
	"Inflação Implícita Interpolada",
}

// presenter formats numbers and dates for one locale.
type presenter struct {
	printer *message.Printer
	places  int
	comma   bool
}

func newPresenter(locale string, places int32) *presenter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.BrazilianPortuguese
	}
	p := message.NewPrinter(tag)
	sample := p.Sprint(number.Decimal(0.5, number.Scale(1)))
	return &presenter{printer: p, places: int(places), comma: strings.Contains(sample, ",")}
}

// Number renders d rounded with locale separators.
func (p *presenter) Number(d decimal.Decimal) string {
	return p.printer.Sprint(number.Decimal(d.Round(int32(p.places)).InexactFloat64(), number.Scale(p.places)))
}

// NullNumber renders an empty cell for a missing value.
func (p *presenter) NullNumber(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return p.Number(d.Decimal)
}

// Plain renders d without grouping, with the locale decimal mark.
func (p *presenter) Plain(d decimal.Decimal) string {
	d = d.Round(exportPrecision)
	if p.comma {
		return tesouro.FormatDecimal(d)
	}
	return d.String()
}

func (p *presenter) PlainNull(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return p.Plain(d.Decimal)
}

// Delimiter is the CSV field separator matching the decimal mark.
func (p *presenter) Delimiter() rune {
	if p.comma {
		return ';'
	}
	return ','
}

func formatDate(t time.Time) string {
	return t.Format(tesouro.DateLayout)
}

func hasInterpolation(result *inflation.Result) bool {
	return result.Target != nil
}

func header(result *inflation.Result) []string {
	out := append([]string(nil), resultHeader...)
	if hasInterpolation(result) {
		out = append(out, interpolatedHeader...)
	}
	return out
}

// renderResult writes the table followed by any warnings.
func (p *presenter) renderResult(w io.Writer, result *inflation.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header(result), "\t"))

	for _, row := range result.Rows {
		cells := []string{
			formatDate(row.ReferenceDate),
			row.BondType,
			formatDate(row.Maturity),
			p.Number(row.FixedRate),
			formatDate(row.IPCAMaturity),
			p.Number(row.IPCARate),
			p.Number(row.ImpliedInflation),
		}
		if hasInterpolation(result) {
			cells = append(cells, p.NullNumber(row.InterpolatedRate), p.NullNumber(row.InterpolatedImplied))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if result.Target != nil && result.InterpolatedRate.Valid {
		fmt.Fprintf(w, "\ninterpolated IPCA+ rate at %s: %s%%\n", formatDate(*result.Target), p.Number(result.InterpolatedRate.Decimal))
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	return nil
}
