package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/xuri/excelize/v2"

	"implied-inflation/internal/inflation"
	"implied-inflation/internal/tesouro"
)

func (a *App) writeExports(ctx context.Context, opts ComputeOptions, result *inflation.Result, table *tesouro.Table, p *presenter) error {
	if opts.CSVPath != "" {
		if err := writeResultCSV(opts.CSVPath, result, p); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
		a.Logger.Info().Str("path", opts.CSVPath).Msg("csv written")
	}
	if opts.XLSXPath != "" {
		if err := writeResultXLSX(opts.XLSXPath, a.Config.Export.SheetName, result); err != nil {
			return fmt.Errorf("write xlsx: %w", err)
		}
		a.Logger.Info().Str("path", opts.XLSXPath).Msg("xlsx written")
	}
	if opts.PNGPath != "" {
		if err := writeResultPNG(opts.PNGPath, result); err != nil {
			return fmt.Errorf("write png: %w", err)
		}
		a.Logger.Info().Str("path", opts.PNGPath).Msg("png written")
	}
	if opts.AuditPath != "" {
		if err := writeAudit(opts.AuditPath, table.Header, result.Used); err != nil {
			return fmt.Errorf("write audit: %w", err)
		}
		a.Logger.Info().Str("path", opts.AuditPath).Int("rows", len(result.Used)).Msg("audit written")
	}
	if opts.RawPath != "" {
		if err := a.writeRaw(ctx, opts.RawPath); err != nil {
			return fmt.Errorf("write raw: %w", err)
		}
		a.Logger.Info().Str("path", opts.RawPath).Msg("raw table written")
	}
	return nil
}

func writeResultCSV(path string, result *inflation.Result, p *presenter) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	writer.Comma = p.Delimiter()

	if err := writer.Write(header(result)); err != nil {
		return err
	}

	for _, row := range result.Rows {
		record := []string{
			formatDate(row.ReferenceDate),
			row.BondType,
			formatDate(row.Maturity),
			p.Plain(row.FixedRate),
			formatDate(row.IPCAMaturity),
			p.Plain(row.IPCARate),
			p.Plain(row.ImpliedInflation),
		}
		if hasInterpolation(result) {
			record = append(record, p.PlainNull(row.InterpolatedRate), p.PlainNull(row.InterpolatedImplied))
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeResultXLSX(path, sheet string, result *inflation.Result) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	if sheet == "" {
		sheet = "Resultado"
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return err
	}

	dateFormat := "dd/mm/yyyy"
	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dateFormat})
	if err != nil {
		return err
	}
	for _, col := range []string{"A", "C", "E"} {
		if err := f.SetColStyle(sheet, col, dateStyle); err != nil {
			return err
		}
	}

	head := header(result)
	headRow := make([]interface{}, len(head))
	for i, h := range head {
		headRow[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headRow); err != nil {
		return err
	}

	for i, row := range result.Rows {
		values := []interface{}{
			row.ReferenceDate,
			row.BondType,
			row.Maturity,
			row.FixedRate.InexactFloat64(),
			row.IPCAMaturity,
			row.IPCARate.InexactFloat64(),
			row.ImpliedInflation.InexactFloat64(),
		}
		if hasInterpolation(result) {
			values = append(values, nullFloat(row.InterpolatedRate), nullFloat(row.InterpolatedImplied))
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}

	return f.SaveAs(path)
}

func nullFloat(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return nil
	}
	return d.Decimal.InexactFloat64()
}

func writeResultPNG(path string, result *inflation.Result) error {
	if len(result.Rows) < 2 {
		return errors.New("chart needs at least two rows")
	}
	if err := ensureDir(path); err != nil {
		return err
	}

	rows := append([]inflation.Row(nil), result.Rows...)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Maturity.Before(rows[j].Maturity) })

	x := make([]time.Time, len(rows))
	fixed := make([]float64, len(rows))
	linked := make([]float64, len(rows))
	implied := make([]float64, len(rows))

	for i, row := range rows {
		x[i] = row.Maturity
		fixed[i] = row.FixedRate.InexactFloat64()
		linked[i] = row.IPCARate.InexactFloat64()
		implied[i] = row.ImpliedInflation.InexactFloat64()
	}

	rateFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	dateFormatter := func(v interface{}) string {
		return chart.TimeValueFormatterWithFormat(tesouro.DateLayout)(v)
	}
	graph := chart.Chart{
		Title:  "Inflação Implícita " + formatDate(result.ReferenceDate),
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			Name:           "Vencimento",
			ValueFormatter: dateFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Taxa (% a.a.)",
			ValueFormatter: rateFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Prefixado",
				XValues: x,
				YValues: fixed,
			},
			chart.TimeSeries{
				Name:    "IPCA+ correspondente",
				XValues: x,
				YValues: linked,
			},
			chart.TimeSeries{
				Name:    "Inflação implícita",
				XValues: x,
				YValues: implied,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func writeAudit(path string, header []string, quotes []tesouro.Quote) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return tesouro.WriteQuotes(file, header, quotes)
}

func (a *App) writeRaw(ctx context.Context, path string) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	payload, err := a.client.FetchRaw(ctx)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
