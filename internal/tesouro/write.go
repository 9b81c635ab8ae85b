package tesouro

import (
	"encoding/csv"
	"io"
)

// WriteQuotes writes quotes in the source layout, preserving the published
// header and raw field text so the output can be re-parsed by Parse.
func WriteQuotes(w io.Writer, header []string, quotes []Quote) error {
	writer := csv.NewWriter(w)
	writer.Comma = ';'

	if err := writer.Write(header); err != nil {
		return err
	}
	for _, q := range quotes {
		if err := writer.Write(q.Record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
