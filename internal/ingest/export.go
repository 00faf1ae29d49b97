package ingest

import (
	"encoding/csv"
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/campprojects/dashboard/internal/project"
)

// WriteCSV dumps t in header order as UTF-8 with a byte order mark, so
// spreadsheet tools pick up the Arabic text. The output reads back through
// Read with the same rows and derived values.
func WriteCSV(w io.Writer, t project.Table) error {
	bw := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
	cw := csv.NewWriter(bw)

	header := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c.Name
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	line := make([]string, len(t.Columns))
	for i, r := range t.Records {
		for j, c := range t.Columns {
			line[j] = r.Cell(c)
		}
		if err := cw.Write(line); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return bw.Close()
}
