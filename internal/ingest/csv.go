package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/campprojects/dashboard/internal/project"
)

// Options control how a source file is read.
type Options struct {
	Delimiter rune      // 0 sniffs comma, semicolon or tab from the header line
	Namespace uuid.UUID // seeds ids for rows without one
}

// ReadFile reads and normalizes a delimited source file. Any failure to open
// or parse it is a *project.DataSourceError.
func ReadFile(path string, schema *project.Schema, opts Options) (project.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return project.Table{}, &project.DataSourceError{Path: path, Err: err}
	}
	defer f.Close()

	t, err := Read(f, schema, opts)
	if err != nil {
		var dsErr *project.DataSourceError
		if errors.As(err, &dsErr) && dsErr.Path == "" {
			dsErr.Path = path
		}
		return project.Table{}, err
	}
	return t, nil
}

// Read normalizes delimited text with a header row.
func Read(r io.Reader, schema *project.Schema, opts Options) (project.Table, error) {
	// The decoder drops a leading byte order mark.
	br := bufio.NewReader(transform.NewReader(r, unicode.UTF8BOM.NewDecoder()))
	delim := opts.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(br)
	}

	cr := csv.NewReader(br)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return project.Table{}, &project.DataSourceError{Err: fmt.Errorf("read csv: %w", err)}
	}
	if len(records) == 0 {
		return project.Table{}, &project.DataSourceError{Err: errors.New("file has no header row")}
	}

	header := records[0]
	rows := records[1:]
	for i, rec := range rows {
		if len(rec) > len(header) && !blank(rec[len(header):]) {
			return project.Table{}, &project.DataSourceError{
				Err: fmt.Errorf("row %d: %d fields, header has %d", i+2, len(rec), len(header)),
			}
		}
	}

	t := project.Normalize(schema, header, rows)
	if err := project.AssignIDs(&t, schema, opts.Namespace); err != nil {
		return project.Table{}, err
	}
	return t, nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// sniffDelimiter picks the most frequent of comma, semicolon and tab on the
// first line, ignoring quoted sections. Ties go to comma.
func sniffDelimiter(br *bufio.Reader) rune {
	buf, _ := br.Peek(4096)
	if i := bytes.IndexByte(buf, '\n'); i >= 0 {
		buf = buf[:i]
	}
	counts := map[rune]int{}
	quoted := false
	for _, r := range string(buf) {
		switch r {
		case '"':
			quoted = !quoted
		case ',', ';', '\t':
			if !quoted {
				counts[r]++
			}
		}
	}
	best := ','
	for _, r := range []rune{';', '\t'} {
		if counts[r] > counts[best] {
			best = r
		}
	}
	return best
}
