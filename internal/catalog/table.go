package catalog

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// MaxErrorsToLog throttles per-row parse error logging.
const MaxErrorsToLog = 10

// Table is a header plus string rows, the common currency of every CSV the
// tools read. Column lookup is case-insensitive.
type Table struct {
	Header []string
	Rows   [][]string

	index map[string]int
}

// NewTable creates an empty table with the given header.
func NewTable(header ...string) *Table {
	t := &Table{Header: header}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := t.index[key]; !dup {
			t.index[key] = i
		}
	}
}

// Col returns the index of column name, or -1.
func (t *Table) Col(name string) int {
	if t.index == nil {
		t.reindex()
	}
	if i, ok := t.index[strings.ToLower(name)]; ok {
		return i
	}
	return -1
}

// Has reports whether every named column exists.
func (t *Table) Has(names ...string) bool {
	for _, n := range names {
		if t.Col(n) < 0 {
			return false
		}
	}
	return true
}

// Get returns row[name] trimmed, or "" if the column or cell is missing.
func (t *Table) Get(row []string, name string) string {
	i := t.Col(name)
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Append adds a row, padding it to the header width.
func (t *Table) Append(row []string) {
	if len(row) < len(t.Header) {
		padded := make([]string, len(t.Header))
		copy(padded, row)
		row = padded
	}
	t.Rows = append(t.Rows, row)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// ParseStats holds statistics for a parsing operation.
type ParseStats struct {
	TotalRowsRead      int64 // Data rows read from the file
	SuccessfullyParsed int64 // Rows converted to events
	FailedRows         int64 // Rows that failed to parse
	SkippedEmptyRows   int64 // Blank rows skipped
}

// ReadTable reads a CSV stream. The first record is the header; a leading
// unnamed index column (as written by dataframe tools) is kept as "index".
func ReadTable(r io.Reader) (*Table, error) {
	csvReader := csv.NewReader(r)
	csvReader.LazyQuotes = true
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true

	header, err := csvReader.Read()
	if err == io.EOF {
		return nil, errors.New("empty CSV: no header")
	}
	if err != nil {
		return nil, errors.Wrap(err, "read CSV header")
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
		if header[0] == "" {
			header[0] = "index"
		}
	}

	t := NewTable(header...)
	errorCount := 0
	line := 1

	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			errorCount++
			if errorCount <= MaxErrorsToLog {
				logrus.Warnf("CSV read error (line %d): %v", line, err)
			}
			continue
		}
		if len(record) == 0 || (len(record) == 1 && strings.TrimSpace(record[0]) == "") {
			continue
		}
		t.Append(record)
	}

	if errorCount > MaxErrorsToLog {
		logrus.Warnf("... and %d more CSV read errors (suppressed)", errorCount-MaxErrorsToLog)
	}
	return t, nil
}

// ReadTableFile reads a ".csv" or ".csv.gz" file.
func ReadTableFile(path string) (*Table, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	t, err := ReadTable(rc)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return t, nil
}

// WriteTable writes t as CSV.
func WriteTable(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return errors.Wrap(err, "write CSV header")
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return errors.Wrap(err, "write CSV rows")
	}
	return nil
}

// WriteTableFile writes t to a ".csv" or ".csv.gz" file.
func WriteTableFile(path string, t *Table) error {
	wc, err := Create(path)
	if err != nil {
		return err
	}
	if err := WriteTable(wc, t); err != nil {
		wc.Abort()
		return err
	}
	return wc.Close()
}
