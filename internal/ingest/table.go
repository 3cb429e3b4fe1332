// Package ingest reads publication spreadsheets and normalizes their
// heterogeneous, partially localized columns into canonical records.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/helixir/research-graph/internal/domain"
)

// Table is a raw spreadsheet: a header row followed by data rows.
// Rows may be shorter or longer than the header.
type Table struct {
	Header []string
	Rows   [][]string
}

// Cell returns the value at row r, column c, or "" when the row is short.
func (t *Table) Cell(r, c int) string {
	if r < 0 || r >= len(t.Rows) || c < 0 || c >= len(t.Rows[r]) {
		return ""
	}
	return t.Rows[r][c]
}

// Reader loads a Table from a file.
type Reader interface {
	Read(ctx context.Context, path string) (*Table, error)
}

// ReaderFunc adapts a function to the Reader interface.
type ReaderFunc func(ctx context.Context, path string) (*Table, error)

// Read calls f(ctx, path).
func (f ReaderFunc) Read(ctx context.Context, path string) (*Table, error) {
	return f(ctx, path)
}

// readers maps lowercase file extensions to their reader.
var readers = map[string]Reader{
	".csv":  ReaderFunc(ReadCSV),
	".xlsx": ReaderFunc(ReadXLSX),
	".xlsm": ReaderFunc(ReadXLSX),
	".xls":  ReaderFunc(ReadXLS),
}

// SupportedExtensions returns the file extensions ReadFile accepts.
func SupportedExtensions() []string {
	return []string{".csv", ".xls", ".xlsm", ".xlsx"}
}

// ReadFile reads a spreadsheet, choosing the reader by file extension.
// Every failure is a load error wrapping domain.ErrLoad and naming the path.
func ReadFile(ctx context.Context, path string) (*Table, error) {
	ext := strings.ToLower(filepath.Ext(path))
	r, ok := readers[ext]
	if !ok {
		return nil, domain.NewLoadError(path, fmt.Errorf("unsupported file extension %q", ext))
	}

	if _, err := os.Stat(path); err != nil {
		return nil, domain.NewLoadError(path, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t, err := r.Read(ctx, path)
	if err != nil {
		return nil, domain.NewLoadError(path, err)
	}
	if len(t.Header) == 0 {
		return nil, domain.NewLoadError(path, fmt.Errorf("no header row"))
	}
	return t, nil
}

// newTable splits raw rows into header and data rows, dropping trailing
// rows that carry no values at all.
func newTable(rows [][]string) *Table {
	if len(rows) == 0 {
		return &Table{}
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	data := rows[1:]
	for len(data) > 0 && blankRow(data[len(data)-1]) {
		data = data[:len(data)-1]
	}
	return &Table{Header: header, Rows: data}
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
