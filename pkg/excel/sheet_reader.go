package excel

import (
	"bytes"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hwyzisk/annaverse-voter-vault-sub000/pkg/serrors"
)

var (
	ErrNoSheets  = serrors.NewError("EXCEL_NO_SHEETS", "workbook contains no sheets", "")
	ErrNoHeader  = serrors.NewError("EXCEL_NO_HEADER", "workbook sheet has no header row", "")
	ErrBadRange  = serrors.NewError("EXCEL_BAD_RANGE", "invalid row range", "")
	ErrNoColumns = serrors.NewError("EXCEL_MISSING_COLUMNS", "required columns missing from header", "")
)

// RawRow is one spreadsheet row keyed by header name. Values are trimmed.
// Number is the 1-based data row index (header excluded).
type RawRow struct {
	Number int
	Cells  map[string]string
}

func (r RawRow) Get(column string) string {
	return r.Cells[column]
}

// SheetReader walks the first sheet of an XLSX workbook without materializing
// it. The header row is read once at open; ReadRange streams only the
// requested rows, so resident memory is bounded by the range size. The same
// range may be re-read any number of times.
type SheetReader struct {
	file     *excelize.File
	sheet    string
	headers  []string
	idColumn string
	rowCount int
}

// NewSheetReader opens the workbook from an in-memory buffer. idColumn names
// the external identifier header; rows without a value in it are dropped.
// requiredColumns must all be present in the header row.
func NewSheetReader(data []byte, idColumn string, requiredColumns ...string) (*SheetReader, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		_ = f.Close()
		return nil, ErrNoSheets
	}

	r := &SheetReader{file: f, sheet: sheets[0], idColumn: idColumn}
	if err := r.scan(); err != nil {
		_ = f.Close()
		return nil, err
	}

	seen := make(map[string]bool, len(r.headers))
	for _, h := range r.headers {
		seen[h] = true
	}
	missing := make([]string, 0)
	for _, col := range requiredColumns {
		if !seen[col] {
			missing = append(missing, col)
		}
	}
	if !seen[idColumn] {
		missing = append(missing, idColumn)
	}
	if len(missing) > 0 {
		_ = f.Close()
		return nil, ErrNoColumns.WithDetails(strings.Join(missing, ", "))
	}

	return r, nil
}

// scan reads the header row and counts data rows in one streaming pass.
func (r *SheetReader) scan() error {
	rows, err := r.file.Rows(r.sheet)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		return ErrNoHeader
	}
	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	headers := make([]string, 0, len(cols))
	for _, c := range cols {
		headers = append(headers, strings.TrimSpace(c))
	}
	r.headers = headers

	count := 0
	for rows.Next() {
		count++
	}
	r.rowCount = count
	return rows.Error()
}

func (r *SheetReader) Headers() []string { return r.headers }

// RowCount is the number of data rows below the header, blank and footer rows
// included. It is an upper bound on importable rows.
func (r *SheetReader) RowCount() int { return r.rowCount }

// ReadRange returns the data rows in [start, end], 1-based inclusive. Rows
// missing the identifier column, and rows whose identifier cell repeats the
// header token, are dropped.
func (r *SheetReader) ReadRange(start, end int) ([]RawRow, error) {
	if start < 1 || end < start {
		return nil, ErrBadRange
	}

	rows, err := r.file.Rows(r.sheet)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	// Skip the header row.
	if !rows.Next() {
		return nil, ErrNoHeader
	}
	if _, err := rows.Columns(); err != nil {
		return nil, err
	}

	out := make([]RawRow, 0, end-start+1)
	num := 0
	for rows.Next() {
		num++
		if num < start {
			continue
		}
		if num > end {
			break
		}
		cols, err := rows.Columns()
		if err != nil {
			return nil, err
		}
		row := RawRow{Number: num, Cells: make(map[string]string, len(r.headers))}
		for i, header := range r.headers {
			if header == "" || i >= len(cols) {
				continue
			}
			if v := strings.TrimSpace(cols[i]); v != "" {
				row.Cells[header] = v
			}
		}
		id := row.Cells[r.idColumn]
		if id == "" || id == r.idColumn {
			continue
		}
		out = append(out, row)
	}
	if err := rows.Error(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SheetReader) Close() error {
	return r.file.Close()
}
