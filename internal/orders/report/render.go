package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	pkgerrors "github.com/sonaskin/storefront-backend/pkg/errors"
)

// Format is an export file type.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// utf8BOM lets spreadsheet apps detect UTF-8 in csv files with Vietnamese text.
const utf8BOM = "\uFEFF"

// ParseFormat reads an export format; empty input means xlsx.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid export format").
			WithDetails(map[string]string{"format": fmt.Sprintf("must be one of xlsx, csv, json; got %q", raw)})
	}
}

// ContentType is the MIME type served for format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatJSON:
		return "application/json; charset=utf-8"
	default:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
}

// FileName builds the attachment name, e.g. orders-sales-20250410.xlsx.
func FileName(kind Kind, format Format, now time.Time) string {
	return fmt.Sprintf("orders-%s-%s.%s", kind, now.Format("20060102"), format)
}

// Render writes table to w in format.
func Render(w io.Writer, format Format, table *Table) error {
	if table == nil {
		return fmt.Errorf("report table required")
	}
	switch format {
	case FormatXLSX:
		return renderXLSX(w, table)
	case FormatCSV:
		return renderCSV(w, table)
	case FormatJSON:
		return renderJSON(w, table)
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func renderCSV(w io.Writer, table *Table) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	header := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		header[i] = col.Title
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range table.Rows {
		record := make([]string, len(row))
		for i, cell := range row {
			record[i] = cellString(cell)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func renderJSON(w io.Writer, table *Table) error {
	rows := make([]map[string]any, 0, len(table.Rows))
	for _, row := range table.Rows {
		obj := make(map[string]any, len(table.Columns))
		for i, col := range table.Columns {
			if i < len(row) {
				obj[col.Key] = jsonCell(row[i])
			}
		}
		rows = append(rows, obj)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"type": table.Kind,
		"rows": rows,
	})
}

func renderXLSX(w io.Writer, table *Table) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	sheet := table.Sheet
	if sheet == "" {
		sheet = "Report"
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	header := make([]any, len(table.Columns))
	for i, col := range table.Columns {
		header[i] = col.Title
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if len(table.Columns) > 0 {
		last, err := excelize.CoordinatesToCellName(len(table.Columns), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
			return err
		}
	}

	for r, row := range table.Rows {
		cells := make([]any, len(row))
		for i, cell := range row {
			cells[i] = xlsxCell(cell)
		}
		start, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, start, &cells); err != nil {
			return err
		}
	}
	return f.Write(w)
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case decimal.Decimal:
		return t.StringFixed(2)
	default:
		return fmt.Sprint(t)
	}
}

func jsonCell(v any) any {
	if d, ok := v.(decimal.Decimal); ok {
		return json.Number(d.StringFixed(2))
	}
	return v
}

func xlsxCell(v any) any {
	if d, ok := v.(decimal.Decimal); ok {
		return d.InexactFloat64()
	}
	return v
}
