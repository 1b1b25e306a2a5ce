// Package sheetconv re-serializes tabular data through an in-memory table.
// Only the first sheet of a multi-sheet source is converted; the outcome
// message always states that loss.
package sheetconv

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/fileconv/fileconv/internal/convert/domain"
	"github.com/fileconv/fileconv/internal/convert/port"
	"github.com/fileconv/fileconv/pkg/humanize"
)

var tableTemplate = template.Must(template.New("table").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><style>
table { border-collapse: collapse; font-family: sans-serif; }
th, td { border: 1px solid #999; padding: 4px 8px; }
th { background: #eee; }
</style></head>
<body><table>
{{- if .Header}}
<tr>{{range .Header}}<th>{{.}}</th>{{end}}</tr>
{{- end}}
{{- range .Rows}}
<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{- end}}
</table></body>
</html>
`))

// SpreadsheetConverter implements the spreadsheet category of the converter
// contract.
type SpreadsheetConverter struct{}

func New() *SpreadsheetConverter {
	return &SpreadsheetConverter{}
}

func (c *SpreadsheetConverter) Convert(ctx context.Context, req port.ConvertRequest) domain.ConversionOutcome {
	table, sheetCount, err := loadTable(req.InputPath, req.SourceExt)
	if err != nil {
		return domain.ConversionFailed(err.Error())
	}

	target := strings.ToLower(req.TargetExt)
	switch target {
	case "csv":
		err = writeCSV(table, req.OutputPath)
	case "json":
		err = writeJSON(table, req.OutputPath)
	case "html":
		err = writeHTML(table, req.OutputPath)
	case "xlsx":
		err = writeXLSX(table, req.OutputPath)
	default:
		return domain.ConversionFailed(fmt.Sprintf(
			"%v: spreadsheet to %s", port.ErrUnsupportedConversion, strings.ToUpper(target)))
	}
	if err != nil {
		removePartial(req.OutputPath)
		return domain.ConversionFailed(fmt.Sprintf("%v: %v", port.ErrEncodeFailure, err))
	}

	info, err := os.Stat(req.OutputPath)
	if err != nil {
		return domain.ConversionFailed(fmt.Sprintf("%v: %v", port.ErrIOFailure, err))
	}

	message := fmt.Sprintf("converted %s to %s (%s)",
		strings.ToUpper(req.SourceExt), strings.ToUpper(target), humanize.Size(info.Size()))
	if sheetCount > 1 {
		message += fmt.Sprintf("; first sheet only (%d sheets in source)", sheetCount)
	}
	return domain.Converted(req.OutputPath, info.Size(), message)
}

// SheetCount probes how many sheets an xlsx source holds; csv is always 1.
func SheetCount(path, extension string) (int, error) {
	if strings.ToLower(extension) != "xlsx" {
		return 1, nil
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()
	return len(f.GetSheetList()), nil
}

// loadTable reads the first sheet/table into rows of cells.
func loadTable(path, extension string) ([][]string, int, error) {
	switch strings.ToLower(extension) {
	case "xlsx":
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", port.ErrCorruptInput, err)
		}
		defer func() { _ = f.Close() }()

		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, 0, fmt.Errorf("%w: workbook has no sheets", port.ErrCorruptInput)
		}
		rows, err := f.GetRows(sheets[0])
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", port.ErrCorruptInput, err)
		}
		return rows, len(sheets), nil

	case "csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", port.ErrIOFailure, err)
		}
		defer func() { _ = f.Close() }()

		reader := csv.NewReader(f)
		reader.FieldsPerRecord = -1
		rows, err := reader.ReadAll()
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", port.ErrCorruptInput, err)
		}
		return rows, 1, nil

	default:
		return nil, 0, fmt.Errorf("%w: %s", port.ErrUnsupportedInput, extension)
	}
}

func writeCSV(table [][]string, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(table); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// writeJSON emits an array of objects keyed by the header row. A headerless
// (single-row) table becomes an array of cell arrays.
func writeJSON(table [][]string, path string) error {
	var payload any
	if len(table) > 1 {
		header := table[0]
		records := make([]map[string]string, 0, len(table)-1)
		for _, row := range table[1:] {
			record := make(map[string]string, len(header))
			for i, name := range header {
				if name == "" {
					name = fmt.Sprintf("column_%d", i+1)
				}
				if i < len(row) {
					record[name] = row[i]
				} else {
					record[name] = ""
				}
			}
			records = append(records, record)
		}
		payload = records
	} else {
		payload = table
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeHTML(table [][]string, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	data := struct {
		Header []string
		Rows   [][]string
	}{}
	if len(table) > 0 {
		data.Header = table[0]
		data.Rows = table[1:]
	}

	if err := tableTemplate.Execute(f, data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeXLSX(table [][]string, path string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheet = "Sheet1"
	for i, row := range table {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}

	return f.SaveAs(path)
}

func removePartial(path string) {
	_ = os.Remove(path)
}
