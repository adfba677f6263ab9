package upload

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// CodeOptions configures ReadCodes.
type CodeOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
	Limit      int    // 0 = all codes
}

// ReadCodes lists the OEM codes in the first column of an .xlsx sheet.
// A leading header row is skipped when it names the column, and blank cells
// are ignored. Legacy .xls workbooks are not readable locally.
func ReadCodes(path string, opts CodeOptions) ([]string, error) {
	if strings.ToLower(filepath.Ext(path)) != ".xlsx" {
		return nil, eris.Wrapf(ErrUnsupportedFile, "%s: only .xlsx can be read locally", filepath.Base(path))
	}

	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}

	var codes []string
	for i, row := range sheet.Rows {
		if row == nil || len(row.Cells) == 0 {
			continue
		}
		code := strings.TrimSpace(row.Cells[0].String())
		if code == "" {
			continue
		}
		if i == 0 && isHeader(code) {
			continue
		}

		codes = append(codes, code)
		if opts.Limit > 0 && len(codes) >= opts.Limit {
			break
		}
	}

	return codes, nil
}

func isHeader(cell string) bool {
	lower := strings.ToLower(cell)
	return strings.Contains(lower, "oem") || strings.Contains(lower, "code")
}

func getSheet(f *xlsx.File, opts CodeOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex < 0 || opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("xlsx: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}

	return f.Sheets[opts.SheetIndex], nil
}
