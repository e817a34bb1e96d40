package parsers

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	classificadomain "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/domain"
	"github.com/xuri/excelize/v2"
)

// CSVTokenizer reads comma, semicolon or tab separated exports.
type CSVTokenizer struct{}

// Tokenize detects the delimiter from the first lines and reads every
// record. Ragged rows are allowed.
func (CSVTokenizer) Tokenize(data []byte) ([]classificadomain.RawRow, error) {
	cleaned, delimiter, err := preprocessCSVData(data)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(cleaned))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows []classificadomain.RawRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		rows = appendRow(rows, classificadomain.RawRow(record))
	}

	return requireTabular(rows)
}

// preprocessCSVData strips a UTF-8 BOM, normalizes line endings and picks
// the delimiter with the most hits in the first five lines.
func preprocessCSVData(data []byte) (string, rune, error) {
	if len(data) == 0 {
		return "", ',', fmt.Errorf("empty CSV data")
	}

	cleanedStr := decodeText(bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n")))

	lines := strings.SplitN(cleanedStr, "\n", 6)
	if len(lines) > 5 {
		lines = lines[:5]
	}

	delimiter, best := ',', 0
	for _, candidate := range []rune{',', ';', '\t'} {
		count := 0
		for _, line := range lines {
			count += strings.Count(line, string(candidate))
		}
		if count > best {
			delimiter, best = candidate, count
		}
	}

	return cleanedStr, delimiter, nil
}

// XLSXTokenizer reads every sheet of a workbook in order.
type XLSXTokenizer struct{}

// Tokenize concatenates the rows of all sheets. Sheet names are emitted
// as single-cell rows because federations often put one division per
// sheet.
func (XLSXTokenizer) Tokenize(data []byte) ([]classificadomain.RawRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		if strings.Contains(err.Error(), "zip: not a valid zip file") {
			return nil, fmt.Errorf("failed to open XLSX file: %w. (Hint: If this is a CSV file, please ensure it has a .csv extension)", err)
		}
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("XLSX file has no sheets")
	}

	var rows []classificadomain.RawRow
	for _, sheet := range sheets {
		sheetRows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}
		if len(sheetRows) == 0 {
			continue
		}
		if len(sheets) > 1 {
			rows = appendRow(rows, classificadomain.RawRow{sheet})
		}
		for _, r := range sheetRows {
			rows = appendRow(rows, classificadomain.RawRow(r))
		}
	}

	return requireTabular(rows)
}
