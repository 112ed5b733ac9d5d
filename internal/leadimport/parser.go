package leadimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	FormatXLSX = ".xlsx"
	FormatCSV  = ".csv"
)

const (
	columnName     = "name"
	columnPhone    = "phone"
	columnEmail    = "email"
	columnCourse   = "preferred course"
	columnService  = "service"
	columnFeedback = "feedback"
)

var (
	ErrUnsupportedFormat = errors.New("only .xlsx and .csv files are supported")
	ErrEmptyFile         = errors.New("the uploaded file has no header row")
	ErrNoSheet           = errors.New("the workbook has no sheets")
)

// Row is one data line of an upload. Number is the 1-based line in the file,
// the header being line 1.
type Row struct {
	Number   int
	Name     string
	Phone    string
	Email    string
	Course   string
	Service  string
	Feedback string
}

// Format returns the lower-cased extension of filename when it is supported.
func Format(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case FormatXLSX, FormatCSV:
		return ext, nil
	}

	return "", ErrUnsupportedFormat
}

// Parse reads an .xlsx or .csv upload. Headers are matched case-insensitively;
// unknown columns are ignored and wholly blank lines are skipped.
func Parse(filename string, r io.Reader) ([]Row, error) {
	format, err := Format(filename)
	if err != nil {
		return nil, err
	}

	var records [][]string

	if format == FormatXLSX {
		records, err = readXLSX(r)
	} else {
		records, err = readCSV(r)
	}

	if err != nil {
		return nil, err
	}

	return toRows(records)
}

func readXLSX(r io.Reader) ([][]string, error) {
	workbook, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}

	defer func() {
		_ = workbook.Close()
	}()

	sheet := workbook.GetSheetName(0)
	if sheet == "" {
		return nil, ErrNoSheet
	}

	rows, err := workbook.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	return records, nil
}

func toRows(records [][]string) ([]Row, error) {
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	header := make(map[string]int, len(records[0]))

	for i, title := range records[0] {
		title = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(title, "\ufeff")))
		if _, seen := header[title]; !seen && title != "" {
			header[title] = i
		}
	}

	if len(header) == 0 {
		return nil, ErrEmptyFile
	}

	cell := func(record []string, column string) string {
		i, ok := header[column]
		if !ok || i >= len(record) {
			return ""
		}

		return strings.TrimSpace(record[i])
	}

	rows := make([]Row, 0, len(records)-1)

	for i, record := range records[1:] {
		if blank(record) {
			continue
		}

		rows = append(rows, Row{
			Number:   i + 2,
			Name:     cell(record, columnName),
			Phone:    cell(record, columnPhone),
			Email:    cell(record, columnEmail),
			Course:   cell(record, columnCourse),
			Service:  cell(record, columnService),
			Feedback: cell(record, columnFeedback),
		})
	}

	return rows, nil
}

func blank(record []string) bool {
	for _, value := range record {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}

	return true
}
