package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"gobayes/internal/errors"
)

// DataReader handles reading Excel and CSV files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(filePath string) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &DataReader{filePath: filePath, fileType: fileType}
}

// Sheets lists the sheet names. A CSV file has one sheet named after the file.
func (r *DataReader) Sheets() ([]string, error) {
	if r.fileType == "csv" {
		return []string{r.csvSheetName()}, nil
	}

	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open workbook %s", r.filePath)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

// ReadSheet reads one sheet into structured form. The sheet argument is
// ignored for CSV files.
func (r *DataReader) ReadSheet(sheet string) (*SheetData, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, errors.NotFound(fmt.Sprintf("%s file %s", strings.ToUpper(r.fileType), r.filePath))
	}

	switch r.fileType {
	case "csv":
		return r.readCSVData()
	case "xlsx":
		return r.readExcelData(sheet)
	default:
		return nil, errors.InvalidInput(fmt.Sprintf("unsupported file type: %s", r.fileType))
	}
}

// ReadAll reads every sheet keyed by sheet name
func (r *DataReader) ReadAll() (map[string]*SheetData, error) {
	if r.fileType == "csv" {
		d, err := r.readCSVData()
		if err != nil {
			return nil, err
		}
		return map[string]*SheetData{d.Name: d}, nil
	}

	start := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open workbook %s", r.filePath)
	}
	defer f.Close()

	out := make(map[string]*SheetData)
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read sheet %s", name)
		}
		if len(rows) < 2 {
			// empty or header-only sheets are notes, not data
			continue
		}
		out[name] = processRows(name, rows)
	}
	log.Debug().Str("file", r.filePath).Int("sheets", len(out)).Dur("elapsed", time.Since(start)).Msg("workbook read")
	return out, nil
}

func (r *DataReader) readExcelData(sheet string) (*SheetData, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open workbook %s", r.filePath)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.WithCode(errors.CodeNotFound, fmt.Errorf("failed to read sheet %s: %w", sheet, err))
	}
	if len(rows) < 2 {
		return nil, errors.InsufficientData("sheet "+sheet, len(rows), 2)
	}
	return processRows(sheet, rows), nil
}

func (r *DataReader) readCSVData() (*SheetData, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open CSV file %s", r.filePath)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, fmt.Errorf("failed to read CSV file: %w", err))
	}
	if len(rows) < 2 {
		return nil, errors.InsufficientData("CSV file", len(rows), 2)
	}
	return processRows(r.csvSheetName(), rows), nil
}

func (r *DataReader) csvSheetName() string {
	base := filepath.Base(r.filePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// processRows converts raw string rows into SheetData
func processRows(name string, rows [][]string) *SheetData {
	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	for i, header := range headerRow {
		headers[i] = strings.TrimSpace(header)
	}

	dataRows := make([]RawRowData, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rowData := make(RawRowData)
		for j, cell := range row {
			if j < len(headers) {
				rowData[headers[j]] = strings.TrimSpace(cell)
			}
		}
		dataRows = append(dataRows, rowData)
	}

	return &SheetData{Name: name, Headers: headers, Rows: dataRows}
}

// Column returns the numeric cells of a column in row order. Headers match
// case-insensitively. Blank cells are skipped; columns in a series sheet may
// differ in length.
func (d *SheetData) Column(name string) ([]float64, error) {
	key, ok := d.header(name)
	if !ok {
		return nil, errors.NotFound(fmt.Sprintf("column %q in sheet %s", name, d.Name))
	}

	var out []float64
	for i, row := range d.Rows {
		cell := row[key]
		if cell == "" {
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, errors.InvalidInput(fmt.Sprintf("sheet %s row %d column %s: %q is not a number", d.Name, i+2, key, cell))
		}
		out = append(out, v)
	}
	return out, nil
}

// HasColumn reports whether the header row carries name
func (d *SheetData) HasColumn(name string) bool {
	_, ok := d.header(name)
	return ok
}

func (d *SheetData) header(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, h := range d.Headers {
		if strings.EqualFold(h, name) {
			return h, true
		}
	}
	return "", false
}
