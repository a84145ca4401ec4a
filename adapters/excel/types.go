package excel

// RawRowData represents a row of raw sheet data as header -> cell text
type RawRowData map[string]string

// SheetData represents one sheet (or a whole CSV file)
type SheetData struct {
	Name    string
	Headers []string     // Column headers
	Rows    []RawRowData // Data rows
}
