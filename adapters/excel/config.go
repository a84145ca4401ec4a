package excel

// Config names the columns used when a sheet holds decay benchmarks
type Config struct {
	FilePath    string `json:"file_path"`
	AgeColumn   string `json:"age_column"`
	ValueColumn string `json:"value_column"`
	// MechanismColumn holds row labels on scoring sheets
	MechanismColumn string `json:"mechanism_column"`
}

// DefaultConfig returns the column names used by the bundled workbook layout
func DefaultConfig() Config {
	return Config{
		AgeColumn:       "age",
		ValueColumn:     "value",
		MechanismColumn: "mechanism",
	}
}
