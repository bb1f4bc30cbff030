package model

// ImportResult is returned from a single-file import.
type ImportResult struct {
	Processor       string  `json:"processor"`
	Month           string  `json:"month"`
	RecordsImported int     `json:"records_imported"`
	Issues          []Issue `json:"issues,omitempty"`
	RowErrors       []string `json:"row_errors,omitempty"`
}

// FileImportResult pairs one file of a multi-file import with its outcome.
// Error is set when the whole file was rejected.
type FileImportResult struct {
	File   string        `json:"file"`
	Result *ImportResult `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// BatchImportResult aggregates a multi-file import.
type BatchImportResult struct {
	TotalImported int                `json:"total_imported"`
	Results       []FileImportResult `json:"results"`
}
