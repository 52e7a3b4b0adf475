// Package excel bulk-loads word records from spreadsheet files and exports
// the recorded vocabulary back out, for seeding a store or taking backups.
package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/example/totvocab/internal/store"
	"github.com/example/totvocab/pkg/models"
)

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath            string // Path to the Excel or CSV file
	WordColumn          string // Column with the word
	CategoryColumn      string // Column with the category
	ContextColumn       string // Column with the scene/context
	PronunciationColumn string // Column with the pronunciation
	NotesColumn         string // Column with free-form notes
	SheetName           string // Name of the sheet to import
	StartRow            int    // The row to start importing from (1-based index)
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig(filePath string) ImportConfig {
	return ImportConfig{
		FilePath:            filePath,
		WordColumn:          "A",
		CategoryColumn:      "B",
		ContextColumn:       "C",
		PronunciationColumn: "D",
		NotesColumn:         "E",
		SheetName:           "Sheet1",
		StartRow:            2, // By default, start from the second row (skip header)
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Created        int
	Skipped        int
	Errors         []string
}

// ImportWords imports word records from an Excel or CSV file into the
// store. Words already recorded are skipped rather than duplicated.
func ImportWords(ctx context.Context, st store.Store, config ImportConfig) (*ImportResult, error) {
	existing, err := existingWords(ctx, st)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(config.FilePath))
	if ext == ".csv" {
		return importFromCSV(ctx, st, config, existing)
	}
	return importFromExcel(ctx, st, config, existing)
}

// existingWords maps already-recorded word text for duplicate skipping.
func existingWords(ctx context.Context, st store.Store) (map[string]bool, error) {
	records, err := st.GetRecentWords(ctx, 10000)
	if err != nil {
		return nil, fmt.Errorf("failed to get existing words: %v", err)
	}
	known := make(map[string]bool, len(records))
	for _, record := range records {
		known[record.Word] = true
	}
	return known, nil
}

// importFromExcel imports word records from an Excel file
func importFromExcel(ctx context.Context, st store.Store, config ImportConfig, existing map[string]bool) (*ImportResult, error) {
	f, err := excelize.OpenFile(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(config.SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %v", err)
	}

	result := &ImportResult{Errors: make([]string, 0)}
	for i, row := range rows {
		// Skip header rows
		if i < config.StartRow-1 {
			continue
		}

		result.TotalProcessed++

		fields := models.WordFields{
			Word:          cellValue(row, config.WordColumn),
			Category:      cellValue(row, config.CategoryColumn),
			Context:       cellValue(row, config.ContextColumn),
			Pronunciation: cellValue(row, config.PronunciationColumn),
			Notes:         cellValue(row, config.NotesColumn),
		}
		if err := importRecord(ctx, st, fields, existing, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
		}
	}

	return result, nil
}

// importFromCSV imports word records from a CSV file with the column order
// word, category, context, pronunciation, notes.
func importFromCSV(ctx context.Context, st store.Store, config ImportConfig, existing map[string]bool) (*ImportResult, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %v", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	result := &ImportResult{Errors: make([]string, 0)}
	rowNum := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %v", err)
		}

		rowNum++
		if rowNum < config.StartRow || len(row) == 0 {
			continue
		}

		result.TotalProcessed++

		fields := models.WordFields{Word: strings.TrimSpace(row[0])}
		if len(row) > 1 {
			fields.Category = strings.TrimSpace(row[1])
		}
		if len(row) > 2 {
			fields.Context = strings.TrimSpace(row[2])
		}
		if len(row) > 3 {
			fields.Pronunciation = strings.TrimSpace(row[3])
		}
		if len(row) > 4 {
			fields.Notes = strings.TrimSpace(row[4])
		}
		if err := importRecord(ctx, st, fields, existing, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
		}
	}

	return result, nil
}

// importRecord validates one row and stores it; known words are skipped.
func importRecord(ctx context.Context, st store.Store, fields models.WordFields, existing map[string]bool, result *ImportResult) error {
	if fields.Word == "" {
		return fmt.Errorf("word cannot be empty")
	}
	if existing[fields.Word] {
		result.Skipped++
		return nil
	}

	fields.Category = models.NormalizeCategory(strings.TrimSpace(fields.Category))

	if _, err := st.AddWord(ctx, fields); err != nil {
		return fmt.Errorf("failed to create word: %v", err)
	}
	existing[fields.Word] = true
	result.Created++
	return nil
}

func cellValue(row []string, column string) string {
	idx := columnToIndex(column)
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// columnToIndex converts an Excel column letter to a zero-based index
func columnToIndex(column string) int {
	column = strings.ToUpper(column)
	index := 0
	for i := 0; i < len(column); i++ {
		index = index*26 + int(column[i]-'A'+1)
	}
	return index - 1
}
