package excel

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/example/totvocab/internal/store"
)

// exportLimit caps how many records a backup fetches from the store.
const exportLimit = 10000

// ExportWords writes every recorded word to an Excel file with the same
// column layout the importer reads, and returns the number of rows written.
func ExportWords(ctx context.Context, st store.Store, filePath string) (int, error) {
	records, err := st.GetRecentWords(ctx, exportLimit)
	if err != nil {
		return 0, fmt.Errorf("failed to get words for export: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	headers := []string{"词语", "分类", "场景", "发音", "备注", "相关词语", "记录时间"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue("Sheet1", cell, header)
	}

	for i, record := range records {
		row := i + 2
		values := []interface{}{
			record.Word,
			record.Category,
			record.Context,
			record.Pronunciation,
			record.Notes,
			strings.Join(record.RelatedWords, "、"),
			record.CreatedAt,
		}
		for j, value := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			f.SetCellValue("Sheet1", cell, value)
		}
	}

	if err := f.SaveAs(filePath); err != nil {
		return 0, fmt.Errorf("failed to save Excel file: %v", err)
	}

	return len(records), nil
}
