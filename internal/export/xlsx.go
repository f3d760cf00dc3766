// Package export renders reporting data into downloadable workbooks.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"

	"github.com/evalhub/survey-builder-service/internal/models"
	"github.com/evalhub/survey-builder-service/internal/repositories"
)

const resultsSheet = "Results"

// ResultsWorkbook holds everything the XLSX writer needs: the flattened
// result rows, the answerable questions in presentation order (may be empty
// when the filter spans multiple versions) and the answers keyed by
// assignment then question.
type ResultsWorkbook struct {
	Rows      []*repositories.ResultRow
	Questions []*models.Question
	Answers   map[uint]map[uint]*models.TestAnswer
}

// WriteResults renders the workbook: bold frozen header, one row per
// completed assignment, one column per question after the student fields.
// Multi-valued answers are joined with ", ".
func WriteResults(wb *ResultsWorkbook) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	index, err := f.NewSheet(resultsSheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	headers := []string{"Student", "Document ID", "Email", "Test", "Period", "Version", "Completed At"}
	for _, q := range wb.Questions {
		headers = append(headers, q.Text)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(resultsSheet, cell, h); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(resultsSheet, "A1", lastHeader, boldStyle); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}
	if err := f.SetPanes(resultsSheet, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	for rowIdx, row := range wb.Rows {
		values := []any{
			row.StudentName,
			row.DocumentID,
			stringOrEmpty(row.Email),
			row.TestName,
			row.PeriodName,
			row.Version,
			formatCompletedAt(row),
		}
		for _, q := range wb.Questions {
			values = append(values, answerCell(wb.Answers, row.AssignmentID, q.ID))
		}

		for colIdx, v := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err := f.SetCellValue(resultsSheet, cell, v); err != nil {
				return nil, fmt.Errorf("write row %d: %w", rowIdx+2, err)
			}
			if s, ok := v.(string); ok && len(s) > widths[colIdx] {
				widths[colIdx] = len(s)
			}
		}
	}

	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if w > 60 {
			w = 60
		}
		if w < 10 {
			w = 10
		}
		_ = f.SetColWidth(resultsSheet, col, col, float64(w)+2)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// answerCell renders one answer value. Arrays join with ", ", plain strings
// pass through, anything unparseable falls back to the raw JSON.
func answerCell(answers map[uint]map[uint]*models.TestAnswer, assignmentID, questionID uint) string {
	byQuestion, ok := answers[assignmentID]
	if !ok {
		return ""
	}
	answer, ok := byQuestion[questionID]
	if !ok {
		return ""
	}
	return FormatAnswerValue(answer.Value)
}

// FormatAnswerValue flattens a stored JSON answer for display.
func FormatAnswerValue(value datatypes.JSON) string {
	raw := []byte(value)
	if len(raw) == 0 {
		return ""
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, ", ")
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single
	}
	return string(raw)
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatCompletedAt(row *repositories.ResultRow) string {
	if row.CompletedAt == nil {
		return ""
	}
	return row.CompletedAt.Format("2006-01-02 15:04:05")
}
