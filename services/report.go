package services

import (
	"bytes"
	"fmt"
	"time"

	"zakat_flow_go/models"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// GenerateCaseExport builds an Excel workbook with all zakat applications for
// a masjid, optionally filtered by status
func GenerateCaseExport(dbConn *gorm.DB, masjidID string, status string) (*bytes.Buffer, error) {
	var masjid models.Masjid
	if err := dbConn.First(&masjid, "id = ?", masjidID).Error; err != nil {
		return nil, fmt.Errorf("failed to get masjid: %w", err)
	}

	query := dbConn.Where("masjid_id = ?", masjidID)
	if status != "" {
		if !models.IsValidStatus(status) {
			return nil, ErrInvalidArgument
		}
		query = query.Where("status = ?", status)
	}

	var applicants []models.Applicant
	if err := query.Order("created_at DESC").Find(&applicants).Error; err != nil {
		return nil, fmt.Errorf("failed to load applications: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Applications"
	f.SetSheetName("Sheet1", sheetName)

	headers := []string{
		"Case ID",          // A
		"Name",             // B
		"Email",            // C
		"Phone",            // D
		"Status",           // E
		"Amount Requested", // F
		"Monthly Income",   // G
		"Monthly Expenses", // H
		"Household Size",   // I
		"Submitted",        // J
		"Status Changed",   // K
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	f.SetCellStyle(sheetName, "A1", "K1", headerStyle)
	f.SetColWidth(sheetName, "A", "A", 18)
	f.SetColWidth(sheetName, "B", "E", 24)
	f.SetColWidth(sheetName, "F", "K", 16)

	for i, a := range applicants {
		row := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), a.CaseID)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), a.Name)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), a.Email)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), a.Phone)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), a.Status)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), a.AmountRequested)
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), a.MonthlyIncome)
		f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), a.MonthlyExpenses)
		f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), a.HouseholdSize)
		f.SetCellValue(sheetName, fmt.Sprintf("J%d", row), a.CreatedAt.Format("2006-01-02"))
		if a.StatusChangedAt != nil {
			f.SetCellValue(sheetName, fmt.Sprintf("K%d", row), a.StatusChangedAt.Format("2006-01-02"))
		}
	}

	// Summary sheet with per-status totals
	sheetSummary := "Summary"
	f.NewSheet(sheetSummary)
	f.SetCellValue(sheetSummary, "A1", fmt.Sprintf("%s - Zakat Applications", masjid.Name))
	titleStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	f.SetCellStyle(sheetSummary, "A1", "A1", titleStyle)
	f.SetCellValue(sheetSummary, "A2", fmt.Sprintf("Generated %s", time.Now().Format("2006-01-02 15:04")))
	f.SetColWidth(sheetSummary, "A", "B", 30)

	counts := map[string]int{}
	var totalRequested float64
	for _, a := range applicants {
		counts[a.Status]++
		totalRequested += a.AmountRequested
	}

	row := 4
	for _, s := range []string{models.StatusPending, models.StatusApproved, models.StatusRejected} {
		f.SetCellValue(sheetSummary, fmt.Sprintf("A%d", row), s)
		f.SetCellValue(sheetSummary, fmt.Sprintf("B%d", row), counts[s])
		row++
	}
	f.SetCellValue(sheetSummary, fmt.Sprintf("A%d", row), "Total requested")
	f.SetCellValue(sheetSummary, fmt.Sprintf("B%d", row), totalRequested)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write excel buffer: %w", err)
	}

	return buf, nil
}
