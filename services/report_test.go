package services

import (
	"bytes"
	"testing"

	"zakat_flow_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestGenerateCaseExport(t *testing.T) {
	db := setupServiceTestDB(t)

	masjid := createTestMasjid(t, db, "Masjid Al-Noor")
	applicant := createTestApplicant(t, db, masjid.ID, "Yusuf")
	other := createTestApplicant(t, db, masjid.ID, "Zaid")
	db.Model(other).Update("status", models.StatusApproved)

	elsewhere := createTestMasjid(t, db, "Masjid B")
	createTestApplicant(t, db, elsewhere.ID, "Hana")

	buf, err := GenerateCaseExport(db, masjid.ID, "")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Applications")
	require.NoError(t, err)
	require.Len(t, rows, 3) // header plus two cases
	assert.Equal(t, "Case ID", rows[0][0])

	caseIDs := []string{rows[1][0], rows[2][0]}
	assert.Contains(t, caseIDs, applicant.CaseID)
	assert.Contains(t, caseIDs, other.CaseID)

	t.Run("summary sheet carries totals", func(t *testing.T) {
		title, err := f.GetCellValue("Summary", "A1")
		require.NoError(t, err)
		assert.Contains(t, title, masjid.Name)

		pending, err := f.GetCellValue("Summary", "B4")
		require.NoError(t, err)
		assert.Equal(t, "1", pending)
	})

	t.Run("status filter", func(t *testing.T) {
		buf, err := GenerateCaseExport(db, masjid.ID, models.StatusApproved)
		require.NoError(t, err)

		filtered, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
		require.NoError(t, err)
		defer filtered.Close()

		rows, err := filtered.GetRows("Applications")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, other.CaseID, rows[1][0])
	})

	t.Run("unknown status", func(t *testing.T) {
		_, err := GenerateCaseExport(db, masjid.ID, "escalated")
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})
}
