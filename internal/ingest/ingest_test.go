package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

const rawHeader = "_id,FACILITY_ID,FACILITY_NAME,NAICS_CODE_6_DESC_ENG,EMPLOYEE_COUNT," +
	"FA_LAT,FA_LON,CHEMICAL_ID,CHEMICAL_NAME,USE_MANUFACTURED,USE_PROCESSED," +
	"USE_OTHER_USE,REL_AIR,REL_LAND,REL_WATER,REL_DISPOSAL,REL_RECYCLING\n"

func writeRawCSV(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chemtrac_raw.csv")
	require.NoError(t, os.WriteFile(path, []byte(rawHeader+body), 0o644))
	return path
}

func TestCleanRenamesAndTotals(t *testing.T) {
	path := writeRawCSV(t,
		"1,FAC_0001,Etobicoke Plating Ltd,Metal Finishing & Plating,42,"+
			"43.6205,-79.5132,CHEM_07,Chromium (hexavalent),1,0,0,12.5,2,0.25,0,1\n")

	result, err := Clean(context.Background(), path, Options{})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Zero(t, result.Dropped)

	row := result.Rows[0]
	assert.Equal(t, "FAC_0001", row.FacilityID)
	assert.Equal(t, "Etobicoke Plating Ltd", row.FacilityName)
	assert.Equal(t, "Metal Finishing & Plating", row.Industry)
	assert.Equal(t, 42.0, row.EmployeeCount)
	assert.Equal(t, 43.6205, row.Latitude)
	assert.Equal(t, -79.5132, row.Longitude)
	assert.Equal(t, "CHEM_07", row.ChemicalID)
	assert.True(t, row.UseManufactured)
	assert.False(t, row.UseProcessed)
	assert.InDelta(t, 15.75, row.TotalReleaseKG, 1e-9)
}

func TestCleanPreservesChemicalNameWhitespace(t *testing.T) {
	path := writeRawCSV(t,
		"1,FAC_0001,Plant,Chemicals,10,43.7,-79.4,CHEM_01,  Toluene  ,0,1,0,5,0,0,0,0\n")

	result, err := Clean(context.Background(), path, Options{})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "  Toluene  ", result.Rows[0].ChemicalName)
}

func TestCleanCoercesMalformedNumerics(t *testing.T) {
	path := writeRawCSV(t,
		"1,FAC_0001,Plant,Chemicals,n/a,43.7,bad,CHEM_01,Toluene,no,1,0,,9.5,x,0,0\n")

	result, err := Clean(context.Background(), path, Options{})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)

	row := result.Rows[0]
	assert.Zero(t, row.EmployeeCount)
	assert.Zero(t, row.Longitude)
	assert.Zero(t, row.ReleaseAir)
	assert.Equal(t, 9.5, row.ReleaseLand)
	assert.Zero(t, row.ReleaseWater)
	assert.False(t, row.UseManufactured, "unparseable flag is false")
	assert.Equal(t, 9.5, row.TotalReleaseKG)
}

func TestCleanDropsRowsWithoutFacilityID(t *testing.T) {
	path := writeRawCSV(t,
		"1,FAC_0001,Plant,Chemicals,10,43.7,-79.4,CHEM_01,Toluene,1,0,0,5,0,0,0,0\n"+
			"2,,Orphan,Chemicals,10,43.7,-79.4,CHEM_02,Acetone,1,0,0,5,0,0,0,0\n"+
			"3,   ,Orphan Too,Chemicals,10,43.7,-79.4,CHEM_03,Xylene,1,0,0,5,0,0,0,0\n")

	result, err := Clean(context.Background(), path, Options{})
	require.NoError(t, err)
	assert.Len(t, result.Rows, 1)
	assert.Equal(t, 2, result.Dropped)
}

func TestCleanAcceptsCanonicalHeaders(t *testing.T) {
	// Re-cleaning an already-clean table is a no-op on the names.
	path := filepath.Join(t.TempDir(), "clean.csv")
	body := "facility_id,facility_name,industry,latitude,longitude,employee_count," +
		"chemical_id,chemical_name,use_manufactured,use_processed,use_other_use," +
		"rel_air,rel_water,rel_land,rel_disposal,rel_recycling\n" +
		"FAC_0001,Plant,Chemicals,43.7,-79.4,10,CHEM_01,Toluene,1,0,0,5,0,0,0,0\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	result, err := Clean(context.Background(), path, Options{})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "FAC_0001", result.Rows[0].FacilityID)
	assert.Equal(t, 5.0, result.Rows[0].TotalReleaseKG)
}

func TestCleanXLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("ChemTRAC")
	require.NoError(t, err)

	addRow := func(cells ...string) {
		row := sheet.AddRow()
		for _, v := range cells {
			row.AddCell().Value = v
		}
	}
	addRow("FACILITY_ID", "FACILITY_NAME", "NAICS_CODE_6_DESC_ENG", "FA_LAT", "FA_LON",
		"CHEMICAL_ID", "CHEMICAL_NAME", "REL_AIR")
	addRow("FAC_0001", "Plant", "Chemicals", "43.7", "-79.4", "CHEM_01", "Lead", "2.5")

	path := filepath.Join(t.TempDir(), "chemtrac_raw.xlsx")
	require.NoError(t, f.Save(path))

	result, err := Clean(context.Background(), path, Options{})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "Lead", result.Rows[0].ChemicalName)
	assert.Equal(t, 2.5, result.Rows[0].TotalReleaseKG)
}

func TestCleanMissingFile(t *testing.T) {
	_, err := Clean(context.Background(), filepath.Join(t.TempDir(), "absent.csv"), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absent.csv")
}

func TestCleanWindows1252Charset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.csv")
	body := append([]byte(rawHeader),
		[]byte("1,FAC_0001,Caf")...)
	body = append(body, 0xE9) // e-acute in windows-1252
	body = append(body, []byte(" Industriel,Chemicals,10,43.7,-79.4,CHEM_01,Toluene,1,0,0,5,0,0,0,0\n")...)
	require.NoError(t, os.WriteFile(path, body, 0o644))

	result, err := Clean(context.Background(), path, Options{Charset: "windows-1252"})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "Café Industriel", result.Rows[0].FacilityName)
}
