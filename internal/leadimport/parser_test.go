package leadimport_test

import (
	"bytes"
	"strings"
	"testing"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/leadimport"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestFormat(t *testing.T) {
	t.Parallel()

	format, err := leadimport.Format("Leads.XLSX")
	require.NoError(t, err)
	require.Equal(t, leadimport.FormatXLSX, format)

	format, err = leadimport.Format("leads.csv")
	require.NoError(t, err)
	require.Equal(t, leadimport.FormatCSV, format)

	_, err = leadimport.Format("leads.xls")
	require.ErrorIs(t, err, leadimport.ErrUnsupportedFormat)
}

func TestParseCSV(t *testing.T) {
	t.Parallel()

	data := "\ufeffName,PHONE,Email,Preferred Course,Notes\n" +
		"Meera, 9876543210 ,meera@example.com,Python,ignored\n" +
		",,,,\n" +
		"Arjun,9876543211\n"

	rows, err := leadimport.Parse("leads.csv", strings.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, []leadimport.Row{
		{Number: 2, Name: "Meera", Phone: "9876543210", Email: "meera@example.com", Course: "Python"},
		{Number: 4, Name: "Arjun", Phone: "9876543211"},
	}, rows)
}

func TestParseXLSX(t *testing.T) {
	t.Parallel()

	workbook := excelize.NewFile()
	sheet := workbook.GetSheetName(0)

	require.NoError(t, workbook.SetSheetRow(sheet, "A1", &[]any{"Name", "Phone", "Service", "Feedback"}))
	require.NoError(t, workbook.SetSheetRow(sheet, "A2", &[]any{"Meera", "9876543210", "Placement", "call after 5"}))

	var buf bytes.Buffer
	require.NoError(t, workbook.Write(&buf))
	require.NoError(t, workbook.Close())

	rows, err := leadimport.Parse("leads.xlsx", &buf)
	require.NoError(t, err)
	require.Equal(t, []leadimport.Row{
		{Number: 2, Name: "Meera", Phone: "9876543210", Service: "Placement", Feedback: "call after 5"},
	}, rows)
}

func TestParseRejectsEmptyAndBrokenFiles(t *testing.T) {
	t.Parallel()

	_, err := leadimport.Parse("leads.csv", strings.NewReader(""))
	require.ErrorIs(t, err, leadimport.ErrEmptyFile)

	_, err = leadimport.Parse("leads.xlsx", strings.NewReader("not a workbook"))
	require.Error(t, err)

	_, err = leadimport.Parse("leads.txt", strings.NewReader("name\nMeera"))
	require.ErrorIs(t, err, leadimport.ErrUnsupportedFormat)
}
