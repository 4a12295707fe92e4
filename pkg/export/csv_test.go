package export

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	exporter := NewCSVExporter()
	out, err := exporter.Render(Table{
		Columns: []string{"Student", "Program", "Enrolled"},
		Rows: [][]string{
			{"Emma Wilson", "girls_recreational", "2025-01-10"},
			{"Tommy Auto", "boys_competitive", "2025-02-01"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "Student,Program,Enrolled\nEmma Wilson,girls_recreational,2025-01-10\nTommy Auto,boys_competitive,2025-02-01\n", string(out))
}

func TestCSVExporterRequiresColumns(t *testing.T) {
	exporter := NewCSVExporter()
	_, err := exporter.Render(Table{})
	require.Error(t, err)
}

func TestCSVExporterPadsShortRows(t *testing.T) {
	exporter := NewCSVExporter()
	out, err := exporter.Render(Table{
		Columns: []string{"A", "B"},
		Rows:    [][]string{{"only"}},
	})
	require.NoError(t, err)
	require.Equal(t, "A,B\nonly,\n", string(out))
}
