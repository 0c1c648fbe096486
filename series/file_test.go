package series

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func writeSeriesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "series.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFileAppliesDefaults(t *testing.T) {
	path := writeSeriesFile(t, `
points:
  - date: 2020-01
    value: "256.974"
  - date: 2020-02
    value: "257.971"
    series: CPILFESL
    region: EU
`)

	points, err := LoadFile(path, "CPIAUCSL", "US", nil)
	require.NoError(t, err)
	require.Len(t, points, 2)

	require.Equal(t, "CPIAUCSL", points[0].SeriesID)
	require.Equal(t, "US", points[0].Region)
	require.True(t, points[0].Value.Equal(decimal.RequireFromString("256.974")))

	require.Equal(t, "CPILFESL", points[1].SeriesID)
	require.Equal(t, "EU", points[1].Region)
}

func TestLoadFileRejectsNonPositiveValue(t *testing.T) {
	path := writeSeriesFile(t, `
points:
  - date: 2020-01
    value: "0"
`)

	_, err := LoadFile(path, "CPIAUCSL", "US", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not positive")
}

func TestLoadFileRejectsMalformedDate(t *testing.T) {
	path := writeSeriesFile(t, `
points:
  - date: January 2020
    value: "256.974"
`)

	_, err := LoadFile(path, "CPIAUCSL", "US", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported format")
}

func TestLoadFileRejectsEmptyFile(t *testing.T) {
	path := writeSeriesFile(t, "points: []\n")

	_, err := LoadFile(path, "CPIAUCSL", "US", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no points")
}

func TestLoadFileRunsQualityRules(t *testing.T) {
	path := writeSeriesFile(t, `
points:
  - date: 2020-01
    value: "256.974"
  - date: 2020-02
    value: "9000.0"
`)

	rules, err := CompileRules([]string{"value > 0 && value < 1000"})
	require.NoError(t, err)

	_, err = LoadFile(path, "CPIAUCSL", "US", rules)
	require.Error(t, err)
	require.Contains(t, err.Error(), "rejected point")
}

func TestParseDateLayouts(t *testing.T) {
	monthly, err := ParseDate("2020-01")
	require.NoError(t, err)
	require.Equal(t, 1, monthly.Day())

	daily, err := ParseDate("2020-01-15")
	require.NoError(t, err)
	require.Equal(t, 15, daily.Day())

	_, err = ParseDate("")
	require.Error(t, err)
}
