package series

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompileRulesRejectsInvalidExpression(t *testing.T) {
	_, err := CompileRules([]string{"value >"})
	require.Error(t, err)

	_, err = CompileRules([]string{""})
	require.Error(t, err)
}

func TestRuleSetCheck(t *testing.T) {
	rules, err := CompileRules([]string{
		"value > 0",
		`series == "CPIAUCSL"`,
	})
	require.NoError(t, err)
	require.Equal(t, 2, rules.Len())

	require.NoError(t, rules.Check(testPoint(t, "2020-01", "256.974")))

	foreign := testPoint(t, "2020-01", "256.974")
	foreign.SeriesID = "HICP"
	err = rules.Check(foreign)
	require.Error(t, err)
	require.Contains(t, err.Error(), "rejected point")
}

func TestNilRuleSetAcceptsEverything(t *testing.T) {
	var rules *RuleSet
	require.Equal(t, 0, rules.Len())
	require.NoError(t, rules.Check(testPoint(t, "2020-01", "256.974")))
}
