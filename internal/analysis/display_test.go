package analysis

import (
	"fmt"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

func TestFormatConfidence(t *testing.T) {
	require.Equal(t, "89% confidence", FormatConfidence(0.885))
	require.Equal(t, "0% confidence", FormatConfidence(0))
	require.Equal(t, "100% confidence", FormatConfidence(1))
	require.Equal(t, "88% confidence", FormatConfidence(0.88))
	// out of range values are clamped for display
	require.Equal(t, "100% confidence", FormatConfidence(3.2))
	require.Equal(t, "0% confidence", FormatConfidence(-0.4))
	require.Equal(t, "0% confidence", FormatConfidence(math.NaN()))
}

func TestLevelOf(t *testing.T) {
	cases := []struct {
		in   float64
		want ConfidenceLevel
	}{
		{0.95, ConfidenceHigh},
		{0.8, ConfidenceHigh},
		{0.79, ConfidenceMedium},
		{0.6, ConfidenceMedium},
		{0.59, ConfidenceLow},
		{0.4, ConfidenceLow},
		{0.39, ConfidenceVeryLow},
		{0, ConfidenceVeryLow},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, LevelOf(tc.in), "%v", tc.in)
		require.NotEmpty(t, tc.want.Color())
	}
}

func TestSeverityStyle(t *testing.T) {
	require.Equal(t, "green", SeverityStyle(SeverityMild).Color)
	require.Equal(t, "amber", SeverityStyle(SeverityModerate).Color)
	require.Equal(t, "red", SeverityStyle(SeveritySignificant).Color)
	require.Equal(t, "purple", SeverityStyle(SeveritySevere).Color)

	fallback := SeverityStyle("catastrophic")
	require.Equal(t, SeverityModerate, fallback.Severity)
	require.Equal(t, SeverityStyle(SeverityModerate), SeverityStyle(""))
}

func TestProperty_ConfidenceDisplay(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("formatted confidence is a whole percentage within 0..100", prop.ForAll(
		func(x float64) bool {
			p := ConfidencePercent(x)
			return p >= 0 && p <= 100 && FormatConfidence(x) == fmt.Sprintf("%d%% confidence", p)
		},
		gen.Float64Range(-5, 5),
	))

	properties.Property("confidence tiers are monotone", prop.ForAll(
		func(a, b float64) bool {
			rank := map[ConfidenceLevel]int{ConfidenceVeryLow: 0, ConfidenceLow: 1, ConfidenceMedium: 2, ConfidenceHigh: 3}
			if a > b {
				a, b = b, a
			}
			return rank[LevelOf(a)] <= rank[LevelOf(b)]
		},
		gen.Float64Range(0, 1),
		gen.Float64Range(0, 1),
	))

	properties.Property("every severity string has a known style", prop.ForAll(
		func(s string) bool {
			st := SeverityStyle(Severity(s))
			return st.Severity.Valid() && st.Color != ""
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
