package analysis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

const currentDoc = `{
  "analysisMetadata": {"version": "2.0", "confidence": "high"},
  "patternDifferentiation": {
    "primaryPattern": {"name": "Liver Qi Stagnation", "chineseName": "Gan Qi Yu Jie", "confidence": 0.82, "severity": "significant"},
    "secondaryPatterns": [{"name": "Blood Deficiency", "confidence": "0.5"}]
  },
  "tongueExamination": {
    "overallAssessment": {"color": "Slightly purple sides", "shape": "Normal"},
    "coating": {"thickness": "thin", "color": "white", "moisture": "normal"},
    "zones": {"tip": {"description": "Red tip", "findings": "Heart heat"}, "extra": {"description": "ignored"}}
  },
  "herbalFormula": {"recommended": {"name": "Xiao Yao San"}},
  "treatmentPrinciples": {"primary": "Soothe the liver"}
}`

func TestParse_CurrentFormat(t *testing.T) {
	r, err := Parse([]byte(currentDoc))
	require.NoError(t, err)
	require.Equal(t, FormatCurrent, r.Format)
	require.NotNil(t, r.Current)
	require.Nil(t, r.Legacy)

	pp := r.Current.PatternDifferentiation.PrimaryPattern
	require.Equal(t, "Liver Qi Stagnation", pp.Name)
	require.InDelta(t, 0.82, float64(*pp.Confidence), 1e-9)
	require.InDelta(t, 0.5, float64(*r.Current.PatternDifferentiation.SecondaryPatterns[0].Confidence), 1e-9)
	require.Equal(t, StringList{"Heart heat"}, r.Current.TongueExamination.Zones.Tip.Findings)
	require.Nil(t, r.Current.EightPrinciples)
}

func TestParse_LegacyFormat(t *testing.T) {
	doc := `{"primaryPattern":"Spleen Qi Deficiency","coat":"Thin white","color":"Pale","shape":"Swollen","moisture":"Moist","recommendedFormula":"Si Jun Zi Tang","tongueZones":{"tip":"ok","center":"pale","root":"ok","sides":"teeth marks"}}`
	r, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Equal(t, FormatLegacy, r.Format)
	require.Equal(t, "Spleen Qi Deficiency", r.Legacy.PrimaryPattern)
	require.Equal(t, "teeth marks", r.Legacy.TongueZones.Sides)
}

func TestParse_RejectsNonObject(t *testing.T) {
	for _, doc := range []string{`[]`, `"text"`, `null`, `not json`} {
		_, err := Parse([]byte(doc))
		require.ErrorIs(t, err, ErrNotObject, doc)
	}
}

func TestParse_LenientLeaves(t *testing.T) {
	doc := `{
  "analysisMetadata": {"confidence": 0.85},
  "patternDifferentiation": {"primaryPattern": {"name": "Damp-Heat"}},
  "tongueExamination": {"zones": {"tip": "red tip"}},
  "acupuncture": {"moxibustion": {"recommended": "yes", "points": ["ST36"]}}
}`
	r, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Empty(t, r.Dropped)
	require.Equal(t, Text("0.85"), r.Current.AnalysisMetadata.Confidence)
	require.Equal(t, "red tip", r.Current.TongueExamination.Zones.Tip.Description)
	require.True(t, bool(r.Current.Acupuncture.Moxibustion.Recommended))
	require.Equal(t, "red tip", r.Normalize().Zones.Tip)
}

func TestParse_BadSectionIsDroppedAlone(t *testing.T) {
	doc := `{
  "patternDifferentiation": {"primaryPattern": {"name": "Damp-Heat"}},
  "herbalFormula": {"recommended": "Xiao Yao San"},
  "prognosis": {"expectedRecoveryTime": "4 weeks"}
}`
	r, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Equal(t, FormatCurrent, r.Format)
	require.Equal(t, []string{"herbalFormula"}, r.Dropped)
	require.Nil(t, r.Current.HerbalFormula)
	require.Equal(t, "Damp-Heat", r.Current.PatternDifferentiation.PrimaryPattern.Name)
	require.Equal(t, "4 weeks", r.Current.Prognosis.ExpectedRecoveryTime)

	legacy := `{"primaryPattern":"Spleen Qi Deficiency","coat":{"a":1},"color":"Pale"}`
	r, err = Parse([]byte(legacy))
	require.NoError(t, err)
	require.Equal(t, FormatLegacy, r.Format)
	require.Equal(t, []string{"coat"}, r.Dropped)
	require.Equal(t, "Pale", r.Legacy.Color)
}

func TestFlag_Lenient(t *testing.T) {
	cases := map[string]bool{`true`: true, `false`: false, `"Yes"`: true, `"no"`: false, `1`: true, `0`: false, `null`: false, `{}`: false}
	for in, want := range cases {
		var f Flag
		require.NoError(t, json.Unmarshal([]byte(in), &f), in)
		require.Equal(t, want, bool(f), in)
	}
}

func TestNormalize_Current(t *testing.T) {
	r, err := Parse([]byte(currentDoc))
	require.NoError(t, err)

	n := r.Normalize()
	require.Equal(t, FormatCurrent, n.Format)
	require.Equal(t, "Liver Qi Stagnation", n.PrimaryPattern.Name)
	require.Equal(t, SeveritySignificant, n.Severity)
	require.Equal(t, []string{"Blood Deficiency"}, n.SecondaryPatterns)
	require.Equal(t, "thin white", n.Coat)
	require.Equal(t, "Slightly purple sides", n.Color)
	require.Equal(t, "normal", n.Moisture)
	require.Equal(t, "Xiao Yao San", n.RecommendedFormula)
	require.Equal(t, "Soothe the liver", n.Recommendations)
	require.Equal(t, "Red tip", n.Zones.Tip)
	require.Empty(t, n.Zones.Root)
	require.Equal(t, "high", n.OverallConfidence)
}

func TestNormalize_LegacyDefaultsSeverityToMild(t *testing.T) {
	r := NewLegacy(&LegacyResult{PrimaryPattern: "Damp-Heat"})
	n := r.Normalize()
	require.Equal(t, SeverityMild, n.Severity)
	require.Equal(t, "Damp-Heat", n.PrimaryPattern.Name)
}

func TestNormalize_EmptyCurrentDoesNotPanic(t *testing.T) {
	r, err := Parse([]byte(`{"patternDifferentiation": null}`))
	require.NoError(t, err)
	require.Equal(t, FormatCurrent, r.Format)
	n := r.Normalize()
	require.Empty(t, n.PrimaryPattern.Name)
	require.Equal(t, SeverityModerate, n.Severity)
}

func TestResult_MarshalRoundTripKeepsFormat(t *testing.T) {
	r, err := Parse([]byte(currentDoc))
	require.NoError(t, err)

	out, err := json.Marshal(r)
	require.NoError(t, err)

	var back Result
	require.NoError(t, json.Unmarshal(out, &back))
	require.Equal(t, FormatCurrent, back.Format)
	require.Equal(t, "Liver Qi Stagnation", back.Current.PatternDifferentiation.PrimaryPattern.Name)
	// unknown zone keys are not carried over
	require.NotContains(t, string(out), "ignored")
}

func TestScore_Lenient(t *testing.T) {
	cases := map[string]float64{
		`0.7`:    0.7,
		`"0.25"`: 0.25,
		`"85%"`:  0.85,
		`"high"`: 0,
		`null`:   0,
		`true`:   0,
	}
	for in, want := range cases {
		var s Score
		require.NoError(t, json.Unmarshal([]byte(in), &s), in)
		require.InDelta(t, want, float64(s), 1e-9, in)
	}
}

func TestStringList_Lenient(t *testing.T) {
	var l StringList
	require.NoError(t, json.Unmarshal([]byte(`["a", 2, null, ""]`), &l))
	require.Equal(t, StringList{"a", "2"}, l)

	require.NoError(t, json.Unmarshal([]byte(`"single"`), &l))
	require.Equal(t, StringList{"single"}, l)

	require.NoError(t, json.Unmarshal([]byte(`{}`), &l))
	require.Nil(t, l)
}
