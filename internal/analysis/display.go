package analysis

import (
	"fmt"
	"math"
)

// Confidence display thresholds. These are display policy only.
const (
	highConfidence   = 0.8
	mediumConfidence = 0.6
	lowConfidence    = 0.4
)

// ConfidenceLevel is the qualitative bucket used for color coding.
type ConfidenceLevel string

const (
	ConfidenceHigh    ConfidenceLevel = "high"
	ConfidenceMedium  ConfidenceLevel = "medium"
	ConfidenceLow     ConfidenceLevel = "low"
	ConfidenceVeryLow ConfidenceLevel = "very low"
)

var confidenceColors = map[ConfidenceLevel]string{
	ConfidenceHigh:    "green",
	ConfidenceMedium:  "amber",
	ConfidenceLow:     "orange",
	ConfidenceVeryLow: "red",
}

// Color returns the display color for the level.
func (l ConfidenceLevel) Color() string { return confidenceColors[l] }

// ClampConfidence maps x into [0,1]; NaN becomes 0.
func ClampConfidence(x float64) float64 {
	switch {
	case math.IsNaN(x):
		return 0
	case x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}

// ConfidencePercent is round(x*100) after clamping.
func ConfidencePercent(x float64) int {
	return int(math.Round(ClampConfidence(x) * 100))
}

// FormatConfidence renders x as "89% confidence".
func FormatConfidence(x float64) string {
	return fmt.Sprintf("%d%% confidence", ConfidencePercent(x))
}

// LevelOf buckets x into one of the four confidence tiers.
func LevelOf(x float64) ConfidenceLevel {
	x = ClampConfidence(x)
	switch {
	case x >= highConfidence:
		return ConfidenceHigh
	case x >= mediumConfidence:
		return ConfidenceMedium
	case x >= lowConfidence:
		return ConfidenceLow
	default:
		return ConfidenceVeryLow
	}
}

// Style is how a severity badge is drawn.
type Style struct {
	Severity Severity `json:"severity"`
	Label    string   `json:"label"`
	Color    string   `json:"color"`
}

var severityStyles = map[Severity]Style{
	SeverityMild:        {Severity: SeverityMild, Label: "Mild", Color: "green"},
	SeverityModerate:    {Severity: SeverityModerate, Label: "Moderate", Color: "amber"},
	SeveritySignificant: {Severity: SeveritySignificant, Label: "Significant", Color: "red"},
	SeveritySevere:      {Severity: SeveritySevere, Label: "Severe", Color: "purple"},
}

// SeverityStyle returns the badge style for s. Unknown values use the moderate style.
func SeverityStyle(s Severity) Style {
	if st, ok := severityStyles[s]; ok {
		return st
	}
	return severityStyles[SeverityModerate]
}
