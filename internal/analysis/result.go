package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Format identifies which of the two historical result shapes a document uses.
type Format string

const (
	FormatLegacy  Format = "legacy"
	FormatCurrent Format = "current"
)

// CurrentVersion is stamped into analysisMetadata.version by the analyze endpoint.
const CurrentVersion = "2.0"

// discriminatorKey marks a current-format document.
const discriminatorKey = "patternDifferentiation"

var ErrNotObject = errors.New("analysis result is not a JSON object")

// Result is a parsed analysis document. Exactly one of Legacy and Current is set,
// matching Format.
type Result struct {
	Format  Format
	Legacy  *LegacyResult
	Current *CurrentResult
	// Dropped lists top-level keys whose values could not be decoded.
	Dropped []string
}

// Parse decodes raw JSON and resolves the format once.
func Parse(raw []byte) (*Result, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotObject, err)
	}
	if probe == nil {
		return nil, ErrNotObject
	}
	if _, ok := probe[discriminatorKey]; ok {
		var cur CurrentResult
		if err := json.Unmarshal(raw, &cur); err != nil {
			dropped := decodeCurrent(probe, &cur)
			return &Result{Format: FormatCurrent, Current: &cur, Dropped: dropped}, nil
		}
		return &Result{Format: FormatCurrent, Current: &cur}, nil
	}
	var legacy LegacyResult
	if err := json.Unmarshal(raw, &legacy); err != nil {
		dropped := decodeLegacy(probe, &legacy)
		return &Result{Format: FormatLegacy, Legacy: &legacy, Dropped: dropped}, nil
	}
	return &Result{Format: FormatLegacy, Legacy: &legacy}, nil
}

// decodeCurrent fills cur one top-level section at a time. A section that
// does not decode is left nil and its key is returned.
func decodeCurrent(probe map[string]json.RawMessage, cur *CurrentResult) []string {
	*cur = CurrentResult{}
	return decodeFields(probe, map[string]func(json.RawMessage) error{
		"analysisMetadata":         into(&cur.AnalysisMetadata),
		"eightPrinciples":          into(&cur.EightPrinciples),
		"zangFuDiagnosis":          into(&cur.ZangFuDiagnosis),
		discriminatorKey:           into(&cur.PatternDifferentiation),
		"tongueExamination":        into(&cur.TongueExamination),
		"treatmentPrinciples":      into(&cur.TreatmentPrinciples),
		"herbalFormula":            into(&cur.HerbalFormula),
		"acupuncture":              into(&cur.Acupuncture),
		"lifestyleRecommendations": into(&cur.LifestyleRecommendations),
		"prognosis":                into(&cur.Prognosis),
		"followUp":                 into(&cur.FollowUp),
	})
}

// decodeLegacy is decodeCurrent for the flat shape.
func decodeLegacy(probe map[string]json.RawMessage, l *LegacyResult) []string {
	*l = LegacyResult{}
	return decodeFields(probe, map[string]func(json.RawMessage) error{
		"primaryPattern":     into(&l.PrimaryPattern),
		"secondaryPatterns":  into(&l.SecondaryPatterns),
		"coat":               into(&l.Coat),
		"color":              into(&l.Color),
		"shape":              into(&l.Shape),
		"moisture":           into(&l.Moisture),
		"recommendations":    into(&l.Recommendations),
		"recommendedFormula": into(&l.RecommendedFormula),
		"severity":           into(&l.Severity),
		"tongueZones":        into(&l.TongueZones),
	})
}

func decodeFields(probe map[string]json.RawMessage, fields map[string]func(json.RawMessage) error) []string {
	var dropped []string
	for key, decode := range fields {
		raw, ok := probe[key]
		if !ok {
			continue
		}
		if err := decode(raw); err != nil {
			dropped = append(dropped, key)
		}
	}
	sort.Strings(dropped)
	return dropped
}

// into decodes into a fresh T and only stores it on success.
func into[T any](dst *T) func(json.RawMessage) error {
	return func(raw json.RawMessage) error {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		*dst = v
		return nil
	}
}

// FromMap parses an already-decoded JSON object.
func FromMap(m map[string]any) (*Result, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// NewCurrent wraps a current-format document.
func NewCurrent(c *CurrentResult) *Result {
	return &Result{Format: FormatCurrent, Current: c}
}

// NewLegacy wraps a legacy document.
func NewLegacy(l *LegacyResult) *Result {
	return &Result{Format: FormatLegacy, Legacy: l}
}

func (r *Result) IsCurrent() bool { return r != nil && r.Format == FormatCurrent && r.Current != nil }

func (r *Result) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	if r.IsCurrent() {
		return json.Marshal(r.Current)
	}
	if r.Legacy != nil {
		return json.Marshal(r.Legacy)
	}
	return []byte("{}"), nil
}

func (r *Result) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*r = *parsed
	return nil
}

// PatternSummary is the primary pattern as the renderer needs it.
type PatternSummary struct {
	Name              string
	ChineseName       string
	ChineseCharacters string
	Confidence        *Score
	Severity          Severity
}

// Normalized is the flat read path shared by both shapes. Empty strings mean
// "nothing to show".
type Normalized struct {
	Format             Format
	PrimaryPattern     PatternSummary
	SecondaryPatterns  []string
	Coat               string
	Color              string
	Shape              string
	Moisture           string
	Recommendations    string
	RecommendedFormula string
	Severity           Severity
	Zones              LegacyZones
	OverallConfidence  string
}

// Normalize flattens r. Missing sections produce zero values, never errors.
func (r *Result) Normalize() Normalized {
	if r == nil {
		return Normalized{Severity: SeverityMild}
	}
	if r.IsCurrent() {
		return normalizeCurrent(r.Current)
	}
	l := r.Legacy
	if l == nil {
		l = &LegacyResult{}
	}
	n := Normalized{
		Format:             FormatLegacy,
		PrimaryPattern:     PatternSummary{Name: l.PrimaryPattern, Severity: l.Severity},
		SecondaryPatterns:  []string(l.SecondaryPatterns),
		Coat:               l.Coat,
		Color:              l.Color,
		Shape:              l.Shape,
		Moisture:           l.Moisture,
		Recommendations:    l.Recommendations,
		RecommendedFormula: l.RecommendedFormula,
		Severity:           l.Severity,
	}
	if n.Severity == "" {
		n.Severity = SeverityMild
	}
	if l.TongueZones != nil {
		n.Zones = *l.TongueZones
	}
	return n
}

func normalizeCurrent(c *CurrentResult) Normalized {
	n := Normalized{Format: FormatCurrent}
	if pd := c.PatternDifferentiation; pd != nil {
		if p := pd.PrimaryPattern; p != nil {
			n.PrimaryPattern = PatternSummary{
				Name:              p.Name,
				ChineseName:       p.ChineseName,
				ChineseCharacters: p.ChineseCharacters,
				Confidence:        p.Confidence,
				Severity:          p.Severity,
			}
		}
		for _, sp := range pd.SecondaryPatterns {
			if sp.Name != "" {
				n.SecondaryPatterns = append(n.SecondaryPatterns, sp.Name)
			}
		}
	}
	n.Severity = n.PrimaryPattern.Severity
	if n.Severity == "" {
		n.Severity = SeverityModerate
	}

	if te := c.TongueExamination; te != nil {
		if co := te.Coating; co != nil {
			n.Coat = firstNonEmpty(co.Description, joinNonEmpty(" ", co.Thickness, co.Color))
		}
		if oa := te.OverallAssessment; oa != nil {
			n.Color = oa.Color
			n.Shape = oa.Shape
			n.Moisture = oa.Moisture
		}
		if b := te.Body; b != nil {
			n.Color = firstNonEmpty(n.Color, b.Color)
			n.Shape = firstNonEmpty(n.Shape, b.Shape)
		}
		if n.Moisture == "" && te.Coating != nil {
			n.Moisture = te.Coating.Moisture
		}
		if z := te.Zones; z != nil {
			n.Zones = LegacyZones{
				Tip:    zoneText(z.Tip),
				Center: zoneText(z.Center),
				Root:   zoneText(z.Root),
				Sides:  zoneText(z.Sides),
			}
		}
	}
	if tp := c.TreatmentPrinciples; tp != nil {
		n.Recommendations = tp.Primary
	}
	if hf := c.HerbalFormula; hf != nil && hf.Recommended != nil {
		n.RecommendedFormula = hf.Recommended.Name
	}
	if md := c.AnalysisMetadata; md != nil {
		n.OverallConfidence = string(md.Confidence)
	}
	return n
}

func zoneText(z *Zone) string {
	if z == nil {
		return ""
	}
	return z.Description
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func joinNonEmpty(sep string, vals ...string) string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return strings.Join(out, sep)
}
