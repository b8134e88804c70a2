// Package report turns a stored analysis result into a display view and a PDF.
package report

import (
	"fmt"
	"strings"

	"github.com/tcmtongue/server/internal/analysis"
)

// Section ids, in render order.
const (
	SectionEightPrinciples     = "eight_principles"
	SectionZangFu              = "zang_fu"
	SectionPatterns            = "patterns"
	SectionTongueExamination   = "tongue_examination"
	SectionTreatmentPrinciples = "treatment_principles"
	SectionHerbalFormula       = "herbal_formula"
	SectionAcupuncture         = "acupuncture"
	SectionLifestyle           = "lifestyle"
	SectionPrognosis           = "prognosis"
	SectionFollowUp            = "follow_up"
	SectionRecommendations     = "recommendations"
)

// Item is one labelled line. Confidence is nil when the model gave none.
type Item struct {
	Label      string   `json:"label"`
	Value      string   `json:"value,omitempty"`
	List       []string `json:"list,omitempty"`
	Confidence *Badge   `json:"confidence,omitempty"`
}

// Badge is a formatted confidence.
type Badge struct {
	Percent int                      `json:"percent"`
	Text    string                   `json:"text"`
	Level   analysis.ConfidenceLevel `json:"level"`
	Color   string                   `json:"color"`
}

func badge(s *analysis.Score) *Badge {
	if s == nil {
		return nil
	}
	x := float64(*s)
	lvl := analysis.LevelOf(x)
	return &Badge{
		Percent: analysis.ConfidencePercent(x),
		Text:    analysis.FormatConfidence(x),
		Level:   lvl,
		Color:   lvl.Color(),
	}
}

type Section struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Items []Item `json:"items"`
}

// PrimaryBlock is the headline pattern. It is present even when the result
// carries no pattern at all.
type PrimaryBlock struct {
	Name              string         `json:"name"`
	ChineseName       string         `json:"chineseName,omitempty"`
	ChineseCharacters string         `json:"chineseCharacters,omitempty"`
	Confidence        *Badge         `json:"confidence,omitempty"`
	Severity          analysis.Style `json:"severity"`
	Evidence          []string       `json:"evidence,omitempty"`
	Manifestations    []string       `json:"clinicalManifestations,omitempty"`
}

// ZoneView is one region of the tongue map.
type ZoneView struct {
	ZoneInfo
	Description string   `json:"description,omitempty"`
	Findings    []string `json:"findings,omitempty"`
}

// Card is a flat legacy finding.
type Card struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type View struct {
	Format            analysis.Format `json:"format"`
	Version           string          `json:"version,omitempty"`
	OverallConfidence string          `json:"overallConfidence,omitempty"`
	ImageQuality      string          `json:"imageQuality,omitempty"`
	Primary           PrimaryBlock    `json:"primaryPattern"`
	SecondaryPatterns []string        `json:"secondaryPatterns,omitempty"`
	Cards             []Card          `json:"cards,omitempty"`
	Zones             []ZoneView      `json:"zones,omitempty"`
	Sections          []Section       `json:"sections"`
	Formula           *Formula        `json:"formula,omitempty"`
	Principles        []Principle     `json:"principles"`
}

// Section returns the section with id, or nil.
func (v *View) Section(id string) *Section {
	for i := range v.Sections {
		if v.Sections[i].ID == id {
			return &v.Sections[i]
		}
	}
	return nil
}

// Build renders r. A nil or empty result still yields a usable view.
func Build(r *analysis.Result) *View {
	n := r.Normalize()
	v := &View{
		Format:            n.Format,
		OverallConfidence: n.OverallConfidence,
		SecondaryPatterns: n.SecondaryPatterns,
		Sections:          []Section{},
		Principles:        Principles(),
		Formula:           LookupFormula(n.PrimaryPattern.Name, n.RecommendedFormula),
	}
	if v.Format == "" {
		v.Format = analysis.FormatLegacy
	}
	v.Primary = PrimaryBlock{
		Name:              firstNonEmpty(n.PrimaryPattern.Name, "Unknown pattern"),
		ChineseName:       n.PrimaryPattern.ChineseName,
		ChineseCharacters: n.PrimaryPattern.ChineseCharacters,
		Confidence:        badge(n.PrimaryPattern.Confidence),
		Severity:          analysis.SeverityStyle(n.Severity),
	}

	if r.IsCurrent() {
		buildCurrent(v, r.Current)
	} else {
		buildLegacy(v, n)
	}
	return v
}

func buildLegacy(v *View, n analysis.Normalized) {
	for _, c := range []Card{
		{Label: "Coat", Value: n.Coat},
		{Label: "Color", Value: n.Color},
		{Label: "Shape", Value: n.Shape},
		{Label: "Moisture", Value: n.Moisture},
	} {
		if strings.TrimSpace(c.Value) != "" {
			v.Cards = append(v.Cards, c)
		}
	}
	texts := map[string]string{
		"tip":    n.Zones.Tip,
		"center": n.Zones.Center,
		"root":   n.Zones.Root,
		"sides":  n.Zones.Sides,
	}
	for _, z := range legacyZones {
		if t := texts[z.ID]; t != "" {
			v.Zones = append(v.Zones, ZoneView{ZoneInfo: z, Description: t})
		}
	}
	var items []Item
	if n.Recommendations != "" {
		items = append(items, Item{Label: "Recommendations", Value: n.Recommendations})
	}
	if n.RecommendedFormula != "" {
		items = append(items, Item{Label: "Recommended formula", Value: n.RecommendedFormula})
	}
	v.addSection(SectionRecommendations, "Recommendations", items)
}

func buildCurrent(v *View, c *analysis.CurrentResult) {
	if md := c.AnalysisMetadata; md != nil {
		v.Version = md.Version
		v.ImageQuality = md.ImageQuality
	}
	if pd := c.PatternDifferentiation; pd != nil && pd.PrimaryPattern != nil {
		v.Primary.Evidence = pd.PrimaryPattern.Evidence
		v.Primary.Manifestations = pd.PrimaryPattern.ClinicalManifestations
	}

	if ep := c.EightPrinciples; ep != nil {
		var items []Item
		for _, p := range []struct {
			label string
			p     *analysis.Principle
		}{
			{"Exterior / Interior", ep.ExteriorInterior},
			{"Hot / Cold", ep.HotCold},
			{"Excess / Deficiency", ep.ExcessDeficiency},
			{"Yin / Yang", ep.YinYang},
		} {
			if p.p == nil {
				continue
			}
			items = append(items, Item{Label: p.label, Value: p.p.Classification, List: p.p.Evidence, Confidence: badge(p.p.Confidence)})
		}
		v.addSection(SectionEightPrinciples, "Eight Principles", items)
	}

	if zf := c.ZangFuDiagnosis; zf != nil {
		var items []Item
		if po := zf.PrimaryOrgan; po != nil {
			items = append(items, Item{Label: "Primary organ: " + po.Organ, Value: po.Pathology, Confidence: badge(po.Confidence)})
		}
		for _, so := range zf.SecondaryOrgans {
			items = append(items, Item{Label: "Secondary organ: " + so.Organ, Value: so.Pathology, Confidence: badge(so.Confidence)})
		}
		v.addSection(SectionZangFu, "Zang-Fu Organ Diagnosis", items)
	}

	if pd := c.PatternDifferentiation; pd != nil {
		var items []Item
		for _, sp := range pd.SecondaryPatterns {
			label := sp.Name
			if sp.ChineseName != "" {
				label = fmt.Sprintf("%s (%s)", sp.Name, sp.ChineseName)
			}
			items = append(items, Item{Label: label, Value: sp.RelationshipToPrimary, List: sp.Evidence, Confidence: badge(sp.Confidence)})
		}
		for _, d := range pd.DifferentialDiagnosis {
			items = append(items, Item{Label: "Ruled out: " + d.Pattern, Value: d.RulingFactor})
		}
		v.addSection(SectionPatterns, "Pattern Differentiation", items)
	}

	if te := c.TongueExamination; te != nil {
		var items []Item
		if oa := te.OverallAssessment; oa != nil {
			items = appendValue(items, "Color", oa.Color)
			items = appendValue(items, "Shape", oa.Shape)
			items = appendValue(items, "Moisture", oa.Moisture)
			items = appendValue(items, "Movement", oa.Movement)
		}
		if co := te.Coating; co != nil {
			items = append(items, Item{
				Label:      "Coating",
				Value:      firstNonEmpty(co.Description, strings.TrimSpace(co.Thickness+" "+co.Color)),
				Confidence: badge(firstScore(co.ColorConfidence, co.ThicknessConfidence)),
			})
		}
		if b := te.Body; b != nil {
			var feats []string
			for _, f := range b.Features {
				feats = append(feats, strings.TrimSpace(strings.Join(nonEmpty(f.Type, f.Location, f.Description), ": ")))
			}
			items = append(items, Item{
				Label:      "Tongue body",
				Value:      firstNonEmpty(b.Description, strings.TrimSpace(b.Color+" "+b.Shape)),
				List:       feats,
				Confidence: badge(firstScore(b.ColorConfidence, b.ShapeConfidence)),
			})
		}
		if z := te.Zones; z != nil {
			for _, info := range legacyZones {
				zone := zoneByID(z, info.ID)
				if zone == nil {
					continue
				}
				zi := info
				if zone.OrganCorrelation != "" {
					zi.Organ = zone.OrganCorrelation
				}
				v.Zones = append(v.Zones, ZoneView{ZoneInfo: zi, Description: zone.Description, Findings: zone.Findings})
			}
		}
		v.addSection(SectionTongueExamination, "Tongue Examination", items)
	}

	if tp := c.TreatmentPrinciples; tp != nil {
		var items []Item
		items = appendValue(items, "Primary", tp.Primary)
		items = appendList(items, "Secondary", tp.Secondary)
		items = appendList(items, "Contraindications", tp.Contraindications)
		v.addSection(SectionTreatmentPrinciples, "Treatment Principles", items)
	}

	if hf := c.HerbalFormula; hf != nil {
		var items []Item
		if rec := hf.Recommended; rec != nil {
			name := rec.Name
			if zh := firstNonEmpty(rec.ChineseCharacters, rec.ChineseName); zh != "" {
				name = fmt.Sprintf("%s (%s)", rec.Name, zh)
			}
			items = append(items, Item{Label: name, Value: rec.Rationale, Confidence: badge(rec.Confidence)})
		}
		for _, m := range hf.Modifications {
			var list []string
			for _, a := range m.Add {
				list = append(list, "+ "+a)
			}
			for _, r := range m.Remove {
				list = append(list, "- "+r)
			}
			items = append(items, Item{Label: "If " + m.Condition, List: list})
		}
		for _, a := range hf.Alternatives {
			items = append(items, Item{Label: "Alternative: " + a.Name, Value: a.WhenToUse})
		}
		v.addSection(SectionHerbalFormula, "Herbal Formula", items)
	}

	if ac := c.Acupuncture; ac != nil {
		var items []Item
		for _, p := range ac.PrimaryPoints {
			items = append(items, Item{Label: p.Point, Value: strings.Join(nonEmpty(p.Location, p.Technique, p.Rationale), ". ")})
		}
		for _, p := range ac.SupplementaryPoints {
			items = append(items, Item{Label: p.Point, Value: p.Indication})
		}
		if m := ac.Moxibustion; m != nil && bool(m.Recommended) {
			items = append(items, Item{Label: "Moxibustion", Value: m.Rationale, List: m.Points})
		}
		v.addSection(SectionAcupuncture, "Acupuncture", items)
	}

	if lr := c.LifestyleRecommendations; lr != nil {
		var items []Item
		if d := lr.Diet; d != nil {
			items = appendValue(items, "Diet", d.General)
			items = appendList(items, "Foods to emphasize", d.FoodsToEmphasize)
			items = appendList(items, "Foods to avoid", d.FoodsToAvoid)
			items = appendList(items, "Eating habits", d.EatingHabits)
		}
		if e := lr.Exercise; e != nil {
			items = appendList(items, "Exercise", e.RecommendedTypes)
			items = appendValue(items, "Intensity", e.Intensity)
			items = appendValue(items, "Timing", e.Timing)
			items = appendList(items, "Exercise cautions", e.Cautions)
		}
		if eh := lr.EmotionalHealth; eh != nil {
			items = appendList(items, "Relevant emotions", eh.RelevantEmotions)
			items = appendList(items, "Emotional health", eh.Recommendations)
		}
		if s := lr.Sleep; s != nil {
			items = appendList(items, "Sleep", s.Recommendations)
			items = appendValue(items, "Ideal sleep", s.IdealHours)
		}
		if dr := lr.DailyRoutine; dr != nil {
			items = appendList(items, "Morning", dr.Morning)
			items = appendList(items, "Evening", dr.Evening)
		}
		v.addSection(SectionLifestyle, "Lifestyle Recommendations", items)
	}

	if p := c.Prognosis; p != nil {
		var items []Item
		items = appendValue(items, "Expected recovery", p.ExpectedRecoveryTime)
		items = appendList(items, "Factors affecting recovery", p.FactorsAffectingRecovery)
		items = appendList(items, "Warning signs", p.WarningSigns)
		v.addSection(SectionPrognosis, "Prognosis", items)
	}

	if f := c.FollowUp; f != nil {
		var items []Item
		items = appendValue(items, "Timeline", f.RecommendedTimeline)
		items = appendList(items, "Expected changes", f.ExpectedChanges)
		items = appendList(items, "Tongue changes", f.TongueChanges)
		v.addSection(SectionFollowUp, "Follow-up", items)
	}
}

// addSection drops sections with nothing to show.
func (v *View) addSection(id, title string, items []Item) {
	if len(items) == 0 {
		return
	}
	v.Sections = append(v.Sections, Section{ID: id, Title: title, Items: items})
}

func appendValue(items []Item, label, value string) []Item {
	if strings.TrimSpace(value) == "" {
		return items
	}
	return append(items, Item{Label: label, Value: value})
}

func appendList(items []Item, label string, list analysis.StringList) []Item {
	if len(list) == 0 {
		return items
	}
	return append(items, Item{Label: label, List: list})
}

func zoneByID(z *analysis.Zones, id string) *analysis.Zone {
	switch id {
	case "tip":
		return z.Tip
	case "center":
		return z.Center
	case "root":
		return z.Root
	case "sides":
		return z.Sides
	}
	return nil
}

func firstScore(scores ...*analysis.Score) *analysis.Score {
	for _, s := range scores {
		if s != nil {
			return s
		}
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func nonEmpty(vals ...string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
