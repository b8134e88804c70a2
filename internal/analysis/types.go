package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Score is a model-reported confidence. Models are not strict about number
// formatting, so numeric strings are accepted and anything else decodes to 0.
type Score float64

func (s *Score) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = 0
		return nil
	}
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(str), "%"), 64)
		if err != nil {
			*s = 0
			return nil
		}
		if strings.HasSuffix(strings.TrimSpace(str), "%") {
			f /= 100
		}
		*s = Score(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		*s = 0
		return nil
	}
	*s = Score(f)
	return nil
}

// Conf returns a pointer to a Score, for building results in code.
func Conf(v float64) *Score {
	s := Score(v)
	return &s
}

// StringList accepts either a JSON array or a single string.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*l = nil
			return nil
		}
		*l = StringList{s}
		return nil
	case '[':
		var raw []any
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		out := make(StringList, 0, len(raw))
		for _, v := range raw {
			switch t := v.(type) {
			case nil:
			case string:
				if t != "" {
					out = append(out, t)
				}
			default:
				out = append(out, fmt.Sprint(t))
			}
		}
		*l = out
		return nil
	default:
		*l = nil
		return nil
	}
}

// Text is a free-form label. Numbers and booleans are kept in their JSON
// spelling; objects and arrays decode to "".
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*t = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case '{', '[', 'n':
		*t = ""
	default:
		*t = Text(data)
	}
	return nil
}

// Flag is a boolean that also accepts "yes"/"true"/"1" style strings and
// non-zero numbers.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*f = false
		return nil
	}
	switch data[0] {
	case 't':
		*f = true
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "yes", "y", "1", "recommended":
			*f = true
		default:
			*f = false
		}
	case '{', '[', 'n', 'f':
		*f = false
	default:
		n, err := strconv.ParseFloat(string(data), 64)
		*f = Flag(err == nil && n != 0)
	}
	return nil
}

// Severity of a pattern. The closed set is mild, moderate, significant, severe.
type Severity string

const (
	SeverityMild        Severity = "mild"
	SeverityModerate    Severity = "moderate"
	SeveritySignificant Severity = "significant"
	SeveritySevere      Severity = "severe"
)

// Valid reports whether s is one of the four known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityMild, SeverityModerate, SeveritySignificant, SeveritySevere:
		return true
	}
	return false
}

// LegacyZones is the flat four-region map of the original result shape.
type LegacyZones struct {
	Tip    string `json:"tip,omitempty"`
	Center string `json:"center,omitempty"`
	Root   string `json:"root,omitempty"`
	Sides  string `json:"sides,omitempty"`
}

// LegacyResult is the flat result shape stored by early versions of the app.
type LegacyResult struct {
	PrimaryPattern     string       `json:"primaryPattern"`
	SecondaryPatterns  StringList   `json:"secondaryPatterns,omitempty"`
	Coat               string       `json:"coat"`
	Color              string       `json:"color"`
	Shape              string       `json:"shape"`
	Moisture           string       `json:"moisture"`
	Recommendations    string       `json:"recommendations,omitempty"`
	RecommendedFormula string       `json:"recommendedFormula"`
	Severity           Severity     `json:"severity,omitempty"`
	TongueZones        *LegacyZones `json:"tongueZones,omitempty"`
}

type AnalysisMetadata struct {
	Version           string `json:"version,omitempty"`
	Confidence        Text   `json:"confidence,omitempty"`
	ImageQuality      string `json:"imageQuality,omitempty"`
	AnalysisTimestamp string `json:"analysisTimestamp,omitempty"`
	Model             string `json:"model,omitempty"`
}

type Principle struct {
	Classification string     `json:"classification,omitempty"`
	Confidence     *Score     `json:"confidence,omitempty"`
	Evidence       StringList `json:"evidence,omitempty"`
}

type EightPrinciples struct {
	ExteriorInterior *Principle `json:"exteriorInterior,omitempty"`
	HotCold          *Principle `json:"hotCold,omitempty"`
	ExcessDeficiency *Principle `json:"excessDeficiency,omitempty"`
	YinYang          *Principle `json:"yinYang,omitempty"`
}

type OrganFinding struct {
	Organ      string `json:"organ,omitempty"`
	Pathology  string `json:"pathology,omitempty"`
	Confidence *Score `json:"confidence,omitempty"`
}

type ZangFuDiagnosis struct {
	PrimaryOrgan    *OrganFinding  `json:"primaryOrgan,omitempty"`
	SecondaryOrgans []OrganFinding `json:"secondaryOrgans,omitempty"`
}

type Pattern struct {
	Name                   string     `json:"name,omitempty"`
	ChineseName            string     `json:"chineseName,omitempty"`
	ChineseCharacters      string     `json:"chineseCharacters,omitempty"`
	Confidence             *Score     `json:"confidence,omitempty"`
	Severity               Severity   `json:"severity,omitempty"`
	Evidence               StringList `json:"evidence,omitempty"`
	ClinicalManifestations StringList `json:"clinicalManifestations,omitempty"`
	RelationshipToPrimary  string     `json:"relationshipToPrimary,omitempty"`
}

type Differential struct {
	Pattern      string `json:"pattern,omitempty"`
	RulingFactor string `json:"rulingFactor,omitempty"`
}

type PatternDifferentiation struct {
	PrimaryPattern        *Pattern       `json:"primaryPattern,omitempty"`
	SecondaryPatterns     []Pattern      `json:"secondaryPatterns,omitempty"`
	DifferentialDiagnosis []Differential `json:"differentialDiagnosis,omitempty"`
}

type OverallAssessment struct {
	Color    string `json:"color,omitempty"`
	Shape    string `json:"shape,omitempty"`
	Moisture string `json:"moisture,omitempty"`
	Movement string `json:"movement,omitempty"`
}

type Coating struct {
	Color               string `json:"color,omitempty"`
	ColorConfidence     *Score `json:"colorConfidence,omitempty"`
	Thickness           string `json:"thickness,omitempty"`
	ThicknessConfidence *Score `json:"thicknessConfidence,omitempty"`
	Moisture            string `json:"moisture,omitempty"`
	MoistureConfidence  *Score `json:"moistureConfidence,omitempty"`
	Distribution        string `json:"distribution,omitempty"`
	Rooted              string `json:"rooted,omitempty"`
	Description         string `json:"description,omitempty"`
}

type BodyFeature struct {
	Type        string `json:"type,omitempty"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
}

type TongueBody struct {
	Color           string        `json:"color,omitempty"`
	ColorConfidence *Score        `json:"colorConfidence,omitempty"`
	Shape           string        `json:"shape,omitempty"`
	ShapeConfidence *Score        `json:"shapeConfidence,omitempty"`
	Features        []BodyFeature `json:"features,omitempty"`
	Description     string        `json:"description,omitempty"`
}

type Zone struct {
	Description      string     `json:"description,omitempty"`
	OrganCorrelation string     `json:"organCorrelation,omitempty"`
	Findings         StringList `json:"findings,omitempty"`
}

// UnmarshalJSON also takes a bare string, which becomes the description.
func (z *Zone) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*z = Zone{Description: s}
		return nil
	}
	type plain Zone
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*z = Zone(p)
	return nil
}

// Zones always has exactly the four tongue regions; other keys are dropped.
type Zones struct {
	Tip    *Zone `json:"tip,omitempty"`
	Center *Zone `json:"center,omitempty"`
	Sides  *Zone `json:"sides,omitempty"`
	Root   *Zone `json:"root,omitempty"`
}

type TongueExamination struct {
	OverallAssessment *OverallAssessment `json:"overallAssessment,omitempty"`
	Coating           *Coating           `json:"coating,omitempty"`
	Body              *TongueBody        `json:"body,omitempty"`
	Zones             *Zones             `json:"zones,omitempty"`
}

type TreatmentPrinciples struct {
	Primary           string     `json:"primary,omitempty"`
	Secondary         StringList `json:"secondary,omitempty"`
	Contraindications StringList `json:"contraindications,omitempty"`
}

type FormulaChoice struct {
	Name              string `json:"name,omitempty"`
	ChineseName       string `json:"chineseName,omitempty"`
	ChineseCharacters string `json:"chineseCharacters,omitempty"`
	Confidence        *Score `json:"confidence,omitempty"`
	Rationale         string `json:"rationale,omitempty"`
}

type FormulaModification struct {
	Condition string     `json:"condition,omitempty"`
	Add       StringList `json:"add,omitempty"`
	Remove    StringList `json:"remove,omitempty"`
}

type FormulaAlternative struct {
	Name      string `json:"name,omitempty"`
	WhenToUse string `json:"whenToUse,omitempty"`
}

type HerbalFormula struct {
	Recommended   *FormulaChoice        `json:"recommended,omitempty"`
	Modifications []FormulaModification `json:"modifications,omitempty"`
	Alternatives  []FormulaAlternative  `json:"alternatives,omitempty"`
}

type AcuPoint struct {
	Point     string `json:"point,omitempty"`
	Location  string `json:"location,omitempty"`
	Technique string `json:"technique,omitempty"`
	Rationale string `json:"rationale,omitempty"`
}

type SupplementaryPoint struct {
	Point      string `json:"point,omitempty"`
	Indication string `json:"indication,omitempty"`
}

type Moxibustion struct {
	Recommended Flag       `json:"recommended"`
	Points      StringList `json:"points,omitempty"`
	Rationale   string     `json:"rationale,omitempty"`
}

type Acupuncture struct {
	PrimaryPoints       []AcuPoint           `json:"primaryPoints,omitempty"`
	SupplementaryPoints []SupplementaryPoint `json:"supplementaryPoints,omitempty"`
	Moxibustion         *Moxibustion         `json:"moxibustion,omitempty"`
}

type Diet struct {
	General          string     `json:"general,omitempty"`
	FoodsToEmphasize StringList `json:"foodsToEmphasize,omitempty"`
	FoodsToAvoid     StringList `json:"foodsToAvoid,omitempty"`
	EatingHabits     StringList `json:"eatingHabits,omitempty"`
}

type Exercise struct {
	RecommendedTypes StringList `json:"recommendedTypes,omitempty"`
	Intensity        string     `json:"intensity,omitempty"`
	Timing           string     `json:"timing,omitempty"`
	Cautions         StringList `json:"cautions,omitempty"`
}

type EmotionalHealth struct {
	RelevantEmotions StringList `json:"relevantEmotions,omitempty"`
	Recommendations  StringList `json:"recommendations,omitempty"`
}

type Sleep struct {
	Recommendations StringList `json:"recommendations,omitempty"`
	IdealHours      string     `json:"idealHours,omitempty"`
}

type DailyRoutine struct {
	Morning StringList `json:"morning,omitempty"`
	Evening StringList `json:"evening,omitempty"`
}

type LifestyleRecommendations struct {
	Diet            *Diet            `json:"diet,omitempty"`
	Exercise        *Exercise        `json:"exercise,omitempty"`
	EmotionalHealth *EmotionalHealth `json:"emotionalHealth,omitempty"`
	Sleep           *Sleep           `json:"sleep,omitempty"`
	DailyRoutine    *DailyRoutine    `json:"dailyRoutine,omitempty"`
}

type Prognosis struct {
	ExpectedRecoveryTime     string     `json:"expectedRecoveryTime,omitempty"`
	FactorsAffectingRecovery StringList `json:"factorsAffectingRecovery,omitempty"`
	WarningSigns             StringList `json:"warningSigns,omitempty"`
}

type FollowUp struct {
	RecommendedTimeline string     `json:"recommendedTimeline,omitempty"`
	ExpectedChanges     StringList `json:"expectedChanges,omitempty"`
	TongueChanges       StringList `json:"tongueChanges,omitempty"`
}

// CurrentResult is the nested, versioned result shape (version 2.0).
type CurrentResult struct {
	AnalysisMetadata         *AnalysisMetadata         `json:"analysisMetadata,omitempty"`
	EightPrinciples          *EightPrinciples          `json:"eightPrinciples,omitempty"`
	ZangFuDiagnosis          *ZangFuDiagnosis          `json:"zangFuDiagnosis,omitempty"`
	PatternDifferentiation   *PatternDifferentiation   `json:"patternDifferentiation"`
	TongueExamination        *TongueExamination        `json:"tongueExamination,omitempty"`
	TreatmentPrinciples      *TreatmentPrinciples      `json:"treatmentPrinciples,omitempty"`
	HerbalFormula            *HerbalFormula            `json:"herbalFormula,omitempty"`
	Acupuncture              *Acupuncture              `json:"acupuncture,omitempty"`
	LifestyleRecommendations *LifestyleRecommendations `json:"lifestyleRecommendations,omitempty"`
	Prognosis                *Prognosis                `json:"prognosis,omitempty"`
	FollowUp                 *FollowUp                 `json:"followUp,omitempty"`
}
