package report

import "strings"

// Formula is a classical herbal formula shown next to a matching pattern.
type Formula struct {
	Key         string   `json:"key"`
	Chinese     string   `json:"chinese"`
	Ingredients []string `json:"ingredients"`
	Benefits    []string `json:"benefits"`
	Lifestyle   string   `json:"lifestyle"`
}

// formulas is ordered; the first key that matches wins.
var formulas = []Formula{
	{
		Key:         "Spleen Qi Deficiency",
		Chinese:     "四君子汤",
		Ingredients: []string{"Ren Shen (Ginseng)", "Bai Zhu (Atractylodes)", "Fu Ling (Poria)", "Zhi Gan Cao (Licorice)"},
		Benefits:    []string{"Strengthens digestion", "Boosts energy", "Improves absorption"},
		Lifestyle:   "Eat warm, cooked foods. Avoid cold drinks and raw foods.",
	},
	{
		Key:         "Liver Qi Stagnation",
		Chinese:     "逍遥散",
		Ingredients: []string{"Chai Hu (Bupleurum)", "Bai Shao (White Peony)", "Dang Gui (Angelica)"},
		Benefits:    []string{"Relieves stress", "Regulates emotions", "Improves digestion"},
		Lifestyle:   "Practice deep breathing. Regular exercise. Express emotions.",
	},
	{
		Key:         "Damp-Heat",
		Chinese:     "三仁汤",
		Ingredients: []string{"Xing Ren (Apricot Seed)", "Bai Dou Kou (Cardamom)", "Yi Yi Ren (Coix Seed)"},
		Benefits:    []string{"Clears dampness", "Reduces inflammation", "Improves metabolism"},
		Lifestyle:   "Avoid greasy, fried foods. Stay hydrated. Light exercise.",
	},
	{
		Key:         "Blood Deficiency",
		Chinese:     "四物汤",
		Ingredients: []string{"Dang Gui (Angelica)", "Chuan Xiong (Ligusticum)", "Bai Shao (White Peony)"},
		Benefits:    []string{"Nourishes blood", "Improves circulation", "Enhances complexion"},
		Lifestyle:   "Eat blood-nourishing foods like beets and spinach.",
	},
}

// LookupFormula matches the known formula keys case-insensitively as substrings
// of the primary pattern or the recommended formula.
func LookupFormula(primaryPattern, recommendedFormula string) *Formula {
	pp := strings.ToLower(primaryPattern)
	rf := strings.ToLower(recommendedFormula)
	for i := range formulas {
		k := strings.ToLower(formulas[i].Key)
		if (pp != "" && strings.Contains(pp, k)) || (rf != "" && strings.Contains(rf, k)) {
			f := formulas[i]
			return &f
		}
	}
	return nil
}

// ZoneInfo describes one of the four tongue regions.
type ZoneInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Organ string `json:"organ"`
}

var legacyZones = []ZoneInfo{
	{ID: "tip", Name: "Tip", Organ: "Heart & Lungs"},
	{ID: "center", Name: "Center", Organ: "Spleen & Stomach"},
	{ID: "root", Name: "Root", Organ: "Kidneys"},
	{ID: "sides", Name: "Sides", Organ: "Liver & Gallbladder"},
}

// Principle is one educational reference table.
type Principle struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Details     []PrincipleItem `json:"details"`
}

type PrincipleItem struct {
	Type    string `json:"type"`
	Meaning string `json:"meaning"`
}

var principles = []Principle{
	{
		ID:          "coat",
		Title:       "Tongue Coat (苔 - Tāi)",
		Description: "The coating reflects the state of the digestive system and the presence of pathogenic factors.",
		Details: []PrincipleItem{
			{Type: "Thin White Coat", Meaning: "Normal or mild condition"},
			{Type: "Thick Coat", Meaning: "Dampness, phlegm, or food stagnation"},
			{Type: "Yellow Coat", Meaning: "Heat or inflammation present"},
			{Type: "No Coat (Peeled)", Meaning: "Yin deficiency, stomach yin damage"},
		},
	},
	{
		ID:          "color",
		Title:       "Body Color (质 - Zhì)",
		Description: "The tongue body color indicates the state of blood, qi, and internal organs.",
		Details: []PrincipleItem{
			{Type: "Pale/Pink", Meaning: "Normal or qi/blood deficiency"},
			{Type: "Red", Meaning: "Heat pattern present"},
			{Type: "Purple/Blue", Meaning: "Blood stasis or cold"},
		},
	},
	{
		ID:          "shape",
		Title:       "Tongue Shape (形 - Xíng)",
		Description: "Shape and texture reveal organ function and fluid metabolism.",
		Details: []PrincipleItem{
			{Type: "Swollen/Tender", Meaning: "Fluid retention, spleen qi deficiency"},
			{Type: "Thin/Emaciated", Meaning: "Blood or yin deficiency"},
			{Type: "Teeth Marks", Meaning: "Spleen qi deficiency with dampness"},
			{Type: "Cracks/Fissures", Meaning: "Yin deficiency, dryness"},
		},
	},
}

// Principles returns a copy of the educational tables.
func Principles() []Principle {
	out := make([]Principle, len(principles))
	copy(out, principles)
	return out
}
