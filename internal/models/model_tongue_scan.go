package models

import (
	"time"

	"github.com/tcmtongue/server/internal/analysis"
	"gorm.io/datatypes"
)

// TongueScan is a saved analysis. Rows are never updated after insert.
// The flat columns are denormalized from the result for listing and stats.
type TongueScan struct {
	ID                 string          `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID             string          `gorm:"column:user_id;type:varchar(64);not null;index:idx_tongue_scans_user_created,priority:1" json:"user_id"`
	ImageURL           *string         `gorm:"column:image_url;type:text" json:"image_url"`
	Format             analysis.Format `gorm:"column:format;type:varchar(16);not null" json:"format"`
	PrimaryPattern     string          `gorm:"column:primary_pattern;type:text" json:"primary_pattern"`
	Coat               string          `gorm:"column:coat;type:text" json:"coat"`
	Color              string          `gorm:"column:color;type:text" json:"color"`
	Shape              string          `gorm:"column:shape;type:text" json:"shape"`
	Moisture           string          `gorm:"column:moisture;type:text" json:"moisture"`
	Recommendations    string          `gorm:"column:recommendations;type:text" json:"recommendations"`
	RecommendedFormula string          `gorm:"column:recommended_formula;type:text" json:"recommended_formula"`
	Result             datatypes.JSON  `gorm:"column:result;type:jsonb;not null" json:"result"`
	CreatedAt          time.Time       `gorm:"index:idx_tongue_scans_user_created,priority:2,sort:desc" json:"created_at"`
}

func (TongueScan) TableName() string {
	return "tongue_scans"
}

// Analysis parses the stored document.
func (s *TongueScan) Analysis() (*analysis.Result, error) {
	return analysis.Parse(s.Result)
}
