// Package scanhistory persists analyzed scans for the dashboard.
package scanhistory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tcmtongue/server/internal/analysis"
	"github.com/tcmtongue/server/internal/imaging"
	"github.com/tcmtongue/server/internal/models"
	"github.com/tcmtongue/server/internal/platform/blob"
	"github.com/tcmtongue/server/pkg/logctx"
	"github.com/tcmtongue/server/pkg/tool"
	"github.com/tcmtongue/server/pkg/types"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

var (
	ErrNotFound      = errors.New("Scan not found")
	ErrInvalidResult = errors.New("Invalid analysis result")
	ErrInvalidImage  = errors.New("Invalid image")
)

type CreateRequest struct {
	// Image is an optional data URL of the analyzed photo.
	Image  string          `json:"image,omitempty"`
	Result json.RawMessage `json:"result" binding:"required" swaggertype:"object"`
}

type Service struct {
	db    *gorm.DB
	store blob.Store
	log   *zap.SugaredLogger
}

func NewService(db *gorm.DB, store blob.Store, log *zap.SugaredLogger) *Service {
	return &Service{db: db, store: store, log: log}
}

// Create stores a scan. The flat columns are copied from the normalized
// result. A failed image upload is logged and the scan is saved without it.
func (s *Service) Create(ctx context.Context, userID string, req *CreateRequest) (*models.TongueScan, error) {
	res, err := analysis.Parse(req.Result)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResult, err)
	}
	var image []byte
	if req.Image != "" {
		data, mime, err := imaging.DecodeDataURL(req.Image)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
		}
		if err := imaging.Validate(mime, int64(len(data))); err != nil {
			return nil, err
		}
		image = data
	}

	n := res.Normalize()
	scan := &models.TongueScan{
		ID:                 tool.GenerateUUIDV7(),
		UserID:             userID,
		Format:             res.Format,
		PrimaryPattern:     n.PrimaryPattern.Name,
		Coat:               n.Coat,
		Color:              n.Color,
		Shape:              n.Shape,
		Moisture:           n.Moisture,
		Recommendations:    n.Recommendations,
		RecommendedFormula: n.RecommendedFormula,
		Result:             datatypes.JSON(req.Result),
	}
	if image != nil {
		scan.ImageURL = s.uploadImage(ctx, userID, scan.ID, image)
	}

	if err := s.db.WithContext(ctx).Create(scan).Error; err != nil {
		return nil, fmt.Errorf("failed to create scan: %w", err)
	}
	return scan, nil
}

func (s *Service) uploadImage(ctx context.Context, userID, scanID string, data []byte) *string {
	log := logctx.FromCtx(ctx, s.log)
	if out, err := imaging.Compress(data, imaging.OptimalOptions(int64(len(data)))); err == nil {
		data = out.Data
	} else {
		log.Warnw("scan image not normalized, storing original bytes", "error", err)
	}
	url, err := s.store.UploadScanImage(ctx, userID, scanID, data)
	switch {
	case errors.Is(err, blob.ErrDisabled):
		return nil
	case err != nil:
		log.Errorw("failed to upload scan image", "scan_id", scanID, "error", err)
		return nil
	}
	return &url
}

// List returns the user's scans, newest first.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]*models.TongueScan, error) {
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	var rows []*models.TongueScan
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	return rows, nil
}

// Get returns one of the user's scans. Scans of other users are not found.
func (s *Service) Get(ctx context.Context, userID, id string) (*models.TongueScan, error) {
	if !tool.IsUUID(id) {
		return nil, ErrNotFound
	}
	var scan models.TongueScan
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&scan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}
	return &scan, nil
}

// ScanRequest is the admin list query.
type ScanRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ScanResponse struct {
	Items []*models.TongueScan `json:"items"`
	Total int64                `json:"total"`
}

// FilterFields are the columns admin filters and sorting may reference.
var FilterFields = map[string]bool{
	"id":              true,
	"user_id":         true,
	"format":          true,
	"primary_pattern": true,
	"created_at":      true,
}

// Validate rejects filters and sorting on columns outside FilterFields.
func (r *ScanRequest) Validate() error {
	for _, f := range r.Filters {
		if err := f.Validate(FilterFields); err != nil {
			return err
		}
	}
	if r.SortBy != "" && !FilterFields[r.SortBy] {
		return fmt.Errorf("sort on field %q is not allowed", r.SortBy)
	}
	return nil
}

// filtersAnd combines multiple CommonFilter into a single clause.Expression
type filtersAnd struct{ filters []*types.CommonFilter }

func (w filtersAnd) Build(builder clause.Builder) {
	if len(w.filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	exprs := make([]clause.Expression, 0, len(w.filters))
	for _, f := range w.filters {
		exprs = append(exprs, f)
	}
	clause.And(exprs...).Build(builder)
}

// ScanScans implements paginated admin listing with filters.
func (s *Service) ScanScans(ctx context.Context, req *ScanRequest) (*ScanResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.From < 0 {
		req.From = 0
	}

	tx := s.db.WithContext(ctx).Model(&models.TongueScan{})
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{filtersAnd{filters: req.Filters}}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count scans: %w", err)
	}

	var rows []*models.TongueScan
	q := tx.Limit(req.Size)
	if req.From > 0 {
		q = q.Offset(req.From)
	}
	if req.SortBy != "" {
		q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: req.SortBy}, Desc: req.SortOrder != "asc"}}})
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	return &ScanResponse{Items: rows, Total: total}, nil
}

var Module = fx.Options(
	fx.Provide(NewService),
)
