package statistics

import (
	"context"
	"fmt"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/fx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tcmtongue/server/internal/models"
	"github.com/tcmtongue/server/pkg/types"
)

type StatisticType string

const (
	// Scans
	StatisticTypeDailyScanCount      StatisticType = "daily_scan_count"
	StatisticTypePatternDistribution StatisticType = "pattern_distribution"

	// Subscriptions
	StatisticTypeDailyNewPremiumCount StatisticType = "daily_new_premium_count"
	StatisticTypeTotalPremiumCount    StatisticType = "total_premium_count"

	// Quota
	StatisticTypeDailyQuotaUsage StatisticType = "daily_quota_usage"
)

// Filter types supported by certain statistic types
type StatisticFilterType string

const (
	StatisticFilterTypeFormat   StatisticFilterType = "format"
	StatisticFilterTypeHasImage StatisticFilterType = "has_image"
)

var validFilters = map[StatisticFilterType][]StatisticType{
	StatisticFilterTypeFormat:   {StatisticTypeDailyScanCount, StatisticTypePatternDistribution},
	StatisticFilterTypeHasImage: {StatisticTypeDailyScanCount, StatisticTypePatternDistribution},
}

// FilterFields are the fields a statistics request may filter on.
var FilterFields = map[string]bool{
	"created_at":                        true,
	string(StatisticFilterTypeFormat):   true,
	string(StatisticFilterTypeHasImage): true,
}

type StatisticDataItem struct {
	ID StatisticType `json:"id"`
}

type StatisticRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	DataItems []*StatisticDataItem  `json:"data_items"`

	// dateColumn replaces created_at for tables keyed by another date column.
	dateColumn string
}

// Validate rejects filters outside FilterFields.
func (f *StatisticRequest) Validate() error {
	for _, filter := range f.Filters {
		if err := filter.Validate(FilterFields); err != nil {
			return err
		}
	}
	return nil
}

// GetFilters keeps the filters applicable to statisticType. A scan-only filter
// is dropped for other items instead of blanking them.
func (f *StatisticRequest) GetFilters(statisticType StatisticType) *StatisticRequest {
	if f == nil {
		return &StatisticRequest{}
	}
	result := StatisticRequest{DataItems: f.DataItems}
	if statisticType == StatisticTypeDailyQuotaUsage {
		result.dateColumn = "usage_date"
	}
	for _, filter := range f.Filters {
		if statisticTypes, ok := validFilters[StatisticFilterType(filter.Field)]; ok {
			if lo.Contains(statisticTypes, statisticType) {
				result.Filters = append(result.Filters, filter)
			}
		} else {
			result.Filters = append(result.Filters, filter)
		}
	}
	return &result
}

// Build composes a WHERE clause based on provided filters, with custom handling
// for has_image and the date column.
func (f *StatisticRequest) Build(builder clause.Builder) {
	if len(f.Filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	for i, filter := range f.Filters {
		if i > 0 {
			builder.WriteString(" AND ")
		}
		switch filter.Field {
		case string(StatisticFilterTypeHasImage):
			if len(filter.Values) > 0 && fmt.Sprint(filter.Values[0]) == "true" {
				builder.WriteString("image_url IS NOT NULL")
			} else {
				builder.WriteString("image_url IS NULL")
			}
		case "created_at":
			if f.dateColumn != "" {
				cp := *filter
				cp.Field = f.dateColumn
				cp.Build(builder)
				continue
			}
			filter.Build(builder)
		default:
			filter.Build(builder)
		}
	}
}

type StatisticResponseDataItem struct {
	Date   string `json:"date,omitempty"`
	Label  string `json:"label,omitempty"`
	Value  int64  `json:"value"`
	Value2 int64  `json:"value2,omitempty"`
}

type StatisticResponse struct {
	DataItems map[StatisticType][]StatisticResponseDataItem `json:"data_items"`
}

// Service computes admin dashboard statistics.
type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service { return &Service{db: db} }

// day formats a date or timestamp column as YYYY-MM-DD.
func (s *Service) day(column string) string {
	if s.db.Dialector.Name() == "postgres" {
		return fmt.Sprintf("TO_CHAR(%s, 'YYYY-MM-DD')", column)
	}
	return fmt.Sprintf("strftime('%%Y-%%m-%%d', %s)", column)
}

func (s *Service) where(request *StatisticRequest, statisticType StatisticType) clause.Where {
	return clause.Where{Exprs: []clause.Expression{request.GetFilters(statisticType)}}
}

func (s *Service) getDailyScanCount(ctx context.Context, request *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	q := s.db.WithContext(ctx).Table(models.TongueScan{}.TableName()).
		Select(s.day("created_at") + " as date, count(*) as value, count(DISTINCT user_id) as value2").
		Where(s.where(request, StatisticTypeDailyScanCount)).
		Group(s.day("created_at")).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "date"}, Desc: true})
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getPatternDistribution(ctx context.Context, request *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	q := s.db.WithContext(ctx).Table(models.TongueScan{}.TableName()).
		Select("primary_pattern as label, count(*) as value").
		Where(s.where(request, StatisticTypePatternDistribution)).
		Where("primary_pattern <> ''").
		Group("primary_pattern").
		Order("value DESC, label ASC")
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// getDailyNewPremiumCount counts users whose subscription was purchased each day.
func (s *Service) getDailyNewPremiumCount(ctx context.Context, request *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	q := s.db.WithContext(ctx).Table(models.SubscriptionLog{}.TableName()).
		Select(s.day("created_at")+" as date, count(DISTINCT user_id) as value").
		Where("reason = ?", types.SubscriptionChangeReasonPurchase).
		Where(s.where(request, StatisticTypeDailyNewPremiumCount)).
		Group(s.day("created_at")).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "date"}, Desc: true})
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getTotalPremiumCount(ctx context.Context, request *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	q := s.db.WithContext(ctx).Table(models.Subscription{}.TableName()).
		Select("count(*) as value").
		Where(s.where(request, StatisticTypeTotalPremiumCount)).
		Where("tier = ?", types.TierPremium).
		Where("status = ?", types.SubscriptionStatusActive)
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// getDailyQuotaUsage reports recorded scans (value) and distinct users (value2) per day.
func (s *Service) getDailyQuotaUsage(ctx context.Context, request *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	q := s.db.WithContext(ctx).Table(models.ScanUsage{}.TableName()).
		Select(s.day("usage_date") + " as date, COALESCE(sum(scan_count), 0) as value, count(DISTINCT user_id) as value2").
		Where(s.where(request, StatisticTypeDailyQuotaUsage)).
		Group("usage_date").
		Order("usage_date DESC")
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getStatistic(ctx context.Context, request *StatisticRequest, dataItem *StatisticDataItem) ([]StatisticResponseDataItem, error) {
	switch dataItem.ID {
	case StatisticTypeDailyScanCount:
		return s.getDailyScanCount(ctx, request)
	case StatisticTypePatternDistribution:
		return s.getPatternDistribution(ctx, request)
	case StatisticTypeDailyNewPremiumCount:
		return s.getDailyNewPremiumCount(ctx, request)
	case StatisticTypeTotalPremiumCount:
		return s.getTotalPremiumCount(ctx, request)
	case StatisticTypeDailyQuotaUsage:
		return s.getDailyQuotaUsage(ctx, request)
	default:
		return nil, fmt.Errorf("invalid data item id: %s", dataItem.ID)
	}
}

// GetStatistics computes every requested data item concurrently.
func (s *Service) GetStatistics(ctx context.Context, request *StatisticRequest) (*StatisticResponse, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}
	var wg sync.WaitGroup
	errChan := make(chan error, len(request.DataItems))
	resChan := make(chan *lo.Entry[StatisticType, []StatisticResponseDataItem], len(request.DataItems))

	for _, item := range request.DataItems {
		wg.Add(1)
		go func(di *StatisticDataItem) {
			defer wg.Done()
			res, err := s.getStatistic(ctx, request, di)
			if err != nil {
				errChan <- fmt.Errorf("%s: %w", di.ID, err)
				return
			}
			resChan <- &lo.Entry[StatisticType, []StatisticResponseDataItem]{Key: di.ID, Value: res}
		}(item)
	}

	wg.Wait()
	close(errChan)
	close(resChan)
	if err := <-errChan; err != nil {
		return nil, err
	}

	results := make(map[StatisticType][]StatisticResponseDataItem, len(request.DataItems))
	for entry := range resChan {
		results[entry.Key] = entry.Value
	}
	return &StatisticResponse{DataItems: results}, nil
}

var Module = fx.Options(
	fx.Provide(New),
)
