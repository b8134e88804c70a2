package quota

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// PostgresCounter calls the can_user_scan and record_scan stored functions.
type PostgresCounter struct {
	db *gorm.DB
}

func NewPostgresCounter(db *gorm.DB) *PostgresCounter { return &PostgresCounter{db: db} }

type canScanRow struct {
	CanScan        bool
	Tier           string
	ScansToday     int
	ScansRemaining int
}

type recordRow struct {
	Success        bool
	ScansRemaining int
}

func (p *PostgresCounter) CanScan(ctx context.Context, userID string, dailyLimit int) (*Allowance, error) {
	var rows []canScanRow
	if err := p.db.WithContext(ctx).Raw("SELECT * FROM can_user_scan(?, ?)", userID, dailyLimit).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("can_user_scan returned no rows")
	}
	r := rows[0]
	return &Allowance{CanScan: r.CanScan, Tier: r.Tier, ScansToday: r.ScansToday, ScansRemaining: r.ScansRemaining}, nil
}

func (p *PostgresCounter) Record(ctx context.Context, userID string, dailyLimit int) (*RecordResult, error) {
	var rows []recordRow
	if err := p.db.WithContext(ctx).Raw("SELECT * FROM record_scan(?, ?)", userID, dailyLimit).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("record_scan returned no rows")
	}
	return &RecordResult{Success: rows[0].Success, ScansRemaining: rows[0].ScansRemaining}, nil
}
