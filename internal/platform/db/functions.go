package db

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// The quota counters live in the database so that check and increment are
// atomic per row. Both functions take the free-tier daily limit as an
// argument; premium users always pass and report -1 remaining.
const canUserScanSQL = `
CREATE OR REPLACE FUNCTION can_user_scan(p_user_id varchar, p_daily_limit int)
RETURNS TABLE(can_scan boolean, tier varchar, scans_today int, scans_remaining int)
LANGUAGE plpgsql STABLE AS $$
#variable_conflict use_column
DECLARE
	v_premium boolean;
	v_count int;
BEGIN
	SELECT EXISTS (
		SELECT 1 FROM subscriptions s
		WHERE s.user_id = p_user_id AND s.tier = 'premium' AND s.status = 'active'
	) INTO v_premium;

	SELECT COALESCE((
		SELECT u.scan_count FROM scan_usage u
		WHERE u.user_id = p_user_id AND u.usage_date = (now() AT TIME ZONE 'utc')::date
	), 0) INTO v_count;

	IF v_premium THEN
		RETURN QUERY SELECT true, 'premium'::varchar, v_count, -1;
	ELSE
		RETURN QUERY SELECT v_count < p_daily_limit, 'free'::varchar, v_count, GREATEST(p_daily_limit - v_count, 0);
	END IF;
END $$;`

const recordScanSQL = `
CREATE OR REPLACE FUNCTION record_scan(p_user_id varchar, p_daily_limit int)
RETURNS TABLE(success boolean, scans_remaining int)
LANGUAGE plpgsql AS $$
#variable_conflict use_column
DECLARE
	v_premium boolean;
	v_count int;
BEGIN
	SELECT EXISTS (
		SELECT 1 FROM subscriptions s
		WHERE s.user_id = p_user_id AND s.tier = 'premium' AND s.status = 'active'
	) INTO v_premium;

	IF NOT v_premium AND p_daily_limit <= 0 THEN
		RETURN QUERY SELECT false, 0;
		RETURN;
	END IF;

	INSERT INTO scan_usage AS u (user_id, usage_date, scan_count, updated_at)
	VALUES (p_user_id, (now() AT TIME ZONE 'utc')::date, 1, now())
	ON CONFLICT (user_id, usage_date) DO UPDATE
		SET scan_count = u.scan_count + 1, updated_at = now()
		WHERE v_premium OR u.scan_count < p_daily_limit
	RETURNING u.scan_count INTO v_count;

	IF NOT FOUND THEN
		RETURN QUERY SELECT false, 0;
	ELSIF v_premium THEN
		RETURN QUERY SELECT true, -1;
	ELSE
		RETURN QUERY SELECT true, GREATEST(p_daily_limit - v_count, 0);
	END IF;
END $$;`

// InstallFunctions creates or replaces the quota functions. Non-Postgres
// dialects are skipped.
func InstallFunctions(l *zap.SugaredLogger, db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		l.Infow("skipping stored functions", "dialect", db.Dialector.Name())
		return nil
	}
	for name, sql := range map[string]string{"can_user_scan": canUserScanSQL, "record_scan": recordScanSQL} {
		if err := db.Exec(sql).Error; err != nil {
			l.Errorf("install function %s failed: %v", name, err)
			return fmt.Errorf("install function %s: %w", name, err)
		}
	}
	l.Infow("stored functions installed")
	return nil
}
