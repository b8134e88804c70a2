package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/tcmtongue/server/internal/app/api/server"
	"github.com/tcmtongue/server/internal/app/service/analytics"
	"github.com/tcmtongue/server/internal/app/service/analyzer"
	"github.com/tcmtongue/server/internal/app/service/billing"
	notificationhandler "github.com/tcmtongue/server/internal/app/service/notification_handler"
	notificationlog "github.com/tcmtongue/server/internal/app/service/notification_log"
	"github.com/tcmtongue/server/internal/app/service/quota"
	"github.com/tcmtongue/server/internal/app/service/scanhistory"
	"github.com/tcmtongue/server/internal/app/service/statistics"
	"github.com/tcmtongue/server/internal/app/service/subscription"
	"github.com/tcmtongue/server/internal/platform/blob"
	"github.com/tcmtongue/server/internal/platform/db"
	"github.com/tcmtongue/server/internal/platform/ga4"
	"github.com/tcmtongue/server/internal/platform/redisclient"
	"github.com/tcmtongue/server/internal/platform/stripeapi"
	"github.com/tcmtongue/server/pkg/config"
	"github.com/tcmtongue/server/pkg/logger"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	redisclient.Module,
	stripeapi.Module,
	ga4.Module,
	blob.Module,
	server.Module,
	analytics.Module,
	analyzer.Module,
	subscription.Module,
	quota.Module,
	billing.Module,
	scanhistory.Module,
	statistics.Module,
	notificationlog.Module,
	notificationhandler.Module,
)
