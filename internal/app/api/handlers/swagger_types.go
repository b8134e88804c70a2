package handlers

import (
	"github.com/tcmtongue/server/internal/app/service/scanhistory"
	"github.com/tcmtongue/server/internal/app/service/statistics"
	"github.com/tcmtongue/server/pkg/response"
)

// RespHealth wraps HealthStatus in the standard envelope.
type RespHealth struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    HealthStatus             `json:"data"`
}

// RespListScans wraps ScanResponse in the standard envelope.
type RespListScans struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    scanhistory.ScanResponse `json:"data"`
}

// RespStatistic wraps StatisticResponse in the standard envelope.
type RespStatistic struct {
	Code    response.APIResponseCode     `json:"code"`
	Message string                       `json:"message"`
	Data    statistics.StatisticResponse `json:"data"`
}

// RespSubscriptionDetail wraps SubscriptionDetail in the standard envelope.
type RespSubscriptionDetail struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    SubscriptionDetail       `json:"data"`
}
