package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"e2e-transit/internal/adapters/persistence/repositories"
	"e2e-transit/internal/core/domain"
	"e2e-transit/internal/pkg/logger"
	"e2e-transit/internal/pkg/pagination"
	"e2e-transit/internal/pkg/timeutil"
)

// AlertCache stores computed suspicious-activity summaries per organisation
type AlertCache interface {
	GetSuspicious(ctx context.Context, orgID string) (*domain.SuspiciousSummary, bool)
	SetSuspicious(ctx context.Context, orgID string, summary *domain.SuspiciousSummary)
}

// AlertService aggregates truck alerts for the dashboard
type AlertService struct {
	orgRepo   repositories.OrganisationRepository
	alertRepo repositories.AlertRepository
	cache     AlertCache
	zone      *time.Location
	now       func() time.Time
}

// NewAlertService creates a new alert service. cache may be nil.
func NewAlertService(
	orgRepo repositories.OrganisationRepository,
	alertRepo repositories.AlertRepository,
	cache AlertCache,
) *AlertService {
	return &AlertService{
		orgRepo:   orgRepo,
		alertRepo: alertRepo,
		cache:     cache,
		zone:      timeutil.LoadZone(timeutil.DashboardZone),
		now:       time.Now,
	}
}

// MonthlySuspiciousActivity returns suspicious alerts per month and the
// change between the last two months.
func (s *AlertService) MonthlySuspiciousActivity(ctx context.Context, orgID string) (*domain.SuspiciousSummary, error) {
	if orgID == "" {
		return nil, domain.InvalidBody("Missing required field(s): orgId")
	}

	if s.cache != nil {
		if cached, ok := s.cache.GetSuspicious(ctx, orgID); ok {
			return cached, nil
		}
	}

	exists, err := s.orgRepo.Exists(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("check organisation: %w", err)
	}
	if !exists {
		return nil, domain.ErrOrganisationNotFound
	}

	times, err := s.alertRepo.SuspiciousAlertTimes(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("fetch suspicious alerts: %w", err)
	}

	summary := BuildSuspiciousSummary(times, s.zone)
	if s.cache != nil {
		s.cache.SetSuspicious(ctx, orgID, summary)
	}
	return summary, nil
}

// BuildSuspiciousSummary buckets alert times by month in zone and compares
// the last two buckets.
func BuildSuspiciousSummary(times []time.Time, zone *time.Location) *domain.SuspiciousSummary {
	buckets := timeutil.GroupByMonth(times, zone)

	summary := &domain.SuspiciousSummary{
		Data:  make([]domain.MonthlyCount, 0, len(buckets)),
		Trend: domain.TrendNone,
	}
	for _, b := range buckets {
		summary.Data = append(summary.Data, domain.MonthlyCount{Month: b.MonthLabel, Count: b.Count})
	}

	if n := len(summary.Data); n > 1 {
		summary.Change = summary.Data[n-1].Count - summary.Data[n-2].Count
		switch {
		case summary.Change > 0:
			summary.Trend = domain.TrendIncrease
		case summary.Change < 0:
			summary.Trend = domain.TrendDecrease
		}
	}
	return summary
}

// UnresolvedCriticalAlerts lists open alerts for an organisation, newest
// first, optionally filtered by a free-text status. params may be nil.
func (s *AlertService) UnresolvedCriticalAlerts(ctx context.Context, orgID, status string, params *pagination.Params) (*domain.CriticalAlertList, int64, error) {
	if orgID == "" {
		return nil, 0, domain.InvalidBody("Missing required field(s): orgId")
	}

	var alertType string
	if status = strings.TrimSpace(status); status != "" {
		normalized, ok := domain.NormalizeAlertStatus(status)
		if !ok {
			return nil, 0, fmt.Errorf("%w: %s", domain.ErrUnknownStatus, status)
		}
		alertType = string(normalized)
	}

	offset, limit := 0, 0
	if params != nil {
		offset, limit = params.Offset, params.Limit
	}

	alerts, total, err := s.alertRepo.ListUnresolved(ctx, orgID, alertType, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch critical alerts: %w", err)
	}

	now := s.now()
	list := &domain.CriticalAlertList{Data: make([]domain.CriticalAlertRow, 0, len(alerts))}
	for _, a := range alerts {
		truckNo := "Unknown"
		if a.Truck != nil && a.Truck.TruckNumber != "" {
			truckNo = a.Truck.TruckNumber
		}
		list.Data = append(list.Data, domain.CriticalAlertRow{
			TruckNo:        truckNo,
			CriticalStatus: domain.AlertStatus(a.AlertType).Label(),
			TimeElapsed:    timeutil.TimeAgo(a.AlertTime, now),
		})
	}
	list.Count = len(list.Data)

	logger.Debugf("Critical alerts for org %s: %d of %d", orgID, list.Count, total)
	return list, total, nil
}
