package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"e2e-transit/internal/adapters/persistence/models"
	"e2e-transit/internal/core/domain"
	"e2e-transit/internal/pkg/pagination"
	"e2e-transit/internal/pkg/timeutil"
)

func newAlertFixture(cache AlertCache) (*AlertService, *MockOrgRepo, *MockAlertRepo) {
	orgRepo := new(MockOrgRepo)
	alertRepo := new(MockAlertRepo)
	svc := NewAlertService(orgRepo, alertRepo, cache)
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc, orgRepo, alertRepo
}

func alertTimes(month time.Month, n int) []time.Time {
	out := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, time.Date(2024, month, 10+i, 6, 0, 0, 0, time.UTC))
	}
	return out
}

func TestMonthlySuspiciousActivity_Increase(t *testing.T) {
	svc, orgRepo, alertRepo := newAlertFixture(nil)
	ctx := context.Background()

	times := append(alertTimes(time.March, 3), alertTimes(time.April, 5)...)
	orgRepo.On("Exists", ctx, "org-1").Return(true, nil)
	alertRepo.On("SuspiciousAlertTimes", ctx, "org-1").Return(times, nil)

	summary, err := svc.MonthlySuspiciousActivity(ctx, "org-1")
	require.NoError(t, err)

	assert.Equal(t, []domain.MonthlyCount{
		{Month: "March", Count: 3},
		{Month: "April", Count: 5},
	}, summary.Data)
	assert.Equal(t, 2, summary.Change)
	assert.Equal(t, domain.TrendIncrease, summary.Trend)
}

func TestBuildSuspiciousSummary(t *testing.T) {
	zone := timeutil.LoadZone(timeutil.DashboardZone)

	tests := []struct {
		name       string
		times      []time.Time
		wantChange int
		wantTrend  string
		wantMonths int
	}{
		{"no alerts", nil, 0, domain.TrendNone, 0},
		{"single month", alertTimes(time.May, 4), 0, domain.TrendNone, 1},
		{"decrease", append(alertTimes(time.January, 4), alertTimes(time.February, 1)...), -3, domain.TrendDecrease, 2},
		{"flat", append(alertTimes(time.January, 2), alertTimes(time.February, 2)...), 0, domain.TrendNone, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary := BuildSuspiciousSummary(tt.times, zone)
			assert.Len(t, summary.Data, tt.wantMonths)
			assert.NotNil(t, summary.Data)
			assert.Equal(t, tt.wantChange, summary.Change)
			assert.Equal(t, tt.wantTrend, summary.Trend)
		})
	}
}

func TestMonthlySuspiciousActivity_UnknownOrg(t *testing.T) {
	svc, orgRepo, alertRepo := newAlertFixture(nil)
	ctx := context.Background()

	orgRepo.On("Exists", ctx, "ghost").Return(false, nil)

	_, err := svc.MonthlySuspiciousActivity(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrOrganisationNotFound)
	alertRepo.AssertNotCalled(t, "SuspiciousAlertTimes", mock.Anything, mock.Anything)
}

func TestMonthlySuspiciousActivity_MissingOrg(t *testing.T) {
	svc, _, _ := newAlertFixture(nil)

	_, err := svc.MonthlySuspiciousActivity(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMonthlySuspiciousActivity_Cache(t *testing.T) {
	ctx := context.Background()

	t.Run("hit skips database", func(t *testing.T) {
		cache := new(MockAlertCache)
		svc, orgRepo, alertRepo := newAlertFixture(cache)
		cached := &domain.SuspiciousSummary{Data: []domain.MonthlyCount{{Month: "May", Count: 1}}, Trend: domain.TrendNone}
		cache.On("GetSuspicious", ctx, "org-1").Return(cached, true)

		summary, err := svc.MonthlySuspiciousActivity(ctx, "org-1")
		require.NoError(t, err)
		assert.Same(t, cached, summary)
		orgRepo.AssertNotCalled(t, "Exists", mock.Anything, mock.Anything)
		alertRepo.AssertNotCalled(t, "SuspiciousAlertTimes", mock.Anything, mock.Anything)
	})

	t.Run("miss stores result", func(t *testing.T) {
		cache := new(MockAlertCache)
		svc, orgRepo, alertRepo := newAlertFixture(cache)
		cache.On("GetSuspicious", ctx, "org-1").Return(nil, false)
		orgRepo.On("Exists", ctx, "org-1").Return(true, nil)
		alertRepo.On("SuspiciousAlertTimes", ctx, "org-1").Return(alertTimes(time.May, 2), nil)
		cache.On("SetSuspicious", ctx, "org-1", mock.MatchedBy(func(s *domain.SuspiciousSummary) bool {
			return len(s.Data) == 1 && s.Data[0].Count == 2
		})).Return()

		_, err := svc.MonthlySuspiciousActivity(ctx, "org-1")
		require.NoError(t, err)
		cache.AssertExpectations(t)
	})
}

func TestUnresolvedCriticalAlerts(t *testing.T) {
	svc, _, alertRepo := newAlertFixture(nil)
	ctx := context.Background()
	now := svc.now()

	alertRepo.On("ListUnresolved", ctx, "org-1", "", 0, 0).Return([]*models.CriticalAlert{
		{AlertID: "a-1", AlertType: "breakdown", AlertTime: now.Add(-3 * time.Minute), Truck: &models.Truck{TruckNumber: "KA01AB1234"}},
		{AlertID: "a-2", AlertType: "low_mileage", AlertTime: now.Add(-2 * time.Hour)},
	}, int64(2), nil)

	list, total, err := svc.UnresolvedCriticalAlerts(ctx, "org-1", "", nil)
	require.NoError(t, err)

	assert.Equal(t, int64(2), total)
	assert.Equal(t, 2, list.Count)
	assert.Equal(t, []domain.CriticalAlertRow{
		{TruckNo: "KA01AB1234", CriticalStatus: "Breakdown", TimeElapsed: "3m ago"},
		{TruckNo: "Unknown", CriticalStatus: "Low Mileage", TimeElapsed: "2h ago"},
	}, list.Data)
}

func TestUnresolvedCriticalAlerts_StatusFilter(t *testing.T) {
	svc, _, alertRepo := newAlertFixture(nil)
	ctx := context.Background()

	alertRepo.On("ListUnresolved", ctx, "org-1", "suspicious_activity_detected", 20, 10).
		Return([]*models.CriticalAlert{}, int64(25), nil)

	list, total, err := svc.UnresolvedCriticalAlerts(ctx, "org-1", " Suspicious Activity Detected ", pagination.NewParams(3, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(25), total)
	assert.Equal(t, 0, list.Count)
	assert.NotNil(t, list.Data)
	alertRepo.AssertExpectations(t)
}

func TestUnresolvedCriticalAlerts_UnknownStatus(t *testing.T) {
	svc, _, alertRepo := newAlertFixture(nil)

	_, _, err := svc.UnresolvedCriticalAlerts(context.Background(), "org-1", "on fire", nil)
	assert.ErrorIs(t, err, domain.ErrUnknownStatus)
	assert.Contains(t, err.Error(), "on fire")
	alertRepo.AssertNotCalled(t, "ListUnresolved", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUnresolvedCriticalAlerts_RepoError(t *testing.T) {
	svc, _, alertRepo := newAlertFixture(nil)
	ctx := context.Background()

	alertRepo.On("ListUnresolved", ctx, "org-1", "", 0, 0).Return(nil, int64(0), errors.New("timeout"))

	_, _, err := svc.UnresolvedCriticalAlerts(ctx, "org-1", "", nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrInvalidInput))
}
