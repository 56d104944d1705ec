package repositories

import (
	"context"
	"time"

	"e2e-transit/internal/adapters/persistence/models"
	"e2e-transit/internal/core/domain"

	"gorm.io/gorm"
)

// organisationRepository implements OrganisationRepository interface
type organisationRepository struct {
	db *gorm.DB
}

// NewOrganisationRepository creates a new organisation repository
func NewOrganisationRepository(db *gorm.DB) OrganisationRepository {
	return &organisationRepository{db: db}
}

// Exists checks if an organisation exists
func (r *organisationRepository) Exists(ctx context.Context, orgID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Organisation{}).
		Where("organisation_id = ?", orgID).
		Count(&count).Error
	return count > 0, err
}

// truckRepository implements TruckRepository interface
type truckRepository struct {
	db *gorm.DB
}

// NewTruckRepository creates a new truck repository
func NewTruckRepository(db *gorm.DB) TruckRepository {
	return &truckRepository{db: db}
}

// ListByOrgAndType lists an organisation's trucks, optionally of one type
func (r *truckRepository) ListByOrgAndType(ctx context.Context, orgID, truckType string) ([]*models.Truck, error) {
	var trucks []*models.Truck
	query := r.db.WithContext(ctx).Where("organisation_id = ?", orgID)
	if truckType != "" {
		query = query.Where("truck_type = ?", truckType)
	}
	err := query.Order("truck_number ASC").Find(&trucks).Error
	return trucks, err
}

// alertRepository implements AlertRepository interface
type alertRepository struct {
	db *gorm.DB
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *gorm.DB) AlertRepository {
	return &alertRepository{db: db}
}

// SuspiciousAlertTimes returns suspicious-activity alert times for an organisation
func (r *alertRepository) SuspiciousAlertTimes(ctx context.Context, orgID string) ([]time.Time, error) {
	var times []time.Time
	err := r.db.WithContext(ctx).
		Model(&models.CriticalAlert{}).
		Joins("INNER JOIN trucks ON trucks.truck_id = truck_critical_alerts.truck_id").
		Where("trucks.organisation_id = ?", orgID).
		Where("truck_critical_alerts.alert_type = ?", string(domain.AlertSuspiciousActivity)).
		Pluck("truck_critical_alerts.alert_time", &times).Error
	return times, err
}

// ListUnresolved lists unresolved alerts for an organisation with pagination
func (r *alertRepository) ListUnresolved(ctx context.Context, orgID, alertType string, offset, limit int) ([]*models.CriticalAlert, int64, error) {
	var alerts []*models.CriticalAlert
	var total int64

	scope := func(db *gorm.DB) *gorm.DB {
		db = db.InnerJoins("Truck", r.db.Where(&models.Truck{OrganisationID: orgID})).
			Where("truck_critical_alerts.resolved = ?", false)
		if alertType != "" {
			db = db.Where("truck_critical_alerts.alert_type = ?", alertType)
		}
		return db
	}

	if err := r.db.WithContext(ctx).
		Model(&models.CriticalAlert{}).
		Scopes(scope).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.db.WithContext(ctx).
		Scopes(scope).
		Order("truck_critical_alerts.alert_time DESC")
	if limit > 0 {
		query = query.Offset(offset).Limit(limit)
	}
	err := query.Find(&alerts).Error

	return alerts, total, err
}
