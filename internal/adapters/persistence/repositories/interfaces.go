package repositories

import (
	"context"
	"time"

	"e2e-transit/internal/adapters/persistence/models"
)

// UserRepository defines user repository interface
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	// UpdateFields updates the given columns of the user with id. A nil value
	// clears the column.
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error
	// UpdateByEmail is used when the user id itself changes (OAuth identity migration).
	UpdateByEmail(ctx context.Context, email string, fields map[string]interface{}) error
	ClearExpiredOTPs(ctx context.Context, now time.Time) (int64, error)
}

// OrganisationRepository defines organisation repository interface
// Read-only access
type OrganisationRepository interface {
	Exists(ctx context.Context, orgID string) (bool, error)
}

// TruckRepository defines truck repository interface
// Read-only access
type TruckRepository interface {
	ListByOrgAndType(ctx context.Context, orgID, truckType string) ([]*models.Truck, error)
}

// AlertRepository defines critical alert repository interface
// Read-only access
type AlertRepository interface {
	// SuspiciousAlertTimes returns the alert times of suspicious-activity
	// alerts raised on the organisation's trucks.
	SuspiciousAlertTimes(ctx context.Context, orgID string) ([]time.Time, error)
	// ListUnresolved returns unresolved alerts newest first with their truck
	// loaded. An empty alertType matches every type; limit <= 0 returns all rows.
	ListUnresolved(ctx context.Context, orgID, alertType string, offset, limit int) ([]*models.CriticalAlert, int64, error)
}

// StagedTripRepository defines temp trip repository interface
type StagedTripRepository interface {
	Create(ctx context.Context, trip *models.StagedTrip) error
	GetByID(ctx context.Context, id string) (*models.StagedTrip, error)
	UpdateSelection(ctx context.Context, trip *models.StagedTrip) error
	// Promote inserts trip and marks staged consumed in one transaction.
	// It fails with domain.ErrStagedTripConsumed if another request got there first.
	Promote(ctx context.Context, staged *models.StagedTrip, trip *models.Trip) error
	DeleteStale(ctx context.Context, createdBefore time.Time) (int64, error)
}
