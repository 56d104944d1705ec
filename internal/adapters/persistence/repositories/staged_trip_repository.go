package repositories

import (
	"context"
	"time"

	"e2e-transit/internal/adapters/persistence/models"
	"e2e-transit/internal/core/domain"

	"gorm.io/gorm"
)

// stagedTripRepository implements StagedTripRepository interface
type stagedTripRepository struct {
	db *gorm.DB
}

// NewStagedTripRepository creates a new temp trip repository
func NewStagedTripRepository(db *gorm.DB) StagedTripRepository {
	return &stagedTripRepository{db: db}
}

// Create creates a new staged trip
func (r *stagedTripRepository) Create(ctx context.Context, trip *models.StagedTrip) error {
	return r.db.WithContext(ctx).Create(trip).Error
}

// GetByID gets a staged trip by id
func (r *stagedTripRepository) GetByID(ctx context.Context, id string) (*models.StagedTrip, error) {
	var trip models.StagedTrip
	err := r.db.WithContext(ctx).Where("temp_trip_id = ?", id).First(&trip).Error
	if err != nil {
		return nil, err
	}
	return &trip, nil
}

// UpdateSelection writes the truck-selection step fields. Nil fields are cleared.
func (r *stagedTripRepository) UpdateSelection(ctx context.Context, trip *models.StagedTrip) error {
	result := r.db.WithContext(ctx).
		Model(&models.StagedTrip{}).
		Where("temp_trip_id = ? AND consumed_at IS NULL", trip.TempTripID).
		Updates(map[string]interface{}{
			"material_type":     trip.MaterialType,
			"material_weight":   trip.MaterialWeight,
			"truck_type":        trip.TruckType,
			"selected_truck_id": trip.SelectedTruckID,
			"driver_1_id":       trip.Driver1ID,
			"driver_2_id":       trip.Driver2ID,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrStagedTripConsumed
	}
	return nil
}

// Promote inserts the trip and marks the staged trip consumed
func (r *stagedTripRepository) Promote(ctx context.Context, staged *models.StagedTrip, trip *models.Trip) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(trip).Error; err != nil {
			return err
		}

		now := time.Now()
		result := tx.Model(&models.StagedTrip{}).
			Where("temp_trip_id = ? AND consumed_at IS NULL", staged.TempTripID).
			Updates(map[string]interface{}{
				"customer":    staged.Customer,
				"loader":      staged.Loader,
				"unloader":    staged.Unloader,
				"trip_id":     trip.ID,
				"consumed_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrStagedTripConsumed
		}

		staged.TripID = &trip.ID
		staged.ConsumedAt = &now
		return nil
	})
}

// DeleteStale removes staged trips that were never finalized
func (r *stagedTripRepository) DeleteStale(ctx context.Context, createdBefore time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("consumed_at IS NULL AND created_at < ?", createdBefore).
		Delete(&models.StagedTrip{})
	return result.RowsAffected, result.Error
}
