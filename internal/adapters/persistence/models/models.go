package models

import (
	"time"

	"gorm.io/gorm"

	"e2e-transit/internal/core/domain"
)

// ============================================================
// Auth
// ============================================================

// User represents users table
type User struct {
	ID               string     `gorm:"primaryKey;size:36" json:"id"`
	Email            string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PhoneNumber      *string    `gorm:"index;size:20" json:"phone_number,omitempty"`
	PasswordHash     *string    `gorm:"size:255" json:"-"`
	IsVerified       bool       `gorm:"not null;default:false" json:"is_verified"`
	OTP              *string    `gorm:"column:otp;size:255" json:"-"`
	OTPExpiresAt     *time.Time `gorm:"column:otp_expires_at" json:"-"`
	Provider         *string    `gorm:"size:50" json:"provider,omitempty"`
	ProviderID       *string    `gorm:"size:255" json:"provider_id,omitempty"`
	RefreshTokenHash *string    `gorm:"size:255" json:"-"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// HasActiveOTP reports whether an OTP hash and expiry are both stored
func (u *User) HasActiveOTP() bool {
	return u.OTP != nil && *u.OTP != "" && u.OTPExpiresAt != nil
}

// HasPassword is false for OAuth-only accounts
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// UserResponse DTO
type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:    u.ID,
		Email: u.Email,
	}
}

// ============================================================
// Fleet reference data (read-only here)
// ============================================================

// Organisation represents organisations table
type Organisation struct {
	OrganisationID string    `gorm:"column:organisation_id;primaryKey;size:36" json:"organisation_id"`
	Name           string    `gorm:"size:255;not null" json:"name"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Organisation) TableName() string {
	return "organisations"
}

// Truck represents trucks table
type Truck struct {
	TruckID        string  `gorm:"column:truck_id;primaryKey;size:36" json:"truck_id"`
	TruckNumber    string  `gorm:"size:50;not null" json:"truck_number"`
	OrganisationID string  `gorm:"index;size:36;not null" json:"organisation_id"`
	MaximumLoad    float64 `gorm:"not null" json:"maximum_load"`
	WeightUnit     string  `gorm:"size:10;not null;default:'ton'" json:"weight_unit"`
	TruckType      string  `gorm:"index;size:50" json:"truck_type"`
	LastGeohash    *string `gorm:"size:12" json:"last_geohash,omitempty"`
}

func (Truck) TableName() string {
	return "trucks"
}

// CapacityTons returns the maximum load converted to tons
func (t *Truck) CapacityTons() float64 {
	return domain.ConvertToTons(t.MaximumLoad, domain.WeightUnit(t.WeightUnit))
}

// CriticalAlert represents truck_critical_alerts table
type CriticalAlert struct {
	AlertID   string    `gorm:"column:alert_id;primaryKey;size:36" json:"alert_id"`
	AlertTime time.Time `gorm:"index;not null" json:"alert_time"`
	AlertType string    `gorm:"index;size:50;not null" json:"alert_type"`
	Resolved  bool      `gorm:"not null;default:false" json:"resolved"`
	TruckID   string    `gorm:"index;size:36;not null" json:"truck_id"`
	Truck     *Truck    `gorm:"foreignKey:TruckID;references:TruckID" json:"truck,omitempty"`
}

func (CriticalAlert) TableName() string {
	return "truck_critical_alerts"
}

// ============================================================
// Trip wizard
// ============================================================

// StagedTrip represents temp_trips table. Filled in over three wizard steps.
type StagedTrip struct {
	TempTripID        string                 `gorm:"column:temp_trip_id;primaryKey;size:36" json:"temp_trip_id"`
	OrgID             string                 `gorm:"column:org_id;index;size:36;not null" json:"org_id"`
	LoadingLocation   domain.Location        `gorm:"type:json;not null" json:"loading_location"`
	UnloadingLocation domain.Location        `gorm:"type:json;not null" json:"unloading_location"`
	Stops             domain.Locations       `gorm:"type:json" json:"stops,omitempty"`
	DepartureDate     time.Time              `gorm:"index;not null" json:"departure_date"`
	TripAmount        float64                `gorm:"not null" json:"trip_amount"`
	RouteDistance     float64                `json:"route_distance"`
	RouteDuration     int                    `json:"route_duration"`
	MaterialType      *string                `gorm:"size:50" json:"material_type,omitempty"`
	MaterialWeight    *domain.MaterialWeight `gorm:"type:json" json:"material_weight,omitempty"`
	TruckType         *string                `gorm:"size:50" json:"truck_type,omitempty"`
	SelectedTruckID   *string                `gorm:"size:36" json:"selected_truck_id,omitempty"`
	Driver1ID         *string                `gorm:"column:driver_1_id;size:36" json:"driver_1_id,omitempty"`
	Driver2ID         *string                `gorm:"column:driver_2_id;size:36" json:"driver_2_id,omitempty"`
	Customer          *domain.Contact        `gorm:"type:json" json:"customer,omitempty"`
	Loader            *domain.Contact        `gorm:"type:json" json:"loader,omitempty"`
	Unloader          *domain.Contact        `gorm:"type:json" json:"unloader,omitempty"`
	TripID            *string                `gorm:"size:36" json:"trip_id,omitempty"`
	ConsumedAt        *time.Time             `gorm:"index" json:"consumed_at,omitempty"`
	CreatedAt         time.Time              `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time              `gorm:"autoUpdateTime" json:"updated_at"`
}

func (StagedTrip) TableName() string {
	return "temp_trips"
}

// IsConsumed reports whether the staged trip was already promoted to a trip
func (s *StagedTrip) IsConsumed() bool {
	return s.ConsumedAt != nil
}

// CheckStep2 returns a STEP_INCOMPLETE error naming the first missing
// truck-selection field, or nil when the trip can be finalized.
func (s *StagedTrip) CheckStep2() error {
	if isBlank(s.Driver1ID) {
		return domain.StepIncomplete("Driver assignment missing (step2 incomplete)")
	}
	if isBlank(s.SelectedTruckID) {
		return domain.StepIncomplete("Truck not selected (step2 incomplete)")
	}
	if s.MaterialWeight == nil || s.MaterialWeight.Value == 0 {
		return domain.StepIncomplete("Material weight missing in step2")
	}
	return nil
}

// IsPromotable reports whether every field a trip needs is populated
func (s *StagedTrip) IsPromotable() bool {
	return s.LoadingLocation.HasCoordinates() &&
		s.UnloadingLocation.HasCoordinates() &&
		!isBlank(s.MaterialType) &&
		s.CheckStep2() == nil
}

func isBlank(s *string) bool {
	return s == nil || *s == ""
}

// Trip represents trips table
type Trip struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	DepartureDate time.Time `gorm:"not null" json:"departure_date"`
	Amount        float64   `gorm:"not null" json:"amount"`
	CurrencyCode  string    `gorm:"size:3;not null" json:"currency_code"`
	MaterialType  string    `gorm:"size:50" json:"material_type"`
	TruckTonnage  float64   `json:"truck_tonnage"`
	WeightUnit    string    `gorm:"size:10" json:"weight_unit"`
	TripType      string    `gorm:"size:10;not null" json:"trip_type"`
	TruckID       string    `gorm:"index;size:36;not null" json:"truck_id"`
	DriverID      string    `gorm:"index;size:36;not null" json:"driver_id"`
	CustomerID    string    `gorm:"index;size:36;not null" json:"customer_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Trip) TableName() string {
	return "trips"
}

// AutoMigrate runs auto migration for all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Organisation{},
		&Truck{},
		&CriticalAlert{},
		&StagedTrip{},
		&Trip{},
	)
}
