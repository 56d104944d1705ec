package config

import (
	"errors"
	"time"

	"e2e-transit/internal/adapters/persistence/models"
	"e2e-transit/internal/pkg/geo"
	"e2e-transit/internal/pkg/logger"
	"e2e-transit/internal/pkg/password"

	"gorm.io/gorm"
)

// Dev fixture identifiers
const (
	DevOrganisationID = "00000000-0000-4000-8000-000000000001"
	DevCustomerID     = "00000000-0000-4000-8000-000000000002"
	devCustomerPhone  = "+919800000000"
)

// Seeder handles database seeding
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// Run executes all seeders. Failures are logged and skipped.
func (s *Seeder) Run() error {
	logger.Infof("Running database seeders...")

	if err := s.seedOrganisation(); err != nil {
		logger.Warnf("Organisation seeder skipped: %v", err)
	}
	if err := s.seedTrucks(); err != nil {
		logger.Warnf("Truck seeder skipped: %v", err)
	}
	if err := s.seedCustomer(); err != nil {
		logger.Warnf("Customer seeder skipped: %v", err)
	}
	if err := s.seedAlerts(); err != nil {
		logger.Warnf("Alert seeder skipped: %v", err)
	}

	logger.Infof("Database seeding completed")
	return nil
}

// seedOrganisation seeds the development organisation
func (s *Seeder) seedOrganisation() error {
	var count int64
	s.db.Model(&models.Organisation{}).Where("organisation_id = ?", DevOrganisationID).Count(&count)
	if count > 0 {
		return nil
	}

	return s.db.Create(&models.Organisation{
		OrganisationID: DevOrganisationID,
		Name:           "E2E Transit Demo Fleet",
	}).Error
}

// seedTrucks seeds a small mixed fleet around Bengaluru
func (s *Seeder) seedTrucks() error {
	var count int64
	s.db.Model(&models.Truck{}).Where("organisation_id = ?", DevOrganisationID).Count(&count)
	if count > 0 {
		return nil
	}

	hash := func(lat, lng float64) *string {
		h := geo.Encode(geo.Point{Latitude: lat, Longitude: lng}, 9)
		return &h
	}

	trucks := []models.Truck{
		{TruckID: "00000000-0000-4000-8000-000000000101", TruckNumber: "KA01AB1234", MaximumLoad: 10, WeightUnit: "ton", TruckType: "open", LastGeohash: hash(12.9716, 77.5946)},
		{TruckID: "00000000-0000-4000-8000-000000000102", TruckNumber: "KA05CD5678", MaximumLoad: 20, WeightUnit: "ton", TruckType: "container", LastGeohash: hash(13.0827, 80.2707)},
		{TruckID: "00000000-0000-4000-8000-000000000103", TruckNumber: "KA03EF9012", MaximumLoad: 800, WeightUnit: "kg", TruckType: "open"},
	}
	for i := range trucks {
		trucks[i].OrganisationID = DevOrganisationID
	}

	if err := s.db.Create(&trucks).Error; err != nil {
		return err
	}
	logger.Infof("Seeded %d trucks", len(trucks))
	return nil
}

// seedCustomer seeds a verified user reachable by phone number, used as the
// trip customer in step 3. Development only.
func (s *Seeder) seedCustomer() error {
	var existing models.User
	err := s.db.Where("id = ?", DevCustomerID).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashed, err := password.Hash("customer123456")
	if err != nil {
		return err
	}
	phone := devCustomerPhone

	if err := s.db.Create(&models.User{
		ID:           DevCustomerID,
		Email:        "customer@e2etransit.in",
		PhoneNumber:  &phone,
		PasswordHash: &hashed,
		IsVerified:   true,
	}).Error; err != nil {
		return err
	}
	logger.Infof("Customer user created: %s", phone)
	return nil
}

// seedAlerts seeds a few unresolved critical alerts for the dashboard
func (s *Seeder) seedAlerts() error {
	var count int64
	s.db.Model(&models.CriticalAlert{}).Count(&count)
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	alerts := []models.CriticalAlert{
		{AlertID: "00000000-0000-4000-8000-000000000201", AlertTime: now.Add(-5 * time.Minute), AlertType: "harsh_braking", TruckID: "00000000-0000-4000-8000-000000000101"},
		{AlertID: "00000000-0000-4000-8000-000000000202", AlertTime: now.Add(-3 * time.Hour), AlertType: "overspeed", TruckID: "00000000-0000-4000-8000-000000000102"},
		{AlertID: "00000000-0000-4000-8000-000000000203", AlertTime: now.AddDate(0, 0, -2), AlertType: "geofence_exit", TruckID: "00000000-0000-4000-8000-000000000101", Resolved: true},
	}
	return s.db.Create(&alerts).Error
}
