package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"e2e-transit/internal/adapters/persistence/models"
	"e2e-transit/internal/adapters/persistence/repositories"
	"e2e-transit/internal/config"
	"e2e-transit/internal/core/domain"
	"e2e-transit/internal/pkg/geo"
	"e2e-transit/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TripService drives the three-step trip creation wizard
type TripService struct {
	stagedRepo repositories.StagedTripRepository
	truckRepo  repositories.TruckRepository
	userRepo   repositories.UserRepository
	cfg        *config.Config
	now        func() time.Time
}

// NewTripService creates a new trip service
func NewTripService(
	stagedRepo repositories.StagedTripRepository,
	truckRepo repositories.TruckRepository,
	userRepo repositories.UserRepository,
	cfg *config.Config,
) *TripService {
	return &TripService{
		stagedRepo: stagedRepo,
		truckRepo:  truckRepo,
		userRepo:   userRepo,
		cfg:        cfg,
		now:        time.Now,
	}
}

// ============================================================
// Step 1: route basics
// ============================================================

// StageTripInput represents step 1 input
type StageTripInput struct {
	OrgID             string            `json:"org_id"`
	LoadingLocation   *domain.Location  `json:"loading_location"`
	UnloadingLocation *domain.Location  `json:"unloading_location"`
	Stops             []domain.Location `json:"stops,omitempty"`
	DepartureDate     string            `json:"departure_date"`
	TripAmount        *float64          `json:"trip_amount"`
}

// StageTripResult represents step 1 output
type StageTripResult struct {
	TempTripID    string  `json:"temp_trip_id"`
	RouteDistance float64 `json:"route_distance"`
	RouteDuration int     `json:"route_duration"`
}

// Stage validates route basics and persists a new staged trip
func (s *TripService) Stage(ctx context.Context, input *StageTripInput) (*StageTripResult, error) {
	// 1. Validate
	if input.OrgID == "" {
		return nil, domain.InvalidBody("org_id is required")
	}
	if !input.LoadingLocation.HasCoordinates() {
		return nil, domain.InvalidBody("Missing loading location coordinates")
	}
	if !input.UnloadingLocation.HasCoordinates() {
		return nil, domain.InvalidBody("Missing unloading location coordinates")
	}
	departure, err := ParseDepartureDate(input.DepartureDate)
	if err != nil {
		return nil, err
	}
	if input.TripAmount == nil {
		return nil, domain.InvalidBody("trip_amount is required")
	}
	if *input.TripAmount < 0 || math.IsNaN(*input.TripAmount) || math.IsInf(*input.TripAmount, 0) {
		return nil, domain.InvalidBody("trip_amount must be a non-negative number")
	}

	// 2. Estimate route
	distance, duration := s.estimateRoute(input.LoadingLocation, input.UnloadingLocation, input.Stops)

	// 3. Persist
	staged := &models.StagedTrip{
		TempTripID:        uuid.NewString(),
		OrgID:             input.OrgID,
		LoadingLocation:   *input.LoadingLocation,
		UnloadingLocation: *input.UnloadingLocation,
		DepartureDate:     departure,
		TripAmount:        *input.TripAmount,
		RouteDistance:     distance,
		RouteDuration:     duration,
	}
	if len(input.Stops) > 0 {
		staged.Stops = domain.Locations(input.Stops)
	}
	if err := s.stagedRepo.Create(ctx, staged); err != nil {
		return nil, fmt.Errorf("create temp trip: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"temp_trip_id": staged.TempTripID,
		"org_id":       staged.OrgID,
		"distance_km":  distance,
	}).Info("Trip staged")

	return &StageTripResult{
		TempTripID:    staged.TempTripID,
		RouteDistance: distance,
		RouteDuration: duration,
	}, nil
}

// ParseDepartureDate accepts YYYY-MM-DD (midnight UTC) or an RFC3339 timestamp
func ParseDepartureDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, domain.InvalidBody("departure_date is required")
	}
	if t, err := time.ParseInLocation("2006-01-02", value, time.UTC); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, domain.InvalidBody("departure_date must be YYYY-MM-DD or an RFC3339 timestamp")
}

// estimateRoute returns the great-circle distance (km, 1 decimal) along
// loading, stops, unloading and the driving time in minutes. Stops without
// usable coordinates are skipped.
func (s *TripService) estimateRoute(loading, unloading *domain.Location, stops []domain.Location) (float64, int) {
	points := []geo.Point{toPoint(loading)}
	for i := range stops {
		if stops[i].HasCoordinates() {
			points = append(points, toPoint(&stops[i]))
		}
	}
	points = append(points, toPoint(unloading))

	km := geo.PathKm(points)
	minutes := int(math.Round(km / s.cfg.Trip.AvgSpeedKmph * 60))
	return geo.Round1(km), minutes
}

func toPoint(l *domain.Location) geo.Point {
	return geo.Point{Latitude: *l.Latitude, Longitude: *l.Longitude}
}

// ============================================================
// Step 2: material, truck and driver selection
// ============================================================

// WeightInput is the requested material weight
type WeightInput struct {
	Value *float64 `json:"value"`
	Unit  string   `json:"unit"`
}

// SelectTruckInput represents step 2 input
type SelectTruckInput struct {
	OrgID           string       `json:"org_id"`
	TempTripID      string       `json:"temp_trip_id"`
	MaterialType    string       `json:"material_type"`
	MaterialWeight  *WeightInput `json:"material_weight"`
	TruckType       string       `json:"truck_type"`
	SelectedTruckID string       `json:"selected_truck_id,omitempty"`
	Driver1ID       string       `json:"driver_1_id,omitempty"`
	Driver2ID       string       `json:"driver_2_id,omitempty"`
}

// TruckRecommendation is a truck able to carry the requested load
type TruckRecommendation struct {
	TruckID     string   `json:"truck_id"`
	TruckNumber string   `json:"truck_number"`
	Capacity    float64  `json:"capacity"`
	ProximityKm *float64 `json:"proximity_km,omitempty"`
}

// SelectTruckResult represents step 2 output
type SelectTruckResult struct {
	RecommendedTrucks []TruckRecommendation `json:"recommended_trucks"`
}

const invalidMaterialMessage = "Invalid material unit or missing weight or material type"

// SelectTruck recommends trucks with enough capacity and records the selection
func (s *TripService) SelectTruck(ctx context.Context, input *SelectTruckInput) (*SelectTruckResult, error) {
	// 1. Validate
	if input.OrgID == "" {
		return nil, domain.InvalidBody("org_id is required")
	}
	if input.TempTripID == "" {
		return nil, domain.InvalidBody("temp_trip_id is required")
	}
	materialType, ok := domain.ParseMaterialType(input.MaterialType)
	if !ok || input.MaterialWeight == nil || input.MaterialWeight.Value == nil {
		return nil, domain.InvalidBody(invalidMaterialMessage)
	}
	unit, ok := domain.ParseWeightUnit(input.MaterialWeight.Unit)
	value := *input.MaterialWeight.Value
	if !ok || !(value > 0) || math.IsInf(value, 0) {
		return nil, domain.InvalidBody(invalidMaterialMessage)
	}
	weight := domain.MaterialWeight{Value: value, Unit: unit}

	// 2. Load staged trip
	staged, err := s.loadStaged(ctx, input.OrgID, input.TempTripID)
	if err != nil {
		return nil, err
	}

	// 3. Filter trucks by capacity
	trucks, err := s.truckRepo.ListByOrgAndType(ctx, input.OrgID, input.TruckType)
	if err != nil {
		return nil, fmt.Errorf("fetch trucks: %w", err)
	}
	recommended := recommendTrucks(trucks, weight.Tons(), &staged.LoadingLocation)

	// 4. Selected truck must be one of them
	if input.SelectedTruckID != "" && !containsTruck(recommended, input.SelectedTruckID) {
		return nil, domain.ErrTruckNotAvailable
	}

	// 5. Record selection
	mt := string(materialType)
	staged.MaterialType = &mt
	staged.MaterialWeight = &weight
	staged.TruckType = optional(input.TruckType)
	staged.SelectedTruckID = optional(input.SelectedTruckID)
	staged.Driver1ID = optional(input.Driver1ID)
	staged.Driver2ID = optional(input.Driver2ID)
	if err := s.stagedRepo.UpdateSelection(ctx, staged); err != nil {
		if errors.Is(err, domain.ErrStagedTripConsumed) {
			return nil, err
		}
		return nil, fmt.Errorf("update temp trip: %w", err)
	}

	return &SelectTruckResult{RecommendedTrucks: recommended}, nil
}

// recommendTrucks keeps trucks whose capacity covers requiredTons, nearest
// to the loading point first. Trucks without a known position sort last.
func recommendTrucks(trucks []*models.Truck, requiredTons float64, loading *domain.Location) []TruckRecommendation {
	recommended := make([]TruckRecommendation, 0, len(trucks))
	for _, t := range trucks {
		capacity := t.CapacityTons()
		if capacity < requiredTons {
			continue
		}

		rec := TruckRecommendation{
			TruckID:     t.TruckID,
			TruckNumber: t.TruckNumber,
			Capacity:    capacity,
		}
		if t.LastGeohash != nil && loading.HasCoordinates() {
			if pos, ok := geo.Decode(*t.LastGeohash); ok {
				km := geo.Round1(geo.DistanceKm(pos, toPoint(loading)))
				rec.ProximityKm = &km
			}
		}
		recommended = append(recommended, rec)
	}

	sort.SliceStable(recommended, func(i, j int) bool {
		a, b := recommended[i].ProximityKm, recommended[j].ProximityKm
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return *a < *b
	})
	return recommended
}

func containsTruck(recs []TruckRecommendation, truckID string) bool {
	for _, r := range recs {
		if r.TruckID == truckID {
			return true
		}
	}
	return false
}

// ============================================================
// Step 3: customer details and promotion
// ============================================================

// FinalizeTripInput represents step 3 input
type FinalizeTripInput struct {
	OrgID      string          `json:"org_id"`
	TempTripID string          `json:"temp_trip_id"`
	TripType   string          `json:"trip_type"`
	Customer   *domain.Contact `json:"customer"`
	Loader     *domain.Contact `json:"loader,omitempty"`
	Unloader   *domain.Contact `json:"unloader,omitempty"`
}

// FinalizeTripResult represents step 3 output
type FinalizeTripResult struct {
	TripID string `json:"trip_id"`
}

// Finalize promotes a completed staged trip into a trip
func (s *TripService) Finalize(ctx context.Context, input *FinalizeTripInput) (*FinalizeTripResult, error) {
	// 1. Validate
	if input.OrgID == "" {
		return nil, domain.InvalidBody("org_id is required")
	}
	if input.TempTripID == "" {
		return nil, domain.InvalidBody("temp_trip_id is required")
	}
	if input.Customer == nil || input.Customer.Name == "" || input.Customer.PhoneNumber == "" {
		return nil, domain.InvalidBody("Missing customer name or phone number")
	}
	tripType, ok := domain.ParseTripType(input.TripType)
	if !ok {
		return nil, domain.InvalidBody("trip_type must be Leased or Owned")
	}

	// 2. Staged trip must have finished step 2
	staged, err := s.loadStaged(ctx, input.OrgID, input.TempTripID)
	if err != nil {
		return nil, err
	}
	if err := staged.CheckStep2(); err != nil {
		return nil, err
	}
	if !staged.IsPromotable() {
		return nil, domain.StepIncomplete("Material type or route locations missing")
	}

	// 3. Resolve customer
	customer, err := s.userRepo.GetByPhone(ctx, input.Customer.PhoneNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("find customer: %w", err)
	}

	// 4. Insert trip and consume staged trip
	trip := &models.Trip{
		ID:            uuid.NewString(),
		DepartureDate: staged.DepartureDate,
		Amount:        staged.TripAmount,
		CurrencyCode:  domain.DefaultCurrency,
		TruckTonnage:  staged.MaterialWeight.Value,
		WeightUnit:    string(staged.MaterialWeight.Unit),
		TripType:      string(tripType),
		TruckID:       *staged.SelectedTruckID,
		DriverID:      *staged.Driver1ID,
		CustomerID:    customer.ID,
	}
	if staged.MaterialType != nil {
		trip.MaterialType = *staged.MaterialType
	}
	staged.Customer = input.Customer
	staged.Loader = input.Loader
	staged.Unloader = input.Unloader

	if err := s.stagedRepo.Promote(ctx, staged, trip); err != nil {
		if errors.Is(err, domain.ErrStagedTripConsumed) {
			return nil, err
		}
		return nil, fmt.Errorf("insert trip: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"trip_id":      trip.ID,
		"temp_trip_id": staged.TempTripID,
	}).Info("Trip finalized")

	return &FinalizeTripResult{TripID: trip.ID}, nil
}

// DeleteStaleStagedTrips removes staged trips older than the retention window
// that were never finalized
func (s *TripService) DeleteStaleStagedTrips(ctx context.Context) (int64, error) {
	cutoff := s.now().AddDate(0, 0, -s.cfg.Cron.StagedTripRetentionDays)
	return s.stagedRepo.DeleteStale(ctx, cutoff)
}

// loadStaged fetches an unconsumed staged trip belonging to orgID
func (s *TripService) loadStaged(ctx context.Context, orgID, tempTripID string) (*models.StagedTrip, error) {
	staged, err := s.stagedRepo.GetByID(ctx, tempTripID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrStagedTripNotFound
		}
		return nil, fmt.Errorf("fetch temp trip: %w", err)
	}
	if staged.OrgID != orgID {
		return nil, domain.ErrStagedTripNotFound
	}
	if staged.IsConsumed() {
		return nil, domain.ErrStagedTripConsumed
	}
	return staged, nil
}
