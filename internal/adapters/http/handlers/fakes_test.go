package handlers

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"e2e-transit/internal/adapters/persistence/models"
	"e2e-transit/internal/core/domain"
)

// memUsers is an in-memory UserRepository
type memUsers struct {
	mu    sync.Mutex
	users map[string]*models.User // by email
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[string]*models.User{}}
}

func (r *memUsers) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *user
	r.users[user.Email] = &cp
	return nil
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUsers) GetByPhone(_ context.Context, phone string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.PhoneNumber != nil && *u.PhoneNumber == phone {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUsers) UpdateFields(_ context.Context, id string, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			applyUserFields(u, fields)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *memUsers) UpdateByEmail(_ context.Context, email string, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[email]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	applyUserFields(u, fields)
	return nil
}

func (r *memUsers) ClearExpiredOTPs(_ context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func (r *memUsers) get(email string) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[email]
}

func strField(v interface{}) *string {
	switch s := v.(type) {
	case string:
		return &s
	case *string:
		return s
	}
	return nil
}

func applyUserFields(u *models.User, fields map[string]interface{}) {
	for k, v := range fields {
		switch k {
		case "id":
			u.ID = v.(string)
		case "otp":
			u.OTP = strField(v)
		case "otp_expires_at":
			if t, ok := v.(time.Time); ok {
				u.OTPExpiresAt = &t
			} else {
				u.OTPExpiresAt = nil
			}
		case "is_verified":
			u.IsVerified = v.(bool)
		case "password_hash":
			u.PasswordHash = strField(v)
		case "refresh_token_hash":
			u.RefreshTokenHash = strField(v)
		case "provider":
			u.Provider = strField(v)
		case "provider_id":
			u.ProviderID = strField(v)
		}
	}
}

type memOrgs map[string]bool

func (o memOrgs) Exists(_ context.Context, orgID string) (bool, error) {
	return o[orgID], nil
}

type memAlerts struct {
	suspicious []time.Time
	alerts     []*models.CriticalAlert
}

func (a *memAlerts) SuspiciousAlertTimes(_ context.Context, _ string) ([]time.Time, error) {
	return a.suspicious, nil
}

func (a *memAlerts) ListUnresolved(_ context.Context, _ string, alertType string, offset, limit int) ([]*models.CriticalAlert, int64, error) {
	var out []*models.CriticalAlert
	for _, al := range a.alerts {
		if alertType == "" || al.AlertType == alertType {
			out = append(out, al)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AlertTime.After(out[j].AlertTime) })
	total := int64(len(out))
	if limit > 0 {
		if offset > len(out) {
			offset = len(out)
		}
		end := offset + limit
		if end > len(out) {
			end = len(out)
		}
		out = out[offset:end]
	}
	return out, total, nil
}

type memTrucks []*models.Truck

func (t memTrucks) ListByOrgAndType(_ context.Context, orgID, truckType string) ([]*models.Truck, error) {
	var out []*models.Truck
	for _, tr := range t {
		if tr.OrganisationID == orgID && (truckType == "" || tr.TruckType == truckType) {
			out = append(out, tr)
		}
	}
	return out, nil
}

type memStaged struct {
	mu     sync.Mutex
	trips  map[string]*models.StagedTrip
	issued []*models.Trip
}

func newMemStaged() *memStaged {
	return &memStaged{trips: map[string]*models.StagedTrip{}}
}

func (s *memStaged) Create(_ context.Context, trip *models.StagedTrip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *trip
	s.trips[trip.TempTripID] = &cp
	return nil
}

func (s *memStaged) GetByID(_ context.Context, id string) (*models.StagedTrip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *memStaged) UpdateSelection(_ context.Context, trip *models.StagedTrip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.trips[trip.TempTripID].IsConsumed() {
		return domain.ErrStagedTripConsumed
	}
	cp := *trip
	s.trips[trip.TempTripID] = &cp
	return nil
}

func (s *memStaged) Promote(_ context.Context, staged *models.StagedTrip, trip *models.Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.trips[staged.TempTripID].IsConsumed() {
		return domain.ErrStagedTripConsumed
	}
	now := time.Now()
	staged.TripID = &trip.ID
	staged.ConsumedAt = &now
	cp := *staged
	s.trips[staged.TempTripID] = &cp
	s.issued = append(s.issued, trip)
	return nil
}

func (s *memStaged) DeleteStale(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func (s *memStaged) tripCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.issued)
}

// chanMailer hands every message to the test
type chanMailer struct {
	sent chan sentMail
}

type sentMail struct {
	to, subject, body string
}

func newChanMailer() *chanMailer {
	return &chanMailer{sent: make(chan sentMail, 16)}
}

func (m *chanMailer) Send(_ context.Context, to, subject, body string) error {
	m.sent <- sentMail{to: to, subject: subject, body: body}
	return nil
}
