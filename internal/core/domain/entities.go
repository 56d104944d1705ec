package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Location is a named point stored as JSON on staged trips.
type Location struct {
	Name      string   `json:"name"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// HasCoordinates reports whether both coordinates are present and finite.
func (l *Location) HasCoordinates() bool {
	if l == nil || l.Latitude == nil || l.Longitude == nil {
		return false
	}
	return isFinite(*l.Latitude) && isFinite(*l.Longitude)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Value implements driver.Valuer
func (l Location) Value() (driver.Value, error) {
	return marshalJSON(l)
}

// Scan implements sql.Scanner
func (l *Location) Scan(src interface{}) error {
	return scanJSON(src, l)
}

// Locations is an ordered list of stops.
type Locations []Location

// Value implements driver.Valuer
func (ls Locations) Value() (driver.Value, error) {
	if ls == nil {
		return nil, nil
	}
	return marshalJSON(ls)
}

// Scan implements sql.Scanner
func (ls *Locations) Scan(src interface{}) error {
	return scanJSON(src, ls)
}

// MaterialWeight is a requested load with its unit.
type MaterialWeight struct {
	Value float64    `json:"value"`
	Unit  WeightUnit `json:"unit"`
}

// Tons returns the weight converted to tons.
func (w MaterialWeight) Tons() float64 {
	return ConvertToTons(w.Value, w.Unit)
}

// Value implements driver.Valuer
func (w MaterialWeight) Value() (driver.Value, error) {
	return marshalJSON(w)
}

// Scan implements sql.Scanner
func (w *MaterialWeight) Scan(src interface{}) error {
	return scanJSON(src, w)
}

// Contact is a name + phone block (customer, loader, unloader).
type Contact struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}

// Value implements driver.Valuer
func (c Contact) Value() (driver.Value, error) {
	return marshalJSON(c)
}

// Scan implements sql.Scanner
func (c *Contact) Scan(src interface{}) error {
	return scanJSON(src, c)
}

// marshalJSON returns a string so both pgx and the mysql driver bind it as text.
func marshalJSON(v interface{}) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func scanJSON(src interface{}, dst interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported json column type %T", src)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return errors.Join(ErrInvalidInput, err)
	}
	return nil
}
