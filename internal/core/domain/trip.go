package domain

// TripType is the ownership model of the truck used for a trip.
type TripType string

const (
	TripLeased TripType = "Leased"
	TripOwned  TripType = "Owned"
)

// ParseTripType accepts only Leased and Owned.
func ParseTripType(s string) (TripType, bool) {
	switch TripType(s) {
	case TripLeased, TripOwned:
		return TripType(s), true
	}
	return "", false
}

// DefaultCurrency is stamped on every trip.
const DefaultCurrency = "INR"
