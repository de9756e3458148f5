package airline

import "encoding/json"

// Cabin classes, in upgrade order.
const (
	CabinBasicEconomy = "basic_economy"
	CabinEconomy      = "economy"
	CabinBusiness     = "business"
)

// cabinRank orders cabins for upgrade checks. Unknown cabins rank lowest.
func cabinRank(cabin string) int {
	switch cabin {
	case CabinBasicEconomy:
		return 1
	case CabinEconomy:
		return 2
	case CabinBusiness:
		return 3
	default:
		return 0
	}
}

// Reservation status values.
const (
	StatusActive    = "active"
	StatusCancelled = "cancelled"
)

// DB is the airline backend: records keyed by id. One DB instance is owned
// by exactly one trial and mutated only through its tool handlers.
type DB struct {
	Users        map[string]*User        `json:"users"`
	Flights      map[string]*Flight      `json:"flights"`
	Reservations map[string]*Reservation `json:"reservations"`
}

// Snapshot serializes the database. encoding/json sorts map keys, so the
// output is deterministic for identical state.
func (db *DB) Snapshot() (json.RawMessage, error) {
	return json.Marshal(db)
}

// User is a customer account.
type User struct {
	Name               Name                      `json:"name"`
	Email              string                    `json:"email"`
	DOB                string                    `json:"dob"`
	Membership         string                    `json:"membership"`
	PaymentMethods     map[string]*PaymentMethod `json:"payment_methods"`
	CertificateBalance float64                   `json:"certificate_balance"`
}

// Name is a person's name.
type Name struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// PaymentMethod is one way a user can pay. Balance applies to stored-value
// sources (gift cards); zero means unlimited (credit cards).
type PaymentMethod struct {
	Source  string  `json:"source"`
	Balance float64 `json:"balance,omitempty"`
}

// Flight is a scheduled route with per-date instances.
type Flight struct {
	FlightNumber              string                 `json:"flight_number"`
	Origin                    string                 `json:"origin"`
	Destination               string                 `json:"destination"`
	ScheduledDepartureTimeEst string                 `json:"scheduled_departure_time_est"`
	ScheduledArrivalTimeEst   string                 `json:"scheduled_arrival_time_est"`
	Dates                     map[string]*FlightDate `json:"dates"`
}

// FlightDate is one calendar instance of a flight.
type FlightDate struct {
	Status         string             `json:"status"`
	AvailableSeats map[string]int     `json:"available_seats"`
	Prices         map[string]float64 `json:"prices"`
}

// Reservation is a booked itinerary.
type Reservation struct {
	UserID         string              `json:"user_id"`
	Origin         string              `json:"origin"`
	Destination    string              `json:"destination"`
	FlightType     string              `json:"flight_type"`
	Cabin          string              `json:"cabin"`
	Flights        []ReservationFlight `json:"flights"`
	Passengers     []Passenger         `json:"passengers"`
	PaymentHistory []Payment           `json:"payment_history"`
	CreatedAt      string              `json:"created_at"`
	Insurance      string              `json:"insurance"`
	Status         string              `json:"status"`
}

// ReservationFlight is one leg of a reservation.
type ReservationFlight struct {
	FlightNumber string  `json:"flight_number"`
	Date         string  `json:"date"`
	Price        float64 `json:"price"`
}

// Passenger is one traveler on a reservation.
type Passenger struct {
	FirstName string `json:"first_name" mapstructure:"first_name"`
	LastName  string `json:"last_name"  mapstructure:"last_name"`
	DOB       string `json:"dob"        mapstructure:"dob"`
}

// Payment is one charge (positive) or refund (negative) on a reservation.
type Payment struct {
	PaymentID string  `json:"payment_id"`
	Amount    float64 `json:"amount"`
}
