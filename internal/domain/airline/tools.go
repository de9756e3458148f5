package airline

import (
	"context"
	"fmt"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/mitchellh/mapstructure"

	"github.com/spachava753/convobench/internal/domain"
)

// toolset builds the airline tool table. currentTime is the domain's
// simulated "now" (used by cancellation policy); toolDefaults supplies
// fallback argument values from the domain manifest.
func toolset(currentTime time.Time, toolDefaults map[string]string) []domain.Tool {
	return []domain.Tool{
		{
			Name:        "get_user_details",
			Description: "Get a user's profile, payment methods, and certificate balance.",
			Parameters: openapi3.NewObjectSchema().
				WithProperty("user_id", openapi3.NewStringSchema()),
			Handler: getUserDetails,
		},
		{
			Name:        "get_reservation_details",
			Description: "Get a reservation, including flights, passengers, and payment history.",
			Parameters: openapi3.NewObjectSchema().
				WithProperty("reservation_id", openapi3.NewStringSchema()),
			Handler: getReservationDetails,
		},
		{
			Name:        "search_direct_flight",
			Description: "Search direct flights between two airports on a date.",
			Parameters: openapi3.NewObjectSchema().
				WithProperty("origin", openapi3.NewStringSchema()).
				WithProperty("destination", openapi3.NewStringSchema()).
				WithProperty("date", openapi3.NewStringSchema()),
			Handler: searchDirectFlight(toolDefaults["search_date"]),
		},
		{
			Name:        "book_reservation",
			Description: "Book a new reservation for a user.",
			Mutating:    true,
			Parameters: openapi3.NewObjectSchema().
				WithProperty("user_id", openapi3.NewStringSchema()).
				WithProperty("origin", openapi3.NewStringSchema()).
				WithProperty("destination", openapi3.NewStringSchema()).
				WithProperty("flight_type", openapi3.NewStringSchema().WithEnum("one_way", "round_trip")).
				WithProperty("cabin", cabinSchema()).
				WithProperty("flights", flightRefsSchema()).
				WithProperty("passengers", passengersSchema()).
				WithProperty("payment_id", openapi3.NewStringSchema()).
				WithProperty("insurance", openapi3.NewStringSchema().WithEnum("yes", "no")),
			Handler: bookReservation(currentTime),
		},
		{
			Name: "update_reservation_flights",
			Description: "Replace the flights of an existing reservation. " +
				"Basic economy reservations cannot change flights.",
			Mutating: true,
			Parameters: openapi3.NewObjectSchema().
				WithProperty("reservation_id", openapi3.NewStringSchema()).
				WithProperty("cabin", cabinSchema()).
				WithProperty("flights", flightRefsSchema()).
				WithProperty("payment_id", openapi3.NewStringSchema()),
			Handler: updateReservationFlights,
		},
		{
			Name: "upgrade_cabin",
			Description: "Upgrade every flight of a reservation to a higher cabin class, " +
				"charging the fare difference.",
			Mutating: true,
			Parameters: openapi3.NewObjectSchema().
				WithProperty("reservation_id", openapi3.NewStringSchema()).
				WithProperty("cabin", cabinSchema()).
				WithProperty("payment_id", openapi3.NewStringSchema()),
			Handler: upgradeCabin,
		},
		{
			Name: "cancel_reservation",
			Description: "Cancel a reservation and refund all payments. Only allowed for " +
				"business class, insured reservations, or bookings made within 24 hours.",
			Mutating: true,
			Parameters: openapi3.NewObjectSchema().
				WithProperty("reservation_id", openapi3.NewStringSchema()),
			Handler: cancelReservation(currentTime),
		},
		{
			Name:        "send_certificate",
			Description: "Issue a travel certificate to a user as compensation.",
			Mutating:    true,
			Parameters: openapi3.NewObjectSchema().
				WithProperty("user_id", openapi3.NewStringSchema()).
				WithProperty("amount", openapi3.NewFloat64Schema().WithMin(0)),
			Handler: sendCertificate,
		},
	}
}

func cabinSchema() *openapi3.Schema {
	return openapi3.NewStringSchema().WithEnum(CabinBasicEconomy, CabinEconomy, CabinBusiness)
}

func flightRefsSchema() *openapi3.Schema {
	return openapi3.NewArraySchema().WithItems(
		openapi3.NewObjectSchema().
			WithProperty("flight_number", openapi3.NewStringSchema()).
			WithProperty("date", openapi3.NewStringSchema()))
}

func passengersSchema() *openapi3.Schema {
	return openapi3.NewArraySchema().WithItems(
		openapi3.NewObjectSchema().
			WithProperty("first_name", openapi3.NewStringSchema()).
			WithProperty("last_name", openapi3.NewStringSchema()).
			WithProperty("dob", openapi3.NewStringSchema()))
}

// flightRef identifies one flight instance in tool arguments.
type flightRef struct {
	FlightNumber string `mapstructure:"flight_number"`
	Date         string `mapstructure:"date"`
}

// decode maps validated arguments onto a typed parameter struct.
func decode(args map[string]any, out any) error {
	if err := mapstructure.Decode(args, out); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidArguments, err)
	}
	return nil
}

// airlineDB asserts the state type. Tools only ever run against the DB their
// provider constructed, so a mismatch is a programming error.
func airlineDB(st domain.State) (*DB, error) {
	db, ok := st.(*DB)
	if !ok {
		return nil, fmt.Errorf("airline tools require *airline.DB state, got %T", st)
	}
	return db, nil
}

func getUserDetails(_ context.Context, st domain.State, args map[string]any) (any, error) {
	db, err := airlineDB(st)
	if err != nil {
		return nil, err
	}
	var p struct {
		UserID string `mapstructure:"user_id"`
	}
	if err := decode(args, &p); err != nil {
		return nil, err
	}
	user, ok := db.Users[p.UserID]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, p.UserID)
	}
	return user, nil
}

func getReservationDetails(_ context.Context, st domain.State, args map[string]any) (any, error) {
	db, err := airlineDB(st)
	if err != nil {
		return nil, err
	}
	var p struct {
		ReservationID string `mapstructure:"reservation_id"`
	}
	if err := decode(args, &p); err != nil {
		return nil, err
	}
	res, ok := db.Reservations[p.ReservationID]
	if !ok {
		return nil, fmt.Errorf("%w: reservation %s", domain.ErrNotFound, p.ReservationID)
	}
	return res, nil
}

// flightSearchResult is one row returned by search_direct_flight.
type flightSearchResult struct {
	FlightNumber   string             `json:"flight_number"`
	Origin         string             `json:"origin"`
	Destination    string             `json:"destination"`
	Date           string             `json:"date"`
	Status         string             `json:"status"`
	AvailableSeats map[string]int     `json:"available_seats"`
	Prices         map[string]float64 `json:"prices"`
}

func searchDirectFlight(defaultDate string) func(context.Context, domain.State, map[string]any) (any, error) {
	return func(_ context.Context, st domain.State, args map[string]any) (any, error) {
		db, err := airlineDB(st)
		if err != nil {
			return nil, err
		}
		var p struct {
			Origin      string `mapstructure:"origin"`
			Destination string `mapstructure:"destination"`
			Date        string `mapstructure:"date"`
		}
		if err := decode(args, &p); err != nil {
			return nil, err
		}
		if p.Date == "" {
			p.Date = defaultDate
		}

		results := []flightSearchResult{}
		for _, flight := range db.Flights {
			if flight.Origin != p.Origin || flight.Destination != p.Destination {
				continue
			}
			fd, ok := flight.Dates[p.Date]
			if !ok {
				continue
			}
			results = append(results, flightSearchResult{
				FlightNumber:   flight.FlightNumber,
				Origin:         flight.Origin,
				Destination:    flight.Destination,
				Date:           p.Date,
				Status:         fd.Status,
				AvailableSeats: fd.AvailableSeats,
				Prices:         fd.Prices,
			})
		}
		return results, nil
	}
}

func bookReservation(currentTime time.Time) func(context.Context, domain.State, map[string]any) (any, error) {
	return func(_ context.Context, st domain.State, args map[string]any) (any, error) {
		db, err := airlineDB(st)
		if err != nil {
			return nil, err
		}
		var p struct {
			UserID      string      `mapstructure:"user_id"`
			Origin      string      `mapstructure:"origin"`
			Destination string      `mapstructure:"destination"`
			FlightType  string      `mapstructure:"flight_type"`
			Cabin       string      `mapstructure:"cabin"`
			Flights     []flightRef `mapstructure:"flights"`
			Passengers  []Passenger `mapstructure:"passengers"`
			PaymentID   string      `mapstructure:"payment_id"`
			Insurance   string      `mapstructure:"insurance"`
		}
		if err := decode(args, &p); err != nil {
			return nil, err
		}

		user, ok := db.Users[p.UserID]
		if !ok {
			return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, p.UserID)
		}
		if _, ok := user.PaymentMethods[p.PaymentID]; !ok {
			return nil, fmt.Errorf("%w: payment method %s", domain.ErrNotFound, p.PaymentID)
		}
		if len(p.Flights) == 0 {
			return nil, fmt.Errorf("%w: at least one flight is required", domain.ErrInvalidArguments)
		}
		if len(p.Passengers) == 0 {
			return nil, fmt.Errorf("%w: at least one passenger is required", domain.ErrInvalidArguments)
		}

		// Validate every leg before touching state.
		seats := len(p.Passengers)
		var legs []ReservationFlight
		var total float64
		for _, ref := range p.Flights {
			fd, err := lookupFlightDate(db, ref)
			if err != nil {
				return nil, err
			}
			if fd.AvailableSeats[p.Cabin] < seats {
				return nil, fmt.Errorf("%w: flight %s on %s has no %s seats left",
					domain.ErrPrecondition, ref.FlightNumber, ref.Date, p.Cabin)
			}
			price := fd.Prices[p.Cabin]
			legs = append(legs, ReservationFlight{
				FlightNumber: ref.FlightNumber,
				Date:         ref.Date,
				Price:        price,
			})
			total += price * float64(seats)
		}

		if err := checkBalance(user, p.PaymentID, total); err != nil {
			return nil, err
		}

		// Apply.
		id := fmt.Sprintf("R%05d", len(db.Reservations)+1)
		for _, ref := range p.Flights {
			db.Flights[ref.FlightNumber].Dates[ref.Date].AvailableSeats[p.Cabin] -= seats
		}
		chargeBalance(user, p.PaymentID, total)
		res := &Reservation{
			UserID:         p.UserID,
			Origin:         p.Origin,
			Destination:    p.Destination,
			FlightType:     p.FlightType,
			Cabin:          p.Cabin,
			Flights:        legs,
			Passengers:     p.Passengers,
			PaymentHistory: []Payment{{PaymentID: p.PaymentID, Amount: total}},
			CreatedAt:      currentTime.Format("2006-01-02T15:04:05"),
			Insurance:      p.Insurance,
			Status:         StatusActive,
		}
		db.Reservations[id] = res

		return map[string]any{"reservation_id": id, "reservation": res}, nil
	}
}

func updateReservationFlights(_ context.Context, st domain.State, args map[string]any) (any, error) {
	db, err := airlineDB(st)
	if err != nil {
		return nil, err
	}
	var p struct {
		ReservationID string      `mapstructure:"reservation_id"`
		Cabin         string      `mapstructure:"cabin"`
		Flights       []flightRef `mapstructure:"flights"`
		PaymentID     string      `mapstructure:"payment_id"`
	}
	if err := decode(args, &p); err != nil {
		return nil, err
	}

	res, ok := db.Reservations[p.ReservationID]
	if !ok {
		return nil, fmt.Errorf("%w: reservation %s", domain.ErrNotFound, p.ReservationID)
	}
	if res.Status != StatusActive {
		return nil, fmt.Errorf("%w: reservation %s is %s", domain.ErrPrecondition, p.ReservationID, res.Status)
	}
	if res.Cabin == CabinBasicEconomy {
		return nil, fmt.Errorf("%w: basic economy reservations cannot change flights",
			domain.ErrPrecondition)
	}
	if p.Cabin != res.Cabin {
		return nil, fmt.Errorf("%w: cabin changes go through upgrade_cabin, reservation is %s",
			domain.ErrPrecondition, res.Cabin)
	}
	if len(p.Flights) == 0 {
		return nil, fmt.Errorf("%w: at least one flight is required", domain.ErrInvalidArguments)
	}

	user := db.Users[res.UserID]
	if _, ok := user.PaymentMethods[p.PaymentID]; !ok {
		return nil, fmt.Errorf("%w: payment method %s", domain.ErrNotFound, p.PaymentID)
	}

	// Validate the new legs before touching state. Legs kept from the
	// current itinerary keep their original price.
	seats := len(res.Passengers)
	current := make(map[flightRef]float64, len(res.Flights))
	for _, leg := range res.Flights {
		current[flightRef{FlightNumber: leg.FlightNumber, Date: leg.Date}] = leg.Price
	}

	var legs []ReservationFlight
	var newTotal float64
	for _, ref := range p.Flights {
		if price, kept := current[ref]; kept {
			legs = append(legs, ReservationFlight{FlightNumber: ref.FlightNumber, Date: ref.Date, Price: price})
			newTotal += price * float64(seats)
			continue
		}
		fd, err := lookupFlightDate(db, ref)
		if err != nil {
			return nil, err
		}
		if fd.AvailableSeats[res.Cabin] < seats {
			return nil, fmt.Errorf("%w: flight %s on %s has no %s seats left",
				domain.ErrPrecondition, ref.FlightNumber, ref.Date, res.Cabin)
		}
		price := fd.Prices[res.Cabin]
		legs = append(legs, ReservationFlight{FlightNumber: ref.FlightNumber, Date: ref.Date, Price: price})
		newTotal += price * float64(seats)
	}

	var oldTotal float64
	for _, leg := range res.Flights {
		oldTotal += leg.Price * float64(seats)
	}
	diff := newTotal - oldTotal
	if diff > 0 {
		if err := checkBalance(user, p.PaymentID, diff); err != nil {
			return nil, err
		}
	}

	// Apply: release dropped legs, take seats on added legs.
	requested := make(map[flightRef]bool, len(p.Flights))
	for _, ref := range p.Flights {
		requested[ref] = true
	}
	for _, leg := range res.Flights {
		ref := flightRef{FlightNumber: leg.FlightNumber, Date: leg.Date}
		if !requested[ref] {
			db.Flights[leg.FlightNumber].Dates[leg.Date].AvailableSeats[res.Cabin] += seats
		}
	}
	for _, ref := range p.Flights {
		if _, kept := current[ref]; !kept {
			db.Flights[ref.FlightNumber].Dates[ref.Date].AvailableSeats[res.Cabin] -= seats
		}
	}
	res.Flights = legs
	if diff != 0 {
		chargeBalance(user, p.PaymentID, diff)
		res.PaymentHistory = append(res.PaymentHistory, Payment{PaymentID: p.PaymentID, Amount: diff})
	}

	return res, nil
}

func upgradeCabin(_ context.Context, st domain.State, args map[string]any) (any, error) {
	db, err := airlineDB(st)
	if err != nil {
		return nil, err
	}
	var p struct {
		ReservationID string `mapstructure:"reservation_id"`
		Cabin         string `mapstructure:"cabin"`
		PaymentID     string `mapstructure:"payment_id"`
	}
	if err := decode(args, &p); err != nil {
		return nil, err
	}

	res, ok := db.Reservations[p.ReservationID]
	if !ok {
		return nil, fmt.Errorf("%w: reservation %s", domain.ErrNotFound, p.ReservationID)
	}
	if res.Status != StatusActive {
		return nil, fmt.Errorf("%w: reservation %s is %s", domain.ErrPrecondition, p.ReservationID, res.Status)
	}
	if cabinRank(p.Cabin) <= cabinRank(res.Cabin) {
		return nil, fmt.Errorf("%w: %s is not an upgrade from %s", domain.ErrPrecondition, p.Cabin, res.Cabin)
	}

	user := db.Users[res.UserID]
	if _, ok := user.PaymentMethods[p.PaymentID]; !ok {
		return nil, fmt.Errorf("%w: payment method %s", domain.ErrNotFound, p.PaymentID)
	}

	// Price every leg in the new cabin before touching state.
	seats := len(res.Passengers)
	type legUpgrade struct {
		fd       *FlightDate
		newPrice float64
	}
	var upgrades []legUpgrade
	var diff float64
	for _, leg := range res.Flights {
		fd, err := lookupFlightDate(db, flightRef{FlightNumber: leg.FlightNumber, Date: leg.Date})
		if err != nil {
			return nil, err
		}
		if fd.AvailableSeats[p.Cabin] < seats {
			return nil, fmt.Errorf("%w: flight %s on %s has no %s seats left",
				domain.ErrPrecondition, leg.FlightNumber, leg.Date, p.Cabin)
		}
		newPrice := fd.Prices[p.Cabin]
		upgrades = append(upgrades, legUpgrade{fd: fd, newPrice: newPrice})
		diff += (newPrice - leg.Price) * float64(seats)
	}
	if diff > 0 {
		if err := checkBalance(user, p.PaymentID, diff); err != nil {
			return nil, err
		}
	}

	// Apply.
	oldCabin := res.Cabin
	for i := range res.Flights {
		up := upgrades[i]
		up.fd.AvailableSeats[oldCabin] += seats
		up.fd.AvailableSeats[p.Cabin] -= seats
		res.Flights[i].Price = up.newPrice
	}
	res.Cabin = p.Cabin
	if diff != 0 {
		chargeBalance(user, p.PaymentID, diff)
		res.PaymentHistory = append(res.PaymentHistory, Payment{PaymentID: p.PaymentID, Amount: diff})
	}

	return res, nil
}

func cancelReservation(currentTime time.Time) func(context.Context, domain.State, map[string]any) (any, error) {
	return func(_ context.Context, st domain.State, args map[string]any) (any, error) {
		db, err := airlineDB(st)
		if err != nil {
			return nil, err
		}
		var p struct {
			ReservationID string `mapstructure:"reservation_id"`
		}
		if err := decode(args, &p); err != nil {
			return nil, err
		}

		res, ok := db.Reservations[p.ReservationID]
		if !ok {
			return nil, fmt.Errorf("%w: reservation %s", domain.ErrNotFound, p.ReservationID)
		}
		if res.Status != StatusActive {
			return nil, fmt.Errorf("%w: reservation %s is already %s",
				domain.ErrPrecondition, p.ReservationID, res.Status)
		}
		if !cancellable(res, currentTime) {
			return nil, fmt.Errorf("%w: reservation %s is %s without insurance and past the 24-hour window",
				domain.ErrPrecondition, p.ReservationID, res.Cabin)
		}

		// Apply: release seats, refund every payment, mark cancelled.
		seats := len(res.Passengers)
		for _, leg := range res.Flights {
			if flight, ok := db.Flights[leg.FlightNumber]; ok {
				if fd, ok := flight.Dates[leg.Date]; ok {
					fd.AvailableSeats[res.Cabin] += seats
				}
			}
		}
		user := db.Users[res.UserID]
		var refunds []Payment
		for _, payment := range res.PaymentHistory {
			refunds = append(refunds, Payment{PaymentID: payment.PaymentID, Amount: -payment.Amount})
			refundBalance(user, payment.PaymentID, payment.Amount)
		}
		res.PaymentHistory = append(res.PaymentHistory, refunds...)
		res.Status = StatusCancelled

		return res, nil
	}
}

// cancellable implements the cancellation policy: business class, insured
// reservations, and bookings made within the last 24 hours.
func cancellable(res *Reservation, currentTime time.Time) bool {
	if res.Cabin == CabinBusiness || res.Insurance == "yes" {
		return true
	}
	created, err := time.Parse("2006-01-02T15:04:05", res.CreatedAt)
	if err != nil {
		return false
	}
	return currentTime.Sub(created) <= 24*time.Hour
}

func sendCertificate(_ context.Context, st domain.State, args map[string]any) (any, error) {
	db, err := airlineDB(st)
	if err != nil {
		return nil, err
	}
	var p struct {
		UserID string  `mapstructure:"user_id"`
		Amount float64 `mapstructure:"amount"`
	}
	if err := decode(args, &p); err != nil {
		return nil, err
	}
	user, ok := db.Users[p.UserID]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, p.UserID)
	}
	if p.Amount <= 0 {
		return nil, fmt.Errorf("%w: certificate amount must be positive", domain.ErrInvalidArguments)
	}
	user.CertificateBalance += p.Amount
	return map[string]any{"user_id": p.UserID, "certificate_balance": user.CertificateBalance}, nil
}

func lookupFlightDate(db *DB, ref flightRef) (*FlightDate, error) {
	flight, ok := db.Flights[ref.FlightNumber]
	if !ok {
		return nil, fmt.Errorf("%w: flight %s", domain.ErrNotFound, ref.FlightNumber)
	}
	fd, ok := flight.Dates[ref.Date]
	if !ok {
		return nil, fmt.Errorf("%w: flight %s on %s", domain.ErrNotFound, ref.FlightNumber, ref.Date)
	}
	if fd.Status != "available" {
		return nil, fmt.Errorf("%w: flight %s on %s is %s",
			domain.ErrPrecondition, ref.FlightNumber, ref.Date, fd.Status)
	}
	return fd, nil
}

// checkBalance verifies a stored-value payment method covers the amount.
// Credit cards (zero balance field) are never rejected.
func checkBalance(user *User, paymentID string, amount float64) error {
	pm := user.PaymentMethods[paymentID]
	if pm.Source == "gift_card" && pm.Balance < amount {
		return fmt.Errorf("%w: gift card %s has insufficient balance", domain.ErrPrecondition, paymentID)
	}
	return nil
}

func chargeBalance(user *User, paymentID string, amount float64) {
	pm := user.PaymentMethods[paymentID]
	if pm.Source == "gift_card" {
		pm.Balance -= amount
	}
}

func refundBalance(user *User, paymentID string, amount float64) {
	pm := user.PaymentMethods[paymentID]
	if pm.Source == "gift_card" {
		pm.Balance += amount
	}
}
