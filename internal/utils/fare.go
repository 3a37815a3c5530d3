package utils

// DefaultFarePerPassenger adalah tarif per penumpang per leg (rupee).
const DefaultFarePerPassenger int64 = 35

// ComputeFare returns the fare of one leg for the given passenger count.
// Rate <= 0 falls back to DefaultFarePerPassenger.
func ComputeFare(passengers int, rate int64) int64 {
	if passengers <= 0 {
		return 0
	}
	if rate <= 0 {
		rate = DefaultFarePerPassenger
	}
	return int64(passengers) * rate
}

// ComputeTotalFare returns the fare of a whole submission: one leg for single, two for round trip.
func ComputeTotalFare(passengers, legs int, rate int64) int64 {
	if legs <= 0 {
		legs = 1
	}
	return ComputeFare(passengers, rate) * int64(legs)
}
