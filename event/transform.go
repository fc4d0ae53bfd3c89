package event

import "math"

// Discounts holds the percentage discount for each weekday, Sunday first.
var Discounts = [7]float64{0, 5, 10, 15, 20, 25, 30}

// Transform returns a copy of e with Total set to Price less the weekday
// discount, rounded half-up to two decimals. A Wday outside the table gets
// no discount.
//
// Transform reads only Price and Wday, so applying it to an already
// transformed event yields the same event.
func Transform(e Event) Event {
	e.Total = roundHalfUp(e.Price*(1-Discount(e.Wday)/100), 2)
	return e
}

// Discount returns the percentage discount for a weekday.
func Discount(wday uint8) float64 {
	if int(wday) >= len(Discounts) {
		return 0
	}
	return Discounts[wday]
}

func roundHalfUp(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	scaled := v*scale + 0.5
	if math.IsInf(scaled, 0) || math.IsNaN(scaled) {
		return v
	}
	return math.Floor(scaled) / scale
}
