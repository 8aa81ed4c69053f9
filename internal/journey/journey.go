// Package journey holds the journey facts an evaluation is built from.
package journey

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"railclaim/pkg/domain"
	dErrors "railclaim/pkg/domain-errors"
)

// Segment is one leg of the journey in travel order.
type Segment struct {
	Operator           string
	Product            string
	Country            domain.CountryCode
	FromStation        string
	ToStation          string
	ScheduledDeparture *time.Time
	ScheduledArrival   *time.Time
	ActualArrival      *time.Time
	BookingRef         string
	DistanceKm         *float64
	Price              *domain.Money
}

// Journey is the set of facts about one trip. Segments are ordered by travel
// sequence; the final segment decides the end-to-end delay.
type Journey struct {
	Segments                []Segment
	TicketPrice             domain.Money
	IsLongDomestic          bool
	IsInternationalInsideEU bool
	IsInternationalBeyondEU bool
	DistanceKm              *float64
	Flags                   map[string]bool
}

// DelayMinutes returns the final segment's arrival delay rounded to minutes,
// clamped at zero. ok is false when either arrival time is missing.
func (j Journey) DelayMinutes() (minutes int, ok bool) {
	if len(j.Segments) == 0 {
		return 0, false
	}
	last := j.Segments[len(j.Segments)-1]
	if last.ScheduledArrival == nil || last.ActualArrival == nil {
		return 0, false
	}
	d := last.ActualArrival.Sub(*last.ScheduledArrival)
	if d <= 0 {
		return 0, true
	}
	return int(d.Round(time.Minute) / time.Minute), true
}

// Countries returns segment countries in travel order, skipping blanks.
func (j Journey) Countries() []domain.CountryCode {
	out := make([]domain.CountryCode, 0, len(j.Segments))
	for _, s := range j.Segments {
		if s.Country != "" {
			out = append(out, s.Country)
		}
	}
	return out
}

// HasCountry reports whether any segment runs in c.
func (j Journey) HasCountry(c domain.CountryCode) bool {
	for _, s := range j.Segments {
		if s.Country == c {
			return true
		}
	}
	return false
}

// DistinctOperators returns operator names in first-seen order.
func (j Journey) DistinctOperators() []string {
	return distinct(j.Segments, func(s Segment) string { return s.Operator })
}

// DistinctBookingRefs returns booking/order references in first-seen order.
func (j Journey) DistinctBookingRefs() []string {
	return distinct(j.Segments, func(s Segment) string { return s.BookingRef })
}

// TotalDistanceKm prefers the journey-level distance, then the sum of
// segment distances. ok is false when neither is present.
func (j Journey) TotalDistanceKm() (km float64, ok bool) {
	if j.DistanceKm != nil {
		return *j.DistanceKm, true
	}
	for _, s := range j.Segments {
		if s.DistanceKm != nil {
			km += *s.DistanceKm
			ok = true
		}
	}
	return km, ok
}

// Flag returns a free-form boolean flag, false when absent.
func (j Journey) Flag(name string) bool {
	return j.Flags[name]
}

// Validate rejects journey shapes the engine cannot evaluate. Missing
// optional facts are not errors.
func (j Journey) Validate() error {
	if len(j.Segments) == 0 {
		return dErrors.New(dErrors.CodeValidation, "journey must have at least one segment")
	}
	if err := validatePrice("ticket price", j.TicketPrice); err != nil {
		return err
	}
	if j.DistanceKm != nil && !finiteNonNegative(*j.DistanceKm) {
		return dErrors.New(dErrors.CodeValidation, "journey distance must be a finite non-negative number")
	}
	for i, s := range j.Segments {
		if s.DistanceKm != nil && !finiteNonNegative(*s.DistanceKm) {
			return dErrors.Newf(dErrors.CodeValidation, "segment %d distance must be a finite non-negative number", i)
		}
		if s.Price != nil {
			if err := validatePrice("segment price", *s.Price); err != nil {
				return err
			}
		}
		if s.ScheduledArrival != nil && s.ScheduledDeparture != nil && s.ScheduledArrival.Before(*s.ScheduledDeparture) {
			return dErrors.Newf(dErrors.CodeValidation, "segment %d arrives before it departs", i)
		}
	}
	return nil
}

func validatePrice(label string, m domain.Money) error {
	if m.Amount.IsNegative() {
		return dErrors.Newf(dErrors.CodeValidation, "%s must not be negative", label)
	}
	if m.Currency == "" {
		return dErrors.Newf(dErrors.CodeValidation, "%s currency is required", label)
	}
	return nil
}

func finiteNonNegative(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f >= 0
}

func distinct(segments []Segment, key func(Segment) string) []string {
	seen := make(map[string]bool, len(segments))
	out := make([]string, 0, len(segments))
	for _, s := range segments {
		k := key(s)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// LegPrice returns the price of the segment at index, zero when absent.
func (j Journey) LegPrice(index int) decimal.Decimal {
	if index < 0 || index >= len(j.Segments) || j.Segments[index].Price == nil {
		return decimal.Zero
	}
	return j.Segments[index].Price.Amount
}
