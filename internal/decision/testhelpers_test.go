package decision

import (
	"time"

	"github.com/shopspring/decimal"

	"railclaim/internal/journey"
	"railclaim/pkg/domain"
)

func money(s string) domain.Money {
	return domain.NewMoney(decimal.RequireFromString(s), domain.CurrencyEUR)
}

func intPtr(i int) *int { return &i }

// singleLeg builds a one-segment long-domestic journey arriving delay
// minutes late. A negative delay leaves the actual arrival unknown.
func singleLeg(country domain.CountryCode, operator, price string, delay int) journey.Journey {
	dep := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	arr := dep.Add(3 * time.Hour)
	seg := journey.Segment{
		Operator:           operator,
		Country:            country,
		FromStation:        "A",
		ToStation:          "B",
		ScheduledDeparture: &dep,
		ScheduledArrival:   &arr,
		BookingRef:         "PNR1",
	}
	if delay >= 0 {
		actual := arr.Add(time.Duration(delay) * time.Minute)
		seg.ActualArrival = &actual
	}
	return journey.Journey{
		Segments:       []journey.Segment{seg},
		TicketPrice:    money(price),
		IsLongDomestic: true,
	}
}
