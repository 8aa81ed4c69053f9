package journey

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"railclaim/pkg/domain"
	dErrors "railclaim/pkg/domain-errors"
)

func at(hhmm string) *time.Time {
	t, err := time.Parse("2006-01-02 15:04", "2025-03-14 "+hhmm)
	if err != nil {
		panic(err)
	}
	return &t
}

func price(s string) domain.Money {
	return domain.NewMoney(decimal.RequireFromString(s), domain.CurrencyEUR)
}

func TestDelayMinutes(t *testing.T) {
	t.Run("uses final segment", func(t *testing.T) {
		j := Journey{Segments: []Segment{
			{ScheduledArrival: at("10:00"), ActualArrival: at("10:45")},
			{ScheduledArrival: at("12:00"), ActualArrival: at("14:05")},
		}}
		d, ok := j.DelayMinutes()
		assert.True(t, ok)
		assert.Equal(t, 125, d)
	})

	t.Run("early arrival clamps to zero", func(t *testing.T) {
		j := Journey{Segments: []Segment{{ScheduledArrival: at("12:00"), ActualArrival: at("11:58")}}}
		d, ok := j.DelayMinutes()
		assert.True(t, ok)
		assert.Zero(t, d)
	})

	t.Run("missing actual arrival is unknown", func(t *testing.T) {
		j := Journey{Segments: []Segment{{ScheduledArrival: at("12:00")}}}
		_, ok := j.DelayMinutes()
		assert.False(t, ok)
	})
}

func TestDistinct(t *testing.T) {
	j := Journey{Segments: []Segment{
		{Operator: "DSB", BookingRef: "ABC123"},
		{Operator: "SJ", BookingRef: "ABC123"},
		{Operator: "DSB"},
	}}
	assert.Equal(t, []string{"DSB", "SJ"}, j.DistinctOperators())
	assert.Equal(t, []string{"ABC123"}, j.DistinctBookingRefs())
}

func TestTotalDistanceKm(t *testing.T) {
	a, b := 80.0, 65.5
	j := Journey{Segments: []Segment{{DistanceKm: &a}, {DistanceKm: &b}, {}}}
	km, ok := j.TotalDistanceKm()
	assert.True(t, ok)
	assert.InDelta(t, 145.5, km, 0.001)

	override := 200.0
	j.DistanceKm = &override
	km, _ = j.TotalDistanceKm()
	assert.InDelta(t, 200.0, km, 0.001)

	_, ok = Journey{Segments: []Segment{{}}}.TotalDistanceKm()
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	t.Run("requires a segment", func(t *testing.T) {
		err := Journey{TicketPrice: price("10")}.Validate()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects negative price", func(t *testing.T) {
		err := Journey{Segments: []Segment{{}}, TicketPrice: price("-1")}.Validate()
		require.Error(t, err)
	})

	t.Run("rejects segment arriving before departure", func(t *testing.T) {
		err := Journey{
			Segments:    []Segment{{ScheduledDeparture: at("12:00"), ScheduledArrival: at("11:00")}},
			TicketPrice: price("10"),
		}.Validate()
		require.Error(t, err)
	})

	t.Run("accepts sparse facts", func(t *testing.T) {
		err := Journey{Segments: []Segment{{Country: "DK"}}, TicketPrice: price("0")}.Validate()
		require.NoError(t, err)
	})
}
