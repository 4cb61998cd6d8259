// Package schedule resolves delivery day codes to concrete calendar dates.
package schedule

import (
	"time"

	"github.com/ovofacil/orderbot/internal/domain"
)

// Deliveries happen in Brazil regardless of where the service runs.
var brazil = loadBrazil()

func loadBrazil() *time.Location {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		return time.FixedZone("BRT", -3*60*60)
	}
	return loc
}

// Today returns the current date in Brazil normalized to midnight.
func Today() time.Time {
	return Midnight(time.Now())
}

// Midnight normalizes an instant to midnight of the same day in Brazil.
func Midnight(t time.Time) time.Time {
	t = t.In(brazil)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, brazil)
}

// NextDeliveryDate maps a delivery day code to the next future occurrence of
// its weekday, counted from today. When today already falls on the target
// weekday the result is next week's date, never today.
func NextDeliveryDate(day domain.DeliveryDay, today time.Time) time.Time {
	today = Midnight(today)
	delta := int(day.Weekday()) - int(today.Weekday())
	if delta <= 0 {
		delta += 7
	}
	return today.AddDate(0, 0, delta)
}
