package service

import (
	"math"
	"time"

	"github.com/Eursukkul/rental-marketplace/internal/models"
)

// transitionRule names who besides an admin may move a booking along an edge.
type transitionRule struct {
	guest bool
	owner bool
}

var bookingTransitions = map[models.BookingStatus]map[models.BookingStatus]transitionRule{
	models.StatusPending: {
		models.StatusConfirmed: {owner: true},
		models.StatusCancelled: {guest: true, owner: true},
	},
	models.StatusConfirmed: {
		models.StatusCancelled: {guest: true, owner: true},
		models.StatusCompleted: {owner: true},
	},
}

type bookingParty struct {
	guest bool
	owner bool
	admin bool
}

func partyOf(actor models.Actor, b *models.Booking) bookingParty {
	party := bookingParty{
		guest: b.GuestID == actor.UserID,
		admin: actor.IsAdmin(),
	}
	if b.Property != nil {
		party.owner = b.Property.OwnerID == actor.UserID
	}
	return party
}

func (p bookingParty) any() bool {
	return p.guest || p.owner || p.admin
}

func (r transitionRule) allows(p bookingParty) bool {
	return p.admin || (r.guest && p.guest) || (r.owner && p.owner)
}

// bookingPrice charges per night for short stays and per started 30-day
// month for long stays, rounded to cents.
func bookingPrice(listing models.ListingType, price float64, nights int) float64 {
	var total float64
	switch listing {
	case models.ListingLongTerm:
		months := math.Ceil(float64(nights) / 30)
		total = months * price
	default:
		total = float64(nights) * price
	}
	return math.Round(total*100) / 100
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
