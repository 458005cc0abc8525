package events

import (
	"time"

	"github.com/artisanhub/artisanhub/internal/domain"
)

// DefaultEvents is the catalogue loaded at startup, scheduled relative to now
func DefaultEvents(now time.Time) []domain.Event {
	day := func(n int, hour int) time.Time {
		d := now.AddDate(0, 0, n)
		return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, now.Location())
	}
	return []domain.Event{
		{
			Title:       "Spring Artisan Fair",
			Description: "Meet local makers, browse handmade goods and join live demonstrations.",
			Category:    "fair",
			StartAt:     day(14, 10),
			EndAt:       day(14, 18),
			Location:    "Old Market Hall",
			Capacity:    500,
			Organizer:   "ArtisanHub",
			Image:       "/images/events/fair.jpg",
		},
		{
			Title:       "Wheel Throwing for Beginners",
			Description: "A hands-on pottery workshop. Clay and firing included.",
			Category:    "workshop",
			StartAt:     day(7, 14),
			EndAt:       day(7, 17),
			Location:    "Clay Studio, 12 Mill Lane",
			Capacity:    12,
			Organizer:   "Clay Studio",
			Image:       "/images/events/pottery.jpg",
			Price:       45,
		},
		{
			Title:       "Photographing Your Crafts",
			Description: "Learn lighting and composition tricks that make listings stand out.",
			Category:    "webinar",
			StartAt:     day(3, 18),
			EndAt:       day(3, 19),
			Online:      true,
			OnlineURL:   "https://meet.artisanhub.local/photo-101",
			Capacity:    200,
			Organizer:   "ArtisanHub",
		},
		{
			Title:       "Natural Dyeing Circle",
			Description: "Share recipes for plant based dyes and swap fibre samples.",
			Category:    "meetup",
			StartAt:     day(21, 11),
			EndAt:       day(21, 13),
			Location:    "Community Garden Pavilion",
			Capacity:    25,
			Organizer:   "Fibre Friends",
		},
		{
			Title:       "Pricing Handmade Work",
			Description: "How to cost materials and time, and what buyers expect to pay.",
			Category:    "webinar",
			StartAt:     day(10, 19),
			EndAt:       day(10, 20),
			Online:      true,
			OnlineURL:   "https://meet.artisanhub.local/pricing",
			Capacity:    300,
			Organizer:   "ArtisanHub",
		},
	}
}
