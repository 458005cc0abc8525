package domain

import "time"

// Event is a workshop, fair or online session. Events live in memory only.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`
	Online      bool      `json:"online"`
	Location    string    `json:"location,omitempty"`
	OnlineURL   string    `json:"online_url,omitempty"`
	Capacity    int       `json:"capacity"`
	Registered  int       `json:"registered"`
	Organizer   string    `json:"organizer"`
	Image       string    `json:"image"`
	Price       float64   `json:"price"`
	CreatedAt   time.Time `json:"created_at"`
}

// Unlimited reports whether the event takes any number of attendees
func (e *Event) Unlimited() bool {
	return e.Capacity == 0
}

// SpotsLeft returns remaining capacity, never negative. Unlimited events return -1.
func (e *Event) SpotsLeft() int {
	if e.Unlimited() {
		return -1
	}
	if e.Capacity <= e.Registered {
		return 0
	}
	return e.Capacity - e.Registered
}

// Ended reports whether the event is over at now
func (e *Event) Ended(now time.Time) bool {
	end := e.EndAt
	if end.IsZero() {
		end = e.StartAt
	}
	return now.After(end)
}
