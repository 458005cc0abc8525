package events

import (
	"strings"
	"sync"
	"time"

	"github.com/google/btree"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/artisanhub/artisanhub/internal/domain"
)

var (
	ErrEventNotFound     = errors.New("event not found")
	ErrEventFull         = errors.New("event is full")
	ErrEventEnded        = errors.New("event has already ended")
	ErrAlreadyRegistered = errors.New("already registered for this event")
	ErrNotRegistered     = errors.New("not registered for this event")
	ErrInvalidEvent      = errors.New("invalid event")
)

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Category string
	Upcoming bool
	From     time.Time
	To       time.Time
	Online   *bool
	Query    string
	Limit    int
}

// Store keeps the event catalogue in memory, ordered by start time
type Store struct {
	mu        sync.RWMutex
	byID      map[string]*domain.Event
	order     *btree.BTreeG[*domain.Event]
	attendees map[string]map[int64]time.Time
	now       func() time.Time
}

func eventLess(a, b *domain.Event) bool {
	if a.StartAt.Equal(b.StartAt) {
		return a.ID < b.ID
	}
	return a.StartAt.Before(b.StartAt)
}

func NewStore() *Store {
	return &Store{
		byID:      make(map[string]*domain.Event),
		order:     btree.NewG[*domain.Event](8, eventLess),
		attendees: make(map[string]map[int64]time.Time),
		now:       time.Now,
	}
}

func validate(e *domain.Event) error {
	if strings.TrimSpace(e.Title) == "" {
		return errors.Wrap(ErrInvalidEvent, "title is required")
	}
	if e.StartAt.IsZero() {
		return errors.Wrap(ErrInvalidEvent, "start time is required")
	}
	if !e.EndAt.IsZero() && e.EndAt.Before(e.StartAt) {
		return errors.Wrap(ErrInvalidEvent, "end time is before start time")
	}
	if e.Capacity < 0 {
		return errors.Wrap(ErrInvalidEvent, "capacity must be >= 0")
	}
	hasURL := strings.TrimSpace(e.OnlineURL) != ""
	hasLocation := strings.TrimSpace(e.Location) != ""
	switch {
	case e.Online && !hasURL:
		return errors.Wrap(ErrInvalidEvent, "online events need an online url")
	case e.Online && hasLocation:
		return errors.Wrap(ErrInvalidEvent, "online events take no location")
	case !e.Online && !hasLocation:
		return errors.Wrap(ErrInvalidEvent, "in-person events need a location")
	case !e.Online && hasURL:
		return errors.Wrap(ErrInvalidEvent, "in-person events take no online url")
	}
	return nil
}

// Add validates and stores a new event, assigning an id when empty
func (s *Store) Add(e domain.Event) (domain.Event, error) {
	if err := validate(&e); err != nil {
		return domain.Event{}, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	e.Registered = 0

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.byID[e.ID]; ok {
		s.order.Delete(old)
	}
	stored := e
	s.byID[e.ID] = &stored
	s.order.ReplaceOrInsert(&stored)
	s.attendees[e.ID] = make(map[int64]time.Time)
	return stored, nil
}

func (s *Store) Get(id string) (domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	if !ok {
		return domain.Event{}, ErrEventNotFound
	}
	return *e, nil
}

func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[id]
	if !ok {
		return ErrEventNotFound
	}
	s.order.Delete(e)
	delete(s.byID, id)
	delete(s.attendees, id)
	return nil
}

func (f *Filter) match(e *domain.Event, now time.Time) bool {
	if f.Category != "" && !strings.EqualFold(f.Category, e.Category) {
		return false
	}
	if f.Upcoming && e.Ended(now) {
		return false
	}
	if f.Online != nil && *f.Online != e.Online {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(e.Title), q) && !strings.Contains(strings.ToLower(e.Description), q) {
			return false
		}
	}
	return true
}

// List returns matching events ordered by start time
func (s *Store) List(f Filter) []domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	result := make([]domain.Event, 0)
	visit := func(e *domain.Event) bool {
		if !f.To.IsZero() && e.StartAt.After(f.To) {
			return false
		}
		if f.match(e, now) {
			result = append(result, *e)
		}
		return f.Limit <= 0 || len(result) < f.Limit
	}
	if f.From.IsZero() {
		s.order.Ascend(visit)
	} else {
		s.order.AscendGreaterOrEqual(&domain.Event{StartAt: f.From}, visit)
	}
	return result
}

// Register books a seat for userID
func (s *Store) Register(id string, userID int64) (domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[id]
	if !ok {
		return domain.Event{}, ErrEventNotFound
	}
	if e.Ended(s.now()) {
		return *e, ErrEventEnded
	}
	seats := s.attendees[id]
	if _, dup := seats[userID]; dup {
		return *e, ErrAlreadyRegistered
	}
	if e.Capacity > 0 && e.Registered >= e.Capacity {
		return *e, ErrEventFull
	}
	seats[userID] = s.now()
	e.Registered++
	return *e, nil
}

// Unregister releases userID's seat
func (s *Store) Unregister(id string, userID int64) (domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[id]
	if !ok {
		return domain.Event{}, ErrEventNotFound
	}
	seats := s.attendees[id]
	if _, found := seats[userID]; !found {
		return *e, ErrNotRegistered
	}
	delete(seats, userID)
	e.Registered--
	return *e, nil
}

// IsRegistered reports whether userID holds a seat
func (s *Store) IsRegistered(id string, userID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.attendees[id][userID]
	return ok
}

// PruneEnded drops events that finished before cutoff and returns how many went
func (s *Store) PruneEnded(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stale []*domain.Event
	s.order.Ascend(func(e *domain.Event) bool {
		if e.StartAt.After(cutoff) {
			return false
		}
		if e.Ended(cutoff) {
			stale = append(stale, e)
		}
		return true
	})
	for _, e := range stale {
		s.order.Delete(e)
		delete(s.byID, e.ID)
		delete(s.attendees, e.ID)
	}
	return len(stale)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.order.Len()
}
