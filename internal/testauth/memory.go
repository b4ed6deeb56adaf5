package testauth

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/eventboard/server/internal/domain/events"
	"github.com/eventboard/server/internal/domain/users"
)

// Store is an in-memory credential store and event table.
type Store struct {
	mu         sync.Mutex
	nextUserID int64
	nextID     int64
	users      map[int64]users.User
	events     map[int64]events.Event
	now        func() time.Time

	// Err, when set, is returned by every call.
	Err error
}

func NewStore() *Store {
	return &Store{
		users:  make(map[int64]users.User),
		events: make(map[int64]events.Event),
		now:    func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) },
	}
}

func (s *Store) Users() users.Repository { return userStore{s} }

func (s *Store) Events() events.Repository { return eventStore{s} }

// EventCount reports how many events are stored.
func (s *Store) EventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

type userStore struct{ s *Store }

func (u userStore) Create(_ context.Context, params users.CreateParams) (*users.User, error) {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, existing := range s.users {
		if existing.Email == params.Email {
			return nil, users.ErrEmailTaken
		}
	}
	s.nextUserID++
	user := users.User{ID: s.nextUserID, Email: params.Email, PasswordHash: params.PasswordHash, Role: params.Role, CreatedAt: s.now()}
	s.users[user.ID] = user
	return &user, nil
}

func (u userStore) GetByEmail(_ context.Context, email string) (*users.User, error) {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, user := range s.users {
		if user.Email == email {
			return &user, nil
		}
	}
	return nil, users.ErrNotFound
}

func (u userStore) GetByID(_ context.Context, id int64) (*users.User, error) {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	user, ok := s.users[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	return &user, nil
}

type eventStore struct{ s *Store }

func (e eventStore) List(_ context.Context) ([]events.Event, error) {
	s := e.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	items := make([]events.Event, 0, len(s.events))
	for _, item := range s.events {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		return a.ID < b.ID
	})
	return items, nil
}

func (e eventStore) GetByID(_ context.Context, id int64) (*events.Event, error) {
	s := e.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	item, ok := s.events[id]
	if !ok {
		return nil, events.ErrNotFound
	}
	return &item, nil
}

func (e eventStore) Create(_ context.Context, ownerID int64, fields events.Fields) (*events.Event, error) {
	s := e.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	s.nextID++
	now := s.now()
	item := apply(events.Event{ID: s.nextID, OrganizerID: ownerID, CreatedAt: now}, fields, now)
	s.events[item.ID] = item
	return &item, nil
}

func (e eventStore) Update(_ context.Context, ownerID, id int64, fields events.Fields) (*events.Event, error) {
	s := e.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.owned(ownerID, id); err != nil {
		return nil, err
	}
	item := apply(s.events[id], fields, s.now())
	s.events[id] = item
	return &item, nil
}

func (e eventStore) Delete(_ context.Context, ownerID, id int64) error {
	s := e.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.owned(ownerID, id); err != nil {
		return err
	}
	delete(s.events, id)
	return nil
}

func (s *Store) owned(ownerID, id int64) error {
	if s.Err != nil {
		return s.Err
	}
	item, ok := s.events[id]
	if !ok {
		return events.ErrNotFound
	}
	if item.OrganizerID != ownerID {
		return events.ErrForbidden
	}
	return nil
}

func apply(item events.Event, fields events.Fields, now time.Time) events.Event {
	item.Title = fields.Title
	item.Image = fields.Image
	item.Date = fields.Date
	item.Time = fields.Time
	item.Location = fields.Location
	item.UpdatedAt = now
	return item
}
