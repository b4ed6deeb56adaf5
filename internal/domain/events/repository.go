package events

import (
	"context"
	"time"
)

type Event struct {
	ID          int64
	Title       string
	Image       *string
	ImageURL    *string
	Date        time.Time
	Time        TimeOfDay
	Location    string
	OrganizerID int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DateString renders the event date as YYYY-MM-DD.
func (e Event) DateString() string {
	return e.Date.Format(DateLayout)
}

// Fields are the five caller-mutable columns of an event.
type Fields struct {
	Title    string
	Image    *string
	Date     time.Time
	Time     TimeOfDay
	Location string
}

// Repository persists events. Update and Delete must only touch rows whose
// organizer matches ownerID; a missing row yields ErrNotFound and a row
// owned by someone else yields ErrForbidden.
type Repository interface {
	List(ctx context.Context) ([]Event, error)
	GetByID(ctx context.Context, id int64) (*Event, error)
	Create(ctx context.Context, ownerID int64, fields Fields) (*Event, error)
	Update(ctx context.Context, ownerID, id int64, fields Fields) (*Event, error)
	Delete(ctx context.Context, ownerID, id int64) error
}
