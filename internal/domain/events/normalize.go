package events

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/eventboard/server/internal/sanitize"
	"github.com/eventboard/server/internal/validation"
)

const DateLayout = "2006-01-02"

// Input is the request body accepted for create and update.
type Input struct {
	Title    string  `json:"title" validate:"required,max=200"`
	Image    *string `json:"image"`
	Date     string  `json:"date" validate:"required"`
	Time     string  `json:"time" validate:"required"`
	Location string  `json:"location" validate:"required,max=300"`

	// LegacyTime is the "date_time" key older clients send on update.
	LegacyTime string `json:"date_time,omitempty" validate:"-"`
}

// UsesLegacyTime reports whether the time value will be taken from date_time.
func (in Input) UsesLegacyTime() bool {
	return strings.TrimSpace(in.Time) == "" && strings.TrimSpace(in.LegacyTime) != ""
}

// Normalize sanitizes, validates and parses the input.
func (in Input) Normalize() (Fields, error) {
	if in.UsesLegacyTime() {
		in.Time = in.LegacyTime
	}
	in.Title = strings.TrimSpace(sanitize.Text(in.Title))
	in.Location = strings.TrimSpace(sanitize.Text(in.Location))
	in.Date = strings.TrimSpace(in.Date)
	in.Time = strings.TrimSpace(in.Time)

	if err := validation.Struct(in); err != nil {
		return Fields{}, err
	}

	date, err := time.Parse(DateLayout, in.Date)
	if err != nil {
		return Fields{}, validation.FieldError{Field: "date", Message: "must be formatted YYYY-MM-DD"}
	}
	tod, err := ParseTimeOfDay(in.Time)
	if err != nil {
		return Fields{}, validation.FieldError{Field: "time", Message: "must be formatted HH:MM or HH:MM:SS"}
	}
	image, err := normalizeImage(in.Image)
	if err != nil {
		return Fields{}, err
	}

	return Fields{
		Title:    in.Title,
		Image:    image,
		Date:     date,
		Time:     tod,
		Location: in.Location,
	}, nil
}

func normalizeImage(image *string) (*string, error) {
	if image == nil {
		return nil, nil
	}
	name := strings.TrimSpace(*image)
	if name == "" {
		return nil, nil
	}
	if name != filepath.Base(name) || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, validation.FieldError{Field: "image", Message: "must be a bare filename"}
	}
	return &name, nil
}
