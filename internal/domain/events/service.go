package events

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/eventboard/server/internal/auth"
	"github.com/eventboard/server/internal/domain/users"
	"github.com/rs/zerolog"
)

// RoleLookup resolves the stored role of a user.
type RoleLookup interface {
	Role(ctx context.Context, userID int64) (string, error)
}

type Service struct {
	repo         Repository
	roles        RoleLookup
	imageBaseURL string
	logger       zerolog.Logger
}

// NewService wires the event repository. publicURL is the externally
// reachable server URL under which /images/{filename} is served.
func NewService(repo Repository, roles RoleLookup, publicURL string, logger zerolog.Logger) *Service {
	return &Service{
		repo:         repo,
		roles:        roles,
		imageBaseURL: strings.TrimRight(publicURL, "/") + "/images/",
		logger:       logger.With().Str("component", "events").Logger(),
	}
}

func (s *Service) List(ctx context.Context) ([]Event, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		s.decorate(&items[i])
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Event, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.decorate(event)
	return event, nil
}

// Create inserts an event owned by ownerID. Only organizers may create
// events; the role is read from the credential store, not the token.
func (s *Service) Create(ctx context.Context, ownerID int64, input Input) (*Event, error) {
	role, err := s.roles.Role(ctx, ownerID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, ErrForbidden
		}
		return nil, fmt.Errorf("lookup role: %w", err)
	}
	if !auth.IsOrganizer(role) {
		return nil, ErrForbidden
	}

	fields, err := s.normalize(input, ownerID)
	if err != nil {
		return nil, err
	}

	event, err := s.repo.Create(ctx, ownerID, fields)
	if err != nil {
		return nil, err
	}
	s.decorate(event)
	s.logger.Info().Int64("event_id", event.ID).Int64("organizer_id", ownerID).Msg("event created")
	return event, nil
}

func (s *Service) Update(ctx context.Context, ownerID, id int64, input Input) (*Event, error) {
	fields, err := s.normalize(input, ownerID)
	if err != nil {
		return nil, err
	}

	event, err := s.repo.Update(ctx, ownerID, id, fields)
	if err != nil {
		return nil, err
	}
	s.decorate(event)
	s.logger.Info().Int64("event_id", id).Int64("organizer_id", ownerID).Msg("event updated")
	return event, nil
}

func (s *Service) Delete(ctx context.Context, ownerID, id int64) error {
	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	s.logger.Info().Int64("event_id", id).Int64("organizer_id", ownerID).Msg("event deleted")
	return nil
}

func (s *Service) normalize(input Input, ownerID int64) (Fields, error) {
	if input.UsesLegacyTime() {
		s.logger.Warn().Int64("organizer_id", ownerID).Msg("time taken from legacy date_time field")
	}
	return input.Normalize()
}

// decorate derives the public image URL.
func (s *Service) decorate(event *Event) {
	if event == nil {
		return
	}
	event.ImageURL = nil
	if event.Image != nil && *event.Image != "" {
		link := s.imageBaseURL + url.PathEscape(*event.Image)
		event.ImageURL = &link
	}
}
