package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/eventboard/server/internal/domain/events"
)

// DefaultSourceTimeout bounds a single listing fetch.
const DefaultSourceTimeout = 10 * time.Second

// maxListingBody caps how much of the listing response is read.
const maxListingBody = 4 << 20

// Summary is the slice of an event the bot shows in chat.
type Summary struct {
	Title string `json:"title"`
	Date  string `json:"date"`
}

// EventSource supplies the current event listing.
type EventSource interface {
	Upcoming(ctx context.Context) ([]Summary, error)
}

type eventLister interface {
	List(ctx context.Context) ([]events.Event, error)
}

// ServiceSource reads events in-process through the events service.
type ServiceSource struct {
	events eventLister
}

func NewServiceSource(svc eventLister) *ServiceSource {
	return &ServiceSource{events: svc}
}

func (s *ServiceSource) Upcoming(ctx context.Context) ([]Summary, error) {
	items, err := s.events.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	out := make([]Summary, 0, len(items))
	for _, e := range items {
		out = append(out, Summary{Title: e.Title, Date: e.DateString()})
	}
	return out, nil
}

// HTTPSource reads events from the public listing endpoint.
type HTTPSource struct {
	httpClient *http.Client
	url        string
}

// HTTPSourceOption configures an HTTPSource.
type HTTPSourceOption func(*HTTPSource)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) HTTPSourceOption {
	return func(s *HTTPSource) {
		s.httpClient = client
	}
}

// NewHTTPSource builds a source for the listing at url
// (e.g. "https://api.example.com/api/events").
func NewHTTPSource(url string, opts ...HTTPSourceOption) *HTTPSource {
	s := &HTTPSource{
		httpClient: &http.Client{Timeout: DefaultSourceTimeout},
		url:        url,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HTTPSource) Upcoming(ctx context.Context) ([]Summary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxListingBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out []Summary
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return out, nil
}
