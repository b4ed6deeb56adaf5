package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/eventboard/server/internal/domain/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLister struct {
	items []events.Event
	err   error
}

func (s stubLister) List(context.Context) ([]events.Event, error) {
	return s.items, s.err
}

func TestServiceSource(t *testing.T) {
	src := NewServiceSource(stubLister{items: []events.Event{
		{ID: 1, Title: "Jazz Night", Date: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
	}})

	got, err := src.Upcoming(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Summary{{Title: "Jazz Night", Date: "2025-06-01"}}, got)

	_, err = NewServiceSource(stubLister{err: errors.New("boom")}).Upcoming(context.Background())
	assert.Error(t, err)
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/events", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"title":"Jazz Night","date":"2025-06-01","time":"19:30:00"}]`))
	}))
	defer srv.Close()

	got, err := NewHTTPSource(srv.URL+"/api/events", WithHTTPClient(srv.Client())).Upcoming(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Summary{{Title: "Jazz Night", Date: "2025-06-01"}}, got)
}

func TestHTTPSource_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"title":"Internal Server Error"}`},
		{"malformed body", http.StatusOK, `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewHTTPSource(srv.URL).Upcoming(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestRenderEvents(t *testing.T) {
	assert.Equal(t, "No events found.", renderEvents(nil))
	assert.Equal(t, "Upcoming Events:\nA - 2025-01-02", renderEvents([]Summary{{Title: "A", Date: "2025-01-02"}}))
}

func TestRenderEventsFitsOneMessage(t *testing.T) {
	items := make([]Summary, 100)
	for i := range items {
		items[i] = Summary{Title: strings.Repeat("ü", 200), Date: "2025-01-02"}
	}

	out := renderEvents(items)
	assert.LessOrEqual(t, utf8.RuneCountInString(out), maxMessageLen)

	shown := strings.Count(out, " - 2025-01-02")
	require.Greater(t, shown, 0)
	assert.True(t, strings.HasSuffix(out, fmt.Sprintf("\n...and %d more", len(items)-shown)), out[len(out)-40:])
}

func TestRenderEventsSkipsOversizedTitle(t *testing.T) {
	out := renderEvents([]Summary{{Title: strings.Repeat("x", maxMessageLen), Date: "2025-01-02"}})
	assert.Equal(t, "Upcoming Events:\n...and 1 more", out)
}
