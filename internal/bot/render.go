package bot

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	welcomeText    = "Welcome to the Event Organizer Bot!\nClick below to see upcoming events:"
	noEventsText   = "No events found."
	unavailableMsg = "Events are unavailable right now. Please try again later."
	helpText       = "Commands:\n/start - open the event listing\n/events - list upcoming events here"

	viewEventsData = "view_events"

	// maxMessageLen is Telegram's limit on a text message, in characters.
	maxMessageLen = 4096
	// moreReserve leaves room for the "...and N more" trailer.
	moreReserve = 32
)

// renderEvents flattens the listing to one "title - date" line per event.
// Lines that would push the message past Telegram's limit are replaced by a
// count of the omitted events.
func renderEvents(items []Summary) string {
	if len(items) == 0 {
		return noEventsText
	}
	var b strings.Builder
	b.WriteString("Upcoming Events:")
	size := utf8.RuneCountInString(b.String())
	for i, e := range items {
		line := "\n" + e.Title + " - " + e.Date
		n := utf8.RuneCountInString(line)
		if size+n > maxMessageLen-moreReserve {
			fmt.Fprintf(&b, "\n...and %d more", len(items)-i)
			break
		}
		b.WriteString(line)
		size += n
	}
	return b.String()
}
