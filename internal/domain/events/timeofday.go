package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time stored as the offset from midnight.
type TimeOfDay time.Duration

const day = 24 * time.Hour

// TimeOfDayFromMicroseconds converts a driver time value (microseconds since
// midnight) into a TimeOfDay.
func TimeOfDayFromMicroseconds(us int64) TimeOfDay {
	return TimeOfDay(time.Duration(us) * time.Microsecond)
}

// ParseTimeOfDay accepts "HH:MM" and "HH:MM:SS".
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{"15:04:05", "15:04"} {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			offset := time.Duration(parsed.Hour())*time.Hour +
				time.Duration(parsed.Minute())*time.Minute +
				time.Duration(parsed.Second())*time.Second
			return TimeOfDay(offset), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", value)
}

func (t TimeOfDay) Microseconds() int64 {
	return time.Duration(t).Microseconds()
}

// String renders the normalized "HH:MM:SS" form. Values outside a single day
// wrap around midnight.
func (t TimeOfDay) String() string {
	d := time.Duration(t) % day
	if d < 0 {
		d += day
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}
