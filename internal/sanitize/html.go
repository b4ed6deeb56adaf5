package sanitize

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

// StrictPolicy removes all HTML tags and attributes.
var StrictPolicy = bluemonday.StrictPolicy()

// maxPasses bounds how many layers of entity encoding Text peels off.
const maxPasses = 3

// Text strips all markup from user-supplied plain-text fields such as event
// titles and locations. Entity-encoded markup is decoded before the policy
// runs, so "&lt;b&gt;" is stripped like "<b>". The result reads the way it
// was typed and never contains a tag.
func Text(input string) string {
	if input == "" {
		return ""
	}
	out := input
	for i := 0; i < maxPasses; i++ {
		next := strip(out)
		if next == out {
			return out
		}
		out = next
	}
	if strip(out) == out {
		return out
	}
	// Still changing: keep the policy's escaped output.
	return StrictPolicy.Sanitize(html.UnescapeString(out))
}

func strip(s string) string {
	return html.UnescapeString(StrictPolicy.Sanitize(html.UnescapeString(s)))
}
