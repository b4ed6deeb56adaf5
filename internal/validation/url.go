package validation

import (
	"net/url"
	"strings"
)

// URL checks that value is an absolute http(s) URL. Empty values pass;
// callers decide whether the field is required.
func URL(field, value string, requireHTTPS bool) error {
	if value == "" {
		return nil
	}

	parsed, err := url.Parse(value)
	if err != nil {
		return FieldError{Field: field, Message: "invalid URL format"}
	}
	if parsed.Host == "" {
		return FieldError{Field: field, Message: "URL must include a scheme and host"}
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return FieldError{Field: field, Message: "URL scheme must be http or https"}
	}
	if requireHTTPS && scheme != "https" {
		return FieldError{Field: field, Message: "URL must use HTTPS in production"}
	}
	return nil
}
