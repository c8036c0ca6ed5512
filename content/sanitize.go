package content

import "github.com/microcosm-cc/bluemonday"

var sanitizer = bluemonday.UGCPolicy()

// Sanitize strips scripts, event handlers and unsafe URLs from a post body
// while keeping formatting, lists and images.
func Sanitize(body string) string {
	return sanitizer.Sanitize(body)
}
