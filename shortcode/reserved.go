package shortcode

import "strings"

// Words that collide with service routes. A custom code matching one would
// shadow an endpoint, and a generated one would be unreachable.
var reservedWords = []string{
	"status",
	"health",
	"diag",
	"shorturl",
	"shorturls",
}

// Reserved reports whether the code is claimed by a service route.
func Reserved(code string) bool {
	lower := strings.ToLower(code)
	for _, w := range reservedWords {
		if lower == w {
			return true
		}
	}
	return false
}
