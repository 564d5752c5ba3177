package adapter

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Analyzer text is rendered verbatim in the console, so anything that
// smells like markup is stripped before the payload leaves this package.
var strictText = bluemonday.StrictPolicy()

func cleanText(s string) string {
	return strings.TrimSpace(strictText.Sanitize(s))
}

func cleanAll(ss []string) []string {
	if len(ss) == 0 {
		return ss
	}
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if cleaned := cleanText(s); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}
