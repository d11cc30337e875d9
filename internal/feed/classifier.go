package feed

import "strings"

var feedPrefixes = []string{"<?xml", "<rss", "<feed", "<urlset"}

// IsLikelyFeedContent reports whether text, after trimming surrounding
// whitespace, begins with an XML declaration or an RSS, Atom or sitemap
// root element. The match is a case-sensitive prefix check.
func IsLikelyFeedContent(text string) bool {
	trimmed := strings.TrimSpace(text)
	for _, prefix := range feedPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}
