package scraper

import (
	"strings"

	"github.com/antchfx/htmlquery"
)

// Titles shown by interstitials that resolve themselves after a few
// seconds of script execution.
var challengeTitles = []string{
	"just a moment",
	"checking your browser",
	"please wait",
	"ddos-guard",
}

var challengeSelectors = []struct {
	name string
	expr string
}{
	{"challenge-running", "//*[@id='challenge-running']"},
	{"cf-challenge-running", "//*[@id='cf-challenge-running']"},
	{"challenge-form", "//form[@id='challenge-form']"},
	{"cf-spinner", "//*[@id='cf-spinner-please-wait']"},
	{"turnstile", "//*[contains(concat(' ', normalize-space(@class), ' '), ' cf-turnstile ')]"},
	{"ddos-guard", "//*[@id='ddg-captcha' or @id='ddos-guard']"},
}

// Challenge returns the first challenge marker found on the page, or ""
// when the page does not look like a bot-check interstitial. Markers are
// "title:<phrase>" or "selector:<name>".
func (s *Snapshot) Challenge() string {
	title := strings.ToLower(s.Title())
	for _, phrase := range challengeTitles {
		if strings.Contains(title, phrase) {
			return "title:" + phrase
		}
	}
	for _, sel := range challengeSelectors {
		node, err := htmlquery.Query(s.root, sel.expr)
		if err == nil && node != nil {
			return "selector:" + sel.name
		}
	}
	return ""
}

// DetectChallenge parses markup and returns its challenge marker.
func DetectChallenge(markup string) string {
	snap, err := ParseSnapshot(markup)
	if err != nil {
		return ""
	}
	return snap.Challenge()
}
