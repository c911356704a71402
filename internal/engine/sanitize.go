package engine

import "regexp"

// Resolved values can carry user-typed text; these patterns cover the
// script-injection shapes that must never reach the image API.
var unsafePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
	regexp.MustCompile(`(?is)<iframe[^>]*>.*?</iframe>`),
	regexp.MustCompile(`(?i)javascript\s*:`),
	regexp.MustCompile(`(?i)\bon[a-z]+\s*=`),
	regexp.MustCompile(`(?is)<[^>]+>`),
}

// stripUnsafe removes script-like content from a resolved string value.
func stripUnsafe(text string) string {
	for _, pattern := range unsafePatterns {
		text = pattern.ReplaceAllString(text, "")
	}
	return text
}
