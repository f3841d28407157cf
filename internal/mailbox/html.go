package mailbox

import (
	"html"
	"regexp"
	"strings"
)

var (
	htmlTagRE       = regexp.MustCompile(`<[^>]*>`)
	htmlScriptRE    = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	htmlBreakRE     = regexp.MustCompile(`(?i)<(br|/p|/div|/tr|/li|/h[1-6])[^>]*>`)
	whitespaceRunRE = regexp.MustCompile(`[ \t]+`)
	blankLineRunRE  = regexp.MustCompile(`\n{3,}`)
	htmlSignatureRE = regexp.MustCompile(`(?i)<\s*(html|body|div|p|table|br)\b`)
)

// looksLikeHTML reports whether a body is markup rather than plain text.
func looksLikeHTML(body string) bool {
	return htmlSignatureRE.MatchString(body)
}

// NormalizeHTML strips tags from an HTML body and collapses whitespace so
// the extraction engine sees line-oriented plain text. Block-level closers
// become newlines to keep the line structure the item scanner depends on.
func NormalizeHTML(src string) string {
	text := htmlScriptRE.ReplaceAllString(src, " ")
	text = htmlBreakRE.ReplaceAllString(text, "\n")
	text = htmlTagRE.ReplaceAllString(text, " ")
	text = html.UnescapeString(text)

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(whitespaceRunRE.ReplaceAllString(line, " "))
	}
	text = strings.Join(lines, "\n")
	text = blankLineRunRE.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
