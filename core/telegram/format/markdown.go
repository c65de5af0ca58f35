package format

import "regexp"

var markdownRe = regexp.MustCompile("([_*`\\[])")

// Markdown escapes text for the legacy Markdown parse mode.
func Markdown(text string) string {
	return markdownRe.ReplaceAllString(text, `\$1`)
}
