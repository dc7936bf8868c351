// agora/utils/sanitize.go
package utils

import (
	"html"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var bodyPolicy = bluemonday.UGCPolicy()

// RenderBody sanitizes a stored body for display. Only the UGC subset of
// HTML survives and line breaks are kept.
func RenderBody(content string) template.HTML {
	clean := bodyPolicy.Sanitize(content)
	clean = strings.ReplaceAll(clean, "\r\n", "\n")
	return template.HTML(strings.ReplaceAll(clean, "\n", "<br>"))
}

// StripTags removes all markup, for titles and previews. The result is plain
// text with entities decoded; templates escape it on output.
func StripTags(content string) string {
	return html.UnescapeString(bluemonday.StrictPolicy().Sanitize(content))
}
