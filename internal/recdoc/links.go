package recdoc

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
)

var renderedRecMarker = regexp.MustCompile(`<li>(?:<p>)?<strong>Rec (\d+)\.</strong>`)

// WithDeleteLinks adds a delete control after each "Rec N." marker that
// opens a list item in rendered HTML. The control carries the number in
// data-rec and the endpoint in data-action; clients POST
// {"numbers":[N]} there with their credentials.
func WithDeleteLinks(renderedHTML, action string) string {
	act := html.EscapeString(action)
	return renderedRecMarker.ReplaceAllStringFunc(renderedHTML, func(match string) string {
		m := renderedRecMarker.FindStringSubmatch(match)
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return match
		}
		return match + fmt.Sprintf(
			` <a href="#rec-%d" role="button" class="rec-delete" data-method="POST" data-action="%s" data-rec="%d" title="Delete Rec %d">[delete]</a>`,
			n, act, n, n)
	})
}
