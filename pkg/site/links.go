package site

import (
	"html"
	"regexp"

	"github.com/matzehuels/vizpage/pkg/errors"
)

// LinkScheme prefixes inter-page link targets.
const LinkScheme = "page:"

var pageLink = regexp.MustCompile(`href=(["'])page:([^"']*)(["'])`)

// rewriteLinks replaces every href="page:<Title>" in doc with the file of
// the page titled Title.
func rewriteLinks(doc string, files map[string]string) (string, error) {
	var unknown string
	out := pageLink.ReplaceAllStringFunc(doc, func(m string) string {
		sub := pageLink.FindStringSubmatch(m)
		title := html.UnescapeString(sub[2])
		file, ok := files[title]
		if !ok {
			if unknown == "" {
				unknown = title
			}
			return m
		}
		return "href=" + sub[1] + html.EscapeString(file) + sub[3]
	})
	if unknown != "" {
		return "", errors.New(errors.ErrCodeUnknownPage, "link to unknown page %q", unknown)
	}
	return out, nil
}
