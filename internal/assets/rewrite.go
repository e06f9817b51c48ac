package assets

import (
	"regexp"
	"strings"
)

// assetPathRe matches relative asset paths as generated documents write
// them: "assets/<fileName>" inside an attribute or quoted string. The file
// name runs to the next quote, whitespace, or closing bracket.
var assetPathRe = regexp.MustCompile("assets/[^\"'`\\s)>]+")

// Rewrite replaces every "assets/<fileName>" occurrence whose file name is
// registered with that asset's ephemeral reference path. Unmatched paths are
// left untouched: a broken link is a visible but non-fatal outcome.
func (r *Registry) Rewrite(doc string) string {
	return assetPathRe.ReplaceAllStringFunc(doc, func(m string) string {
		name := strings.TrimPrefix(m, "assets/")
		if ref, ok := r.RefPath(name); ok {
			return ref
		}
		return m
	})
}
