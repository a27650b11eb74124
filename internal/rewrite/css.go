package rewrite

import (
	"path"
	"strings"
)

// RewriteCSS rewrites a stylesheet's url(...) references relative to the
// file's own directory, after stripping archive-service wrappers. cssPath
// is the stylesheet's mirror-relative path.
func (m *Mapper) RewriteCSS(css, cssPath string) string {
	css = StripWaybackURLs(css)
	return m.rewriteCSSURLs(css, path.Dir(cssPath))
}

// rewriteCSSURLs rewrites each url(...) argument: absolute site paths and
// fetched URLs become relative to fromDir, external URLs stay absolute and
// cleaned. Rewritten references come out double-quoted.
func (m *Mapper) rewriteCSSURLs(css, fromDir string) string {
	return cssURLPattern.ReplaceAllStringFunc(css, func(match string) string {
		ref := cssURLPattern.FindStringSubmatch(match)[1]
		if strings.HasPrefix(ref, "/") && !strings.HasPrefix(ref, "//") {
			return `url("` + relativePath(fromDir, strings.TrimLeft(ref, "/")) + `")`
		}
		clean := CleanURL(ref)
		if clean == "" {
			return match
		}
		if local, ok := m.Lookup(clean); ok {
			return `url("` + relativePath(fromDir, local) + `")`
		}
		return `url("` + clean + `")`
	})
}
