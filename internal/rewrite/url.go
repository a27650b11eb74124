// Package rewrite converts archive-service URLs and dynamic PHP links into
// the flat relative links of a static mirror. It owns the URL recognition
// patterns, the URL-to-local-path mapping, and the HTML/CSS rewriting passes.
package rewrite

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

const waybackSrc = `(?:https?:)?//web\.archive\.org/web/(\d+)(?:[a-z]*_)?/(https?://[^\s"'<>]+|[^\s"'<>]+)`

var (
	// waybackPattern matches an archive-service URL anywhere in text.
	waybackPattern = regexp.MustCompile(waybackSrc)
	// waybackPrefixPattern matches only when the value starts with one.
	waybackPrefixPattern = regexp.MustCompile(`^` + waybackSrc)

	// phpActionPattern matches dynamic action links like index.php?action=contact.
	phpActionPattern = regexp.MustCompile(`index\.php\?action=([^&\s"'<>]+)`)

	// cssURLPattern matches url(...) references inside stylesheets.
	cssURLPattern = regexp.MustCompile(`url\(["']?([^)"']+)["']?\)`)

	nonWordPattern = regexp.MustCompile(`[^\w-]`)
)

// skipSchemes are reference values that never point at fetchable content.
var skipSchemes = []string{"data:", "javascript:", "mailto:", "tel:", "#", "about:"}

// assetExtensions are the file types downloaded verbatim as assets.
var assetExtensions = map[string]struct{}{
	".css": {}, ".js": {}, ".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {},
	".svg": {}, ".ico": {}, ".woff": {}, ".woff2": {}, ".ttf": {}, ".eot": {},
	".otf": {}, ".webp": {}, ".mp4": {}, ".webm": {}, ".pdf": {}, ".json": {},
	".xml": {}, ".map": {},
}

// CleanURL extracts the original URL from a potentially archive-wrapped
// value. It returns "" for values that are not fetchable (data:, fragments,
// mail and phone links). Protocol-relative values gain an https scheme;
// anything else passes through unchanged, including relative references.
func CleanURL(raw string) string {
	if raw == "" {
		return ""
	}
	for _, prefix := range skipSchemes {
		if strings.HasPrefix(raw, prefix) {
			return ""
		}
	}
	if m := waybackPrefixPattern.FindStringSubmatch(raw); m != nil {
		original := m[2]
		if !strings.HasPrefix(original, "http") {
			original = "https://" + original
		}
		return original
	}
	if strings.HasPrefix(raw, "//") {
		return "https:" + raw
	}
	return raw
}

// StripWaybackURLs replaces every embedded archive-service URL in text with
// the original URL it wraps. Used for JS files and as the final cleanup on
// HTML and CSS.
func StripWaybackURLs(text string) string {
	return waybackPattern.ReplaceAllStringFunc(text, func(match string) string {
		m := waybackPattern.FindStringSubmatch(match)
		original := m[2]
		if !strings.HasPrefix(original, "http") {
			original = "https://" + original
		}
		return original
	})
}

// ResolveURL resolves a cleaned reference against the page it appeared on.
// Absolute URLs pass through; leading-slash paths resolve against the
// page's scheme and host; everything else resolves as a relative reference.
func ResolveURL(baseURL, ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return ref
	}
	if strings.HasPrefix(ref, "/") {
		return base.Scheme + "://" + base.Host + ref
	}
	rel, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(rel).String()
}

// HasAssetExtension reports whether the URL's path ends in a known asset
// file type.
func HasAssetExtension(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	_, ok := assetExtensions[strings.ToLower(path.Ext(u.Path))]
	return ok
}

// relativePath computes the link text that reaches target from a page in
// fromDir. Both arguments are slash-separated paths relative to the mirror
// root; fromDir "." means the root itself.
func relativePath(fromDir, target string) string {
	fromDir = path.Clean(fromDir)
	target = path.Clean(strings.TrimPrefix(target, "/"))
	if fromDir == "." || fromDir == "/" {
		return target
	}
	if target == "." {
		ups := strings.Repeat("../", strings.Count(fromDir, "/")+1)
		return strings.TrimSuffix(ups, "/")
	}
	fromParts := strings.Split(fromDir, "/")
	targetParts := strings.Split(target, "/")
	common := 0
	for common < len(fromParts) && common < len(targetParts)-1 &&
		fromParts[common] == targetParts[common] {
		common++
	}
	var b strings.Builder
	for i := common; i < len(fromParts); i++ {
		b.WriteString("../")
	}
	b.WriteString(strings.Join(targetParts[common:], "/"))
	return b.String()
}
