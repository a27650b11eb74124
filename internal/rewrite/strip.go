package rewrite

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Block patterns for replay markup injected into archived pages. RE2 has no
// lookahead, so script and style bodies are captured with a non-greedy
// block match and filtered on their content instead.
var (
	toolbarInsertPattern = regexp.MustCompile(`(?is)<!--\s*BEGIN WAYBACK TOOLBAR INSERT\s*-->.*?<!--\s*END WAYBACK TOOLBAR INSERT\s*-->`)
	replayScriptPattern  = regexp.MustCompile(`(?is)<script[^>]*src=["'][^"']*(?:archive\.org|wombat)[^"']*["'][^>]*>.*?</script>`)
	scriptBlockPattern   = regexp.MustCompile(`(?is)<script[^>]*>(.*?)</script>`)
	replayLinkPattern    = regexp.MustCompile(`(?i)<link[^>]*href=["'][^"']*archive\.org[^"']*["'][^>]*>`)
	styleBlockPattern    = regexp.MustCompile(`(?is)<style[^>]*>(.*?)</style>`)
)

// inlineScriptMarkers identify replay bootstrap scripts embedded directly
// in the page body.
var inlineScriptMarkers = []string{"__wm.", "wombat", "archive.org"}

// Id and class prefixes of elements the replay toolbar adds to the DOM.
// Rewriting additionally drops the donation banner and wb- wrappers that
// survive the regex passes.
var (
	toolbarIDPattern    = regexp.MustCompile(`(?i)^(?:wm-|playback)`)
	toolbarClassPattern = regexp.MustCompile(`(?i)^wm-`)
	bannerIDPattern     = regexp.MustCompile(`(?i)^(?:wm-|playback|donato)`)
	bannerClassPattern  = regexp.MustCompile(`(?i)^(?:wm-|wb-)`)
)

// StripArtifacts removes replay toolbar markup, bootstrap scripts and
// styles, and embedded archive-service URLs from raw HTML. It runs on every
// page right after download, before any parsing.
func StripArtifacts(page string) string {
	page = toolbarInsertPattern.ReplaceAllString(page, "")
	page = replayScriptPattern.ReplaceAllString(page, "")
	page = dropMarkedBlocks(page, scriptBlockPattern, inlineScriptMarkers)
	page = replayLinkPattern.ReplaceAllString(page, "")
	page = dropMarkedBlocks(page, styleBlockPattern, []string{"archive.org"})
	return StripWaybackURLs(page)
}

// dropMarkedBlocks removes every block whose captured body contains one of
// the markers, compared case-insensitively.
func dropMarkedBlocks(text string, block *regexp.Regexp, markers []string) string {
	return block.ReplaceAllStringFunc(text, func(match string) string {
		body := strings.ToLower(block.FindStringSubmatch(match)[1])
		for _, marker := range markers {
			if strings.Contains(body, marker) {
				return ""
			}
		}
		return match
	})
}

// stripForExtract drops toolbar elements and comments so their references
// never enter the asset list.
func stripForExtract(doc *goquery.Document) {
	removeMatchingID(doc, toolbarIDPattern)
	removeMatchingClass(doc, toolbarClassPattern)
	removeComments(doc)
}

// stripForRewrite drops everything the replay service injected before the
// page's links are rewritten.
func stripForRewrite(doc *goquery.Document) {
	removeMatchingID(doc, bannerIDPattern)
	removeMatchingClass(doc, bannerClassPattern)

	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		body := s.Text()
		if strings.Contains(src, "archive.org") || strings.Contains(src, "wombat") ||
			strings.Contains(body, "archive.org") || strings.Contains(body, "__wm") ||
			strings.Contains(body, "wombat") {
			s.Remove()
		}
	})
	doc.Find("link").Each(func(_ int, s *goquery.Selection) {
		if href, _ := s.Attr("href"); strings.Contains(href, "archive.org") {
			s.Remove()
		}
	})
	removeComments(doc)
}

func removeMatchingID(doc *goquery.Document, pattern *regexp.Regexp) {
	doc.Find("[id]").Each(func(_ int, s *goquery.Selection) {
		if id, _ := s.Attr("id"); pattern.MatchString(id) {
			s.Remove()
		}
	})
}

func removeMatchingClass(doc *goquery.Document, pattern *regexp.Regexp) {
	doc.Find("[class]").Each(func(_ int, s *goquery.Selection) {
		classes, _ := s.Attr("class")
		for _, class := range strings.Fields(classes) {
			if pattern.MatchString(class) {
				s.Remove()
				return
			}
		}
	})
}

func removeComments(doc *goquery.Document) {
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for child := n.FirstChild; child != nil; {
			next := child.NextSibling
			if child.Type == html.CommentNode {
				n.RemoveChild(child)
			} else {
				walk(child)
			}
			child = next
		}
	}
	for _, root := range doc.Nodes {
		walk(root)
	}
}
