package editor

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// undercroftHTML is the closing message that replaces every donation ask.
const undercroftHTML = `Charm City Art Space held its last show in November of 2015. ` +
	`If you would like to contribute to a community arts space in Baltimore, ` +
	`please consider <a href="https://theundercroft.org/">The Undercroft</a>.`

// menuToggleScript drives the injected hamburger button: it toggles the
// menu, closes it on outside clicks, and closes it after navigating.
const menuToggleScript = `
(function() {
    var btn = document.getElementById('hamburger-btn');
    var menu = document.getElementById('menu');
    if (!btn || !menu) return;
    btn.addEventListener('click', function(e) {
        e.stopPropagation();
        menu.classList.toggle('menu-open');
        btn.classList.toggle('active');
    });
    document.addEventListener('click', function(e) {
        if (!menu.contains(e.target) && !btn.contains(e.target)) {
            menu.classList.remove('menu-open');
            btn.classList.remove('active');
        }
    });
    var links = menu.getElementsByTagName('a');
    for (var i = 0; i < links.length; i++) {
        links[i].addEventListener('click', function() {
            menu.classList.remove('menu-open');
            btn.classList.remove('active');
        });
    }
})();`

var (
	tensePattern        = regexp.MustCompile(`(?i)Charm City Art Space is`)
	appreciationPattern = regexp.MustCompile(`(?i)Anything you can give is appreciated\.?\s*We need your help to keep us going\.?`)
	donationTextPattern = regexp.MustCompile(`(?i)Make a general donation to CCAS`)
	donationAttrPattern = regexp.MustCompile(`(?i)paypal|donate`)
)

// EditKind selects the engine behavior for one edit descriptor.
type EditKind int

const (
	// EditRemove detaches every candidate node the matcher accepts.
	EditRemove EditKind = iota
	// EditSubstitute rewrites matching text nodes with a regular expression.
	EditSubstitute
	// EditReplace swaps a matched element's contents for the payload.
	EditReplace
	// EditInsert places fixed markup at a described position once per page.
	EditInsert
)

// Edit is one declarative page edit. Name is the report key its changes
// count toward; several descriptors can share a name. Kind decides which
// of the remaining fields the engine reads.
type Edit struct {
	Name string
	Kind EditKind

	// Candidate nodes and their acceptance test, for remove and the
	// container form of replace. A nil Match accepts every candidate.
	Selector string
	Match    func(*goquery.Selection) bool

	// Unwrap names a parent element removed together with the node.
	Unwrap string

	// Text pattern for substitute and the text form of replace.
	Pattern *regexp.Regexp

	// Replacement markup or text. An empty substitute payload strips the
	// match and detaches nodes the strip leaves empty.
	Payload string

	// Placement routine for insert edits.
	Insert func(pageContext) bool
}

// pageContext hands an edit the parsed page plus the page-relative path
// back to the responsive stylesheet.
type pageContext struct {
	doc     *goquery.Document
	cssPath string
}

// pageEdits is the ordered edit list applied to every page. Order matters:
// the donation link pass runs before the image pass so a removed link is
// not counted twice, and the donation rewrites run after the appreciation
// strip so wrapping containers no longer match both phrases.
var pageEdits = []Edit{
	{Name: "paypal", Kind: EditRemove, Selector: "a[href]",
		Match: attrContainsAny("href", "paypal", "donate")},
	{Name: "paypal", Kind: EditRemove, Selector: "form[action]",
		Match: attrContainsAny("action", "paypal")},
	{Name: "paypal", Kind: EditRemove, Selector: "img", Match: donationImage, Unwrap: "a"},
	{Name: "paypal", Kind: EditRemove, Selector: "[class]",
		Match: attrPattern("class", donationAttrPattern)},
	{Name: "paypal", Kind: EditRemove, Selector: "[id]",
		Match: attrPattern("id", donationAttrPattern)},
	{Name: "paypal", Kind: EditRemove, Selector: "a, button, input",
		Match: textContainsAll("donate", "paypal")},

	{Name: "eats", Kind: EditRemove, Selector: "a", Match: eatsLink, Unwrap: "li"},
	{Name: "eats", Kind: EditRemove, Selector: "li, span", Match: textIsAny("eats", "eat")},

	{Name: "is_was", Kind: EditSubstitute, Pattern: tensePattern,
		Payload: "Charm City Art Space was"},
	{Name: "appreciation", Kind: EditSubstitute, Pattern: appreciationPattern, Payload: ""},

	{Name: "donation", Kind: EditReplace, Pattern: donationTextPattern,
		Payload: undercroftHTML},
	{Name: "donation", Kind: EditReplace, Selector: "div, p, section, aside",
		Match:   textContainsAll("make a general donation to ccas", "keep us going"),
		Payload: "<p>" + undercroftHTML + "</p>"},

	{Name: "responsive", Kind: EditInsert, Insert: insertResponsiveLayer},
	{Name: "hamburger", Kind: EditInsert, Insert: insertHamburger},
	{Name: "banner", Kind: EditInsert, Insert: insertMobileBanner},
}

// editNames are the report keys in table order.
var editNames = func() []string {
	var names []string
	seen := make(map[string]bool)
	for _, e := range pageEdits {
		if !seen[e.Name] {
			seen[e.Name] = true
			names = append(names, e.Name)
		}
	}
	return names
}()

// applyPageEdits runs the full edit list against one parsed page and
// returns the change counts keyed by edit name.
func applyPageEdits(pg pageContext) map[string]int {
	counts := make(map[string]int, len(editNames))
	for _, edit := range pageEdits {
		counts[edit.Name] += applyEdit(pg, edit)
	}
	return counts
}

// applyEdit runs one descriptor and returns how many changes it made.
func applyEdit(pg pageContext, e Edit) int {
	switch e.Kind {
	case EditRemove:
		return applyRemove(pg.doc, e)
	case EditSubstitute:
		return applySubstitute(pg.doc, e)
	case EditReplace:
		if e.Selector != "" {
			return applyContainerReplace(pg.doc, e)
		}
		return applyTextReplace(pg.doc, e)
	case EditInsert:
		if e.Insert(pg) {
			return 1
		}
	}
	return 0
}

func applyRemove(doc *goquery.Document, e Edit) int {
	removed := 0
	doc.Find(e.Selector).Each(func(_ int, s *goquery.Selection) {
		if e.Match != nil && !e.Match(s) {
			return
		}
		if e.Unwrap != "" {
			if parent := s.Parent(); goquery.NodeName(parent) == e.Unwrap {
				parent.Remove()
				removed++
				return
			}
		}
		s.Remove()
		removed++
	})
	return removed
}

func applySubstitute(doc *goquery.Document, e Edit) int {
	count := 0
	for _, n := range textNodes(doc) {
		if !e.Pattern.MatchString(n.Data) {
			continue
		}
		count += len(e.Pattern.FindAllString(n.Data, -1))
		out := e.Pattern.ReplaceAllString(n.Data, e.Payload)
		if e.Payload == "" {
			out = strings.TrimSpace(out)
		}
		if out == "" {
			parent := n.Parent
			detach(n)
			// A node left empty by the strip goes too.
			if parent != nil && strings.TrimSpace(nodeText(parent)) == "" {
				detach(parent)
			}
			continue
		}
		n.Data = out
	}
	return count
}

// applyTextReplace rewrites the parent element of any text node matching
// the pattern. Phrases split across inline elements never match a single
// text node; the container form of the descriptor picks those up.
func applyTextReplace(doc *goquery.Document, e Edit) int {
	count := 0
	for _, n := range textNodes(doc) {
		if !e.Pattern.MatchString(n.Data) {
			continue
		}
		parent := n.Parent
		if parent == nil || parent.Type != html.ElementNode {
			continue
		}
		goquery.NewDocumentFromNode(parent).SetHtml(e.Payload)
		count++
	}
	return count
}

func applyContainerReplace(doc *goquery.Document, e Edit) int {
	count := 0
	doc.Find(e.Selector).Each(func(_ int, s *goquery.Selection) {
		if e.Match != nil && !e.Match(s) {
			return
		}
		s.SetHtml(e.Payload)
		count++
	})
	return count
}

// attrContainsAny accepts a node whose attribute contains any needle,
// case-insensitive.
func attrContainsAny(attr string, needles ...string) func(*goquery.Selection) bool {
	return func(s *goquery.Selection) bool {
		value, _ := s.Attr(attr)
		value = strings.ToLower(value)
		for _, needle := range needles {
			if strings.Contains(value, needle) {
				return true
			}
		}
		return false
	}
}

// attrPattern accepts a node whose attribute matches the pattern.
func attrPattern(attr string, pattern *regexp.Regexp) func(*goquery.Selection) bool {
	return func(s *goquery.Selection) bool {
		value, _ := s.Attr(attr)
		return pattern.MatchString(value)
	}
}

// textContainsAll accepts a node whose text carries every needle,
// case-insensitive.
func textContainsAll(needles ...string) func(*goquery.Selection) bool {
	return func(s *goquery.Selection) bool {
		text := strings.ToLower(s.Text())
		for _, needle := range needles {
			if !strings.Contains(text, needle) {
				return false
			}
		}
		return true
	}
}

// textIsAny accepts a node whose trimmed text equals one of the values,
// case-insensitive.
func textIsAny(values ...string) func(*goquery.Selection) bool {
	return func(s *goquery.Selection) bool {
		text := strings.TrimSpace(strings.ToLower(s.Text()))
		for _, v := range values {
			if text == v {
				return true
			}
		}
		return false
	}
}

// donationImage spots PayPal button images by source or alt text.
func donationImage(s *goquery.Selection) bool {
	src, _ := s.Attr("src")
	alt, _ := s.Attr("alt")
	src, alt = strings.ToLower(src), strings.ToLower(alt)
	return strings.Contains(src, "paypal") ||
		strings.Contains(alt, "paypal") || strings.Contains(alt, "donate")
}

// eatsLink spots navigation links to the long-gone eats page.
func eatsLink(s *goquery.Selection) bool {
	text := strings.TrimSpace(strings.ToLower(s.Text()))
	if text == "eats" || text == "eat" {
		return true
	}
	href, _ := s.Attr("href")
	href = strings.ToLower(href)
	return strings.Contains(href, "eats") ||
		strings.Contains(href, "/eat") || strings.Contains(href, "eat.html")
}

// insertResponsiveLayer adds the viewport meta tag and the responsive.css
// link when the page lacks them.
func insertResponsiveLayer(pg pageContext) bool {
	head := pg.doc.Find("head").First()
	if head.Length() == 0 {
		return false
	}

	injected := false
	if pg.doc.Find(`meta[name="viewport"]`).Length() == 0 {
		head.PrependHtml(`<meta name="viewport" content="width=device-width, initial-scale=1.0"/>`)
		injected = true
	}

	hasResponsive := false
	pg.doc.Find("link[href]").Each(func(_ int, s *goquery.Selection) {
		if href, _ := s.Attr("href"); strings.Contains(href, "responsive.css") {
			hasResponsive = true
		}
	})
	if !hasResponsive {
		head.AppendHtml(`<link rel="stylesheet" href="` + pg.cssPath + `"/>`)
		injected = true
	}
	return injected
}

// insertHamburger adds the mobile menu button and its toggle script. The
// button sits inside #header when there is one so the stylesheet can
// position it absolutely, otherwise right before #menu.
func insertHamburger(pg pageContext) bool {
	menu := pg.doc.Find("#menu").First()
	if menu.Length() == 0 || pg.doc.Find("#hamburger-btn").Length() > 0 {
		return false
	}

	button := `<button id="hamburger-btn" aria-label="Menu" type="button">` + "☰" + `</button>`
	if header := pg.doc.Find("#header").First(); header.Length() > 0 {
		header.AppendHtml(button)
	} else {
		menu.BeforeHtml(button)
	}

	if body := pg.doc.Find("body").First(); body.Length() > 0 {
		body.AppendHtml("<script>" + menuToggleScript + "</script>")
	}
	return true
}

// insertMobileBanner puts the closing message between #menu and the content
// so phones see it without the sidebar.
func insertMobileBanner(pg pageContext) bool {
	menu := pg.doc.Find("#menu").First()
	if menu.Length() == 0 || pg.doc.Find("#mobile-banner").Length() > 0 {
		return false
	}
	menu.AfterHtml(`<div id="mobile-banner">` + undercroftHTML + `</div>`)
	return true
}

// textNodes returns every text node under the document, snapshotted so
// callers can mutate while iterating.
func textNodes(doc *goquery.Document) []*html.Node {
	var nodes []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			nodes = append(nodes, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, root := range doc.Nodes {
		walk(root)
	}
	return nodes
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(x *html.Node) {
		if x.Type == html.TextNode {
			b.WriteString(x.Data)
		}
		for c := x.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}
