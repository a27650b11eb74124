package rewrite

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type attrRef struct {
	tag  string
	attr string
}

// Attribute pairs scanned for URLs. Form actions contribute to extraction
// but are rewritten by their own pass.
var (
	rewriteAttrs = []attrRef{
		{"a", "href"}, {"link", "href"}, {"script", "src"},
		{"img", "src"}, {"source", "src"}, {"video", "src"},
		{"video", "poster"}, {"audio", "src"}, {"iframe", "src"},
		{"object", "data"}, {"embed", "src"},
	}
	extractAttrs = []attrRef{
		{"a", "href"}, {"link", "href"}, {"script", "src"},
		{"img", "src"}, {"source", "src"}, {"video", "src"},
		{"video", "poster"}, {"audio", "src"}, {"iframe", "src"},
		{"object", "data"}, {"embed", "src"}, {"form", "action"},
	}
)

// hrefSkipPrefixes are href values the PHP link pass leaves alone.
var hrefSkipPrefixes = []string{"http://", "https://", "#", "mailto:", "tel:", "javascript:"}

// Host-less absolute links like https://booking.html that should have been
// plain file references.
var (
	hostHTMLPattern      = regexp.MustCompile(`^https?://[^/]+\.html$`)
	hostHTMLQueryPattern = regexp.MustCompile(`^https?://[^/]+\.html\?`)
)

// ExtractURLs returns every URL referenced by a page, cleaned of
// archive-service wrappers and resolved against the page's own URL.
func ExtractURLs(page, baseURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	stripForExtract(doc)

	seen := make(map[string]struct{})
	add := func(raw string) {
		clean := CleanURL(raw)
		if clean == "" {
			return
		}
		seen[ResolveURL(baseURL, clean)] = struct{}{}
	}

	for _, ref := range extractAttrs {
		doc.Find(ref.tag).Each(func(_ int, s *goquery.Selection) {
			if value, ok := s.Attr(ref.attr); ok && value != "" {
				add(value)
			}
		})
	}

	doc.Find("[srcset]").Each(func(_ int, s *goquery.Selection) {
		srcset, _ := s.Attr("srcset")
		for _, part := range strings.Split(srcset, ",") {
			if fields := strings.Fields(part); len(fields) > 0 {
				add(fields[0])
			}
		}
	})

	doc.Find("style").Each(func(_ int, s *goquery.Selection) {
		for _, m := range cssURLPattern.FindAllStringSubmatch(s.Text(), -1) {
			add(m[1])
		}
	})
	doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		style, _ := s.Attr("style")
		for _, m := range cssURLPattern.FindAllStringSubmatch(style, -1) {
			add(m[1])
		}
	})

	return sortedKeys(seen), nil
}

// PageLinks returns the on-site pages a page links to, resolved absolute,
// with asset references filtered out. These seed further crawling.
func (m *Mapper) PageLinks(page, baseURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		clean := CleanURL(href)
		if clean == "" {
			return
		}
		resolved := ResolveURL(baseURL, clean)
		if m.IsOurDomain(resolved) && !HasAssetExtension(resolved) {
			seen[resolved] = struct{}{}
		}
	})
	return sortedKeys(seen), nil
}

// RewritePage rewrites every reference in a fetched page to point into the
// mirror tree. pagePath is the page's own mirror-relative path; links are
// made relative to its directory. The passes run in a fixed order, each
// narrowing what the previous ones left: known URLs first, then PHP links,
// then absolute paths, then protocol-relative and malformed leftovers.
func (m *Mapper) RewritePage(page, pagePath string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}
	pageDir := path.Dir(pagePath)

	stripForRewrite(doc)

	for _, ref := range rewriteAttrs {
		doc.Find(ref.tag).Each(func(_ int, s *goquery.Selection) {
			m.rewriteAttr(s, ref.attr, pageDir)
		})
	}
	m.rewriteSrcsets(doc, pageDir)
	rewritePHPHrefs(doc)
	relativizeAttr(doc, "href", pageDir)
	rewritePHPSrcs(doc)
	rewriteFormActions(doc)
	fixProtocolRelative(doc)
	fixMalformedLocals(doc)
	relativizeAttr(doc, "src", pageDir)
	relativizeAttr(doc, "action", pageDir)
	relativizeAttr(doc, "data", pageDir)
	relativizeAttr(doc, "poster", pageDir)
	relativizeSrcsets(doc, pageDir)
	m.rewriteInlineCSS(doc, pageDir)

	out, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("render page: %w", err)
	}
	return out, nil
}

// rewriteAttr routes one attribute value: fetched URLs become relative
// local paths, on-site PHP URLs become their static equivalents, other
// on-site URLs keep only their path, and external URLs stay absolute.
func (m *Mapper) rewriteAttr(s *goquery.Selection, attr, pageDir string) {
	value, ok := s.Attr(attr)
	if !ok || value == "" {
		return
	}
	clean := CleanURL(value)
	if clean == "" {
		return
	}
	if local, ok := m.Lookup(clean); ok {
		s.SetAttr(attr, relativePath(pageDir, local))
		return
	}
	if m.IsOurDomain(clean) {
		if htmlPath, ok := m.PHPHTMLPath(clean); ok {
			s.SetAttr(attr, relativePath(pageDir, strings.TrimLeft(htmlPath, "/")))
			return
		}
		if u, err := url.Parse(clean); err == nil && u.Path != "" {
			s.SetAttr(attr, u.Path)
		} else {
			s.SetAttr(attr, "/")
		}
		return
	}
	s.SetAttr(attr, clean)
}

func (m *Mapper) rewriteSrcsets(doc *goquery.Document, pageDir string) {
	doc.Find("[srcset]").Each(func(_ int, s *goquery.Selection) {
		srcset, _ := s.Attr("srcset")
		var out []string
		for _, part := range strings.Split(srcset, ",") {
			fields := strings.Fields(part)
			if len(fields) == 0 {
				continue
			}
			if clean := CleanURL(fields[0]); clean != "" {
				if local, ok := m.Lookup(clean); ok {
					fields[0] = relativePath(pageDir, local)
				} else {
					fields[0] = clean
				}
			}
			out = append(out, strings.Join(fields, " "))
		}
		s.SetAttr("srcset", strings.Join(out, ", "))
	})
}

// rewritePHPHrefs converts the relative dynamic links the site used for
// navigation, like index.php?action=contact, into their static file names.
func rewritePHPHrefs(doc *goquery.Document) {
	doc.Find("[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		for _, prefix := range hrefSkipPrefixes {
			if strings.HasPrefix(href, prefix) {
				return
			}
		}
		if match := phpActionPattern.FindStringSubmatch(href); match != nil {
			clean := nonWordPattern.ReplaceAllString(match[1], "_")
			dir := path.Dir(strings.Split(href, "?")[0])
			if dir != "" && dir != "." {
				s.SetAttr("href", dir+"/"+clean+".html")
			} else {
				s.SetAttr("href", clean+".html")
			}
			return
		}
		if strings.HasSuffix(href, ".php") {
			s.SetAttr("href", strings.TrimSuffix(href, ".php")+".html")
			return
		}
		if strings.Contains(href, ".php?") {
			pieces := strings.Split(href, "?")
			base := strings.TrimSuffix(pieces[0], ".php")
			s.SetAttr("href", base+"_"+queryHash(pieces[1])+".html")
		}
	})
}

func rewritePHPSrcs(doc *goquery.Document) {
	doc.Find("[src]").Each(func(_ int, s *goquery.Selection) {
		if src, _ := s.Attr("src"); strings.HasSuffix(src, ".php") {
			s.SetAttr("src", strings.TrimSuffix(src, ".php")+".html")
		}
	})
}

// Form actions never carry a directory, the site posts to top-level
// handlers only.
func rewriteFormActions(doc *goquery.Document) {
	doc.Find("form[action]").Each(func(_ int, s *goquery.Selection) {
		action, _ := s.Attr("action")
		if strings.HasSuffix(action, ".php") {
			s.SetAttr("action", strings.TrimSuffix(action, ".php")+".html")
		} else if match := phpActionPattern.FindStringSubmatch(action); match != nil {
			s.SetAttr("action", nonWordPattern.ReplaceAllString(match[1], "_")+".html")
		}
	})
}

// relativizeAttr turns absolute site paths like /css/style.css into paths
// relative to the page's directory.
func relativizeAttr(doc *goquery.Document, attr, pageDir string) {
	doc.Find("[" + attr + "]").Each(func(_ int, s *goquery.Selection) {
		value, _ := s.Attr(attr)
		if strings.HasPrefix(value, "/") && !strings.HasPrefix(value, "//") {
			s.SetAttr(attr, relativePath(pageDir, strings.TrimLeft(value, "/")))
		}
	})
}

// fixProtocolRelative resolves // prefixes: local file references lose the
// slashes, real external hosts gain https.
func fixProtocolRelative(doc *goquery.Document) {
	doc.Find("[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if !strings.HasPrefix(href, "//") {
			return
		}
		rest := href[2:]
		switch {
		case strings.HasSuffix(rest, ".html") || strings.Contains(rest, ".html?") || strings.Contains(rest, ".html#"):
			s.SetAttr("href", rest)
		case !strings.Contains(strings.SplitN(rest, "/", 2)[0], "."):
			s.SetAttr("href", rest)
		default:
			s.SetAttr("href", "https:"+href)
		}
	})
	doc.Find("[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if !strings.HasPrefix(src, "//") {
			return
		}
		rest := src[2:]
		switch {
		case strings.HasSuffix(rest, ".html") || strings.Contains(rest, ".html?"):
			s.SetAttr("src", rest)
		case !strings.Contains(strings.SplitN(rest, "/", 2)[0], "."):
			s.SetAttr("src", rest)
		default:
			s.SetAttr("src", "https:"+src)
		}
	})
}

// fixMalformedLocals repairs links where a bare file name ended up in the
// host position, like https://booking.html, and gives the remaining
// protocol-relative action, data and poster values a scheme.
func fixMalformedLocals(doc *goquery.Document) {
	doc.Find("[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if hostHTMLPattern.MatchString(href) || hostHTMLQueryPattern.MatchString(href) {
			s.SetAttr("href", strings.SplitN(href, "://", 2)[1])
		}
	})
	doc.Find("[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if hostHTMLPattern.MatchString(src) {
			s.SetAttr("src", strings.SplitN(src, "://", 2)[1])
		}
	})
	for _, attr := range []string{"action", "data", "poster"} {
		doc.Find("[" + attr + "]").Each(func(_ int, s *goquery.Selection) {
			if value, _ := s.Attr(attr); strings.HasPrefix(value, "//") {
				s.SetAttr(attr, "https:"+value)
			}
		})
	}
}

func relativizeSrcsets(doc *goquery.Document, pageDir string) {
	doc.Find("[srcset]").Each(func(_ int, s *goquery.Selection) {
		srcset, _ := s.Attr("srcset")
		var out []string
		for _, part := range strings.Split(srcset, ",") {
			fields := strings.Fields(part)
			if len(fields) > 0 {
				if strings.HasPrefix(fields[0], "//") {
					fields[0] = "https:" + fields[0]
				} else if strings.HasPrefix(fields[0], "/") {
					fields[0] = relativePath(pageDir, strings.TrimLeft(fields[0], "/"))
				}
			}
			out = append(out, strings.Join(fields, " "))
		}
		s.SetAttr("srcset", strings.Join(out, ", "))
	})
}

func (m *Mapper) rewriteInlineCSS(doc *goquery.Document, pageDir string) {
	doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		style, _ := s.Attr("style")
		s.SetAttr("style", m.rewriteCSSURLs(style, pageDir))
	})
	doc.Find("style").Each(func(_ int, s *goquery.Selection) {
		if body := s.Text(); body != "" {
			s.SetText(m.rewriteCSSURLs(body, pageDir))
		}
	})
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
