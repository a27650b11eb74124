package mirror

import (
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// refAttrs are the attributes checked during link verification.
var refAttrs = map[string]bool{
	"href":   true,
	"src":    true,
	"action": true,
	"data":   true,
	"poster": true,
}

// skipRefPrefixes mark references that point outside the tree or are not
// files at all.
var skipRefPrefixes = []string{
	"http://", "https://", "//", "mailto:", "tel:", "javascript:", "data:",
}

// verifyLinks walks the finished tree and checks that every local reference
// in every HTML page resolves to a file that exists. Problems are logged
// and reported, never fatal.
func (m *Mirror) verifyLinks() []string {
	var dangling []string
	seen := make(map[string]struct{})

	m.walkSuffix(".html", func(full, local string) {
		refs, err := m.pageRefs(full)
		if err != nil {
			m.logger.Warn("Link check parse failed", zap.String("path", local), zap.Error(err))
			return
		}
		for _, ref := range refs {
			target, ok := localTarget(local, ref)
			if !ok {
				continue
			}
			if _, err := os.Stat(filepath.Join(m.cfg.OutputDir, filepath.FromSlash(target))); err == nil {
				continue
			}
			key := local + " -> " + ref
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			dangling = append(dangling, key)
			m.logger.Warn("Dangling link", zap.String("page", local), zap.String("target", ref))
		}
	})

	sort.Strings(dangling)
	return dangling
}

// pageRefs collects every reference attribute value from one HTML file.
func (m *Mirror) pageRefs(fullPath string) ([]string, error) {
	f, err := os.Open(fullPath) // #nosec G304 -- path comes from walking our own output tree
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			m.logger.Debug("Page close failed", zap.Error(cerr))
		}
	}()

	doc, err := html.Parse(f)
	if err != nil {
		return nil, err
	}

	var refs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, attr := range n.Attr {
				switch {
				case refAttrs[attr.Key]:
					refs = append(refs, attr.Val)
				case attr.Key == "srcset":
					for _, part := range strings.Split(attr.Val, ",") {
						if fields := strings.Fields(part); len(fields) > 0 {
							refs = append(refs, fields[0])
						}
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return refs, nil
}

// localTarget resolves ref against the page's directory and reports whether
// it names a file inside the tree. External URLs, bare fragments, and
// non-file schemes are not checked.
func localTarget(pagePath, ref string) (string, bool) {
	if ref == "" || strings.HasPrefix(ref, "#") {
		return "", false
	}
	lower := strings.ToLower(ref)
	for _, prefix := range skipRefPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return "", false
		}
	}

	trimmed := ref
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	if trimmed == "" {
		return "", false
	}

	var resolved string
	if strings.HasPrefix(trimmed, "/") {
		resolved = path.Clean(strings.TrimPrefix(trimmed, "/"))
	} else {
		resolved = path.Clean(path.Join(path.Dir(pagePath), trimmed))
	}
	if resolved == "." || resolved == ".." || strings.HasPrefix(resolved, "../") {
		return "", false
	}
	return resolved, true
}
