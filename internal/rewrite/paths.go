package rewrite

import (
	"crypto/md5" // #nosec G501 -- short non-cryptographic name hashes only
	"encoding/hex"
	"net/url"
	"path"
	"strings"
)

// Mapper tracks where each fetched URL lives in the mirror tree and how
// dynamic PHP links translate to static file names. Paths are slash
// separated and relative to the mirror root.
type Mapper struct {
	domain     string
	urlToLocal map[string]string
	phpToHTML  map[string]string
}

// NewMapper returns a Mapper for one site.
func NewMapper(domain string) *Mapper {
	return &Mapper{
		domain:     domain,
		urlToLocal: make(map[string]string),
		phpToHTML:  make(map[string]string),
	}
}

// IsOurDomain reports whether the URL belongs to the mirrored site, with or
// without a www prefix.
func (m *Mapper) IsOurDomain(rawURL string) bool {
	return strings.Contains(rawURL, m.domain)
}

// Record remembers the local file a URL was saved to.
func (m *Mapper) Record(rawURL, localPath string) {
	m.urlToLocal[rawURL] = localPath
}

// Lookup returns the local file previously recorded for a URL.
func (m *Mapper) Lookup(rawURL string) (string, bool) {
	local, ok := m.urlToLocal[rawURL]
	return local, ok
}

// LocalPath converts a URL to the mirror-relative file path it will be
// saved under. The site root becomes index.html, extensionless paths gain
// /index.html, action queries become named HTML files, other query strings
// are folded into the name as a short hash, and .php turns into .html.
func (m *Mapper) LocalPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	p := strings.Trim(u.Path, "/")
	if p == "" {
		p = "index.html"
	} else if !strings.Contains(path.Base(p), ".") {
		p += "/index.html"
	}

	if u.RawQuery != "" {
		action := u.Query().Get("action")
		if action != "" && strings.HasSuffix(p, ".php") {
			clean := nonWordPattern.ReplaceAllString(action, "_")
			if dir := path.Dir(p); dir != "." {
				p = dir + "/" + clean + ".html"
			} else {
				p = clean + ".html"
			}
			m.phpToHTML[u.Path+"?action="+action] = p
		} else {
			hash := queryHash(u.RawQuery)
			ext := path.Ext(p)
			p = strings.TrimSuffix(p, ext) + "_" + hash + ext
		}
	}

	if strings.HasSuffix(p, ".php") {
		p = strings.TrimSuffix(p, ".php") + ".html"
	}
	return p
}

// PHPHTMLPath converts a PHP URL to the static HTML path it maps to.
// Action URLs resolve through the recorded mapping when available; plain
// .php paths swap the extension in place, keeping any leading slash.
func (m *Mapper) PHPHTMLPath(rawURL string) (string, bool) {
	if rawURL == "" {
		return "", false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}

	if u.RawQuery != "" && strings.HasSuffix(u.Path, ".php") {
		if action := u.Query().Get("action"); action != "" {
			if local, ok := m.phpToHTML[u.Path+"?action="+action]; ok {
				return local, true
			}
			clean := nonWordPattern.ReplaceAllString(action, "_")
			if dir := path.Dir(strings.Trim(u.Path, "/")); dir != "." {
				return dir + "/" + clean + ".html", true
			}
			return clean + ".html", true
		}
	}

	if strings.HasSuffix(u.Path, ".php") {
		return strings.TrimSuffix(u.Path, ".php") + ".html", true
	}
	return "", false
}

func queryHash(query string) string {
	sum := md5.Sum([]byte(query)) // #nosec G401 -- filename disambiguation, not security
	return hex.EncodeToString(sum[:])[:8]
}
