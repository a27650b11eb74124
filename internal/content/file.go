package content

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"
)

var (
	frontmatterPattern = regexp.MustCompile(`(?s)^---\s*\n(.*?)\n---\s*\n`)
	blockPattern       = regexp.MustCompile(`<!--\s*block:\s*element:\s*([^\s]+)\s*-->`)
)

// Block is one markdown fragment bound to a CSS selector in the target page.
type Block struct {
	Selector string
	Markdown string
	HTML     string
}

// ContentFile is one parsed markdown file from the content tree: YAML
// frontmatter naming the target page, then selector-marked blocks.
type ContentFile struct {
	Name       string
	TargetHTML string
	Blocks     []Block
}

// parseContentFile splits a content file into its target page and blocks.
// Each block runs from its marker to the next marker or end of file.
func parseContentFile(name string, data []byte) (*ContentFile, error) {
	loc := frontmatterPattern.FindSubmatchIndex(data)
	if loc == nil {
		return nil, fmt.Errorf("no yaml frontmatter in %s", name)
	}

	var header struct {
		TargetHTML string `yaml:"target_html"`
	}
	if err := yaml.Unmarshal(data[loc[2]:loc[3]], &header); err != nil {
		return nil, fmt.Errorf("frontmatter in %s: %w", name, err)
	}
	if header.TargetHTML == "" {
		return nil, fmt.Errorf("no target_html in frontmatter of %s", name)
	}

	body := data[loc[1]:]
	markers := blockPattern.FindAllSubmatchIndex(body, -1)
	if len(markers) == 0 {
		return nil, fmt.Errorf("no content blocks in %s", name)
	}

	file := &ContentFile{Name: name, TargetHTML: header.TargetHTML}
	for i, m := range markers {
		end := len(body)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		file.Blocks = append(file.Blocks, Block{
			Selector: string(body[m[2]:m[3]]),
			Markdown: strings.TrimSpace(string(body[m[1]:end])),
		})
	}
	return file, nil
}

// convert renders every block's markdown to HTML.
func (f *ContentFile) convert() error {
	for i := range f.Blocks {
		html, err := renderMarkdown(f.Blocks[i].Markdown)
		if err != nil {
			return fmt.Errorf("convert block %d of %s: %w", i+1, f.Name, err)
		}
		f.Blocks[i].HTML = html
	}
	return nil
}

// renderMarkdown converts one markdown fragment to HTML with GFM extensions
// so content authors get tables and autolinks.
func renderMarkdown(src string) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
