package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContentFile(t *testing.T) {
	data := []byte(`---
target_html: events.html
---

<!-- block: element: #newContent -->
# Upcoming

New shows soon.

<!--block: element: .blurb-->
A new blurb.
`)

	file, err := parseContentFile("updates.md", data)
	require.NoError(t, err)

	assert.Equal(t, "events.html", file.TargetHTML)
	require.Len(t, file.Blocks, 2)
	assert.Equal(t, "#newContent", file.Blocks[0].Selector)
	assert.Equal(t, "# Upcoming\n\nNew shows soon.", file.Blocks[0].Markdown)
	assert.Equal(t, ".blurb", file.Blocks[1].Selector)
	assert.Equal(t, "A new blurb.", file.Blocks[1].Markdown)
}

func TestParseContentFileErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"no frontmatter", "# Just markdown\n", "no yaml frontmatter"},
		{"frontmatter not first", "\n---\ntarget_html: x\n---\n\n<!-- block: element: #x -->\nhi\n", "no yaml frontmatter"},
		{"no target", "---\nauthor: someone\n---\n\n<!-- block: element: #x -->\nhi\n", "no target_html"},
		{"bad yaml", "---\n\t:bad\n---\n\n<!-- block: element: #x -->\nhi\n", "frontmatter in"},
		{"no blocks", "---\ntarget_html: index.html\n---\n\nJust prose, no markers.\n", "no content blocks"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseContentFile("bad.md", []byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConvertRendersBlocks(t *testing.T) {
	file := &ContentFile{
		Name:       "updates.md",
		TargetHTML: "index.html",
		Blocks: []Block{
			{Selector: "#newContent", Markdown: "# Title\n\nSee [the site](https://example.com)."},
		},
	}

	require.NoError(t, file.convert())
	assert.Contains(t, file.Blocks[0].HTML, "<h1>Title</h1>")
	assert.Contains(t, file.Blocks[0].HTML, `<a href="https://example.com">the site</a>`)
}

func TestRenderMarkdownTables(t *testing.T) {
	html, err := renderMarkdown("| Band | Year |\n|------|------|\n| Jumbled | 2015 |")
	require.NoError(t, err)

	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<td>Jumbled</td>")
}
