package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRewriteCSS(t *testing.T) {
	m := NewMapper("ccspace.org")
	m.Record("http://www.ccspace.org/images/bg.png", "images/bg.png")

	css := `body { background: url(https://web.archive.org/web/20170509211847im_/http://www.ccspace.org/images/bg.png); }
.header { background: url('/images/header.jpg'); }
.icon { background: url(data:image/png;base64,AA==); }
.ext { background: url(//cdn.example.com/tile.png); }`

	got := m.RewriteCSS(css, "css/style.css")

	assert.Contains(t, got, `url("../images/bg.png")`)
	assert.Contains(t, got, `url("../images/header.jpg")`)
	assert.Contains(t, got, "url(data:image/png;base64,AA==)")
	assert.Contains(t, got, `url("https://cdn.example.com/tile.png")`)
}

func TestRewriteCSSAtRoot(t *testing.T) {
	m := NewMapper("ccspace.org")

	got := m.RewriteCSS(`.a { background: url("/images/bg.png"); }`, "style.css")

	assert.Contains(t, got, `url("images/bg.png")`)
}
