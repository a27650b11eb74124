package editor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const eventsWithLastShow = `<html><body><div class="text">
<p><b>Wednesday, November 11th</b><br/>
LAST SHOW AT 1731 MARYAND AVE<br/>
Eze Jackson<br/>
Dylijens<br/>
Cornelius the Third<br/>
Kahlil Ali<br/>
Jumbled<br/>
8pm | $8 | All Ages</p>
<p><a href="past.html">Past Events</a></p>
</div></body></html>`

const pastWithShows = `<html><body><div class="text">
1. <b>Saturday, January 1st, 2005</b><br/>First show<br/>
74. <b>Friday, October 30th</b><br/>Halloween show<br/>
<p>NOTICE: DUE TO UNFORSEEN CIRCUMSTANCES, SOME SHOWS MAY BE CANCELLED</p>
</div></body></html>`

func testEditor(t *testing.T) *Editor {
	t.Helper()
	return New(Config{
		ArchiveDir: filepath.Join(t.TempDir(), "archive"),
		PublishDir: t.TempDir(),
	}, zap.NewNop())
}

func writePublish(t *testing.T, e *Editor, files map[string]string) {
	t.Helper()
	for name, body := range files {
		full := filepath.Join(e.cfg.PublishDir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o750))
		require.NoError(t, os.WriteFile(full, []byte(body), 0o600))
	}
}

func readPublish(t *testing.T, e *Editor, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(e.cfg.PublishDir, filepath.FromSlash(name)))
	require.NoError(t, err)
	return string(data)
}

func TestMoveLastShow(t *testing.T) {
	e := testEditor(t)
	writePublish(t, e, map[string]string{
		"events.html": eventsWithLastShow,
		"past.html":   pastWithShows,
	})

	assert.True(t, e.moveLastShow())

	events := readPublish(t, e, "events.html")
	assert.NotContains(t, events, "LAST SHOW AT 1731 MARYAND AVE")
	assert.NotContains(t, events, "Jumbled")
	assert.Contains(t, events, "Past Events")

	past := readPublish(t, e, "past.html")
	entry := "<p>75. <b>Wednesday, November 11th</b><br>" +
		"LAST SHOW AT 1731 MARYAND AVE<br>" +
		"Eze Jackson<br>Dylijens<br>Cornelius the Third<br>Kahlil Ali<br>Jumbled</p>"
	assert.Contains(t, past, entry)
	assert.Less(t, strings.Index(past, entry), strings.Index(past, "NOTICE:"))
}

func TestMoveLastShowAlreadyOnPastPage(t *testing.T) {
	e := testEditor(t)
	pastDone := strings.Replace(pastWithShows,
		"74. <b>Friday, October 30th</b><br/>Halloween show<br/>",
		"74. <b>Friday, October 30th</b><br/>Halloween show<br/>\n75. <b>Wednesday, November 11th</b><br/>LAST SHOW AT 1731 MARYAND AVE<br/>\n", 1)
	writePublish(t, e, map[string]string{
		"events.html": eventsWithLastShow,
		"past.html":   pastDone,
	})

	assert.True(t, e.moveLastShow())

	// The show left the events page but past.html was not touched.
	assert.NotContains(t, readPublish(t, e, "events.html"), "LAST SHOW AT 1731 MARYAND AVE")
	assert.Equal(t, pastDone, readPublish(t, e, "past.html"))
}

func TestMoveLastShowWithoutMarker(t *testing.T) {
	e := testEditor(t)
	writePublish(t, e, map[string]string{
		"events.html": `<html><body><p>nothing here</p></body></html>`,
		"past.html":   pastWithShows,
	})

	assert.False(t, e.moveLastShow())
}

func TestMoveLastShowMissingPages(t *testing.T) {
	e := testEditor(t)
	writePublish(t, e, map[string]string{"events.html": eventsWithLastShow})
	assert.False(t, e.moveLastShow())
}

func TestAddContentDivs(t *testing.T) {
	e := testEditor(t)
	writePublish(t, e, map[string]string{
		"index.html": "<html><body><div class=\"blurb\">Artists come " +
			"from all over to showcase their work in our fine city.<br/>\n</div></body></html>",
		"events.html": "<html><body>" + eventsBlurbMarker + "</body></html>",
	})

	added := e.addContentDivs()
	assert.Equal(t, []string{"index.html", "events.html"}, added)

	index := readPublish(t, e, "index.html")
	assert.Contains(t, index, indexBlurbMarker+"\n<div id=\"newContent\"></div>")
	events := readPublish(t, e, "events.html")
	assert.Contains(t, events, eventsBlurbMarker+"\n<div id=\"newContent\"></div>")

	// Running again finds the divs already in place.
	assert.Empty(t, e.addContentDivs())
	assert.Equal(t, index, readPublish(t, e, "index.html"))
}

func TestAddContentDivsWithoutMarkers(t *testing.T) {
	e := testEditor(t)
	writePublish(t, e, map[string]string{
		"index.html": `<html><body><p>different layout</p></body></html>`,
	})
	assert.Empty(t, e.addContentDivs())
}
