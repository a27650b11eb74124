package editor

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// These passes run over raw HTML text. events.html carries malformed
// nested <p> tags that the parser would restructure, merging the show
// paragraph into the navigation links, so the parser stays out of it.

const lastShowMarker = "LAST SHOW AT 1731 MARYAND AVE"

var (
	lastShowPattern = regexp.MustCompile(`(?is)<p[^>]*>\s*<b>\s*Wednesday,\s*November\s*11th.*?` +
		lastShowMarker + `.*?Jumbled\b.*?</p>`)
	showNumberPattern = regexp.MustCompile(`(?m)^(\d{1,4})\.`)
)

// Markers after which the content-injection target div goes, byte for byte
// as the fetch stage renders them.
const (
	indexBlurbMarker  = "from all over to showcase their work in our fine city.<br/>\n</div>"
	eventsBlurbMarker = `<div class="blurb">CCAS is dedicated to promoting independent arts of all mediums ` +
		`in Baltimore City.  Click the link below to find out about  our  gallery schedule.</div>`
	contentDiv = "\n" + `<div id="newContent"></div>`
)

// moveLastShow relocates the final 1731 Maryland Ave show from events.html
// to past.html, renumbered to follow the last archived show.
func (e *Editor) moveLastShow() bool {
	eventsPath := filepath.Join(e.cfg.PublishDir, "events.html")
	pastPath := filepath.Join(e.cfg.PublishDir, "past.html")

	events, err := os.ReadFile(eventsPath) // #nosec G304 -- fixed name under the publish dir
	if err != nil {
		e.logger.Warn("Could not read events page", zap.Error(err))
		return false
	}
	past, err := os.ReadFile(pastPath) // #nosec G304 -- fixed name under the publish dir
	if err != nil {
		e.logger.Warn("Could not read past events page", zap.Error(err))
		return false
	}

	eventsHTML := string(events)
	if !strings.Contains(eventsHTML, lastShowMarker) {
		e.logger.Warn("Last show not found on events page")
		return false
	}

	loc := lastShowPattern.FindStringIndex(eventsHTML)
	if loc == nil {
		e.logger.Warn("Last show block did not match on events page")
		return false
	}
	trimmed := eventsHTML[:loc[0]] + eventsHTML[loc[1]:]
	if err := os.WriteFile(eventsPath, []byte(trimmed), 0o600); err != nil {
		e.logger.Warn("Could not write events page", zap.Error(err))
		return false
	}

	pastHTML := string(past)
	if strings.Contains(pastHTML, lastShowMarker) {
		e.logger.Info("Last show already present on past events page")
		return true
	}

	lastNumber := 0
	for _, match := range showNumberPattern.FindAllStringSubmatch(pastHTML, -1) {
		if n, err := strconv.Atoi(match[1]); err == nil && n > lastNumber {
			lastNumber = n
		}
	}
	entry := fmt.Sprintf("<p>%d. <b>Wednesday, November 11th</b><br>"+
		"LAST SHOW AT 1731 MARYAND AVE<br>"+
		"Eze Jackson<br>"+
		"Dylijens<br>"+
		"Cornelius the Third<br>"+
		"Kahlil Ali<br>"+
		"Jumbled</p>\n", lastNumber+1)

	if noticePos := strings.Index(pastHTML, "NOTICE: DUE TO UNFORSEEN"); noticePos >= 0 {
		if insertPos := strings.LastIndex(pastHTML[:noticePos], "<p"); insertPos >= 0 {
			return e.writePastEntry(pastPath, pastHTML[:insertPos]+entry+pastHTML[insertPos:], lastNumber+1)
		}
	}

	// No notice paragraph: land after the highest-numbered show instead.
	if from := strings.LastIndex(pastHTML, strconv.Itoa(lastNumber)+"."); from >= 0 {
		if end := strings.Index(pastHTML[from:], "</div>"); end >= 0 {
			pos := from + end
			return e.writePastEntry(pastPath, pastHTML[:pos]+entry+pastHTML[pos:], lastNumber+1)
		}
	}

	e.logger.Warn("No insertion point on past events page")
	return false
}

func (e *Editor) writePastEntry(path, html string, number int) bool {
	if err := os.WriteFile(path, []byte(html), 0o600); err != nil {
		e.logger.Warn("Could not write past events page", zap.Error(err))
		return false
	}
	e.logger.Info("Moved last show to past events", zap.Int("number", number))
	return true
}

// addContentDivs drops an empty div#newContent after the blurb on the index
// and events pages, giving the content stage a stable splice target.
// Returns the pages that received one this run.
func (e *Editor) addContentDivs() []string {
	var added []string
	for _, target := range []struct {
		page   string
		marker string
	}{
		{"index.html", indexBlurbMarker},
		{"events.html", eventsBlurbMarker},
	} {
		path := filepath.Join(e.cfg.PublishDir, target.page)
		data, err := os.ReadFile(path) // #nosec G304 -- fixed name under the publish dir
		if err != nil {
			continue
		}
		page := string(data)
		if !strings.Contains(page, target.marker) || strings.Contains(page, target.marker+contentDiv) {
			continue
		}
		page = strings.Replace(page, target.marker, target.marker+contentDiv, 1)
		if err := os.WriteFile(path, []byte(page), 0o600); err != nil {
			e.logger.Warn("Could not write injection point", zap.String("page", target.page), zap.Error(err))
			continue
		}
		added = append(added, target.page)
		e.logger.Info("Added injection point", zap.String("page", target.page))
	}
	return added
}
