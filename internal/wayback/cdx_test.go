package wayback

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testCDXClient(t *testing.T, endpoint string) *CDXClient {
	t.Helper()
	cdx := NewCDXClient(ClientConfig{
		UserAgent:      "archivist-test",
		RequestTimeout: 5 * time.Second,
	}, zap.NewNop())
	cdx.endpoint = endpoint
	return cdx
}

func TestListPages(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		q := r.URL.Query()
		assert.Equal(t, "json", q.Get("output"))
		assert.Equal(t, "statuscode:200", q.Get("filter"))
		assert.Equal(t, "original,timestamp,mimetype", q.Get("fl"))
		assert.Equal(t, "20170509", q.Get("from"))
		assert.Equal(t, "20170509", q.Get("to"))

		var rows [][]string
		switch q.Get("url") {
		case "www.ccspace.org/*":
			rows = [][]string{
				{"original", "timestamp", "mimetype"},
				{"http://www.ccspace.org/", "20170509211847", "text/html"},
				{"http://www.ccspace.org/events.php", "20170501000000", "text/html"},
				{"http://www.ccspace.org/events.php", "20170509120000", "text/html"},
				{"http://www.ccspace.org/css/style.css", "20170509211847", "text/css"},
			}
		case "ccspace.org/*":
			rows = [][]string{
				{"original", "timestamp", "mimetype"},
				{"http://ccspace.org/about", "20170509211847", ""},
			}
		default:
			t.Errorf("unexpected url parameter %q", q.Get("url"))
		}
		require.NoError(t, json.NewEncoder(w).Encode(rows))
	}))
	defer srv.Close()

	cdx := testCDXClient(t, srv.URL)
	captures, err := cdx.ListPages(context.Background(), "ccspace.org", "20170509211847")
	require.NoError(t, err)

	// One capture per URL with the timestamp closest to the snapshot, HTML
	// and unknown types only, both hostname forms queried.
	assert.Equal(t, []Capture{
		{Original: "http://ccspace.org/about", Timestamp: "20170509211847"},
		{Original: "http://www.ccspace.org/", Timestamp: "20170509211847"},
		{Original: "http://www.ccspace.org/events.php", Timestamp: "20170509120000"},
	}, captures)
	assert.Equal(t, 2, requests)
}

func TestListPagesWidensToYear(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		q := r.URL.Query()

		rows := [][]string{{"original", "timestamp", "mimetype"}}
		if q.Get("from") == "2017" {
			assert.Equal(t, "2017", q.Get("to"))
			if q.Get("url") == "www.ccspace.org/*" {
				rows = append(rows, []string{"http://www.ccspace.org/", "20170101000000", "text/html"})
			}
		}
		require.NoError(t, json.NewEncoder(w).Encode(rows))
	}))
	defer srv.Close()

	cdx := testCDXClient(t, srv.URL)
	captures, err := cdx.ListPages(context.Background(), "ccspace.org", "20170509211847")
	require.NoError(t, err)

	assert.Equal(t, []Capture{
		{Original: "http://www.ccspace.org/", Timestamp: "20170101000000"},
	}, captures)
	// Two day queries come up empty before the two year queries run.
	assert.Equal(t, 4, requests)
}

func TestListPagesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cdx := testCDXClient(t, srv.URL)
	_, err := cdx.ListPages(context.Background(), "ccspace.org", "20170509211847")
	require.Error(t, err)
}

func TestListPagesShortTimestamp(t *testing.T) {
	cdx := testCDXClient(t, defaultCDXEndpoint)
	_, err := cdx.ListPages(context.Background(), "ccspace.org", "2017")
	require.Error(t, err)
}
