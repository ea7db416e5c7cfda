package tavily

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/curtisnewbie/miso/miso"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedReq struct {
	path string
	auth string
	body map[string]any
}

func newTestServer(t *testing.T, status int, res string) (*httptest.Server, *[]recordedReq) {
	t.Helper()
	var reqs []recordedReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(buf, &body)
		reqs = append(reqs, recordedReq{path: r.URL.Path, auth: r.Header.Get("Authorization"), body: body})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(res))
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func TestNewClientMissingKey(t *testing.T) {
	_, err := NewClient("")
	assert.ErrorContains(t, err, "missing API key")
}

func TestSearch(t *testing.T) {
	srv, reqs := newTestServer(t, 200, `{"query":"ceo of tavily","results":[{"title":"Tavily","url":"https://tavily.com","content":"Rotem Weiss, CEO","score":0.9}],"response_time":1.2}`)
	c, err := NewClient("tvly-test", WithBaseURL(srv.URL+"/"), WithHTTPClient(nil))
	require.NoError(t, err)

	res, err := c.Search(miso.EmptyRail(), SearchReq{Query: "ceo of tavily", Topic: TopicGeneral, MaxResults: 10})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "https://tavily.com", res.Results[0].URL)
	assert.Equal(t, 0.9, res.Results[0].Score)

	require.Len(t, *reqs, 1)
	r := (*reqs)[0]
	assert.Equal(t, "/search", r.path)
	assert.Equal(t, "Bearer tvly-test", r.auth)
	assert.Equal(t, "ceo of tavily", r.body["query"])
	assert.Equal(t, "general", r.body["topic"])
	assert.Equal(t, float64(10), r.body["max_results"])
	assert.NotContains(t, r.body, "include_domains")
}

func TestExtractAndCrawl(t *testing.T) {
	srv, reqs := newTestServer(t, 200, `{"results":[{"url":"https://docs.tavily.com","raw_content":"# Docs"}],"failed_results":[{"url":"https://bad.example","error":"timeout"}]}`)
	c, err := NewClient("tvly-test", WithBaseURL(srv.URL))
	require.NoError(t, err)

	er, err := c.Extract(miso.EmptyRail(), ExtractReq{URLs: []string{"https://docs.tavily.com"}, ExtractDepth: DepthAdvanced})
	require.NoError(t, err)
	assert.Equal(t, "# Docs", er.Results[0].RawContent)
	require.Len(t, er.FailedResults, 1)
	assert.Equal(t, "timeout", er.FailedResults[0].Error)

	cr, err := c.Crawl(miso.EmptyRail(), CrawlReq{URL: "https://docs.tavily.com", MaxDepth: 1, MaxBreadth: 20, Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, "https://docs.tavily.com", cr.Results[0].URL)

	require.Len(t, *reqs, 2)
	assert.Equal(t, "/extract", (*reqs)[0].path)
	assert.Equal(t, "advanced", (*reqs)[0].body["extract_depth"])
	assert.Equal(t, "/crawl", (*reqs)[1].path)
	assert.Equal(t, float64(50), (*reqs)[1].body["limit"])
}

func TestApiError(t *testing.T) {
	srv, _ := newTestServer(t, 401, `{"detail":{"error":"Unauthorized: missing or invalid API key."}}`)
	c, err := NewClient("tvly-bad", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = c.Search(miso.EmptyRail(), SearchReq{Query: "q"})
	var ae *ApiError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, 401, ae.StatusCode)
	assert.Equal(t, "/search", ae.Path)
	assert.Contains(t, ae.Error(), "Unauthorized")
}

func TestInjectedClientKeepsTimeout(t *testing.T) {
	c, err := NewClient("tvly-test", WithHTTPClient(http.DefaultClient))
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, c.client.Timeout)
	assert.Equal(t, time.Duration(0), http.DefaultClient.Timeout)

	own := &http.Client{Timeout: 3 * time.Second}
	c, err = NewClient("tvly-test", WithHTTPClient(own))
	require.NoError(t, err)
	assert.Same(t, own, c.client)
}

func TestStalledRequestTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient("tvly-test", WithBaseURL(srv.URL), WithHTTPClient(&http.Client{}), WithTimeout(100*time.Millisecond))
	require.NoError(t, err)

	start := time.Now()
	_, err = c.Search(miso.EmptyRail(), SearchReq{Query: "q"})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)
}
