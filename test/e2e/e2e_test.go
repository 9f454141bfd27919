//go:build e2e

package e2e

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/cloo-solutions/archivesearch/internal/domain"
	"github.com/cloo-solutions/archivesearch/internal/jobs"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchPayload struct {
	Domain string `json:"domain"`
	domain.SearchOutcome
	GeneratedAtDisplay string `json:"generated_at_display"`
}

func TestE2E_SearchAPI(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	t.Run("unfiltered listing", func(t *testing.T) {
		resp, err := env.SearchAPI(" https://example.com/ ", "")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var payload searchPayload
		require.NoError(t, json.Unmarshal(resp.Data, &payload))
		assert.Equal(t, "example.com", payload.Domain)
		assert.Equal(t, 4, payload.MatchedCount)
		require.Len(t, payload.Entries, 4)
		assert.Equal(t, 4, payload.Entries[3].Number)
		assert.Nil(t, payload.QueryDisplay)
		assert.NotEmpty(t, payload.GeneratedAtDisplay)
	})

	t.Run("query filters captures", func(t *testing.T) {
		resp, err := env.SearchAPI("example.com", "BLOG")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var payload searchPayload
		require.NoError(t, json.Unmarshal(resp.Data, &payload))
		assert.Equal(t, "example.com", payload.Domain)
		assert.Equal(t, 2, payload.MatchedCount)
		require.Len(t, payload.Entries, 2)
		assert.Equal(t, 1, payload.Entries[0].Number)
		assert.Equal(t, "https://web.archive.org/web/20200202000000/http://example.com/blog/hello", payload.Entries[0].DisplayURL)
		assert.Equal(t, "https://web.archive.org/web/20200404000000/http://example.com/Blog/archive", payload.FlatURLs[1])
		require.NotNil(t, payload.QueryDisplay)
		assert.Equal(t, "BLOG", *payload.QueryDisplay)
	})

	t.Run("phrase query", func(t *testing.T) {
		resp, err := env.SearchAPI("example.com", "'about-us'")
		require.NoError(t, err)

		var payload searchPayload
		require.NoError(t, json.Unmarshal(resp.Data, &payload))
		assert.Equal(t, 1, payload.MatchedCount)
	})

	t.Run("unknown domain", func(t *testing.T) {
		resp, err := env.SearchAPI("nothing-here.org", "")
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "No results found for this domain.", resp.Error)
		assert.Equal(t, "nothing-here.org", resp.Domain)
	})

	t.Run("invalid url", func(t *testing.T) {
		resp, err := env.SearchAPI("exa mple.com", "")
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Invalid URL format.", resp.Error)
	})

	t.Run("archive offline", func(t *testing.T) {
		env.CDX.Offline.Store(true)
		defer env.CDX.Offline.Store(false)

		resp, err := env.SearchAPI("example.com", "")
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, domain.ErrCodeArchiveOffline, resp.Code)
	})
}

func TestE2E_QueryLogging(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	for _, raw := range []string{"first.example.com", "  second.example.com  "} {
		_, err := env.SearchAPI(raw, "")
		require.NoError(t, err)
	}

	data, err := os.ReadFile(env.QueryLog.Path())
	require.NoError(t, err)
	assert.Equal(t, "first.example.com\n  second.example.com  \n", string(data))

	count, err := env.QueryLogRepo.Count(env.Ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	page, err := env.QueryLogRepo.ListRecent(env.Ctx, nil, 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "  second.example.com  ", page.Items[0].RawURL)
	assert.True(t, page.HasMore)
}

func TestE2E_LogArchival(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	_, err := env.SearchAPI("example.com", "blog")
	require.NoError(t, err)

	archiver := jobs.NewLogArchiver(env.QueryLog, env.S3Client, "logs", zerolog.Nop())
	keys, err := archiver.Archive(env.Ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "logs/"))

	objects, err := env.S3Client.ListObjects(env.Ctx, "logs/")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, keys[0], objects[0].Key)
	assert.Equal(t, int64(len("example.com\n")), objects[0].Size)

	downloadURL, err := env.S3Client.GenerateDownloadURL(env.Ctx, keys[0])
	require.NoError(t, err)
	resp, err := env.HTTPClient.Get(downloadURL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// a second pass has nothing new to upload
	keys, err = archiver.Archive(env.Ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestE2E_Pages(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	t.Run("first visit redirects to slow_down", func(t *testing.T) {
		resp, _, err := env.GetPage("/")
		require.NoError(t, err)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/slow_down", resp.Header.Get("Location"))

		var visited *http.Cookie
		for _, c := range resp.Cookies() {
			if c.Name == "visited" {
				visited = c
			}
		}
		require.NotNil(t, visited)

		resp, body, err := env.GetPage("/", visited)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, `action="/search"`)
	})

	t.Run("html search results", func(t *testing.T) {
		resp, body, err := env.GetPage("/search?url=example.com&query=blog")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "Results for example.com")
		assert.Contains(t, body, "http://example.com/blog/hello")
		assert.NotContains(t, body, "http://example.com/about-us")
	})

	t.Run("html search error", func(t *testing.T) {
		resp, body, err := env.GetPage("/search?url=")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "Please enter a URL to search.")
	})

	t.Run("static tooltip script", func(t *testing.T) {
		resp, _, err := env.GetPage("/static/js/no-bs-tooltips.js")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestE2E_CLI(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.BuildBinaries()

	out, err := env.RunCLI("search", "example.com", "blog")
	require.NoError(t, err, out)
	assert.Contains(t, out, "2 captures of example.com matching blog")
	assert.Contains(t, out, "1. https://web.archive.org/web/20200202000000/http://example.com/blog/hello")

	out, err = env.RunCLI("search", "--output", "example.com")
	require.NoError(t, err, out)
	assert.Contains(t, out, `"matched_count": 4`)

	out, err = env.RunCLI("search", "--local", "example.com", "about")
	require.NoError(t, err, out)
	assert.Contains(t, out, "1 captures of example.com matching about")

	out, err = env.RunCLI("search", "nothing-here.org")
	assert.Error(t, err)
	assert.Contains(t, out, "No results found for this domain.")
}
