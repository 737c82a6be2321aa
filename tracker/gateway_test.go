package tracker

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestGateway points a gateway at a local server. The client prefixes
// enterprise endpoints with /api/v3/, so handlers register under that
// path.
func newTestGateway(t *testing.T, handler http.Handler) *Gateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	g, err := NewGateway("test-token", srv.URL)
	require.NoError(t, err)
	return g
}

func TestGetWorkItem(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v3/repos/acme/widgets/issues/7", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{
			"number": 7,
			"title": "Crash on save",
			"body": "It crashes. See #3.",
			"state": "open",
			"comments": 2,
			"labels": [{"name": "bug"}, {"name": "crash"}]
		}`)
	})
	mux.HandleFunc("GET /api/v3/repos/acme/widgets/issues/7/comments", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "created", r.URL.Query().Get("sort"))
		assert.Equal(t, "asc", r.URL.Query().Get("direction"))
		fmt.Fprint(w, `[
			{"user": {"login": "alice"}, "body": "same here"},
			{"user": {"login": "bob"}, "body": "repro attached"}
		]`)
	})

	g := newTestGateway(t, mux)
	ref := ItemRef{Owner: "acme", Repo: "widgets", Number: 7}
	item, err := g.GetWorkItem(context.Background(), ref)
	require.NoError(t, err)

	assert.Equal(t, ref, item.Ref)
	assert.Equal(t, "Crash on save", item.Title)
	assert.Equal(t, "open", item.State)
	assert.Equal(t, KindIssue, item.Kind)
	assert.Equal(t, []string{"bug", "crash"}, item.Labels)
	require.Len(t, item.Comments, 2)
	assert.Equal(t, Comment{Author: "alice", Body: "same here"}, item.Comments[0])
}

func TestGetWorkItemChangeSetKind(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v3/repos/acme/widgets/issues/12", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"number": 12,
			"title": "Fix crash",
			"state": "open",
			"pull_request": {"url": "https://example.test/pulls/12"}
		}`)
	})

	g := newTestGateway(t, mux)
	item, err := g.GetWorkItem(context.Background(), ItemRef{Owner: "acme", Repo: "widgets", Number: 12})
	require.NoError(t, err)
	assert.Equal(t, KindChangeSet, item.Kind)
	assert.Empty(t, item.Comments)
}

func TestGetWorkItemNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v3/repos/acme/widgets/issues/999", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "Not Found"}`)
	})

	g := newTestGateway(t, mux)
	_, err := g.GetWorkItem(context.Background(), ItemRef{Owner: "acme", Repo: "widgets", Number: 999})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsTransport(err))
}

func TestGetWorkItemRateLimited(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v3/repos/acme/widgets/issues/1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Limit", "60")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", "2000000000")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message": "API rate limit exceeded"}`)
	})

	g := newTestGateway(t, mux)
	_, err := g.GetWorkItem(context.Background(), ItemRef{Owner: "acme", Repo: "widgets", Number: 1})
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))
}

func TestGetWorkItemMalformedPayload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v3/repos/acme/widgets/issues/2", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"number": "two", "title": "type mismatch"}`)
	})

	g := newTestGateway(t, mux)
	_, err := g.GetWorkItem(context.Background(), ItemRef{Owner: "acme", Repo: "widgets", Number: 2})
	require.Error(t, err)
	assert.True(t, IsMalformed(err))
}

func TestListFileChangesTruncatesPatches(t *testing.T) {
	longPatch := strings.Repeat("+added line\n", 100)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v3/repos/acme/widgets/pulls/5/files", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[
			{"filename": "internal/store/db.go", "patch": %q, "additions": 100, "deletions": 2},
			{"filename": "README.md", "patch": "+docs", "additions": 1, "deletions": 0}
		]`, longPatch)
	})

	g := newTestGateway(t, mux)
	changes, err := g.ListFileChanges(context.Background(), ItemRef{Owner: "acme", Repo: "widgets", Number: 5})
	require.NoError(t, err)
	require.Len(t, changes, 2)

	assert.Equal(t, "internal/store/db.go", changes[0].Path)
	assert.Len(t, changes[0].Patch, patchExcerptLimit)
	assert.Equal(t, 100, changes[0].Additions)
	assert.Equal(t, "+docs", changes[1].Patch)
}

func TestListRecentCommitsDeduplicates(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v3/repos/acme/widgets/commits", func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.URL.Query().Get("since"))
		switch r.URL.Query().Get("path") {
		case "a.go":
			fmt.Fprint(w, `[
				{"sha": "aaa111", "commit": {"message": "shared change", "author": {"name": "Alice", "date": "2026-08-20T10:00:00Z"}}},
				{"sha": "bbb222", "commit": {"message": "only a", "author": {"name": "Bob", "date": "2026-08-10T10:00:00Z"}}}
			]`)
		case "b.go":
			fmt.Fprint(w, `[
				{"sha": "aaa111", "commit": {"message": "shared change", "author": {"name": "Alice", "date": "2026-08-20T10:00:00Z"}}}
			]`)
		default:
			fmt.Fprint(w, `[]`)
		}
	})

	g := newTestGateway(t, mux)
	records, err := g.ListRecentCommits(context.Background(), "acme", "widgets", []string{"a.go", "b.go"})
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Newest first, shared commit merged across paths.
	assert.Equal(t, "aaa111", records[0].SHA)
	assert.Equal(t, []string{"a.go", "b.go"}, records[0].Paths)
	assert.Equal(t, "bbb222", records[1].SHA)
	assert.Equal(t, []string{"a.go"}, records[1].Paths)
}

func TestGetRepository(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v3/repos/acme/widgets", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"full_name": "acme/widgets",
			"language": "Go",
			"stargazers_count": 1234,
			"open_issues_count": 17
		}`)
	})

	g := newTestGateway(t, mux)
	repo, err := g.GetRepository(context.Background(), "acme", "widgets")
	require.NoError(t, err)
	assert.Equal(t, &Repository{
		FullName:   "acme/widgets",
		Language:   "Go",
		Stars:      1234,
		OpenIssues: 17,
	}, repo)
}

func TestParseRepository(t *testing.T) {
	owner, repo, err := ParseRepository("acme/widgets")
	require.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "widgets", repo)

	for _, bad := range []string{"", "acme", "acme/", "/widgets", "a/b/c"} {
		_, _, err := ParseRepository(bad)
		assert.Error(t, err, "input %q", bad)
	}
}
