package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/google/go-github/v79/github"
)

const (
	// commentPageSize bounds the comment thread fetched with a work item.
	commentPageSize = 50
	// maxFileChanges bounds the number of changed files per change-set.
	maxFileChanges = 10
	// patchExcerptLimit bounds each patch excerpt in characters.
	patchExcerptLimit = 600
	// commitWindow is the recency window for commit lookups.
	commitWindow = 90 * 24 * time.Hour
	// maxCommits bounds the number of commit records returned.
	maxCommits = 5
	// maxCommitPaths bounds how many file paths are queried for commits.
	maxCommitPaths = 10
	// requestTimeout bounds each individual outbound call.
	requestTimeout = 15 * time.Second
)

// Gateway wraps the tracker's read operations. Every method fails with a
// classified *Error; callers decide whether a failure is fatal or
// advisory.
type Gateway struct {
	client *github.Client
	logger *slog.Logger
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// NewGateway creates a tracker gateway authenticated with the given
// token. baseURL overrides the API endpoint for self-hosted trackers
// and tests; empty means the public API. The credential is held by the
// gateway only — nothing here reads ambient process state.
func NewGateway(token, baseURL string, opts ...GatewayOption) (*Gateway, error) {
	httpClient := &http.Client{
		Timeout:   requestTimeout,
		Transport: newRetryTransport(nil),
	}

	client := github.NewClient(httpClient)
	if baseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, fmt.Errorf("configure tracker base URL: %w", err)
		}
	}
	if token != "" {
		client = client.WithAuthToken(token)
	}

	g := &Gateway{
		client: client,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// GetWorkItem fetches a work item and its comment thread. This is the
// pipeline's primary fetch: any failure here is fatal to the request.
func (g *Gateway) GetWorkItem(ctx context.Context, ref ItemRef) (*WorkItem, error) {
	const op = "get_work_item"

	issue, resp, err := g.client.Issues.Get(ctx, ref.Owner, ref.Repo, ref.Number)
	if err != nil {
		return nil, classify(op, resp, err)
	}

	item := &WorkItem{
		Ref:    ref,
		Title:  issue.GetTitle(),
		Body:   issue.GetBody(),
		State:  issue.GetState(),
		Labels: labelNames(issue.Labels),
		Kind:   itemKind(issue),
	}

	if issue.GetComments() > 0 {
		comments, resp, err := g.client.Issues.ListComments(ctx, ref.Owner, ref.Repo, ref.Number, &github.IssueListCommentsOptions{
			Sort:        github.Ptr("created"),
			Direction:   github.Ptr("asc"),
			ListOptions: github.ListOptions{PerPage: commentPageSize},
		})
		if err != nil {
			return nil, classify(op, resp, err)
		}
		item.Comments = make([]Comment, 0, len(comments))
		for _, c := range comments {
			item.Comments = append(item.Comments, Comment{
				Author: c.GetUser().GetLogin(),
				Body:   c.GetBody(),
			})
		}
	}

	return item, nil
}

// ResolveLinkedItem fetches the display fields of a referenced work
// item. No comment thread, no diffs.
func (g *Gateway) ResolveLinkedItem(ctx context.Context, ref ItemRef) (*LinkedItem, error) {
	const op = "resolve_linked_item"

	issue, resp, err := g.client.Issues.Get(ctx, ref.Owner, ref.Repo, ref.Number)
	if err != nil {
		return nil, classify(op, resp, err)
	}

	return &LinkedItem{
		Ref:   ref,
		Title: issue.GetTitle(),
		State: issue.GetState(),
		Kind:  itemKind(issue),
	}, nil
}

// ListFileChanges fetches the changed files of a change-set, capped at
// maxFileChanges with each patch truncated to patchExcerptLimit.
func (g *Gateway) ListFileChanges(ctx context.Context, ref ItemRef) ([]FileChange, error) {
	const op = "list_file_changes"

	files, resp, err := g.client.PullRequests.ListFiles(ctx, ref.Owner, ref.Repo, ref.Number, &github.ListOptions{
		PerPage: maxFileChanges,
	})
	if err != nil {
		return nil, classify(op, resp, err)
	}

	if len(files) > maxFileChanges {
		files = files[:maxFileChanges]
	}

	changes := make([]FileChange, 0, len(files))
	for _, f := range files {
		changes = append(changes, FileChange{
			Path:      f.GetFilename(),
			Patch:     truncate(f.GetPatch(), patchExcerptLimit),
			Additions: f.GetAdditions(),
			Deletions: f.GetDeletions(),
		})
	}
	return changes, nil
}

// ListRecentCommits fetches commits from the last commitWindow touching
// the given paths, newest first, capped at maxCommits. Commits found
// under multiple paths are merged into one record.
func (g *Gateway) ListRecentCommits(ctx context.Context, owner, repo string, paths []string) ([]CommitRecord, error) {
	const op = "list_recent_commits"

	if len(paths) > maxCommitPaths {
		paths = paths[:maxCommitPaths]
	}
	since := time.Now().Add(-commitWindow)

	bySHA := make(map[string]*CommitRecord)
	var order []string

	for _, path := range paths {
		commits, resp, err := g.client.Repositories.ListCommits(ctx, owner, repo, &github.CommitsListOptions{
			Path:        path,
			Since:       since,
			ListOptions: github.ListOptions{PerPage: maxCommits},
		})
		if err != nil {
			return nil, classify(op, resp, err)
		}

		for _, c := range commits {
			sha := c.GetSHA()
			if rec, ok := bySHA[sha]; ok {
				rec.Paths = append(rec.Paths, path)
				continue
			}
			bySHA[sha] = &CommitRecord{
				SHA:     sha,
				Message: c.GetCommit().GetMessage(),
				Author:  c.GetCommit().GetAuthor().GetName(),
				When:    c.GetCommit().GetAuthor().GetDate().Time,
				Paths:   []string{path},
			}
			order = append(order, sha)
		}
	}

	records := make([]CommitRecord, 0, len(order))
	for _, sha := range order {
		records = append(records, *bySHA[sha])
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].When.After(records[j].When)
	})
	if len(records) > maxCommits {
		records = records[:maxCommits]
	}
	return records, nil
}

// GetRepository fetches repository metadata.
func (g *Gateway) GetRepository(ctx context.Context, owner, repo string) (*Repository, error) {
	const op = "get_repository"

	r, resp, err := g.client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, classify(op, resp, err)
	}

	return &Repository{
		FullName:   r.GetFullName(),
		Language:   r.GetLanguage(),
		Stars:      r.GetStargazersCount(),
		OpenIssues: r.GetOpenIssuesCount(),
	}, nil
}

func itemKind(issue *github.Issue) ItemKind {
	if issue.IsPullRequest() {
		return KindChangeSet
	}
	return KindIssue
}

func labelNames(labels []*github.Label) []string {
	if len(labels) == 0 {
		return nil
	}
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		if name := l.GetName(); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
