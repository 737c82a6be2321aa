package enrich

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/c360studio/issuesense/extract"
	"github.com/c360studio/issuesense/metrics"
	"github.com/c360studio/issuesense/tracker"
)

const (
	// maxLinkedItems bounds link resolution; candidates beyond the cap
	// are discarded.
	maxLinkedItems = 10
	// maxWorkers bounds concurrent outbound calls so a single request
	// cannot exhaust the tracker's rate limit.
	maxWorkers = 5
)

// Source is the set of tracker read operations the aggregator drives.
// *tracker.Gateway satisfies it.
type Source interface {
	GetWorkItem(ctx context.Context, ref tracker.ItemRef) (*tracker.WorkItem, error)
	ResolveLinkedItem(ctx context.Context, ref tracker.ItemRef) (*tracker.LinkedItem, error)
	ListFileChanges(ctx context.Context, ref tracker.ItemRef) ([]tracker.FileChange, error)
	ListRecentCommits(ctx context.Context, owner, repo string, paths []string) ([]tracker.CommitRecord, error)
	GetRepository(ctx context.Context, owner, repo string) (*tracker.Repository, error)
}

// Aggregator builds an enrichment Context from a Source.
type Aggregator struct {
	source      Source
	ignoreGlobs []string
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) AggregatorOption {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// WithIgnoreGlobs excludes matching file paths from the commit lookup
// (e.g. "vendor/**", "**/*.lock").
func WithIgnoreGlobs(globs []string) AggregatorOption {
	return func(a *Aggregator) {
		a.ignoreGlobs = globs
	}
}

// WithMetrics enables failure counting for advisory fetches.
func WithMetrics(m *metrics.Metrics) AggregatorOption {
	return func(a *Aggregator) {
		a.metrics = m
	}
}

// NewAggregator creates an aggregator over the given source.
func NewAggregator(source Source, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		source: source,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Enrich drives the enrichment pipeline for one work item. The primary
// fetch is fatal; every other fetch is advisory — its failure leaves
// the corresponding sub-collection empty and never aborts the request.
func (a *Aggregator) Enrich(ctx context.Context, ref tracker.ItemRef) (*Context, error) {
	item, err := a.source.GetWorkItem(ctx, ref)
	if err != nil {
		return nil, err
	}

	text := itemText(item)

	// Repository metadata, link resolution, and trace extraction are
	// independent of each other. Each fan-out task writes to its own
	// slot; results are merged after the join, so no locks are needed.
	var g errgroup.Group
	g.SetLimit(maxWorkers)

	var repo *tracker.Repository
	g.Go(func() error {
		r, err := a.source.GetRepository(ctx, ref.Owner, ref.Repo)
		if err != nil {
			a.advisory("get_repository", err)
			return nil
		}
		repo = r
		return nil
	})

	numbers := extract.Links(text)
	if len(numbers) > maxLinkedItems {
		numbers = numbers[:maxLinkedItems]
	}
	traces := extract.StackTraces(text)

	linkedSlots := make([]*tracker.LinkedItem, len(numbers))
	for i, number := range numbers {
		g.Go(func() error {
			li, err := a.source.ResolveLinkedItem(ctx, tracker.ItemRef{Owner: ref.Owner, Repo: ref.Repo, Number: number})
			if err != nil {
				a.advisory("resolve_linked_item", err)
				return nil
			}
			linkedSlots[i] = li
			return nil
		})
	}
	_ = g.Wait()

	linked := make([]tracker.LinkedItem, 0, len(linkedSlots))
	for _, li := range linkedSlots {
		if li != nil {
			linked = append(linked, *li)
		}
	}

	changes := a.gatherFileChanges(ctx, linked)
	commits := a.gatherCommits(ctx, ref, changes)

	return &Context{
		Item:        item,
		Repository:  repo,
		LinkedItems: linked,
		FileChanges: changes,
		Commits:     commits,
		StackTraces: traces,
	}, nil
}

// gatherFileChanges fetches diffs for every linked change-set, dropping
// individual failures.
func (a *Aggregator) gatherFileChanges(ctx context.Context, linked []tracker.LinkedItem) []tracker.FileChange {
	var g errgroup.Group
	g.SetLimit(maxWorkers)

	slots := make([][]tracker.FileChange, len(linked))
	for i, li := range linked {
		if li.Kind != tracker.KindChangeSet {
			continue
		}
		g.Go(func() error {
			fc, err := a.source.ListFileChanges(ctx, li.Ref)
			if err != nil {
				a.advisory("list_file_changes", err)
				return nil
			}
			slots[i] = fc
			return nil
		})
	}
	_ = g.Wait()

	var changes []tracker.FileChange
	for _, fc := range slots {
		changes = append(changes, fc...)
	}
	return changes
}

// gatherCommits fetches recent history for the union of changed paths.
func (a *Aggregator) gatherCommits(ctx context.Context, ref tracker.ItemRef, changes []tracker.FileChange) []tracker.CommitRecord {
	paths := a.changedPaths(changes)
	if len(paths) == 0 {
		return nil
	}

	commits, err := a.source.ListRecentCommits(ctx, ref.Owner, ref.Repo, paths)
	if err != nil {
		a.advisory("list_recent_commits", err)
		return nil
	}
	return commits
}

// changedPaths returns the deduplicated union of changed file paths,
// in discovery order, with ignore globs applied.
func (a *Aggregator) changedPaths(changes []tracker.FileChange) []string {
	var paths []string
	seen := make(map[string]bool)
	for _, fc := range changes {
		if fc.Path == "" || seen[fc.Path] || a.ignored(fc.Path) {
			continue
		}
		seen[fc.Path] = true
		paths = append(paths, fc.Path)
	}
	return paths
}

func (a *Aggregator) ignored(path string) bool {
	for _, glob := range a.ignoreGlobs {
		if ok, err := doublestar.Match(glob, path); err == nil && ok {
			return true
		}
	}
	return false
}

// advisory records a non-fatal fetch failure. The sub-collection stays
// empty; the signal survives in logs and metrics.
func (a *Aggregator) advisory(op string, err error) {
	a.logger.Warn("Advisory fetch failed", "op", op, "error", err)
	a.metrics.RecordTrackerError(op, errorKind(err))
}

func errorKind(err error) string {
	var te *tracker.Error
	if errors.As(err, &te) {
		return string(te.Kind)
	}
	return "unknown"
}

func itemText(item *tracker.WorkItem) string {
	var b strings.Builder
	b.WriteString(item.Title)
	b.WriteString("\n")
	b.WriteString(item.Body)
	for _, c := range item.Comments {
		b.WriteString("\n")
		b.WriteString(c.Body)
	}
	return b.String()
}
