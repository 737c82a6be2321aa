// Package enrich consolidates tracker facts about a work item into one
// context object under a partial-failure policy: the primary item fetch
// is fatal, everything else degrades to an empty sub-collection.
package enrich

import (
	"github.com/c360studio/issuesense/extract"
	"github.com/c360studio/issuesense/tracker"
)

// Context is the consolidated enrichment result. Item is always
// present; every other field may be empty, either because nothing was
// found or because an advisory fetch failed. The two cases are not
// distinguished here — failures are logged and counted instead.
type Context struct {
	Item        *tracker.WorkItem
	Repository  *tracker.Repository
	LinkedItems []tracker.LinkedItem
	FileChanges []tracker.FileChange
	Commits     []tracker.CommitRecord
	StackTraces []extract.StackTrace
}
