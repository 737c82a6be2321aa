// Package tracker wraps the remote issue tracker's read operations.
// All types are immutable snapshots: they are populated once per fetch
// and never mutated afterwards.
package tracker

import (
	"fmt"
	"strings"
	"time"
)

// ItemKind discriminates issues from change-sets (pull requests).
type ItemKind string

const (
	KindIssue     ItemKind = "issue"
	KindChangeSet ItemKind = "change-set"
)

// ItemRef identifies a work item by repository and number.
type ItemRef struct {
	Owner  string
	Repo   string
	Number int
}

// Repository returns the "owner/name" form of the reference.
func (r ItemRef) Repository() string {
	return r.Owner + "/" + r.Repo
}

// String returns the "owner/name#number" form of the reference.
func (r ItemRef) String() string {
	return fmt.Sprintf("%s/%s#%d", r.Owner, r.Repo, r.Number)
}

// ParseRepository splits an "owner/name" string into its parts.
func ParseRepository(s string) (owner, repo string, err error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository %q: expected owner/name", s)
	}
	return parts[0], parts[1], nil
}

// Comment is a single entry in a work item's discussion thread.
type Comment struct {
	Author string
	Body   string
}

// WorkItem is a snapshot of a tracked work item with its comment thread.
// Comments are in chronological order.
type WorkItem struct {
	Ref      ItemRef
	Title    string
	Body     string
	State    string
	Labels   []string
	Comments []Comment
	Kind     ItemKind
}

// LinkedItem is a lightweight reference to a work item discovered inside
// another item's text. It carries only what's needed for display; link
// resolution does not recurse.
type LinkedItem struct {
	Ref   ItemRef
	Title string
	State string
	Kind  ItemKind
}

// FileChange is one changed file in a change-set. Patch holds a truncated
// excerpt of the diff, bounded at fetch time.
type FileChange struct {
	Path      string
	Patch     string
	Additions int
	Deletions int
}

// CommitRecord is a recent commit touching one or more of the files a
// change-set modified. Paths lists the queried paths it was found under.
type CommitRecord struct {
	SHA     string
	Message string
	Author  string
	When    time.Time
	Paths   []string
}

// Repository holds the repository metadata used for analysis context.
type Repository struct {
	FullName   string
	Language   string
	Stars      int
	OpenIssues int
}
