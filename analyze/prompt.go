package analyze

import (
	"fmt"
	"strings"

	"github.com/c360studio/issuesense/enrich"
)

const (
	// promptBudget bounds the rendered prompt in characters.
	promptBudget = 12000
	// maxPromptComments bounds the comments included; oldest are
	// dropped first.
	maxPromptComments = 5
)

// systemInstruction is the fixed instruction sent with every prompt.
const systemInstruction = `You are an expert software issue triage assistant. Analyze the provided issue context and respond with a single JSON object containing exactly these fields:
  "summary": one sentence summarizing the issue,
  "type": one of "bug", "feature", "documentation", "question", "other",
  "priority_score": {"score": integer 1-5 (5 = most urgent), "justification": short reason},
  "suggested_labels": array of 2-3 short lowercase labels,
  "potential_impact": short assessment of who or what is affected.
Respond with the JSON object only, no other text.`

// BuildPrompt renders the enriched context into a single bounded text
// block. Rendering is deterministic and side-effect free: sections
// appear in a fixed order, and when the budget is exceeded they are
// dropped in reverse priority order (commits, then file patches, then
// comments). The item's title and body are never dropped.
func BuildPrompt(c *enrich.Context) string {
	identity := renderIdentity(c)
	comments := renderComments(c)
	linked := renderLinkedItems(c)
	filesFull := renderFileChanges(c, true)
	filesBare := renderFileChanges(c, false)
	traces := renderStackTraces(c)
	commits := renderCommits(c)
	repo := renderRepository(c)

	assemble := func(comments, files, commits string) string {
		var b strings.Builder
		for _, section := range []string{identity, comments, linked, files, traces, commits, repo} {
			if section == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString(section)
		}
		return b.String()
	}

	prompt := assemble(comments, filesFull, commits)
	if len(prompt) <= promptBudget {
		return prompt
	}

	// Over budget: drop commits, then patches, then comments.
	prompt = assemble(comments, filesFull, "")
	if len(prompt) <= promptBudget {
		return prompt
	}
	prompt = assemble(comments, filesBare, "")
	if len(prompt) <= promptBudget {
		return prompt
	}
	prompt = assemble("", filesBare, "")
	if len(prompt) <= promptBudget {
		return prompt
	}

	// Nothing left to drop; hard-truncate from the tail. The identity
	// section leads, so title and body survive.
	return prompt[:promptBudget]
}

func renderIdentity(c *enrich.Context) string {
	item := c.Item
	var b strings.Builder
	fmt.Fprintf(&b, "## Issue %s: %s\n", item.Ref.String(), item.Title)
	fmt.Fprintf(&b, "State: %s | Kind: %s\n", item.State, item.Kind)
	if len(item.Labels) > 0 {
		fmt.Fprintf(&b, "Labels: %s\n", strings.Join(item.Labels, ", "))
	}
	b.WriteString("\n")
	b.WriteString(item.Body)
	return b.String()
}

func renderComments(c *enrich.Context) string {
	comments := c.Item.Comments
	if len(comments) == 0 {
		return ""
	}
	if len(comments) > maxPromptComments {
		comments = comments[len(comments)-maxPromptComments:]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Recent comments (%d of %d)\n", len(comments), len(c.Item.Comments))
	for _, cm := range comments {
		fmt.Fprintf(&b, "- %s: %s\n", cm.Author, cm.Body)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderLinkedItems(c *enrich.Context) string {
	if len(c.LinkedItems) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "## Linked items (%d)\n", len(c.LinkedItems))
	for _, li := range c.LinkedItems {
		fmt.Fprintf(&b, "- %s [%s, %s]: %s\n", li.Ref.String(), li.Kind, li.State, li.Title)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderFileChanges(c *enrich.Context, withPatches bool) string {
	if len(c.FileChanges) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "## Changed files (%d)\n", len(c.FileChanges))
	for _, fc := range c.FileChanges {
		fmt.Fprintf(&b, "- %s (+%d/-%d)\n", fc.Path, fc.Additions, fc.Deletions)
		if withPatches && fc.Patch != "" {
			fmt.Fprintf(&b, "```\n%s\n```\n", fc.Patch)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderStackTraces(c *enrich.Context) string {
	if len(c.StackTraces) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "## Stack traces (%d)\n", len(c.StackTraces))
	for _, st := range c.StackTraces {
		fmt.Fprintf(&b, "[%s]\n%s\n", st.Format, st.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderCommits(c *enrich.Context) string {
	if len(c.Commits) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "## Recent commits touching changed files (%d)\n", len(c.Commits))
	for _, cr := range c.Commits {
		message := cr.Message
		if i := strings.IndexByte(message, '\n'); i >= 0 {
			message = message[:i]
		}
		fmt.Fprintf(&b, "- %.8s %s (%s, %s)\n", cr.SHA, message, cr.Author, cr.When.Format("2006-01-02"))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderRepository(c *enrich.Context) string {
	if c.Repository == nil {
		return ""
	}
	r := c.Repository
	return fmt.Sprintf("## Repository\n%s | language: %s | stars: %d | open issues: %d",
		r.FullName, r.Language, r.Stars, r.OpenIssues)
}
