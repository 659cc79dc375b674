package dashboard

import (
	"errors"

	"github.com/fleetwatch/fleetwatch/pkg/models"
)

// TreeRow is one entry in the flattened agent hierarchy: a snapshot plus
// the connector prefix that encodes its depth and sibling position.
type TreeRow struct {
	Snapshot *models.AgentSnapshot
	Prefix   string
}

// ErrHierarchyCycle reports that the parent/child relation contained a
// cycle or exceeded the depth bound. The returned rows are still complete:
// unreachable agents are appended as roots so nothing disappears from the
// dashboard.
var ErrHierarchyCycle = errors.New("agent hierarchy contains a cycle")

// maxTreeDepth bounds traversal. The roster is externally supplied, so a
// malformed parent chain must not recurse unboundedly.
const maxTreeDepth = 64

// Connector glyphs for the tree prefixes.
const (
	glyphBranch   = "├─ "
	glyphLast     = "└─ "
	glyphContinue = "│  "
	glyphBlank    = "   "
)

// Flatten produces the depth-first, prefix-annotated ordering of agents.
// Agents whose parent id is empty or unknown are roots; children follow
// their parent in roster order. Pure function of the input; callers
// recompute it on every render because parent links can change between
// renders.
func Flatten(agents []*models.AgentSnapshot) ([]TreeRow, error) {
	known := make(map[string]bool, len(agents))
	for _, a := range agents {
		known[a.ID] = true
	}

	children := make(map[string][]*models.AgentSnapshot)
	var roots []*models.AgentSnapshot
	for _, a := range agents {
		if a.ParentID == "" || !known[a.ParentID] {
			// Orphaned sub-agents are promoted to roots, never dropped.
			roots = append(roots, a)
		} else {
			children[a.ParentID] = append(children[a.ParentID], a)
		}
	}

	rows := make([]TreeRow, 0, len(agents))
	visited := make(map[string]bool, len(agents))
	truncated := false

	var visit func(a *models.AgentSnapshot, ancestors string, glyph string, depth int)
	visit = func(a *models.AgentSnapshot, ancestors string, glyph string, depth int) {
		if visited[a.ID] || depth > maxTreeDepth {
			truncated = true
			return
		}
		visited[a.ID] = true
		rows = append(rows, TreeRow{Snapshot: a, Prefix: ancestors + glyph})

		kids := children[a.ID]
		for i, kid := range kids {
			// The child's ancestors extend this node's prefix: a
			// continuation bar under a branch glyph, blanks under a last
			// glyph.
			next := ancestors
			switch glyph {
			case glyphBranch:
				next += glyphContinue
			case glyphLast:
				next += glyphBlank
			}
			if i == len(kids)-1 {
				visit(kid, next, glyphLast, depth+1)
			} else {
				visit(kid, next, glyphBranch, depth+1)
			}
		}
	}

	for _, root := range roots {
		visit(root, "", "", 0)
	}

	// Any agent not reached from a root sits on a parent cycle. Surface
	// the fault but keep the listing total.
	var err error
	if len(rows) < len(agents) || truncated {
		err = ErrHierarchyCycle
		for _, a := range agents {
			if !visited[a.ID] {
				visited[a.ID] = true
				rows = append(rows, TreeRow{Snapshot: a, Prefix: ""})
			}
		}
	}
	return rows, err
}
