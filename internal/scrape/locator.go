package scrape

import (
	"strings"
	"time"
)

// Node is one text-bearing element in a page snapshot. Text is the
// element's full rendered text, descendants included, the way the DOM
// reports textContent. Parent is the index of the parent node in the
// same snapshot, or -1 for a root.
type Node struct {
	Text   string `json:"text"`
	Parent int    `json:"parent"`
}

// Snapshot is a live capture of a page's text-bearing elements in
// document order.
type Snapshot struct {
	Nodes []Node    `json:"nodes"`
	Taken time.Time `json:"taken"`
}

// maxClimb bounds the ancestor walk when looking for a label+value row.
const maxClimb = 8

// DefaultLabels is the priority-ordered list of labels the locator
// anchors on. Only the realized figure is used in practice.
var DefaultLabels = []string{"Realized P&L"}

// Locator finds the monetary value sitting next to a known label in a
// page snapshot.
type Locator struct {
	Labels []string
}

// NewLocator creates a locator for the given priority-ordered labels.
// With no labels it falls back to DefaultLabels.
func NewLocator(labels ...string) *Locator {
	if len(labels) == 0 {
		labels = DefaultLabels
	}
	return &Locator{Labels: labels}
}

// Find returns the value anchored to the first label (by priority
// order) that yields one. ok is false when no label matches or no row
// contains a parseable value.
func (l *Locator) Find(snap *Snapshot) (float64, bool) {
	if snap == nil || len(snap.Nodes) == 0 {
		return 0, false
	}

	labelSet := make(map[string]bool, len(l.Labels))
	for _, lb := range l.Labels {
		labelSet[lb] = true
	}

	for _, label := range l.Labels {
		for i, n := range snap.Nodes {
			if strings.TrimSpace(n.Text) != label {
				continue
			}
			row := snap.rowContainer(i)
			if v, ok := snap.lastValueInRow(row, i, labelSet); ok {
				return v, true
			}
		}
	}
	return 0, false
}

// rowContainer climbs from the label element to the nearest ancestor
// that looks like a label+value row: at least 2 child elements and a
// digit or dollar sign somewhere in its text. Falls back to the direct
// parent (or the element itself) when nothing qualifies within
// maxClimb levels.
func (s *Snapshot) rowContainer(el int) int {
	cur := el
	for i := 0; i < maxClimb; i++ {
		parent := s.Nodes[cur].Parent
		if parent < 0 || parent >= len(s.Nodes) {
			break
		}
		if s.childCount(parent) >= 2 && hasNumberHint(s.Nodes[parent].Text) {
			return parent
		}
		cur = parent
	}
	if p := s.Nodes[el].Parent; p >= 0 && p < len(s.Nodes) {
		return p
	}
	return el
}

// lastValueInRow scans the row's descendants in document order and
// keeps the last successfully parsed value: in label-then-value
// layouts the value cell comes later.
func (s *Snapshot) lastValueInRow(row, label int, labelSet map[string]bool) (float64, bool) {
	var best float64
	found := false
	for i, n := range s.Nodes {
		if i == row || !s.isDescendant(i, row) {
			continue
		}
		txt := strings.TrimSpace(n.Text)
		if txt == "" || labelSet[txt] {
			continue
		}
		if v, ok := ParseMoney(txt); ok {
			best = v
			found = true
		}
	}
	return best, found
}

func (s *Snapshot) childCount(parent int) int {
	n := 0
	for _, node := range s.Nodes {
		if node.Parent == parent {
			n++
		}
	}
	return n
}

func (s *Snapshot) isDescendant(node, ancestor int) bool {
	for p := s.Nodes[node].Parent; p >= 0 && p < len(s.Nodes); p = s.Nodes[p].Parent {
		if p == ancestor {
			return true
		}
	}
	return false
}

func hasNumberHint(text string) bool {
	return strings.ContainsAny(text, "$0123456789")
}
