package project

import "sort"

// Node is the minimal shape needed to place a project in the forest.
type Node struct {
	ID       int64
	ParentID *int64
}

// Tree is an immutable in-memory view of the project forest. Traversals never
// follow a parent that is not part of the tree and stop on cycles.
type Tree struct {
	parent   map[int64]int64
	children map[int64][]int64
}

func NewTree(nodes []Node) *Tree {
	t := &Tree{
		parent:   make(map[int64]int64, len(nodes)),
		children: make(map[int64][]int64),
	}
	for _, n := range nodes {
		t.parent[n.ID] = 0
	}
	for _, n := range nodes {
		if n.ParentID == nil || *n.ParentID == n.ID {
			continue
		}
		if _, ok := t.parent[*n.ParentID]; !ok {
			continue
		}
		t.parent[n.ID] = *n.ParentID
		t.children[*n.ParentID] = append(t.children[*n.ParentID], n.ID)
	}
	for id := range t.children {
		kids := t.children[id]
		sort.Slice(kids, func(i, j int) bool { return kids[i] < kids[j] })
	}
	return t
}

func NewTreeFromProjects(projects []*Project) *Tree {
	nodes := make([]Node, 0, len(projects))
	for _, p := range projects {
		nodes = append(nodes, Node{ID: p.ID, ParentID: p.ParentID})
	}
	return NewTree(nodes)
}

func (t *Tree) Contains(id int64) bool {
	_, ok := t.parent[id]
	return ok
}

func (t *Tree) Len() int {
	return len(t.parent)
}

// Parent returns the direct parent of id; false for roots and unknown projects.
func (t *Tree) Parent(id int64) (int64, bool) {
	p, ok := t.parent[id]
	if !ok || p == 0 {
		return 0, false
	}
	return p, true
}

func (t *Tree) IsRoot(id int64) bool {
	_, hasParent := t.Parent(id)
	return t.Contains(id) && !hasParent
}

// Ancestors lists the chain above id, nearest first.
func (t *Tree) Ancestors(id int64) []int64 {
	var out []int64
	seen := map[int64]bool{id: true}
	for cur, ok := t.Parent(id); ok; cur, ok = t.Parent(cur) {
		if seen[cur] {
			break
		}
		seen[cur] = true
		out = append(out, cur)
	}
	return out
}

func (t *Tree) Children(id int64) []int64 {
	return append([]int64(nil), t.children[id]...)
}

// Descendants lists every project below id at any depth, breadth-first.
func (t *Tree) Descendants(id int64) []int64 {
	var out []int64
	seen := map[int64]bool{id: true}
	queue := t.Children(id)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		out = append(out, cur)
		queue = append(queue, t.children[cur]...)
	}
	return out
}

// Roots lists every project without a parent, sorted by id.
func (t *Tree) Roots() []int64 {
	var out []int64
	for id, p := range t.parent {
		if p == 0 {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IDs lists every project in the tree, sorted.
func (t *Tree) IDs() []int64 {
	out := make([]int64, 0, len(t.parent))
	for id := range t.parent {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
