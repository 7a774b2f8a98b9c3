package category

import (
	"cmp"
	"slices"

	"github.com/matst80/slask-catalog/pkg/types"
)

type Node struct {
	*types.Category
	Children []*Node
}

// Tree is an arena of categories indexed by id. Parent links are plain ids,
// so every walk is an iterative parent-pointer walk with a visited set.
type Tree struct {
	nodes  map[string]*Node
	bySlug map[string]*Node
	roots  []*Node
	err    error
}

func NewTree(categories []types.Category) *Tree {
	t := &Tree{
		nodes:  make(map[string]*Node, len(categories)),
		bySlug: make(map[string]*Node, len(categories)),
	}
	for i := range categories {
		c := categories[i]
		n := &Node{Category: &c}
		t.nodes[c.Id] = n
		if c.Slug != "" {
			t.bySlug[c.Slug] = n
		}
	}
	for _, n := range t.nodes {
		if n.IsRoot() {
			t.roots = append(t.roots, n)
			continue
		}
		parent, ok := t.nodes[*n.ParentId]
		if !ok {
			// dangling parent reference, keep the category reachable
			t.roots = append(t.roots, n)
			continue
		}
		parent.Children = append(parent.Children, n)
	}
	sortNodes(t.roots)
	for _, n := range t.nodes {
		sortNodes(n.Children)
	}
	t.err = t.validate()
	return t
}

func sortNodes(nodes []*Node) {
	slices.SortFunc(nodes, func(a, b *Node) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.Id, b.Id))
	})
}

func (t *Tree) parentOf(n *Node) (*Node, bool) {
	if n.IsRoot() {
		return nil, false
	}
	p, ok := t.nodes[*n.ParentId]
	return p, ok
}

// validate walks every category up to a root so a cycle anywhere in the
// graph is known before any request uses the tree.
func (t *Tree) validate() error {
	ids := make([]string, 0, len(t.nodes))
	for id := range t.nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if _, err := t.ResolveAncestors(id); err != nil {
			return err
		}
	}
	return nil
}

// Err returns the integrity error found while building the tree, if any.
func (t *Tree) Err() error {
	return t.err
}

func (t *Tree) Len() int {
	return len(t.nodes)
}

func (t *Tree) Get(id string) (*Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

func (t *Tree) BySlug(slug string) (*Node, bool) {
	n, ok := t.bySlug[slug]
	return n, ok
}

func (t *Tree) Roots() []*Node {
	return t.roots
}

func (t *Tree) Children(id string) []*Node {
	if n, ok := t.nodes[id]; ok {
		return n.Children
	}
	return nil
}

// ResolveAncestors returns the parent chain of a category, nearest first,
// ending at a root. The category itself is not included.
func (t *Tree) ResolveAncestors(id string) ([]*types.Category, error) {
	n, ok := t.nodes[id]
	if !ok {
		return nil, &types.NotFoundError{Kind: "category", Id: id}
	}
	visited := map[string]struct{}{id: {}}
	path := []string{id}
	ret := make([]*types.Category, 0, 4)
	for {
		p, ok := t.parentOf(n)
		if !ok {
			return ret, nil
		}
		path = append(path, p.Id)
		if _, seen := visited[p.Id]; seen {
			return nil, &types.ConfigurationError{CategoryId: id, Path: path}
		}
		visited[p.Id] = struct{}{}
		ret = append(ret, p.Category)
		n = p
	}
}

// ResolveDescendants returns the category and every category below it.
func (t *Tree) ResolveDescendants(id string) ([]*types.Category, error) {
	n, ok := t.nodes[id]
	if !ok {
		return nil, &types.NotFoundError{Kind: "category", Id: id}
	}
	visited := map[string]struct{}{id: {}}
	ret := []*types.Category{n.Category}
	queue := []*Node{n}
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		for _, child := range curr.Children {
			if _, seen := visited[child.Id]; seen {
				return nil, &types.ConfigurationError{CategoryId: id, Path: []string{curr.Id, child.Id}}
			}
			visited[child.Id] = struct{}{}
			ret = append(ret, child.Category)
			queue = append(queue, child)
		}
	}
	return ret, nil
}

// DescendantIds is ResolveDescendants reduced to a set of ids.
func (t *Tree) DescendantIds(id string) (map[string]struct{}, error) {
	cats, err := t.ResolveDescendants(id)
	if err != nil {
		return nil, err
	}
	ret := make(map[string]struct{}, len(cats))
	for _, c := range cats {
		ret[c.Id] = struct{}{}
	}
	return ret, nil
}
