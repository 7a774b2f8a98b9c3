package category

import (
	"cmp"
	"slices"

	"github.com/matst80/slask-catalog/pkg/types"
)

type SpecificationCatalog struct {
	tree *Tree
}

func NewSpecificationCatalog(tree *Tree) *SpecificationCatalog {
	return &SpecificationCatalog{tree: tree}
}

// EffectiveSpecifications returns the category's own definitions plus every
// ancestor's, deduplicated by key with the nearest category winning, ordered
// by display name.
func (c *SpecificationCatalog) EffectiveSpecifications(categoryId string) ([]types.SpecificationDefinition, error) {
	n, ok := c.tree.Get(categoryId)
	if !ok {
		return nil, &types.NotFoundError{Kind: "category", Id: categoryId}
	}
	ancestors, err := c.tree.ResolveAncestors(categoryId)
	if err != nil {
		return nil, err
	}
	chain := append([]*types.Category{n.Category}, ancestors...)
	seen := make(map[string]struct{})
	ret := make([]types.SpecificationDefinition, 0)
	for _, cat := range chain {
		for _, def := range cat.Specifications {
			if _, dup := seen[def.Key]; dup {
				continue
			}
			seen[def.Key] = struct{}{}
			if def.CategoryId == "" {
				def.CategoryId = cat.Id
			}
			ret = append(ret, def)
		}
	}
	sortDefinitions(ret)
	return ret, nil
}

// EffectiveForAll unions the effective definitions of several categories.
// When two categories expose the same key the first category listed wins.
func (c *SpecificationCatalog) EffectiveForAll(categoryIds ...string) ([]types.SpecificationDefinition, error) {
	seen := make(map[string]struct{})
	ret := make([]types.SpecificationDefinition, 0)
	for _, id := range categoryIds {
		defs, err := c.EffectiveSpecifications(id)
		if err != nil {
			return nil, err
		}
		for _, def := range defs {
			if _, dup := seen[def.Key]; dup {
				continue
			}
			seen[def.Key] = struct{}{}
			ret = append(ret, def)
		}
	}
	sortDefinitions(ret)
	return ret, nil
}

func sortDefinitions(defs []types.SpecificationDefinition) {
	slices.SortStableFunc(defs, func(a, b types.SpecificationDefinition) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.Key, b.Key))
	})
}
