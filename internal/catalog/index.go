package catalog

import (
	"context"

	"github.com/pkg/errors"
	"github.com/solatis/promokeeper/internal/types"
)

// Index is a point-in-time attribute lookup built from a Catalog.
// Safe for concurrent use; it never changes after construction.
type Index struct {
	categories []types.AttributeCategory
	attributes []types.Attribute
	byID       map[string]types.Attribute
	categoryOf map[string]string
}

// NewIndex snapshots every category of c.
func NewIndex(ctx context.Context, c Catalog) (*Index, error) {
	categories, err := c.ListCategories(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list attribute categories")
	}

	idx := &Index{
		categories: categories,
		byID:       make(map[string]types.Attribute),
		categoryOf: make(map[string]string),
	}
	for _, cat := range categories {
		for _, a := range cat.Attributes {
			if _, dup := idx.byID[a.ID]; dup {
				return nil, errors.Errorf("duplicate attribute %s", a.ID)
			}
			idx.byID[a.ID] = a
			idx.categoryOf[a.ID] = cat.ID
			idx.attributes = append(idx.attributes, a)
		}
	}
	return idx, nil
}

// Attribute returns the definition for id.
func (i *Index) Attribute(id string) (types.Attribute, bool) {
	a, ok := i.byID[id]
	return a, ok
}

// MustAttribute returns the definition for id or ErrUnknownAttribute.
func (i *Index) MustAttribute(id string) (types.Attribute, error) {
	a, ok := i.byID[id]
	if !ok {
		return types.Attribute{}, errors.Wrapf(types.ErrUnknownAttribute, "%s", id)
	}
	return a, nil
}

// CategoryOf returns the id of the category holding attribute id.
func (i *Index) CategoryOf(id string) (string, bool) {
	c, ok := i.categoryOf[id]
	return c, ok
}

// Attributes returns all attributes in catalog order.
func (i *Index) Attributes() []types.Attribute {
	out := make([]types.Attribute, len(i.attributes))
	copy(out, i.attributes)
	return out
}

// Categories returns the indexed categories in catalog order.
func (i *Index) Categories() []types.AttributeCategory {
	return cloneCategories(i.categories)
}

// Len returns the number of indexed attributes.
func (i *Index) Len() int { return len(i.attributes) }
